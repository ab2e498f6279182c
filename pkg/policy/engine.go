package policy

import (
	"path/filepath"
	"strings"

	"github.com/filegate/filegate/pkg/operr"
)

// Class separates read-class from write-class operations. Write-class
// covers everything that mutates the filesystem: write, append, delete,
// move, copy, create-directory, remove-directory.
type Class int

const (
	// ClassRead marks operations that only observe the filesystem.
	ClassRead Class = iota

	// ClassWrite marks operations that mutate the filesystem.
	ClassWrite
)

// SizeUnknown marks requests whose byte count is not known at evaluation
// time; the gateway re-checks against handle metadata once it is.
const SizeUnknown int64 = -1

// Request is one policy question: may this operation touch this path?
type Request struct {
	// Path is the canonical absolute path from the resolver.
	Path string

	// Class distinguishes read- from write-class operations.
	Class Class

	// FileOp marks operations whose target is a file, which is the only
	// case extension rules apply to. Directory-level operations (list,
	// metadata, exists, create/remove-directory) leave it false.
	FileOp bool

	// Size is the byte count involved, or SizeUnknown.
	Size int64
}

// Evaluate is the pure decision function. The evaluation order is fixed
// and not configurable:
//
//  1. denied_paths   — denied always wins
//  2. allowed_paths  — empty set means unrestricted
//  3. hidden components below the sandbox root
//  4. extension rules (file operations only; denied wins)
//  5. read-only mode for write-class operations
//  6. size ceiling, when the byte count is known
//
// Nesting is compared component-wise on canonical paths, never as a raw
// string prefix: /home/user2 is not nested under /home/user.
func (p *AccessPolicy) Evaluate(req Request) error {
	if p.pathDenied(req.Path) {
		return operr.New(operr.KindPathNotAllowed, "path explicitly denied")
	}

	root := string(filepath.Separator)
	if len(p.allowedPaths) > 0 {
		matched := ""
		for _, allowed := range p.allowedPaths {
			if nestedUnder(req.Path, allowed) && len(allowed) > len(matched) {
				matched = allowed
			}
		}
		if matched == "" {
			return operr.New(operr.KindPathNotAllowed, "path not in any allowed directory")
		}
		root = matched
	}

	if !p.allowHiddenFiles {
		if err := checkHidden(req.Path, root); err != nil {
			return err
		}
	}

	if req.FileOp {
		if err := p.checkExtension(req.Path); err != nil {
			return err
		}
	}

	if req.Class == ClassWrite && p.readOnly {
		return operr.New(operr.KindReadOnlyViolation, "write operations are disabled in read-only mode")
	}

	if req.Size != SizeUnknown {
		if err := p.CheckSize(req.Size); err != nil {
			return err
		}
	}

	return nil
}

// pathDenied reports whether path sits at or under any denied entry.
func (p *AccessPolicy) pathDenied(path string) bool {
	for _, denied := range p.deniedPaths {
		if nestedUnder(path, denied) {
			return true
		}
	}
	return false
}

// checkExtension applies the deny-then-allow extension rules to the final
// path component. A file without an extension passes unless an allow-set
// is configured.
func (p *AccessPolicy) checkExtension(path string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		if len(p.allowedExtensions) > 0 {
			return operr.New(operr.KindExtensionNotAllowed, "files without an extension are not allowed")
		}
		return nil
	}

	if _, denied := p.deniedExtensions[ext]; denied {
		return operr.Newf(operr.KindExtensionNotAllowed, "file extension %q is denied", ext)
	}
	if len(p.allowedExtensions) > 0 {
		if _, ok := p.allowedExtensions[ext]; !ok {
			return operr.Newf(operr.KindExtensionNotAllowed, "file extension %q is not in the allowed set", ext)
		}
	}
	return nil
}

// checkHidden refuses dot-prefixed components strictly below root.
func checkHidden(path, root string) error {
	below := strings.TrimPrefix(path, root)
	for _, component := range strings.Split(below, string(filepath.Separator)) {
		if component == "" || component == "." || component == ".." {
			continue
		}
		if strings.HasPrefix(component, ".") {
			return operr.Newf(operr.KindHiddenFileNotAllowed, "hidden component %q is not allowed", component)
		}
	}
	return nil
}

// nestedUnder reports whether path equals prefix or sits under it,
// comparing whole components. Both arguments must be cleaned absolute
// paths, which makes a separator-terminated prefix test exactly a
// component-wise test.
func nestedUnder(path, prefix string) bool {
	if path == prefix {
		return true
	}
	sep := string(filepath.Separator)
	if prefix == sep {
		return strings.HasPrefix(path, sep)
	}
	return strings.HasPrefix(path, prefix+sep)
}
