// Package resolve turns raw request paths into canonical, policy-checkable
// paths.
//
// Canonicalization resolves symlinks and relative segments through the real
// filesystem. Write-class operations target files that may not exist yet, so
// the resolver also reconstructs a canonical path for missing targets by
// canonicalizing the nearest existing ancestor and re-appending the stripped
// components verbatim. Policy prefix checks therefore always apply to the
// real ancestor directory: a symlinked parent cannot be used to escape the
// sandbox.
package resolve

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/filegate/filegate/pkg/operr"
)

// ResolvedPath is the canonical form of a request path.
type ResolvedPath struct {
	// Path is the canonical absolute path: all symlinks and relative
	// segments resolved for every component that existed at resolution
	// time.
	Path string

	// Exists reports whether the terminal component existed when the
	// path was resolved. Write-class operations accept Exists == false;
	// read-class operations will fail later with NotFound.
	Exists bool
}

// Resolve canonicalizes a raw path string.
//
// Full canonicalization is attempted first. If it fails only because
// trailing components do not exist yet, the resolver walks upward removing
// trailing components until an existing ancestor canonicalizes, then
// re-appends the stripped components. If no ancestor exists at all the
// path is invalid.
func Resolve(raw string) (ResolvedPath, error) {
	if raw == "" {
		return ResolvedPath{}, operr.New(operr.KindInvalidPath, "path is empty")
	}
	if strings.ContainsRune(raw, 0) {
		return ResolvedPath{}, operr.New(operr.KindInvalidPath, "path contains a NUL byte")
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return ResolvedPath{}, operr.Wrap(operr.KindInvalidPath, "path cannot be made absolute", err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return ResolvedPath{Path: canonical, Exists: true}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return ResolvedPath{}, operr.Sanitize(raw, err)
	}

	// The target (or some suffix of it) does not exist. Strip trailing
	// components until an ancestor canonicalizes, then re-append them so
	// policy checks see the real ancestor plus the intended suffix.
	prefix := abs
	var stripped []string
	for {
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return ResolvedPath{}, operr.New(operr.KindInvalidPath, "no existing ancestor directory")
		}
		stripped = append(stripped, filepath.Base(prefix))
		prefix = parent

		canonical, err = filepath.EvalSymlinks(prefix)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return ResolvedPath{}, operr.Sanitize(raw, err)
		}
	}

	// stripped was collected leaf-first.
	for i := len(stripped) - 1; i >= 0; i-- {
		canonical = filepath.Join(canonical, stripped[i])
	}
	return ResolvedPath{Path: canonical, Exists: false}, nil
}
