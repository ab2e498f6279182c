// Package policy implements the access policy and its decision engine.
//
// An AccessPolicy is an immutable snapshot built once at startup and held
// read-only for the gateway's lifetime, which is why concurrent evaluation
// needs no locking. The engine itself is a pure function over a resolved
// path: it never touches the filesystem.
package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/filegate/filegate/pkg/operr"
)

// DefaultMaxFileSize is the ceiling applied by Restricted policies.
const DefaultMaxFileSize = 10 * 1024 * 1024 // 10 MiB

// Spec is the declarative input to New. Path entries must be absolute;
// the caller (normally the config loader) is expected to canonicalize them
// against the real filesystem first.
type Spec struct {
	// AllowedPaths lists directory prefixes access is confined to.
	// Empty means unrestricted on this axis.
	AllowedPaths []string

	// DeniedPaths lists directory prefixes that are always refused.
	// Denied entries win over allowed entries.
	DeniedPaths []string

	// AllowedExtensions lists permitted file extensions (no leading dot,
	// case-insensitive). Empty means unrestricted on this axis.
	AllowedExtensions []string

	// DeniedExtensions lists refused file extensions. Denied wins.
	DeniedExtensions []string

	// MaxFileSize is the byte ceiling for file content. 0 means
	// unlimited.
	MaxFileSize int64

	// AllowSymlinks permits symbolic links anywhere on a request path.
	AllowSymlinks bool

	// AllowHiddenFiles permits dot-prefixed components below the sandbox
	// root.
	AllowHiddenFiles bool

	// ReadOnly refuses every write-class operation, directory
	// creation and removal included.
	ReadOnly bool
}

// AccessPolicy is the compiled, immutable form of a Spec.
type AccessPolicy struct {
	allowedPaths      []string
	deniedPaths       []string
	allowedExtensions map[string]struct{}
	deniedExtensions  map[string]struct{}
	maxFileSize       int64
	allowSymlinks     bool
	allowHiddenFiles  bool
	readOnly          bool
}

// New compiles and validates a Spec.
//
// Malformed policies are rejected here, at construction time, so they can
// never surface as per-request errors: relative path entries, negative
// ceilings, and unreachable configurations (every allowed root swallowed
// by a denied root) all fail loudly.
func New(spec Spec) (*AccessPolicy, error) {
	p := &AccessPolicy{
		maxFileSize:      spec.MaxFileSize,
		allowSymlinks:    spec.AllowSymlinks,
		allowHiddenFiles: spec.AllowHiddenFiles,
		readOnly:         spec.ReadOnly,
	}

	if spec.MaxFileSize < 0 {
		return nil, fmt.Errorf("policy: max_file_size must not be negative")
	}

	var err error
	if p.allowedPaths, err = normalizePaths("allowed_paths", spec.AllowedPaths); err != nil {
		return nil, err
	}
	if p.deniedPaths, err = normalizePaths("denied_paths", spec.DeniedPaths); err != nil {
		return nil, err
	}
	if p.allowedExtensions, err = normalizeExtensions("allowed_extensions", spec.AllowedExtensions); err != nil {
		return nil, err
	}
	if p.deniedExtensions, err = normalizeExtensions("denied_extensions", spec.DeniedExtensions); err != nil {
		return nil, err
	}

	// A policy where no allowed root survives the denied set can never
	// admit any path.
	if len(p.allowedPaths) > 0 {
		reachable := false
		for _, allowed := range p.allowedPaths {
			if !p.pathDenied(allowed) {
				reachable = true
				break
			}
		}
		if !reachable {
			return nil, fmt.Errorf("policy: every allowed path is nested under a denied path; no path is reachable")
		}
	}

	return p, nil
}

// Permissive returns a policy that allows everything.
func Permissive() *AccessPolicy {
	p, err := New(Spec{AllowSymlinks: true, AllowHiddenFiles: true})
	if err != nil {
		panic(err)
	}
	return p
}

// Restricted returns a policy confined to a single directory with the
// default size ceiling, no symlinks and no hidden files.
func Restricted(root string) *AccessPolicy {
	p, err := New(Spec{
		AllowedPaths: []string{root},
		MaxFileSize:  DefaultMaxFileSize,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// ReadOnly returns a Restricted policy that additionally refuses all
// write-class operations.
func ReadOnly(root string) *AccessPolicy {
	p, err := New(Spec{
		AllowedPaths: []string{root},
		MaxFileSize:  DefaultMaxFileSize,
		ReadOnly:     true,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// MaxFileSize returns the byte ceiling, 0 meaning unlimited.
func (p *AccessPolicy) MaxFileSize() int64 { return p.maxFileSize }

// AllowSymlinks reports whether symlinks are permitted on request paths.
func (p *AccessPolicy) AllowSymlinks() bool { return p.allowSymlinks }

// AllowHiddenFiles reports whether dot-prefixed components are permitted.
func (p *AccessPolicy) AllowHiddenFiles() bool { return p.allowHiddenFiles }

// IsReadOnly reports whether write-class operations are refused.
func (p *AccessPolicy) IsReadOnly() bool { return p.readOnly }

// CheckSize validates a known byte count against the ceiling.
func (p *AccessPolicy) CheckSize(n int64) error {
	if p.maxFileSize > 0 && n > p.maxFileSize {
		return operr.Newf(operr.KindSizeLimitExceeded,
			"size %d exceeds the configured limit of %d bytes", n, p.maxFileSize)
	}
	return nil
}

func normalizePaths(field string, entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == "" {
			return nil, fmt.Errorf("policy: %s contains an empty entry", field)
		}
		cleaned := filepath.Clean(entry)
		if !filepath.IsAbs(cleaned) {
			return nil, fmt.Errorf("policy: %s entry %q is not absolute", field, entry)
		}
		out = append(out, cleaned)
	}
	return out, nil
}

func normalizeExtensions(field string, entries []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		ext := strings.ToLower(strings.TrimPrefix(entry, "."))
		if ext == "" {
			return nil, fmt.Errorf("policy: %s contains an empty entry", field)
		}
		if strings.ContainsAny(ext, `/\.`) {
			return nil, fmt.Errorf("policy: %s entry %q is not a bare extension", field, entry)
		}
		out[ext] = struct{}{}
	}
	return out, nil
}
