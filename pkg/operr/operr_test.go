package operr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "policy denial",
			err:  New(KindPathNotAllowed, "path not in any allowed directory"),
			want: "PathNotAllowed: path not in any allowed directory",
		},
		{
			name: "io failure with category",
			err:  &Error{Kind: KindIoFailure, Category: "permission", Message: "operation failed on /x"},
			want: "IoFailure(permission): operation failed on /x",
		},
		{
			name: "formatted",
			err:  Newf(KindInvalidArguments, "missing required field %q", "path"),
			want: `InvalidArguments: missing required field "path"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("dispatch failed: %w", New(KindRateLimited, "too many requests"))
	if got := KindOf(err); got != KindRateLimited {
		t.Errorf("KindOf() = %v, want %v", got, KindRateLimited)
	}

	if got := KindOf(errors.New("plain")); got != KindIoFailure {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindIoFailure)
	}
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(KindNotFound, "gone"))
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(wrapped, KindNotAFile) {
		t.Error("IsKind matched the wrong kind")
	}
}

func TestSanitizeNotFound(t *testing.T) {
	_, osErr := os.Open("/definitely/not/here")
	if osErr == nil {
		t.Skip("open unexpectedly succeeded")
	}

	err := Sanitize("/definitely/not/here", osErr)
	if err.Kind != KindNotFound {
		t.Fatalf("Kind = %v, want %v", err.Kind, KindNotFound)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("sanitized error should still unwrap to fs.ErrNotExist")
	}
}

func TestSanitizeCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
	}{
		{"permission", fs.ErrPermission, "permission"},
		{"exists", fs.ErrExist, "exists"},
		{"not empty", syscall.ENOTEMPTY, "not-empty"},
		{"is directory", syscall.EISDIR, "is-directory"},
		{"unclassified", errors.New("weird"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize("/ws/f.txt", tt.err)
			if got.Kind != KindIoFailure {
				t.Fatalf("Kind = %v, want %v", got.Kind, KindIoFailure)
			}
			if got.Category != tt.category {
				t.Errorf("Category = %q, want %q", got.Category, tt.category)
			}
		})
	}
}

func TestSanitizeHidesOSText(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "/secret/internal/location", Err: syscall.EACCES}
	err := Sanitize("f.txt", cause)

	if strings.Contains(err.Error(), "/secret/internal/location") {
		t.Errorf("sanitized message leaks the OS path: %q", err.Error())
	}
	if err.Category != "permission" {
		t.Errorf("Category = %q, want %q", err.Category, "permission")
	}
}

func TestSanitizePassthrough(t *testing.T) {
	orig := New(KindSymlinkNotAllowed, "symlink in path")
	got := Sanitize("/x", fmt.Errorf("wrapped: %w", orig))
	if got.Kind != KindSymlinkNotAllowed {
		t.Errorf("Sanitize reclassified an already-typed error: %v", got.Kind)
	}
}
