package operr

import (
	"errors"
	"io/fs"
	"syscall"
)

// Sanitize converts an OS-level error into a caller-safe operation error.
//
// The OS error category is preserved so callers can react sensibly, but the
// raw error text is dropped: OS messages embed absolute paths and internal
// details the caller did not supply. The target argument is the path as the
// caller provided it, which is safe to echo back.
//
// Not-found is special-cased into its own kind because almost every
// operation treats it differently from a true I/O failure.
func Sanitize(target string, err error) *Error {
	if err == nil {
		return nil
	}

	// Already classified errors pass through untouched.
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, fs.ErrNotExist) {
		return Wrap(KindNotFound, target, err)
	}

	out := Wrap(KindIoFailure, "operation failed on "+target, err)
	out.Category = category(err)
	return out
}

// category maps an OS error to a stable category name.
//
// Specific errnos are tested before the generic fs sentinels: Errno.Is
// folds several errnos into those sentinels (ENOTEMPTY matches
// fs.ErrExist, for one), and the finer category must win.
func category(err error) string {
	switch {
	case errors.Is(err, syscall.ENOTEMPTY):
		return "not-empty"
	case errors.Is(err, syscall.EISDIR):
		return "is-directory"
	case errors.Is(err, syscall.ENOTDIR):
		return "not-directory"
	case errors.Is(err, syscall.ELOOP):
		return "symlink-loop"
	case errors.Is(err, syscall.ENOSPC):
		return "no-space"
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return "too-many-open-files"
	case errors.Is(err, syscall.EINVAL):
		return "invalid"
	case errors.Is(err, syscall.EBUSY):
		return "busy"
	case errors.Is(err, fs.ErrPermission):
		return "permission"
	case errors.Is(err, fs.ErrExist):
		return "exists"
	default:
		return "unknown"
	}
}
