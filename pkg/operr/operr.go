// Package operr defines the typed errors returned by every gateway operation.
//
// Each error carries a Kind that callers can branch on: policy violations are
// deterministic and non-retryable (PathNotAllowed, ExtensionNotAllowed, ...),
// RateLimited means "retry later", and IoFailure wraps an underlying OS
// failure with its category preserved but its raw text sanitized.
package operr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation error.
//
// The set is fixed: a caller must be able to distinguish every policy rule
// that can fire, so violations are never collapsed into a generic "denied".
type Kind string

const (
	// KindInvalidPath means the raw path could not be resolved to a
	// canonical form (no existing ancestor, empty path, NUL bytes, ...).
	KindInvalidPath Kind = "InvalidPath"

	// KindPathNotAllowed means the resolved path is under a denied prefix
	// or outside every allowed prefix.
	KindPathNotAllowed Kind = "PathNotAllowed"

	// KindExtensionNotAllowed means the file extension failed the
	// allow/deny extension rules.
	KindExtensionNotAllowed Kind = "ExtensionNotAllowed"

	// KindSizeLimitExceeded means a known byte count exceeds the policy's
	// max_file_size ceiling.
	KindSizeLimitExceeded Kind = "SizeLimitExceeded"

	// KindSymlinkNotAllowed means a symlink was found on the path while
	// the policy forbids symlinks.
	KindSymlinkNotAllowed Kind = "SymlinkNotAllowed"

	// KindHiddenFileNotAllowed means a hidden component was found while
	// the policy forbids hidden files.
	KindHiddenFileNotAllowed Kind = "HiddenFileNotAllowed"

	// KindReadOnlyViolation means a write-class operation was attempted
	// while the policy is in read-only mode.
	KindReadOnlyViolation Kind = "ReadOnlyViolation"

	// KindNotFound means the target does not exist.
	KindNotFound Kind = "NotFound"

	// KindNotAFile means the operation requires a regular file but the
	// target is something else.
	KindNotAFile Kind = "NotAFile"

	// KindNotADirectory means the operation requires a directory but the
	// target is something else.
	KindNotADirectory Kind = "NotADirectory"

	// KindRateLimited means the request was rejected by admission control
	// before any filesystem interaction.
	KindRateLimited Kind = "RateLimited"

	// KindInvalidArguments means a request argument is missing or has the
	// wrong type. The message names the offending field.
	KindInvalidArguments Kind = "InvalidArguments"

	// KindUnknownOperation means the operation selector is not in the
	// supported set.
	KindUnknownOperation Kind = "UnknownOperation"

	// KindIoFailure wraps an OS-level failure. The Category field holds
	// the preserved OS error category.
	KindIoFailure Kind = "IoFailure"
)

// Error is the concrete error type for all gateway operations.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is a caller-safe description. For IoFailure it never
	// contains raw OS error text or paths beyond what the caller supplied.
	Message string

	// Category is only set for KindIoFailure and names the OS error
	// category (e.g. "permission", "exists", "not-empty").
	Category string

	// err is the wrapped cause, kept for errors.Is/As but excluded from
	// the caller-visible message.
	err error
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records err as its cause. The cause is
// reachable through errors.Unwrap but never rendered in Message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindIoFailure && e.Category != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an *Error with the same Kind. This makes
// errors.Is(err, operr.New(operr.KindNotFound, "")) work as a kind test.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from an error chain. Errors that are not
// operation errors report KindIoFailure, the catch-all for unexpected
// failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIoFailure
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
