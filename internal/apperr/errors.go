// Package apperr defines the closed set of error kinds surfaced by the
// vault, search, and version-control services. Callers discriminate with
// errors.Is; messages never expose anything beyond the vault-relative
// path the caller supplied.
package apperr

import "errors"

var (
	// ErrInvalidPath is returned for traversal or vault-escape attempts.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotFound is returned when the target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when the destination is occupied.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotAFile is returned when a file operation hits a directory.
	ErrNotAFile = errors.New("not a file")
	// ErrNotADirectory is returned when a directory operation hits a file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrNotEmpty is returned when deleting a non-empty directory
	// without recursive=true.
	ErrNotEmpty = errors.New("directory not empty")
	// ErrCircular is returned when moving or copying a directory into
	// its own descendant.
	ErrCircular = errors.New("circular operation")
	// ErrWrongExtension is returned when a note operation targets a
	// non-markdown file.
	ErrWrongExtension = errors.New("not a markdown file")
	// ErrBinary is returned when an operation targets a binary file.
	ErrBinary = errors.New("binary file not supported")
	// ErrToolUnavailable is returned when the external git tool is
	// missing or cannot be initialized.
	ErrToolUnavailable = errors.New("version control unavailable")
	// ErrNotFoundInCommit is returned when a path is absent at the
	// requested revision.
	ErrNotFoundInCommit = errors.New("not found in commit")
	// ErrTimeout is returned when an external tool invocation exceeds
	// its deadline.
	ErrTimeout = errors.New("operation timed out")
)
