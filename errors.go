package fileutils

import (
	"errors"
	"fmt"
)

// Common filesystem errors
var (
	ErrNotExist     = errors.New("file does not exist")
	ErrExist        = errors.New("file already exists")
	ErrPermission   = errors.New("permission denied")
	ErrClosed       = errors.New("stream already closed")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrNotEmpty     = errors.New("directory not empty")
	ErrNotLink      = errors.New("not a symbolic link")
	ErrBrokenLink   = errors.New("link target unresolvable")
	ErrNotSupported = errors.New("operation not supported")
	ErrNotAllowed   = errors.New("operation not allowed")
	ErrTraversal    = errors.New("name escapes parent")
	ErrDisconnected = errors.New("backend disconnected")
	ErrNoMountPoint = errors.New("no mount point found for path")
)

// PathError records an error and the operation and node path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsBrokenLink reports whether an error indicates that a link's target
// chain could not be resolved
func IsBrokenLink(err error) bool {
	return errors.Is(err, ErrBrokenLink)
}

// IsNotSupported reports whether an error indicates that the backend does
// not implement the attempted operation
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsDisconnected reports whether an error is disconnection-class: the
// backend lost connectivity and the operation may succeed after the backend
// is rebuilt. This is the only error kind the reconnecting proxy retries.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDisconnected)
}
