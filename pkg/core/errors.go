package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure for callers that only need to branch on it.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindInvalidArgument
	KindPathTraversal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindPathTraversal:
		return "path-traversal"
	default:
		return "unknown"
	}
}

// IOError reports a failed open, read, write or mkdir on Path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// InvalidArgumentError reports a contract violation by the caller or the archive.
type InvalidArgumentError struct {
	Path   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Path, e.Reason)
}

// PathTraversalError reports an archive entry that resolves outside Dest.
// The whole archive must be treated as untrusted once this is returned.
type PathTraversalError struct {
	Entry string
	Dest  string
}

func (e *PathTraversalError) Error() string {
	if e.Dest == "" {
		return fmt.Sprintf("entry %q escapes the archive root", e.Entry)
	}
	return fmt.Sprintf("entry %q is outside of the target dir %s", e.Entry, e.Dest)
}

// KindOf walks the error chain and returns the kind of the first typed error.
func KindOf(err error) Kind {
	var (
		ioErr  *IOError
		argErr *InvalidArgumentError
		ptErr  *PathTraversalError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ptErr):
		return KindPathTraversal
	case errors.As(err, &argErr):
		return KindInvalidArgument
	case errors.As(err, &ioErr):
		return KindIO
	}
	return KindUnknown
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
