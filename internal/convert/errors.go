package convert

import (
	"errors"
	"fmt"
)

// Failure kinds. Use errors.Is against an *Error to classify it.
var (
	// ErrDecode marks a source that could not be parsed. The file may be
	// malformed or still being written.
	ErrDecode = errors.New("decode failed")

	// ErrEncode marks a raster that could not be encoded.
	ErrEncode = errors.New("encode failed")

	// ErrIO marks a filesystem failure reading the source or writing the output.
	ErrIO = errors.New("i/o failed")
)

// Error is a per-file conversion failure.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

func newError(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
