// Package target resolves the user-supplied path into the watch root the
// rest of the program works against.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidTarget is returned when the supplied path cannot be watched.
var ErrInvalidTarget = errors.New("invalid target")

// Kind distinguishes a lone file from a directory tree.
type Kind int

const (
	// SingleFile targets exactly one source file.
	SingleFile Kind = iota + 1
	// Directory targets every source file below a directory, recursively.
	Directory
)

func (k Kind) String() string {
	switch k {
	case SingleFile:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

// Target is the resolved watch root. Path is always absolute.
type Target struct {
	Path string
	Kind Kind
}

// Dir returns the directory that holds the target.
func (t Target) Dir() string {
	if t.Kind == Directory {
		return t.Path
	}

	return filepath.Dir(t.Path)
}

// Resolve stats path and picks the target kind from its file type.
func Resolve(path string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("%w: path must not be empty", ErrInvalidTarget)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, fmt.Errorf("%w: resolving %q: %v", ErrInvalidTarget, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Target{}, fmt.Errorf("%w: %s does not exist", ErrInvalidTarget, abs)
		}

		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	switch {
	case info.IsDir():
		return Target{Path: abs, Kind: Directory}, nil
	case info.Mode().IsRegular():
		return Target{Path: abs, Kind: SingleFile}, nil
	default:
		return Target{}, fmt.Errorf("%w: %s is neither a file nor a directory", ErrInvalidTarget, abs)
	}
}
