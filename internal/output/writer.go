package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Writer is the interface for output destinations.
type Writer interface {
	// Write replaces the destination's content with data.
	Write(data []byte) error
}

// AtomicWriter writes a file by creating a temporary sibling and renaming
// it over the destination. A failed write leaves the destination untouched.
type AtomicWriter struct {
	path   string
	perm   os.FileMode
	logger *slog.Logger
}

var _ Writer = (*AtomicWriter)(nil)

// AtomicWriterOption configures an AtomicWriter.
type AtomicWriterOption func(*AtomicWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) AtomicWriterOption {
	return func(aw *AtomicWriter) {
		aw.perm = perm
	}
}

// WithLogger sets a logger for the AtomicWriter.
func WithLogger(logger *slog.Logger) AtomicWriterOption {
	return func(aw *AtomicWriter) {
		aw.logger = logger
	}
}

// NewAtomicWriter creates a writer for the specified file path.
func NewAtomicWriter(path string, opts ...AtomicWriterOption) *AtomicWriter {
	aw := &AtomicWriter{
		path:   path,
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(aw)
	}

	return aw
}

// Write stores data in a temporary file in the destination directory, syncs
// it, and renames it over the destination.
func (aw *AtomicWriter) Write(data []byte) (err error) {
	if err = checkWritable(aw.path); err != nil {
		return err
	}

	dir := filepath.Dir(aw.path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(aw.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}

	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}

	if err = os.Chmod(tmpName, aw.perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}

	if _, statErr := os.Stat(aw.path); statErr == nil {
		aw.logger.Debug("replacing existing file", slog.String("path", aw.path))
	}

	if err = os.Rename(tmpName, aw.path); err != nil {
		return fmt.Errorf("renaming into %s: %w", aw.path, err)
	}

	return nil
}

// checkWritable fails when path exists but may not be written, so a
// write-protected output is reported instead of silently replaced.
func checkWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("output %s is not writable: %w", path, err)
	}

	return f.Close()
}

// Path returns the output file path.
func (aw *AtomicWriter) Path() string {
	return aw.path
}
