// Package pathmatch decides which filesystem paths are layered-image sources
// and where their rendered output belongs.
package pathmatch

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned when a path has no usable stem to derive an
// output name from.
var ErrInvalidPath = errors.New("invalid path")

// DefaultExtensions are the source extensions matched when none are given.
var DefaultExtensions = []string{"psd", "psb"}

// Matcher matches source files by extension, case-insensitively.
type Matcher struct {
	exts map[string]struct{}
}

// New creates a Matcher for the given extensions. A leading dot is optional.
// With no extensions, DefaultExtensions are used.
func New(exts ...string) *Matcher {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	m := &Matcher{exts: make(map[string]struct{}, len(exts))}

	for _, e := range exts {
		e = normalizeExt(e)
		if e == "" {
			continue
		}

		m.exts[e] = struct{}{}
	}

	return m
}

// Extensions returns the matched extensions without leading dots.
func (m *Matcher) Extensions() []string {
	out := make([]string, 0, len(m.exts))
	for e := range m.exts {
		out = append(out, e)
	}

	return out
}

// IsSource reports whether path names a source file. Editor temporaries and
// hidden files never match.
func (m *Matcher) IsSource(path string) bool {
	name := filepath.Base(path)
	if IsEditorTemp(name) {
		return false
	}

	ext := normalizeExt(filepath.Ext(name))
	if ext == "" {
		return false
	}

	_, ok := m.exts[ext]

	return ok
}

// Walk calls fn for every source file below root in lexical order,
// skipping hidden directories. Unreadable entries below root are skipped;
// an unreadable root is returned as an error.
func (m *Matcher) Walk(root string, fn func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() && m.IsSource(path) {
			fn(path)
		}

		return nil
	})
}

// OutputPath replaces the extension of path with ext, keeping the directory
// and base name.
func OutputPath(path, ext string) (string, error) {
	ext = normalizeExt(ext)
	if ext == "" {
		return "", fmt.Errorf("%w: empty output extension", ErrInvalidPath)
	}

	if path == "" || strings.HasSuffix(path, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if stem == "" || stem == "." || stem == ".." {
		return "", fmt.Errorf("%w: %q has no file stem", ErrInvalidPath, path)
	}

	return filepath.Join(filepath.Dir(path), stem+"."+ext), nil
}

// IsEditorTemp reports whether a base name looks like an editor temporary
// or hidden file.
func IsEditorTemp(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#")
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
