package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chai2010/webp"
)

// Built-in format names.
const (
	FormatPNG  = "png"
	FormatJPG  = "jpg"
	FormatWebP = "webp"
)

// DefaultQuality is used by lossy encoders when no quality is configured.
const DefaultQuality = 90

// EncodeFunc writes img to w. quality is in [1, 100] and only meaningful for
// lossy formats.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// Format describes a raster output format.
type Format struct {
	// Name is the identifier used on the command line.
	Name string

	// Ext is the file extension without a leading dot.
	Ext string

	// Alpha reports whether the format stores transparency. Images for
	// formats without alpha are flattened over an opaque background.
	Alpha bool

	// Lossy reports whether quality affects the encoded result.
	Lossy bool

	Encode EncodeFunc
}

// Registry maps format names to Formats.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
	aliases map[string]string
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]Format),
		aliases: make(map[string]string),
	}
}

// Register adds f under f.Name and any aliases. Existing entries for the same
// name are overwritten.
func (r *Registry) Register(f Format, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(f.Name)
	r.formats[name] = f

	for _, a := range aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Format returns the format registered under name, or an error listing the
// available formats.
func (r *Registry) Format(name string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimPrefix(name, "."))
	if target, ok := r.aliases[key]; ok {
		key = target
	}

	f, ok := r.formats[key]
	if !ok {
		return Format{}, fmt.Errorf("unknown output format %q (available: %s)", name, r.availableLocked())
	}

	return f, nil
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.availableLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *Registry) availableLocked() string {
	names := r.namesLocked()
	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, ", ")
}

// Encode encodes img in the named format into memory.
func (r *Registry) Encode(name string, img image.Image, quality int) ([]byte, error) {
	f, err := r.Format(name)
	if err != nil {
		return nil, err
	}

	return EncodeBytes(f, img, quality)
}

// EncodeBytes encodes img with f into memory.
func EncodeBytes(f Format, img image.Image, quality int) ([]byte, error) {
	if f.Encode == nil {
		return nil, fmt.Errorf("format %q has no encoder", f.Name)
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := f.Encode(&buf, img, quality); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Name, err)
	}

	return buf.Bytes(), nil
}

// DefaultRegistry returns a registry pre-populated with the built-in
// formats: png, jpg (alias jpeg), webp.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Format{
		Name:  FormatPNG,
		Ext:   "png",
		Alpha: true,
		Encode: func(w io.Writer, img image.Image, _ int) error {
			return png.Encode(w, img)
		},
	})

	r.Register(Format{
		Name:  FormatJPG,
		Ext:   "jpg",
		Lossy: true,
		Encode: func(w io.Writer, img image.Image, quality int) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		},
	}, "jpeg")

	r.Register(Format{
		Name:  FormatWebP,
		Ext:   "webp",
		Alpha: true,
		Lossy: true,
		Encode: func(w io.Writer, img image.Image, quality int) error {
			return webp.Encode(w, img, &webp.Options{Quality: float32(quality), Exact: true})
		},
	})

	return r
}
