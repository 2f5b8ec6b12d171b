// Package psdwatch provides a public Go API for flattening layered PSD/PSB
// documents and for watching them for changes.
//
// Basic usage:
//
//	res, err := psdwatch.Convert(ctx, "cover.psd")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("cover.png", res.Data, 0o644)
//
// Writing next to the source, as the CLI does:
//
//	out, err := psdwatch.Export(ctx, "cover.psd",
//	    psdwatch.WithFormat("jpg"),
//	    psdwatch.WithQuality(85),
//	)
package psdwatch

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/psdwatch/internal/config"
	"github.com/hupe1980/psdwatch/internal/convert"
	"github.com/hupe1980/psdwatch/internal/dispatch"
	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
	"github.com/hupe1980/psdwatch/internal/target"
)

// Errors callers can match with errors.Is.
var (
	ErrDecode        = convert.ErrDecode
	ErrEncode        = convert.ErrEncode
	ErrIO            = convert.ErrIO
	ErrInvalidTarget = target.ErrInvalidTarget
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures Convert, Export and Watch.
type Option func(*options)

type options struct {
	format     string
	quality    int
	debounce   time.Duration
	workers    int
	sourceExts []string
	logger     *slog.Logger
	out        io.Writer
}

func defaultOptions() *options {
	return &options{
		format:   output.FormatPNG,
		quality:  output.DefaultQuality,
		debounce: config.DefaultDebounce,
		logger:   discardLogger(),
		out:      io.Discard,
	}
}

// WithFormat selects the output format (png, jpg, jpeg, webp).
func WithFormat(name string) Option { return func(o *options) { o.format = name } }

// WithQuality sets the encoder quality for lossy formats, 1-100.
func WithQuality(q int) Option { return func(o *options) { o.quality = q } }

// WithDebounce sets the quiet window used by Watch.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithWorkers bounds concurrent conversions in Watch.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

// WithSourceExtensions overrides the extensions Watch treats as sources.
func WithSourceExtensions(exts ...string) Option {
	return func(o *options) { o.sourceExts = exts }
}

// WithLogger sets a structured logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithStatusOutput receives the per-file status lines Watch prints.
func WithStatusOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

// Result holds a flattened document.
type Result struct {
	// Image is the composited raster.
	Image image.Image

	// Data is Image encoded in Format.
	Data []byte

	// Format is the canonical output format name.
	Format string

	// Ext is the file extension for Format, without a dot.
	Ext string
}

// Convert flattens the document at src and encodes it in memory.
func Convert(ctx context.Context, src string, opts ...Option) (*Result, error) {
	if src == "" {
		return nil, errors.New("source path must not be empty")
	}

	o := apply(opts)

	r, err := newConverter(o).Render(ctx, src, o.format)
	if err != nil {
		return nil, err
	}

	return &Result{Image: r.Image, Data: r.Data, Format: r.Format.Name, Ext: r.Format.Ext}, nil
}

// Export flattens src and atomically writes it beside the source, returning
// the output path.
func Export(ctx context.Context, src string, opts ...Option) (string, error) {
	if src == "" {
		return "", errors.New("source path must not be empty")
	}

	o := apply(opts)
	conv := newConverter(o)

	format, err := conv.Registry().Format(o.format)
	if err != nil {
		return "", err
	}

	dst, err := pathmatch.OutputPath(src, format.Ext)
	if err != nil {
		return "", err
	}

	if err := conv.Convert(ctx, convert.Job{Source: src, Target: dst, Format: format.Name}); err != nil {
		return "", err
	}

	return dst, nil
}

// Watch converts sources under path as they are saved until ctx is done.
func Watch(ctx context.Context, path string, opts ...Option) error {
	o := apply(opts)

	return dispatch.Run(ctx, dispatch.Options{
		Path:       path,
		Format:     o.format,
		Quality:    o.quality,
		Debounce:   o.debounce,
		Workers:    o.workers,
		SourceExts: o.sourceExts,
		Logger:     o.logger,
		Out:        o.out,
	})
}

// Formats lists the supported output format names.
func Formats() []string {
	return output.DefaultRegistry().Formats()
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return o
}

func newConverter(o *options) *convert.Converter {
	return convert.New(convert.WithQuality(o.quality), convert.WithLogger(o.logger))
}
