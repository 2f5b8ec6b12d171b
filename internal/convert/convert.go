// Package convert turns a layered-image source file into a flat raster
// written next to it.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/psdwatch/internal/layered"
	"github.com/hupe1980/psdwatch/internal/output"
)

// Job describes one conversion.
type Job struct {
	Source string
	Target string
	Format string
}

// Result is the outcome of one Job.
type Result struct {
	Source   string
	Target   string
	Err      error
	Duration time.Duration
}

// OK reports whether the conversion succeeded.
func (r Result) OK() bool { return r.Err == nil }

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s → ERROR: %v", r.Source, r.Err)
	}

	return fmt.Sprintf("%s → %s OK (%s)", r.Source, r.Target, r.Duration.Round(time.Millisecond))
}

// DecodeFunc parses a layered document.
type DecodeFunc func(r io.Reader) (*layered.Document, error)

// Runner converts jobs. *Converter implements it.
type Runner interface {
	Run(ctx context.Context, job Job) Result
}

// Converter decodes, flattens, encodes and writes.
type Converter struct {
	registry *output.Registry
	decode   DecodeFunc
	quality  int
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithQuality sets the quality used by lossy formats.
func WithQuality(q int) Option { return func(c *Converter) { c.quality = q } }

// WithRegistry replaces the output format registry.
func WithRegistry(r *output.Registry) Option { return func(c *Converter) { c.registry = r } }

// WithDecoder replaces the document decoder.
func WithDecoder(fn DecodeFunc) Option { return func(c *Converter) { c.decode = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Converter) { c.logger = l } }

// New creates a Converter with the default registry and PSD decoder.
func New(opts ...Option) *Converter {
	c := &Converter{
		registry: output.DefaultRegistry(),
		decode:   layered.Decode,
		quality:  output.DefaultQuality,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Registry returns the format registry used by c.
func (c *Converter) Registry() *output.Registry { return c.registry }

// Run converts job and reports the outcome.
func (c *Converter) Run(ctx context.Context, job Job) Result {
	start := time.Now()
	err := c.Convert(ctx, job)

	return Result{
		Source:   job.Source,
		Target:   job.Target,
		Err:      err,
		Duration: time.Since(start),
	}
}

// Rendered is a flattened and encoded source held in memory.
type Rendered struct {
	Image  *image.NRGBA
	Data   []byte
	Format output.Format
}

// Render reads source, flattens it and encodes it in the named format
// without touching the filesystem beyond the read.
func (c *Converter) Render(ctx context.Context, source, formatName string) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := c.registry.Format(formatName)
	if err != nil {
		return nil, newError(ErrEncode, source, err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, newError(ErrIO, source, err)
	}

	doc, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrDecode, source, err)
	}

	var background color.Color = color.Transparent
	if !format.Alpha {
		background = color.White
	}

	img := layered.Flatten(doc, background)

	c.logger.Debug("flattened document",
		slog.String("source", source),
		slog.Int("layers", len(doc.Layers)),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)

	encoded, err := output.EncodeBytes(format, img, c.quality)
	if err != nil {
		return nil, newError(ErrEncode, source, err)
	}

	return &Rendered{Image: img, Data: encoded, Format: format}, nil
}

// Convert renders job.Source and writes job.Target. The target is only
// replaced once the whole image has been encoded.
func (c *Converter) Convert(ctx context.Context, job Job) error {
	r, err := c.Render(ctx, job.Source, job.Format)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	w := output.NewAtomicWriter(job.Target, output.WithLogger(c.logger))
	if err := w.Write(r.Data); err != nil {
		return newError(ErrIO, job.Target, fmt.Errorf("writing output: %w", err))
	}

	return nil
}
