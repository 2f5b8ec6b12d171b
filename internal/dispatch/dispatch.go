// Package dispatch resolves a target and hands it to the one-shot batch
// runner or the live watcher.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/psdwatch/internal/batch"
	"github.com/hupe1980/psdwatch/internal/convert"
	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
	"github.com/hupe1980/psdwatch/internal/status"
	"github.com/hupe1980/psdwatch/internal/target"
	"github.com/hupe1980/psdwatch/internal/watch"
)

// ErrInvalidOptions is returned for options that cannot be used at all,
// such as an unknown output format.
var ErrInvalidOptions = errors.New("invalid options")

// Options configures a dispatch run.
type Options struct {
	// Path is the file or directory to convert.
	Path string

	// Once converts the current contents and exits instead of watching.
	Once bool

	// Format names the output format.
	Format string

	// Quality is passed to lossy encoders.
	Quality int

	// Debounce is the watcher's quiet window.
	Debounce time.Duration

	// Workers bounds concurrent conversions. Zero means GOMAXPROCS.
	Workers int

	// Report, when set, receives the one-shot YAML summary.
	Report string

	// SourceExts selects source files. Empty means pathmatch.DefaultExtensions.
	SourceExts []string

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out receives per-file status lines and the summary.
	Out io.Writer

	// NoColor disables styling of status lines.
	NoColor bool
}

// Run resolves opts.Path and converts once or watches until ctx ends. Per-file
// conversion failures never make Run fail.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	matcher := pathmatch.New(opts.SourceExts...)

	tg, err := target.Resolve(opts.Path)
	if err != nil {
		return err
	}

	if tg.Kind == target.SingleFile && !matcher.IsSource(tg.Path) {
		return fmt.Errorf("%w: %s is not a source file (expected one of: %s)",
			target.ErrInvalidTarget, tg.Path, strings.Join(matcher.Extensions(), ", "))
	}

	registry := output.DefaultRegistry()

	format, err := registry.Format(opts.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	conv := convert.New(
		convert.WithQuality(opts.Quality),
		convert.WithRegistry(registry),
		convert.WithLogger(opts.Logger),
	)

	opts.Logger.Debug("dispatching",
		slog.String("target", tg.Path),
		slog.String("kind", tg.Kind.String()),
		slog.Bool("once", opts.Once),
		slog.String("format", format.Name),
	)

	if opts.Once {
		return runOnce(ctx, opts, tg, format, matcher, conv)
	}

	return watch.Run(ctx, watch.Options{
		Target:    tg,
		Format:    format,
		Debounce:  opts.Debounce,
		Workers:   opts.Workers,
		Matcher:   matcher,
		Converter: conv,
		Logger:    opts.Logger,
		Out:       opts.Out,
		NoColor:   opts.NoColor,
	})
}

func runOnce(
	ctx context.Context,
	opts Options,
	tg target.Target,
	format output.Format,
	matcher *pathmatch.Matcher,
	conv convert.Runner,
) error {
	var printerOpts []status.Option
	if opts.NoColor {
		printerOpts = append(printerOpts, status.WithoutColor())
	}

	printer := status.New(opts.Out, printerOpts...)

	runner := batch.New(
		batch.WithConverter(conv),
		batch.WithMatcher(matcher),
		batch.WithWorkers(opts.Workers),
		batch.WithLogger(opts.Logger),
		batch.WithStatus(printer),
	)

	start := time.Now()

	results, err := runner.RunOnce(ctx, tg, format)
	if err != nil {
		return err
	}

	summary := batch.Summarize(results)
	printer.Printf("%s in %s", summary, time.Since(start).Round(time.Millisecond))

	opts.Logger.Info("one-shot conversion finished",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)

	if opts.Report != "" {
		if err := batch.WriteReport(opts.Report, summary); err != nil {
			return err
		}

		opts.Logger.Debug("report written", slog.String("path", opts.Report))
	}

	return nil
}
