// Package batch converts every source under a target once and summarises
// the outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/hupe1980/psdwatch/internal/convert"
	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
	"github.com/hupe1980/psdwatch/internal/status"
	"github.com/hupe1980/psdwatch/internal/target"
)

// Runner performs one-shot conversions over a bounded worker pool.
type Runner struct {
	converter convert.Runner
	matcher   *pathmatch.Matcher
	workers   int
	logger    *slog.Logger
	status    *status.Printer
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of concurrent conversions.
// Defaults to GOMAXPROCS if zero or negative.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithStatus sets the printer for per-file progress lines.
func WithStatus(p *status.Printer) Option { return func(r *Runner) { r.status = p } }

// WithMatcher sets the source matcher used during enumeration.
func WithMatcher(m *pathmatch.Matcher) Option { return func(r *Runner) { r.matcher = m } }

// WithConverter replaces the default converter.
func WithConverter(c convert.Runner) Option { return func(r *Runner) { r.converter = c } }

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		matcher: pathmatch.New(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}

	if r.status == nil {
		r.status = status.New(io.Discard)
	}

	if r.converter == nil {
		r.converter = convert.New(convert.WithLogger(r.logger))
	}

	return r
}

// Find enumerates the sources a target covers. A single-file target yields
// itself; a directory yields every matching file beneath it in traversal
// order.
func (r *Runner) Find(tg target.Target) ([]string, error) {
	if tg.Kind == target.SingleFile {
		return []string{tg.Path}, nil
	}

	var sources []string

	if err := r.matcher.Walk(tg.Path, func(path string) {
		sources = append(sources, path)
	}); err != nil {
		return nil, fmt.Errorf("enumerating %s: %w", tg.Path, err)
	}

	return sources, nil
}

// RunOnce converts every source the target covers and returns one result
// per source in traversal order. Per-file failures are recorded in the
// results; only enumeration failures are returned as an error.
func (r *Runner) RunOnce(ctx context.Context, tg target.Target, format output.Format) ([]convert.Result, error) {
	sources, err := r.Find(tg)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("batch conversion starting",
		slog.String("root", tg.Path),
		slog.Int("sources", len(sources)),
		slog.Int("workers", r.workers),
		slog.String("format", format.Name),
	)

	results := make([]convert.Result, len(sources))

	var wg sync.WaitGroup

	sem := make(chan struct{}, r.workers)

	for i, src := range sources {
		dst, err := pathmatch.OutputPath(src, format.Ext)
		if err != nil {
			results[i] = convert.Result{Source: src, Err: err}
			r.status.Result(results[i])

			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = convert.Result{Source: src, Target: dst, Err: ctx.Err()}
			continue
		}

		wg.Add(1)

		go func(idx int, job convert.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					results[idx] = convert.Result{
						Source: job.Source,
						Target: job.Target,
						Err:    fmt.Errorf("panic converting %s: %v", job.Source, p),
					}
					r.status.Result(results[idx])
				}
			}()

			results[idx] = r.converter.Run(ctx, job)
			r.status.Result(results[idx])
		}(i, convert.Job{Source: src, Target: dst, Format: format.Name})
	}

	wg.Wait()

	return results, nil
}
