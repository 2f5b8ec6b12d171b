package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/psdwatch/internal/config"
	"github.com/hupe1980/psdwatch/internal/convert"
	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
	"github.com/hupe1980/psdwatch/internal/status"
	"github.com/hupe1980/psdwatch/internal/target"
)

// ErrRootGone is returned when the watch root disappears or becomes
// inaccessible while watching.
var ErrRootGone = errors.New("watch root is no longer accessible")

// Options configures the watch behaviour.
type Options struct {
	// Target is the resolved watch root.
	Target target.Target

	// Format is the output format every source is rendered to.
	Format output.Format

	// Debounce is the quiet period before a path is considered settled.
	// Non-positive values fall back to config.DefaultDebounce.
	Debounce time.Duration

	// Workers bounds concurrent conversions. Defaults to GOMAXPROCS.
	Workers int

	// Matcher selects source files. Defaults to pathmatch.New().
	Matcher *pathmatch.Matcher

	// Converter performs the conversions.
	Converter convert.Runner

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status lines.
	Out io.Writer

	// NoColor disables styling of status lines.
	NoColor bool
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: config.DefaultDebounce,
		Matcher:  pathmatch.New(),
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run subscribes to the target and converts sources as they settle. It
// blocks until the context is cancelled, a SIGINT/SIGTERM arrives, or the
// watch root is lost.
func Run(ctx context.Context, opts Options) error {
	if opts.Converter == nil {
		return errors.New("watch: converter is required")
	}

	if opts.Matcher == nil {
		opts.Matcher = pathmatch.New()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	root := opts.Target.Dir()

	if opts.Target.Kind == target.Directory {
		err = addRecursive(watcher, root)
	} else {
		// Watch the parent so rename-over saves keep being observed.
		err = watcher.Add(root)
	}

	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	// Trap SIGINT / SIGTERM for shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printerOpts := []status.Option{status.WithTimestamps()}
	if opts.NoColor {
		printerOpts = append(printerOpts, status.WithoutColor())
	}

	printer := status.New(opts.Out, printerOpts...)
	printer.Printf("watching %s %s (format=%s, debounce=%s)",
		opts.Target.Kind, opts.Target.Path, opts.Format.Name, opts.Debounce)

	sched := NewScheduler(opts.Workers, func(runCtx context.Context, path string) {
		convertOne(runCtx, opts, printer, path)
	})
	defer sched.Close()

	debouncer := NewDebouncer(opts.Debounce, func(s Settled) {
		info, statErr := os.Stat(s.Path)
		if statErr != nil || info.IsDir() {
			opts.Logger.Debug("settled path is not a file, skipping", slog.String("path", s.Path))
			return
		}

		opts.Logger.Debug("path settled",
			slog.String("path", s.Path),
			slog.Int("events", s.Events),
			slog.Duration("burst", s.LastSeen.Sub(s.FirstSeen)),
		)

		sched.Submit(sigCtx, s.Path)
	})
	defer debouncer.Stop()

	l := &loop{opts: opts, root: root, watcher: watcher, debouncer: debouncer}

	for {
		select {
		case <-sigCtx.Done():
			printer.Printf("shutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if err := l.handle(event); err != nil {
				return err
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))

			if _, statErr := os.Stat(root); statErr != nil {
				return fmt.Errorf("%w: %v", ErrRootGone, statErr)
			}
		}
	}
}

// loop holds the state the event handler needs.
type loop struct {
	opts      Options
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
}

func (l *loop) handle(event fsnotify.Event) error {
	kind := kindOf(event.Op)
	if kind == 0 {
		return nil
	}

	name := filepath.Clean(event.Name)

	if name == l.root && kind.Gone() {
		return fmt.Errorf("%w: %s was %s", ErrRootGone, l.root, kind)
	}

	if l.opts.Target.Kind == target.SingleFile {
		if name != l.opts.Target.Path {
			return nil
		}
	} else if kind == Created {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			l.addDir(name)
			return nil
		}
	}

	if !l.opts.Matcher.IsSource(name) {
		return nil
	}

	l.debouncer.Observe(Event{Path: name, Kind: kind, Timestamp: time.Now()})

	return nil
}

// addDir subscribes to a directory that appeared after startup and feeds
// sources already inside it, which may have been written before the
// subscription existed.
func (l *loop) addDir(dir string) {
	if strings.HasPrefix(filepath.Base(dir), ".") {
		return
	}

	if err := addRecursive(l.watcher, dir); err != nil {
		l.opts.Logger.Warn("watching new directory failed", slog.String("path", dir), slog.String("error", err.Error()))
	}

	err := l.opts.Matcher.Walk(dir, func(path string) {
		l.debouncer.Observe(Event{Path: path, Kind: Created, Timestamp: time.Now()})
	})
	if err != nil {
		l.opts.Logger.Warn("listing new directory failed", slog.String("path", dir), slog.String("error", err.Error()))
	}
}

// convertOne renders a settled source and reports the result. A source
// removed while its conversion was queued is skipped without a report.
func convertOne(ctx context.Context, opts Options, printer *status.Printer, src string) {
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		opts.Logger.Debug("source is gone, skipping", slog.String("path", src))
		return
	}

	dst, err := pathmatch.OutputPath(src, opts.Format.Ext)
	if err != nil {
		report(opts, printer, convert.Result{Source: src, Err: err})
		return
	}

	res := opts.Converter.Run(ctx, convert.Job{Source: src, Target: dst, Format: opts.Format.Name})
	if errors.Is(res.Err, context.Canceled) {
		return
	}

	report(opts, printer, res)
}

func report(opts Options, printer *status.Printer, res convert.Result) {
	printer.Result(res)

	if !res.OK() {
		opts.Logger.Debug("conversion failed", slog.String("source", res.Source), slog.String("error", res.Err.Error()))
	}
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}
