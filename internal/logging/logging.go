// Package logging builds the psdwatch [log/slog] logger from configuration
// and carries it through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/psdwatch/internal/config"
)

type ctxKey struct{}

// TimeLayout matches the clock used on per-file status lines.
const TimeLayout = "15:04:05.000"

// Setup creates a logger for cfg writing to stderr and installs it as the
// process-wide default.
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter is Setup with an explicit destination, for tests.
func SetupWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.EffectiveLogLevel())}

	var handler slog.Handler

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default: // text
		opts.ReplaceAttr = shortTime
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// shortTime drops the date from text-mode timestamps; a watcher session is
// read in a terminal next to status lines that carry only the clock.
func shortTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(TimeLayout))
	}

	return a
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns the context logger tagged with a component name.
func Component(ctx context.Context, name string) *slog.Logger {
	return FromContext(ctx).With(slog.String("component", name))
}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from ctx, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}
