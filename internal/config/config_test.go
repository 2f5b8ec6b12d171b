package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestRootCmd creates a cobra.Command with the same flags as the real
// root command so that Load can bind them during tests.
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{}
	pf := cmd.PersistentFlags()
	pf.String("config", "", "")
	pf.String("log-level", "info", "")
	pf.String("log-format", "text", "")
	pf.Bool("no-color", false, "")
	pf.BoolP("quiet", "q", false, "")

	f := cmd.Flags()
	f.StringP("format", "f", "png", "")
	f.Int("quality", 90, "")
	f.Duration("debounce", DefaultDebounce, "")
	f.Int("workers", 0, "")
	f.StringSlice("source-ext", []string{"psd", "psb"}, "")
	f.String("report", "", "")

	return cmd
}

// writeTempConfig writes a YAML string to a temporary file and returns the path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

// ---------------------------------------------------------------------------
// Default
// ---------------------------------------------------------------------------

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.False(t, cfg.NoColor)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "png", cfg.Format)
	assert.Equal(t, 90, cfg.Quality)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Zero(t, cfg.Workers)
	assert.Equal(t, []string{"psd", "psb"}, cfg.SourceExts)
	assert.NoError(t, cfg.Validate())
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_ValidValues(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		assert.NoError(t, cfg.Validate(), "level=%s", lvl)
	}

	for _, fmt := range []string{"text", "json"} {
		cfg := Default()
		cfg.LogFormat = fmt
		assert.NoError(t, cfg.Validate(), "format=%s", fmt)
	}

	for _, f := range []string{"png", "jpg", "jpeg", "webp", "PNG"} {
		cfg := Default()
		cfg.Format = f
		assert.NoError(t, cfg.Validate(), "image format=%s", f)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"image format", func(c *Config) { c.Format = "tiff" }, "invalid format"},
		{"quality low", func(c *Config) { c.Quality = 0 }, "invalid quality"},
		{"quality high", func(c *Config) { c.Quality = 101 }, "invalid quality"},
		{"debounce", func(c *Config) { c.Debounce = 0 }, "invalid debounce"},
		{"workers", func(c *Config) { c.Workers = -1 }, "invalid workers"},
		{"no extensions", func(c *Config) { c.SourceExts = nil }, "invalid source extensions"},
		{"blank extensions", func(c *Config) { c.SourceExts = []string{" ", "."} }, "invalid source extensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// EffectiveLogLevel
// ---------------------------------------------------------------------------

func TestEffectiveLogLevel_Normal(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
}

func TestEffectiveLogLevel_QuietOverride(t *testing.T) {
	cfg := &Config{LogLevel: "debug", Quiet: true}
	assert.Equal(t, "error", cfg.EffectiveLogLevel())
}

// ---------------------------------------------------------------------------
// Load: defaults only
// ---------------------------------------------------------------------------

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "png", cfg.Format)
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
	assert.Equal(t, []string{"psd", "psb"}, cfg.SourceExts)
}

// ---------------------------------------------------------------------------
// Load: environment variables
// ---------------------------------------------------------------------------

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("PSDWATCH_LOG_LEVEL", "debug")
	t.Setenv("PSDWATCH_FORMAT", "webp")
	t.Setenv("PSDWATCH_DEBOUNCE", "750ms")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "webp", cfg.Format)
	assert.Equal(t, 750*time.Millisecond, cfg.Debounce)
}

func TestLoad_EnvBooleans(t *testing.T) {
	t.Setenv("PSDWATCH_NO_COLOR", "true")
	t.Setenv("PSDWATCH_QUIET", "true")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Quiet)
}

// ---------------------------------------------------------------------------
// Load: config file
// ---------------------------------------------------------------------------

func TestLoad_ConfigFile(t *testing.T) {
	p := writeTempConfig(t, `log-level: warn
log-format: json
format: jpg
quality: 75
debounce: 1s
workers: 3
source-ext: [psd]
report: out/summary.yaml
`)

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "jpg", cfg.Format)
	assert.Equal(t, 75, cfg.Quality)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"psd"}, cfg.SourceExts)
	assert.Equal(t, "out/summary.yaml", cfg.Report)
	assert.Equal(t, p, cfg.ConfigFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(nil, "/tmp/nonexistent-psdwatch-cfg-12345.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	p := writeTempConfig(t, ": invalid yaml :")

	_, err := Load(nil, p)
	require.Error(t, err)
}

func TestLoad_MissingAutoDiscoverFile(t *testing.T) {
	// When no explicit file is given and auto-discover finds nothing, Load
	// should succeed with defaults.
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.ConfigFile)
}

// ---------------------------------------------------------------------------
// Load: flag precedence
// ---------------------------------------------------------------------------

func TestLoad_FlagOverridesDefault(t *testing.T) {
	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "error"))
	require.NoError(t, cmd.Flags().Set("debounce", "2s"))
	require.NoError(t, cmd.Flags().Set("source-ext", "psb"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
	assert.Equal(t, []string{"psb"}, cfg.SourceExts)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PSDWATCH_FORMAT", "webp")

	cmd := newTestRootCmd()
	require.NoError(t, cmd.Flags().Set("format", "jpg"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "jpg", cfg.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PSDWATCH_LOG_LEVEL", "debug")
	p := writeTempConfig(t, "log-level: warn\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FileUsedWhenFlagUnset(t *testing.T) {
	p := writeTempConfig(t, "quality: 42\n")

	cfg, err := Load(newTestRootCmd(), p)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Quality)
}

func TestLoad_FlagOverridesAll(t *testing.T) {
	t.Setenv("PSDWATCH_LOG_LEVEL", "debug")
	p := writeTempConfig(t, "log-level: warn\n")

	cmd := newTestRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "error"))

	cfg, err := Load(cmd, p)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

// ---------------------------------------------------------------------------
// Load: validation on loaded values
// ---------------------------------------------------------------------------

func TestLoad_InvalidLogLevelFromEnv(t *testing.T) {
	t.Setenv("PSDWATCH_LOG_LEVEL", "verbose")

	_, err := Load(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoad_InvalidFormatFromFile(t *testing.T) {
	p := writeTempConfig(t, "format: bmp\n")

	_, err := Load(nil, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func TestContext_RoundTrip(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	ctx := NewContext(context.Background(), cfg)
	got := FromContext(ctx)
	assert.Equal(t, cfg, got)
}

func TestFromContext_FallbackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Equal(t, Default(), got)
}
