// Package config provides configuration management for psdwatch.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PSDWATCH_ prefix)
//  3. Config file (.psdwatch.yaml)
//  4. Built-in defaults
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Config represents the global configuration for psdwatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables styled status output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Format is the output image format (png, jpg, webp).
	Format string `mapstructure:"format" json:"format"`

	// Quality is the encoder quality for lossy formats, 1-100.
	Quality int `mapstructure:"quality" json:"quality"`

	// Debounce is the quiet window before a changed file is converted.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`

	// Workers bounds concurrent conversions. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" json:"workers"`

	// SourceExts lists the file extensions treated as sources.
	SourceExts []string `mapstructure:"source-ext" json:"sourceExt"`

	// Report is an optional path for the one-shot YAML summary.
	Report string `mapstructure:"report" json:"report"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:   LogLevelInfo,
		LogFormat:  LogFormatText,
		Format:     output.FormatPNG,
		Quality:    output.DefaultQuality,
		Debounce:   DefaultDebounce,
		SourceExts: append([]string(nil), pathmatch.DefaultExtensions...),
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if _, err := output.DefaultRegistry().Format(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}

	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("invalid quality %d: must be between 1 and 100", c.Quality)
	}

	if c.Debounce <= 0 {
		return fmt.Errorf("invalid debounce %s: must be positive", c.Debounce)
	}

	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", c.Workers)
	}

	if len(c.SourceExts) == 0 || len(pathmatch.New(c.SourceExts...).Extensions()) == 0 {
		return fmt.Errorf("invalid source extensions: at least one is required")
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("format", d.Format)
	v.SetDefault("quality", d.Quality)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("workers", 0)
	v.SetDefault("source-ext", d.SourceExts)
	v.SetDefault("report", "")
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("PSDWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".psdwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "psdwatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found, which is fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
