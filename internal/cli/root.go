// Package cli implements the cobra command tree for psdwatch.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/psdwatch/internal/config"
	"github.com/hupe1980/psdwatch/internal/dispatch"
	"github.com/hupe1980/psdwatch/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	return exitCode(cmd.ErrOrStderr(), cmd.Execute())
}

// exitCode reports err on w and maps it to a process exit code.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		once    bool
	)

	cmd := &cobra.Command{
		Use:   "psdwatch <path>",
		Short: "Export layered PSD/PSB files to flat images as they are saved",
		Long: `psdwatch watches a Photoshop document or a directory of them and
writes a flattened image next to every source each time it is saved.

Rapid successive saves are debounced into a single conversion, and every
output is replaced atomically so viewers never see a half-written file.

Use --once to convert the current contents and exit instead of watching.`,
		Example: `  # Watch a folder, exporting PNGs beside each PSD
  psdwatch ./artwork

  # Convert everything once to JPEG and write a summary
  psdwatch ./artwork --once -f jpg --report summary.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args[0], once)
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .psdwatch.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	cmd.Flags().BoolVar(&once, "once", false, "convert the current contents and exit")
	registerConversionFlags(cmd)

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newCompletionCommand(),
	)

	return cmd
}

func runRoot(cmd *cobra.Command, path string, once bool) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	err := dispatch.Run(ctx, dispatch.Options{
		Path:       path,
		Once:       once,
		Format:     cfg.Format,
		Quality:    cfg.Quality,
		Debounce:   cfg.Debounce,
		Workers:    cfg.Workers,
		Report:     cfg.Report,
		SourceExts: cfg.SourceExts,
		Logger:     logging.Component(ctx, "psdwatch"),
		Out:        cmd.ErrOrStderr(),
		NoColor:    cfg.NoColor,
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatch.ErrInvalidOptions):
		return &ExitError{Code: 2, Err: err}
	default:
		return &ExitError{Code: 1, Err: err}
	}
}
