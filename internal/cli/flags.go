package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/psdwatch/internal/config"
	"github.com/hupe1980/psdwatch/internal/output"
	"github.com/hupe1980/psdwatch/internal/pathmatch"
)

// registerConversionFlags adds the output and scheduling flags. Their values
// are read back through config.Load so the config file and environment can
// supply them too.
func registerConversionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", output.FormatPNG, "output format: "+output.DefaultRegistry().AvailableFormats())
	f.Int("quality", output.DefaultQuality, "encoder quality for lossy formats (1-100)")
	f.Duration("debounce", config.DefaultDebounce, "quiet period before a changed file is converted")
	f.Int("workers", 0, "maximum concurrent conversions (default: number of CPUs)")
	f.StringSlice("source-ext", pathmatch.DefaultExtensions, "file extensions treated as sources")
	f.String("report", "", "write a YAML summary of a --once run to this file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return output.DefaultRegistry().Formats(), cobra.ShellCompDirectiveNoFileComp
	})
}
