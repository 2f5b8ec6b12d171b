package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for psdwatch. Completing --format offers
the output formats built into this binary.

  bash:        source <(psdwatch completion bash)
  zsh:         psdwatch completion zsh > "${fpath[1]}/_psdwatch"
  fish:        psdwatch completion fish > ~/.config/fish/completions/psdwatch.fish
  powershell:  psdwatch completion powershell | Out-String | Invoke-Expression`,
		// Completion scripts must be generated even with a broken config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         completionShells,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			root := cmd.Root()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
}
