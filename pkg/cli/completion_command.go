package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monoship/monoship/pkg/logger"
)

var completionLog = logger.New("cli:completion")

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion scripts for monoship commands",
		Long: `Generate shell completion scripts to enable tab completion for monoship
commands and flags.

Supported shells: bash, zsh, fish, powershell

Examples:
  # Generate completion script for bash
  monoship completion bash > ~/.bash_completion.d/monoship
  source ~/.bash_completion.d/monoship

  # Generate completion script for zsh
  monoship completion zsh > "${fpath[1]}/_monoship"
  compinit

  # Generate completion script for fish
  monoship completion fish > ~/.config/fish/completions/monoship.fish`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			completionLog.Printf("Generating %s completion script", shell)

			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletion(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", shell)
			}
		},
	}
}
