package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// CompletionScript describes the completion script of one shell.
type CompletionScript struct {
	Shell    string
	File     string // file name used in release archives
	Generate func(w io.Writer) error
}

// CompletionScripts returns the completion generators for root, in the
// order the completion command lists them.
func CompletionScripts(root *cobra.Command) []CompletionScript {
	return []CompletionScript{
		{"bash", root.Name() + ".bash", func(w io.Writer) error { return root.GenBashCompletionV2(w, true) }},
		{"zsh", "_" + root.Name(), root.GenZshCompletion},
		{"fish", root.Name() + ".fish", func(w io.Writer) error { return root.GenFishCompletion(w, true) }},
		{"powershell", root.Name() + ".ps1", root.GenPowerShellCompletionWithDesc},
	}
}

func completionShells() []string {
	var shells []string
	for _, s := range CompletionScripts(rootCmd) {
		shells = append(shells, s.Shell)
	}
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion [" + strings.Join(completionShells(), "|") + "]",
	Short: "Generate shell completion scripts",
	Long: `Print the completion script for the given shell to stdout.

Completions cover subcommands, --event and --action values, --format and
the names of init templates. For example:

  actionsim completion bash > /etc/bash_completion.d/actionsim
  actionsim completion zsh > "${fpath[1]}/_actionsim"
  actionsim completion fish > ~/.config/fish/completions/actionsim.fish`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		scripts := CompletionScripts(rootCmd)
		i := slices.IndexFunc(scripts, func(s CompletionScript) bool { return s.Shell == args[0] })
		if i < 0 {
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
		return scripts[i].Generate(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
