package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/logging"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/render"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>...",
	Short: "Check workflows for errors and warnings",
	Long: `Parse each workflow and report structural errors, such as unknown or
cyclic needs, and warnings, such as events that cannot be simulated or
conditions that do not parse.

Exit code is 0 when every workflow is valid and 1 otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := logging.New("validate")
	out := cmd.OutOrStdout()
	f := render.NewFormatter(out, styledOutput(out))

	invalid := 0
	for _, path := range args {
		wf, err := workflow.ParseFile(path)
		if err != nil {
			invalid++
			logger.Debug("workflow rejected", "path", path, "error", err)
			fmt.Fprintf(out, "%s: %s\n", path, errorMessage(err))
			continue
		}
		f.Write(f.FormatValidation(path, workflow.Validate(wf)))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d workflow(s) invalid", invalid, len(args))
	}
	return nil
}
