package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/config"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/logging"
)

// starterWorkflowPath is where every starter template writes its workflow.
const starterWorkflowPath = ".github/workflows/ci.yml"

// Flag values for the init subcommand.
var (
	initFlagName   string
	initFlagBranch string
	initFlagForce  bool
)

// initCmd implements "actionsim init [template]". It writes a starter
// workflow and a matching actionsim.toml into the working directory.
var initCmd = &cobra.Command{
	Use:   "init [template]",
	Short: "Write a starter workflow and actionsim.toml",
	Long: `Write a starter workflow and an actionsim.toml whose event defaults
match it. Existing files are preserved unless --force is supplied.

Templates: go (default), node.

Examples:
  actionsim init                       # go starter in the current directory
  actionsim init node --branch main    # node starter filtering pushes on main
  actionsim init go --name Build --force`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names, _ := config.ListTemplates()
		return names, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "CI", "Workflow display name")
	initCmd.Flags().StringVar(&initFlagBranch, "branch", "main", "Default branch the workflow filters pushes on")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.New("init")

	templateName := "go"
	if len(args) > 0 {
		templateName = args[0]
	}
	if !config.TemplateExists(templateName) {
		available, err := config.ListTemplates()
		if err != nil {
			return fmt.Errorf("listing available templates: %w", err)
		}
		return fmt.Errorf("template %q not found; available templates: %s",
			templateName, strings.Join(available, ", "))
	}

	if strings.TrimSpace(initFlagBranch) == "" {
		return fmt.Errorf("--branch must not be empty")
	}
	if strings.ContainsAny(initFlagName, "\"\n:#") {
		return fmt.Errorf("invalid workflow name %q", initFlagName)
	}

	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	configPath := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(configPath); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	vars := config.TemplateVars{
		Name:          initFlagName,
		DefaultBranch: initFlagBranch,
		SourcePath:    starterWorkflowPath,
	}
	created, err := config.RenderTemplate(templateName, destDir, vars, initFlagForce)
	if err != nil {
		return fmt.Errorf("rendering template %q: %w", templateName, err)
	}
	logger.Debug("rendered template", "template", templateName, "files", len(created))

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Initialized %q from template %q\n\n", initFlagName, templateName)
	if len(created) > 0 {
		fmt.Fprintln(out, "Created files:")
		for _, f := range created {
			rel, relErr := filepath.Rel(destDir, f)
			if relErr != nil {
				rel = f
			}
			fmt.Fprintf(out, "  %s\n", filepath.ToSlash(rel))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s to match your repository\n", starterWorkflowPath)
	fmt.Fprintf(out, "  2. Run: actionsim simulate %s\n", starterWorkflowPath)
	fmt.Fprintf(out, "  3. Run: actionsim simulate %s --all-events\n", starterWorkflowPath)
	return nil
}
