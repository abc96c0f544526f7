// Package cli implements the actionsim command tree: simulate, validate,
// eval, init, config, version and completion.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/logging"
	"github.com/AbdelazizMoustafa10m/actionsim/pkg/actionsim"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagConfig  string
	flagDir     string
	flagNoColor bool
)

// rootCmd is the base command for actionsim.
var rootCmd = &cobra.Command{
	Use:   "actionsim",
	Short: "Simulate GitHub Actions workflows against synthetic events",
	Long: `actionsim reads a GitHub Actions workflow and reports which jobs and steps
would run for a synthetic push, pull_request or issues event, in which order,
and with which expressions resolved. Nothing is executed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("verbose") && os.Getenv("ACTIONSIM_VERBOSE") != "" {
		flagVerbose = true
	}
	if !flags.Changed("quiet") && os.Getenv("ACTIONSIM_QUIET") != "" {
		flagQuiet = true
	}
	if !flags.Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("ACTIONSIM_NO_COLOR") != "") {
		flagNoColor = true
	}

	logging.Setup(flagVerbose, flagQuiet, os.Getenv("ACTIONSIM_LOG_FORMAT") == "json")

	if flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagDir, err)
		}
	}
	return nil
}

func init() {
	registerPersistentFlags(rootCmd, true)
}

// registerPersistentFlags adds the global flags to cmd. When bind is false
// the flags are not tied to the package-level variables.
func registerPersistentFlags(cmd *cobra.Command, bind bool) {
	pf := cmd.PersistentFlags()
	const (
		verboseUsage = "Enable verbose (debug) output (env: ACTIONSIM_VERBOSE)"
		quietUsage   = "Suppress all output except errors (env: ACTIONSIM_QUIET)"
		configUsage  = "Path to actionsim.toml config file"
		dirUsage     = "Override working directory"
		colorUsage   = "Disable colored output (env: ACTIONSIM_NO_COLOR, NO_COLOR)"
	)
	if bind {
		pf.BoolVarP(&flagVerbose, "verbose", "v", false, verboseUsage)
		pf.BoolVarP(&flagQuiet, "quiet", "q", false, quietUsage)
		pf.StringVar(&flagConfig, "config", "", configUsage)
		pf.StringVar(&flagDir, "dir", "", dirUsage)
		pf.BoolVar(&flagNoColor, "no-color", false, colorUsage)
		return
	}
	pf.BoolP("verbose", "v", false, verboseUsage)
	pf.BoolP("quiet", "q", false, quietUsage)
	pf.String("config", "", configUsage)
	pf.String("dir", "", dirUsage)
	pf.Bool("no-color", false, colorUsage)
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		return 1
	}
	return 0
}

// errorMessage prefixes err with its kind. Syntax errors already carry the
// prefix.
func errorMessage(err error) string {
	switch kind := actionsim.KindOf(err); kind {
	case actionsim.KindParse, actionsim.KindExpression:
		return kind.String() + ": " + err.Error()
	default:
		return err.Error()
	}
}

// NewRootCmd returns a fresh root command carrying the same flags and
// subcommands as the global tree, for the completion and man page
// generators.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}
	registerPersistentFlags(cmd, false)
	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}
