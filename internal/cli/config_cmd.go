package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/config"
)

// configCmd groups the configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect and validate actionsim configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configShowCmd implements "actionsim config show".
var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"debug"},
	Short:   "Show resolved configuration with source annotations",
	Long: `Display the fully-resolved configuration showing each value and the
source it came from (cli flag, environment variable, config file, or default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		printResolvedConfig(cmd.OutOrStdout(), resolved)
		return nil
	},
}

// configValidateCmd implements "actionsim config validate".
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		result := config.Validate(resolved.Config, meta)
		printConfigValidation(cmd.OutOrStdout(), result)
		if result.HasErrors() {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// loadAndResolveConfig loads actionsim.toml (from --config, or found by
// walking up from the working directory) and layers env and overrides on
// top. The metadata is nil when no file was loaded.
func loadAndResolveConfig(overrides *config.CLIOverrides) (*config.ResolvedConfig, *toml.MetaData, error) {
	var (
		fileCfg *config.Config
		meta    *toml.MetaData
	)

	cfgPath := flagConfig
	if cfgPath == "" {
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		cfgPath = found
	}
	if cfgPath != "" {
		fc, md, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, err
		}
		fileCfg = fc
		meta = &md
	}

	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, overrides)
	resolved.Path = cfgPath
	return resolved, meta, nil
}

// ---- Lipgloss styles --------------------------------------------------------

func sourceStyle(src config.ConfigSource) lipgloss.Style {
	switch src {
	case config.SourceFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // bright blue
	case config.SourceEnv:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // bright yellow
	case config.SourceCLI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // bright red
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // bright green
	}
}

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleSection  = lipgloss.NewStyle().Bold(true)
	styleErrorLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarnLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// ---- printResolvedConfig ----------------------------------------------------

const fieldWidth = 24

func printResolvedConfig(out io.Writer, rc *config.ResolvedConfig) {
	const title = "Resolved Configuration"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	c := rc.Config
	fmt.Fprintln(out, styleSection.Render("[simulation]"))
	printField(out, "source_path", fmtStr(c.Simulation.SourcePath), rc.Sources["simulation.source_path"])
	printField(out, "max_matrix_combinations", strconv.Itoa(c.Simulation.MaxMatrixCombinations), rc.Sources["simulation.max_matrix_combinations"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[output]"))
	printField(out, "format", fmtStr(c.Output.Format), rc.Sources["output.format"])
	printField(out, "digest", strconv.FormatBool(c.Output.Digest), rc.Sources["output.digest"])
	fmt.Fprintln(out)

	kinds := make([]string, 0, len(c.Events))
	for kind := range c.Events {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		ev := c.Events[kind]
		prefix := "events." + kind
		fmt.Fprintln(out, styleSection.Render("["+prefix+"]"))
		printField(out, "branch", fmtStr(ev.Branch), rc.Sources[prefix+".branch"])
		printField(out, "files", fmtSlice(ev.Files), rc.Sources[prefix+".files"])
		printField(out, "action", fmtStr(ev.Action), rc.Sources[prefix+".action"])
		fmt.Fprintln(out)
	}
}

func printField(out io.Writer, name, value string, src config.ConfigSource) {
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	label := sourceStyle(src).Render(fmt.Sprintf("(source: %s)", src))
	fmt.Fprintf(out, "%s = %-40s %s\n", padded, value, label)
}

func fmtStr(s string) string {
	return strconv.Quote(s)
}

func fmtSlice(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ---- printConfigValidation --------------------------------------------------

func printConfigValidation(out io.Writer, result *config.ValidationResult) {
	const title = "Configuration Validation"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	errs := result.Errors()
	warns := result.Warnings()
	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	for _, group := range []struct {
		label  lipgloss.Style
		name   string
		issues []config.ValidationIssue
	}{
		{styleErrorLbl, "Errors:", errs},
		{styleWarnLbl, "Warnings:", warns},
	} {
		if len(group.issues) == 0 {
			continue
		}
		fmt.Fprintln(out, group.label.Render(group.name))
		for _, issue := range group.issues {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}
