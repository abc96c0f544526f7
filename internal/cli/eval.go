package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/config"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
)

// evalFlags holds the flag values of the eval command.
type evalFlags struct {
	Context string
	Format  string
}

var evFlags evalFlags

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression",
	Long: `Evaluate an expression, either bare or as text containing ${{ }} spans.

The github context is that of the configured default push event. Other
contexts are empty unless --context names a JSON file whose top-level keys
replace or add contexts.

Examples:
  actionsim eval "github.ref_name == 'main'"
  actionsim eval 'build-${{ github.sha }}'
  actionsim eval "fromJSON(env.LIST)[0]" --context ctx.json
  actionsim eval "toJSON(github.event)" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVarP(&evFlags.Context, "context", "c", "", "JSON file of contexts to evaluate against")
	evalCmd.Flags().StringVarP(&evFlags.Format, "format", "f", config.FormatText, "Output format: text or json")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if evFlags.Format != config.FormatText && evFlags.Format != config.FormatJSON {
		return fmt.Errorf("unrecognized format %q; must be one of: text, json", evFlags.Format)
	}

	resolved, _, err := loadAndResolveConfig(&config.CLIOverrides{})
	if err != nil {
		return err
	}
	ctx, err := evalContext(resolved.Config, evFlags.Context)
	if err != nil {
		return err
	}

	var v expr.Value
	if expr.ContainsExpression(args[0]) {
		v, err = expr.Interpolate(args[0], ctx)
	} else {
		v, err = expr.Evaluate(args[0], ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if evFlags.Format == config.FormatJSON {
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	fmt.Fprintln(out, v.String())
	return nil
}

// evalContext builds the contexts an expression is evaluated against. Keys of
// the optional JSON file at path replace the defaults.
func evalContext(cfg *config.Config, path string) (*expr.Context, error) {
	ctx := expr.NewContext()
	ctx.Set("github", expr.ObjectOf(event.GitHubContext(cfg.Event(event.Push), cfg.Simulation.SourcePath)))
	for _, name := range []string{"env", "vars", "secrets", "inputs"} {
		ctx.Set(name, expr.ObjectOf(nil))
	}
	if path == "" {
		return ctx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}
	v, err := expr.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if v.Kind() != expr.KindObject {
		return nil, fmt.Errorf("%s: context file must hold a JSON object, got %s", path, v.Kind())
	}
	o := v.Object()
	for _, name := range o.Keys() {
		val, _ := o.Get(name)
		ctx.Set(name, val)
	}
	return ctx, nil
}
