package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/config"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/git"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/logging"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/render"
	"github.com/AbdelazizMoustafa10m/actionsim/pkg/actionsim"
)

// simulateFlags holds the flag values of the simulate command.
type simulateFlags struct {
	Event      string
	Branch     string
	Files      string
	Action     string
	EventFile  string
	Format     string
	Digest     bool
	SourcePath string
	AllEvents  bool
	GitBase    string
}

var simFlags simulateFlags

var simulateCmd = &cobra.Command{
	Use:   "simulate <workflow.yaml|->",
	Short: "Simulate a workflow for a synthetic event",
	Long: `Simulate a workflow for a synthetic event and print the resulting
execution model. Use "-" to read the workflow from stdin.

The event is built from --event and the [events.<kind>] defaults in
actionsim.toml; --branch, --files and --action override single fields.
--event-file reads the whole event as JSON instead.

Examples:
  actionsim simulate .github/workflows/ci.yml
  actionsim simulate ci.yml --event pull_request --branch main --action synchronize
  actionsim simulate ci.yml --files cmd/main.go,go.mod --format json
  actionsim simulate ci.yml --event-file event.json --digest
  actionsim simulate ci.yml --git-base origin/main
  actionsim simulate ci.yml --all-events`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simFlags.Event, "event", "e", event.Push, "Event kind: "+strings.Join(event.Kinds(), ", "))
	f.StringVarP(&simFlags.Branch, "branch", "b", "", "Branch or ref of the event (push, pull_request)")
	f.StringVar(&simFlags.Files, "files", "", "Comma-separated changed files (push, pull_request)")
	f.StringVarP(&simFlags.Action, "action", "a", "", "Activity type (pull_request, issues)")
	f.StringVar(&simFlags.EventFile, "event-file", "", "Read the event from a JSON file")
	f.StringVarP(&simFlags.Format, "format", "f", "", "Output format: text or json (env: ACTIONSIM_FORMAT)")
	f.BoolVar(&simFlags.Digest, "digest", false, "Print the digest of the execution model")
	f.StringVar(&simFlags.SourcePath, "source-path", "", "Workflow path reported as github.workflow (env: ACTIONSIM_SOURCE_PATH)")
	f.BoolVar(&simFlags.AllEvents, "all-events", false, "Simulate the configured default event of every kind")
	f.StringVar(&simFlags.GitBase, "git-base", "", "Take branch and changed files from the local git repository, diffed against this ref")

	simulateCmd.MarkFlagsMutuallyExclusive("event-file", "all-events")
	simulateCmd.MarkFlagsMutuallyExclusive("event-file", "git-base")
	for _, name := range []string{"event", "branch", "files", "action"} {
		simulateCmd.MarkFlagsMutuallyExclusive("event-file", name)
	}
	_ = simulateCmd.RegisterFlagCompletionFunc("event", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return event.Kinds(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = simulateCmd.RegisterFlagCompletionFunc("action", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return event.Actions(simFlags.Event), cobra.ShellCompDirectiveNoFileComp
	})
	_ = simulateCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := logging.New("simulate")

	resolved, meta, err := loadAndResolveConfig(simulateOverrides(cmd))
	if err != nil {
		return err
	}
	if vr := config.Validate(resolved.Config, meta); vr.HasErrors() {
		return fmt.Errorf("invalid configuration: %w", vr.Err())
	}
	cfg := resolved.Config

	text, err := readWorkflow(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	wf, err := actionsim.Parse(text)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	events, err := simulateEvents(cmd, cfg)
	if err != nil {
		return err
	}

	sourcePath := cfg.Simulation.SourcePath
	if resolved.Sources["simulation.source_path"] == config.SourceDefault && args[0] != "-" {
		sourcePath = filepath.ToSlash(filepath.Clean(args[0]))
	}
	logger.Debug("simulating", "workflow", args[0], "source_path", sourcePath, "events", len(events))

	models, err := actionsim.RunAll(cmd.Context(), events, sourcePath, wf,
		actionsim.WithLogger(logger),
		actionsim.WithMaxMatrixCombinations(cfg.Simulation.MaxMatrixCombinations))
	if err != nil {
		return err
	}
	return writeModels(cmd.OutOrStdout(), wf.Name, models, cfg.Output)
}

// simulateOverrides collects the flags that override configuration. Only
// flags set on the command line count.
func simulateOverrides(cmd *cobra.Command) *config.CLIOverrides {
	o := &config.CLIOverrides{}
	flags := cmd.Flags()
	if flags.Changed("format") {
		o.Format = &simFlags.Format
	}
	if flags.Changed("digest") {
		o.Digest = &simFlags.Digest
	}
	if flags.Changed("source-path") {
		o.SourcePath = &simFlags.SourcePath
	}
	return o
}

// simulateEvents builds the events to simulate from the flags.
func simulateEvents(cmd *cobra.Command, cfg *config.Config) ([]event.Event, error) {
	if simFlags.EventFile != "" {
		data, err := os.ReadFile(simFlags.EventFile)
		if err != nil {
			return nil, fmt.Errorf("reading event file: %w", err)
		}
		ev, err := event.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", simFlags.EventFile, err)
		}
		return []event.Event{ev}, nil
	}

	if simFlags.AllEvents {
		events := make([]event.Event, 0, len(event.Kinds()))
		for _, kind := range event.Kinds() {
			events = append(events, cfg.Event(kind))
		}
		return events, nil
	}

	if !slices.Contains(event.Kinds(), simFlags.Event) {
		return nil, fmt.Errorf("%w: event %q is not one of: %s",
			event.ErrInvalidEvent, simFlags.Event, strings.Join(event.Kinds(), ", "))
	}
	ev := cfg.Event(simFlags.Event)
	flags := cmd.Flags()
	if flags.Changed("git-base") {
		if !event.HasBranch(ev.Event) {
			return nil, fmt.Errorf("--git-base does not apply to %s events", ev.Event)
		}
		if err := applyGitState(cmd.Context(), &ev, simFlags.GitBase); err != nil {
			return nil, err
		}
	}
	if flags.Changed("branch") {
		ev.Branch = simFlags.Branch
	}
	if flags.Changed("files") {
		ev.Files = event.ParseFiles(simFlags.Files)
	}
	if flags.Changed("action") {
		ev.Action = simFlags.Action
	}
	return []event.Event{ev}, nil
}

// applyGitState sets the branch and changed files of ev from the repository
// in the working directory.
func applyGitState(ctx context.Context, ev *event.Event, base string) error {
	client, err := git.NewClient(ctx, "")
	if err != nil {
		return err
	}
	branch, err := client.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	files, err := client.ChangedFiles(ctx, base)
	if err != nil {
		return err
	}
	head, err := client.HeadCommit(ctx)
	if err != nil {
		return err
	}
	logging.New("git").Debug("event from working tree",
		"head", head, "base", base, "branch", branch, "files", len(files))
	ev.Branch = branch
	ev.Files = files
	return nil
}

// readWorkflow reads the workflow at path, or stdin when path is "-".
func readWorkflow(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}
	return data, nil
}

// writeModels prints one model per event. JSON output is one document per
// line, wrapped as {"digest":...,"jobs":...} when the digest is requested;
// text output separates models with a blank line.
func writeModels(out io.Writer, title string, models []*actionsim.RuntimeModel, opts config.OutputConfig) error {
	switch opts.Format {
	case config.FormatJSON:
		for _, m := range models {
			data, err := m.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encoding model: %w", err)
			}
			var line bytes.Buffer
			if opts.Digest {
				fmt.Fprintf(&line, `{"digest":%q,"jobs":%s}`, m.Digest(), data)
			} else {
				line.Write(data)
			}
			line.WriteByte('\n')
			if _, err := out.Write(line.Bytes()); err != nil {
				return err
			}
		}
		return nil
	case config.FormatText:
		f := render.NewFormatter(out, styledOutput(out))
		for i, m := range models {
			if i > 0 {
				f.Write("\n")
			}
			f.Write(f.FormatModel(title, m, opts.Digest))
		}
		return nil
	default:
		return errors.New("unsupported output format " + opts.Format)
	}
}

// styledOutput reports whether out is a terminal that should get colors.
func styledOutput(out io.Writer) bool {
	if flagNoColor {
		return false
	}
	return termenv.NewOutput(out).Profile != termenv.Ascii
}
