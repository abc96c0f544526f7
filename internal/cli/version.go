package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
)

var (
	versionJSON  bool
	versionShort bool
)

// versionReport is the --json form: the build information plus the event
// kinds this build can simulate.
type versionReport struct {
	buildinfo.Info
	Events []string `json:"events"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show actionsim version and build information",
	Long: `Display the version, git commit and build date of this actionsim binary,
followed by the event kinds it can simulate. --short prints the bare version
for scripts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.GetInfo()
		out := cmd.OutOrStdout()

		switch {
		case versionShort:
			fmt.Fprintln(out, info.Version)
		case versionJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(versionReport{Info: info, Events: event.Kinds()})
		default:
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "events: %s\n", strings.Join(event.Kinds(), ", "))
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version info as JSON")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	versionCmd.MarkFlagsMutuallyExclusive("json", "short")
	rootCmd.AddCommand(versionCmd)
}
