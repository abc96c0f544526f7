// Package config loads actionsim.toml and layers defaults, the file,
// ACTIONSIM_* environment variables and command-line flags into one
// resolved configuration.
package config

import (
	"slices"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
)

// Output formats accepted by [output] format and --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formats lists the accepted output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON}
}

// Config is the top-level configuration structure mapping to actionsim.toml.
type Config struct {
	Simulation SimulationConfig       `toml:"simulation"`
	Output     OutputConfig           `toml:"output"`
	Events     map[string]EventConfig `toml:"events"`
}

// SimulationConfig maps to the [simulation] section.
type SimulationConfig struct {
	// SourcePath is reported as github.workflow when a workflow is read
	// from stdin or from outside the repository.
	SourcePath            string `toml:"source_path"`
	MaxMatrixCombinations int    `toml:"max_matrix_combinations"`
}

// OutputConfig maps to the [output] section.
type OutputConfig struct {
	Format string `toml:"format"`
	Digest bool   `toml:"digest"`
}

// EventConfig maps to an [events.<kind>] section. It supplies the synthetic
// event used when the command line names only the event kind.
type EventConfig struct {
	Branch string   `toml:"branch"`
	Files  []string `toml:"files"`
	Action string   `toml:"action"`
}

// Event returns the configured default event of the given kind. Fields the
// configuration leaves empty fall back to the built-in defaults.
func (c *Config) Event(kind string) event.Event {
	ev := event.Event{Event: kind}
	if ec, ok := c.Events[kind]; ok {
		ev.Branch = ec.Branch
		ev.Action = ec.Action
		ev.Files = slices.Clone(ec.Files)
	}
	return ev.WithDefaults()
}
