package config

import (
	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/simulate"
)

// NewDefaults returns a Config populated with all default values.
func NewDefaults() *Config {
	events := make(map[string]EventConfig, len(event.Kinds()))
	for _, kind := range event.Kinds() {
		ev, _ := event.Default(kind)
		events[kind] = EventConfig{Branch: ev.Branch, Action: ev.Action}
	}
	return &Config{
		Simulation: SimulationConfig{
			SourcePath:            event.DefaultSourcePath,
			MaxMatrixCombinations: simulate.DefaultMaxMatrixCombinations,
		},
		Output: OutputConfig{Format: FormatText},
		Events: events,
	}
}
