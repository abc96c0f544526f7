package config

import (
	"slices"
	"strconv"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from actionsim.toml.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// Environment variables read by Resolve.
const (
	EnvSourcePath = "ACTIONSIM_SOURCE_PATH"
	EnvFormat     = "ACTIONSIM_FORMAT"
	EnvMaxMatrix  = "ACTIONSIM_MAX_MATRIX_COMBINATIONS"
)

// ResolvedConfig holds the merged configuration with source tracking.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is a dotted path, e.g. "output.format"
	Path    string                  // config file used, empty if none
}

// CLIOverrides captures flag values that override configuration. A nil
// field means the flag was not set.
type CLIOverrides struct {
	SourcePath            *string
	Format                *string
	Digest                *bool
	MaxMatrixCombinations *int
}

// EnvFunc looks up an environment variable. os.LookupEnv in production.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration in priority order:
// CLI flags > environment variables > config file > defaults.
//
// fileConfig is nil when no file was found. Empty strings and zero numbers
// in the file do not override defaults.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{Events: map[string]EventConfig{}},
		Sources: make(map[string]ConfigSource),
	}
	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	resolveDefaults(rc, defaults)
	if fileConfig != nil {
		resolveFile(rc, fileConfig)
	}
	resolveFromEnv(rc, envFn)
	resolveFromCLI(rc, overrides)
	return rc
}

// --- Layer 1: Defaults ---

func resolveDefaults(rc *ResolvedConfig, d *Config) {
	c := rc.Config
	setString(&c.Simulation.SourcePath, d.Simulation.SourcePath, "simulation.source_path", SourceDefault, rc.Sources)
	c.Simulation.MaxMatrixCombinations = d.Simulation.MaxMatrixCombinations
	rc.Sources["simulation.max_matrix_combinations"] = SourceDefault
	setString(&c.Output.Format, d.Output.Format, "output.format", SourceDefault, rc.Sources)
	c.Output.Digest = d.Output.Digest
	rc.Sources["output.digest"] = SourceDefault

	for kind, ev := range d.Events {
		c.Events[kind] = copyEventConfig(ev)
		setEventSources(rc.Sources, kind, SourceDefault)
	}
}

// --- Layer 2: File ---

func resolveFile(rc *ResolvedConfig, f *Config) {
	c := rc.Config
	mergeString(&c.Simulation.SourcePath, f.Simulation.SourcePath, "simulation.source_path", SourceFile, rc.Sources)
	if f.Simulation.MaxMatrixCombinations != 0 {
		c.Simulation.MaxMatrixCombinations = f.Simulation.MaxMatrixCombinations
		rc.Sources["simulation.max_matrix_combinations"] = SourceFile
	}
	mergeString(&c.Output.Format, f.Output.Format, "output.format", SourceFile, rc.Sources)
	if f.Output.Digest {
		c.Output.Digest = true
		rc.Sources["output.digest"] = SourceFile
	}

	// Event sections merge field by field over the defaults of their kind.
	for kind, ev := range f.Events {
		merged := copyEventConfig(c.Events[kind])
		prefix := "events." + kind
		mergeString(&merged.Branch, ev.Branch, prefix+".branch", SourceFile, rc.Sources)
		mergeString(&merged.Action, ev.Action, prefix+".action", SourceFile, rc.Sources)
		if ev.Files != nil {
			merged.Files = slices.Clone(ev.Files)
			rc.Sources[prefix+".files"] = SourceFile
		}
		c.Events[kind] = merged
	}
}

// --- Layer 3: Environment ---

// resolveFromEnv applies:
//
//	ACTIONSIM_SOURCE_PATH              -> simulation.source_path
//	ACTIONSIM_FORMAT                   -> output.format
//	ACTIONSIM_MAX_MATRIX_COMBINATIONS  -> simulation.max_matrix_combinations
//
// A non-numeric matrix limit is ignored.
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	c := rc.Config
	if val, ok := envFn(EnvSourcePath); ok {
		setString(&c.Simulation.SourcePath, val, "simulation.source_path", SourceEnv, rc.Sources)
	}
	if val, ok := envFn(EnvFormat); ok {
		setString(&c.Output.Format, val, "output.format", SourceEnv, rc.Sources)
	}
	if val, ok := envFn(EnvMaxMatrix); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Simulation.MaxMatrixCombinations = n
			rc.Sources["simulation.max_matrix_combinations"] = SourceEnv
		}
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, o *CLIOverrides) {
	c := rc.Config
	if o.SourcePath != nil {
		setString(&c.Simulation.SourcePath, *o.SourcePath, "simulation.source_path", SourceCLI, rc.Sources)
	}
	if o.Format != nil {
		setString(&c.Output.Format, *o.Format, "output.format", SourceCLI, rc.Sources)
	}
	if o.Digest != nil {
		c.Output.Digest = *o.Digest
		rc.Sources["output.digest"] = SourceCLI
	}
	if o.MaxMatrixCombinations != nil {
		c.Simulation.MaxMatrixCombinations = *o.MaxMatrixCombinations
		rc.Sources["simulation.max_matrix_combinations"] = SourceCLI
	}
}

// --- Helpers ---

// setString unconditionally sets the target and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only when value is non-empty.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

func copyEventConfig(src EventConfig) EventConfig {
	return EventConfig{Branch: src.Branch, Action: src.Action, Files: slices.Clone(src.Files)}
}

func setEventSources(sources map[string]ConfigSource, kind string, source ConfigSource) {
	prefix := "events." + kind
	sources[prefix+".branch"] = source
	sources[prefix+".action"] = source
	sources[prefix+".files"] = source
}
