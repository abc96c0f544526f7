package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError marks an issue that makes the configuration unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning marks an issue the configuration still works with.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g. "events.push.branch"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	return slices.ContainsFunc(vr.Issues, func(i ValidationIssue) bool { return i.Severity == SeverityError })
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	return slices.ContainsFunc(vr.Issues, func(i ValidationIssue) bool { return i.Severity == SeverityWarning })
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	return vr.filter(SeverityError)
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	return vr.filter(SeverityWarning)
}

func (vr *ValidationResult) filter(sev ValidationSeverity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Err joins the error-severity issues into a single error, or returns nil.
func (vr *ValidationResult) Err() error {
	var errs []error
	for _, issue := range vr.Errors() {
		errs = append(errs, fmt.Errorf("%s: %s", issue.Field, issue.Message))
	}
	return errors.Join(errs...)
}

// Validate checks the configuration. meta is nil when no file was loaded;
// otherwise keys that matched no field are reported as warnings.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}
	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateSimulation(vr, &cfg.Simulation)
	validateOutput(vr, &cfg.Output)
	validateEvents(vr, cfg.Events)
	validateUnknownKeys(vr, meta)
	return vr
}

func validateSimulation(vr *ValidationResult, s *SimulationConfig) {
	if strings.TrimSpace(s.SourcePath) == "" {
		addError(vr, "simulation.source_path", "must not be empty")
	}
	if s.MaxMatrixCombinations < 1 {
		addError(vr, "simulation.max_matrix_combinations",
			fmt.Sprintf("must be at least 1, got %d", s.MaxMatrixCombinations))
	}
}

func validateOutput(vr *ValidationResult, o *OutputConfig) {
	if !slices.Contains(Formats(), o.Format) {
		addError(vr, "output.format",
			fmt.Sprintf("unrecognized format %q; must be one of: %s", o.Format, strings.Join(Formats(), ", ")))
	}
}

// validateEvents checks every [events.<kind>] section in sorted order so
// the issue list is stable.
func validateEvents(vr *ValidationResult, events map[string]EventConfig) {
	kinds := make([]string, 0, len(events))
	for kind := range events {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		prefix := "events." + kind
		if !slices.Contains(event.Kinds(), kind) {
			addError(vr, prefix, fmt.Sprintf("unknown event kind %q; must be one of: %s",
				kind, strings.Join(event.Kinds(), ", ")))
			continue
		}
		ec := events[kind]
		ev := event.Event{Event: kind, Branch: ec.Branch, Files: ec.Files, Action: ec.Action}.WithDefaults()
		if err := ev.Validate(); err != nil {
			addError(vr, prefix, strings.TrimPrefix(err.Error(), event.ErrInvalidEvent.Error()+": "))
		}
	}
}

func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}
	for _, key := range meta.Undecoded() {
		addWarning(vr, key.String(), "unknown configuration key")
	}
}

func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{Severity: SeverityError, Field: field, Message: message})
}

func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message})
}
