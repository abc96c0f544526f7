// Package event models the synthetic triggering event a workflow is
// simulated against and derives the `github` expression context from it.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Event kinds that can be simulated.
const (
	Push        = "push"
	PullRequest = "pull_request"
	Issues      = "issues"
)

// DefaultSourcePath is the repository path the simulated workflow is assumed
// to live at when the caller does not supply one.
const DefaultSourcePath = ".github/workflows/workflow.yaml"

// ErrInvalidEvent is wrapped by every error Validate returns.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a synthetic triggering event. Branch and Files only apply to push
// and pull_request events; Action only applies to pull_request and issues
// events and may be left empty, in which case a `types` filter never
// matches.
type Event struct {
	Event  string   `json:"event"            toml:"event"  validate:"required,oneof=push pull_request issues"`
	Branch string   `json:"branch,omitempty" toml:"branch"`
	Files  []string `json:"files,omitempty"  toml:"files"  validate:"omitempty,dive,required"`
	Action string   `json:"action,omitempty" toml:"action"`
}

var kindActions = map[string][]string{
	PullRequest: {
		"assigned", "unassigned", "labeled", "unlabeled", "opened", "edited", "closed", "reopened",
		"synchronize", "ready_for_review", "locked", "unlocked", "review_requested", "review_request_removed",
	},
	Issues: {
		"opened", "edited", "deleted", "transferred", "pinned", "unpinned", "closed", "reopened",
		"assigned", "unassigned", "labeled", "unlabeled", "locked", "unlocked", "milestoned", "demilestoned",
	},
}

var defaults = map[string]Event{
	Push:        {Event: Push, Branch: "master"},
	PullRequest: {Event: PullRequest, Branch: "feature-branch", Action: "opened"},
	Issues:      {Event: Issues, Action: "closed"},
}

// Kinds returns the event kinds that can be simulated.
func Kinds() []string {
	return []string{Push, PullRequest, Issues}
}

// Actions returns the actions an event of the given kind may carry, or nil
// when the kind takes no action.
func Actions(kind string) []string {
	return slices.Clone(kindActions[kind])
}

// HasBranch reports whether events of the given kind carry a branch and a
// file list.
func HasBranch(kind string) bool {
	return kind == Push || kind == PullRequest
}

// HasAction reports whether events of the given kind carry an action.
func HasAction(kind string) bool {
	_, ok := kindActions[kind]
	return ok
}

// Default returns the default event for kind.
func Default(kind string) (Event, bool) {
	ev, ok := defaults[kind]
	return ev, ok
}

// WithDefaults fills the branch and action of e from the defaults of its
// kind when they are unset. Files are never defaulted.
func (e Event) WithDefaults() Event {
	def, ok := defaults[e.Event]
	if !ok {
		return e
	}
	if e.Branch == "" && HasBranch(e.Event) {
		e.Branch = def.Branch
	}
	if e.Action == "" && HasAction(e.Event) {
		e.Action = def.Action
	}
	return e
}

// Normalize returns a copy of e with file entries trimmed and empty entries
// dropped. A list that ends up empty becomes nil.
func (e Event) Normalize() Event {
	if e.Files == nil {
		return e
	}
	var files []string
	for _, f := range e.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	e.Files = files
	return e
}

// String returns a short description such as "pull_request (opened) on main".
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Event)
	if e.Action != "" {
		fmt.Fprintf(&b, " (%s)", e.Action)
	}
	if e.Branch != "" {
		fmt.Fprintf(&b, " on %s", e.Branch)
	}
	if n := len(e.Files); n > 0 {
		fmt.Fprintf(&b, " touching %d file", n)
		if n > 1 {
			b.WriteString("s")
		}
	}
	return b.String()
}

// ParseFiles splits a comma-separated file list, trimming blanks and dropping
// empty entries.
func ParseFiles(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Decode reads an event from its JSON form, rejecting unknown fields,
// normalizes it and validates it.
func Decode(data []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev = ev.Normalize()
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(validateKind, Event{})
	})
	return validate
}

// validateKind checks the fields whose validity depends on the event kind.
func validateKind(sl validator.StructLevel) {
	ev, ok := sl.Current().Interface().(Event)
	if !ok {
		return
	}
	if _, known := defaults[ev.Event]; !known {
		return
	}

	if !HasBranch(ev.Event) {
		if ev.Branch != "" {
			sl.ReportError(ev.Branch, "branch", "Branch", "inapplicable", ev.Event)
		}
		if len(ev.Files) > 0 {
			sl.ReportError(ev.Files, "files", "Files", "inapplicable", ev.Event)
		}
	}

	allowed, hasAction := kindActions[ev.Event]
	switch {
	case !hasAction && ev.Action != "":
		sl.ReportError(ev.Action, "action", "Action", "inapplicable", ev.Event)
	case hasAction && ev.Action != "" && !slices.Contains(allowed, ev.Action):
		sl.ReportError(ev.Action, "action", "Action", "action", ev.Event)
	}
}

// Validate checks that the kind is known and that the branch, files and
// action fit it. The returned error wraps ErrInvalidEvent.
func (e Event) Validate() error {
	err := validatorInstance().Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s %q is not one of: %s", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "inapplicable":
		return fmt.Sprintf("%s does not apply to %s events", field, fe.Param())
	case "action":
		return fmt.Sprintf("action %q is not valid for %s events; expected one of: %s",
			fe.Value(), fe.Param(), strings.Join(kindActions[fe.Param()], ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
