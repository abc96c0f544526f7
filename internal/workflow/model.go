// Package workflow parses GitHub Actions workflow documents into a typed,
// validated model. No expression is evaluated here.
package workflow

import (
	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
)

// Position is a 1-based line/column location in the source document. The
// zero value means the location is unknown.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Pair is one entry of an ordered string mapping such as env or with.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered string mapping. Keys keep their declaration order so
// everything derived from them is deterministic.
type Pairs []Pair

// Get returns the value stored under key.
func (p Pairs) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Keys returns the keys in declaration order.
func (p Pairs) Keys() []string {
	keys := make([]string, len(p))
	for i, kv := range p {
		keys[i] = kv.Key
	}
	return keys
}

// Workflow is a parsed and validated workflow document.
type Workflow struct {
	// Name is the optional display name.
	Name string

	// RunName is the optional run-name template.
	RunName string

	// Triggers holds one entry per declared event, in declaration order.
	Triggers []Trigger

	// Env is the workflow-level environment.
	Env Pairs

	// Jobs holds the jobs in declaration order.
	Jobs []*Job

	index map[string]int
}

// Job returns the job declared under id.
func (w *Workflow) Job(id string) (*Job, bool) {
	i := w.JobIndex(id)
	if i < 0 {
		return nil, false
	}
	return w.Jobs[i], true
}

// JobIndex returns the declaration position of the job with the given id, or
// -1 when no such job exists. The first declaration wins for duplicate ids.
func (w *Workflow) JobIndex(id string) int {
	if w.index != nil {
		if i, ok := w.index[id]; ok {
			return i
		}
		return -1
	}
	for i, j := range w.Jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func (w *Workflow) reindex() {
	w.index = make(map[string]int, len(w.Jobs))
	for i, j := range w.Jobs {
		if _, dup := w.index[j.ID]; !dup {
			w.index[j.ID] = i
		}
	}
}

// TriggersFor returns the triggers declared for the named event.
func (w *Workflow) TriggersFor(event string) []Trigger {
	var out []Trigger
	for _, t := range w.Triggers {
		if t.Event == event {
			out = append(out, t)
		}
	}
	return out
}

// Trigger is one entry under `on:`. Filter slices are nil when the filter is
// not declared and non-nil (possibly empty) when it is.
type Trigger struct {
	Event          string
	Branches       []string
	BranchesIgnore []string
	Tags           []string
	TagsIgnore     []string
	Paths          []string
	PathsIgnore    []string
	Types          []string
	Pos            Position
}

// HasBranchFilter reports whether branches or branches-ignore is declared.
func (t Trigger) HasBranchFilter() bool {
	return t.Branches != nil || t.BranchesIgnore != nil
}

// HasTagFilter reports whether tags or tags-ignore is declared.
func (t Trigger) HasTagFilter() bool {
	return t.Tags != nil || t.TagsIgnore != nil
}

// Job is one entry under `jobs:`.
type Job struct {
	ID      string
	Name    string
	Needs   []string
	If      string
	RunsOn  expr.Value
	Env     Pairs
	Outputs Pairs

	// ContinueOnError is the raw scalar: "true", "false" or an expression.
	ContinueOnError string

	Strategy *Strategy

	// Uses and With describe a call to a reusable workflow. Such jobs have
	// no steps.
	Uses string
	With Pairs

	Steps []Step
	Pos   Position
}

// Strategy is a job's `strategy:` block.
type Strategy struct {
	Matrix      *Matrix
	FailFast    string
	MaxParallel string
}

// Matrix is a job's `strategy.matrix:` block. Either Expr is set (the whole
// matrix is one expression) or the explicit axes and include/exclude lists
// are. IncludeExpr and ExcludeExpr replace Include and Exclude when those
// lists are given as a single expression.
type Matrix struct {
	Expr        string
	Axes        []Axis
	Include     []*expr.Object
	Exclude     []*expr.Object
	IncludeExpr string
	ExcludeExpr string
}

// Axis is one named dimension of a matrix. Expr is set when the values are
// given by a single expression instead of a literal sequence.
type Axis struct {
	Name   string
	Values []expr.Value
	Expr   string
}

// Step is one entry of a job's `steps:` list.
type Step struct {
	// Index is the zero-based position within the job.
	Index int

	ID   string
	Name string
	Run  string
	Uses string
	If   string

	Shell string
	With  Pairs
	Env   Pairs

	// ContinueOnError is the raw scalar: "true", "false" or an expression.
	ContinueOnError string

	Pos Position
}

// DisplayName returns the name shown for the step: its name, else the run
// command's first line, else the action reference.
func (s Step) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Run != "":
		return "Run " + firstLine(s.Run)
	case s.Uses != "":
		return "Run " + s.Uses
	default:
		return ""
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
