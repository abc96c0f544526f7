// Package actionsim simulates GitHub Actions workflows against synthetic
// events.
//
// A typical caller parses a workflow once and simulates it for one or more
// events:
//
//	wf, err := actionsim.Parse(src)
//	if err != nil {
//		return err
//	}
//	model, err := actionsim.Run(actionsim.Event{Event: "push", Branch: "main"}, ".github/workflows/ci.yml", wf)
//
// Nothing is executed. The result reports, per job instance, whether it
// would run, be skipped or fail, with every step's fields resolved.
package actionsim

import (
	"context"
	"errors"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/simulate"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

type (
	// Workflow is a parsed workflow document.
	Workflow = workflow.Workflow

	// Event is a synthetic triggering event.
	Event = event.Event

	// RuntimeModel is the outcome of a simulation.
	RuntimeModel = simulate.RuntimeModel

	// JobExecution is one job instance in a RuntimeModel.
	JobExecution = simulate.JobExecution

	// StepExecution is one step of a JobExecution.
	StepExecution = simulate.StepExecution

	// Status is the simulated status of a job or step.
	Status = simulate.Status

	// Option configures a simulation.
	Option = simulate.EngineOption

	// SyntaxError reports a document that is not well-formed YAML.
	SyntaxError = workflow.SyntaxError

	// ParseError reports a well-formed document that is not a valid
	// workflow.
	ParseError = workflow.ParseError

	// ExpressionError reports an expression that failed to parse or
	// evaluate.
	ExpressionError = expr.ExpressionError
)

const (
	StatusWillRun   = simulate.StatusWillRun
	StatusSkipped   = simulate.StatusSkipped
	StatusWouldFail = simulate.StatusWouldFail
)

var (
	// WithLogger attaches a charmbracelet/log Logger.
	WithLogger = simulate.WithLogger

	// WithMaxMatrixCombinations overrides the per-job matrix limit.
	WithMaxMatrixCombinations = simulate.WithMaxMatrixCombinations
)

// ErrorKind classifies the errors returned by this package.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindSyntax
	KindParse
	KindExpression
)

var kindNames = [...]string{
	KindOther:      "error",
	KindSyntax:     "syntax error",
	KindParse:      "validation error",
	KindExpression: "expression error",
}

// String returns a short label such as "syntax error".
func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindOther]
	}
	return kindNames[k]
}

// KindOf reports which kind of failure err is. Wrapped errors are
// inspected with errors.As; nil is KindOther.
func KindOf(err error) ErrorKind {
	var (
		syntaxErr *SyntaxError
		parseErr  *ParseError
		exprErr   *ExpressionError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return KindSyntax
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &exprErr):
		return KindExpression
	default:
		return KindOther
	}
}

// Parse parses and validates a workflow document.
func Parse(text []byte) (*Workflow, error) {
	return workflow.Parse(text)
}

// Run simulates wf for ev. sourcePath is reported as github.workflow.
func Run(ev Event, sourcePath string, wf *Workflow, opts ...Option) (*RuntimeModel, error) {
	return simulate.NewEngine(opts...).Run(ev, sourcePath, wf)
}

// RunAll simulates wf once per event, concurrently, returning the models
// in the order of events.
func RunAll(ctx context.Context, events []Event, sourcePath string, wf *Workflow, opts ...Option) ([]*RuntimeModel, error) {
	return simulate.NewEngine(opts...).RunAll(ctx, events, sourcePath, wf)
}

// Simulate parses text and runs it for ev.
func Simulate(text []byte, ev Event, sourcePath string, opts ...Option) (*RuntimeModel, error) {
	wf, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Run(ev, sourcePath, wf, opts...)
}
