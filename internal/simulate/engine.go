package simulate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/trigger"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// DefaultMaxMatrixCombinations caps the instances a single job's matrix may
// expand to.
const DefaultMaxMatrixCombinations = 256

// ErrNilWorkflow is returned when Run is called without a workflow.
var ErrNilWorkflow = errors.New("simulate: workflow is nil")

// Engine simulates workflows. An Engine holds no per-run state and may be
// used from several goroutines at once.
type Engine struct {
	logger    *log.Logger
	maxMatrix int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger attaches a charmbracelet/log Logger to the engine. When nil
// the engine operates silently.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxMatrixCombinations overrides the per-job matrix limit (default
// 256). Values below 1 keep the default.
func WithMaxMatrixCombinations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxMatrix = n
		}
	}
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{maxMatrix: DefaultMaxMatrixCombinations}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run simulates wf for ev. sourcePath is the repository path of the
// workflow file and is exposed as github.workflow.
//
// Run proceeds in five phases:
//  1. Trigger matching. A non-matching event yields an empty model and no
//     error.
//  2. Expansion of every job into its matrix instances.
//  3. Linking each instance to all instances of the jobs it needs.
//  4. Processing the instances in topological order, evaluating job and
//     step conditions against the results of their dependencies.
//  5. Assembly of the model in processing order.
//
// Expression failures are returned with their location prefixed, e.g.
// `jobs.build.steps[2].if: ...`; the *expr.ExpressionError stays reachable
// through errors.As. Matrix and graph problems are *workflow.ParseError.
func (e *Engine) Run(ev event.Event, sourcePath string, wf *workflow.Workflow) (*RuntimeModel, error) {
	if wf == nil {
		return nil, ErrNilWorkflow
	}
	ev = ev.Normalize()
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if err := workflow.Validate(wf).Err(); err != nil {
		return nil, err
	}

	model := &RuntimeModel{Event: ev, Jobs: []*JobExecution{}}
	model.Trigger = trigger.MatchDetail(ev, wf)
	e.log("trigger checked", "event", ev.String(), "matched", model.Trigger.Matched, "detail", model.Trigger.String())
	if !model.Trigger.Matched {
		return model, nil
	}

	github := event.GitHubContext(ev, sourcePath)
	base, env, err := baseContext(github, wf)
	if err != nil {
		return nil, err
	}

	// Phase 2: expand.
	var nodes []*instance
	byJob := make([][]int, len(wf.Jobs))
	for i, job := range wf.Jobs {
		insts, err := e.expandJob(job, i, base)
		if err != nil {
			return nil, err
		}
		for _, n := range insts {
			byJob[i] = append(byJob[i], len(nodes))
			nodes = append(nodes, n)
		}
		e.log("job expanded", "job", job.ID, "instances", len(insts))
	}

	// Phase 3: link and order.
	if err := link(wf, nodes, byJob); err != nil {
		return nil, err
	}
	seq, err := order(nodes)
	if err != nil {
		return nil, err
	}

	// Phase 4 and 5: process and assemble.
	execs := make([]*JobExecution, len(nodes))
	for _, idx := range seq {
		exec, err := e.runInstance(nodes[idx], nodes, execs, base, github, env)
		if err != nil {
			return nil, err
		}
		execs[idx] = exec
		model.Jobs = append(model.Jobs, exec)
		e.log("job simulated", "job", exec.ID, "status", exec.Status)
	}
	return model, nil
}

// runInstance evaluates one job instance. Every instance it needs has
// already been processed.
func (e *Engine) runInstance(n *instance, nodes []*instance, execs []*JobExecution,
	base *expr.Context, github, env *expr.Object) (*JobExecution, error) {
	job := n.job
	path := "jobs." + job.ID

	exec := &JobExecution{ID: n.id, JobID: job.ID, MatrixValues: n.matrix, Steps: []StepExecution{}}
	for _, d := range n.needs {
		exec.Needs = append(exec.Needs, nodes[d].id)
	}

	needs, status := needsContext(n, nodes, execs)
	ctx := base.Clone()
	ctx.Set("github", expr.ObjectOf(withJob(github, job.ID)))
	matrix := n.matrix
	if matrix == nil {
		matrix = expr.NewObject()
	}
	ctx.Set("matrix", expr.ObjectOf(matrix))
	ctx.Set("needs", expr.ObjectOf(needs))

	strategy, err := strategyContext(n, ctx)
	if err != nil {
		return nil, err
	}
	ctx.Set("strategy", expr.ObjectOf(strategy))

	jobEnv, err := evalEnv(job.Env, env, ctx, path+".env")
	if err != nil {
		return nil, err
	}
	ctx.Set("env", expr.ObjectOf(jobEnv))

	labels, err := resolveRunsOn(job.RunsOn, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s.runs-on: %w", path, err)
	}
	ctx.Set("runner", expr.ObjectOf(runnerContext(labels)))

	jobObj := expr.NewObject()
	jobObj.Set("status", expr.String(resultSuccess))
	ctx.Set("job", expr.ObjectOf(jobObj))

	if exec.Name, err = jobName(n, ctx); err != nil {
		return nil, err
	}

	ctx.SetStatus(status)
	ok, err := expr.Condition(job.If, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s.if: %w", path, err)
	}
	if !ok {
		exec.Status, exec.result = StatusSkipped, resultSkipped
		for _, st := range job.Steps {
			exec.Steps = append(exec.Steps, StepExecution{Status: StatusSkipped, Name: st.DisplayName(), ID: st.ID})
		}
		return exec, nil
	}

	steps := expr.NewObject()
	ctx.Set("steps", expr.ObjectOf(steps))
	failed := false
	for _, st := range job.Steps {
		stepPath := fmt.Sprintf("%s.steps[%d]", path, st.Index)
		ctx.SetStatus(expr.Status{Success: !failed, Failure: failed})

		ok, err := expr.Condition(st.If, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s.if: %w", stepPath, err)
		}
		if !ok {
			exec.Steps = append(exec.Steps, StepExecution{Status: StatusSkipped, Name: st.DisplayName(), ID: st.ID})
			recordStep(steps, st.ID, resultSkipped, resultSkipped)
			continue
		}

		stepCtx := ctx.Clone()
		stepEnv, err := evalEnv(st.Env, jobEnv, stepCtx, stepPath+".env")
		if err != nil {
			return nil, err
		}
		stepCtx.Set("env", expr.ObjectOf(stepEnv))

		se, err := resolveStep(st, stepCtx, stepPath)
		if err != nil {
			return nil, err
		}
		outcome, conclusion := resultSuccess, resultSuccess
		if run, _ := se.ResolvedFields.Get("run"); exitCode(run.String()) != 0 {
			se.Status, outcome, conclusion = StatusWouldFail, resultFailure, resultFailure
			cont, err := flag(st.ContinueOnError, stepCtx)
			if err != nil {
				return nil, fmt.Errorf("%s.continue-on-error: %w", stepPath, err)
			}
			if cont {
				conclusion = resultSuccess
			} else {
				failed = true
				jobObj.Set("status", expr.String(resultFailure))
			}
		}
		recordStep(steps, st.ID, outcome, conclusion)
		exec.Steps = append(exec.Steps, se)
	}
	ctx.SetStatus(expr.Status{Success: !failed, Failure: failed})

	exec.Status, exec.result = StatusWillRun, resultSuccess
	if failed {
		exec.Status, exec.result = StatusWouldFail, resultFailure
		cont, err := flag(job.ContinueOnError, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s.continue-on-error: %w", path, err)
		}
		if cont {
			exec.result = resultSuccess
		}
	}

	if len(job.Outputs) > 0 && job.Uses == "" {
		out := expr.NewObject()
		for _, kv := range job.Outputs {
			s, err := expr.InterpolateString(kv.Value, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s.outputs.%s: %w", path, kv.Key, err)
			}
			out.Set(kv.Key, expr.String(s))
		}
		exec.Outputs = out
	}
	return exec, nil
}

// jobName resolves the display name of an instance. A name without
// expressions gets the matrix values appended, as the platform does.
func jobName(n *instance, ctx *expr.Context) (string, error) {
	if n.job.Name == "" {
		return n.id, nil
	}
	name, err := expr.InterpolateString(n.job.Name, ctx)
	if err != nil {
		return "", fmt.Errorf("jobs.%s.name: %w", n.job.ID, err)
	}
	if !expr.ContainsExpression(n.job.Name) {
		name += strings.TrimPrefix(n.id, n.job.ID)
	}
	return name, nil
}

// resolveStep interpolates the fields of a step that runs.
func resolveStep(st workflow.Step, ctx *expr.Context, path string) (StepExecution, error) {
	fields := expr.NewObject()
	resolved := st

	str := func(key, raw string) (string, error) {
		s, err := expr.InterpolateString(raw, ctx)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", path, key, err)
		}
		return s, nil
	}

	var err error
	if st.Name != "" {
		if resolved.Name, err = str("name", st.Name); err != nil {
			return StepExecution{}, err
		}
		fields.Set("name", expr.String(resolved.Name))
	}
	if st.Run != "" {
		if resolved.Run, err = str("run", st.Run); err != nil {
			return StepExecution{}, err
		}
		fields.Set("run", expr.String(resolved.Run))
	}
	if st.Uses != "" {
		if resolved.Uses, err = str("uses", st.Uses); err != nil {
			return StepExecution{}, err
		}
		fields.Set("uses", expr.String(resolved.Uses))
	}
	if st.Shell != "" {
		shell, err := str("shell", st.Shell)
		if err != nil {
			return StepExecution{}, err
		}
		fields.Set("shell", expr.String(shell))
	}
	for _, group := range []struct {
		key   string
		pairs workflow.Pairs
	}{{"with", st.With}, {"env", st.Env}} {
		if len(group.pairs) == 0 {
			continue
		}
		obj := expr.NewObject()
		for _, kv := range group.pairs {
			s, err := str(group.key+"."+kv.Key, kv.Value)
			if err != nil {
				return StepExecution{}, err
			}
			obj.Set(kv.Key, expr.String(s))
		}
		fields.Set(group.key, expr.ObjectOf(obj))
	}

	return StepExecution{
		Status:         StatusWillRun,
		Name:           resolved.DisplayName(),
		ID:             st.ID,
		ResolvedFields: fields,
	}, nil
}

// recordStep publishes a step's outcome under steps.<id>.
func recordStep(steps *expr.Object, id, outcome, conclusion string) {
	if id == "" {
		return
	}
	o := expr.NewObject()
	o.Set("outcome", expr.String(outcome))
	o.Set("conclusion", expr.String(conclusion))
	o.Set("outputs", expr.ObjectOf(nil))
	steps.Set(id, expr.ObjectOf(o))
}

var exitPattern = regexp.MustCompile(`^exit\s+(-?\d+)\s*;?$`)

// exitCode returns N when the last command of script is `exit N`, and 0
// otherwise. Blank lines and comments are ignored.
func exitCode(script string) int {
	lines := strings.Split(script, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := exitPattern.FindStringSubmatch(line)
		if m == nil {
			return 0
		}
		code, err := strconv.Atoi(m[1])
		if err != nil {
			return 1
		}
		return code
	}
	return 0
}

func (e *Engine) log(msg string, kvs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, kvs...)
}
