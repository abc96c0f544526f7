package simulate

import (
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// baseContext returns the contexts available everywhere in the document:
// github, inputs, vars, secrets and the evaluated workflow env.
func baseContext(github *expr.Object, wf *workflow.Workflow) (*expr.Context, *expr.Object, error) {
	ctx := expr.NewContext()
	ctx.Set("github", expr.ObjectOf(github))
	ctx.Set("inputs", expr.ObjectOf(nil))
	ctx.Set("vars", expr.ObjectOf(nil))
	ctx.Set("secrets", expr.ObjectOf(nil))

	env, err := evalEnv(wf.Env, expr.NewObject(), ctx, "env")
	if err != nil {
		return nil, nil, err
	}
	ctx.Set("env", expr.ObjectOf(env))
	return ctx, env, nil
}

// evalEnv interpolates pairs on top of a copy of parent. Each value is
// evaluated against ctx and stored as a string.
func evalEnv(pairs workflow.Pairs, parent *expr.Object, ctx *expr.Context, path string) (*expr.Object, error) {
	out := parent.Clone()
	for _, kv := range pairs {
		s, err := expr.InterpolateString(kv.Value, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, kv.Key, err)
		}
		out.Set(kv.Key, expr.String(s))
	}
	return out, nil
}

// withJob returns a copy of the github context with github.job set.
func withJob(github *expr.Object, jobID string) *expr.Object {
	gh := github.Clone()
	gh.Set("job", expr.String(jobID))
	return gh
}

// strategyContext builds strategy.* for an instance.
func strategyContext(n *instance, ctx *expr.Context) (*expr.Object, error) {
	failFast, maxParallel := true, float64(n.total)
	if s := n.job.Strategy; s != nil {
		path := "jobs." + n.job.ID + ".strategy"
		if s.FailFast != "" {
			ok, err := flag(s.FailFast, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s.fail-fast: %w", path, err)
			}
			failFast = ok
		}
		if s.MaxParallel != "" {
			v, err := expr.Interpolate(s.MaxParallel, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s.max-parallel: %w", path, err)
			}
			maxParallel = v.ToNumber()
		}
	}
	o := expr.NewObject()
	o.Set("fail-fast", expr.Bool(failFast))
	o.Set("job-index", expr.Number(float64(n.index)))
	o.Set("job-total", expr.Number(float64(n.total)))
	o.Set("max-parallel", expr.Number(maxParallel))
	return o, nil
}

// runnerContext derives runner.* from the resolved runs-on labels.
func runnerContext(labels string) *expr.Object {
	l := strings.ToLower(labels)
	osName, temp, toolCache := "Linux", "/home/runner/work/_temp", "/opt/hostedtoolcache"
	switch {
	case strings.Contains(l, "windows"):
		osName, temp, toolCache = "Windows", `D:\a\_temp`, `C:\hostedtoolcache\windows`
	case strings.Contains(l, "macos"):
		osName, temp, toolCache = "macOS", "/Users/runner/work/_temp", "/Users/runner/hostedtoolcache"
	}
	arch := "X64"
	if strings.Contains(l, "arm") {
		arch = "ARM64"
	}
	o := expr.NewObject()
	o.Set("name", expr.String("GitHub Actions 1"))
	o.Set("os", expr.String(osName))
	o.Set("arch", expr.String(arch))
	o.Set("temp", expr.String(temp))
	o.Set("tool_cache", expr.String(toolCache))
	o.Set("environment", expr.String("github-hosted"))
	o.Set("debug", expr.String(""))
	return o
}

// resolveRunsOn interpolates runs-on. Sequences of labels are joined with
// commas.
func resolveRunsOn(v expr.Value, ctx *expr.Context) (string, error) {
	switch v.Kind() {
	case expr.KindString:
		return expr.InterpolateString(v.StringValue(), ctx)
	case expr.KindArray:
		parts := make([]string, 0, v.Array().Len())
		for _, item := range v.Array().Items() {
			s, err := resolveRunsOn(item, ctx)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case expr.KindObject:
		if labels, ok := v.Object().Get("labels"); ok {
			return resolveRunsOn(labels, ctx)
		}
		if group, ok := v.Object().Get("group"); ok {
			return resolveRunsOn(group, ctx)
		}
		return "", nil
	default:
		return v.String(), nil
	}
}

// needsContext builds needs.<id> for every job n depends on: the aggregate
// result across the job's instances and their merged outputs. It also
// returns the status the job-level status functions report.
func needsContext(n *instance, nodes []*instance, execs []*JobExecution) (*expr.Object, expr.Status) {
	status := expr.Status{Success: true}
	type agg struct {
		id      string
		results []string
		outputs *expr.Object
	}
	var seq []*agg
	byJob := map[string]*agg{}

	for _, d := range n.needs {
		dep, exec := nodes[d], execs[d]
		switch exec.result {
		case resultSuccess:
		case resultFailure:
			status.Success = false
			status.Failure = true
		default:
			status.Success = false
		}

		a, ok := byJob[dep.job.ID]
		if !ok {
			a = &agg{id: dep.job.ID, outputs: expr.NewObject()}
			byJob[dep.job.ID] = a
			seq = append(seq, a)
		}
		a.results = append(a.results, exec.result)
		if exec.Outputs != nil {
			for _, k := range exec.Outputs.Keys() {
				v, _ := exec.Outputs.Get(k)
				a.outputs.Set(k, v)
			}
		}
	}

	needs := expr.NewObject()
	for _, a := range seq {
		o := expr.NewObject()
		o.Set("result", expr.String(aggregate(a.results)))
		o.Set("outputs", expr.ObjectOf(a.outputs))
		needs.Set(a.id, expr.ObjectOf(o))
	}
	return needs, status
}

// aggregate folds the results of a job's instances: failure when any
// failed, skipped when all were skipped, success otherwise.
func aggregate(results []string) string {
	skipped := 0
	for _, r := range results {
		switch r {
		case resultFailure:
			return resultFailure
		case resultSkipped:
			skipped++
		}
	}
	if skipped == len(results) {
		return resultSkipped
	}
	return resultSuccess
}

// flag evaluates a boolean-ish field such as continue-on-error. Plain text
// is true only when it reads "true".
func flag(raw string, ctx *expr.Context) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	v, err := expr.Interpolate(raw, ctx)
	if err != nil {
		return false, err
	}
	if v.Kind() == expr.KindString {
		return strings.EqualFold(strings.TrimSpace(v.StringValue()), "true"), nil
	}
	return v.Truthy(), nil
}
