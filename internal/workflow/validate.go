package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
)

// Issue code constants classify each ValidationIssue by its structural category.
// Codes are stable strings so callers can switch on them.
const (
	// IssueNoJobs is reported when the workflow declares no jobs.
	IssueNoJobs = "NO_JOBS"

	// IssueNoTriggers is reported when `on` declares no events.
	IssueNoTriggers = "NO_TRIGGERS"

	// IssueInvalidJobID is reported when a job id is not made of letters,
	// digits, '-' and '_', starting with a letter or '_'.
	IssueInvalidJobID = "INVALID_JOB_ID"

	// IssueDuplicateJob is reported when two jobs share the same id.
	IssueDuplicateJob = "DUPLICATE_JOB_ID"

	// IssueUnknownNeed is reported when `needs` names a job that is not
	// declared.
	IssueUnknownNeed = "UNKNOWN_NEED"

	// IssueSelfNeed is reported when a job lists itself in `needs`.
	IssueSelfNeed = "SELF_NEED"

	// IssueCycleDetected is reported when the needs graph contains a
	// directed cycle.
	IssueCycleDetected = "CYCLE_DETECTED"

	// IssueNoSteps is reported when a job has neither steps nor a reusable
	// workflow reference.
	IssueNoSteps = "NO_STEPS"

	// IssueStepAction is reported when a step has neither or both of `run`
	// and `uses`.
	IssueStepAction = "STEP_RUN_USES"

	// IssueDuplicateStepID is reported when two steps of one job share an id.
	IssueDuplicateStepID = "DUPLICATE_STEP_ID"

	// IssueDuplicateNeed is a warning for a job listed twice in `needs`.
	IssueDuplicateNeed = "DUPLICATE_NEED"

	// IssueUnsupportedEvent is a warning for triggers on events that cannot
	// be simulated. Such triggers are kept but never match.
	IssueUnsupportedEvent = "UNSUPPORTED_EVENT"

	// IssueInvalidPattern is a warning for a branch, tag or path filter
	// pattern that is not a well-formed glob. Such a pattern never matches.
	IssueInvalidPattern = "INVALID_PATTERN"

	// IssueExpressionSyntax is a warning for an `if:` condition that does not
	// parse. Evaluating it would fail.
	IssueExpressionSyntax = "EXPRESSION_SYNTAX"
)

var jobIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// simulatedEvents are the events a synthetic event can carry.
var simulatedEvents = map[string]bool{
	"push":         true,
	"pull_request": true,
	"issues":       true,
}

// ValidationIssue describes a single structural problem found in a Workflow.
type ValidationIssue struct {
	// Code is one of the Issue* constants identifying the problem category.
	Code string

	// Job is the id of the job involved, or empty for workflow-level issues.
	Job string

	// Path is the dotted location within the document.
	Path string

	// Pos is the source location, when known.
	Pos Position

	// Message is a human-readable description of the problem.
	Message string
}

// ValidationResult holds the outcome of validating a Workflow. Errors make
// the workflow unusable; warnings do not.
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// IsValid reports whether the workflow has no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// String returns a multi-line human-readable summary of all validation issues.
// The format is:
//
//	Errors (N):
//	  [ERROR_CODE] jobs.build: message
//	Warnings (N):
//	  [WARN_CODE] message
func (r *ValidationResult) String() string {
	var b strings.Builder

	write := func(issues []ValidationIssue) {
		for _, issue := range issues {
			if issue.Path != "" {
				fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Code, issue.Path, issue.Message)
			} else {
				fmt.Fprintf(&b, "  [%s] %s\n", issue.Code, issue.Message)
			}
		}
	}

	fmt.Fprintf(&b, "Errors (%d):\n", len(r.Errors))
	write(r.Errors)
	fmt.Fprintf(&b, "Warnings (%d):\n", len(r.Warnings))
	write(r.Warnings)

	return b.String()
}

// Err returns the first error as a *ParseError, or nil when the workflow is
// valid.
func (r *ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	issue := r.Errors[0]
	return newParseError(issue.Path, issue.Pos, "%s", issue.Message)
}

func (r *ValidationResult) errorf(code, job, path string, pos Position, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Job: job, Path: path, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(code, job, path string, pos Position, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationIssue{Code: code, Job: job, Path: path, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a workflow for structural errors and design warnings. It
// never evaluates an expression. The function always returns a non-nil
// ValidationResult; issues are ordered by job declaration order.
//
// Validation sequence:
//  1. Workflow checks: at least one trigger and one job.
//  2. Per-job checks: id format, duplicate ids, needs references, steps.
//  3. Cycle detection: DFS three-color marking over the needs graph.
func Validate(wf *Workflow) *ValidationResult {
	result := &ValidationResult{}

	if wf == nil || len(wf.Jobs) == 0 {
		result.errorf(IssueNoJobs, "", "jobs", Position{}, "workflow declares no jobs")
		return result
	}
	if len(wf.Triggers) == 0 {
		result.errorf(IssueNoTriggers, "", "on", Position{}, "workflow declares no triggering events")
	}
	for _, t := range wf.Triggers {
		if !simulatedEvents[t.Event] {
			result.warnf(IssueUnsupportedEvent, "", "on."+t.Event, t.Pos,
				"event %q cannot be simulated; only push, pull_request and issues are supported", t.Event)
		}
		checkPatterns(result, t)
	}

	// -----------------------------------------------------------------------
	// Phase 1: per-job checks
	// -----------------------------------------------------------------------

	index := make(map[string]int, len(wf.Jobs))
	for i, job := range wf.Jobs {
		path := "jobs." + job.ID
		if !jobIDPattern.MatchString(job.ID) {
			result.errorf(IssueInvalidJobID, job.ID, path, job.Pos,
				"job id %q must start with a letter or '_' and contain only letters, digits, '-' and '_'", job.ID)
		}
		if first, dup := index[job.ID]; dup {
			result.errorf(IssueDuplicateJob, job.ID, path, job.Pos,
				"job id %q is declared more than once (first at position %d)", job.ID, first)
			continue
		}
		index[job.ID] = i
	}

	for _, job := range wf.Jobs {
		path := "jobs." + job.ID

		seenNeeds := make(map[string]bool, len(job.Needs))
		for n, need := range job.Needs {
			needPath := fmt.Sprintf("%s.needs[%d]", path, n)
			switch {
			case need == job.ID:
				result.errorf(IssueSelfNeed, job.ID, needPath, job.Pos, "job %q cannot depend on itself", job.ID)
			case seenNeeds[need]:
				result.warnf(IssueDuplicateNeed, job.ID, needPath, job.Pos, "job %q is listed more than once in needs", need)
			default:
				if _, ok := index[need]; !ok {
					result.errorf(IssueUnknownNeed, job.ID, needPath, job.Pos,
						"job %q depends on unknown job %q", job.ID, need)
				}
			}
			seenNeeds[need] = true
		}

		if len(job.Steps) == 0 && job.Uses == "" {
			result.errorf(IssueNoSteps, job.ID, path, job.Pos, "job %q has no steps", job.ID)
		}
		checkCondition(result, job.ID, path+".if", job.Pos, job.If)

		stepIDs := make(map[string]int, len(job.Steps))
		for _, step := range job.Steps {
			stepPath := fmt.Sprintf("%s.steps[%d]", path, step.Index)
			switch {
			case step.Run == "" && step.Uses == "":
				result.errorf(IssueStepAction, job.ID, stepPath, step.Pos, "step must declare either run or uses")
			case step.Run != "" && step.Uses != "":
				result.errorf(IssueStepAction, job.ID, stepPath, step.Pos, "step cannot declare both run and uses")
			}
			if step.ID != "" {
				if first, dup := stepIDs[step.ID]; dup {
					result.errorf(IssueDuplicateStepID, job.ID, stepPath, step.Pos,
						"step id %q is already used by steps[%d]", step.ID, first)
				} else {
					stepIDs[step.ID] = step.Index
				}
			}
			checkCondition(result, job.ID, stepPath+".if", step.Pos, step.If)
		}
	}

	// Cycle detection needs every reference resolved.
	if !result.IsValid() {
		return result
	}

	// -----------------------------------------------------------------------
	// Phase 2: cycle detection – DFS with three-color marking
	//
	// Colors:
	//   white (0) = unvisited
	//   gray  (1) = in current DFS path (ancestor stack)
	//   black (2) = fully processed
	//
	// A back-edge (gray → gray) indicates a cycle. Jobs are visited in
	// declaration order so the reported cycle is stable.
	// -----------------------------------------------------------------------

	const (
		colorWhite = 0
		colorGray  = 1
		colorBlack = 2
	)

	color := make([]int, len(wf.Jobs))
	var cycle []string

	var dfs func(node int, path []int) bool
	dfs = func(node int, path []int) bool {
		color[node] = colorGray
		path = append(path, node)

		for _, need := range wf.Jobs[node].Needs {
			next := index[need]
			switch color[next] {
			case colorGray:
				start := 0
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				for _, p := range path[start:] {
					cycle = append(cycle, wf.Jobs[p].ID)
				}
				cycle = append(cycle, wf.Jobs[next].ID) // close the loop
				return true
			case colorWhite:
				if dfs(next, path) {
					return true
				}
			}
		}

		color[node] = colorBlack
		return false
	}

	for i := range wf.Jobs {
		if color[i] == colorWhite && dfs(i, nil) {
			break
		}
	}
	if cycle != nil {
		first := wf.Jobs[index[cycle[0]]]
		result.errorf(IssueCycleDetected, first.ID, "jobs."+first.ID+".needs", first.Pos,
			"dependency cycle detected: %s", strings.Join(cycle, " → "))
	}

	return result
}

func checkPatterns(result *ValidationResult, t Trigger) {
	filters := []struct {
		key      string
		patterns []string
	}{
		{"branches", t.Branches},
		{"branches-ignore", t.BranchesIgnore},
		{"tags", t.Tags},
		{"tags-ignore", t.TagsIgnore},
		{"paths", t.Paths},
		{"paths-ignore", t.PathsIgnore},
	}
	for _, f := range filters {
		for i, p := range f.patterns {
			if !doublestar.ValidatePattern(strings.TrimPrefix(p, "!")) {
				result.warnf(IssueInvalidPattern, "", fmt.Sprintf("on.%s.%s[%d]", t.Event, f.key, i), t.Pos,
					"pattern %q is not a valid glob", p)
			}
		}
	}
}

func checkCondition(result *ValidationResult, job, path string, pos Position, cond string) {
	src := strings.TrimSpace(cond)
	if src == "" {
		return
	}
	if strings.HasPrefix(src, "${{") && strings.HasSuffix(src, "}}") && strings.Count(src, "${{") == 1 {
		src = strings.TrimSuffix(strings.TrimPrefix(src, "${{"), "}}")
	} else if expr.ContainsExpression(src) {
		return
	}
	if _, err := expr.Parse(src); err != nil {
		result.warnf(IssueExpressionSyntax, job, path, pos, "condition does not parse: %v", err)
	}
}
