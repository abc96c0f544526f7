// Package trigger decides whether a synthetic event activates a workflow by
// applying the branch, tag, path and activity-type filters of its `on:`
// declarations.
package trigger

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// DefaultPullRequestTypes are the activity types a pull_request trigger
// reacts to when it declares no `types` filter.
var DefaultPullRequestTypes = []string{"opened", "synchronize", "reopened"}

// Decision records the outcome of checking one trigger.
type Decision struct {
	// Index is the position of the trigger in Workflow.Triggers.
	Index int

	// Matched reports whether the trigger accepts the event.
	Matched bool

	// Reason explains the outcome in a short phrase.
	Reason string
}

// Result is the outcome of matching an event against a workflow.
type Result struct {
	// Matched reports whether at least one trigger accepts the event.
	Matched bool

	// Trigger is the index of the first accepting trigger, or -1.
	Trigger int

	// Decisions holds one entry per trigger of the event's kind, in
	// declaration order.
	Decisions []Decision
}

// String summarises the result on one line.
func (r Result) String() string {
	if len(r.Decisions) == 0 {
		return "no trigger declared for this event"
	}
	parts := make([]string, len(r.Decisions))
	for i, d := range r.Decisions {
		parts[i] = fmt.Sprintf("on[%d]: %s", d.Index, d.Reason)
	}
	return strings.Join(parts, "; ")
}

// Matches reports whether ev activates wf.
func Matches(ev event.Event, wf *workflow.Workflow) bool {
	return MatchDetail(ev, wf).Matched
}

// MatchDetail checks ev against every trigger of its kind and reports why
// each one did or did not accept it.
func MatchDetail(ev event.Event, wf *workflow.Workflow) Result {
	res := Result{Trigger: -1}
	if wf == nil {
		return res
	}
	for i, t := range wf.Triggers {
		if t.Event != ev.Event {
			continue
		}
		ok, reason := matchTrigger(t, ev)
		res.Decisions = append(res.Decisions, Decision{Index: i, Matched: ok, Reason: reason})
		if ok && !res.Matched {
			res.Matched = true
			res.Trigger = i
		}
	}
	return res
}

// matchTrigger applies the filters of t, one kind of filter after another.
func matchTrigger(t workflow.Trigger, ev event.Event) (bool, string) {
	if ok, reason := matchTypes(t, ev); !ok {
		return false, reason
	}
	if !event.HasBranch(ev.Event) {
		return true, "matched"
	}

	if ev.IsTag() {
		if ok, reason := matchTag(t, ev); !ok {
			return false, reason
		}
		// Path filters are not evaluated for tag pushes.
		return true, "matched"
	}
	if ok, reason := matchBranch(t, ev); !ok {
		return false, reason
	}
	if ok, reason := matchPaths(t, ev); !ok {
		return false, reason
	}
	return true, "matched"
}

func matchTypes(t workflow.Trigger, ev event.Event) (bool, string) {
	types := t.Types
	if types == nil {
		if ev.Event != event.PullRequest {
			return true, ""
		}
		types = DefaultPullRequestTypes
	}
	if ev.Action == "" {
		return false, fmt.Sprintf("event has no action; types are [%s]", strings.Join(types, ", "))
	}
	if slices.Contains(types, ev.Action) {
		return true, ""
	}
	return false, fmt.Sprintf("action %q is not one of types [%s]", ev.Action, strings.Join(types, ", "))
}

func matchBranch(t workflow.Trigger, ev event.Event) (bool, string) {
	branch := ev.BranchName()
	switch {
	case t.Branches != nil:
		ok, err := Include(t.Branches, branch)
		if err != nil {
			return false, err.Error()
		}
		if !ok {
			return false, fmt.Sprintf("branch %q is not matched by branches", branch)
		}
	case t.BranchesIgnore != nil:
		ignored, err := Include(t.BranchesIgnore, branch)
		if err != nil {
			return false, err.Error()
		}
		if ignored {
			return false, fmt.Sprintf("branch %q is excluded by branches-ignore", branch)
		}
	case t.HasTagFilter():
		return false, "only tag pushes are accepted"
	}
	return true, ""
}

func matchTag(t workflow.Trigger, ev event.Event) (bool, string) {
	tag := ev.BranchName()
	switch {
	case t.Tags != nil:
		ok, err := Include(t.Tags, tag)
		if err != nil {
			return false, err.Error()
		}
		if !ok {
			return false, fmt.Sprintf("tag %q is not matched by tags", tag)
		}
	case t.TagsIgnore != nil:
		ignored, err := Include(t.TagsIgnore, tag)
		if err != nil {
			return false, err.Error()
		}
		if ignored {
			return false, fmt.Sprintf("tag %q is excluded by tags-ignore", tag)
		}
	case t.HasBranchFilter():
		return false, "only branch pushes are accepted"
	}
	return true, ""
}

func matchPaths(t workflow.Trigger, ev event.Event) (bool, string) {
	if t.Paths != nil {
		if len(ev.Files) == 0 {
			return false, "no changed files to match paths"
		}
		for _, f := range ev.Files {
			ok, err := Include(t.Paths, f)
			if err != nil {
				return false, err.Error()
			}
			if ok {
				return true, ""
			}
		}
		return false, "no changed file is matched by paths"
	}
	if t.PathsIgnore != nil && len(ev.Files) > 0 {
		for _, f := range ev.Files {
			ignored, err := Include(t.PathsIgnore, f)
			if err != nil {
				return false, err.Error()
			}
			if !ignored {
				return true, ""
			}
		}
		return false, "every changed file is excluded by paths-ignore"
	}
	return true, ""
}

// Include applies an ordered pattern list to name. A pattern prefixed with
// '!' removes names matched so far; the last pattern that matches decides.
// `*` does not match '/', `**` does.
func Include(patterns []string, name string) (bool, error) {
	included := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		if negate {
			p = p[1:]
		}
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if ok {
			included = !negate
		}
	}
	return included, nil
}
