package event

import (
	"strings"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
)

// Fixed identity of the simulated repository and run. Every value is a
// constant so simulations are reproducible.
const (
	Repository    = "octo-org/octo-repo"
	Actor         = "octocat"
	DefaultBranch = "main"
	SHA           = "ffac537e6cbbf934b08745a378932722df287a53"
	ServerURL     = "https://github.com"
	Workspace     = "/home/runner/work/octo-repo/octo-repo"

	// PullRequestNumber is the number every simulated pull request carries.
	PullRequestNumber = 1
	// IssueNumber is the number every simulated issue carries.
	IssueNumber = 1
)

// Ref returns the git ref the event is associated with. Issues events run
// against the default branch.
func (e Event) Ref() string {
	if e.Branch == "" || !HasBranch(e.Event) {
		return "refs/heads/" + DefaultBranch
	}
	if strings.HasPrefix(e.Branch, "refs/") {
		return e.Branch
	}
	return "refs/heads/" + e.Branch
}

// BranchName returns the branch without any refs/heads/ prefix.
func (e Event) BranchName() string {
	ref := e.Ref()
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		return name
	}
	if name, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		return name
	}
	return ref
}

// IsTag reports whether the event's ref is a tag.
func (e Event) IsTag() bool {
	return strings.HasPrefix(e.Ref(), "refs/tags/")
}

// GitHubContext builds the `github` context for e. sourcePath is the
// repository path of the workflow file; an empty path means
// DefaultSourcePath. For pull_request events the branch is the one the pull
// request targets, so it is exposed as ref, ref_name and base_ref.
func GitHubContext(e Event, sourcePath string) *expr.Object {
	if sourcePath == "" {
		sourcePath = DefaultSourcePath
	}
	refType := "branch"
	if e.IsTag() {
		refType = "tag"
	}

	gh := expr.NewObject()
	gh.Set("event_name", expr.String(e.Event))
	gh.Set("event", expr.ObjectOf(payload(e)))
	gh.Set("ref", expr.String(e.Ref()))
	gh.Set("ref_name", expr.String(e.BranchName()))
	gh.Set("ref_type", expr.String(refType))
	gh.Set("ref_protected", expr.Bool(false))
	if e.Event == PullRequest {
		gh.Set("base_ref", expr.String(e.BranchName()))
		gh.Set("head_ref", expr.String(e.BranchName()))
	} else {
		gh.Set("base_ref", expr.String(""))
		gh.Set("head_ref", expr.String(""))
	}
	gh.Set("sha", expr.String(SHA))
	gh.Set("repository", expr.String(Repository))
	owner, _, _ := strings.Cut(Repository, "/")
	gh.Set("repository_owner", expr.String(owner))
	gh.Set("actor", expr.String(Actor))
	gh.Set("triggering_actor", expr.String(Actor))
	gh.Set("workflow", expr.String(sourcePath))
	gh.Set("workflow_ref", expr.String(Repository+"/"+sourcePath+"@"+e.Ref()))
	gh.Set("run_id", expr.String("1"))
	gh.Set("run_number", expr.String("1"))
	gh.Set("run_attempt", expr.String("1"))
	gh.Set("server_url", expr.String(ServerURL))
	gh.Set("api_url", expr.String("https://api.github.com"))
	gh.Set("graphql_url", expr.String("https://api.github.com/graphql"))
	gh.Set("workspace", expr.String(Workspace))
	gh.Set("action", expr.String(""))
	gh.Set("job", expr.String(""))
	return gh
}

// payload builds github.event, a reduced version of the webhook payload.
func payload(e Event) *expr.Object {
	repo := expr.NewObject()
	repo.Set("full_name", expr.String(Repository))
	repo.Set("default_branch", expr.String(DefaultBranch))

	p := expr.NewObject()
	switch e.Event {
	case Push:
		p.Set("ref", expr.String(e.Ref()))
		p.Set("after", expr.String(SHA))
		commit := expr.NewObject()
		commit.Set("id", expr.String(SHA))
		commit.Set("modified", expr.FromGo(files(e)))
		p.Set("head_commit", expr.ObjectOf(commit))
		p.Set("commits", expr.ArrayOf(expr.ObjectOf(commit)))
	case PullRequest:
		p.Set("action", expr.String(e.Action))
		p.Set("number", expr.Number(PullRequestNumber))
		base := expr.NewObject()
		base.Set("ref", expr.String(e.BranchName()))
		head := expr.NewObject()
		head.Set("ref", expr.String(e.BranchName()))
		head.Set("sha", expr.String(SHA))
		pr := expr.NewObject()
		pr.Set("number", expr.Number(PullRequestNumber))
		pr.Set("state", expr.String(prState(e.Action)))
		pr.Set("base", expr.ObjectOf(base))
		pr.Set("head", expr.ObjectOf(head))
		pr.Set("changed_files", expr.Number(float64(len(e.Files))))
		p.Set("pull_request", expr.ObjectOf(pr))
	case Issues:
		p.Set("action", expr.String(e.Action))
		issue := expr.NewObject()
		issue.Set("number", expr.Number(IssueNumber))
		state := "open"
		if e.Action == "closed" {
			state = "closed"
		}
		issue.Set("state", expr.String(state))
		p.Set("issue", expr.ObjectOf(issue))
	}
	p.Set("repository", expr.ObjectOf(repo))
	sender := expr.NewObject()
	sender.Set("login", expr.String(Actor))
	p.Set("sender", expr.ObjectOf(sender))
	return p
}

func prState(action string) string {
	if action == "closed" {
		return "closed"
	}
	return "open"
}

func files(e Event) []string {
	if e.Files == nil {
		return []string{}
	}
	return e.Files
}
