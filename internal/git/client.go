// Package git reads the branch and changed files of a local repository so a
// synthetic event can mirror the working tree.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// Client runs read-only git commands in a working directory.
type Client struct {
	// WorkDir is the working directory for git commands. If empty, commands
	// run in the current directory.
	WorkDir string

	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
}

// NewClient returns a Client for workDir. It verifies that git is installed
// and that workDir is inside a repository.
func NewClient(ctx context.Context, workDir string) (*Client, error) {
	c := &Client{WorkDir: workDir, GitBin: "git"}
	if _, err := c.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("git: not a git repository or git not installed: %w", err)
	}
	return c, nil
}

// CurrentBranch returns the name of the checked-out branch. A detached HEAD
// is an error.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git: current branch: %w", err)
	}
	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", errors.New("git: current branch: detached HEAD state")
	}
	return branch, nil
}

// ChangedFiles returns the repository-relative paths that differ between
// base and the working tree, untracked files included, sorted and without
// duplicates. Paths use forward slashes.
func (c *Client) ChangedFiles(ctx context.Context, base string) ([]string, error) {
	if base == "" {
		base = "HEAD"
	}
	diff, err := c.run(ctx, "diff", "--name-only", "--no-renames", base, "--")
	if err != nil {
		return nil, fmt.Errorf("git: diff against %q: %w", base, err)
	}
	untracked, err := c.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git: untracked files: %w", err)
	}

	files := append(splitLines(diff), splitLines(untracked)...)
	slices.Sort(files)
	return slices.Compact(files), nil
}

// HeadCommit returns the full hash of HEAD.
func (c *Client) HeadCommit(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git: head commit: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// run executes a git command and returns stdout. stderr is included in the
// error when the command fails.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	bin := c.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = c.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return stdout.String(), nil
}
