package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/simulate"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

const ciWorkflow = `
name: CI
on:
  push:
    branches: [main]
jobs:
  build:
    outputs:
      version: v1
    steps:
      - name: Compile
        run: go build
      - run: exit 1
  deploy:
    name: Deploy
    needs: build
    steps:
      - run: ./deploy
`

func simulateCI(t *testing.T, branch string) *simulate.RuntimeModel {
	t.Helper()
	wf, err := workflow.Parse([]byte(ciWorkflow))
	require.NoError(t, err)
	m, err := simulate.NewEngine().Run(event.Event{Event: event.Push, Branch: branch}, "", wf)
	require.NoError(t, err)
	return m
}

func TestFormatModel_Plain(t *testing.T) {
	t.Parallel()

	got := NewFormatter(nil, false).FormatModel("CI", simulateCI(t, "main"), false)
	want := strings.Join([]string{
		"CI | Simulation: push on main",
		"=============================",
		"",
		"Trigger: on[0]: matched",
		"",
		"  1. build  [would fail]",
		`       outputs: {"version":"v1"}`,
		"       will run   Compile",
		"       would fail Run exit 1",
		"",
		"  2. deploy (Deploy)  [skipped]",
		"       needs: build",
		"       skipped    Run ./deploy",
		"",
		"2 job(s): 0 will run, 1 skipped, 1 would fail",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatModel_Outputs(t *testing.T) {
	t.Parallel()

	wf, err := workflow.Parse([]byte("on: push\njobs:\n  a:\n    outputs:\n      v: x\n    steps:\n      - run: echo\n"))
	require.NoError(t, err)
	m, err := simulate.NewEngine().Run(event.Event{Event: event.Push, Branch: "main"}, "", wf)
	require.NoError(t, err)

	got := NewFormatter(nil, false).FormatModel("", m, true)
	assert.True(t, strings.HasPrefix(got, "Simulation: push on main\n"))
	assert.Contains(t, got, `outputs: {"v":"x"}`)
	assert.Contains(t, got, "digest: "+m.Digest())
}

func TestFormatModel_NotTriggered(t *testing.T) {
	t.Parallel()

	m := simulateCI(t, "dev")
	got := NewFormatter(nil, false).FormatModel("", m, true)
	assert.Contains(t, got, `Not triggered: on[0]: branch "dev" is not matched by branches`)
	assert.Contains(t, got, "digest: "+m.Digest())
	assert.NotContains(t, got, "job(s)")
}

func TestFormatModel_Deterministic(t *testing.T) {
	t.Parallel()

	f := NewFormatter(nil, true)
	assert.Equal(t, f.FormatModel("CI", simulateCI(t, "main"), true), f.FormatModel("CI", simulateCI(t, "main"), true))
}

func TestFormatValidation(t *testing.T) {
	t.Parallel()

	f := NewFormatter(nil, false)
	assert.Equal(t, "ci.yml: valid\n", f.FormatValidation("ci.yml", &workflow.ValidationResult{}))

	r := &workflow.ValidationResult{
		Errors: []workflow.ValidationIssue{
			{Code: workflow.IssueUnknownNeed, Path: "jobs.b.needs[0]", Pos: workflow.Position{Line: 7, Column: 12}, Message: `job "b" depends on unknown job "x"`},
		},
		Warnings: []workflow.ValidationIssue{
			{Code: workflow.IssueUnsupportedEvent, Message: "event cannot be simulated"},
		},
	}
	want := strings.Join([]string{
		"Errors:",
		`  ci.yml:7:12 [UNKNOWN_NEED] jobs.b.needs[0]: job "b" depends on unknown job "x"`,
		"",
		"Warnings:",
		"  ci.yml [UNSUPPORTED_EVENT] event cannot be simulated",
		"",
		"1 error(s), 1 warning(s)",
		"",
	}, "\n")
	assert.Equal(t, want, f.FormatValidation("ci.yml", r))
}

func TestFormatter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewFormatter(&buf, false).Write("hello")
	assert.Equal(t, "hello", buf.String())
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "will run", StatusLabel(simulate.StatusWillRun))
	assert.Equal(t, "would fail", StatusLabel(simulate.StatusWouldFail))
	assert.Equal(t, "skipped", StatusLabel(simulate.StatusSkipped))
}
