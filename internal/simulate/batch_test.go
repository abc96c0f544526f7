package simulate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
)

const batchWorkflow = `
on:
  push:
    branches: [main]
  pull_request:
  issues:
    types: [closed]
jobs:
  build:
    steps:
      - run: echo ${{ github.event_name }}
`

func TestRunAll_PreservesEventOrder(t *testing.T) {
	t.Parallel()

	wf := mustParse(t, batchWorkflow)
	events := []event.Event{
		{Event: event.Push, Branch: "main"},
		{Event: event.Push, Branch: "dev"},
		{Event: event.PullRequest, Branch: "main", Action: "opened"},
		{Event: event.Issues, Action: "closed"},
		{Event: event.Issues, Action: "opened"},
	}

	models, err := RunAll(context.Background(), events, "", wf)
	require.NoError(t, err)
	require.Len(t, models, len(events))

	want := []bool{true, false, true, true, false}
	for i, m := range models {
		assert.Equal(t, events[i], m.Event)
		assert.Equal(t, want[i], m.Triggered(), "event %d", i)
	}
	assert.Equal(t, "echo pull_request", field(t, job(t, models[2], "build").Steps[0], "run"))
}

func TestRunAll_MatchesSequentialRuns(t *testing.T) {
	t.Parallel()

	wf := mustParse(t, batchWorkflow)
	var events []event.Event
	for _, kind := range event.Kinds() {
		ev, ok := event.Default(kind)
		require.True(t, ok)
		events = append(events, ev)
	}

	models, err := NewEngine().RunAll(context.Background(), events, "", wf)
	require.NoError(t, err)
	for i, ev := range events {
		single, err := NewEngine().Run(ev, "", wf)
		require.NoError(t, err)
		assert.Equal(t, single.Digest(), models[i].Digest(), "event %d", i)
	}
}

func TestRunAll_ReportsFailingEvent(t *testing.T) {
	t.Parallel()

	wf := mustParse(t, batchWorkflow)
	events := []event.Event{
		{Event: event.Push, Branch: "main"},
		{Event: event.Issues, Action: "merged"},
	}

	models, err := RunAll(context.Background(), events, "", wf)
	assert.Nil(t, models)
	require.ErrorIs(t, err, event.ErrInvalidEvent)
	assert.Contains(t, err.Error(), "event 1 (issues)")
}

func TestRunAll_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunAll(ctx, []event.Event{pushMain}, "", mustParse(t, batchWorkflow))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll_Empty(t *testing.T) {
	t.Parallel()

	models, err := RunAll(context.Background(), nil, "", mustParse(t, batchWorkflow))
	require.NoError(t, err)
	assert.Empty(t, models)
}
