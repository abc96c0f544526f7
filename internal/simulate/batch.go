package simulate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// RunAll simulates wf once per event using a default engine. See
// Engine.RunAll.
func RunAll(ctx context.Context, events []event.Event, sourcePath string, wf *workflow.Workflow) ([]*RuntimeModel, error) {
	return NewEngine().RunAll(ctx, events, sourcePath, wf)
}

// RunAll simulates wf once per event, concurrently. Models are returned in
// the order of events. The first failure cancels the runs that have not
// started yet and is returned with the index of its event.
func (e *Engine) RunAll(ctx context.Context, events []event.Event, sourcePath string, wf *workflow.Workflow) ([]*RuntimeModel, error) {
	models := make([]*RuntimeModel, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ev := range events {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := e.Run(ev, sourcePath, wf)
			if err != nil {
				return fmt.Errorf("event %d (%s): %w", i, ev.Event, err)
			}
			models[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}
