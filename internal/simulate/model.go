package simulate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/trigger"
)

// Status is the simulated outcome of a job or step.
type Status string

const (
	// StatusWillRun means the job or step would run and succeed.
	StatusWillRun Status = "will_run"

	// StatusSkipped means the condition evaluated to false, or an earlier
	// failure prevented it from running.
	StatusSkipped Status = "skipped"

	// StatusWouldFail means the job or step would run and fail.
	StatusWouldFail Status = "would_fail"
)

// Result values as exposed through needs.<job>.result and
// steps.<id>.outcome.
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultSkipped = "skipped"
)

// StepExecution is the simulated outcome of one step.
type StepExecution struct {
	Status Status `json:"status"`
	Name   string `json:"name"`
	ID     string `json:"id,omitempty"`

	// ResolvedFields holds the interpolated name, run, uses, with and env
	// of a step that runs. It is nil for skipped steps.
	ResolvedFields *expr.Object `json:"resolvedFields,omitempty"`
}

// JobExecution is the simulated outcome of one expanded job instance.
type JobExecution struct {
	// ID is the expanded id, e.g. "build (ubuntu, 18)".
	ID string `json:"-"`

	// JobID is the id of the declared job the instance was expanded from.
	JobID string `json:"-"`

	Status Status `json:"status"`
	Name   string `json:"name"`

	// MatrixValues is the matrix combination of the instance, in axis
	// order, or nil when the job has no matrix.
	MatrixValues *expr.Object `json:"matrixValues,omitempty"`

	// Needs lists the expanded ids this instance waits for.
	Needs []string `json:"needs,omitempty"`

	// Outputs holds the evaluated job outputs of an instance that runs.
	Outputs *expr.Object `json:"outputs,omitempty"`

	Steps []StepExecution `json:"steps"`

	// result is what dependents see through needs.<job>.result.
	result string
}

// RuntimeModel is the ordered result of a simulation. Jobs are in the order
// the simulator processed them, which is a topological order of the needs
// graph.
type RuntimeModel struct {
	Jobs []*JobExecution

	// Event is the event that was simulated.
	Event event.Event

	// Trigger explains why the workflow was or was not activated.
	Trigger trigger.Result
}

// Triggered reports whether the event activated the workflow.
func (m *RuntimeModel) Triggered() bool {
	return m.Trigger.Matched
}

// Job returns the execution with the given expanded id.
func (m *RuntimeModel) Job(id string) (*JobExecution, bool) {
	for _, j := range m.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

// IDs returns the expanded job ids in processing order.
func (m *RuntimeModel) IDs() []string {
	ids := make([]string, len(m.Jobs))
	for i, j := range m.Jobs {
		ids[i] = j.ID
	}
	return ids
}

// Count returns how many job instances ended with the given status.
func (m *RuntimeModel) Count(s Status) int {
	n := 0
	for _, j := range m.Jobs {
		if j.Status == s {
			n++
		}
	}
	return n
}

// MarshalJSON renders the model as a JSON object keyed by expanded job id,
// keys in processing order.
func (m *RuntimeModel) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, j := range m.Jobs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(j.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(j)
		if err != nil {
			return nil, fmt.Errorf("simulate: marshal job %q: %w", j.ID, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Digest returns a 16-digit hex xxhash of the model's JSON form. Two runs
// over the same workflow and event always produce the same digest.
func (m *RuntimeModel) Digest() string {
	data, err := m.MarshalJSON()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
