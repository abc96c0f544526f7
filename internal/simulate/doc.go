// Package simulate resolves which jobs and steps of a workflow would run for
// a synthetic event.
//
// Jobs are expanded into one instance per matrix combination, linked to every
// instance of the jobs they need, and processed in a deterministic
// topological order. Conditions are evaluated with the status functions
// reporting on the instance's dependencies (for jobs) or on earlier steps
// (for steps). Nothing is executed: a `run` step is assumed to succeed unless
// its script ends in a non-zero `exit`.
//
// The result is a RuntimeModel whose JSON form is byte-for-byte stable
// across runs.
package simulate
