package simulate

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// link fills instance.needs: every instance depends on every instance of
// each job it needs. byJob maps a job's declaration index to the positions
// of its instances.
func link(wf *workflow.Workflow, nodes []*instance, byJob [][]int) error {
	for _, n := range nodes {
		seen := make(map[int]bool, len(n.job.Needs))
		for _, need := range n.job.Needs {
			idx := wf.JobIndex(need)
			if idx < 0 {
				return &workflow.ParseError{
					Path:    "jobs." + n.job.ID + ".needs",
					Line:    n.job.Pos.Line,
					Column:  n.job.Pos.Column,
					Message: fmt.Sprintf("job %q depends on unknown job %q", n.job.ID, need),
				}
			}
			if seen[idx] {
				continue
			}
			seen[idx] = true
			n.needs = append(n.needs, byJob[idx]...)
		}
	}
	return nil
}

// order returns the instance positions in a topological order of the needs
// graph using Kahn's algorithm. Among the instances that are ready at any
// point the one declared first is taken, so the order is deterministic.
func order(nodes []*instance) ([]int, error) {
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		indegree[i] = len(n.needs)
		for _, d := range n.needs {
			dependents[d] = append(dependents[d], i)
		}
	}

	var ready []int
	for i, deg := range indegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]int, 0, len(nodes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)
		for _, d := range dependents[next] {
			indegree[d]--
			if indegree[d] == 0 {
				pos := sort.SearchInts(ready, d)
				ready = slices.Insert(ready, pos, d)
			}
		}
	}

	if len(out) < len(nodes) {
		var stuck []string
		seen := map[string]bool{}
		for i, deg := range indegree {
			if id := nodes[i].job.ID; deg > 0 && !seen[id] {
				seen[id] = true
				stuck = append(stuck, id)
			}
		}
		return nil, &workflow.ParseError{
			Path:    "jobs",
			Message: "dependency cycle detected among jobs: " + strings.Join(stuck, ", "),
		}
	}
	return out, nil
}
