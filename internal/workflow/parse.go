package workflow

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
)

// ParseFile reads path and parses its contents.
func ParseFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse turns a YAML workflow document into a validated Workflow.
//
// It returns a *SyntaxError when data is not well-formed YAML and a
// *ParseError when the document is well-formed but not a valid workflow:
// missing `on` or `jobs`, malformed triggers, duplicate keys or job ids,
// unresolved or cyclic `needs`, and steps without exactly one of `run` and
// `uses`. Unknown keys are ignored. No expression is evaluated.
func Parse(data []byte) (*Workflow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newSyntaxError(err)
	}

	root := resolve(&doc)
	if root == nil || root.Kind == 0 || root.Kind == yaml.DocumentNode ||
		(root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null") {
		return nil, newParseError("", Position{}, "document is empty")
	}
	if root.Kind != yaml.MappingNode {
		return nil, newParseError("", nodePos(root), "document root must be a mapping, got %s", kindName(root))
	}

	if err := checkAliases(root); err != nil {
		return nil, err
	}
	if err := checkDuplicateKeys(root, ""); err != nil {
		return nil, err
	}
	for _, key := range []string{"on", "jobs"} {
		if lookup(root, key) == nil {
			return nil, newParseError("", nodePos(root), "missing required key %q", key)
		}
	}
	if err := validateSchema(root); err != nil {
		return nil, err
	}

	wf, err := build(root)
	if err != nil {
		return nil, err
	}
	if err := Validate(wf).Err(); err != nil {
		return nil, err
	}
	return wf, nil
}

func build(root *yaml.Node) (*Workflow, error) {
	wf := &Workflow{}
	for _, f := range fields(root) {
		switch f.key.Value {
		case "name":
			wf.Name = scalarText(f.value)
		case "run-name":
			wf.RunName = scalarText(f.value)
		case "env":
			wf.Env = pairs(f.value)
		case "on":
			triggers, err := buildTriggers(f.value)
			if err != nil {
				return nil, err
			}
			wf.Triggers = triggers
		case "jobs":
			jobs, err := buildJobs(f.value)
			if err != nil {
				return nil, err
			}
			wf.Jobs = jobs
		}
	}
	wf.reindex()
	return wf, nil
}

// ---------------------------------------------------------------------------
// Triggers
// ---------------------------------------------------------------------------

func buildTriggers(n *yaml.Node) ([]Trigger, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return []Trigger{{Event: n.Value, Pos: nodePos(n)}}, nil

	case yaml.SequenceNode:
		seen := map[string]bool{}
		triggers := make([]Trigger, 0, len(n.Content))
		for i, item := range n.Content {
			item = resolve(item)
			if seen[item.Value] {
				return nil, newParseError(fmt.Sprintf("on[%d]", i), nodePos(item), "event %q is listed more than once", item.Value)
			}
			seen[item.Value] = true
			triggers = append(triggers, Trigger{Event: item.Value, Pos: nodePos(item)})
		}
		return triggers, nil

	case yaml.MappingNode:
		var triggers []Trigger
		for _, f := range fields(n) {
			t := Trigger{Event: f.key.Value, Pos: nodePos(f.key)}
			if v := resolve(f.value); v.Kind == yaml.MappingNode {
				if err := applyFilters(&t, v, "on."+f.key.Value); err != nil {
					return nil, err
				}
			}
			triggers = append(triggers, t)
		}
		return triggers, nil
	}
	return nil, newParseError("on", nodePos(n), "must be an event name, a list of event names or a mapping of events")
}

func applyFilters(t *Trigger, n *yaml.Node, path string) error {
	for _, f := range fields(n) {
		var target *[]string
		switch f.key.Value {
		case "branches":
			target = &t.Branches
		case "branches-ignore":
			target = &t.BranchesIgnore
		case "tags":
			target = &t.Tags
		case "tags-ignore":
			target = &t.TagsIgnore
		case "paths":
			target = &t.Paths
		case "paths-ignore":
			target = &t.PathsIgnore
		case "types":
			target = &t.Types
		default:
			continue
		}
		*target = stringList(f.value)
	}

	for _, pair := range [][2]string{{"branches", "branches-ignore"}, {"tags", "tags-ignore"}, {"paths", "paths-ignore"}} {
		if lookup(n, pair[0]) != nil && lookup(n, pair[1]) != nil {
			return newParseError(path, nodePos(n), "%s and %s cannot be used together for the same event", pair[0], pair[1])
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func buildJobs(n *yaml.Node) ([]*Job, error) {
	var jobs []*Job
	for _, f := range fields(resolve(n)) {
		job, err := buildJob(f.key, resolve(f.value))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func buildJob(key, n *yaml.Node) (*Job, error) {
	job := &Job{ID: key.Value, Pos: nodePos(key), RunsOn: expr.Null()}
	path := "jobs." + job.ID
	if n.Kind != yaml.MappingNode {
		return nil, newParseError(path, nodePos(n), "job must be a mapping")
	}
	for _, f := range fields(n) {
		switch f.key.Value {
		case "name":
			job.Name = scalarText(f.value)
		case "needs":
			job.Needs = stringList(f.value)
		case "if":
			job.If = scalarText(f.value)
		case "runs-on":
			job.RunsOn = toValue(f.value)
		case "env":
			job.Env = pairs(f.value)
		case "outputs":
			job.Outputs = pairs(f.value)
		case "continue-on-error":
			job.ContinueOnError = scalarText(f.value)
		case "uses":
			job.Uses = scalarText(f.value)
		case "with":
			job.With = pairs(f.value)
		case "strategy":
			strategy, err := buildStrategy(f.value, path+".strategy")
			if err != nil {
				return nil, err
			}
			job.Strategy = strategy
		case "steps":
			for i, item := range resolve(f.value).Content {
				job.Steps = append(job.Steps, buildStep(i, resolve(item)))
			}
		}
	}
	return job, nil
}

func buildStrategy(n *yaml.Node, path string) (*Strategy, error) {
	s := &Strategy{}
	for _, f := range fields(resolve(n)) {
		switch f.key.Value {
		case "fail-fast":
			s.FailFast = scalarText(f.value)
		case "max-parallel":
			s.MaxParallel = scalarText(f.value)
		case "matrix":
			m, err := buildMatrix(resolve(f.value), path+".matrix")
			if err != nil {
				return nil, err
			}
			s.Matrix = m
		}
	}
	return s, nil
}

func buildMatrix(n *yaml.Node, path string) (*Matrix, error) {
	m := &Matrix{}
	if n.Kind == yaml.ScalarNode {
		m.Expr = n.Value
		return m, nil
	}
	for _, f := range fields(n) {
		v := resolve(f.value)
		switch f.key.Value {
		case "include", "exclude":
			var objs []*expr.Object
			var exprText string
			if v.Kind == yaml.ScalarNode {
				exprText = v.Value
			} else {
				for _, item := range v.Content {
					objs = append(objs, toValue(item).Object())
				}
			}
			if f.key.Value == "include" {
				m.Include, m.IncludeExpr = objs, exprText
			} else {
				m.Exclude, m.ExcludeExpr = objs, exprText
			}
		default:
			axis := Axis{Name: f.key.Value}
			if v.Kind == yaml.ScalarNode {
				axis.Expr = v.Value
			} else {
				if len(v.Content) == 0 {
					return nil, newParseError(path+"."+axis.Name, nodePos(v), "matrix axis %q has no values", axis.Name)
				}
				for _, item := range v.Content {
					axis.Values = append(axis.Values, toValue(item))
				}
			}
			m.Axes = append(m.Axes, axis)
		}
	}
	return m, nil
}

func buildStep(index int, n *yaml.Node) Step {
	step := Step{Index: index, Pos: nodePos(n)}
	for _, f := range fields(n) {
		switch f.key.Value {
		case "id":
			step.ID = scalarText(f.value)
		case "name":
			step.Name = scalarText(f.value)
		case "run":
			step.Run = scalarText(f.value)
		case "uses":
			step.Uses = scalarText(f.value)
		case "if":
			step.If = scalarText(f.value)
		case "shell":
			step.Shell = scalarText(f.value)
		case "with":
			step.With = pairs(f.value)
		case "env":
			step.Env = pairs(f.value)
		case "continue-on-error":
			step.ContinueOnError = scalarText(f.value)
		}
	}
	return step
}

// ---------------------------------------------------------------------------
// yaml.Node helpers
// ---------------------------------------------------------------------------

type field struct {
	key, value *yaml.Node
}

// resolve unwraps document and alias nodes.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func fields(n *yaml.Node) []field {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]field, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, field{key: resolve(n.Content[i]), value: n.Content[i+1]})
	}
	return out
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	for _, f := range fields(n) {
		if f.key.Value == key {
			return resolve(f.value)
		}
	}
	return nil
}

func nodePos(n *yaml.Node) Position {
	if n == nil {
		return Position{}
	}
	return Position{Line: n.Line, Column: n.Column}
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "unknown node"
	}
}

// scalarText returns the literal text of a scalar; null becomes "".
func scalarText(n *yaml.Node) string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return ""
	}
	return n.Value
}

// stringList reads a scalar or a sequence of scalars. The result is non-nil
// so that "declared but empty" stays distinguishable from "not declared".
func stringList(n *yaml.Node) []string {
	n = resolve(n)
	if n == nil {
		return []string{}
	}
	if n.Kind == yaml.ScalarNode {
		if n.ShortTag() == "!!null" {
			return []string{}
		}
		return []string{n.Value}
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		out = append(out, scalarText(item))
	}
	return out
}

func pairs(n *yaml.Node) Pairs {
	var out Pairs
	for _, f := range fields(resolve(n)) {
		out = append(out, Pair{Key: f.key.Value, Value: scalarText(f.value)})
	}
	return out
}

// toValue converts a node into an expression value with mapping keys kept in
// document order.
func toValue(n *yaml.Node) expr.Value {
	n = resolve(n)
	if n == nil {
		return expr.Null()
	}
	switch n.Kind {
	case yaml.MappingNode:
		obj := expr.NewObject()
		for _, f := range fields(n) {
			obj.Set(f.key.Value, toValue(f.value))
		}
		return expr.ObjectOf(obj)
	case yaml.SequenceNode:
		items := make([]expr.Value, 0, len(n.Content))
		for _, item := range n.Content {
			items = append(items, toValue(item))
		}
		return expr.ArrayOf(items...)
	case yaml.ScalarNode:
		return expr.FromGo(scalarAny(n))
	default:
		return expr.Null()
	}
}

// scalarAny decodes a scalar to its natural Go type.
func scalarAny(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool", "!!int", "!!float":
		var v any
		if err := n.Decode(&v); err == nil {
			return v
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return f
		}
	}
	return n.Value
}

// toGeneric converts a node into plain maps, slices and scalars for schema
// validation.
func toGeneric(n *yaml.Node) any {
	n = resolve(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for _, f := range fields(n) {
			m[f.key.Value] = toGeneric(f.value)
		}
		return m
	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			s = append(s, toGeneric(item))
		}
		return s
	case yaml.ScalarNode:
		return scalarAny(n)
	default:
		return nil
	}
}

// checkDuplicateKeys rejects mappings that declare the same key twice.
func checkDuplicateKeys(n *yaml.Node, path string) error {
	n = resolve(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		seen := make(map[string]int, len(n.Content)/2)
		for _, f := range fields(n) {
			key := f.key.Value
			if first, ok := seen[key]; ok {
				what := "key"
				if path == "jobs" {
					what = "job id"
				}
				return newParseError(joinPath(path, key), nodePos(f.key),
					"duplicate %s %q (first defined at line %d)", what, key, first)
			}
			seen[key] = f.key.Line
			if err := checkDuplicateKeys(f.value, joinPath(path, key)); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			if err := checkDuplicateKeys(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxExpandedNodes bounds the size of the document once aliases are
// expanded. The node walkers below follow aliases, so a document must be
// finite and small after expansion before any of them run.
const maxExpandedNodes = 100_000

// aliasWalker expands aliases depth first, tracking the nodes on the
// current path.
type aliasWalker struct {
	onPath  map[*yaml.Node]bool
	visited int
}

// checkAliases rejects aliases that refer to one of their own ancestors and
// documents whose alias expansion exceeds maxExpandedNodes.
func checkAliases(root *yaml.Node) error {
	w := &aliasWalker{onPath: make(map[*yaml.Node]bool)}
	return w.walk(root)
}

func (w *aliasWalker) walk(n *yaml.Node) error {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return nil
		}
		if w.onPath[n.Alias] {
			return newParseError("", nodePos(n), "alias *%s refers to a node that contains it", n.Value)
		}
		n = n.Alias
	}
	w.visited++
	if w.visited > maxExpandedNodes {
		return newParseError("", nodePos(n), "document expands to more than %d nodes through aliases", maxExpandedNodes)
	}

	w.onPath[n] = true
	defer delete(w.onPath, n)
	for _, child := range n.Content {
		if err := w.walk(child); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
