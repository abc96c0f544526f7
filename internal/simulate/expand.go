package simulate

import (
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/expr"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// maxMatrixProduct bounds the Cartesian product built before exclude runs.
const maxMatrixProduct = 1 << 16

// instance is one expanded copy of a job: a single matrix combination, or
// the job itself when it has no matrix.
type instance struct {
	id     string
	job    *workflow.Job
	jobIdx int

	// matrix is the combination in axis order; nil without a matrix.
	matrix *expr.Object

	// index and total locate the instance among its job's instances.
	index int
	total int

	// needs holds the positions of the instances this one depends on.
	needs []int
}

// expandJob turns job into its instances. ctx supplies the github, env,
// inputs and vars contexts that matrix expressions may reference.
func (e *Engine) expandJob(job *workflow.Job, jobIdx int, ctx *expr.Context) ([]*instance, error) {
	if job.Strategy == nil || job.Strategy.Matrix == nil {
		return []*instance{{id: job.ID, job: job, jobIdx: jobIdx, total: 1}}, nil
	}

	path := "jobs." + job.ID + ".strategy.matrix"
	combos, err := e.combinations(job.Strategy.Matrix, ctx, path)
	if err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, &workflow.ParseError{
			Path: path, Line: job.Pos.Line, Column: job.Pos.Column,
			Message: "matrix produces no combinations",
		}
	}
	if len(combos) > e.maxMatrix {
		return nil, &workflow.ParseError{
			Path: path, Line: job.Pos.Line, Column: job.Pos.Column,
			Message: fmt.Sprintf("matrix produces %d combinations, more than the limit of %d", len(combos), e.maxMatrix),
		}
	}

	out := make([]*instance, len(combos))
	used := make(map[string]int, len(combos))
	for i, combo := range combos {
		id := instanceID(job.ID, combo)
		used[id]++
		if n := used[id]; n > 1 {
			id = fmt.Sprintf("%s %d", id, n)
		}
		out[i] = &instance{id: id, job: job, jobIdx: jobIdx, matrix: combo, index: i, total: len(combos)}
	}
	return out, nil
}

// instanceID formats "base (v1, v2)".
func instanceID(base string, combo *expr.Object) string {
	keys := combo.Keys()
	if len(keys) == 0 {
		return base
	}
	vals := make([]string, len(keys))
	for i, k := range keys {
		v, _ := combo.Get(k)
		vals[i] = v.String()
	}
	return base + " (" + strings.Join(vals, ", ") + ")"
}

// combinations computes the matrix combinations: the Cartesian product of
// the axes, minus excluded combinations, plus include entries.
func (e *Engine) combinations(m *workflow.Matrix, ctx *expr.Context, path string) ([]*expr.Object, error) {
	axes := m.Axes
	include, exclude := m.Include, m.Exclude

	if m.Expr != "" {
		var err error
		axes, include, exclude, err = matrixFromExpr(m.Expr, ctx, path)
		if err != nil {
			return nil, err
		}
	} else {
		resolved := make([]workflow.Axis, len(axes))
		for i, ax := range axes {
			resolved[i] = ax
			if ax.Expr == "" {
				continue
			}
			v, err := expr.Interpolate(ax.Expr, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", path, ax.Name, err)
			}
			arr := v.Array()
			if arr == nil {
				return nil, &workflow.ParseError{
					Path:    path + "." + ax.Name,
					Message: fmt.Sprintf("matrix axis must evaluate to an array, got %s", v.Kind()),
				}
			}
			resolved[i].Values = arr.Items()
		}
		axes = resolved

		var err error
		if m.IncludeExpr != "" {
			if include, err = objectList(m.IncludeExpr, ctx, path+".include"); err != nil {
				return nil, err
			}
		}
		if m.ExcludeExpr != "" {
			if exclude, err = objectList(m.ExcludeExpr, ctx, path+".exclude"); err != nil {
				return nil, err
			}
		}
	}

	// The configured limit applies after exclude and include; the raw
	// product only has to stay buildable.
	guard := max(e.maxMatrix, maxMatrixProduct)
	size := 1
	for _, ax := range axes {
		size *= len(ax.Values)
		if size > guard {
			return nil, &workflow.ParseError{
				Path:    path,
				Message: fmt.Sprintf("matrix product exceeds %d combinations before exclude", guard),
			}
		}
	}

	combos := product(axes)
	combos = applyExclude(combos, exclude)
	return applyInclude(combos, include, axes), nil
}

func product(axes []workflow.Axis) []*expr.Object {
	if len(axes) == 0 {
		return nil
	}
	combos := []*expr.Object{expr.NewObject()}
	for _, ax := range axes {
		next := make([]*expr.Object, 0, len(combos)*len(ax.Values))
		for _, c := range combos {
			for _, v := range ax.Values {
				nc := c.Clone()
				nc.Set(ax.Name, v)
				next = append(next, nc)
			}
		}
		combos = next
	}
	return combos
}

// applyExclude drops every combination that agrees with an exclude entry on
// all of the entry's keys.
func applyExclude(combos, exclude []*expr.Object) []*expr.Object {
	if len(exclude) == 0 {
		return combos
	}
	out := combos[:0:0]
	for _, c := range combos {
		excluded := false
		for _, ex := range exclude {
			if subset(ex, c) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, c)
		}
	}
	return out
}

// applyInclude merges each include entry into every original combination it
// does not contradict on an axis value. An entry that fits no original
// combination becomes a combination of its own.
func applyInclude(combos, include []*expr.Object, axes []workflow.Axis) []*expr.Object {
	isAxis := make(map[string]bool, len(axes))
	for _, ax := range axes {
		isAxis[strings.ToLower(ax.Name)] = true
	}
	original := len(combos)

	for _, inc := range include {
		added := false
		for _, c := range combos[:original] {
			fits := true
			for _, k := range inc.Keys() {
				if !isAxis[strings.ToLower(k)] {
					continue
				}
				want, _ := inc.Get(k)
				have, _ := c.Get(k)
				if !expr.Equal(want, have) {
					fits = false
					break
				}
			}
			if !fits {
				continue
			}
			for _, k := range inc.Keys() {
				v, _ := inc.Get(k)
				c.Set(k, v)
			}
			added = true
		}
		if !added {
			combos = append(combos, inc.Clone())
		}
	}
	return combos
}

// subset reports whether every key of part is present in whole with an equal
// value.
func subset(part, whole *expr.Object) bool {
	for _, k := range part.Keys() {
		want, _ := part.Get(k)
		have, ok := whole.Get(k)
		if !ok || !expr.Equal(want, have) {
			return false
		}
	}
	return true
}

// matrixFromExpr evaluates a matrix given as a single expression, typically
// fromJSON(...), and splits it into axes and include/exclude lists.
func matrixFromExpr(src string, ctx *expr.Context, path string) (axes []workflow.Axis, include, exclude []*expr.Object, err error) {
	v, err := expr.Interpolate(src, ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	obj := v.Object()
	if obj == nil {
		return nil, nil, nil, &workflow.ParseError{
			Path:    path,
			Message: fmt.Sprintf("matrix must evaluate to an object, got %s", v.Kind()),
		}
	}
	for _, k := range obj.Keys() {
		val, _ := obj.Get(k)
		switch strings.ToLower(k) {
		case "include":
			if include, err = toObjects(val, path+".include"); err != nil {
				return nil, nil, nil, err
			}
		case "exclude":
			if exclude, err = toObjects(val, path+".exclude"); err != nil {
				return nil, nil, nil, err
			}
		default:
			arr := val.Array()
			if arr == nil {
				return nil, nil, nil, &workflow.ParseError{
					Path:    path + "." + k,
					Message: fmt.Sprintf("matrix axis must be an array, got %s", val.Kind()),
				}
			}
			if arr.Len() == 0 {
				return nil, nil, nil, &workflow.ParseError{
					Path:    path + "." + k,
					Message: fmt.Sprintf("matrix axis %q has no values", k),
				}
			}
			axes = append(axes, workflow.Axis{Name: k, Values: arr.Items()})
		}
	}
	return axes, include, exclude, nil
}

func objectList(src string, ctx *expr.Context, path string) ([]*expr.Object, error) {
	v, err := expr.Interpolate(src, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return toObjects(v, path)
}

func toObjects(v expr.Value, path string) ([]*expr.Object, error) {
	arr := v.Array()
	if arr == nil {
		return nil, &workflow.ParseError{Path: path, Message: fmt.Sprintf("must be an array of mappings, got %s", v.Kind())}
	}
	out := make([]*expr.Object, 0, arr.Len())
	for i, item := range arr.Items() {
		obj := item.Object()
		if obj == nil {
			return nil, &workflow.ParseError{
				Path:    fmt.Sprintf("%s[%d]", path, i),
				Message: fmt.Sprintf("must be a mapping, got %s", item.Kind()),
			}
		}
		out = append(out, obj)
	}
	return out, nil
}
