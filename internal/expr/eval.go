package expr

import (
	"errors"
	"math"
)

// Status is the execution state the status functions report on.
type Status struct {
	// Success is what success() returns.
	Success bool
	// Failure is what failure() returns.
	Failure bool
	// Cancelled is what cancelled() returns.
	Cancelled bool
}

// Context holds the named values (github, env, matrix, needs, ...) visible to
// an expression together with the status the status functions report.
type Context struct {
	named  *Object
	status Status
}

// NewContext returns an empty context whose status reports success.
func NewContext() *Context {
	return &Context{named: NewObject(), status: Status{Success: true}}
}

// Set binds name to v. Names are case-insensitive.
func (c *Context) Set(name string, v Value) {
	c.named.Set(name, v)
}

// Lookup returns the value bound to name.
func (c *Context) Lookup(name string) (Value, bool) {
	return c.named.Get(name)
}

// Names returns the bound names in the order they were first set.
func (c *Context) Names() []string {
	return c.named.Keys()
}

// SetStatus replaces the status reported by success(), failure() and
// cancelled().
func (c *Context) SetStatus(s Status) {
	c.status = s
}

// Status returns the current status.
func (c *Context) Status() Status {
	return c.status
}

// Clone returns a copy that can be extended without affecting c. Bound values
// themselves are shared.
func (c *Context) Clone() *Context {
	out := &Context{named: NewObject(), status: c.status}
	for i, k := range c.named.keys {
		out.named.Set(k, c.named.values[i])
	}
	return out
}

// Evaluate parses and evaluates src against ctx.
func Evaluate(src string, ctx *Context) (Value, error) {
	e, err := Parse(src)
	if err != nil {
		return Null(), err
	}
	return e.Eval(ctx)
}

// Eval evaluates the expression against ctx. A nil ctx behaves like an empty
// context.
func (e *Expression) Eval(ctx *Context) (Value, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	ev := &evaluator{src: e.source, ctx: ctx}
	return ev.eval(e.root)
}

type evaluator struct {
	src string
	ctx *Context
}

func (ev *evaluator) eval(n node) (Value, error) {
	switch t := n.(type) {
	case *literalNode:
		return t.value, nil

	case *contextNode:
		v, ok := ev.ctx.Lookup(t.name)
		if !ok {
			return Null(), newError(ev.src, t.pos, "unrecognized named-value: '%s'", t.name)
		}
		return v, nil

	case *propertyNode:
		target, err := ev.eval(t.target)
		if err != nil {
			return Null(), err
		}
		return property(target, String(t.name)), nil

	case *indexNode:
		target, err := ev.eval(t.target)
		if err != nil {
			return Null(), err
		}
		index, err := ev.eval(t.index)
		if err != nil {
			return Null(), err
		}
		return property(target, index), nil

	case *filterNode:
		target, err := ev.eval(t.target)
		if err != nil {
			return Null(), err
		}
		return filter(target), nil

	case *notNode:
		v, err := ev.eval(t.operand)
		if err != nil {
			return Null(), err
		}
		return Bool(!v.Truthy()), nil

	case *binaryNode:
		return ev.binary(t)

	case *callNode:
		args := make([]Value, len(t.args))
		for i, a := range t.args {
			v, err := ev.eval(a)
			if err != nil {
				return Null(), err
			}
			args[i] = v
		}
		v, err := t.fn.call(ev.ctx, args)
		if err != nil {
			var exprErr *ExpressionError
			if errors.As(err, &exprErr) {
				return Null(), err
			}
			return Null(), newError(ev.src, t.pos, "%s: %v", t.fn.name, err)
		}
		return v, nil
	}
	return Null(), newError(ev.src, n.position(), "unsupported expression")
}

func (ev *evaluator) binary(n *binaryNode) (Value, error) {
	left, err := ev.eval(n.left)
	if err != nil {
		return Null(), err
	}
	switch n.op {
	case tokAnd:
		if !left.Truthy() {
			return left, nil
		}
		return ev.eval(n.right)
	case tokOr:
		if left.Truthy() {
			return left, nil
		}
		return ev.eval(n.right)
	}

	right, err := ev.eval(n.right)
	if err != nil {
		return Null(), err
	}
	switch n.op {
	case tokEq:
		return Bool(Equal(left, right)), nil
	case tokNe:
		return Bool(!Equal(left, right)), nil
	}

	cmp, ok := compare(left, right)
	if !ok {
		return Bool(false), nil
	}
	switch n.op {
	case tokLt:
		return Bool(cmp < 0), nil
	case tokLe:
		return Bool(cmp <= 0), nil
	case tokGt:
		return Bool(cmp > 0), nil
	case tokGe:
		return Bool(cmp >= 0), nil
	}
	return Null(), newError(ev.src, n.pos, "unsupported operator %s", n.op)
}

// property dereferences target by key. Objects are indexed by the string form
// of key, arrays by its integer part. Anything else yields null. On a filtered
// array the lookup is applied to every element and the non-null results are
// collected.
func property(target, key Value) Value {
	if target.kind == KindArray && target.filtered {
		var out []Value
		for _, item := range target.arr.items {
			if v := property(item, key); !v.IsNull() {
				out = append(out, v)
			}
		}
		res := ArrayOf(out...)
		res.filtered = true
		return res
	}
	switch target.kind {
	case KindObject:
		if key.kind == KindArray || key.kind == KindObject {
			return Null()
		}
		v, _ := target.obj.Get(key.String())
		return v
	case KindArray:
		idx := key.ToNumber()
		if math.IsNaN(idx) || math.IsInf(idx, 0) {
			return Null()
		}
		i := int(math.Trunc(idx))
		if i < 0 || i >= target.arr.Len() {
			return Null()
		}
		return target.arr.items[i]
	default:
		return Null()
	}
}

// filter implements `.*`: the values of an object or the elements of an
// array, as a filtered array. Applied to a filtered array it flattens one
// level.
func filter(target Value) Value {
	var out []Value
	switch {
	case target.kind == KindArray && target.filtered:
		for _, item := range target.arr.items {
			switch item.kind {
			case KindArray:
				out = append(out, item.arr.items...)
			case KindObject:
				out = append(out, item.obj.values...)
			}
		}
	case target.kind == KindArray:
		out = append(out, target.arr.items...)
	case target.kind == KindObject:
		out = append(out, target.obj.values...)
	}
	res := ArrayOf(out...)
	res.filtered = true
	return res
}
