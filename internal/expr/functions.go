package expr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	status  bool
	call    func(ctx *Context, args []Value) (Value, error)
}

var functions = map[string]*function{}

func init() {
	for _, fn := range []*function{
		{name: "contains", minArgs: 2, maxArgs: 2, call: fnContains},
		{name: "startsWith", minArgs: 2, maxArgs: 2, call: fnStartsWith},
		{name: "endsWith", minArgs: 2, maxArgs: 2, call: fnEndsWith},
		{name: "format", minArgs: 1, maxArgs: -1, call: fnFormat},
		{name: "join", minArgs: 1, maxArgs: 2, call: fnJoin},
		{name: "toJSON", minArgs: 1, maxArgs: 1, call: fnToJSON},
		{name: "fromJSON", minArgs: 1, maxArgs: 1, call: fnFromJSON},
		{name: "hashFiles", minArgs: 1, maxArgs: -1, call: fnHashFiles},
		{name: "success", maxArgs: 0, status: true, call: fnSuccess},
		{name: "failure", maxArgs: 0, status: true, call: fnFailure},
		{name: "always", maxArgs: 0, status: true, call: fnAlways},
		{name: "cancelled", maxArgs: 0, status: true, call: fnCancelled},
	} {
		functions[strings.ToLower(fn.name)] = fn
	}
}

// lookupFunction finds a builtin by case-insensitive name.
func lookupFunction(name string) (*function, bool) {
	fn, ok := functions[strings.ToLower(name)]
	return fn, ok
}

// FunctionNames returns the builtin function names in sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for _, k := range sortedKeys(functions) {
		names = append(names, functions[k].name)
	}
	return names
}

func fnContains(_ *Context, args []Value) (Value, error) {
	search, item := args[0], args[1]
	if search.kind == KindArray {
		for _, v := range search.arr.items {
			if Equal(v, item) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
	return Bool(strings.Contains(strings.ToLower(search.String()), strings.ToLower(item.String()))), nil
}

func fnStartsWith(_ *Context, args []Value) (Value, error) {
	return Bool(strings.HasPrefix(strings.ToLower(args[0].String()), strings.ToLower(args[1].String()))), nil
}

func fnEndsWith(_ *Context, args []Value) (Value, error) {
	return Bool(strings.HasSuffix(strings.ToLower(args[0].String()), strings.ToLower(args[1].String()))), nil
}

// fnFormat replaces {N} with the string form of argument N. Literal braces
// are written as {{ and }}.
func fnFormat(_ *Context, args []Value) (Value, error) {
	tmpl := args[0].String()
	params := args[1:]
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return Null(), fmt.Errorf("invalid format string %q", tmpl)
			}
			n, err := strconv.Atoi(tmpl[i+1 : i+end])
			if err != nil || n < 0 {
				return Null(), fmt.Errorf("invalid format string %q", tmpl)
			}
			if n >= len(params) {
				return Null(), fmt.Errorf("format string %q references argument %d but only %d were given", tmpl, n, len(params))
			}
			b.WriteString(params[n].String())
			i += end
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return Null(), fmt.Errorf("invalid format string %q", tmpl)
		default:
			b.WriteByte(c)
		}
	}
	return String(b.String()), nil
}

func fnJoin(_ *Context, args []Value) (Value, error) {
	sep := ","
	if len(args) > 1 {
		sep = args[1].String()
	}
	if args[0].kind != KindArray {
		return String(args[0].String()), nil
	}
	parts := make([]string, 0, args[0].arr.Len())
	for _, v := range args[0].arr.items {
		parts = append(parts, v.String())
	}
	return String(strings.Join(parts, sep)), nil
}

func fnToJSON(_ *Context, args []Value) (Value, error) {
	var buf bytes.Buffer
	writeJSON(&buf, args[0], "", "  ")
	return String(buf.String()), nil
}

func fnFromJSON(_ *Context, args []Value) (Value, error) {
	s := strings.TrimSpace(args[0].String())
	if s == "" {
		return Null(), errors.New("empty input")
	}
	v, err := parseJSON(s)
	if err != nil {
		return Null(), fmt.Errorf("invalid JSON %q: %w", s, err)
	}
	return v, nil
}

// fnHashFiles always yields the empty string: no workspace exists during a
// simulation.
func fnHashFiles(_ *Context, _ []Value) (Value, error) {
	return String(""), nil
}

func fnSuccess(ctx *Context, _ []Value) (Value, error) {
	return Bool(ctx.status.Success && !ctx.status.Cancelled), nil
}

func fnFailure(ctx *Context, _ []Value) (Value, error) {
	return Bool(ctx.status.Failure && !ctx.status.Cancelled), nil
}

func fnAlways(_ *Context, _ []Value) (Value, error) {
	return Bool(true), nil
}

func fnCancelled(ctx *Context, _ []Value) (Value, error) {
	return Bool(ctx.status.Cancelled), nil
}
