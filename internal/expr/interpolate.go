package expr

import (
	"strings"
)

const (
	openDelim  = "${{"
	closeDelim = "}}"
)

// span is one ${{ }} occurrence: text[start:end] is the whole span and inner
// is the expression between the delimiters.
type span struct {
	start, end int
	inner      string
}

// ContainsExpression reports whether s has at least one ${{ opener.
func ContainsExpression(s string) bool {
	return strings.Contains(s, openDelim)
}

// findSpans locates every ${{ }} span in text. A }} inside a single-quoted
// string literal does not close the span.
func findSpans(text string) ([]span, error) {
	var spans []span
	i := 0
	for {
		rel := strings.Index(text[i:], openDelim)
		if rel < 0 {
			return spans, nil
		}
		start := i + rel
		j := start + len(openDelim)
		inString := false
		closed := false
		for j < len(text) {
			c := text[j]
			if c == '\'' {
				inString = !inString
				j++
				continue
			}
			if !inString && strings.HasPrefix(text[j:], closeDelim) {
				closed = true
				break
			}
			j++
		}
		if !closed {
			return nil, newError(text, start+1, "unterminated expression: missing '}}'")
		}
		spans = append(spans, span{
			start: start,
			end:   j + len(closeDelim),
			inner: text[start+len(openDelim) : j],
		})
		i = j + len(closeDelim)
	}
}

// Interpolate evaluates every ${{ }} span in text. When text consists of
// exactly one span, surrounding whitespace aside, the typed result is
// returned; otherwise the spans are replaced by their string forms and the
// result is a string. Text without spans is returned unchanged.
func Interpolate(text string, ctx *Context) (Value, error) {
	spans, err := findSpans(text)
	if err != nil {
		return Null(), err
	}
	if len(spans) == 0 {
		return String(text), nil
	}
	trimmed := strings.TrimSpace(text)
	if len(spans) == 1 && len(trimmed) == spans[0].end-spans[0].start {
		return Evaluate(spans[0].inner, ctx)
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp.start])
		v, err := Evaluate(sp.inner, ctx)
		if err != nil {
			return Null(), err
		}
		b.WriteString(v.String())
		last = sp.end
	}
	b.WriteString(text[last:])
	return String(b.String()), nil
}

// InterpolateString is Interpolate followed by conversion to string.
func InterpolateString(text string, ctx *Context) (string, error) {
	v, err := Interpolate(text, ctx)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Condition evaluates an `if:` value. An empty condition means success().
// The text may be a bare expression or wrapped in ${{ }}; text mixing spans
// with literal characters is interpolated and judged by the truthiness of the
// resulting string. Unless the condition calls a status function it is
// implicitly gated by success().
func Condition(text string, ctx *Context) (bool, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		v, _ := fnSuccess(ctx, nil)
		return v.Truthy(), nil
	}

	spans, err := findSpans(text)
	if err != nil {
		return false, err
	}

	switch {
	case len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(text):
		return gatedCondition(spans[0].inner, ctx)
	case len(spans) == 0:
		return gatedCondition(text, ctx)
	}

	usesStatus := false
	for _, sp := range spans {
		e, err := Parse(sp.inner)
		if err != nil {
			return false, err
		}
		usesStatus = usesStatus || e.UsesStatusFunction()
	}
	if ok, _ := fnSuccess(ctx, nil); !usesStatus && !ok.Truthy() {
		return false, nil
	}
	v, err := Interpolate(text, ctx)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func gatedCondition(src string, ctx *Context) (bool, error) {
	e, err := Parse(src)
	if err != nil {
		return false, err
	}
	if !e.UsesStatusFunction() {
		if ok, _ := fnSuccess(ctx, nil); !ok.Truthy() {
			return false, nil
		}
	}
	v, err := e.Eval(ctx)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}
