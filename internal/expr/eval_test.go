package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// testContext returns a context with github, env and matrix bound to small
// fixtures.
func testContext() *Context {
	ctx := NewContext()

	github := NewObject()
	github.Set("event_name", String("push"))
	github.Set("ref", String("refs/heads/main"))
	github.Set("ref_name", String("main"))
	event := NewObject()
	event.Set("forced", Bool(false))
	github.Set("event", ObjectOf(event))
	ctx.Set("github", ObjectOf(github))

	env := NewObject()
	env.Set("MODE", String("release"))
	env.Set("COUNT", String("3"))
	ctx.Set("env", ObjectOf(env))

	matrix := NewObject()
	matrix.Set("os", String("ubuntu-latest"))
	matrix.Set("node", Number(20))
	ctx.Set("matrix", ObjectOf(matrix))

	return ctx
}

func mustEval(t *testing.T, src string, ctx *Context) Value {
	t.Helper()
	v, err := Evaluate(src, ctx)
	require.NoError(t, err, "evaluating %q", src)
	return v
}

// ---------------------------------------------------------------------------
// Literals and operators
// ---------------------------------------------------------------------------

func TestEvaluate_Literals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want Value
	}{
		{"null", Null()},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Number(42)},
		{"-2.5", Number(-2.5)},
		{"0xff", Number(255)},
		{"1e3", Number(1000)},
		{"'hello'", String("hello")},
		{"'it''s'", String("it's")},
		{"''", String("")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got := mustEval(t, tt.src, nil)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestEvaluate_LooseEquality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want bool
	}{
		{"1 == '1'", true},
		{"'1' == 1", true},
		{"1 == '1.0'", true},
		{"0 == ''", true},
		{"0 == ' '", true},
		{"null == 0", true},
		{"null == ''", true},
		{"null == false", true},
		{"true == 1", true},
		{"true == '1'", true},
		{"false == '0'", true},
		{"true == 'true'", false},
		{"'abc' == 'ABC'", true},
		{"'refs/heads/main' == 'main'", false},
		{"'abc' != 'abd'", true},
		{"1 == 'one'", false},
		{"'0x10' == 16", true},
		{"null == null", true},
		{"github == github", true},
		{"github == env", false},
		{"github == 'Object'", false},
	}
	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got := mustEval(t, tt.src, ctx)
			require.Equal(t, KindBool, got.Kind())
			assert.Equal(t, tt.want, got.BoolValue())
		})
	}
}

func TestEvaluate_Relational(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > '2'", true},
		{"'10' > 9", true},
		{"'a' < 'B'", true},
		{"'b' >= 'B'", true},
		{"'abc' < 1", false},
		{"'abc' >= 1", false},
		{"null < 1", true},
		{"true > false", true},
		{"github < 1", false},
	}
	ctx := testContext()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got := mustEval(t, tt.src, ctx)
			assert.Equal(t, tt.want, got.BoolValue())
		})
	}
}

func TestEvaluate_LogicalReturnsDecidingOperand(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	assert.Equal(t, "fallback", mustEval(t, "'' || 'fallback'", ctx).String())
	assert.Equal(t, "first", mustEval(t, "'first' || 'fallback'", ctx).String())
	assert.Equal(t, KindNumber, mustEval(t, "0 && 'x'", ctx).Kind())
	assert.Equal(t, "x", mustEval(t, "1 && 'x'", ctx).String())
	assert.Equal(t, "ubuntu", mustEval(t, "matrix.os == 'ubuntu-latest' && 'ubuntu' || 'other'", ctx).String())
}

func TestEvaluate_ShortCircuitSkipsErrors(t *testing.T) {
	t.Parallel()

	// fromJSON('') fails, but the right side is never evaluated.
	v := mustEval(t, "false && fromJSON('')", nil)
	assert.False(t, v.Truthy())
	v = mustEval(t, "true || fromJSON('')", nil)
	assert.True(t, v.Truthy())
}

func TestEvaluate_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want bool
	}{
		{"true || false && false", true},
		{"(true || false) && false", false},
		{"!false == true", true},
		{"!(1 == 2)", true},
		{"1 < 2 == true", true},
		{"!!'x'", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mustEval(t, tt.src, nil).Truthy())
		})
	}
}

// ---------------------------------------------------------------------------
// Property access
// ---------------------------------------------------------------------------

func TestEvaluate_PropertyAccess(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	assert.Equal(t, "push", mustEval(t, "github.event_name", ctx).String())
	assert.Equal(t, "push", mustEval(t, "GITHUB.EVENT_NAME", ctx).String())
	assert.Equal(t, "main", mustEval(t, "github['ref_name']", ctx).String())
	assert.Equal(t, "release", mustEval(t, "env.mode", ctx).String())
	assert.Equal(t, float64(20), mustEval(t, "matrix.node", ctx).NumberValue())
	assert.True(t, mustEval(t, "github.missing", ctx).IsNull())
	assert.True(t, mustEval(t, "github.missing.deeper", ctx).IsNull())
	assert.True(t, mustEval(t, "github.event_name.length", ctx).IsNull())
	assert.False(t, mustEval(t, "github.event.forced", ctx).Truthy())
}

func TestEvaluate_ArrayIndexAndFilter(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	a := NewObject()
	a.Set("name", String("one"))
	b := NewObject()
	b.Set("name", String("two"))
	c := NewObject()
	c.Set("other", String("x"))
	ctx.Set("items", ArrayOf(ObjectOf(a), ObjectOf(b), ObjectOf(c)))

	assert.Equal(t, "two", mustEval(t, "items[1].name", ctx).String())
	assert.Equal(t, "two", mustEval(t, "items['1'].name", ctx).String())
	assert.True(t, mustEval(t, "items[7]", ctx).IsNull())
	assert.True(t, mustEval(t, "items[-1]", ctx).IsNull())

	names := mustEval(t, "items.*.name", ctx)
	require.Equal(t, KindArray, names.Kind())
	require.Equal(t, 2, names.Array().Len())
	assert.Equal(t, "one", names.Array().At(0).String())
	assert.Equal(t, "two", names.Array().At(1).String())

	assert.True(t, mustEval(t, "contains(items.*.name, 'two')", ctx).BoolValue())
	assert.Equal(t, "one,two", mustEval(t, "join(items.*.name)", ctx).String())
}

func TestEvaluate_UnknownContext(t *testing.T) {
	t.Parallel()

	_, err := Evaluate("nope.value", testContext())
	require.Error(t, err)

	var exprErr *ExpressionError
	require.True(t, errors.As(err, &exprErr))
	assert.Equal(t, 1, exprErr.Position)
	assert.Contains(t, exprErr.Message, "nope")
}

// ---------------------------------------------------------------------------
// Parse errors
// ---------------------------------------------------------------------------

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"unclosed call", "contains("},
		{"unclosed call with arg", "contains('a', 'b'"},
		{"unknown function", "bogus()"},
		{"too few args", "contains('a')"},
		{"too many args", "success(1)"},
		{"single equals", "a = b"},
		{"single ampersand", "a & b"},
		{"unterminated string", "'abc"},
		{"dangling operator", "1 =="},
		{"trailing token", "1 2"},
		{"bad property", "github.'x'"},
		{"unclosed paren", "(1 == 1"},
		{"unclosed bracket", "github['x'"},
		{"bad number", "12abc"},
		{"stray symbol", "1 # 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.src)
			require.Error(t, err)
			var exprErr *ExpressionError
			assert.True(t, errors.As(err, &exprErr), "want *ExpressionError, got %T", err)
		})
	}
}

func TestParse_NestingLimit(t *testing.T) {
	t.Parallel()

	src := ""
	for range maxDepth + 5 {
		src += "("
	}
	src += "1"
	for range maxDepth + 5 {
		src += ")"
	}
	_, err := Parse(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting depth")
}

func TestExpression_UsesStatusFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want bool
	}{
		{"success()", true},
		{"always() && github.ref == 'x'", true},
		{"!cancelled()", true},
		{"contains(format('{0}', failure()), 'true')", true},
		{"github.ref == 'refs/heads/main'", false},
		{"contains(github.ref, 'main')", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.UsesStatusFunction())
		})
	}
}

func TestExpression_References(t *testing.T) {
	t.Parallel()

	e, err := Parse("needs.build.result == 'success' && matrix.os != env.OS && NEEDS.x")
	require.NoError(t, err)
	assert.Equal(t, []string{"needs", "matrix", "env"}, e.References())
}

// ---------------------------------------------------------------------------
// Context
// ---------------------------------------------------------------------------

func TestContext_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	base := NewContext()
	base.Set("env", String("base"))

	clone := base.Clone()
	clone.Set("env", String("clone"))
	clone.Set("extra", Bool(true))
	clone.SetStatus(Status{Failure: true})

	v, _ := base.Lookup("env")
	assert.Equal(t, "base", v.String())
	_, ok := base.Lookup("extra")
	assert.False(t, ok)
	assert.True(t, base.Status().Success)
	assert.Equal(t, []string{"env", "extra"}, clone.Names())
}

func TestValue_ToNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float64(0), String("").ToNumber())
	assert.Equal(t, float64(0), String("  ").ToNumber())
	assert.Equal(t, float64(12), String(" 12 ").ToNumber())
	assert.Equal(t, float64(8), String("0o10").ToNumber())
	assert.True(t, math.IsInf(String("Infinity").ToNumber(), 1))
	assert.True(t, math.IsNaN(String("inf").ToNumber()))
	assert.True(t, math.IsNaN(String("abc").ToNumber()))
	assert.True(t, math.IsNaN(ArrayOf().ToNumber()))
	assert.Equal(t, float64(1), Bool(true).ToNumber())
	assert.Equal(t, float64(0), Null().ToNumber())
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Null().String())
	assert.Equal(t, "3", Number(3).String())
	assert.Equal(t, "3.5", Number(3.5).String())
	assert.Equal(t, "-0.25", Number(-0.25).String())
	assert.Equal(t, "NaN", Number(math.NaN()).String())
	assert.Equal(t, "Array", ArrayOf().String())
	assert.Equal(t, "Object", ObjectOf(nil).String())
}

func TestValue_Truthy(t *testing.T) {
	t.Parallel()

	for _, v := range []Value{Null(), Bool(false), Number(0), Number(math.NaN()), String("")} {
		assert.False(t, v.Truthy(), "%v should be falsy", v)
	}
	for _, v := range []Value{Bool(true), Number(-1), String("0"), String("false"), ArrayOf(), ObjectOf(nil)} {
		assert.True(t, v.Truthy(), "%v should be truthy", v)
	}
}

func TestFromGo_SortsMapKeys(t *testing.T) {
	t.Parallel()

	v := FromGo(map[string]any{"b": 1, "a": []any{"x", true}, "c": nil})
	require.Equal(t, KindObject, v.Kind())
	assert.Equal(t, []string{"a", "b", "c"}, v.Object().Keys())

	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":["x",true],"b":1,"c":null}`, string(data))
}

func TestObject_CloneAndMarshal(t *testing.T) {
	t.Parallel()

	o := NewObject()
	o.Set("z", Number(1))
	o.Set("a", String("x"))

	c := o.Clone()
	c.Set("Z", Number(2))
	c.Set("m", Bool(true))

	v, _ := o.Get("z")
	assert.Equal(t, float64(1), v.NumberValue())
	assert.Equal(t, []string{"z", "a"}, o.Keys())

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":2,"a":"x","m":true}`, string(data))
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	v, err := ParseJSON([]byte(`{"b":[1,true,null],"a":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, v.Object().Keys())
	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1,true,null],"a":"x"}`, string(data))

	_, err = ParseJSON([]byte(`{"a":1} {}`))
	assert.Error(t, err)
	_, err = ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)
}
