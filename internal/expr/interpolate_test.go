package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	t.Parallel()

	ctx := testContext()

	tests := []struct {
		name     string
		text     string
		wantKind Kind
		want     string
	}{
		{"no spans", "plain text", KindString, "plain text"},
		{"single span keeps type", "${{ matrix.node }}", KindNumber, "20"},
		{"single span with whitespace", "  ${{ github.event.forced }}\n", KindBool, "false"},
		{"embedded span", "node-${{ matrix.node }}", KindString, "node-20"},
		{"two spans", "${{ matrix.os }}/${{ env.MODE }}", KindString, "ubuntu-latest/release"},
		{"null renders empty", "x${{ github.missing }}y", KindString, "xy"},
		{"closing braces in string literal", "${{ format('{0}}}', 'a') }}", KindString, "a}"},
		{"object renders as Object", "ctx: ${{ github.event }}", KindString, "ctx: Object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Interpolate(tt.text, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestInterpolate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"unterminated span", "value ${{ github.ref"},
		{"quote swallows close", "${{ 'abc }}"},
		{"bad expression", "${{ contains( }}"},
		{"unknown context", "${{ nope }}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Interpolate(tt.text, testContext())
			require.Error(t, err)
			var exprErr *ExpressionError
			assert.True(t, errors.As(err, &exprErr))
		})
	}
}

func TestInterpolateString(t *testing.T) {
	t.Parallel()

	s, err := InterpolateString("${{ matrix.node }}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "20", s)
}

func TestCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		status Status
		want   bool
	}{
		{"empty means success", "", Status{Success: true}, true},
		{"empty after failure", "", Status{Failure: true}, false},
		{"bare expression", "github.ref == 'refs/heads/main'", Status{Success: true}, true},
		{"wrapped expression", "${{ github.ref == 'refs/heads/main' }}", Status{Success: true}, true},
		{"false expression", "${{ github.event_name == 'pull_request' }}", Status{Success: true}, false},
		{"implicit success gate", "github.ref == 'refs/heads/main'", Status{Failure: true}, false},
		{"always overrides gate", "always() && github.ref == 'refs/heads/main'", Status{Failure: true}, true},
		{"failure runs after failure", "failure()", Status{Failure: true}, true},
		{"failure not after success", "${{ failure() }}", Status{Success: true}, false},
		{"mixed text is truthy string", "${{ false }} extra", Status{Success: true}, true},
		{"mixed text gated", "${{ true }} extra", Status{Failure: true}, false},
		{"mixed text with always", "${{ always() }} x", Status{Failure: true}, true},
		{"truthy string", "env.MODE", Status{Success: true}, true},
		{"falsy number", "0", Status{Success: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := testContext()
			ctx.SetStatus(tt.status)
			got, err := Condition(tt.text, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_GateSkipsEvaluation(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	ctx.SetStatus(Status{Failure: true})

	// The unknown context would error if it were evaluated.
	got, err := Condition("missing.value == 1", ctx)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCondition_ParseError(t *testing.T) {
	t.Parallel()

	_, err := Condition("${{ contains( }}", NewContext())
	require.Error(t, err)
	assert.IsType(t, &ExpressionError{}, err)
}
