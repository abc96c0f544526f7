package expr

import (
	"errors"
	"fmt"
	"sort"
)

var errTrailingJSON = errors.New("unexpected trailing data")

// ExpressionError reports an expression that could not be parsed or
// evaluated. Position is the 1-based byte column of the offending token
// within Expression, or 0 when no single token is to blame.
type ExpressionError struct {
	Expression string
	Position   int
	Message    string
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("expression %q: %s (at position %d)", e.Expression, e.Message, e.Position)
	}
	return fmt.Sprintf("expression %q: %s", e.Expression, e.Message)
}

func newError(src string, pos int, format string, args ...any) *ExpressionError {
	return &ExpressionError{
		Expression: src,
		Position:   pos,
		Message:    fmt.Sprintf(format, args...),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
