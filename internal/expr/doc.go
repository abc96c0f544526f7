// Package expr implements the workflow expression language: the ${{ }}
// syntax used in `if:` conditions, `env:` values, step inputs and job
// outputs.
//
// Values are dynamically typed (null, boolean, number, string, array,
// object) and follow the platform's loose comparison rules: operands of
// different kinds are coerced to numbers before comparing, strings compare
// case-insensitively, and `&&` / `||` yield the deciding operand rather than
// a boolean.
//
// Parse compiles an expression once; Expression.Eval evaluates it against a
// Context. Interpolate and Condition handle text that embeds ${{ }} spans.
package expr
