package workflow

import (
	"fmt"
	"strings"
)

// SyntaxError reports a document that is not well-formed YAML.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
	default:
		return "syntax error: " + e.Message
	}
}

// Unwrap returns the underlying YAML error.
func (e *SyntaxError) Unwrap() error { return e.Err }

// ParseError reports a well-formed document that is not a valid workflow.
// Path is a dotted location such as `jobs.build.steps[0]`; it is empty for
// document-level problems.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid workflow")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

func newParseError(path string, pos Position, format string, args ...any) *ParseError {
	return &ParseError{
		Path:    path,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

// newSyntaxError converts a yaml.v3 error into a SyntaxError, pulling the
// location out of the message when present.
func newSyntaxError(err error) *SyntaxError {
	msg := err.Error()
	line, column := extractLineColumn(msg)

	msg = strings.TrimPrefix(msg, "yaml: ")
	if line > 0 {
		msg = strings.TrimPrefix(msg, fmt.Sprintf("line %d: ", line))
	}
	return &SyntaxError{Line: line, Column: column, Message: msg, Err: err}
}

func extractLineColumn(msg string) (line, column int) {
	if idx := strings.Index(msg, "line "); idx != -1 {
		_, _ = fmt.Sscanf(msg[idx:], "line %d", &line)
	}
	if idx := strings.Index(msg, "column "); idx != -1 {
		_, _ = fmt.Sscanf(msg[idx:], "column %d", &column)
	}
	return line, column
}
