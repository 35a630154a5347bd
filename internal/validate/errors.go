package validate

import "fmt"

// ParseError means the model output could not be decoded as JSON at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError means the output decoded but a required field is missing or empty.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Missing %s in AI response", e.Field)
}

// SyntaxError reports the first structural problem found in the refactored code.
// Line is 1-based and Column is 0-based, as reported by tree-sitter.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}
