package irp

import "fmt"

// Pos is a source position within an IRP string, zero-based.
type Pos int

// ParseError reports bad IRP syntax: unknown tokens, unbalanced groups, or
// parameter counts exceeding the bitspec's addressable range.
type ParseError struct {
	Pos    Pos
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("irp: parse error at %d: %s", e.Pos, e.Reason)
}

// SemanticError reports well-formed IRP that violates a constraint: an
// unknown variable, a parameter out of its declared range, or a repeat
// group with impossible bounds.
type SemanticError struct {
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("irp: semantic error: %s", e.Reason)
}

func parseErrorf(pos Pos, format string, args ...any) error {
	return &ParseError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func semanticErrorf(format string, args ...any) error {
	return &SemanticError{Reason: fmt.Sprintf(format, args...)}
}
