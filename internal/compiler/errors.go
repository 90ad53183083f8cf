package compiler

import (
	"fmt"

	"github.com/loom-lang/loom/internal/bytecode"
)

// ErrorKind enumerates the ways compilation can fail, mirroring
// spec.md §7's CompileError taxonomy.
type ErrorKind uint8

const (
	ErrMissingLocal ErrorKind = iota
	ErrVariableConflict
	ErrUnsupportedAssignExpr
	ErrUnsupportedRef
	ErrUnsupportedUnaryOp
	ErrUnsupportedBinaryOp
	ErrBreakOutsideOfLoop
	ErrContinueOutsideOfLoop
	ErrBreakDoesNotProduceValue
	ErrReturnLocalReferences
	ErrYieldOutsideGenerator
	ErrAwaitOutsideAsync
	ErrCustom
	ErrInternal
)

// Error is a single compile failure, always anchored to a source span
// so the host can point the user at the offending code (spec.md §7).
type Error struct {
	Kind    ErrorKind
	Span    bytecode.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Line, e.Span.Col, e.Message)
}

func errAt(span bytecode.Span, kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
