package compiler

import (
	"errors"
	"fmt"

	"github.com/yaprak-lang/yaprak/vm"
)

// ErrorKind classifies a compile error.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota + 1
	KindUnresolvedSymbol
	KindFunctionNotFound
	KindArgumentCountMismatch
	KindSlotOverflow
	KindMalformedControlFlow
	KindModuleNotFound
	KindCodeTooLarge
)

// Sentinels for errors.Is.
var (
	ErrSyntax               = errors.New("syntax error")
	ErrUnresolvedSymbol     = errors.New("unresolved symbol")
	ErrFunctionNotFound     = errors.New("function not found")
	ErrArgumentCount        = errors.New("argument count mismatch")
	ErrSlotOverflow         = vm.ErrSlotOverflow
	ErrMalformedControlFlow = errors.New("malformed control flow")
	ErrModuleNotFound       = errors.New("module not found")
	ErrCodeTooLarge         = vm.ErrCodeTooLarge
)

var kindSentinels = map[ErrorKind]error{
	KindSyntax:                ErrSyntax,
	KindUnresolvedSymbol:      ErrUnresolvedSymbol,
	KindFunctionNotFound:      ErrFunctionNotFound,
	KindArgumentCountMismatch: ErrArgumentCount,
	KindSlotOverflow:          ErrSlotOverflow,
	KindMalformedControlFlow:  ErrMalformedControlFlow,
	KindModuleNotFound:        ErrModuleNotFound,
	KindCodeTooLarge:          ErrCodeTooLarge,
}

// Error is a compile error at a source position.
type Error struct {
	Kind    ErrorKind
	Pos     Position
	File    string
	Message string
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("line %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind ErrorKind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
