package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// ErrorKind classifies a fatal runtime error.
type ErrorKind uint8

const (
	KindNotCallable ErrorKind = iota + 1
	KindIndexerTypeMismatch
	KindStackOrScopeOverflow
	KindArgumentCountMismatch
	KindNativeCallFailure
	KindInvalidProgram
)

// Sentinels for errors.Is.
var (
	ErrNotCallable    = errors.New("value is not callable")
	ErrIndexerType    = errors.New("indexer type mismatch")
	ErrStackOverflow  = errors.New("stack or scope overflow")
	ErrArgumentCount  = errors.New("argument count mismatch")
	ErrNativeCall     = errors.New("native call failed")
	ErrInvalidProgram = errors.New("invalid program")
)

var kindSentinels = map[ErrorKind]error{
	KindNotCallable:           ErrNotCallable,
	KindIndexerTypeMismatch:   ErrIndexerType,
	KindStackOrScopeOverflow:  ErrStackOverflow,
	KindArgumentCountMismatch: ErrArgumentCount,
	KindNativeCallFailure:     ErrNativeCall,
	KindInvalidProgram:        ErrInvalidProgram,
}

func (k ErrorKind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "runtime error"
}

// RuntimeError aborts a run. Line and Column come from the program's line
// table and are 0 when the failing instruction has no entry.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Line    int
	Column  int
	Err     error
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Is matches the sentinel for the error's kind.
func (e *RuntimeError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Unwrap returns the native error behind a NativeCallFailure.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}
