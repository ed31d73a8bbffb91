package vm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Framework identifiers distinguish host callbacks from compiled functions.
const (
	FrameworkNative   = "native"
	FrameworkCompiled = "yaprak"
)

// NativeFunc is a host callback. self is the bound receiver (Empty for
// module functions) and args is a borrowed view of the caller's operand
// stack. The returned value carries one ownership unit.
type NativeFunc func(ctx *CallContext, self Value, args []Value) (Value, error)

// FunctionRef names a callable. Native refs carry a host callback; compiled
// refs carry their storage index and the code offset of their body, which is
// filled in after code generation. Refs are read-only once a program runs.
type FunctionRef struct {
	Name       string
	ModulePath []string
	Params     []string
	Variadic   bool
	Framework  string
	Native     NativeFunc
	Storage    int
	Offset     int
}

// NewNativeFunction creates a ref for a host callback. A nil params slice
// makes the function variadic.
func NewNativeFunction(name string, modulePath []string, params []string, fn NativeFunc) *FunctionRef {
	return &FunctionRef{
		Name:       name,
		ModulePath: modulePath,
		Params:     params,
		Variadic:   params == nil,
		Framework:  FrameworkNative,
		Native:     fn,
		Storage:    -1,
		Offset:     -1,
	}
}

// NewCompiledFunction creates a ref for a script function whose body offset
// is not known yet.
func NewCompiledFunction(name string, modulePath []string, params []string, storage int) *FunctionRef {
	return &FunctionRef{
		Name:       name,
		ModulePath: modulePath,
		Params:     params,
		Framework:  FrameworkCompiled,
		Storage:    storage,
		Offset:     -1,
	}
}

// IsNative reports whether the function is a host callback.
func (f *FunctionRef) IsNative() bool {
	return f.Framework == FrameworkNative
}

// Arity returns the number of parameters, or -1 for variadic natives.
func (f *FunctionRef) Arity() int {
	if f.Variadic {
		return -1
	}
	return len(f.Params)
}

// QualifiedName returns the name with its module path, e.g. "gç::satıryaz".
func (f *FunctionRef) QualifiedName() string {
	if len(f.ModulePath) == 0 {
		return f.Name
	}
	return strings.Join(f.ModulePath, "::") + "::" + f.Name
}

// Signature returns the qualified name with its parameter list.
func (f *FunctionRef) Signature() string {
	if f.Variadic {
		return f.QualifiedName() + "(...)"
	}
	return f.QualifiedName() + "(" + strings.Join(f.Params, ", ") + ")"
}

// Equal compares refs by name, module path and framework.
func (f *FunctionRef) Equal(o *FunctionRef) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Name != o.Name || f.Framework != o.Framework || len(f.ModulePath) != len(o.ModulePath) {
		return false
	}
	for i := range f.ModulePath {
		if f.ModulePath[i] != o.ModulePath[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Native call context
// ---------------------------------------------------------------------------

// CallContext is handed to every native call.
type CallContext struct {
	Stdout  io.Writer
	Stdin   *bufio.Reader
	Classes *Registry
}

// Errorf builds a NativeError; the VM fills in the source position.
func (c *CallContext) Errorf(format string, args ...any) error {
	return &NativeError{Message: fmt.Sprintf(format, args...)}
}

// NativeError is returned by native functions. Line and Column locate the
// call site.
type NativeError struct {
	Message string
	Line    int
	Column  int
}

func (e *NativeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}
