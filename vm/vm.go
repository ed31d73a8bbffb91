package vm

import (
	"bufio"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("yaprak.vm")

// DefaultMaxCallDepth bounds recursion when Options leaves it unset.
const DefaultMaxCallDepth = 4096

// Options configures a VM.
type Options struct {
	MaxCallDepth int
	Stdout       io.Writer
	Stdin        io.Reader

	// Profiler, when set, counts every function call.
	Profiler *Profiler
}

// VM ties a native registry to console streams. Programs compiled against
// its Registry run on it one at a time.
type VM struct {
	Registry *Registry

	options Options
	stdin   *bufio.Reader
}

// New creates a VM with the standard modules. Zero options fall back to
// os.Stdout, os.Stdin and DefaultMaxCallDepth.
func New(opts Options) *VM {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &VM{
		Registry: NewRegistry(),
		options:  opts,
		stdin:    bufio.NewReader(opts.Stdin),
	}
}

func (v *VM) callContext() *CallContext {
	return &CallContext{
		Stdout:  v.options.Stdout,
		Stdin:   v.stdin,
		Classes: v.Registry,
	}
}

// Run executes p to completion and returns its result, which the caller
// owns.
func (v *VM) Run(p *Program) (Value, error) {
	log.Debugf("running program: %d bytes, %d storages", len(p.Code), len(p.Storages))
	return NewInterpreter(p, v).Run()
}
