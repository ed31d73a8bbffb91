package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/yaprak-lang/yaprak/vm"
)

var log = commonlog.GetLogger("yaprak.compiler")

// SourceExt is the file extension of Yaprak sources.
const SourceExt = ".yap"

// Options configures a compilation.
type Options struct {
	// Registry supplies native modules. A fresh vm.NewRegistry() is used
	// when nil; the program must run on a VM with an equivalent registry.
	Registry *vm.Registry

	// SearchPaths are extra directories searched for `yükle` modules after
	// the directory of the importing file.
	SearchPaths []string
}

// Compile compiles a parsed file into a program.
func Compile(file *File, opts Options) (*vm.Program, error) {
	if opts.Registry == nil {
		opts.Registry = vm.NewRegistry()
	}
	c := newCompiler(file.Path, opts)
	prog, err := c.compile(file)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) && cerr.File == "" {
			cerr.File = file.Path
		}
		c.release()
		return nil, err
	}
	return prog, nil
}

// CompileSource parses and compiles source text. path names the source in
// error messages and anchors relative `yükle` lookups; it may be empty.
func CompileSource(source, path string, opts Options) (*vm.Program, error) {
	file, err := ParseSource(source, path)
	if err != nil {
		return nil, err
	}
	prog, err := Compile(file, opts)
	if err != nil {
		return nil, err
	}
	prog.Source = source
	return prog, nil
}

// CompileFile reads and compiles a source file.
func CompileFile(path string, opts Options) (*vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return CompileSource(string(data), path, opts)
}

// ---------------------------------------------------------------------------
// Compiler state
// ---------------------------------------------------------------------------

// lexScope maps function names visible at one nesting level.
type lexScope struct {
	parent    *lexScope
	functions map[string]*vm.FunctionRef
}

func newLexScope(parent *lexScope) *lexScope {
	return &lexScope{parent: parent, functions: make(map[string]*vm.FunctionRef)}
}

func (s *lexScope) lookup(name string) (*vm.FunctionRef, bool) {
	for ; s != nil; s = s.parent {
		if f, ok := s.functions[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// funcInfo is one storage being compiled: the top level (index 0) or a
// function body.
type funcInfo struct {
	index   int
	path    string // source file, for errors
	def     *FunctionDefinition
	ref     *vm.FunctionRef
	body    *Block
	scope   *lexScope // names visible inside the body
	builder *vm.StorageBuilder
	storage *vm.Storage

	// Constant ordinals recorded while collecting. Constants come first
	// in memory, so an ordinal is also the slot.
	funcSlots  map[*vm.FunctionRef]int
	classSlots map[string]int
	textSlots  map[string]int
}

func newFuncInfo(index int, path string, body *Block, scope *lexScope, builder *vm.StorageBuilder) *funcInfo {
	return &funcInfo{
		index:      index,
		path:       path,
		body:       body,
		scope:      scope,
		builder:    builder,
		funcSlots:  make(map[*vm.FunctionRef]int),
		classSlots: make(map[string]int),
		textSlots:  make(map[string]int),
	}
}

// moduleInfo is a loaded `yükle` module.
type moduleInfo struct {
	path  []string
	file  *File
	scope *lexScope
}

// loopContext collects the jump sites of one loop.
type loopContext struct {
	breaks    []int
	continues []int
}

// compiler holds the state of one compilation.
type compiler struct {
	opts     Options
	registry *vm.Registry
	path     string

	funcs   []*funcInfo
	modules map[string]*moduleInfo

	code  *vm.BytecodeBuilder
	lines []vm.LineEntry
	cur   *funcInfo
	loops []*loopContext
}

func newCompiler(path string, opts Options) *compiler {
	return &compiler{
		opts:     opts,
		registry: opts.Registry,
		path:     path,
		modules:  make(map[string]*moduleInfo),
		code:     vm.NewBytecodeBuilder(),
	}
}

func (c *compiler) errorAt(kind ErrorKind, pos Position, format string, args ...any) *Error {
	err := newError(kind, pos, format, args...)
	if c.cur != nil {
		err.File = c.cur.path
	}
	return err
}

func errorIn(file string, kind ErrorKind, pos Position, format string, args ...any) *Error {
	err := newError(kind, pos, format, args...)
	err.File = file
	return err
}

// release drops constants collected before a failed compilation.
func (c *compiler) release() {
	for _, fi := range c.funcs {
		if fi.storage != nil {
			fi.storage.Release()
		} else if fi.builder != nil {
			fi.builder.Discard()
		}
	}
}

// compile runs the passes: hoist, mark results, collect and size, emit.
func (c *compiler) compile(file *File) (*vm.Program, error) {
	root := newLexScope(nil)
	top := newFuncInfo(0, file.Path, file.Body, root, vm.NewStorageBuilder("ana", -1))
	c.funcs = append(c.funcs, top)

	c.cur = top
	if err := c.hoist(file.Body, root, 0, nil, file.Path); err != nil {
		return nil, err
	}

	markResults(file.Body, true)
	for _, fi := range c.funcs[1:] {
		markResults(fi.body, false)
	}

	for _, fi := range c.funcs {
		c.cur = fi
		if err := c.collect(fi); err != nil {
			return nil, err
		}
		st, err := fi.builder.Build()
		if err != nil {
			return nil, c.errorAt(KindSlotOverflow, c.funcPos(fi), "%v", err)
		}
		fi.storage = st
	}

	if err := c.emitProgram(top); err != nil {
		return nil, err
	}

	prog := &vm.Program{
		Code:  c.code.Bytes(),
		Lines: c.lines,
	}
	for _, fi := range c.funcs {
		prog.Storages = append(prog.Storages, fi.storage)
		if fi.ref != nil {
			prog.Functions = append(prog.Functions, fi.ref)
		}
	}
	log.Debugf("compiled %s: %d bytes, %d functions", displayPath(file.Path), len(prog.Code), len(prog.Functions))
	return prog, nil
}

func (c *compiler) funcPos(fi *funcInfo) Position {
	if fi.def != nil {
		return fi.def.Pos()
	}
	return fi.body.Pos()
}

func displayPath(path string) string {
	if path == "" {
		return "<girdi>"
	}
	return filepath.Base(path)
}
