package compiler

import (
	"strings"

	"github.com/yaprak-lang/yaprak/vm"
)

// ---------------------------------------------------------------------------
// Pass 1: hoisting
// ---------------------------------------------------------------------------

// hoist registers every function defined in block, including definitions
// nested in control-flow blocks, and processes `yükle` statements. parent is
// the storage index of the enclosing function.
func (c *compiler) hoist(block *Block, scope *lexScope, parent int, modulePath []string, path string) error {
	for _, stmt := range block.Statements {
		var err error
		switch n := stmt.(type) {
		case *FunctionDefinition:
			err = c.hoistFunction(n, scope, parent, modulePath, path)
		case *Load:
			err = c.loadModules(n, path)
		case *IfStatement:
			for _, br := range n.Branches {
				if err = c.hoist(br.Body, scope, parent, modulePath, path); err != nil {
					return err
				}
			}
			if n.Else != nil {
				err = c.hoist(n.Else, scope, parent, modulePath, path)
			}
		case *WhileLoop:
			err = c.hoist(n.Body, scope, parent, modulePath, path)
		case *EndlessLoop:
			err = c.hoist(n.Body, scope, parent, modulePath, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) hoistFunction(def *FunctionDefinition, scope *lexScope, parent int, modulePath []string, path string) error {
	if _, dup := scope.functions[def.Name]; dup {
		return errorIn(path, KindSyntax, def.Pos(), "function %s is already defined", def.Name)
	}
	index := len(c.funcs)
	ref := vm.NewCompiledFunction(def.Name, modulePath, def.Params, index)
	body := newLexScope(scope)

	fi := newFuncInfo(index, path, def.Body, body, vm.NewStorageBuilder(ref.QualifiedName(), parent))
	fi.def = def
	fi.ref = ref
	c.funcs = append(c.funcs, fi)
	scope.functions[def.Name] = ref

	return c.hoist(def.Body, body, index, modulePath, path)
}

// ---------------------------------------------------------------------------
// Pass 2: result usage
// ---------------------------------------------------------------------------

// markResults sets AssignToTemp on calls and increments. A call used as a
// statement discards its result; anywhere else the result is needed. When
// top is set the last statement is the script result and keeps its value.
func markResults(block *Block, top bool) {
	last := len(block.Statements) - 1
	for i, stmt := range block.Statements {
		markStatement(stmt, top && i == last)
	}
}

func markStatement(n Node, want bool) {
	switch n := n.(type) {
	case *FuncCall:
		n.AssignToTemp = want
		markExpr(n.Callee)
		markExprs(n.Args)
	case *AccessorFuncCall:
		n.AssignToTemp = want
		markExpr(n.Source)
		markExprs(n.Args)
	case *PrefixUnary:
		n.AssignToTemp = want
		markExpr(n.Operand)
	case *SuffixUnary:
		n.AssignToTemp = want
		markExpr(n.Operand)
	case *Assignment:
		markExpr(n.Target)
		markExpr(n.Value)
	case *IfStatement:
		for _, br := range n.Branches {
			markExpr(br.Cond)
			markResults(br.Body, false)
		}
		if n.Else != nil {
			markResults(n.Else, false)
		}
	case *WhileLoop:
		markExpr(n.Cond)
		markResults(n.Body, false)
	case *EndlessLoop:
		markResults(n.Body, false)
	case *Return:
		if n.Value != nil {
			markExpr(n.Value)
		}
	case *FunctionDefinition, *Load, *Break, *Continue:
	default:
		markExpr(n)
	}
}

func markExprs(nodes []Node) {
	for _, n := range nodes {
		markExpr(n)
	}
}

func markExpr(n Node) {
	switch n := n.(type) {
	case *FuncCall:
		n.AssignToTemp = true
		markExpr(n.Callee)
		markExprs(n.Args)
	case *AccessorFuncCall:
		n.AssignToTemp = true
		markExpr(n.Source)
		markExprs(n.Args)
	case *PrefixUnary:
		n.AssignToTemp = true
		markExpr(n.Operand)
	case *SuffixUnary:
		n.AssignToTemp = true
		markExpr(n.Operand)
	case *Binary:
		markExpr(n.Left)
		markExpr(n.Right)
	case *Control:
		markExpr(n.Left)
		markExpr(n.Right)
	case *List:
		markExprs(n.Items)
	case *Dict:
		markExprs(n.Keys)
		markExprs(n.Values)
	case *Indexer:
		markExpr(n.Body)
		markExpr(n.Index)
	}
}

// ---------------------------------------------------------------------------
// Symbol resolution
// ---------------------------------------------------------------------------

type symbolKind int

const (
	symbolNone symbolKind = iota
	symbolVariable
	symbolFunction
	symbolClass
)

type resolution struct {
	kind  symbolKind
	ref   *vm.FunctionRef
	class *vm.Class
	name  string
}

func (fi *funcInfo) variableSlot(name string) (uint8, bool) {
	if fi.storage != nil {
		return fi.storage.Variable(name)
	}
	i, ok := fi.builder.VariableLocation(name)
	return uint8(i), ok
}

// resolveSymbol looks a bare name up: local variable, function visible in
// the enclosing scopes, base module function, native module.
func (c *compiler) resolveSymbol(fi *funcInfo, name string) resolution {
	if _, ok := fi.variableSlot(name); ok {
		return resolution{kind: symbolVariable, name: name}
	}
	if ref, ok := fi.scope.lookup(name); ok {
		return resolution{kind: symbolFunction, ref: ref, name: name}
	}
	if ref, ok := c.registry.Base(name); ok {
		return resolution{kind: symbolFunction, ref: ref, name: name}
	}
	if class, ok := c.registry.Module(name); ok {
		return resolution{kind: symbolClass, class: class, name: name}
	}
	return resolution{name: name}
}

// resolveFunctionMap looks up `a::b::f`: a loaded script module first, then
// the native modules.
func (c *compiler) resolveFunctionMap(fm *FunctionMap) (*vm.FunctionRef, bool) {
	if mod, ok := c.modules[moduleKey(fm.Path)]; ok {
		if ref, ok := mod.scope.functions[fm.Name]; ok {
			return ref, true
		}
	}
	return c.registry.Lookup(fm.Path, fm.Name)
}

// directCallee returns the function a call statically targets, if any.
// Such calls load the callee from a constant slot; all others evaluate it
// onto the stack.
func (c *compiler) directCallee(fi *funcInfo, call *FuncCall) (*vm.FunctionRef, bool) {
	switch callee := call.Callee.(type) {
	case *Symbol:
		res := c.resolveSymbol(fi, callee.Name)
		if res.kind == symbolFunction {
			return res.ref, true
		}
	case *FunctionMap:
		return c.resolveFunctionMap(callee)
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Pass 3: collect variables and constants, size the operand stack
// ---------------------------------------------------------------------------

func (c *compiler) collect(fi *funcInfo) error {
	b := fi.builder
	if fi.def != nil {
		for _, p := range fi.def.Params {
			if _, err := b.AddVariable(p); err != nil {
				return c.errorAt(KindSlotOverflow, fi.def.Pos(), "%v", err)
			}
		}
	}
	if err := c.collectVariables(fi, fi.body); err != nil {
		return err
	}

	if _, err := b.AddConstant(vm.Empty); err != nil {
		return c.errorAt(KindSlotOverflow, c.funcPos(fi), "%v", err)
	}
	if err := c.collectBlock(fi, fi.body); err != nil {
		return err
	}

	if err := b.SetTempSize(c.blockDepth(fi, fi.body)); err != nil {
		return c.errorAt(KindSlotOverflow, c.funcPos(fi), "%v", err)
	}
	return nil
}

// collectVariables registers every name assigned in block. Nested function
// bodies have their own storage and are skipped.
func (c *compiler) collectVariables(fi *funcInfo, block *Block) error {
	for _, stmt := range block.Statements {
		var err error
		switch n := stmt.(type) {
		case *Assignment:
			if sym, ok := n.Target.(*Symbol); ok {
				if _, err := fi.builder.AddVariable(sym.Name); err != nil {
					return c.errorAt(KindSlotOverflow, n.Pos(), "%v", err)
				}
			}
		case *IfStatement:
			for _, br := range n.Branches {
				if err = c.collectVariables(fi, br.Body); err != nil {
					return err
				}
			}
			if n.Else != nil {
				err = c.collectVariables(fi, n.Else)
			}
		case *WhileLoop:
			err = c.collectVariables(fi, n.Body)
		case *EndlessLoop:
			err = c.collectVariables(fi, n.Body)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) addConstant(fi *funcInfo, pos Position, v vm.Value) (int, error) {
	ord, err := fi.builder.AddConstant(v)
	if err != nil {
		return 0, c.errorAt(KindSlotOverflow, pos, "%v", err)
	}
	return ord, nil
}

func (c *compiler) addFunction(fi *funcInfo, pos Position, ref *vm.FunctionRef) error {
	if _, ok := fi.funcSlots[ref]; ok {
		return nil
	}
	ord, err := c.addConstant(fi, pos, vm.NewFunction(ref, vm.Empty))
	if err != nil {
		return err
	}
	fi.funcSlots[ref] = ord
	return nil
}

func (c *compiler) addClass(fi *funcInfo, pos Position, class *vm.Class, name string) error {
	if _, ok := fi.classSlots[name]; ok {
		return nil
	}
	ord, err := c.addConstant(fi, pos, vm.NewClassValue(class))
	if err != nil {
		return err
	}
	fi.classSlots[name] = ord
	return nil
}

func (c *compiler) addText(fi *funcInfo, pos Position, s string) error {
	if _, ok := fi.textSlots[s]; ok {
		return nil
	}
	ord, err := c.addConstant(fi, pos, vm.NewText(s))
	if err != nil {
		return err
	}
	fi.textSlots[s] = ord
	return nil
}

// primitiveValue returns the constant for an unboxed literal.
func primitiveValue(p *Primitive) vm.Value {
	switch p.Kind {
	case PrimitiveNumber:
		return vm.FromNumber(p.Number)
	case PrimitiveBool:
		return vm.FromBool(p.Bool)
	}
	return vm.Empty
}

func (c *compiler) addPrimitive(fi *funcInfo, p *Primitive) error {
	if p.Kind == PrimitiveText {
		return c.addText(fi, p.Pos(), p.Text)
	}
	_, err := c.addConstant(fi, p.Pos(), primitiveValue(p))
	return err
}

func (c *compiler) collectBlock(fi *funcInfo, block *Block) error {
	for _, stmt := range block.Statements {
		if err := c.collectStatement(fi, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) collectStatement(fi *funcInfo, n Node) error {
	switch n := n.(type) {
	case *Assignment:
		if idx, ok := n.Target.(*Indexer); ok {
			if err := c.collectExpr(fi, idx.Body); err != nil {
				return err
			}
			if err := c.collectExpr(fi, idx.Index); err != nil {
				return err
			}
		}
		return c.collectExpr(fi, n.Value)
	case *IfStatement:
		for _, br := range n.Branches {
			if err := c.collectExpr(fi, br.Cond); err != nil {
				return err
			}
			if err := c.collectBlock(fi, br.Body); err != nil {
				return err
			}
		}
		if n.Else != nil {
			return c.collectBlock(fi, n.Else)
		}
		return nil
	case *WhileLoop:
		if err := c.collectExpr(fi, n.Cond); err != nil {
			return err
		}
		return c.collectBlock(fi, n.Body)
	case *EndlessLoop:
		return c.collectBlock(fi, n.Body)
	case *Return:
		if n.Value != nil {
			return c.collectExpr(fi, n.Value)
		}
		return nil
	case *FunctionDefinition, *Load, *Break, *Continue:
		return nil
	}
	return c.collectExpr(fi, n)
}

func (c *compiler) collectExprs(fi *funcInfo, nodes []Node) error {
	for _, n := range nodes {
		if err := c.collectExpr(fi, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) collectSymbol(fi *funcInfo, sym *Symbol, callee bool) error {
	res := c.resolveSymbol(fi, sym.Name)
	switch res.kind {
	case symbolVariable:
		return nil
	case symbolFunction:
		return c.addFunction(fi, sym.Pos(), res.ref)
	case symbolClass:
		return c.addClass(fi, sym.Pos(), res.class, res.name)
	}
	if callee {
		return c.errorAt(KindFunctionNotFound, sym.Pos(), "function %s not found", sym.Name)
	}
	return c.errorAt(KindUnresolvedSymbol, sym.Pos(), "undefined: %s", sym.Name)
}

func (c *compiler) collectExpr(fi *funcInfo, n Node) error {
	switch n := n.(type) {
	case *Primitive:
		return c.addPrimitive(fi, n)
	case *Symbol:
		return c.collectSymbol(fi, n, false)
	case *FunctionMap:
		ref, ok := c.resolveFunctionMap(n)
		if !ok {
			return c.errorAt(KindFunctionNotFound, n.Pos(), "function %s not found", qualified(n))
		}
		return c.addFunction(fi, n.Pos(), ref)
	case *FuncCall:
		var err error
		if sym, ok := n.Callee.(*Symbol); ok {
			err = c.collectSymbol(fi, sym, true)
		} else {
			err = c.collectExpr(fi, n.Callee)
		}
		if err != nil {
			return err
		}
		return c.collectExprs(fi, n.Args)
	case *AccessorFuncCall:
		if err := c.collectExpr(fi, n.Source); err != nil {
			return err
		}
		if err := c.addText(fi, n.Pos(), n.Name); err != nil {
			return err
		}
		return c.collectExprs(fi, n.Args)
	case *Binary:
		if err := c.collectExpr(fi, n.Left); err != nil {
			return err
		}
		return c.collectExpr(fi, n.Right)
	case *Control:
		if err := c.collectExpr(fi, n.Left); err != nil {
			return err
		}
		return c.collectExpr(fi, n.Right)
	case *PrefixUnary:
		if isStep(n.Op) {
			return c.requireVariable(fi, n.Operand)
		}
		return c.collectExpr(fi, n.Operand)
	case *SuffixUnary:
		return c.requireVariable(fi, n.Operand)
	case *List:
		return c.collectExprs(fi, n.Items)
	case *Dict:
		if err := c.collectExprs(fi, n.Keys); err != nil {
			return err
		}
		return c.collectExprs(fi, n.Values)
	case *Indexer:
		if err := c.collectExpr(fi, n.Body); err != nil {
			return err
		}
		return c.collectExpr(fi, n.Index)
	}
	return c.errorAt(KindSyntax, n.Pos(), "%T cannot be used as an expression", n)
}

// requireVariable checks the operand of ++ and --.
func (c *compiler) requireVariable(fi *funcInfo, n Node) error {
	sym, ok := n.(*Symbol)
	if !ok {
		return c.errorAt(KindSyntax, n.Pos(), "++ and -- need a variable")
	}
	if _, ok := fi.variableSlot(sym.Name); !ok {
		return c.errorAt(KindUnresolvedSymbol, sym.Pos(), "undefined: %s", sym.Name)
	}
	return nil
}

func isStep(op TokenType) bool {
	return op == TokenIncrement || op == TokenDecrement
}

func qualified(fm *FunctionMap) string {
	return strings.Join(fm.Path, "::") + "::" + fm.Name
}

// ---------------------------------------------------------------------------
// Operand stack sizing
// ---------------------------------------------------------------------------

func (c *compiler) blockDepth(fi *funcInfo, block *Block) int {
	depth := 0
	for _, stmt := range block.Statements {
		depth = max(depth, c.statementDepth(fi, stmt))
	}
	return depth
}

func (c *compiler) statementDepth(fi *funcInfo, n Node) int {
	switch n := n.(type) {
	case *Assignment:
		value := c.exprDepth(fi, n.Value)
		compound := n.Op != TokenAssign
		if idx, ok := n.Target.(*Indexer); ok {
			if compound {
				value = max(c.exprDepth(fi, idx), 1+value)
			}
			return c.indexedStoreDepth(fi, idx, value)
		}
		if compound {
			return 1 + value
		}
		return value
	case *IfStatement:
		depth := 0
		for _, br := range n.Branches {
			depth = max(depth, c.exprDepth(fi, br.Cond), c.blockDepth(fi, br.Body))
		}
		if n.Else != nil {
			depth = max(depth, c.blockDepth(fi, n.Else))
		}
		return depth
	case *WhileLoop:
		return max(c.exprDepth(fi, n.Cond), c.blockDepth(fi, n.Body))
	case *EndlessLoop:
		return c.blockDepth(fi, n.Body)
	case *Return:
		if n.Value == nil {
			return 1
		}
		return c.exprDepth(fi, n.Value)
	case *FunctionDefinition, *Load, *Break, *Continue:
		return 0
	}
	return c.exprDepth(fi, n)
}

// indexedStoreDepth sizes emitIndexedStore: the container and index sit
// below a value needing valueDepth, and a nested target re-reads its inner
// container to build the value stored into the enclosing one.
func (c *compiler) indexedStoreDepth(fi *funcInfo, target *Indexer, valueDepth int) int {
	depth := max(1+c.exprDepth(fi, target.Index), 2+valueDepth)
	if inner, ok := target.Body.(*Indexer); ok {
		return c.indexedStoreDepth(fi, inner, max(c.exprDepth(fi, inner), depth))
	}
	return max(c.exprDepth(fi, target.Body), depth)
}

// exprDepth is the operand stack depth needed to evaluate n, counting its
// result.
func (c *compiler) exprDepth(fi *funcInfo, n Node) int {
	switch n := n.(type) {
	case *Binary:
		return max(c.exprDepth(fi, n.Left), 1+c.exprDepth(fi, n.Right))
	case *Control:
		return max(c.exprDepth(fi, n.Left), 1+c.exprDepth(fi, n.Right))
	case *PrefixUnary:
		if isStep(n.Op) {
			return 1
		}
		return c.exprDepth(fi, n.Operand)
	case *SuffixUnary:
		return 2
	case *FuncCall:
		depth, base := 1, 0
		if _, direct := c.directCallee(fi, n); !direct {
			depth, base = c.exprDepth(fi, n.Callee), 1
		}
		return max(depth, c.argsDepth(fi, n.Args, base))
	case *AccessorFuncCall:
		depth := max(c.exprDepth(fi, n.Source), 2)
		return max(depth, c.argsDepth(fi, n.Args, 1))
	case *List:
		depth := 1
		for i, item := range n.Items {
			depth = max(depth, i+c.exprDepth(fi, item))
		}
		return depth
	case *Dict:
		depth := 1
		for i := range n.Keys {
			depth = max(depth, 2*i+c.exprDepth(fi, n.Keys[i]), 2*i+1+c.exprDepth(fi, n.Values[i]))
		}
		return depth
	case *Indexer:
		return max(c.exprDepth(fi, n.Body), 1+c.exprDepth(fi, n.Index))
	}
	return 1
}

func (c *compiler) argsDepth(fi *funcInfo, args []Node, base int) int {
	depth := 0
	for i, arg := range args {
		depth = max(depth, base+i+c.exprDepth(fi, arg))
	}
	return depth
}
