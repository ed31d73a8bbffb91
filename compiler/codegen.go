package compiler

import (
	"errors"

	"github.com/yaprak-lang/yaprak/vm"
)

// ---------------------------------------------------------------------------
// Codegen: emit bytecode for the analysed program
// ---------------------------------------------------------------------------

// maxOperand is the largest count a single byte operand can carry.
const maxOperand = 255

var binaryOps = map[TokenType]vm.Opcode{
	TokenPlus:    vm.OpAddition,
	TokenMinus:   vm.OpSubtraction,
	TokenStar:    vm.OpMultiply,
	TokenSlash:   vm.OpDivision,
	TokenPercent: vm.OpModule,
	TokenEq:      vm.OpEqual,
	TokenNotEq:   vm.OpNotEqual,
	TokenLt:      vm.OpLessThan,
	TokenLe:      vm.OpLessEqualThan,
	TokenGt:      vm.OpGreaterThan,
	TokenGe:      vm.OpGreaterEqualThan,
	TokenVe:      vm.OpAnd,
	TokenVeya:    vm.OpOr,
}

var compoundOps = map[TokenType]vm.Opcode{
	TokenPlusAssign:  vm.OpAddition,
	TokenMinusAssign: vm.OpSubtraction,
	TokenStarAssign:  vm.OpMultiply,
	TokenSlashAssign: vm.OpDivision,
}

// emitProgram lays out the code vector: a jump to the entry point, every
// function body, then the top level ending in HALT.
func (c *compiler) emitProgram(top *funcInfo) error {
	entry := c.code.EmitPlaceholder(vm.OpJump)

	for _, fi := range c.funcs[1:] {
		if err := c.emitFunction(fi); err != nil {
			return err
		}
	}

	c.cur = top
	c.loops = nil
	if err := c.patchJump(entry, c.code.Len(), top.body.Pos()); err != nil {
		return err
	}
	if err := c.emitBlock(top.body, true); err != nil {
		return err
	}
	c.code.Emit(vm.OpHalt)

	if c.code.Len() > vm.MaxCodeSize {
		return c.errorAt(KindCodeTooLarge, top.body.Pos(), "%v", vm.ErrCodeTooLarge)
	}
	return nil
}

func (c *compiler) emitFunction(fi *funcInfo) error {
	c.cur = fi
	c.loops = nil

	c.code.Emit(vm.OpFunc)
	fi.ref.Offset = c.code.Len()
	c.markLine(fi.def.Pos())
	c.code.EmitByte(vm.OpInitArguments, byte(len(fi.def.Params)))

	if err := c.emitBlock(fi.body, false); err != nil {
		return err
	}

	c.code.EmitByte(vm.OpLoad, c.emptySlot())
	c.code.Emit(vm.OpReturn)
	return nil
}

// markLine records the source position of the next instruction.
func (c *compiler) markLine(pos Position) {
	offset := c.code.Len()
	if n := len(c.lines); n > 0 && c.lines[n-1].Offset == offset {
		c.lines[n-1].Line, c.lines[n-1].Column = pos.Line, pos.Column
		return
	}
	c.lines = append(c.lines, vm.LineEntry{Offset: offset, Line: pos.Line, Column: pos.Column})
}

func (c *compiler) patchJump(site, target int, pos Position) error {
	if err := c.code.PatchJump(site, target); err != nil {
		return c.errorAt(KindCodeTooLarge, pos, "%v", err)
	}
	return nil
}

func (c *compiler) patchCompare(site, target int, pos Position) error {
	if err := c.code.PatchCompare(site, target); err != nil {
		return c.errorAt(KindCodeTooLarge, pos, "%v", err)
	}
	return nil
}

func (c *compiler) emitJump(target int, pos Position) error {
	if err := c.code.EmitJump(target); err != nil {
		return c.errorAt(KindCodeTooLarge, pos, "%v", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Constant slots
// ---------------------------------------------------------------------------

func (c *compiler) emptySlot() byte {
	slot, _ := c.cur.storage.Constant(vm.Empty)
	return slot
}

func (c *compiler) primitiveSlot(p *Primitive) byte {
	if p.Kind == PrimitiveText {
		return byte(c.cur.textSlots[p.Text])
	}
	slot, _ := c.cur.storage.Constant(primitiveValue(p))
	return slot
}

// symbolSlot returns the memory slot holding a name's value.
func (c *compiler) symbolSlot(sym *Symbol) (byte, error) {
	res := c.resolveSymbol(c.cur, sym.Name)
	switch res.kind {
	case symbolVariable:
		slot, _ := c.cur.variableSlot(sym.Name)
		return slot, nil
	case symbolFunction:
		return byte(c.cur.funcSlots[res.ref]), nil
	case symbolClass:
		return byte(c.cur.classSlots[res.name]), nil
	}
	return 0, c.errorAt(KindUnresolvedSymbol, sym.Pos(), "undefined: %s", sym.Name)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// emitBlock emits block's statements. When top is set the value of a final
// expression statement stays on the stack as the script result.
func (c *compiler) emitBlock(block *Block, top bool) error {
	last := len(block.Statements) - 1
	for i, stmt := range block.Statements {
		if err := c.emitStatement(stmt, top && i == last); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emitStatement(n Node, keep bool) error {
	switch n := n.(type) {
	case *FunctionDefinition, *Load:
		return nil
	case *Assignment:
		c.markLine(n.Pos())
		return c.emitAssignment(n)
	case *IfStatement:
		return c.emitIf(n)
	case *WhileLoop:
		return c.emitWhile(n)
	case *EndlessLoop:
		return c.emitEndless(n)
	case *Break:
		return c.emitBreak(n)
	case *Continue:
		return c.emitContinue(n)
	case *Return:
		return c.emitReturn(n)
	case *FuncCall, *AccessorFuncCall:
		// Calls push nothing unless AssignToTemp is set.
		c.markLine(n.Pos())
		return c.emitExpr(n)
	case *PrefixUnary:
		if isStep(n.Op) && !keep {
			return c.emitStep(n.Operand, n.Op)
		}
	case *SuffixUnary:
		if !keep {
			return c.emitStep(n.Operand, n.Op)
		}
	}

	c.markLine(n.Pos())
	if err := c.emitExpr(n); err != nil {
		return err
	}
	if !keep {
		c.code.Emit(vm.OpPop)
	}
	return nil
}

// emitStep emits `x++` / `x--` whose value is not used.
func (c *compiler) emitStep(operand Node, op TokenType) error {
	c.markLine(operand.Pos())
	slot, err := c.symbolSlot(operand.(*Symbol))
	if err != nil {
		return err
	}
	c.code.EmitByte(vm.OpLoad, slot)
	c.code.Emit(stepOpcode(op))
	c.code.EmitByte(vm.OpStore, slot)
	return nil
}

func stepOpcode(op TokenType) vm.Opcode {
	if op == TokenIncrement {
		return vm.OpIncrement
	}
	return vm.OpDecrement
}

func (c *compiler) emitAssignment(n *Assignment) error {
	switch target := n.Target.(type) {
	case *Symbol:
		slot, ok := c.cur.variableSlot(target.Name)
		if !ok {
			return c.errorAt(KindUnresolvedSymbol, target.Pos(), "undefined: %s", target.Name)
		}
		if n.Op == TokenAssign {
			if src, ok := c.fastSource(n.Value); ok {
				c.code.EmitBytes(vm.OpFastStore, slot, src)
				return nil
			}
			if err := c.emitExpr(n.Value); err != nil {
				return err
			}
			c.code.EmitByte(vm.OpStore, slot)
			return nil
		}
		c.code.EmitByte(vm.OpLoad, slot)
		if err := c.emitExpr(n.Value); err != nil {
			return err
		}
		c.code.Emit(compoundOps[n.Op])
		c.code.EmitByte(vm.OpStore, slot)
		return nil

	case *Indexer:
		return c.emitIndexedStore(target, func() error {
			if n.Op != TokenAssign {
				if err := c.emitExpr(target); err != nil {
					return err
				}
				if err := c.emitExpr(n.Value); err != nil {
					return err
				}
				c.code.Emit(compoundOps[n.Op])
				return nil
			}
			return c.emitExpr(n.Value)
		})
	}
	return c.errorAt(KindSyntax, n.Target.Pos(), "cannot assign to this expression")
}

// emitIndexedStore emits target = value, with emitValue pushing the value.
// Text assignment is copy-on-write, so SetItem hands back the container,
// which is stored into the variable or, for a nested target such as
// `l[0][1]`, into the enclosing container by the same route.
func (c *compiler) emitIndexedStore(target *Indexer, emitValue func() error) error {
	if inner, ok := target.Body.(*Indexer); ok {
		return c.emitIndexedStore(inner, func() error {
			if err := c.emitExpr(inner); err != nil {
				return err
			}
			return c.emitSetItem(target, emitValue)
		})
	}
	if err := c.emitExpr(target.Body); err != nil {
		return err
	}
	if err := c.emitSetItem(target, emitValue); err != nil {
		return err
	}
	if sym, ok := target.Body.(*Symbol); ok {
		if slot, ok := c.cur.variableSlot(sym.Name); ok {
			c.code.EmitByte(vm.OpStore, slot)
			return nil
		}
	}
	c.code.Emit(vm.OpPop)
	return nil
}

// emitSetItem emits the index and value of target over the container
// already on the stack, then SetItem.
func (c *compiler) emitSetItem(target *Indexer, emitValue func() error) error {
	if err := c.emitExpr(target.Index); err != nil {
		return err
	}
	if err := emitValue(); err != nil {
		return err
	}
	c.markLine(target.Pos())
	c.code.Emit(vm.OpSetItem)
	return nil
}

// fastSource returns the slot a plain assignment can copy from directly: a
// literal constant or another variable.
func (c *compiler) fastSource(value Node) (byte, bool) {
	switch v := value.(type) {
	case *Primitive:
		return c.primitiveSlot(v), true
	case *Symbol:
		if slot, ok := c.cur.variableSlot(v.Name); ok {
			return slot, true
		}
	}
	return 0, false
}

func (c *compiler) emitIf(n *IfStatement) error {
	var ends []int
	last := len(n.Branches) - 1
	for i, br := range n.Branches {
		c.markLine(br.Cond.Pos())
		if err := c.emitExpr(br.Cond); err != nil {
			return err
		}
		next := c.code.EmitPlaceholder(vm.OpCompare)
		if err := c.emitBlock(br.Body, false); err != nil {
			return err
		}
		if i < last || n.Else != nil {
			ends = append(ends, c.code.EmitPlaceholder(vm.OpJump))
		}
		if err := c.patchCompare(next, c.code.Len(), br.Cond.Pos()); err != nil {
			return err
		}
	}
	if n.Else != nil {
		if err := c.emitBlock(n.Else, false); err != nil {
			return err
		}
	}
	for _, site := range ends {
		if err := c.patchJump(site, c.code.Len(), n.Pos()); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emitWhile(n *WhileLoop) error {
	start := c.code.Len()
	c.markLine(n.Pos())
	if err := c.emitExpr(n.Cond); err != nil {
		return err
	}
	exit := c.code.EmitPlaceholder(vm.OpCompare)

	loop := c.pushLoop()
	if err := c.emitBlock(n.Body, false); err != nil {
		return err
	}
	if err := c.emitJump(start, n.Pos()); err != nil {
		return err
	}
	c.popLoop()

	end := c.code.Len()
	if err := c.patchCompare(exit, end, n.Pos()); err != nil {
		return err
	}
	return c.patchLoop(loop, start, end, n.Pos())
}

func (c *compiler) emitEndless(n *EndlessLoop) error {
	start := c.code.Len()
	loop := c.pushLoop()
	if err := c.emitBlock(n.Body, false); err != nil {
		return err
	}
	if err := c.emitJump(start, n.Pos()); err != nil {
		return err
	}
	c.popLoop()
	return c.patchLoop(loop, start, c.code.Len(), n.Pos())
}

func (c *compiler) pushLoop() *loopContext {
	loop := &loopContext{}
	c.loops = append(c.loops, loop)
	return loop
}

func (c *compiler) popLoop() {
	c.loops = c.loops[:len(c.loops)-1]
}

// patchLoop sends a loop's breaks to end and its continues to start, where
// the condition is checked again.
func (c *compiler) patchLoop(loop *loopContext, start, end int, pos Position) error {
	for _, site := range loop.breaks {
		if err := c.patchJump(site, end, pos); err != nil {
			return err
		}
	}
	for _, site := range loop.continues {
		if err := c.patchJump(site, start, pos); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emitBreak(n *Break) error {
	if len(c.loops) == 0 {
		return c.errorAt(KindMalformedControlFlow, n.Pos(), "kır outside a loop")
	}
	loop := c.loops[len(c.loops)-1]
	loop.breaks = append(loop.breaks, c.code.EmitPlaceholder(vm.OpJump))
	return nil
}

func (c *compiler) emitContinue(n *Continue) error {
	if len(c.loops) == 0 {
		return c.errorAt(KindMalformedControlFlow, n.Pos(), "devam outside a loop")
	}
	loop := c.loops[len(c.loops)-1]
	loop.continues = append(loop.continues, c.code.EmitPlaceholder(vm.OpJump))
	return nil
}

func (c *compiler) emitReturn(n *Return) error {
	c.markLine(n.Pos())
	if n.Value == nil {
		c.code.EmitByte(vm.OpLoad, c.emptySlot())
	} else if err := c.emitExpr(n.Value); err != nil {
		return err
	}
	c.code.Emit(vm.OpReturn)
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *compiler) emitExprs(nodes []Node) error {
	for _, n := range nodes {
		if err := c.emitExpr(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emitExpr(n Node) error {
	switch n := n.(type) {
	case *Primitive:
		c.code.EmitByte(vm.OpLoad, c.primitiveSlot(n))
		return nil

	case *Symbol:
		slot, err := c.symbolSlot(n)
		if err != nil {
			return err
		}
		c.code.EmitByte(vm.OpLoad, slot)
		return nil

	case *FunctionMap:
		ref, ok := c.resolveFunctionMap(n)
		if !ok {
			return c.errorAt(KindFunctionNotFound, n.Pos(), "function %s not found", qualified(n))
		}
		c.code.EmitByte(vm.OpLoad, byte(c.cur.funcSlots[ref]))
		return nil

	case *Binary:
		return c.emitBinary(n.Left, n.Right, n.Op)

	case *Control:
		return c.emitBinary(n.Left, n.Right, n.Op)

	case *PrefixUnary:
		switch n.Op {
		case TokenIncrement, TokenDecrement:
			slot, err := c.symbolSlot(n.Operand.(*Symbol))
			if err != nil {
				return err
			}
			c.code.EmitByte(vm.OpLoad, slot)
			c.code.Emit(stepOpcode(n.Op))
			c.code.EmitByte(vm.OpCopyToStore, slot)
			return nil
		case TokenMinus:
			if err := c.emitExpr(n.Operand); err != nil {
				return err
			}
			c.code.Emit(vm.OpNegative)
			return nil
		default:
			if err := c.emitExpr(n.Operand); err != nil {
				return err
			}
			c.code.Emit(vm.OpNot)
			return nil
		}

	case *SuffixUnary:
		slot, err := c.symbolSlot(n.Operand.(*Symbol))
		if err != nil {
			return err
		}
		c.code.EmitByte(vm.OpLoad, slot)
		c.code.EmitByte(vm.OpLoad, slot)
		c.code.Emit(stepOpcode(n.Op))
		c.code.EmitByte(vm.OpStore, slot)
		return nil

	case *List:
		if len(n.Items) > maxOperand {
			return c.errorAt(KindSyntax, n.Pos(), "a list literal takes at most %d items", maxOperand)
		}
		if err := c.emitExprs(n.Items); err != nil {
			return err
		}
		c.code.EmitByte(vm.OpInitList, byte(len(n.Items)))
		return nil

	case *Dict:
		if len(n.Keys) > maxOperand {
			return c.errorAt(KindSyntax, n.Pos(), "a dict literal takes at most %d pairs", maxOperand)
		}
		for i := range n.Keys {
			if err := c.emitExpr(n.Keys[i]); err != nil {
				return err
			}
			if err := c.emitExpr(n.Values[i]); err != nil {
				return err
			}
		}
		c.markLine(n.Pos())
		c.code.EmitByte(vm.OpInitDict, byte(len(n.Keys)))
		return nil

	case *Indexer:
		if err := c.emitExpr(n.Body); err != nil {
			return err
		}
		if err := c.emitExpr(n.Index); err != nil {
			return err
		}
		c.markLine(n.Pos())
		c.code.Emit(vm.OpGetItem)
		return nil

	case *FuncCall:
		return c.emitCall(n)

	case *AccessorFuncCall:
		return c.emitAccessorCall(n)
	}
	return c.errorAt(KindSyntax, n.Pos(), "%T cannot be used as an expression", n)
}

func (c *compiler) emitBinary(left, right Node, op TokenType) error {
	if err := c.emitExpr(left); err != nil {
		return err
	}
	if err := c.emitExpr(right); err != nil {
		return err
	}
	c.code.Emit(binaryOps[op])
	return nil
}

// emitCall emits CALL for callees known at compile time and CALL_STACK for
// everything else.
func (c *compiler) emitCall(n *FuncCall) error {
	argc := len(n.Args)
	if argc > maxOperand {
		return c.errorAt(KindArgumentCountMismatch, n.Pos(), "a call takes at most %d arguments", maxOperand)
	}

	if ref, ok := c.directCallee(c.cur, n); ok {
		if !ref.Variadic && len(ref.Params) != argc {
			return c.errorAt(KindArgumentCountMismatch, n.Pos(),
				"%s expects %d arguments, got %d", ref.QualifiedName(), len(ref.Params), argc)
		}
		if err := c.emitExprs(n.Args); err != nil {
			return err
		}
		c.markLine(n.Pos())
		c.code.EmitCall(byte(c.cur.funcSlots[ref]), byte(argc), n.AssignToTemp)
		return nil
	}

	if err := c.emitExpr(n.Callee); err != nil {
		var cerr *Error
		if errors.As(err, &cerr) && cerr.Kind == KindUnresolvedSymbol {
			cerr.Kind = KindFunctionNotFound
		}
		return err
	}
	if err := c.emitExprs(n.Args); err != nil {
		return err
	}
	c.markLine(n.Pos())
	c.code.EmitCallStack(byte(argc), n.AssignToTemp)
	return nil
}

// emitAccessorCall emits `source.name(args)`: the member is fetched with
// GET_ITEM, which binds source as the receiver, and called from the stack.
func (c *compiler) emitAccessorCall(n *AccessorFuncCall) error {
	argc := len(n.Args)
	if argc > maxOperand {
		return c.errorAt(KindArgumentCountMismatch, n.Pos(), "a call takes at most %d arguments", maxOperand)
	}
	if err := c.emitExpr(n.Source); err != nil {
		return err
	}
	c.code.EmitByte(vm.OpLoad, byte(c.cur.textSlots[n.Name]))
	c.markLine(n.Pos())
	c.code.Emit(vm.OpGetItem)
	if err := c.emitExprs(n.Args); err != nil {
		return err
	}
	c.markLine(n.Pos())
	c.code.EmitCallStack(byte(argc), n.AssignToTemp)
	return nil
}
