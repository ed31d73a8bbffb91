package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Interpreter: Bytecode execution engine
// ---------------------------------------------------------------------------

// Interpreter executes one Program. It is single threaded and runs to
// completion; the only blocking point is a native reading stdin.
type Interpreter struct {
	program  *Program
	registry *Registry
	ctx      *CallContext
	maxDepth int
	profiler *Profiler

	// Scopes are addressed by index. A *scope taken from this slice is only
	// valid until the next pushScope, which may reallocate it.
	scopes     []scope
	scopeIndex int

	opStart int // offset of the executing instruction
}

// NewInterpreter creates an interpreter for p using the registry and
// options of vm.
func NewInterpreter(p *Program, vm *VM) *Interpreter {
	return &Interpreter{
		program:  p,
		registry: vm.Registry,
		ctx:      vm.callContext(),
		maxDepth: vm.options.MaxCallDepth,
		profiler: vm.options.Profiler,
		scopes:   make([]scope, 16),
	}
}

// Run executes the program from offset 0 in scope 0. The result is the top
// of the top-level operand stack at HALT, or Empty. The caller owns the
// returned value.
func (in *Interpreter) Run() (result Value, err error) {
	if len(in.program.Storages) == 0 {
		return Empty, &RuntimeError{Kind: KindInvalidProgram, Message: "program has no storage"}
	}
	in.scopeIndex = 0
	in.scopes[0].enter(0, in.program.Storages[0])

	defer func() {
		if r := recover(); r != nil {
			in.unwind()
			result = Empty
			err = in.fail(in.opStart, KindInvalidProgram, fmt.Sprintf("invalid program: %v", r))
		}
	}()

	result, err = in.execute()
	if err != nil {
		in.unwind()
		result = Empty
	}
	return result, err
}

// unwind releases every live scope.
func (in *Interpreter) unwind() {
	for i := in.scopeIndex; i >= 0; i-- {
		in.scopes[i].leave()
	}
	in.scopeIndex = 0
}

func (in *Interpreter) fail(at int, kind ErrorKind, msg string) error {
	line, col := in.program.Position(at)
	return &RuntimeError{Kind: kind, Message: msg, Line: line, Column: col}
}

func (in *Interpreter) pushScope(storage int) {
	in.scopeIndex++
	if in.scopeIndex == len(in.scopes) {
		grown := make([]scope, len(in.scopes)*2)
		copy(grown, in.scopes)
		in.scopes = grown
		log.Debugf("scope vector grown to %d", len(grown))
	}
	in.scopes[in.scopeIndex].enter(storage, in.program.Storages[storage])
}

func readUint16(code []byte, ip int) int {
	return int(binary.LittleEndian.Uint16(code[ip:]))
}

// ---------------------------------------------------------------------------
// Main loop
// ---------------------------------------------------------------------------

func (in *Interpreter) execute() (Value, error) {
	code := in.program.Code
	ip := 0

	for {
		if ip < 0 || ip >= len(code) {
			return Empty, in.fail(in.opStart, KindInvalidProgram, fmt.Sprintf("instruction pointer %d out of range", ip))
		}
		in.opStart = ip
		s := &in.scopes[in.scopeIndex]
		op := Opcode(code[ip])
		ip++

		switch op {
		case OpHalt:
			result := Empty
			if s.depth > 0 {
				result = s.pop()
			}
			in.unwind()
			return result, nil

		case OpPop:
			Release(s.pop())

		case OpFunc:

		// Slot access

		case OpLoad:
			s.push(Retain(s.memory[code[ip]]))
			ip++

		case OpStore:
			s.store(code[ip], s.pop())
			ip++

		case OpFastStore:
			s.store(code[ip], Retain(s.memory[code[ip+1]]))
			ip += 2

		case OpCopyToStore:
			s.store(code[ip], Retain(s.top()))
			ip++

		// Arithmetic

		case OpAddition, OpSubtraction, OpMultiply, OpDivision, OpModule:
			b := s.pop()
			a := s.pop()
			s.push(arithmetic(op, a, b))
			Release(a)
			Release(b)

		case OpNegative:
			a := s.pop()
			s.push(Negate(a))
			Release(a)

		case OpIncrement, OpDecrement:
			a := s.pop()
			if op == OpIncrement {
				s.push(Add(a, FromNumber(1)))
			} else {
				s.push(Sub(a, FromNumber(1)))
			}
			Release(a)

		// Logic and comparison

		case OpAnd, OpOr, OpEqual, OpNotEqual,
			OpGreaterThan, OpGreaterEqualThan, OpLessThan, OpLessEqualThan:
			b := s.pop()
			a := s.pop()
			s.push(FromBool(compare(op, a, b)))
			Release(a)
			Release(b)

		case OpNot:
			a := s.pop()
			s.push(FromBool(!Truthy(a)))
			Release(a)

		// Branching

		case OpCompare:
			cond := s.pop()
			off := readUint16(code, ip)
			ip += 2
			if !Truthy(cond) {
				ip += off
			}
			Release(cond)

		case OpJump:
			ip = readUint16(code, ip)

		// Calls

		case OpCall:
			slot, argc, want := code[ip], int(code[ip+1]), code[ip+2] != 0
			ip += 3
			next, err := in.call(s.memory[slot], argc, want, ip)
			if err != nil {
				return Empty, err
			}
			ip = next

		case OpCallStack:
			argc, want := int(code[ip]), code[ip+1] != 0
			ip += 2
			if s.depth < argc+1 {
				return Empty, in.fail(in.opStart, KindInvalidProgram, "operand stack underflow")
			}
			// Lift the callee out from under its arguments.
			end := s.base + s.depth
			calleeAt := end - argc - 1
			callee := s.memory[calleeAt]
			copy(s.memory[calleeAt:end-1], s.memory[calleeAt+1:end])
			s.memory[end-1] = Empty
			s.depth--

			next, err := in.call(callee, argc, want, ip)
			Release(callee)
			if err != nil {
				return Empty, err
			}
			ip = next

		case OpInitArguments:
			n := int(code[ip])
			ip++
			if in.scopeIndex == 0 {
				return Empty, in.fail(in.opStart, KindInvalidProgram, "arguments outside a call")
			}
			caller := &in.scopes[in.scopeIndex-1]
			from := caller.base + s.callerDepth
			for i := 0; i < n; i++ {
				s.store(byte(s.params+i), caller.memory[from+i])
				caller.memory[from+i] = Empty
			}
			caller.depth = s.callerDepth

		case OpReturn:
			rv := Empty
			if s.depth > 0 {
				rv = s.pop()
			}
			if in.scopeIndex == 0 {
				in.unwind()
				return rv, nil
			}
			retIP, want := s.returnIP, s.wantResult
			s.leave()
			in.scopeIndex--
			caller := &in.scopes[in.scopeIndex]
			if want {
				caller.push(rv)
			} else {
				Release(rv)
			}
			ip = retIP

		// Containers

		case OpInitList:
			n := int(code[ip])
			ip++
			items := make([]Value, n)
			for i := n - 1; i >= 0; i-- {
				items[i] = s.pop()
			}
			s.push(NewList(items))

		case OpInitDict:
			n := int(code[ip])
			ip++
			dict, err := in.initDict(s, n)
			if err != nil {
				return Empty, err
			}
			s.push(dict)

		case OpGetItem:
			key := s.pop()
			source := s.pop()
			res, err := in.getItem(source, key)
			Release(key)
			Release(source)
			if err != nil {
				return Empty, err
			}
			s.push(res)

		case OpSetItem:
			value := s.pop()
			key := s.pop()
			source := s.pop()
			res, err := in.setItem(source, key, value)
			Release(value)
			Release(key)
			Release(source)
			if err != nil {
				return Empty, err
			}
			s.push(res)

		default:
			return Empty, in.fail(in.opStart, KindInvalidProgram, fmt.Sprintf("unknown opcode 0x%02X", byte(op)))
		}
	}
}

func arithmetic(op Opcode, a, b Value) Value {
	switch op {
	case OpAddition:
		return Add(a, b)
	case OpSubtraction:
		return Sub(a, b)
	case OpMultiply:
		return Mul(a, b)
	case OpDivision:
		return Div(a, b)
	default:
		return Mod(a, b)
	}
}

func compare(op Opcode, a, b Value) bool {
	switch op {
	case OpAnd:
		return Truthy(a) && Truthy(b)
	case OpOr:
		return Truthy(a) || Truthy(b)
	case OpEqual:
		return Equal(a, b)
	case OpNotEqual:
		return !Equal(a, b)
	case OpGreaterThan:
		return Greater(a, b)
	case OpGreaterEqualThan:
		return GreaterEqual(a, b)
	case OpLessThan:
		return Less(a, b)
	default:
		return LessEqual(a, b)
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// call invokes callee with the argc topmost operands of the current scope.
// Native calls complete immediately; compiled calls push a scope and return
// the callee's body offset as the next ip.
func (in *Interpreter) call(callee Value, argc int, want bool, ip int) (int, error) {
	obj := callee.Variant()
	if obj == nil || obj.Kind != KindFunction || obj.Func == nil {
		return 0, in.fail(in.opStart, KindNotCallable, fmt.Sprintf("%s çağrılamaz", callee.Kind()))
	}
	fn := obj.Func
	s := &in.scopes[in.scopeIndex]
	if s.depth < argc {
		return 0, in.fail(in.opStart, KindInvalidProgram, "operand stack underflow")
	}
	if !fn.Variadic && len(fn.Params) != argc {
		return 0, in.fail(in.opStart, KindArgumentCountMismatch,
			fmt.Sprintf("%s %d argüman bekliyor, %d verildi", fn.QualifiedName(), len(fn.Params), argc))
	}
	if in.profiler != nil {
		in.profiler.RecordCall(fn)
	}

	if fn.IsNative() {
		if fn.Native == nil {
			return 0, in.fail(in.opStart, KindInvalidProgram, fmt.Sprintf("native %s has no callback", fn.QualifiedName()))
		}
		res, err := fn.Native(in.ctx, obj.Self, s.window(argc))
		s.drop(argc)
		if err != nil {
			return 0, in.nativeFailure(fn, err)
		}
		if want {
			s.push(res)
		} else {
			Release(res)
		}
		return ip, nil
	}

	if fn.Offset < 0 || fn.Storage <= 0 || fn.Storage >= len(in.program.Storages) {
		return 0, in.fail(in.opStart, KindInvalidProgram, fmt.Sprintf("function %s has no body", fn.QualifiedName()))
	}
	if in.scopeIndex+1 >= in.maxDepth {
		return 0, in.fail(in.opStart, KindStackOrScopeOverflow,
			fmt.Sprintf("çağrı derinliği %d sınırını aştı", in.maxDepth))
	}
	callerDepth := s.depth - argc
	in.pushScope(fn.Storage)
	ns := &in.scopes[in.scopeIndex]
	ns.returnIP = ip
	ns.wantResult = want
	ns.callerDepth = callerDepth
	return fn.Offset, nil
}

func (in *Interpreter) nativeFailure(fn *FunctionRef, err error) error {
	line, col := in.program.Position(in.opStart)
	msg := err.Error()
	var ne *NativeError
	if errors.As(err, &ne) {
		ne.Line, ne.Column = line, col
		msg = ne.Message
	}
	return &RuntimeError{
		Kind:    KindNativeCallFailure,
		Message: fn.QualifiedName() + ": " + msg,
		Line:    line,
		Column:  col,
		Err:     err,
	}
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

// initDict pops n key/value pairs. When a key repeats, the later pair wins.
func (in *Interpreter) initDict(s *scope, n int) (Value, error) {
	entries := make(map[string]Value, n)
	var bad Value = Empty
	for i := n - 1; i >= 0; i-- {
		v := s.pop()
		k := s.pop()
		key, ok := DictKey(k)
		if !ok {
			if bad == Empty {
				bad = Retain(k)
			}
			Release(v)
		} else if _, seen := entries[key]; seen {
			Release(v)
		} else {
			entries[key] = v
		}
		Release(k)
	}
	if bad != Empty {
		kind := bad.Kind()
		Release(bad)
		for _, v := range entries {
			Release(v)
		}
		return Empty, in.fail(in.opStart, KindIndexerTypeMismatch, fmt.Sprintf("sözlük anahtarı %s olamaz", kind))
	}
	return NewDict(entries), nil
}

// getItem resolves source[key]. A text key tries the class's text indexer,
// then its methods (bound to source), then its properties.
func (in *Interpreter) getItem(source, key Value) (Value, error) {
	class := in.registry.ClassOf(source)

	if key.IsNumber() {
		if get := class.Getter(); get != nil {
			if v, ok := get(source, key.Number()); ok {
				return v, nil
			}
			return Empty, nil
		}
		// Dicts store number keys in their text form.
		if get := class.TextGetter(); get != nil {
			if v, ok := get(source, FormatNumber(key.Number())); ok {
				return v, nil
			}
		}
		return Empty, nil
	}

	name, ok := textOf(key)
	if !ok {
		return Empty, in.fail(in.opStart, KindIndexerTypeMismatch,
			fmt.Sprintf("%s değeri %s ile indekslenemez", source.Kind(), key.Kind()))
	}
	if get := class.TextGetter(); get != nil {
		if v, ok := get(source, name); ok {
			return v, nil
		}
	}
	if m, ok := class.Method(name); ok {
		return NewFunction(m, Retain(source)), nil
	}
	if p, ok := class.Property(name); ok {
		return p(source), nil
	}
	return Empty, nil
}

// setItem performs source[key] = value and returns the resulting container.
func (in *Interpreter) setItem(source, key, value Value) (Value, error) {
	class := in.registry.ClassOf(source)

	if key.IsNumber() {
		if set := class.Setter(); set != nil {
			return set(source, key.Number(), value), nil
		}
		if set := class.TextSetter(); set != nil {
			return set(source, FormatNumber(key.Number()), value), nil
		}
		return Retain(source), nil
	}

	name, ok := textOf(key)
	if !ok {
		return Empty, in.fail(in.opStart, KindIndexerTypeMismatch,
			fmt.Sprintf("%s değeri %s ile indekslenemez", source.Kind(), key.Kind()))
	}
	if set := class.TextSetter(); set != nil {
		return set(source, name, value), nil
	}
	return Retain(source), nil
}
