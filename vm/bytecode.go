package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Control
const (
	OpHalt Opcode = 0x00 // stop; scope 0 stack top is the result
	OpPop  Opcode = 0x01 // discard the top of stack
)

// Slot access. Slot operands index the current scope's memory.
const (
	OpLoad        Opcode = 0x10 // <slot> push memory[slot]
	OpStore       Opcode = 0x11 // <slot> pop into memory[slot]
	OpFastStore   Opcode = 0x12 // <dst> <src> memory[dst] = memory[src]
	OpCopyToStore Opcode = 0x13 // <slot> memory[slot] = top, top stays
)

// Arithmetic
const (
	OpAddition    Opcode = 0x20
	OpSubtraction Opcode = 0x21
	OpMultiply    Opcode = 0x22
	OpDivision    Opcode = 0x23
	OpModule      Opcode = 0x24
	OpNegative    Opcode = 0x25
	OpIncrement   Opcode = 0x26
	OpDecrement   Opcode = 0x27
)

// Logic
const (
	OpAnd Opcode = 0x30
	OpOr  Opcode = 0x31
	OpNot Opcode = 0x32
)

// Comparison
const (
	OpEqual            Opcode = 0x40
	OpNotEqual         Opcode = 0x41
	OpGreaterThan      Opcode = 0x42
	OpGreaterEqualThan Opcode = 0x43
	OpLessThan         Opcode = 0x44
	OpLessEqualThan    Opcode = 0x45
)

// Branching. Compare's operand is relative to the byte after it; Jump's is
// an absolute code offset.
const (
	OpCompare Opcode = 0x50 // <off16> pop; falsy -> ip += off
	OpJump    Opcode = 0x51 // <addr16>
)

// Calls
const (
	OpCall          Opcode = 0x60 // <slot> <argc> <want>
	OpCallStack     Opcode = 0x61 // <argc> <want>, callee below the arguments
	OpReturn        Opcode = 0x62
	OpInitArguments Opcode = 0x63 // <n> move caller args into parameter slots
	OpFunc          Opcode = 0x64 // function body marker
)

// Containers
const (
	OpInitList Opcode = 0x70 // <n>
	OpInitDict Opcode = 0x71 // <n> key/value pairs
	OpGetItem  Opcode = 0x72
	OpSetItem  Opcode = 0x73
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo contains metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
	StackEffect  int    // net effect on stack (-1 = variable)
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpHalt: {"HALT", 0, 0},
	OpPop:  {"POP", 0, -1},

	OpLoad:        {"LOAD", 1, 1},
	OpStore:       {"STORE", 1, -1},
	OpFastStore:   {"FAST_STORE", 2, 0},
	OpCopyToStore: {"COPY_TO_STORE", 1, 0},

	OpAddition:    {"ADDITION", 0, -1},
	OpSubtraction: {"SUBTRACTION", 0, -1},
	OpMultiply:    {"MULTIPLY", 0, -1},
	OpDivision:    {"DIVISION", 0, -1},
	OpModule:      {"MODULE", 0, -1},
	OpNegative:    {"NEGATIVE", 0, 0},
	OpIncrement:   {"INCREMENT", 0, 0},
	OpDecrement:   {"DECREMENT", 0, 0},

	OpAnd: {"AND", 0, -1},
	OpOr:  {"OR", 0, -1},
	OpNot: {"NOT", 0, 0},

	OpEqual:            {"EQUAL", 0, -1},
	OpNotEqual:         {"NOT_EQUAL", 0, -1},
	OpGreaterThan:      {"GREATER_THAN", 0, -1},
	OpGreaterEqualThan: {"GREATER_EQUAL_THAN", 0, -1},
	OpLessThan:         {"LESS_THAN", 0, -1},
	OpLessEqualThan:    {"LESS_EQUAL_THAN", 0, -1},

	OpCompare: {"COMPARE", 2, -1},
	OpJump:    {"JUMP", 2, 0},

	OpCall:          {"CALL", 3, -1},
	OpCallStack:     {"CALL_STACK", 2, -1},
	OpReturn:        {"RETURN", 0, -1},
	OpInitArguments: {"INIT_ARGUMENTS", 1, 0},
	OpFunc:          {"FUNC", 0, 0},

	OpInitList: {"INIT_LIST", 1, -1},
	OpInitDict: {"INIT_DICT", 1, -1},
	OpGetItem:  {"GET_ITEM", 0, -1},
	OpSetItem:  {"SET_ITEM", 0, -2},
}

// Info returns metadata for the opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0}
}

// Name returns the opcode's name.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements Stringer.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// BytecodeBuilder: Helper for constructing bytecode
// ---------------------------------------------------------------------------

// MaxCodeSize is the largest program addressable by 16-bit jump operands.
const MaxCodeSize = 0xFFFF

// ErrCodeTooLarge is returned when a jump target does not fit in 16 bits.
var ErrCodeTooLarge = errors.New("bytecode: code exceeds 65535 bytes")

// BytecodeBuilder helps construct bytecode sequences.
type BytecodeBuilder struct {
	bytes []byte
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		bytes: make([]byte, 0, 64),
	}
}

// Bytes returns the constructed bytecode.
func (b *BytecodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length, which is also the offset of the next
// instruction.
func (b *BytecodeBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitByte appends an opcode with a single byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitBytes appends an opcode followed by raw byte operands.
func (b *BytecodeBuilder) EmitBytes(op Opcode, operands ...byte) {
	b.bytes = append(b.bytes, byte(op))
	b.bytes = append(b.bytes, operands...)
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// EmitCall appends CALL <slot> <argc> <want>.
func (b *BytecodeBuilder) EmitCall(slot, argc byte, want bool) {
	b.bytes = append(b.bytes, byte(OpCall), slot, argc, boolByte(want))
}

// EmitCallStack appends CALL_STACK <argc> <want>.
func (b *BytecodeBuilder) EmitCallStack(argc byte, want bool) {
	b.bytes = append(b.bytes, byte(OpCallStack), argc, boolByte(want))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Placeholders for forward jumps
// ---------------------------------------------------------------------------

// EmitPlaceholder appends a branching opcode with a zero 16-bit operand and
// returns the operand's position for a later Patch call.
func (b *BytecodeBuilder) EmitPlaceholder(op Opcode) int {
	b.bytes = append(b.bytes, byte(op))
	site := len(b.bytes)
	b.bytes = append(b.bytes, 0, 0)
	return site
}

// EmitJump appends JUMP to a known absolute target.
func (b *BytecodeBuilder) EmitJump(target int) error {
	if target < 0 || target > MaxCodeSize {
		return ErrCodeTooLarge
	}
	b.EmitUint16(OpJump, uint16(target))
	return nil
}

// PatchJump stores an absolute target at a JUMP placeholder site.
func (b *BytecodeBuilder) PatchJump(site, target int) error {
	if target < 0 || target > MaxCodeSize {
		return ErrCodeTooLarge
	}
	binary.LittleEndian.PutUint16(b.bytes[site:], uint16(target))
	return nil
}

// PatchCompare stores the forward distance from the byte after a COMPARE
// placeholder site to target.
func (b *BytecodeBuilder) PatchCompare(site, target int) error {
	offset := target - (site + 2)
	if offset < 0 {
		panic("compare: backward branch")
	}
	if offset > MaxCodeSize {
		return ErrCodeTooLarge
	}
	binary.LittleEndian.PutUint16(b.bytes[site:], uint16(offset))
	return nil
}

// ---------------------------------------------------------------------------
// BytecodeReader: Helper for reading bytecode
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode sequentially.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a new reader.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc, pos: 0}
}

// Position returns the current position.
func (r *BytecodeReader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *BytecodeReader) HasMore() bool {
	return r.pos < len(r.bytes)
}

// ReadOpcode reads the next opcode.
func (r *BytecodeReader) ReadOpcode() Opcode {
	return Opcode(r.ReadByte())
}

// ReadByte reads a single byte operand.
func (r *BytecodeReader) ReadByte() byte {
	if r.pos >= len(r.bytes) {
		panic("bytecode underflow")
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadUint16 reads a 16-bit operand (little-endian).
func (r *BytecodeReader) ReadUint16() uint16 {
	if r.pos+2 > len(r.bytes) {
		panic("bytecode underflow")
	}
	v := binary.LittleEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// DisassembleInstruction returns a human-readable representation of the
// instruction at the reader's position and advances past it.
func DisassembleInstruction(r *BytecodeReader) string {
	pos := r.Position()
	op := r.ReadOpcode()
	info := op.Info()

	switch op {
	case OpLoad, OpStore, OpCopyToStore, OpInitArguments, OpInitList, OpInitDict:
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, r.ReadByte())

	case OpFastStore:
		dst := r.ReadByte()
		src := r.ReadByte()
		return fmt.Sprintf("%04d  %s %d %d", pos, info.Name, dst, src)

	case OpCompare:
		off := r.ReadUint16()
		return fmt.Sprintf("%04d  %s +%d (-> %04d)", pos, info.Name, off, r.Position()+int(off))

	case OpJump:
		return fmt.Sprintf("%04d  %s %04d", pos, info.Name, r.ReadUint16())

	case OpCall:
		slot := r.ReadByte()
		argc := r.ReadByte()
		want := r.ReadByte()
		return fmt.Sprintf("%04d  %s %d argc=%d want=%d", pos, info.Name, slot, argc, want)

	case OpCallStack:
		argc := r.ReadByte()
		want := r.ReadByte()
		return fmt.Sprintf("%04d  %s argc=%d want=%d", pos, info.Name, argc, want)

	default:
		for i := 0; i < info.OperandBytes && r.HasMore(); i++ {
			r.ReadByte()
		}
		return fmt.Sprintf("%04d  %s", pos, info.Name)
	}
}

// Disassemble returns a human-readable listing of the whole byte vector.
func Disassemble(bc []byte) string {
	var sb strings.Builder
	r := NewBytecodeReader(bc)
	for r.HasMore() {
		sb.WriteString(DisassembleInstruction(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
