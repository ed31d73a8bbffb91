package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytecodeBuilderEmit(t *testing.T) {
	b := NewBytecodeBuilder()
	b.Emit(OpPop)
	b.EmitByte(OpLoad, 7)
	b.EmitBytes(OpFastStore, 3, 4)
	b.EmitUint16(OpJump, 0x0102)
	b.EmitCall(5, 2, true)
	b.EmitCallStack(1, false)

	assert.Equal(t, []byte{
		byte(OpPop),
		byte(OpLoad), 7,
		byte(OpFastStore), 3, 4,
		byte(OpJump), 0x02, 0x01,
		byte(OpCall), 5, 2, 1,
		byte(OpCallStack), 1, 0,
	}, b.Bytes())
	assert.Equal(t, 16, b.Len())
}

func TestBytecodePlaceholders(t *testing.T) {
	b := NewBytecodeBuilder()
	cmp := b.EmitPlaceholder(OpCompare)
	jmp := b.EmitPlaceholder(OpJump)
	b.Emit(OpHalt)
	assert.Equal(t, 1, cmp)
	assert.Equal(t, 4, jmp)

	// Compare is relative to the end of its operand.
	require.NoError(t, b.PatchCompare(cmp, 6))
	require.NoError(t, b.PatchJump(jmp, 300))
	assert.Equal(t, []byte{
		byte(OpCompare), 3, 0,
		byte(OpJump), 0x2C, 0x01,
		byte(OpHalt),
	}, b.Bytes())

	assert.Panics(t, func() { _ = b.PatchCompare(cmp, 0) })
}

func TestBytecodeJumpRange(t *testing.T) {
	b := NewBytecodeBuilder()
	site := b.EmitPlaceholder(OpJump)
	assert.ErrorIs(t, b.PatchJump(site, MaxCodeSize+1), ErrCodeTooLarge)
	assert.ErrorIs(t, b.PatchJump(site, -1), ErrCodeTooLarge)
	assert.ErrorIs(t, b.EmitJump(MaxCodeSize+1), ErrCodeTooLarge)
	assert.ErrorIs(t, b.PatchCompare(site, site+2+MaxCodeSize+1), ErrCodeTooLarge)
	require.NoError(t, b.EmitJump(MaxCodeSize))
}

func TestBytecodeReader(t *testing.T) {
	r := NewBytecodeReader([]byte{byte(OpJump), 0x34, 0x12, 9})
	assert.Equal(t, OpJump, r.ReadOpcode())
	assert.Equal(t, uint16(0x1234), r.ReadUint16())
	assert.True(t, r.HasMore())
	assert.Equal(t, byte(9), r.ReadByte())
	assert.False(t, r.HasMore())
	assert.Equal(t, 4, r.Position())
	assert.Panics(t, func() { r.ReadByte() })
}

func TestOpcodeInfo(t *testing.T) {
	assert.Equal(t, "CALL", OpCall.Name())
	assert.Equal(t, 3, OpCall.OperandBytes())
	assert.Equal(t, 2, OpCompare.OperandBytes())
	assert.Equal(t, "SET_ITEM", OpSetItem.String())
	assert.Equal(t, "UNKNOWN_FE", Opcode(0xFE).Name())
}

func TestDisassemble(t *testing.T) {
	b := NewBytecodeBuilder()
	b.EmitUint16(OpJump, 3)
	b.EmitBytes(OpFastStore, 4, 1)
	site := b.EmitPlaceholder(OpCompare)
	b.EmitCall(1, 2, true)
	require.NoError(t, b.PatchCompare(site, b.Len()))
	b.Emit(OpHalt)

	lines := strings.Split(strings.TrimSpace(Disassemble(b.Bytes())), "\n")
	assert.Equal(t, []string{
		"0000  JUMP 0003",
		"0003  FAST_STORE 4 1",
		"0006  COMPARE +4 (-> 0013)",
		"0009  CALL 1 argc=2 want=1",
		"0013  HALT",
	}, lines)
}
