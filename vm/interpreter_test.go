package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storage builds a storage from constants, variable names and a temp size.
func storage(t *testing.T, name string, parent int, consts []Value, vars []string, temps int) *Storage {
	t.Helper()
	b := NewStorageBuilder(name, parent)
	for _, c := range consts {
		_, err := b.AddConstant(c)
		require.NoError(t, err)
	}
	for _, v := range vars {
		_, err := b.AddVariable(v)
		require.NoError(t, err)
	}
	require.NoError(t, b.SetTempSize(temps))
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func runProgram(t *testing.T, p *Program, opts Options) (Value, error) {
	t.Helper()
	t.Cleanup(p.Release)
	if opts.Stdout == nil {
		opts.Stdout = &bytes.Buffer{}
	}
	res, err := New(opts).Run(p)
	t.Cleanup(func() { Release(res) })
	return res, err
}

func TestRunArithmetic(t *testing.T) {
	top := storage(t, "ana", -1, []Value{Empty, FromNumber(2), FromNumber(3)}, nil, 2)
	p := &Program{
		Code:     []byte{byte(OpLoad), 1, byte(OpLoad), 2, byte(OpAddition), byte(OpHalt)},
		Storages: []*Storage{top},
	}
	res, err := runProgram(t, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(5), res)
}

func TestRunEmptyStackHaltsWithEmpty(t *testing.T) {
	top := storage(t, "ana", -1, []Value{Empty}, nil, 0)
	res, err := runProgram(t, &Program{Code: []byte{byte(OpHalt)}, Storages: []*Storage{top}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Empty, res)
}

func TestRunNativeCall(t *testing.T) {
	double := NewNativeFunction("iki", nil, []string{"x"}, func(_ *CallContext, _ Value, args []Value) (Value, error) {
		return FromNumber(args[0].Number() * 2), nil
	})
	top := storage(t, "ana", -1, []Value{Empty, NewFunction(double, Empty), FromNumber(21)}, nil, 1)
	p := &Program{
		Code:     []byte{byte(OpLoad), 2, byte(OpCall), 1, 1, 1, byte(OpHalt)},
		Storages: []*Storage{top},
	}
	res, err := runProgram(t, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(42), res)
}

func TestRunCompiledCall(t *testing.T) {
	square := NewCompiledFunction("kare", nil, []string{"x"}, 1)
	square.Offset = 4

	top := storage(t, "ana", -1, []Value{Empty, NewFunction(square, Empty), FromNumber(5)}, nil, 1)
	body := storage(t, "kare", 0, []Value{Empty}, []string{"x"}, 2)
	p := &Program{
		Code: []byte{
			byte(OpJump), 12, 0,
			byte(OpFunc),
			byte(OpInitArguments), 1,
			byte(OpLoad), 1,
			byte(OpLoad), 1,
			byte(OpMultiply),
			byte(OpReturn),
			byte(OpLoad), 2,
			byte(OpCall), 1, 1, 1,
			byte(OpHalt),
		},
		Storages:  []*Storage{top, body},
		Functions: []*FunctionRef{square},
	}
	res, err := runProgram(t, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(25), res)
}

func TestRunLeavesNothingBehind(t *testing.T) {
	before := LiveObjects()

	top := storage(t, "ana", -1, []Value{Empty, NewText("a"), FromNumber(1)}, []string{"l"}, 3)
	p := &Program{
		Code: []byte{
			byte(OpLoad), 1,
			byte(OpLoad), 1,
			byte(OpAddition),
			byte(OpLoad), 2,
			byte(OpInitList), 2,
			byte(OpStore), 3,
			byte(OpLoad), 3,
			byte(OpLoad), 2,
			byte(OpGetItem),
			byte(OpPop),
			byte(OpHalt),
		},
		Storages: []*Storage{top},
	}
	res, err := New(Options{Stdout: &bytes.Buffer{}}).Run(p)
	require.NoError(t, err)
	assert.Equal(t, Empty, res)

	p.Release()
	assert.Equal(t, before, LiveObjects())
}

func TestRunErrors(t *testing.T) {
	failing := NewNativeFunction("patla", []string{"test"}, []string{}, func(ctx *CallContext, _ Value, _ []Value) (Value, error) {
		return Empty, ctx.Errorf("olmadı")
	})
	lines := []LineEntry{{Offset: 0, Line: 7, Column: 3}}

	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"not callable", []byte{byte(OpLoad), 1, byte(OpCallStack), 0, 1, byte(OpHalt)}, ErrNotCallable},
		{"index with bool", []byte{byte(OpLoad), 3, byte(OpLoad), 4, byte(OpGetItem), byte(OpHalt)}, ErrIndexerType},
		{"native arity", []byte{byte(OpLoad), 1, byte(OpCall), 2, 1, 1, byte(OpHalt)}, ErrArgumentCount},
		{"native failure", []byte{byte(OpCall), 2, 0, 0, byte(OpHalt)}, ErrNativeCall},
		{"unknown opcode", []byte{0xEE}, ErrInvalidProgram},
		{"jump out of range", []byte{byte(OpJump), 100, 0}, ErrInvalidProgram},
		{"bad slot", []byte{byte(OpLoad), 200, byte(OpHalt)}, ErrInvalidProgram},
		{"arguments at top level", []byte{byte(OpInitArguments), 0, byte(OpHalt)}, ErrInvalidProgram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := LiveObjects()
			top := storage(t, "ana", -1, []Value{
				Empty, FromNumber(5), NewFunction(failing, Empty), NewList(nil), True,
			}, nil, 2)
			p := &Program{Code: tt.code, Storages: []*Storage{top}, Lines: lines}

			res, err := New(Options{Stdout: &bytes.Buffer{}}).Run(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Empty, res)

			var rerr *RuntimeError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, 7, rerr.Line)

			p.Release()
			assert.Equal(t, before, LiveObjects())
		})
	}
}

func TestRunNativeWithoutCallback(t *testing.T) {
	hollow := NewNativeFunction("boşluk", []string{"m"}, []string{}, nil)
	top := storage(t, "ana", -1, []Value{Empty, NewFunction(hollow, Empty)}, nil, 1)
	p := &Program{Code: []byte{byte(OpCall), 1, 0, 1, byte(OpHalt)}, Storages: []*Storage{top}}
	_, err := runProgram(t, p, Options{})
	assert.ErrorIs(t, err, ErrInvalidProgram)
	assert.Contains(t, err.Error(), "m::boşluk")
}

func TestRunNativeErrorDetails(t *testing.T) {
	failing := NewNativeFunction("patla", []string{"test"}, []string{}, func(ctx *CallContext, _ Value, _ []Value) (Value, error) {
		return Empty, ctx.Errorf("olmadı")
	})
	top := storage(t, "ana", -1, []Value{Empty, NewFunction(failing, Empty)}, nil, 1)
	p := &Program{
		Code:     []byte{byte(OpCall), 1, 0, 0, byte(OpHalt)},
		Storages: []*Storage{top},
		Lines:    []LineEntry{{Offset: 0, Line: 2, Column: 5}},
	}
	_, err := runProgram(t, p, Options{})
	require.Error(t, err)
	assert.Equal(t, "line 2:5: test::patla: olmadı", err.Error())

	var nerr *NativeError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, 2, nerr.Line)
}

func TestRunCallDepthLimit(t *testing.T) {
	loop := NewCompiledFunction("döngü", nil, []string{}, 1)
	loop.Offset = 4
	fn := NewFunction(loop, Empty)

	top := storage(t, "ana", -1, []Value{Empty, Retain(fn)}, nil, 1)
	body := storage(t, "döngü", 0, []Value{Empty, fn}, nil, 1)
	p := &Program{
		Code: []byte{
			byte(OpJump), 11, 0,
			byte(OpFunc),
			byte(OpInitArguments), 0,
			byte(OpCall), 1, 0, 1,
			byte(OpReturn),
			byte(OpCall), 1, 0, 1,
			byte(OpHalt),
		},
		Storages: []*Storage{top, body},
	}
	before := LiveObjects()
	_, err := runProgram(t, p, Options{MaxCallDepth: 10})
	assert.ErrorIs(t, err, ErrStackOverflow)
	assert.Equal(t, before, LiveObjects())
}

func TestRunGrowsScopes(t *testing.T) {
	// 40 nested calls outgrow the initial scope vector.
	countdown := NewCompiledFunction("say", nil, []string{"n"}, 1)
	countdown.Offset = 4
	fn := NewFunction(countdown, Empty)

	top := storage(t, "ana", -1, []Value{Empty, Retain(fn), FromNumber(40)}, nil, 1)
	body := storage(t, "say", 0, []Value{Empty, fn, FromNumber(0)}, []string{"n"}, 2)
	// say(n): eğer n > 0: döndür say(n - 1) + 1; döndür 0
	code := []byte{
		byte(OpJump), 26, 0,
		byte(OpFunc),
		byte(OpInitArguments), 1,
		byte(OpLoad), 3,
		byte(OpLoad), 2,
		byte(OpGreaterThan),
		byte(OpCompare), 9, 0,
		byte(OpLoad), 3,
		byte(OpDecrement),
		byte(OpCall), 1, 1, 1,
		byte(OpIncrement),
		byte(OpReturn),
		byte(OpLoad), 2,
		byte(OpReturn),
		byte(OpLoad), 2,
		byte(OpCall), 1, 1, 1,
		byte(OpHalt),
	}

	p := &Program{Code: code, Storages: []*Storage{top, body}}
	res, err := runProgram(t, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(40), res)
}

func TestRunWithProfiler(t *testing.T) {
	double := NewNativeFunction("iki", []string{"m"}, []string{"x"}, func(_ *CallContext, _ Value, args []Value) (Value, error) {
		return FromNumber(args[0].Number() * 2), nil
	})
	top := storage(t, "ana", -1, []Value{Empty, NewFunction(double, Empty), FromNumber(1)}, nil, 1)
	p := &Program{
		Code: []byte{
			byte(OpLoad), 2,
			byte(OpCall), 1, 1, 1,
			byte(OpCall), 1, 1, 1,
			byte(OpCall), 1, 1, 1,
			byte(OpHalt),
		},
		Storages: []*Storage{top},
	}
	prof := NewProfiler()
	prof.HotThreshold = 2
	res, err := runProgram(t, p, Options{Profiler: prof})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(8), res)
	assert.Equal(t, uint64(3), prof.Calls("m::iki"))
	assert.Equal(t, uint64(1), prof.HotCount())
}
