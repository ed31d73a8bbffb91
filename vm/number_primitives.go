package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Number class
// ---------------------------------------------------------------------------

func newNumberClass() *Class {
	c := NewClass("sayı")
	c.AddMethod("tamsayı", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		return FromNumber(math.Trunc(self.Number())), nil
	})
	c.AddMethod("yuvarla", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		return FromNumber(math.Round(self.Number())), nil
	})
	c.AddMethod("mutlak", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		return FromNumber(math.Abs(self.Number())), nil
	})
	return c
}

// ---------------------------------------------------------------------------
// sayı module
// ---------------------------------------------------------------------------

type numberModule struct{}

func (numberModule) Name() string { return "sayı" }

func (numberModule) Methods() []Method {
	return []Method{
		{Name: "oku", Params: []string{"yazı"}, Func: numberParse},
		{Name: "tamsayı", Params: []string{"değer"}, Func: numberTruncate},
	}
}

// numberParse returns Empty for text that is not a finite number.
func numberParse(ctx *CallContext, _ Value, args []Value) (Value, error) {
	s, ok := textOf(args[0])
	if !ok {
		return Empty, ctx.Errorf("oku: yazı bekleniyordu, %s geldi", args[0].Kind())
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Empty, nil
	}
	return FromNumber(f), nil
}

func numberTruncate(_ *CallContext, _ Value, args []Value) (Value, error) {
	if !args[0].IsNumber() {
		return Empty, nil
	}
	return FromNumber(math.Trunc(args[0].Number())), nil
}
