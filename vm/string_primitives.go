package vm

import (
	"math"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Text class
// ---------------------------------------------------------------------------

func newTextClass() *Class {
	c := NewClass("yazı")

	c.AddMethod("uzunluk", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		s, _ := textOf(self)
		return FromNumber(float64(len([]rune(s)))), nil
	})

	c.AddMethod("büyük", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		s, _ := textOf(self)
		return NewText(strings.ToUpperSpecial(unicode.TurkishCase, s)), nil
	})

	c.AddMethod("küçük", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		s, _ := textOf(self)
		return NewText(strings.ToLowerSpecial(unicode.TurkishCase, s)), nil
	})

	c.AddMethod("kırp", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		s, _ := textOf(self)
		return NewText(strings.TrimSpace(s)), nil
	})

	c.AddMethod("içeriyor", []string{"alt"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		s, _ := textOf(self)
		sub, ok := textOf(args[0])
		if !ok {
			return Empty, ctx.Errorf("içeriyor: yazı bekleniyordu, %s geldi", args[0].Kind())
		}
		return FromBool(strings.Contains(s, sub)), nil
	})

	c.AddMethod("parçala", []string{"ayraç"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		s, _ := textOf(self)
		sep, ok := textOf(args[0])
		if !ok {
			return Empty, ctx.Errorf("parçala: yazı bekleniyordu, %s geldi", args[0].Kind())
		}
		parts := strings.Split(s, sep)
		items := make([]Value, len(parts))
		for i, p := range parts {
			items[i] = NewText(p)
		}
		return NewList(items), nil
	})

	c.AddMethod("başlar", []string{"önek"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		s, _ := textOf(self)
		prefix, ok := textOf(args[0])
		if !ok {
			return Empty, ctx.Errorf("başlar: yazı bekleniyordu, %s geldi", args[0].Kind())
		}
		return FromBool(strings.HasPrefix(s, prefix)), nil
	})

	c.AddMethod("biter", []string{"sonek"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		s, _ := textOf(self)
		suffix, ok := textOf(args[0])
		if !ok {
			return Empty, ctx.Errorf("biter: yazı bekleniyordu, %s geldi", args[0].Kind())
		}
		return FromBool(strings.HasSuffix(s, suffix)), nil
	})

	c.SetIndexer(textGetRune, textSetRune)
	return c
}

// indexOf converts a numeric index to an int if it is a whole number in
// [0, n).
func indexOf(index float64, n int) (int, bool) {
	if index != math.Trunc(index) || index < 0 || index >= float64(n) {
		return 0, false
	}
	return int(index), true
}

func textGetRune(source Value, index float64) (Value, bool) {
	s, _ := textOf(source)
	runes := []rune(s)
	i, ok := indexOf(index, len(runes))
	if !ok {
		return Empty, false
	}
	return NewText(string(runes[i])), true
}

// textSetRune never mutates: texts are shared by handle, so assignment
// builds a new text with the rune at index replaced by the value's text.
func textSetRune(source Value, index float64, value Value) Value {
	s, _ := textOf(source)
	runes := []rune(s)
	i, ok := indexOf(index, len(runes))
	repl, isText := textOf(value)
	if !ok || !isText {
		return Retain(source)
	}
	var sb strings.Builder
	sb.WriteString(string(runes[:i]))
	sb.WriteString(repl)
	sb.WriteString(string(runes[i+1:]))
	return NewText(sb.String())
}
