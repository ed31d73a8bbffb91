package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// List class
// ---------------------------------------------------------------------------

func variantOf(v Value, kind Kind) *Variant {
	obj := v.Variant()
	if obj == nil || obj.Kind != kind {
		return nil
	}
	return obj
}

func newListClass() *Class {
	c := NewClass("liste")

	c.AddMethod("uzunluk", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		return FromNumber(float64(variantOf(self, KindList).Len())), nil
	})

	c.AddMethod("ekle", []string{"öğe"}, func(_ *CallContext, self Value, args []Value) (Value, error) {
		variantOf(self, KindList).Append(Retain(args[0]))
		return Retain(self), nil
	})

	c.AddMethod("çıkar", []string{"sıra"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		list := variantOf(self, KindList)
		if !args[0].IsNumber() {
			return Empty, ctx.Errorf("çıkar: sayı bekleniyordu, %s geldi", args[0].Kind())
		}
		i, ok := indexOf(args[0].Number(), list.Len())
		if !ok {
			return Empty, nil
		}
		item, _ := list.RemoveAt(i)
		return item, nil
	})

	c.AddMethod("içeriyor", []string{"öğe"}, func(_ *CallContext, self Value, args []Value) (Value, error) {
		for _, item := range variantOf(self, KindList).Items() {
			if Equal(item, args[0]) {
				return True, nil
			}
		}
		return False, nil
	})

	c.AddMethod("temizle", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		variantOf(self, KindList).Clear()
		return Empty, nil
	})

	c.AddMethod("birleştir", []string{"ayraç"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		sep, ok := textOf(args[0])
		if !ok {
			return Empty, ctx.Errorf("birleştir: yazı bekleniyordu, %s geldi", args[0].Kind())
		}
		items := variantOf(self, KindList).Items()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.String()
		}
		return NewText(strings.Join(parts, sep)), nil
	})

	c.SetIndexer(
		func(source Value, index float64) (Value, bool) {
			list := variantOf(source, KindList)
			i, ok := indexOf(index, list.Len())
			if !ok {
				return Empty, false
			}
			item, _ := list.Item(i)
			return Retain(item), true
		},
		func(source Value, index float64, value Value) Value {
			list := variantOf(source, KindList)
			if i, ok := indexOf(index, list.Len()); ok {
				list.SetItem(i, Retain(value))
			}
			return Retain(source)
		},
	)
	return c
}
