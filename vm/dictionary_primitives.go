package vm

// ---------------------------------------------------------------------------
// Dictionary class
// ---------------------------------------------------------------------------

func newDictClass() *Class {
	c := NewClass("sözlük")

	c.AddMethod("uzunluk", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		return FromNumber(float64(variantOf(self, KindDict).Len())), nil
	})

	c.AddMethod("anahtarlar", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		keys := variantOf(self, KindDict).Keys()
		items := make([]Value, len(keys))
		for i, k := range keys {
			items[i] = NewText(k)
		}
		return NewList(items), nil
	})

	c.AddMethod("değerler", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		dict := variantOf(self, KindDict)
		keys := dict.Keys()
		items := make([]Value, len(keys))
		for i, k := range keys {
			v, _ := dict.Get(k)
			items[i] = Retain(v)
		}
		return NewList(items), nil
	})

	c.AddMethod("içeriyor", []string{"anahtar"}, func(_ *CallContext, self Value, args []Value) (Value, error) {
		key, ok := DictKey(args[0])
		if !ok {
			return False, nil
		}
		_, found := variantOf(self, KindDict).Get(key)
		return FromBool(found), nil
	})

	c.AddMethod("sil", []string{"anahtar"}, func(ctx *CallContext, self Value, args []Value) (Value, error) {
		key, ok := DictKey(args[0])
		if !ok {
			return Empty, ctx.Errorf("sil: anahtar yazı olmalı, %s geldi", args[0].Kind())
		}
		return FromBool(variantOf(self, KindDict).Delete(key)), nil
	})

	c.AddMethod("temizle", []string{}, func(_ *CallContext, self Value, _ []Value) (Value, error) {
		variantOf(self, KindDict).Clear()
		return Empty, nil
	})

	c.SetTextIndexer(
		func(source Value, key string) (Value, bool) {
			v, ok := variantOf(source, KindDict).Get(key)
			if !ok {
				return Empty, false
			}
			return Retain(v), true
		},
		func(source Value, key string, value Value) Value {
			variantOf(source, KindDict).Put(key, Retain(value))
			return Retain(source)
		},
	)
	return c
}

// DictKey converts a value to a dictionary key. Texts are used as is and
// numbers are formatted; any other kind is not a valid key.
func DictKey(v Value) (string, bool) {
	if v.IsNumber() {
		return FormatNumber(v.Number()), true
	}
	return textOf(v)
}
