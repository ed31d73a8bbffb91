package vm

// baseModule holds the functions callable without a module prefix.
type baseModule struct{}

func (baseModule) Name() string { return "" }

func (baseModule) Methods() []Method {
	return []Method{
		{Name: "tür", Params: []string{"değer"}, Func: baseType},
		{Name: "uzunluk", Params: []string{"değer"}, Func: baseLength},
		{Name: "yazı", Params: []string{"değer"}, Func: baseToText},
	}
}

func baseType(_ *CallContext, _ Value, args []Value) (Value, error) {
	return NewText(args[0].Kind().String()), nil
}

func baseLength(ctx *CallContext, _ Value, args []Value) (Value, error) {
	switch args[0].Kind() {
	case KindText, KindList, KindDict:
		return FromNumber(float64(Decode(args[0]).Len())), nil
	}
	return Empty, ctx.Errorf("uzunluk: %s değerinin uzunluğu yok", args[0].Kind())
}

func baseToText(_ *CallContext, _ Value, args []Value) (Value, error) {
	if args[0].Kind() == KindText {
		return Retain(args[0]), nil
	}
	return NewText(args[0].String()), nil
}
