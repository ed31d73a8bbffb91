package vm

// debugModule is `hata`, runtime assertions.
type debugModule struct{}

func (debugModule) Name() string { return "hata" }

func (debugModule) Methods() []Method {
	return []Method{
		{Name: "doğrula", Func: debugAssert},
	}
}

// debugAssert takes a condition and an optional message and fails the run
// when the condition is falsy.
func debugAssert(ctx *CallContext, _ Value, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Empty, ctx.Errorf("doğrula: 1 ya da 2 argüman bekleniyordu, %d geldi", len(args))
	}
	if Truthy(args[0]) {
		return Empty, nil
	}
	if len(args) == 2 {
		return Empty, ctx.Errorf("doğrulama başarısız: %s", args[1].String())
	}
	return Empty, ctx.Errorf("doğrulama başarısız")
}
