package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testModule struct{}

func (testModule) Name() string { return "deneme" }

func (testModule) Methods() []Method {
	return []Method{
		{Name: "bir", Params: []string{}, Func: func(*CallContext, Value, []Value) (Value, error) {
			return FromNumber(1), nil
		}},
		{Name: "hepsi", Func: func(_ *CallContext, _ Value, args []Value) (Value, error) {
			return FromNumber(float64(len(args))), nil
		}},
	}
}

func TestRegistryStandardModules(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"dosya", "gç", "hata", "json", "sayı"}, reg.Modules())
	assert.Equal(t, []string{"tür", "uzunluk", "yazı"}, reg.BaseFunctions())

	fn, ok := reg.Base("uzunluk")
	require.True(t, ok)
	assert.Equal(t, "uzunluk(değer)", fn.Signature())

	fn, ok = reg.Lookup([]string{"gç"}, "satıryaz")
	require.True(t, ok)
	assert.Equal(t, -1, fn.Arity())
	assert.Equal(t, "gç::satıryaz(...)", fn.Signature())

	_, ok = reg.Lookup([]string{"gç"}, "yok")
	assert.False(t, ok)
	_, ok = reg.Lookup([]string{"yok"}, "yaz")
	assert.False(t, ok)
	_, ok = reg.Lookup([]string{"a", "b"}, "yaz")
	assert.False(t, ok)
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(testModule{})
	assert.Contains(t, reg.Modules(), "deneme")

	c, ok := reg.Module("deneme")
	require.True(t, ok)
	assert.Equal(t, []string{"bir", "hepsi"}, c.Methods())

	fn, ok := reg.Lookup([]string{"deneme"}, "hepsi")
	require.True(t, ok)
	assert.True(t, fn.IsNative())
	assert.Equal(t, []string{"deneme"}, fn.ModulePath)

	res, err := fn.Native(&CallContext{Classes: reg}, Empty, []Value{Empty, Empty})
	require.NoError(t, err)
	assert.Equal(t, FromNumber(2), res)
}

func TestRegistryClassOf(t *testing.T) {
	reg := NewRegistry()
	list := track(t, NewList(nil))
	text := track(t, NewText("a"))

	assert.NotSame(t, reg.ClassOf(list), reg.ClassOf(text))
	_, ok := reg.ClassOf(list).Method("ekle")
	assert.True(t, ok)
	assert.NotNil(t, reg.ClassOf(list).Getter())
}
