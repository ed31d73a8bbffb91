package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxRetainRelease(t *testing.T) {
	before := LiveObjects()

	v := NewText("merhaba")
	require.True(t, v.IsBoxed())
	assert.Equal(t, KindText, v.Kind())
	assert.Equal(t, 1, RefCount(v))
	assert.Equal(t, before+1, LiveObjects())

	assert.Equal(t, v, Retain(v))
	assert.Equal(t, 2, RefCount(v))

	Release(v)
	assert.Equal(t, 1, RefCount(v))
	assert.Equal(t, "merhaba", Decode(v).Text)

	Release(v)
	assert.Equal(t, 0, RefCount(v))
	assert.Equal(t, before, LiveObjects())
}

func TestStaleHandle(t *testing.T) {
	v := NewText("eski")
	Release(v)

	// The slot is reused by the next allocation with a new generation.
	w := track(t, NewText("yeni"))

	assert.Nil(t, v.Variant())
	assert.Equal(t, KindEmpty, v.Kind())
	assert.Equal(t, "boş", v.String())
	assert.Equal(t, 0, RefCount(v))

	// Operations on the stale handle leave the live value alone.
	Retain(v)
	Release(v)
	assert.Equal(t, 1, RefCount(w))
	assert.Equal(t, "yeni", w.String())
}

func TestExhaustedSlotIsRetired(t *testing.T) {
	before := LiveObjects()

	v := NewText("son")
	idx, _ := v.handle()
	objects.mu.Lock()
	objects.slots[idx].gen = math.MaxUint16
	objects.mu.Unlock()
	last := handleValue(idx, math.MaxUint16)

	Release(last)
	assert.Equal(t, before, LiveObjects())
	assert.Nil(t, last.Variant())

	next := NewText("yeni")
	defer Release(next)
	nextIdx, _ := next.handle()
	assert.NotEqual(t, idx, nextIdx)
	assert.Nil(t, last.Variant())
}

func TestUnboxedKindsAreNotAllocated(t *testing.T) {
	before := LiveObjects()
	assert.Equal(t, FromNumber(2), Box(&Variant{Kind: KindNumber, Num: 2}))
	assert.Equal(t, True, Box(&Variant{Kind: KindBool, Flag: true}))
	assert.Equal(t, Empty, Box(&Variant{Kind: KindEmpty}))
	assert.Equal(t, Empty, Box(nil))
	assert.Equal(t, before, LiveObjects())

	assert.Equal(t, 0, RefCount(FromNumber(1)))
	Release(FromNumber(1))
	Release(Empty)
}

func TestReleaseFreesChildren(t *testing.T) {
	before := LiveObjects()

	shared := NewText("ortak")
	list := NewList([]Value{Retain(shared), NewText("iç")})
	dict := NewDict(map[string]Value{"l": list, "s": Retain(shared)})
	assert.Equal(t, 3, RefCount(shared))

	Release(dict)
	assert.Equal(t, 1, RefCount(shared))

	Release(shared)
	assert.Equal(t, before, LiveObjects())
}

func TestReleaseBoundFunction(t *testing.T) {
	before := LiveObjects()
	self := NewList([]Value{FromNumber(1)})
	fn := NewFunction(NewNativeFunction("uzunluk", nil, []string{}, nil), self)
	assert.Equal(t, 1, RefCount(self))

	Release(fn)
	assert.Equal(t, 0, RefCount(self))
	assert.Equal(t, before, LiveObjects())
}

func TestReleaseDeepNesting(t *testing.T) {
	before := LiveObjects()
	v := NewList(nil)
	for i := 0; i < 100000; i++ {
		v = NewList([]Value{v})
	}
	Release(v)
	assert.Equal(t, before, LiveObjects())
}

func TestContainerMutation(t *testing.T) {
	before := LiveObjects()

	list := NewList([]Value{NewText("a"), NewText("b")})
	obj := Decode(list)

	old, _ := obj.Item(0)
	assert.True(t, obj.SetItem(0, NewText("c")))
	assert.Equal(t, 0, RefCount(old))
	assert.False(t, obj.SetItem(5, NewText("d")))

	obj.Append(FromNumber(3))
	removed, ok := obj.RemoveAt(1)
	require.True(t, ok)
	assert.Equal(t, "b", removed.String())
	Release(removed)
	assert.Equal(t, "['c', 3]", list.String())

	dict := NewDict(nil)
	d := Decode(dict)
	d.Put("k", NewText("v1"))
	d.Put("k", NewText("v2"))
	got, ok := d.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got.String())
	assert.True(t, d.Delete("k"))
	assert.False(t, d.Delete("k"))

	obj.Clear()
	assert.Equal(t, 0, obj.Len())

	Release(list)
	Release(dict)
	assert.Equal(t, before, LiveObjects())
}
