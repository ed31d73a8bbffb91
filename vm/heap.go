package vm

import (
	"math"
	"sync"
)

// ---------------------------------------------------------------------------
// Reference-counted heap arena
// ---------------------------------------------------------------------------

// heapSlot holds one boxed variant. gen is bumped each time the slot is
// freed so that handles into the old occupant stop decoding. A slot whose
// gen has reached its maximum is retired instead of reused, so a handle
// never decodes to a later occupant.
type heapSlot struct {
	obj  *Variant
	refs int32
	gen  uint16
}

// heap is the arena behind every boxed Value. It is shared by all VMs in the
// process and guarded by a mutex; the values themselves are not safe for
// concurrent mutation.
type heap struct {
	mu    sync.Mutex
	slots   []heapSlot
	free    []uint32
	retired int
}

var objects = &heap{}

// Box moves obj into the arena and returns a Value holding exactly one
// ownership unit. Unboxed kinds (Number, Bool, Empty) are encoded inline.
func Box(obj *Variant) Value {
	if obj == nil {
		return Empty
	}
	switch obj.Kind {
	case KindEmpty:
		return Empty
	case KindNumber:
		return FromNumber(obj.Num)
	case KindBool:
		return FromBool(obj.Flag)
	}

	objects.mu.Lock()
	defer objects.mu.Unlock()

	var idx uint32
	if n := len(objects.free); n > 0 {
		idx = objects.free[n-1]
		objects.free = objects.free[:n-1]
	} else {
		idx = uint32(len(objects.slots))
		objects.slots = append(objects.slots, heapSlot{})
	}
	slot := &objects.slots[idx]
	slot.obj = obj
	slot.refs = 1
	return handleValue(idx, slot.gen)
}

// Variant returns the heap variant behind a boxed value, or nil for unboxed
// values and stale handles. Reading never changes the reference count.
func (v Value) Variant() *Variant {
	if !v.IsBoxed() {
		return nil
	}
	idx, gen := v.handle()

	objects.mu.Lock()
	defer objects.mu.Unlock()

	if int(idx) >= len(objects.slots) {
		return nil
	}
	slot := &objects.slots[idx]
	if slot.gen != gen || slot.obj == nil {
		return nil
	}
	return slot.obj
}

// Retain adds one ownership unit to v and returns it. It is a no-op for
// unboxed values.
func Retain(v Value) Value {
	if !v.IsBoxed() {
		return v
	}
	idx, gen := v.handle()

	objects.mu.Lock()
	defer objects.mu.Unlock()

	if int(idx) < len(objects.slots) {
		slot := &objects.slots[idx]
		if slot.gen == gen && slot.obj != nil {
			slot.refs++
		}
	}
	return v
}

// Release drops one ownership unit. When the last unit goes the slot is
// freed and every value the variant owns is released in turn. Releasing a
// stale handle does nothing.
func Release(v Value) {
	for pending := []Value{v}; len(pending) > 0; {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if obj := releaseOne(cur); obj != nil {
			pending = obj.appendOwned(pending)
		}
	}
}

// releaseOne decrements one handle and returns the variant if it was freed.
func releaseOne(v Value) *Variant {
	if !v.IsBoxed() {
		return nil
	}
	idx, gen := v.handle()

	objects.mu.Lock()
	defer objects.mu.Unlock()

	if int(idx) >= len(objects.slots) {
		return nil
	}
	slot := &objects.slots[idx]
	if slot.gen != gen || slot.obj == nil {
		return nil
	}
	slot.refs--
	if slot.refs > 0 {
		return nil
	}
	obj := slot.obj
	slot.obj = nil
	slot.refs = 0
	if slot.gen == math.MaxUint16 {
		objects.retired++
		return obj
	}
	slot.gen++
	objects.free = append(objects.free, idx)
	return obj
}

// RefCount returns the number of ownership units held on v. Unboxed values
// and stale handles report 0.
func RefCount(v Value) int {
	if !v.IsBoxed() {
		return 0
	}
	idx, gen := v.handle()

	objects.mu.Lock()
	defer objects.mu.Unlock()

	if int(idx) >= len(objects.slots) {
		return 0
	}
	slot := &objects.slots[idx]
	if slot.gen != gen || slot.obj == nil {
		return 0
	}
	return int(slot.refs)
}

// LiveObjects returns how many variants are currently boxed.
func LiveObjects() int {
	objects.mu.Lock()
	defer objects.mu.Unlock()
	return len(objects.slots) - len(objects.free) - objects.retired
}
