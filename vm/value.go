package vm

import (
	"math"
)

// Value represents a Yaprak value using NaN-boxing.
//
// Every value is a 64-bit word. Numbers are stored as native IEEE 754
// doubles; everything else lives in the quiet NaN space with a tag in the
// high mantissa bits.
//
// Encoding scheme:
//   - Number:  Native IEEE 754 double (if not a tagged NaN, it's a number)
//   - Special: Quiet NaN + tagSpecial + special value ID (empty/true/false)
//   - Boxed:   Quiet NaN + tagBoxed + 48-bit heap handle
//
// A heap handle is a 32-bit arena index plus a 16-bit generation. The Go
// collector does not trace integers, so heap variants are owned by the arena
// and the handle is checked against the slot's generation on every decode.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	// 0x7FF8_0000_0000_0000
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	// 0x0007_0000_0000_0000
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for the heap handle or special ID
	// 0x0000_FFFF_FFFF_FFFF
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	// Top 16 bits of every tagged value
	headerMask uint64 = 0xFFFF000000000000

	tagSpecial uint64 = 0x0001000000000000 // empty, true, false
	tagBoxed   uint64 = 0x0002000000000000 // heap handle

	// canonicalNaN is the only NaN bit pattern a Number ever carries, so a
	// NaN produced by arithmetic can never be mistaken for a tagged value.
	canonicalNaN uint64 = nanBits
)

// Special value payloads
const (
	specialEmpty uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
)

// Pre-defined special values
const (
	Empty Value = Value(nanBits | tagSpecial | specialEmpty)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNumber returns true if v holds a float64. Infinities and the canonical
// NaN are numbers too.
func (v Value) IsNumber() bool {
	h := uint64(v) & headerMask
	return h != nanBits|tagSpecial && h != nanBits|tagBoxed
}

// IsEmpty returns true for the Empty value. Stale heap handles are not
// reported here; use Kind for the decoded view.
func (v Value) IsEmpty() bool {
	return v == Empty
}

// IsBool returns true if v is True or False.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// IsBoxed returns true if v carries a heap handle.
func (v Value) IsBoxed() bool {
	return uint64(v)&headerMask == nanBits|tagBoxed
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// FromNumber encodes a float64. Every NaN is folded into one canonical bit
// pattern.
func FromNumber(f float64) Value {
	if f != f {
		return Value(canonicalNaN)
	}
	return Value(math.Float64bits(f))
}

// Number returns the float64 stored in v. Only meaningful when IsNumber.
func (v Value) Number() float64 {
	return math.Float64frombits(uint64(v))
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// FromBool converts a Go bool to True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns true only for the True value.
func (v Value) Bool() bool {
	return v == True
}

// ---------------------------------------------------------------------------
// Heap handles
// ---------------------------------------------------------------------------

func handleValue(index uint32, gen uint16) Value {
	return Value(nanBits | tagBoxed | uint64(gen)<<32 | uint64(index))
}

func (v Value) handle() (index uint32, gen uint16) {
	payload := uint64(v) & payloadMask
	return uint32(payload), uint16(payload >> 32)
}

// Kind reports the variant kind of v without allocating for unboxed values.
// A stale handle reports KindEmpty.
func (v Value) Kind() Kind {
	switch {
	case v.IsNumber():
		return KindNumber
	case v == True || v == False:
		return KindBool
	case v.IsBoxed():
		if obj := v.Variant(); obj != nil {
			return obj.Kind
		}
	}
	return KindEmpty
}

// String returns the display form of v, the same text `yazı(x)` produces.
func (v Value) String() string {
	return Decode(v).String()
}
