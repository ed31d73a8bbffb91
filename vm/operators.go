package vm

import (
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equal compares two values structurally. Numbers compare by IEEE rules
// except that NaN equals NaN; values of different kinds are never equal.
func Equal(a, b Value) bool {
	return equalValues(a, b, nil)
}

// variantPair is a pair of containers under comparison.
type variantPair struct{ a, b *Variant }

func equalValues(a, b Value, seen map[variantPair]bool) bool {
	an, bn := a.IsNumber(), b.IsNumber()
	if an || bn {
		if !(an && bn) {
			return false
		}
		x, y := a.Number(), b.Number()
		return x == y || (x != x && y != y)
	}
	if a == b {
		return true
	}
	return Decode(a).equal(Decode(b), seen)
}

// Equal reports whether two variants are structurally equal. Containers
// that reach themselves compare equal when the pair under comparison
// comes around again.
func (p *Variant) Equal(o *Variant) bool {
	return p.equal(o, nil)
}

func (p *Variant) equal(o *Variant, seen map[variantPair]bool) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case KindEmpty:
		return true
	case KindNumber:
		return p.Num == o.Num || (p.Num != p.Num && o.Num != o.Num)
	case KindBool:
		return p.Flag == o.Flag
	case KindText:
		return p.Text == o.Text
	case KindList:
		if len(p.items) != len(o.items) {
			return false
		}
		if seen == nil {
			seen = make(map[variantPair]bool)
		}
		pair := variantPair{p, o}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		for i := range p.items {
			if !equalValues(p.items[i], o.items[i], seen) {
				return false
			}
		}
		return true
	case KindDict:
		if len(p.entries) != len(o.entries) {
			return false
		}
		if seen == nil {
			seen = make(map[variantPair]bool)
		}
		pair := variantPair{p, o}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		for k, v := range p.entries {
			w, ok := o.entries[k]
			if !ok || !equalValues(v, w, seen) {
				return false
			}
		}
		return true
	case KindFunction:
		return p.Func.Equal(o.Func)
	case KindClass:
		if p.Class == nil || o.Class == nil {
			return p.Class == o.Class
		}
		return p.Class.Name == o.Class.Name
	}
	return false
}

// Truthy implements the language's truthiness: positive numbers, non-empty
// text and containers, True, and any function or class.
func Truthy(v Value) bool {
	switch {
	case v.IsNumber():
		return v.Number() > 0
	case v == True:
		return true
	case v == False, v == Empty:
		return false
	}
	obj := v.Variant()
	if obj == nil {
		return false
	}
	switch obj.Kind {
	case KindText:
		return obj.Text != ""
	case KindList:
		return len(obj.items) > 0
	case KindDict:
		return len(obj.entries) > 0
	case KindFunction, KindClass:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------
//
// Operands are borrowed; every result carries a fresh ownership unit.
// Unsupported operand pairs and non-finite quotients degrade to Empty.

func textOf(v Value) (string, bool) {
	if !v.IsBoxed() {
		return "", false
	}
	obj := v.Variant()
	if obj == nil || obj.Kind != KindText {
		return "", false
	}
	return obj.Text, true
}

// Add implements `+`: numeric addition or text concatenation.
func Add(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return FromNumber(a.Number() + b.Number())
	}
	if x, ok := textOf(a); ok {
		if y, ok := textOf(b); ok {
			return NewText(x + y)
		}
	}
	return Empty
}

// Sub implements `-`.
func Sub(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return FromNumber(a.Number() - b.Number())
	}
	return Empty
}

// Mul implements `*`: numeric product or text repetition by a
// non-negative integer count.
func Mul(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return FromNumber(a.Number() * b.Number())
	}
	if s, ok := textOf(a); ok && b.IsNumber() {
		return repeatText(s, b.Number())
	}
	if s, ok := textOf(b); ok && a.IsNumber() {
		return repeatText(s, a.Number())
	}
	return Empty
}

// MaxTextBytes bounds the result of text repetition; longer results are
// Empty.
const MaxTextBytes = 1 << 26

func repeatText(s string, n float64) Value {
	if n < 0 || n != math.Trunc(n) || n > MaxTextBytes {
		return Empty
	}
	if len(s) > 0 && int(n) > MaxTextBytes/len(s) {
		return Empty
	}
	return NewText(strings.Repeat(s, int(n)))
}

// Div implements `/`. Division by zero yields Empty.
func Div(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return finite(a.Number() / b.Number())
	}
	return Empty
}

// Mod implements `%` with math.Mod semantics.
func Mod(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return finite(math.Mod(a.Number(), b.Number()))
	}
	return Empty
}

func finite(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Empty
	}
	return FromNumber(f)
}

// Negate implements unary `-`.
func Negate(a Value) Value {
	if a.IsNumber() {
		return FromNumber(-a.Number())
	}
	return Empty
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

// compareOrdered returns the ordering of two numbers or two texts. ok is
// false for any other pairing, and for NaN operands.
func compareOrdered(a, b Value) (cmp int, ok bool) {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.Number(), b.Number()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		case x == y:
			return 0, true
		}
		return 0, false
	}
	if x, ok := textOf(a); ok {
		if y, ok := textOf(b); ok {
			return strings.Compare(x, y), true
		}
	}
	return 0, false
}

// Less implements `<`; unsupported pairings are false.
func Less(a, b Value) bool {
	c, ok := compareOrdered(a, b)
	return ok && c < 0
}

// LessEqual implements `<=`.
func LessEqual(a, b Value) bool {
	c, ok := compareOrdered(a, b)
	return ok && c <= 0
}

// Greater implements `>`.
func Greater(a, b Value) bool {
	c, ok := compareOrdered(a, b)
	return ok && c > 0
}

// GreaterEqual implements `>=`.
func GreaterEqual(a, b Value) bool {
	c, ok := compareOrdered(a, b)
	return ok && c >= 0
}
