package vm

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Primitive Variant.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindBool
	KindText
	KindList
	KindDict
	KindFunction
	KindClass
)

var kindNames = [...]string{
	KindEmpty:    "boş",
	KindNumber:   "sayı",
	KindBool:     "mantıksal",
	KindText:     "yazı",
	KindList:     "liste",
	KindDict:     "sözlük",
	KindFunction: "fonksiyon",
	KindClass:    "sınıf",
}

// String returns the type name reported by `tür(x)`.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "bilinmeyen"
}

// Variant is the decoded form of a Value. Number, Bool and Empty variants
// are produced on demand by Decode; the other kinds live in the heap arena
// and are shared through their handle.
//
// List and Dict contents are owned by the variant: every Value stored in
// them carries its own ownership unit, which the container releases when
// the item is replaced or the container itself is freed.
type Variant struct {
	Kind Kind
	Num  float64
	Flag bool
	Text string

	items   []Value
	entries map[string]Value

	Func  *FunctionRef
	Self  Value // bound receiver for accessor calls, Empty when unbound
	Class *Class
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewText boxes a string.
func NewText(s string) Value {
	return Box(&Variant{Kind: KindText, Text: s})
}

// NewList boxes a list. The list takes over the ownership units of items.
func NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Box(&Variant{Kind: KindList, items: items})
}

// NewDict boxes a dictionary. The dictionary takes over the ownership units
// of the values in entries.
func NewDict(entries map[string]Value) Value {
	if entries == nil {
		entries = make(map[string]Value)
	}
	return Box(&Variant{Kind: KindDict, entries: entries})
}

// NewFunction boxes a function reference. A non-empty self is the bound
// receiver and its ownership unit moves into the function value.
func NewFunction(fn *FunctionRef, self Value) Value {
	return Box(&Variant{Kind: KindFunction, Func: fn, Self: self})
}

// NewClassValue boxes a capability class, such as a native module.
func NewClassValue(c *Class) Value {
	return Box(&Variant{Kind: KindClass, Class: c})
}

// Encode converts a variant into a Value. Boxed kinds take one ownership
// unit; the variant must not be encoded twice.
func Encode(p *Variant) Value {
	return Box(p)
}

// Decode returns the variant view of v. Unboxed values yield a fresh
// variant; boxed values yield the shared heap variant. Stale handles decode
// as Empty.
func Decode(v Value) *Variant {
	switch {
	case v.IsNumber():
		return &Variant{Kind: KindNumber, Num: v.Number()}
	case v == True:
		return &Variant{Kind: KindBool, Flag: true}
	case v == False:
		return &Variant{Kind: KindBool}
	case v.IsBoxed():
		if obj := v.Variant(); obj != nil {
			return obj
		}
	}
	return &Variant{Kind: KindEmpty}
}

// appendOwned appends every value this variant holds a unit on.
func (p *Variant) appendOwned(dst []Value) []Value {
	switch p.Kind {
	case KindList:
		dst = append(dst, p.items...)
		p.items = nil
	case KindDict:
		for _, v := range p.entries {
			dst = append(dst, v)
		}
		p.entries = nil
	case KindFunction:
		if p.Self != Empty {
			dst = append(dst, p.Self)
			p.Self = Empty
		}
	}
	return dst
}

// ---------------------------------------------------------------------------
// List API
// ---------------------------------------------------------------------------

// Len returns the number of list items, dict entries or text runes.
func (p *Variant) Len() int {
	switch p.Kind {
	case KindList:
		return len(p.items)
	case KindDict:
		return len(p.entries)
	case KindText:
		return len([]rune(p.Text))
	}
	return 0
}

// Items returns the list items. The slice is borrowed; callers must not
// keep it past the next mutation.
func (p *Variant) Items() []Value {
	return p.items
}

// Item returns the i-th list item (borrowed) and whether i is in range.
func (p *Variant) Item(i int) (Value, bool) {
	if i < 0 || i >= len(p.items) {
		return Empty, false
	}
	return p.items[i], true
}

// SetItem replaces the i-th item, taking over v's ownership unit.
func (p *Variant) SetItem(i int, v Value) bool {
	if i < 0 || i >= len(p.items) {
		Release(v)
		return false
	}
	old := p.items[i]
	p.items[i] = v
	Release(old)
	return true
}

// Append adds v to the list, taking over its ownership unit.
func (p *Variant) Append(v Value) {
	p.items = append(p.items, v)
}

// RemoveAt removes the i-th item and hands its ownership unit to the caller.
func (p *Variant) RemoveAt(i int) (Value, bool) {
	if i < 0 || i >= len(p.items) {
		return Empty, false
	}
	v := p.items[i]
	p.items = append(p.items[:i], p.items[i+1:]...)
	return v, true
}

// Clear releases every item or entry of a list or dictionary.
func (p *Variant) Clear() {
	switch p.Kind {
	case KindList:
		items := p.items
		p.items = []Value{}
		for _, v := range items {
			Release(v)
		}
	case KindDict:
		entries := p.entries
		p.entries = make(map[string]Value)
		for _, v := range entries {
			Release(v)
		}
	}
}

// ---------------------------------------------------------------------------
// Dict API
// ---------------------------------------------------------------------------

// Get returns the value stored under key (borrowed).
func (p *Variant) Get(key string) (Value, bool) {
	v, ok := p.entries[key]
	return v, ok
}

// Put stores v under key, taking over its ownership unit.
func (p *Variant) Put(key string, v Value) {
	if old, ok := p.entries[key]; ok {
		p.entries[key] = v
		Release(old)
		return
	}
	p.entries[key] = v
}

// Delete removes key and releases its value.
func (p *Variant) Delete(key string) bool {
	v, ok := p.entries[key]
	if !ok {
		return false
	}
	delete(p.entries, key)
	Release(v)
	return true
}

// Keys returns the dictionary keys in sorted order.
func (p *Variant) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// FormatNumber renders a number the way scripts print it: integers without
// a fractional part, everything else in shortest form.
func FormatNumber(f float64) string {
	if f != f {
		return "NaN"
	}
	if f > -1e21 && f < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String returns the display form of the variant. Text is shown raw at the
// top level and quoted inside containers.
func (p *Variant) String() string {
	var sb strings.Builder
	p.write(&sb, false, nil)
	return sb.String()
}

// write renders the variant. open holds the containers being written; a
// container met again inside itself prints as `[...]` or `{...}`.
func (p *Variant) write(sb *strings.Builder, nested bool, open map[*Variant]bool) {
	switch p.Kind {
	case KindEmpty:
		sb.WriteString("boş")
	case KindNumber:
		sb.WriteString(FormatNumber(p.Num))
	case KindBool:
		if p.Flag {
			sb.WriteString("doğru")
		} else {
			sb.WriteString("yanlış")
		}
	case KindText:
		if nested {
			sb.WriteByte('\'')
			sb.WriteString(strings.ReplaceAll(p.Text, "'", "\\'"))
			sb.WriteByte('\'')
		} else {
			sb.WriteString(p.Text)
		}
	case KindList:
		if open[p] {
			sb.WriteString("[...]")
			return
		}
		open = enter(open, p)
		defer delete(open, p)
		sb.WriteByte('[')
		for i, v := range p.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			Decode(v).write(sb, true, open)
		}
		sb.WriteByte(']')
	case KindDict:
		if open[p] {
			sb.WriteString("{...}")
			return
		}
		open = enter(open, p)
		defer delete(open, p)
		sb.WriteByte('{')
		for i, k := range p.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('\'')
			sb.WriteString(k)
			sb.WriteString("': ")
			Decode(p.entries[k]).write(sb, true, open)
		}
		sb.WriteByte('}')
	case KindFunction:
		sb.WriteString("<fonk ")
		if p.Func != nil {
			sb.WriteString(p.Func.QualifiedName())
		}
		sb.WriteByte('>')
	case KindClass:
		sb.WriteString("<sınıf ")
		if p.Class != nil {
			sb.WriteString(p.Class.Name)
		}
		sb.WriteByte('>')
	}
}

func enter(open map[*Variant]bool, p *Variant) map[*Variant]bool {
	if open == nil {
		open = make(map[*Variant]bool)
	}
	open[p] = true
	return open
}
