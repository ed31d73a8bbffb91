package vm

import (
	"errors"
	"fmt"
)

// MaxSlots is the number of memory slots a single byte operand can address.
const MaxSlots = 256

var (
	// ErrSlotOverflow is returned when constants, variables and temps of one
	// storage need more than MaxSlots slots.
	ErrSlotOverflow = errors.New("storage: more than 256 slots")

	// ErrStorageBuilt is returned when a builder is used after Build.
	ErrStorageBuilt = errors.New("storage: already built")
)

// ---------------------------------------------------------------------------
// StorageBuilder
// ---------------------------------------------------------------------------

// StorageBuilder collects the constants, variables and temp size of one
// function (or the top level) before its memory layout is fixed. Slot
// numbers only exist once Build has run.
type StorageBuilder struct {
	name      string
	parent    int
	constants []Value
	variables []string
	varIndex  map[string]int
	tempSize  int
	built     bool
}

// NewStorageBuilder creates a builder. parent is the index of the lexically
// enclosing storage, or -1.
func NewStorageBuilder(name string, parent int) *StorageBuilder {
	return &StorageBuilder{
		name:     name,
		parent:   parent,
		varIndex: make(map[string]int),
	}
}

// Name returns the storage name.
func (b *StorageBuilder) Name() string { return b.name }

// Parent returns the index of the enclosing storage, or -1.
func (b *StorageBuilder) Parent() int { return b.parent }

func (b *StorageBuilder) used() int {
	return len(b.constants) + len(b.variables) + b.tempSize
}

// AddConstant registers v and returns its ordinal among the constants. The
// builder takes over v's ownership unit; when a structurally equal constant
// already exists the unit is released and the existing ordinal returned.
func (b *StorageBuilder) AddConstant(v Value) (int, error) {
	if b.built {
		Release(v)
		return 0, ErrStorageBuilt
	}
	if i, ok := b.ConstantLocation(v); ok {
		Release(v)
		return i, nil
	}
	if b.used()+1 > MaxSlots {
		Release(v)
		return 0, fmt.Errorf("%w in %s", ErrSlotOverflow, b.name)
	}
	b.constants = append(b.constants, v)
	return len(b.constants) - 1, nil
}

// ConstantLocation returns the ordinal of a constant equal to v.
func (b *StorageBuilder) ConstantLocation(v Value) (int, bool) {
	for i, c := range b.constants {
		if Equal(c, v) {
			return i, true
		}
	}
	return 0, false
}

// AddVariable registers a named variable and returns its ordinal among the
// variables. Adding the same name twice returns the first ordinal.
func (b *StorageBuilder) AddVariable(name string) (int, error) {
	if b.built {
		return 0, ErrStorageBuilt
	}
	if i, ok := b.varIndex[name]; ok {
		return i, nil
	}
	if b.used()+1 > MaxSlots {
		return 0, fmt.Errorf("%w in %s", ErrSlotOverflow, b.name)
	}
	b.varIndex[name] = len(b.variables)
	b.variables = append(b.variables, name)
	return len(b.variables) - 1, nil
}

// VariableLocation returns the ordinal of a registered variable.
func (b *StorageBuilder) VariableLocation(name string) (int, bool) {
	i, ok := b.varIndex[name]
	return i, ok
}

// SetTempSize raises the operand stack reservation to at least n slots.
func (b *StorageBuilder) SetTempSize(n int) error {
	if b.built {
		return ErrStorageBuilt
	}
	if n > b.tempSize {
		b.tempSize = n
	}
	return nil
}

// Build fixes the memory layout [constants][variables][temps]. It may be
// called once.
func (b *StorageBuilder) Build() (*Storage, error) {
	if b.built {
		return nil, ErrStorageBuilt
	}
	if b.used() > MaxSlots {
		return nil, fmt.Errorf("%w in %s", ErrSlotOverflow, b.name)
	}
	b.built = true

	s := &Storage{
		Name:      b.name,
		Parent:    b.parent,
		Variables: b.variables,
		TempSize:  b.tempSize,
		Memory:    make([]Value, b.used()),
		varSlots:  make(map[string]uint8, len(b.variables)),
	}
	copy(s.Memory, b.constants)
	s.Constants = len(b.constants)
	for i := s.Constants; i < len(s.Memory); i++ {
		s.Memory[i] = Empty
	}
	for i, name := range b.variables {
		s.varSlots[name] = uint8(s.Constants + i)
	}
	b.constants = nil

	log.Debugf("storage %s: %d constants, %d variables, %d temps", s.Name, s.Constants, len(s.Variables), s.TempSize)
	return s, nil
}

// Discard releases the collected constants of a builder that will never be
// built.
func (b *StorageBuilder) Discard() {
	if b.built {
		return
	}
	b.built = true
	for _, c := range b.constants {
		Release(c)
	}
	b.constants = nil
}

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// Storage is the frozen memory layout of one function. Memory holds the
// initial block every scope copies: the constants, then Empty for each
// variable and temp. The storage owns one unit of every constant.
type Storage struct {
	Name      string
	Parent    int
	Constants int
	Variables []string
	TempSize  int
	Memory    []Value

	varSlots map[string]uint8
}

// Variable returns the slot of a named variable.
func (s *Storage) Variable(name string) (uint8, bool) {
	slot, ok := s.varSlots[name]
	return slot, ok
}

// Constant returns the slot of a constant structurally equal to v.
func (s *Storage) Constant(v Value) (uint8, bool) {
	for i := 0; i < s.Constants; i++ {
		if Equal(s.Memory[i], v) {
			return uint8(i), true
		}
	}
	return 0, false
}

// StackBase returns the first temp slot.
func (s *Storage) StackBase() int {
	return s.Constants + len(s.Variables)
}

// Release drops the storage's units on its constants.
func (s *Storage) Release() {
	for i := 0; i < s.Constants; i++ {
		Release(s.Memory[i])
		s.Memory[i] = Empty
	}
}
