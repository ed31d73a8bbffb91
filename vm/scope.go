package vm

// ---------------------------------------------------------------------------
// scope: Execution state for a function invocation
// ---------------------------------------------------------------------------

// scope is one activation. memory starts as an owned copy of the storage's
// initial block; the operand stack lives in the temp region above base and
// grows past it if needed.
type scope struct {
	storage int
	memory  []Value
	base    int // first temp slot
	params  int // slot of the first parameter
	depth   int // operand stack depth

	returnIP    int  // caller's resume address
	wantResult  bool // push the return value onto the caller's stack
	callerDepth int  // caller's stack depth once the arguments are moved out
}

// enter initialises the scope from a storage, retaining every constant.
// The memory slice is reused across activations.
func (s *scope) enter(index int, st *Storage) {
	s.storage = index
	if cap(s.memory) < len(st.Memory) {
		s.memory = make([]Value, len(st.Memory))
	} else {
		s.memory = s.memory[:len(st.Memory)]
	}
	for i, v := range st.Memory {
		s.memory[i] = Retain(v)
	}
	s.params = st.Constants
	s.base = st.StackBase()
	s.depth = 0
	s.returnIP = 0
	s.wantResult = false
	s.callerDepth = 0
}

// leave releases everything the scope owns.
func (s *scope) leave() {
	for i, v := range s.memory {
		Release(v)
		s.memory[i] = Empty
	}
	s.memory = s.memory[:0]
	s.depth = 0
}

func (s *scope) push(v Value) {
	idx := s.base + s.depth
	if idx < len(s.memory) {
		s.memory[idx] = v
	} else {
		s.memory = append(s.memory, v)
	}
	s.depth++
}

// pop hands the top value's unit to the caller.
func (s *scope) pop() Value {
	s.depth--
	idx := s.base + s.depth
	v := s.memory[idx]
	s.memory[idx] = Empty
	return v
}

// top returns the top value without popping it (borrowed).
func (s *scope) top() Value {
	return s.memory[s.base+s.depth-1]
}

// window returns the n topmost stack values (borrowed).
func (s *scope) window(n int) []Value {
	end := s.base + s.depth
	return s.memory[end-n : end]
}

// drop releases the n topmost stack values.
func (s *scope) drop(n int) {
	for ; n > 0; n-- {
		Release(s.pop())
	}
}

// store moves v into slot, releasing the previous occupant.
func (s *scope) store(slot byte, v Value) {
	old := s.memory[slot]
	s.memory[slot] = v
	Release(old)
}
