package vm

import (
	"fmt"
	"sort"
	"strings"
)

// LineEntry maps the instruction at Offset to a source position.
type LineEntry struct {
	Offset int
	Line   int
	Column int
}

// Program is a compiled script: one flat code vector, the storage of every
// function (index 0 is the top level) and the compiled function refs.
type Program struct {
	Code      []byte
	Storages  []*Storage
	Functions []*FunctionRef
	Lines     []LineEntry
	Source    string
	BuildID   string
}

// Position returns the source position of the instruction at offset, using
// the closest line entry at or before it.
func (p *Program) Position(offset int) (line, column int) {
	i := sort.Search(len(p.Lines), func(i int) bool {
		return p.Lines[i].Offset > offset
	})
	if i == 0 {
		return 0, 0
	}
	e := p.Lines[i-1]
	return e.Line, e.Column
}

// Disassemble lists the code with function bodies labelled.
func (p *Program) Disassemble() string {
	starts := make(map[int]*FunctionRef, len(p.Functions))
	for _, f := range p.Functions {
		// Offset points past the FUNC marker.
		starts[f.Offset-1] = f
	}

	var sb strings.Builder
	r := NewBytecodeReader(p.Code)
	for r.HasMore() {
		if f, ok := starts[r.Position()]; ok {
			st := p.Storages[f.Storage]
			fmt.Fprintf(&sb, "\n; fonk %s  (storage %d: %d constants, %d variables, %d temps)\n",
				f.Signature(), f.Storage, st.Constants, len(st.Variables), st.TempSize)
		}
		sb.WriteString(DisassembleInstruction(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Release drops the program's units on its constants. The program must not
// run afterwards.
func (p *Program) Release() {
	for _, s := range p.Storages {
		s.Release()
	}
}
