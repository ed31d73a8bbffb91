package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Yaprak
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number, in runes
}

// Pos returns the position itself; embedding Position gives every node its
// Pos method.
func (p Position) Pos() Position { return p }

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// File is a parsed source file.
type File struct {
	Path string
	Body *Block
}

// Block is a sequence of statements.
type Block struct {
	Position
	Statements []Node
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// PrimitiveKind tells which literal a Primitive holds.
type PrimitiveKind int

const (
	PrimitiveEmpty PrimitiveKind = iota
	PrimitiveNumber
	PrimitiveText
	PrimitiveBool
)

// Primitive is a literal number, text, boolean or `boş`.
type Primitive struct {
	Position
	Kind   PrimitiveKind
	Number float64
	Text   string
	Bool   bool
}

// Symbol is a bare name.
type Symbol struct {
	Position
	Name string
}

// FunctionMap is a module-qualified name such as `gç::satıryaz`.
type FunctionMap struct {
	Position
	Path []string
	Name string
}

// FuncCall calls a function. Callee is a Symbol or FunctionMap for direct
// calls, or any expression producing a function value. AssignToTemp is set
// when the caller uses the result.
type FuncCall struct {
	Position
	Callee       Node
	Args         []Node
	AssignToTemp bool
}

// AccessorFuncCall calls a member of a value: `kaynak.ad(args)`.
type AccessorFuncCall struct {
	Position
	Source       Node
	Name         string
	Args         []Node
	AssignToTemp bool
}

// Binary is an arithmetic or comparison operation.
type Binary struct {
	Position
	Op    TokenType
	Left  Node
	Right Node
}

// Control is a logical `ve` / `veya`.
type Control struct {
	Position
	Op    TokenType
	Left  Node
	Right Node
}

// PrefixUnary is `-x`, `değil x`, `++x` or `--x`.
type PrefixUnary struct {
	Position
	Op           TokenType
	Operand      Node
	AssignToTemp bool
}

// SuffixUnary is `x++` or `x--`.
type SuffixUnary struct {
	Position
	Op           TokenType
	Operand      Node
	AssignToTemp bool
}

// List is a list literal.
type List struct {
	Position
	Items []Node
}

// Dict is a dictionary literal.
type Dict struct {
	Position
	Keys   []Node
	Values []Node
}

// Indexer is `body[index]`, and also `body.name` for property access.
type Indexer struct {
	Position
	Body  Node
	Index Node
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Assignment stores into a variable or an indexed location. Op is
// TokenAssign or one of the compound assignment tokens.
type Assignment struct {
	Position
	Target Node
	Op     TokenType
	Value  Node
}

// IfBranch is one `eğer` / `yoksa eğer` arm.
type IfBranch struct {
	Cond Node
	Body *Block
}

// IfStatement is an if / else-if / else chain.
type IfStatement struct {
	Position
	Branches []IfBranch
	Else     *Block
}

// FunctionDefinition declares a function.
type FunctionDefinition struct {
	Position
	Name   string
	Params []string
	Body   *Block
}

// Load is `yükle a.b, c`.
type Load struct {
	Position
	Paths [][]string
}

// Return is `döndür [değer]`. Value is nil for a bare return.
type Return struct {
	Position
	Value Node
}

// Break is `kır`.
type Break struct{ Position }

// Continue is `devam`.
type Continue struct{ Position }

// WhileLoop is `döngü koşul:`.
type WhileLoop struct {
	Position
	Cond Node
	Body *Block
}

// EndlessLoop is `sonsuz:`.
type EndlessLoop struct {
	Position
	Body *Block
}

func (*Block) node()              {}
func (*Primitive) node()          {}
func (*Symbol) node()             {}
func (*FunctionMap) node()        {}
func (*FuncCall) node()           {}
func (*AccessorFuncCall) node()   {}
func (*Binary) node()             {}
func (*Control) node()            {}
func (*PrefixUnary) node()        {}
func (*SuffixUnary) node()        {}
func (*List) node()               {}
func (*Dict) node()               {}
func (*Indexer) node()            {}
func (*Assignment) node()         {}
func (*IfStatement) node()        {}
func (*FunctionDefinition) node() {}
func (*Load) node()               {}
func (*Return) node()             {}
func (*Break) node()              {}
func (*Continue) node()           {}
func (*WhileLoop) node()          {}
func (*EndlessLoop) node()        {}
