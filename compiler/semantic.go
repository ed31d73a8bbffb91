package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: advisory checks that do not stop compilation
// ---------------------------------------------------------------------------

// Warning is a non-fatal finding at a source position.
type Warning struct {
	Pos     Position
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("warning: line %d:%d: %s", w.Pos.Line, w.Pos.Column, w.Message)
}

// SemanticAnalyzer walks a parsed file looking for code that compiles but
// is probably wrong: statements that can never run and function variables
// that are written but never read.
type SemanticAnalyzer struct {
	warnings []*Warning
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

// Warnings returns the findings sorted by position.
func (s *SemanticAnalyzer) Warnings() []*Warning {
	sort.SliceStable(s.warnings, func(i, j int) bool {
		return s.warnings[i].Pos.Offset < s.warnings[j].Pos.Offset
	})
	return s.warnings
}

func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...any) {
	s.warnings = append(s.warnings, &Warning{Pos: node.Pos(), Message: fmt.Sprintf(format, args...)})
}

// AnalyzeFile checks the top level and every function body.
func (s *SemanticAnalyzer) AnalyzeFile(file *File) {
	s.analyzeBlock(file.Body)
}

// analyzeBlock checks reachability in block and descends into nested
// blocks and function definitions.
func (s *SemanticAnalyzer) analyzeBlock(block *Block) {
	s.checkUnreachableCode(block.Statements)
	for _, stmt := range block.Statements {
		switch n := stmt.(type) {
		case *FunctionDefinition:
			s.analyzeFunction(n)
		case *IfStatement:
			for _, br := range n.Branches {
				s.analyzeBlock(br.Body)
			}
			if n.Else != nil {
				s.analyzeBlock(n.Else)
			}
		case *WhileLoop:
			s.analyzeBlock(n.Body)
		case *EndlessLoop:
			s.analyzeBlock(n.Body)
		}
	}
}

// analyzeFunction reports locals that are assigned and never read.
// Parameters are exempt.
func (s *SemanticAnalyzer) analyzeFunction(fn *FunctionDefinition) {
	s.analyzeBlock(fn.Body)

	u := &usage{assigned: make(map[string]*Assignment), read: make(map[string]bool)}
	for _, p := range fn.Params {
		u.read[p] = true
	}
	u.block(fn.Body)

	for name, a := range u.assigned {
		if !u.read[name] {
			s.warnAt(a, "%s is assigned but never used", name)
		}
	}
}

// checkUnreachableCode warns once per block about statements after a
// döndür, kır or devam.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Node) {
	for i, stmt := range stmts {
		var word string
		switch stmt.(type) {
		case *Return:
			word = "döndür"
		case *Break:
			word = "kır"
		case *Continue:
			word = "devam"
		default:
			continue
		}
		for _, next := range stmts[i+1:] {
			// Definitions are hoisted and still reachable by name.
			if _, ok := next.(*FunctionDefinition); ok {
				continue
			}
			s.warnAt(next, "unreachable code after %s", word)
			return
		}
		return
	}
}

// usage collects the names written and read in one function body.
type usage struct {
	assigned map[string]*Assignment
	read     map[string]bool
}

func (u *usage) block(block *Block) {
	for _, stmt := range block.Statements {
		u.statement(stmt)
	}
}

func (u *usage) statement(n Node) {
	switch n := n.(type) {
	case *Assignment:
		switch target := n.Target.(type) {
		case *Symbol:
			if _, ok := u.assigned[target.Name]; !ok {
				u.assigned[target.Name] = n
			}
			if n.Op != TokenAssign {
				u.read[target.Name] = true
			}
		default:
			u.expr(target)
		}
		u.expr(n.Value)
	case *IfStatement:
		for _, br := range n.Branches {
			u.expr(br.Cond)
			u.block(br.Body)
		}
		if n.Else != nil {
			u.block(n.Else)
		}
	case *WhileLoop:
		u.expr(n.Cond)
		u.block(n.Body)
	case *EndlessLoop:
		u.block(n.Body)
	case *Return:
		if n.Value != nil {
			u.expr(n.Value)
		}
	case *FunctionDefinition, *Load, *Break, *Continue:
	default:
		u.expr(n)
	}
}

func (u *usage) expr(n Node) {
	switch n := n.(type) {
	case *Symbol:
		u.read[n.Name] = true
	case *FuncCall:
		u.expr(n.Callee)
		u.exprs(n.Args)
	case *AccessorFuncCall:
		u.expr(n.Source)
		u.exprs(n.Args)
	case *Binary:
		u.expr(n.Left)
		u.expr(n.Right)
	case *Control:
		u.expr(n.Left)
		u.expr(n.Right)
	case *PrefixUnary:
		u.expr(n.Operand)
	case *SuffixUnary:
		u.expr(n.Operand)
	case *List:
		u.exprs(n.Items)
	case *Dict:
		u.exprs(n.Keys)
		u.exprs(n.Values)
	case *Indexer:
		u.expr(n.Body)
		u.expr(n.Index)
	}
}

func (u *usage) exprs(nodes []Node) {
	for _, n := range nodes {
		u.expr(n)
	}
}

// Analyze runs the semantic checks on a parsed file.
func Analyze(file *File) []*Warning {
	analyzer := NewSemanticAnalyzer()
	analyzer.AnalyzeFile(file)
	return analyzer.Warnings()
}
