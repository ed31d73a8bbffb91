package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *File {
	t.Helper()
	file, err := ParseSource(src, "test.yap")
	require.NoError(t, err)
	return file
}

func parseExpr(t *testing.T, src string) Node {
	t.Helper()
	file := parse(t, src)
	require.Len(t, file.Body.Statements, 1)
	return file.Body.Statements[0]
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  Primitive
	}{
		{"42", Primitive{Kind: PrimitiveNumber, Number: 42}},
		{"-5", Primitive{Kind: PrimitiveNumber, Number: -5}},
		{"3.14", Primitive{Kind: PrimitiveNumber, Number: 3.14}},
		{"'merhaba'", Primitive{Kind: PrimitiveText, Text: "merhaba"}},
		{"doğru", Primitive{Kind: PrimitiveBool, Bool: true}},
		{"yanlış", Primitive{Kind: PrimitiveBool, Bool: false}},
		{"boş", Primitive{Kind: PrimitiveEmpty}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prim, ok := parseExpr(t, tt.input).(*Primitive)
			require.True(t, ok)
			assert.Equal(t, tt.want.Kind, prim.Kind)
			assert.Equal(t, tt.want.Number, prim.Number)
			assert.Equal(t, tt.want.Text, prim.Text)
			assert.Equal(t, tt.want.Bool, prim.Bool)
		})
	}
}

func TestParserPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3).
	bin := parseExpr(t, "1 + 2 * 3").(*Binary)
	assert.Equal(t, TokenPlus, bin.Op)
	right := bin.Right.(*Binary)
	assert.Equal(t, TokenStar, right.Op)

	// a ve b veya c parses as (a ve b) veya c.
	or := parseExpr(t, "a ve b veya c").(*Control)
	assert.Equal(t, TokenVeya, or.Op)
	assert.Equal(t, TokenVe, or.Left.(*Control).Op)

	// Comparisons bind tighter than logic.
	and := parseExpr(t, "x < 1 && y == 2").(*Control)
	assert.Equal(t, TokenLt, and.Left.(*Binary).Op)
	assert.Equal(t, TokenEq, and.Right.(*Binary).Op)

	// Parentheses override.
	mul := parseExpr(t, "(1 + 2) * 3").(*Binary)
	assert.Equal(t, TokenStar, mul.Op)
	assert.Equal(t, TokenPlus, mul.Left.(*Binary).Op)

	// Subtraction is left associative.
	sub := parseExpr(t, "10 - 4 - 3").(*Binary)
	assert.Equal(t, float64(3), sub.Right.(*Primitive).Number)
	assert.Equal(t, TokenMinus, sub.Left.(*Binary).Op)
}

func TestParserUnary(t *testing.T) {
	neg := parseExpr(t, "-x").(*PrefixUnary)
	assert.Equal(t, TokenMinus, neg.Op)
	assert.Equal(t, "x", neg.Operand.(*Symbol).Name)

	not := parseExpr(t, "değil doğru").(*PrefixUnary)
	assert.Equal(t, TokenDegil, not.Op)

	bang := parseExpr(t, "!x").(*PrefixUnary)
	assert.Equal(t, TokenDegil, bang.Op)

	pre := parseExpr(t, "++i").(*PrefixUnary)
	assert.Equal(t, TokenIncrement, pre.Op)

	post := parseExpr(t, "i--").(*SuffixUnary)
	assert.Equal(t, TokenDecrement, post.Op)
	assert.Equal(t, "i", post.Operand.(*Symbol).Name)
}

func TestParserCalls(t *testing.T) {
	call := parseExpr(t, "fib(n - 1, 2)").(*FuncCall)
	assert.Equal(t, "fib", call.Callee.(*Symbol).Name)
	require.Len(t, call.Args, 2)

	mod := parseExpr(t, "gç::satıryaz('x')").(*FuncCall)
	fm := mod.Callee.(*FunctionMap)
	assert.Equal(t, []string{"gç"}, fm.Path)
	assert.Equal(t, "satıryaz", fm.Name)

	nested := parseExpr(t, "a::b::c()").(*FuncCall)
	assert.Equal(t, []string{"a", "b"}, nested.Callee.(*FunctionMap).Path)

	acc := parseExpr(t, "liste.ekle(3)").(*AccessorFuncCall)
	assert.Equal(t, "liste", acc.Source.(*Symbol).Name)
	assert.Equal(t, "ekle", acc.Name)
	require.Len(t, acc.Args, 1)

	chained := parseExpr(t, "f()()").(*FuncCall)
	assert.IsType(t, &FuncCall{}, chained.Callee)
}

func TestParserIndexing(t *testing.T) {
	idx := parseExpr(t, "d['k'][0]").(*Indexer)
	assert.Equal(t, float64(0), idx.Index.(*Primitive).Number)
	inner := idx.Body.(*Indexer)
	assert.Equal(t, "k", inner.Index.(*Primitive).Text)

	prop := parseExpr(t, "kişi.ad").(*Indexer)
	key := prop.Index.(*Primitive)
	assert.Equal(t, PrimitiveText, key.Kind)
	assert.Equal(t, "ad", key.Text)
}

func TestParserContainers(t *testing.T) {
	list := parseExpr(t, "[1, 'iki', [3],]").(*List)
	require.Len(t, list.Items, 3)
	assert.IsType(t, &List{}, list.Items[2])

	empty := parseExpr(t, "[]").(*List)
	assert.Empty(t, empty.Items)

	dict := parseExpr(t, "{'a': 1,\n 'b': [2]}").(*Dict)
	require.Len(t, dict.Keys, 2)
	require.Len(t, dict.Values, 2)
	assert.Equal(t, "b", dict.Keys[1].(*Primitive).Text)
}

func TestParserAssignments(t *testing.T) {
	tests := []struct {
		input string
		op    TokenType
	}{
		{"x = 1", TokenAssign},
		{"x += 1", TokenPlusAssign},
		{"x -= 1", TokenMinusAssign},
		{"x *= 2", TokenStarAssign},
		{"x /= 2", TokenSlashAssign},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a := parseExpr(t, tt.input).(*Assignment)
			assert.Equal(t, tt.op, a.Op)
			assert.Equal(t, "x", a.Target.(*Symbol).Name)
		})
	}

	indexed := parseExpr(t, "l[0] = 5").(*Assignment)
	assert.IsType(t, &Indexer{}, indexed.Target)

	_, err := ParseSource("f() = 1", "")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParserFunction(t *testing.T) {
	src := `
fonk topla(a, b):
    c = a + b
    döndür c
`
	fn := parseExpr(t, src).(*FunctionDefinition)
	assert.Equal(t, "topla", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body.Statements, 2)
	ret := fn.Body.Statements[1].(*Return)
	assert.Equal(t, "c", ret.Value.(*Symbol).Name)

	inline := parseExpr(t, "fonk bir(): döndür 1").(*FunctionDefinition)
	require.Len(t, inline.Body.Statements, 1)

	bare := parseExpr(t, "fonk hiç():\n    döndür\n").(*FunctionDefinition)
	assert.Nil(t, bare.Body.Statements[0].(*Return).Value)

	_, err := ParseSource("fonk f(a, a): döndür a", "")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParserIfChain(t *testing.T) {
	src := `
eğer x < 0:
    y = -1
yoksa eğer x == 0:
    y = 0
yoksa:
    y = 1
`
	n := parseExpr(t, src).(*IfStatement)
	require.Len(t, n.Branches, 2)
	require.NotNil(t, n.Else)
	assert.Equal(t, TokenEq, n.Branches[1].Cond.(*Binary).Op)

	only := parseExpr(t, "eğer a: b()").(*IfStatement)
	assert.Len(t, only.Branches, 1)
	assert.Nil(t, only.Else)
}

func TestParserLoops(t *testing.T) {
	src := `
döngü i < 10:
    eğer i == 5:
        kır
    i++
    devam
sonsuz:
    kır
`
	file := parse(t, src)
	require.Len(t, file.Body.Statements, 2)

	loop := file.Body.Statements[0].(*WhileLoop)
	require.Len(t, loop.Body.Statements, 3)
	assert.IsType(t, &Break{}, loop.Body.Statements[0].(*IfStatement).Branches[0].Body.Statements[0])
	assert.IsType(t, &SuffixUnary{}, loop.Body.Statements[1])
	assert.IsType(t, &Continue{}, loop.Body.Statements[2])

	endless := file.Body.Statements[1].(*EndlessLoop)
	assert.IsType(t, &Break{}, endless.Body.Statements[0])
}

func TestParserLoad(t *testing.T) {
	load := parseExpr(t, "yükle araçlar.metin, matematik").(*Load)
	assert.Equal(t, [][]string{{"araçlar", "metin"}, {"matematik"}}, load.Paths)
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing colon", "eğer x\n    y\n"},
		{"missing block", "fonk f():\nx\n"},
		{"dangling yoksa", "yoksa:\n    x\n"},
		{"unclosed call", "f(1, 2"},
		{"stray indent", "x\n    y\n"},
		{"two expressions", "x y"},
		{"lexer error", "x = 'açık"},
		{"increment literal", "++3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSource(tt.input, "bozuk.yap")
			require.Error(t, err)
			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, KindSyntax, cerr.Kind)
			assert.Equal(t, "bozuk.yap", cerr.File)
			assert.Positive(t, cerr.Pos.Line)
		})
	}
}

func TestParserRecoversAfterError(t *testing.T) {
	p := NewParser("x = )\ny = 2\nz = (\n", "")
	file := p.ParseFile()
	assert.Len(t, p.Errors(), 2)
	require.Len(t, file.Body.Statements, 1)
	assert.Equal(t, "y", file.Body.Statements[0].(*Assignment).Target.(*Symbol).Name)
}

func TestErrorFormatting(t *testing.T) {
	err := newError(KindUnresolvedSymbol, Position{Line: 3, Column: 7}, "undefined: %s", "x")
	assert.Equal(t, "line 3:7: undefined: x", err.Error())
	err.File = "ana.yap"
	assert.Equal(t, "ana.yap:3:7: undefined: x", err.Error())
	assert.ErrorIs(t, err, ErrUnresolvedSymbol)
	assert.NotErrorIs(t, err, ErrSyntax)
}
