package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexerPunctuation(t *testing.T) {
	tokens := Tokenize(`( ) [ ] { } , : :: . + - * / % = += -= *= /= ++ -- == != < <= > >= && || !`)
	assert.Equal(t, []TokenType{
		TokenLParen, TokenRParen, TokenLBracket, TokenRBracket, TokenLBrace, TokenRBrace,
		TokenComma, TokenColon, TokenDoubleColon, TokenDot,
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
		TokenIncrement, TokenDecrement,
		TokenEq, TokenNotEq, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenVe, TokenVeya, TokenDegil,
		TokenNewline, TokenEOF,
	}, tokenTypes(tokens))
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"fonk", TokenFonk},
		{"döndür", TokenDondur},
		{"eğer", TokenEger},
		{"yoksa", TokenYoksa},
		{"döngü", TokenDongu},
		{"sonsuz", TokenSonsuz},
		{"kır", TokenKir},
		{"devam", TokenDevam},
		{"yükle", TokenYukle},
		{"doğru", TokenDogru},
		{"yanlış", TokenYanlis},
		{"boş", TokenBos},
		{"ve", TokenVe},
		{"veya", TokenVeya},
		{"değil", TokenDegil},
		{"sayaç", TokenIdentifier},
		{"_gizli2", TokenIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			require.NotEmpty(t, tokens)
			assert.Equal(t, tt.want, tokens[0].Type)
			assert.Equal(t, tt.input, tokens[0].Literal)
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"1e3", "1e3"},
		{"2.5e-2", "2.5e-2"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := Tokenize(tt.input)[0]
			assert.Equal(t, TokenNumber, tok.Type)
			assert.Equal(t, tt.want, tok.Literal)
		})
	}

	// A dot not followed by a digit is member access.
	assert.Equal(t, []TokenType{TokenNumber, TokenDot, TokenIdentifier, TokenNewline, TokenEOF},
		tokenTypes(Tokenize("1.tamsayı")))
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`'merhaba'`, "merhaba"},
		{`"dünya"`, "dünya"},
		{`'a\nb'`, "a\nb"},
		{`'\t\\'`, "\t\\"},
		{`'it\'s'`, "it's"},
		{`"say \"hi\""`, `say "hi"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := Tokenize(tt.input)[0]
			assert.Equal(t, TokenString, tok.Type)
			assert.Equal(t, tt.want, tok.Literal)
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`'açık`, "unterminated string"},
		{`'\q'`, `unknown escape \q`},
		{"1e+", "malformed exponent"},
		{"@", "unexpected character @"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			last := tokens[len(tokens)-1]
			assert.Equal(t, TokenError, last.Type)
			assert.Equal(t, tt.want, last.Literal)
		})
	}
}

func TestLexerIndentation(t *testing.T) {
	src := "eğer x:\n    y = 1\nz\n"
	assert.Equal(t, []TokenType{
		TokenEger, TokenIdentifier, TokenColon, TokenNewline,
		TokenIndent, TokenIdentifier, TokenAssign, TokenNumber, TokenNewline,
		TokenDedent, TokenIdentifier, TokenNewline,
		TokenEOF,
	}, tokenTypes(Tokenize(src)))
}

func TestLexerNestedDedentAtEOF(t *testing.T) {
	src := "fonk f():\n  eğer x:\n    y"
	assert.Equal(t, []TokenType{
		TokenFonk, TokenIdentifier, TokenLParen, TokenRParen, TokenColon, TokenNewline,
		TokenIndent, TokenEger, TokenIdentifier, TokenColon, TokenNewline,
		TokenIndent, TokenIdentifier, TokenNewline,
		TokenDedent, TokenDedent, TokenEOF,
	}, tokenTypes(Tokenize(src)))
}

func TestLexerSkipsBlankAndCommentLines(t *testing.T) {
	src := "a = 1  # sayaç\n\n   # girintili yorum\nb\n"
	assert.Equal(t, []TokenType{
		TokenIdentifier, TokenAssign, TokenNumber, TokenNewline,
		TokenIdentifier, TokenNewline,
		TokenEOF,
	}, tokenTypes(Tokenize(src)))
}

func TestLexerIgnoresNewlinesInBrackets(t *testing.T) {
	src := "l = [1,\n    2,\n3]\n"
	assert.Equal(t, []TokenType{
		TokenIdentifier, TokenAssign, TokenLBracket,
		TokenNumber, TokenComma, TokenNumber, TokenComma, TokenNumber,
		TokenRBracket, TokenNewline, TokenEOF,
	}, tokenTypes(Tokenize(src)))
}

func TestLexerInconsistentDedent(t *testing.T) {
	src := "eğer x:\n    y\n  z\n"
	tokens := Tokenize(src)
	last := tokens[len(tokens)-1]
	assert.Equal(t, TokenError, last.Type)
	assert.Equal(t, "inconsistent indentation", last.Literal)
}

func TestLexerPositions(t *testing.T) {
	tokens := Tokenize("çay = 1\n  \nşeker")
	require.GreaterOrEqual(t, len(tokens), 5)

	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, tokens[0].Pos)
	// Columns count runes, offsets count bytes.
	assert.Equal(t, 5, tokens[1].Pos.Column)
	assert.Equal(t, 5, tokens[1].Pos.Offset)

	var seker Token
	for _, tok := range tokens {
		if tok.Literal == "şeker" {
			seker = tok
		}
	}
	assert.Equal(t, 3, seker.Pos.Line)
	assert.Equal(t, 1, seker.Pos.Column)
}

func TestKeywordsSorted(t *testing.T) {
	kw := Keywords()
	assert.Contains(t, kw, "fonk")
	assert.Contains(t, kw, "döndür")
	assert.IsIncreasing(t, kw)
}
