package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Yaprak lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Layout
	TokenNewline
	TokenIndent
	TokenDedent

	// Literals
	TokenNumber     // 42, 3.14, 1e3
	TokenString     // 'merhaba', "dünya"
	TokenIdentifier // sayaç, fib

	// Keywords
	TokenFonk   // fonk
	TokenDondur // döndür
	TokenEger   // eğer
	TokenYoksa  // yoksa
	TokenDongu  // döngü
	TokenSonsuz // sonsuz
	TokenKir    // kır
	TokenDevam  // devam
	TokenYukle  // yükle
	TokenDogru  // doğru
	TokenYanlis // yanlış
	TokenBos    // boş
	TokenVe     // ve, &&
	TokenVeya   // veya, ||
	TokenDegil  // değil, !

	// Delimiters
	TokenLParen      // (
	TokenRParen      // )
	TokenLBracket    // [
	TokenRBracket    // ]
	TokenLBrace      // {
	TokenRBrace      // }
	TokenComma       // ,
	TokenColon       // :
	TokenDoubleColon // ::
	TokenDot         // .

	// Operators
	TokenPlus        // +
	TokenMinus       // -
	TokenStar        // *
	TokenSlash       // /
	TokenPercent     // %
	TokenAssign      // =
	TokenPlusAssign  // +=
	TokenMinusAssign // -=
	TokenStarAssign  // *=
	TokenSlashAssign // /=
	TokenIncrement   // ++
	TokenDecrement   // --
	TokenEq          // ==
	TokenNotEq       // !=
	TokenLt          // <
	TokenLe          // <=
	TokenGt          // >
	TokenGe          // >=
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenNewline:     "NEWLINE",
	TokenIndent:      "INDENT",
	TokenDedent:      "DEDENT",
	TokenNumber:      "NUMBER",
	TokenString:      "STRING",
	TokenIdentifier:  "IDENTIFIER",
	TokenFonk:        "fonk",
	TokenDondur:      "döndür",
	TokenEger:        "eğer",
	TokenYoksa:       "yoksa",
	TokenDongu:       "döngü",
	TokenSonsuz:      "sonsuz",
	TokenKir:         "kır",
	TokenDevam:       "devam",
	TokenYukle:       "yükle",
	TokenDogru:       "doğru",
	TokenYanlis:      "yanlış",
	TokenBos:         "boş",
	TokenVe:          "ve",
	TokenVeya:        "veya",
	TokenDegil:       "değil",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBracket:    "[",
	TokenRBracket:    "]",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenComma:       ",",
	TokenColon:       ":",
	TokenDoubleColon: "::",
	TokenDot:         ".",
	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenAssign:      "=",
	TokenPlusAssign:  "+=",
	TokenMinusAssign: "-=",
	TokenStarAssign:  "*=",
	TokenSlashAssign: "/=",
	TokenIncrement:   "++",
	TokenDecrement:   "--",
	TokenEq:          "==",
	TokenNotEq:       "!=",
	TokenLt:          "<",
	TokenLe:          "<=",
	TokenGt:          ">",
	TokenGe:          ">=",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text; decoded contents for strings
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF, TokenNewline, TokenIndent, TokenDedent:
		return t.Type.String()
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Keywords mapped to their token types.
var reservedWords = map[string]TokenType{
	"fonk":   TokenFonk,
	"döndür": TokenDondur,
	"eğer":   TokenEger,
	"yoksa":  TokenYoksa,
	"döngü":  TokenDongu,
	"sonsuz": TokenSonsuz,
	"kır":    TokenKir,
	"devam":  TokenDevam,
	"yükle":  TokenYukle,
	"doğru":  TokenDogru,
	"yanlış": TokenYanlis,
	"boş":    TokenBos,
	"ve":     TokenVe,
	"veya":   TokenVeya,
	"değil":  TokenDegil,
}

// Keywords returns the reserved words, for editor completion.
func Keywords() []string {
	words := make([]string, 0, len(reservedWords))
	for w := range reservedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
