package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for indentation-structured Yaprak source
// ---------------------------------------------------------------------------

// tabWidth is how many columns a tab counts for in indentation.
const tabWidth = 4

// Lexer tokenizes Yaprak source code. Blocks are delimited by indentation:
// the lexer emits INDENT and DEDENT tokens when a line's indentation grows
// or shrinks, and NEWLINE at the end of each logical line. Newlines inside
// brackets are ignored.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of ch (1-based)
	col     int  // column of ch in runes (1-based)

	indents     []int
	pending     []Token
	nesting     int
	atLineStart bool
	lastType    TokenType
	emitted     bool
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		col:         0,
		indents:     []int{0},
		atLineStart: true,
		lastType:    TokenNewline,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.ch == 0 && l.pos >= len(l.input)
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) emit(tok Token) Token {
	l.lastType = tok.Type
	if tok.Type != TokenNewline && tok.Type != TokenDedent && tok.Type != TokenEOF {
		l.emitted = true
	}
	return tok
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return l.emit(tok)
	}

	if l.atLineStart && l.nesting == 0 {
		if tok, ok := l.readIndentation(); ok {
			return l.emit(tok)
		}
		if len(l.pending) > 0 {
			return l.NextToken()
		}
	}

	l.skipSpacesAndComments()
	pos := l.position()

	if l.atEOF() {
		return l.finish(pos)
	}

	if l.ch == '\n' {
		l.readChar()
		if l.nesting > 0 {
			return l.NextToken()
		}
		l.atLineStart = true
		if l.lastType == TokenNewline || l.lastType == TokenIndent || l.lastType == TokenDedent {
			return l.NextToken()
		}
		return l.emit(Token{Type: TokenNewline, Literal: "\n", Pos: pos})
	}

	switch {
	case isLetter(l.ch):
		return l.emit(l.readIdentifierOrKeyword(pos))
	case isDigit(l.ch):
		return l.emit(l.readNumber(pos))
	case l.ch == '\'' || l.ch == '"':
		return l.emit(l.readString(pos))
	}
	return l.emit(l.readPunctuation(pos))
}

// readIndentation measures the indentation of a new line. Blank and
// comment-only lines are skipped. It returns an INDENT token directly and
// queues DEDENT tokens.
func (l *Lexer) readIndentation() (Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			switch l.ch {
			case ' ':
				width++
			case '\t':
				width += tabWidth
			}
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		}
		if l.ch == '\n' {
			l.readChar()
			continue
		}
		l.atLineStart = false
		if l.atEOF() {
			return Token{}, false
		}

		pos := l.position()
		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			return Token{Type: TokenIndent, Pos: pos}, true
		case width < top:
			for width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
			}
			if width != l.indents[len(l.indents)-1] {
				l.pending = append(l.pending, Token{Type: TokenError, Literal: "inconsistent indentation", Pos: pos})
			}
		}
		return Token{}, false
	}
}

// finish closes the last line and every open block at end of input.
func (l *Lexer) finish(pos Position) Token {
	if l.emitted && l.lastType != TokenNewline && l.lastType != TokenDedent {
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
		}
		return l.emit(Token{Type: TokenNewline, Pos: pos})
	}
	if len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		return l.emit(Token{Type: TokenDedent, Pos: pos})
	}
	return l.emit(Token{Type: TokenEOF, Pos: pos})
}

func (l *Lexer) skipSpacesAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '\n' && l.nesting > 0:
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if tt, ok := reservedWords[word]; ok {
		return Token{Type: tt, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return Token{Type: TokenError, Literal: "malformed exponent", Pos: pos}
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()
	var sb strings.Builder
	for l.ch != quote {
		if l.atEOF() || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '\\', '\'', '"':
				sb.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Literal: "unknown escape \\" + string(l.ch), Pos: pos}
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()
	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// twoChar maps two-character operators to their token types.
var twoChar = map[string]TokenType{
	"::": TokenDoubleColon,
	"+=": TokenPlusAssign,
	"-=": TokenMinusAssign,
	"*=": TokenStarAssign,
	"/=": TokenSlashAssign,
	"++": TokenIncrement,
	"--": TokenDecrement,
	"==": TokenEq,
	"!=": TokenNotEq,
	"<=": TokenLe,
	">=": TokenGe,
	"&&": TokenVe,
	"||": TokenVeya,
}

var oneChar = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	':': TokenColon,
	'.': TokenDot,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'=': TokenAssign,
	'<': TokenLt,
	'>': TokenGt,
	'!': TokenDegil,
}

func (l *Lexer) readPunctuation(pos Position) Token {
	pair := string([]rune{l.ch, l.peekChar()})
	if tt, ok := twoChar[pair]; ok {
		l.readChar()
		l.readChar()
		return Token{Type: tt, Literal: pair, Pos: pos}
	}
	ch := l.ch
	tt, ok := oneChar[ch]
	l.readChar()
	if !ok {
		return Token{Type: TokenError, Literal: "unexpected character " + string(ch), Pos: pos}
	}
	switch tt {
	case TokenLParen, TokenLBracket, TokenLBrace:
		l.nesting++
	case TokenRParen, TokenRBracket, TokenRBrace:
		if l.nesting > 0 {
			l.nesting--
		}
	}
	return Token{Type: tt, Literal: string(ch), Pos: pos}
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens of input, ending with EOF or the first error.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
