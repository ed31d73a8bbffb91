package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Yaprak
// ---------------------------------------------------------------------------

// Parser parses Yaprak source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*Error
	path      string
}

// NewParser creates a new parser for the given input. path is only used in
// error messages.
func NewParser(input, path string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		path:  path,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected("%s", t)
	return false
}

// errorf records a syntax error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	err := newError(KindSyntax, p.curToken.Pos, format, args...)
	err.File = p.path
	p.errors = append(p.errors, err)
}

// unexpected reports that the current token is not what the grammar
// wanted. Lexer errors are reported as they are.
func (p *Parser) unexpected(wantFormat string, args ...any) {
	if p.curTokenIs(TokenError) {
		p.errorf("%s", p.curToken.Literal)
		return
	}
	p.errorf("expected %s, got %s", fmt.Sprintf(wantFormat, args...), p.curToken)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*Error {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseFile parses the whole input. The returned file is partial when
// Errors is non-empty.
func (p *Parser) ParseFile() *File {
	body := &Block{Position: p.curToken.Pos}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(TokenIndent) {
			p.errorf("unexpected indentation")
			p.nextToken()
			continue
		}
		if p.curTokenIs(TokenDedent) {
			p.nextToken()
			continue
		}
		if stmt := p.parseStatementOrSync(); stmt != nil {
			body.Statements = append(body.Statements, stmt)
		}
	}
	return &File{Path: p.path, Body: body}
}

// parseStatementOrSync parses a statement; after an error it skips to the
// end of the line so parsing can continue.
func (p *Parser) parseStatementOrSync() Node {
	before := len(p.errors)
	stmt := p.parseStatement()
	if len(p.errors) > before {
		for !p.curTokenIs(TokenNewline) && !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenDedent) {
			p.nextToken()
		}
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
		}
		return nil
	}
	return stmt
}

func (p *Parser) parseStatement() Node {
	switch p.curToken.Type {
	case TokenFonk:
		return p.parseFunction()
	case TokenEger:
		return p.parseIf()
	case TokenDongu:
		return p.parseWhile()
	case TokenSonsuz:
		return p.parseEndless()
	case TokenKir:
		n := &Break{Position: p.curToken.Pos}
		p.nextToken()
		return p.endStatement(n)
	case TokenDevam:
		n := &Continue{Position: p.curToken.Pos}
		p.nextToken()
		return p.endStatement(n)
	case TokenDondur:
		return p.parseReturn()
	case TokenYukle:
		return p.parseLoad()
	case TokenYoksa:
		p.errorf("yoksa without eğer")
		return nil
	}
	return p.parseSimpleStatement()
}

// endStatement consumes the line terminator after a simple statement.
func (p *Parser) endStatement(n Node) Node {
	switch p.curToken.Type {
	case TokenNewline:
		p.nextToken()
	case TokenDedent, TokenEOF:
	default:
		p.unexpected("end of line")
		return nil
	}
	return n
}

// parseBlock parses `: NEWLINE INDENT statements DEDENT`, or a single
// statement on the same line as the colon.
func (p *Parser) parseBlock() *Block {
	if !p.expect(TokenColon) {
		return nil
	}
	block := &Block{Position: p.curToken.Pos}
	if !p.curTokenIs(TokenNewline) {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Statements = append(block.Statements, stmt)
		return block
	}
	p.nextToken()
	if !p.curTokenIs(TokenIndent) {
		p.unexpected("an indented block")
		return nil
	}
	p.nextToken()
	for !p.curTokenIs(TokenDedent) && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		if stmt := p.parseStatementOrSync(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	if p.curTokenIs(TokenDedent) {
		p.nextToken()
	}
	return block
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseFunction() Node {
	fn := &FunctionDefinition{Position: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenIdentifier) {
		p.unexpected("function name")
		return nil
	}
	fn.Name = p.curToken.Literal
	p.nextToken()
	if !p.expect(TokenLParen) {
		return nil
	}
	for !p.curTokenIs(TokenRParen) {
		if !p.curTokenIs(TokenIdentifier) {
			p.unexpected("parameter name")
			return nil
		}
		for _, prev := range fn.Params {
			if prev == p.curToken.Literal {
				p.errorf("duplicate parameter %s", prev)
				return nil
			}
		}
		fn.Params = append(fn.Params, p.curToken.Literal)
		p.nextToken()
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRParen) {
			p.unexpected("`,` or `)`")
			return nil
		}
	}
	p.nextToken()
	if fn.Body = p.parseBlock(); fn.Body == nil {
		return nil
	}
	return fn
}

func (p *Parser) parseIf() Node {
	n := &IfStatement{Position: p.curToken.Pos}
	p.nextToken()
	for {
		cond := p.parseExpression()
		if cond == nil {
			return nil
		}
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		n.Branches = append(n.Branches, IfBranch{Cond: cond, Body: body})

		if !p.curTokenIs(TokenYoksa) {
			return n
		}
		p.nextToken()
		if p.curTokenIs(TokenEger) {
			p.nextToken()
			continue
		}
		if n.Else = p.parseBlock(); n.Else == nil {
			return nil
		}
		return n
	}
}

func (p *Parser) parseWhile() Node {
	n := &WhileLoop{Position: p.curToken.Pos}
	p.nextToken()
	if n.Cond = p.parseExpression(); n.Cond == nil {
		return nil
	}
	if n.Body = p.parseBlock(); n.Body == nil {
		return nil
	}
	return n
}

func (p *Parser) parseEndless() Node {
	n := &EndlessLoop{Position: p.curToken.Pos}
	p.nextToken()
	if n.Body = p.parseBlock(); n.Body == nil {
		return nil
	}
	return n
}

func (p *Parser) parseReturn() Node {
	n := &Return{Position: p.curToken.Pos}
	p.nextToken()
	switch p.curToken.Type {
	case TokenNewline, TokenDedent, TokenEOF:
	default:
		if n.Value = p.parseExpression(); n.Value == nil {
			return nil
		}
	}
	return p.endStatement(n)
}

func (p *Parser) parseLoad() Node {
	n := &Load{Position: p.curToken.Pos}
	p.nextToken()
	for {
		var path []string
		for {
			if !p.curTokenIs(TokenIdentifier) {
				p.unexpected("module name")
				return nil
			}
			path = append(path, p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(TokenDot) {
				break
			}
			p.nextToken()
		}
		n.Paths = append(n.Paths, path)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	return p.endStatement(n)
}

var assignOps = map[TokenType]bool{
	TokenAssign:      true,
	TokenPlusAssign:  true,
	TokenMinusAssign: true,
	TokenStarAssign:  true,
	TokenSlashAssign: true,
}

func (p *Parser) parseSimpleStatement() Node {
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	if assignOps[p.curToken.Type] {
		op := p.curToken
		switch expr.(type) {
		case *Symbol, *Indexer:
		default:
			p.errorf("cannot assign to this expression")
			return nil
		}
		p.nextToken()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return p.endStatement(&Assignment{Position: op.Pos, Target: expr, Op: op.Type, Value: value})
	}
	return p.endStatement(expr)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Node {
	return p.parseExpression()
}

func (p *Parser) parseExpression() Node {
	return p.parseOr()
}

func (p *Parser) parseOr() Node {
	left := p.parseAnd()
	for left != nil && p.curTokenIs(TokenVeya) {
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &Control{Position: pos, Op: TokenVeya, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Node {
	left := p.parseEquality()
	for left != nil && p.curTokenIs(TokenVe) {
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &Control{Position: pos, Op: TokenVe, Left: left, Right: right}
	}
	return left
}

// parseBinaryLevel parses a left-associative chain of the given operators.
func (p *Parser) parseBinaryLevel(next func() Node, ops ...TokenType) Node {
	left := next()
	for left != nil {
		matched := false
		for _, op := range ops {
			if p.curTokenIs(op) {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		tok := p.curToken
		p.nextToken()
		right := next()
		if right == nil {
			return nil
		}
		left = &Binary{Position: tok.Pos, Op: tok.Type, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() Node {
	return p.parseBinaryLevel(p.parseRelational, TokenEq, TokenNotEq)
}

func (p *Parser) parseRelational() Node {
	return p.parseBinaryLevel(p.parseAdditive, TokenLt, TokenLe, TokenGt, TokenGe)
}

func (p *Parser) parseAdditive() Node {
	return p.parseBinaryLevel(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() Node {
	return p.parseBinaryLevel(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) parseUnary() Node {
	tok := p.curToken
	switch tok.Type {
	case TokenMinus:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		if lit, ok := operand.(*Primitive); ok && lit.Kind == PrimitiveNumber {
			lit.Number = -lit.Number
			lit.Position = tok.Pos
			return lit
		}
		return &PrefixUnary{Position: tok.Pos, Op: TokenMinus, Operand: operand}
	case TokenDegil:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &PrefixUnary{Position: tok.Pos, Op: TokenDegil, Operand: operand}
	case TokenIncrement, TokenDecrement:
		p.nextToken()
		operand := p.parsePostfix()
		if operand == nil {
			return nil
		}
		if _, ok := operand.(*Symbol); !ok {
			p.errorf("%s needs a variable", tok.Type)
			return nil
		}
		return &PrefixUnary{Position: tok.Pos, Op: tok.Type, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Node {
	expr := p.parsePrimary()
	for expr != nil {
		tok := p.curToken
		switch tok.Type {
		case TokenLParen:
			p.nextToken()
			args, ok := p.parseList(TokenRParen)
			if !ok {
				return nil
			}
			expr = &FuncCall{Position: expr.Pos(), Callee: expr, Args: args}

		case TokenLBracket:
			p.nextToken()
			index := p.parseExpression()
			if index == nil || !p.expect(TokenRBracket) {
				return nil
			}
			expr = &Indexer{Position: tok.Pos, Body: expr, Index: index}

		case TokenDot:
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.unexpected("member name")
				return nil
			}
			name := p.curToken
			p.nextToken()
			if p.curTokenIs(TokenLParen) {
				p.nextToken()
				args, ok := p.parseList(TokenRParen)
				if !ok {
					return nil
				}
				expr = &AccessorFuncCall{Position: name.Pos, Source: expr, Name: name.Literal, Args: args}
			} else {
				key := &Primitive{Position: name.Pos, Kind: PrimitiveText, Text: name.Literal}
				expr = &Indexer{Position: name.Pos, Body: expr, Index: key}
			}

		case TokenIncrement, TokenDecrement:
			if _, ok := expr.(*Symbol); !ok {
				return expr
			}
			p.nextToken()
			return &SuffixUnary{Position: tok.Pos, Op: tok.Type, Operand: expr}

		default:
			return expr
		}
	}
	return nil
}

// parseList parses comma-separated expressions up to the closing token,
// which it consumes. A trailing comma is allowed.
func (p *Parser) parseList(closing TokenType) ([]Node, bool) {
	var items []Node
	for !p.curTokenIs(closing) {
		item := p.parseExpression()
		if item == nil {
			return nil, false
		}
		items = append(items, item)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.curTokenIs(closing) {
			p.unexpected("`,` or %s", closing)
			return nil, false
		}
	}
	p.nextToken()
	return items, true
}

func (p *Parser) parsePrimary() Node {
	tok := p.curToken
	switch tok.Type {
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid number %s", tok.Literal)
			return nil
		}
		p.nextToken()
		return &Primitive{Position: tok.Pos, Kind: PrimitiveNumber, Number: f}

	case TokenString:
		p.nextToken()
		return &Primitive{Position: tok.Pos, Kind: PrimitiveText, Text: tok.Literal}

	case TokenDogru, TokenYanlis:
		p.nextToken()
		return &Primitive{Position: tok.Pos, Kind: PrimitiveBool, Bool: tok.Type == TokenDogru}

	case TokenBos:
		p.nextToken()
		return &Primitive{Position: tok.Pos, Kind: PrimitiveEmpty}

	case TokenIdentifier:
		p.nextToken()
		if !p.curTokenIs(TokenDoubleColon) {
			return &Symbol{Position: tok.Pos, Name: tok.Literal}
		}
		path := []string{tok.Literal}
		for p.curTokenIs(TokenDoubleColon) {
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.unexpected("name after ::")
				return nil
			}
			path = append(path, p.curToken.Literal)
			p.nextToken()
		}
		return &FunctionMap{Position: tok.Pos, Path: path[:len(path)-1], Name: path[len(path)-1]}

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil || !p.expect(TokenRParen) {
			return nil
		}
		return expr

	case TokenLBracket:
		p.nextToken()
		items, ok := p.parseList(TokenRBracket)
		if !ok {
			return nil
		}
		return &List{Position: tok.Pos, Items: items}

	case TokenLBrace:
		return p.parseDict()
	}

	p.unexpected("an expression")
	return nil
}

func (p *Parser) parseDict() Node {
	n := &Dict{Position: p.curToken.Pos}
	p.nextToken()
	for !p.curTokenIs(TokenRBrace) {
		key := p.parseExpression()
		if key == nil || !p.expect(TokenColon) {
			return nil
		}
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		n.Keys = append(n.Keys, key)
		n.Values = append(n.Values, value)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRBrace) {
			p.unexpected("`,` or }")
			return nil
		}
	}
	p.nextToken()
	return n
}

// ---------------------------------------------------------------------------
// Convenience
// ---------------------------------------------------------------------------

// ParseSource parses source and returns the first syntax error, if any.
func ParseSource(source, path string) (*File, error) {
	p := NewParser(source, path)
	file := p.ParseFile()
	if errs := p.Errors(); len(errs) > 0 {
		return file, errs[0]
	}
	return file, nil
}
