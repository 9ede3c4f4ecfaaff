package parser

import (
	"strconv"
	"strings"

	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token

	// set while parsing an if/while condition, where '{' opens the body
	noStructLit bool
}

// bailout carries the first parse error up to Parse.
type bailout struct{ err *util.Error }

// NewParser creates and initializes a new Parser from a token stream. The
// stream must end with an EOF token, as produced by lexer.Tokenize.
func NewParser(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Span.End
		}
		tokens = append(tokens, token.Token{Type: token.EOF, Span: token.Span{Start: end, End: end}})
	}
	return &Parser{tokens: tokens, current: tokens[0]}
}

// Parse parses a whole compilation unit into a Block of top-level
// declarations and statements. It stops at the first structural error.
func Parse(tokens []token.Token) (*ast.Node, error) {
	return NewParser(tokens).Parse()
}

func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	start := p.current
	var stmts []*ast.Node
	for !p.check(token.EOF) {
		stmts = append(stmts, p.parseDeclaration())
	}
	return ast.NewBlock(start, p.current.Span, stmts), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) fail(err *util.Error) {
	panic(bailout{err})
}

// errExpected reports the current token as not being one of want.
func (p *Parser) errExpected(want ...string) {
	if p.check(token.EOF) {
		p.fail(util.NewError(util.UnexpectedEOF, p.current.Span, "unexpected end of input, expected %s", strings.Join(want, " or ")))
	}
	p.fail(util.NewError(util.Expected, p.current.Span, "expected %s, found '%s'", strings.Join(want, " or "), p.current))
}

func (p *Parser) expect(tokType token.Type) token.Token {
	if !p.check(tokType) {
		p.errExpected("'" + tokType.String() + "'")
	}
	p.advance()
	return p.previous
}

// expectClosing consumes the bracket matching open. Running out of input
// first is reported against the opening bracket.
func (p *Parser) expectClosing(closing token.Type, open token.Token) token.Token {
	if p.check(token.EOF) {
		p.fail(util.NewError(util.UnterminatedBracket, open.Span, "unterminated '%s'", open.Type).With(p.current.Span))
	}
	return p.expect(closing)
}

func (p *Parser) expectSemi() token.Token {
	if !p.check(token.Semi) {
		p.fail(util.NewError(util.MissingSemicolon, token.Span{Start: p.previous.Span.End, End: p.previous.Span.End},
			"missing ';' after statement, found '%s'", p.current).With(p.current.Span))
	}
	p.advance()
	return p.previous
}

func (p *Parser) expectIdent(what string) token.Token {
	if !p.check(token.Ident) {
		p.errExpected(what)
	}
	p.advance()
	return p.previous
}

// Declarations and statements

func (p *Parser) parseDeclaration() *ast.Node {
	switch p.current.Type {
	case token.Struct:
		return p.parseStructDecl()
	case token.Fn:
		return p.parseFuncDecl()
	}
	return p.parseStmt()
}

func (p *Parser) parseStructDecl() *ast.Node {
	tok := p.expect(token.Struct)
	name := p.expectIdent("struct name")
	open := p.expect(token.LBrace)

	var fields []ast.FieldDecl
	seen := make(map[string]token.Span)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		fieldTok := p.expectIdent("field name")
		if prev, dup := seen[fieldTok.Value]; dup {
			p.fail(util.NewError(util.DuplicateField, fieldTok.Span, "duplicate field '%s' in struct '%s'", fieldTok.Value, name.Value).With(prev))
		}
		seen[fieldTok.Value] = fieldTok.Span
		p.expect(token.Colon)
		typ := p.parseType()
		fields = append(fields, ast.FieldDecl{Name: fieldTok.Value, Type: typ, Span: fieldTok.Span.Union(typ.Span)})
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.expectClosing(token.RBrace, open)
	return ast.NewStructDecl(tok, end.Span, name.Value, fields)
}

func (p *Parser) parseFuncDecl() *ast.Node {
	tok := p.expect(token.Fn)
	name := p.expectIdent("function name")
	open := p.expect(token.LParen)

	var params []ast.Param
	for !p.check(token.RParen) && !p.check(token.EOF) {
		paramTok := p.expectIdent("parameter name")
		p.expect(token.Colon)
		typ := p.parseType()
		params = append(params, ast.Param{Name: paramTok.Value, Type: typ, Span: paramTok.Span.Union(typ.Span)})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expectClosing(token.RParen, open)

	var ret *ast.TypeExpr
	if p.match(token.Arrow) {
		ret = p.parseType()
	}
	body := p.parseBlock()
	return ast.NewFuncDecl(tok, name.Value, params, ret, body)
}

// parseType parses `int`, `bool`, `char`, `&T` or a struct name.
func (p *Parser) parseType() *ast.TypeExpr {
	tok := p.current
	switch {
	case p.match(token.And):
		elem := p.parseType()
		return &ast.TypeExpr{Elem: elem, Span: tok.Span.Union(elem.Span)}
	case p.match(token.IntKeyword), p.match(token.BoolKeyword), p.match(token.CharKeyword):
		return &ast.TypeExpr{Name: tok.Type.String(), Span: tok.Span}
	case p.match(token.Ident):
		return &ast.TypeExpr{Name: tok.Value, Span: tok.Span}
	}
	p.errExpected("type")
	return nil
}

// parseBlock parses a brace-delimited statement list or a single statement.
// Either way the result is a Block node.
func (p *Parser) parseBlock() *ast.Node {
	open := p.current
	if !p.match(token.LBrace) {
		stmt := p.parseStmt()
		return ast.NewBlock(open, stmt.Span, []*ast.Node{stmt})
	}
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	end := p.expectClosing(token.RBrace, open)
	return ast.NewBlock(open, end.Span, stmts)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.Let:
		p.advance()
		name := p.expectIdent("variable name")
		var typ *ast.TypeExpr
		if p.match(token.Colon) {
			typ = p.parseType()
		}
		p.expect(token.Eq)
		value := p.parseExpr()
		end := p.expectSemi()
		return ast.NewLet(tok, end.Span, name, typ, value)

	case token.If:
		p.advance()
		var arms []ast.IfArm
		for {
			cond := p.parseCondition()
			arms = append(arms, ast.IfArm{Cond: cond, Body: p.parseBlock()})
			if !p.match(token.Else) {
				break
			}
			if !p.match(token.If) {
				arms = append(arms, ast.IfArm{Body: p.parseBlock()})
				break
			}
		}
		return ast.NewIf(tok, arms)

	case token.While:
		p.advance()
		cond := p.parseCondition()
		return ast.NewWhile(tok, cond, p.parseBlock())

	case token.Return:
		p.advance()
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExpr()
		}
		end := p.expectSemi()
		return ast.NewReturn(tok, end.Span, expr)

	case token.LBrace:
		return p.parseBlock()

	case token.Fn, token.Struct:
		p.errExpected("statement")
	}
	return p.parseAssignment()
}

func (p *Parser) parseCondition() *ast.Node {
	saved := p.noStructLit
	p.noStructLit = true
	defer func() { p.noStructLit = saved }()
	return p.parseExpr()
}

// parseAssignment parses `target = value;` or a bare expression statement.
func (p *Parser) parseAssignment() *ast.Node {
	expr := p.parseExpr()
	if p.match(token.Eq) {
		eq := p.previous
		value := p.parseExpr()
		end := p.expectSemi()
		return ast.NewAssign(eq, end.Span, expr, value)
	}
	end := p.expectSemi()
	return ast.NewExprStmt(end.Span, expr)
}

// Expression Parsing

func (p *Parser) parseExpr() *ast.Node {
	return p.parseComparison()
}

func isComparison(t token.Type) bool {
	switch t {
	case token.Lt, token.Gt, token.EqEq, token.Neq, token.Lte, token.Gte:
		return true
	}
	return false
}

func (p *Parser) parseComparison() *ast.Node {
	left := p.parseAddition()
	for isComparison(p.current.Type) {
		op := p.current
		p.advance()
		right := p.parseAddition()
		left = ast.NewBinaryOp(op, op.Type, left, right)
	}
	return left
}

func (p *Parser) parseAddition() *ast.Node {
	left := p.parseMultiplication()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.current
		p.advance()
		right := p.parseMultiplication()
		left = ast.NewBinaryOp(op, op.Type, left, right)
	}
	return left
}

func (p *Parser) parseMultiplication() *ast.Node {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) {
		op := p.current
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinaryOp(op, op.Type, left, right)
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.And):
		return ast.NewAddressOf(tok, p.parseUnary())
	case p.match(token.Star):
		return ast.NewDeref(tok, p.parseUnary())
	case p.match(token.Minus):
		return ast.NewUnary(tok, token.Minus, p.parseUnary())
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()
	for {
		tok := p.current
		switch {
		case p.match(token.LParen):
			var args []*ast.Node
			p.withStructLits(func() {
				for !p.check(token.RParen) && !p.check(token.EOF) {
					args = append(args, p.parseExpr())
					if !p.match(token.Comma) {
						break
					}
				}
			})
			end := p.expectClosing(token.RParen, tok)
			expr = ast.NewFuncCall(tok, end.Span, expr, args)
		case p.match(token.Dot):
			field := p.expectIdent("field name")
			expr = ast.NewMemberAccess(tok, expr, field)
		case p.match(token.LBracket):
			var index *ast.Node
			p.withStructLits(func() { index = p.parseExpr() })
			end := p.expectClosing(token.RBracket, tok)
			expr = ast.NewSubscript(tok, end.Span, expr, index)
		default:
			return expr
		}
	}
}

// withStructLits re-enables struct construction inside a bracketed
// sub-expression of a condition.
func (p *Parser) withStructLits(fn func()) {
	saved := p.noStructLit
	p.noStructLit = false
	defer func() { p.noStructLit = saved }()
	fn()
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail(util.NewError(util.InvalidNumber, tok.Span, "invalid number literal '%s'", tok.Value))
		}
		return ast.NewNumber(tok, val)
	case p.match(token.True):
		return ast.NewBool(tok, true)
	case p.match(token.False):
		return ast.NewBool(tok, false)
	case p.match(token.String):
		return ast.NewString(tok, tok.Value)
	case p.match(token.Char):
		val, _ := strconv.Atoi(tok.Value)
		return ast.NewChar(tok, byte(val))
	case p.match(token.Ident):
		if p.check(token.LBrace) && !p.noStructLit {
			return p.parseStructLit(tok)
		}
		return ast.NewIdent(tok, tok.Value)
	case p.match(token.LParen):
		var expr *ast.Node
		p.withStructLits(func() { expr = p.parseExpr() })
		end := p.expectClosing(token.RParen, tok)
		expr.Span = expr.Span.Union(tok.Span).Union(end.Span)
		return expr
	}
	p.errExpected("expression")
	return nil
}

func (p *Parser) parseStructLit(name token.Token) *ast.Node {
	open := p.expect(token.LBrace)
	var fields []ast.FieldInit
	seen := make(map[string]token.Span)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		fieldTok := p.expectIdent("field name")
		if prev, dup := seen[fieldTok.Value]; dup {
			p.fail(util.NewError(util.DuplicateField, fieldTok.Span, "field '%s' given twice in construction of '%s'", fieldTok.Value, name.Value).With(prev))
		}
		seen[fieldTok.Value] = fieldTok.Span
		p.expect(token.Colon)
		fields = append(fields, ast.FieldInit{Name: fieldTok.Value, NameSpan: fieldTok.Span, Value: p.parseExpr()})
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.expectClosing(token.RBrace, open)
	return ast.NewStructLit(name, end.Span, name.Value, fields)
}
