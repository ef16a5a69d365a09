package fan

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser is a top-down (Pratt) parser: each token kind has an optional
// prefix parse rule and/or infix parse rule keyed by binding power, chosen
// by the precedence lattice in token.go.
type Parser struct {
	l *Lexer

	cur  Token
	peek Token

	errors []string
}

// NewParser creates a Parser over source text.
func NewParser(input string) *Parser {
	p := &Parser{l: NewLexer(input)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.Next()
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.cur.Line, fmt.Sprintf(format, args...)))
}

func (p *Parser) expect(kind Kind, what string) bool {
	if p.peek.Kind != kind {
		p.errorf("expected %s, got %q", what, p.peek.Literal)
		return false
	}
	p.advance()
	return true
}

// Parse consumes the whole token stream and returns the resulting Source,
// or the accumulated parse errors joined into one CompileError.
func (p *Parser) Parse() (*Source, error) {
	src := &Source{Requests: map[string]*RequestExpr{}, Tests: map[string]*TestExpr{}}
	for p.cur.Kind != Eof {
		expr := p.parseTopLevel()
		if expr != nil {
			src.Exprs = append(src.Exprs, expr)
			switch e := expr.(type) {
			case *RequestExpr:
				src.Requests[e.Name] = e
			case *TestExpr:
				src.Tests[e.Name] = e
			}
		}
		p.advance()
	}
	if len(p.errors) > 0 {
		return nil, newCompileError("%s", strings.Join(p.errors, "; "))
	}
	return src, nil
}

func (p *Parser) parseTopLevel() Expr {
	switch p.cur.Kind {
	case Request:
		return p.parseRequest()
	case Test:
		return p.parseTest()
	case Semicolon:
		return nil
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseExprStatement() Expr {
	expr := p.parseExpr(Lowest)
	if p.peek.Kind == Semicolon {
		p.advance()
	}
	return expr
}

// parseRequest parses: request ident(params*) `template` [assert, ...]?
func (p *Parser) parseRequest() Expr {
	if !p.expect(Ident, "request name") {
		return nil
	}
	name := p.cur.Literal
	if !p.expect(Lparen, "(") {
		return nil
	}
	params := p.parseParams()
	if !p.expect(Template, "request template body") {
		return nil
	}
	message := p.cur.Literal

	var asserts []Expr
	if p.peek.Kind == Lbracket {
		p.advance()
		asserts = p.parseExprList(Rbracket)
	}
	return &RequestExpr{Name: name, Params: params, Message: message, Asserts: asserts}
}

// parseTest parses: test ident { body }
func (p *Parser) parseTest() Expr {
	if !p.expect(Ident, "test name") {
		return nil
	}
	name := p.cur.Literal
	if !p.expect(Lbrace, "{") {
		return nil
	}
	body := p.parseBlock()
	return &TestExpr{Name: name, Body: body}
}

func (p *Parser) parseParams() []string {
	var params []string
	if p.peek.Kind == Rparen {
		p.advance()
		return params
	}
	p.advance()
	params = append(params, p.cur.Literal)
	for p.peek.Kind == Comma {
		p.advance()
		p.advance()
		params = append(params, p.cur.Literal)
	}
	if !p.expect(Rparen, ")") {
		return nil
	}
	return params
}

// parseBlock parses a brace-delimited, semicolon-separated expression
// sequence assuming cur is the opening Lbrace; it leaves cur on Rbrace.
func (p *Parser) parseBlock() []Expr {
	var body []Expr
	p.advance()
	for p.cur.Kind != Rbrace && p.cur.Kind != Eof {
		expr := p.parseExprStatement()
		if expr != nil {
			body = append(body, expr)
		}
		p.advance()
	}
	return body
}

func (p *Parser) parseExprList(end Kind) []Expr {
	var list []Expr
	if p.peek.Kind == end {
		p.advance()
		return list
	}
	p.advance()
	list = append(list, p.parseExpr(Lowest))
	for p.peek.Kind == Comma {
		p.advance()
		p.advance()
		list = append(list, p.parseExpr(Lowest))
	}
	if !p.expect(end, "closing delimiter") {
		return nil
	}
	return list
}

// parseExpr is the Pratt core: parse a prefix expression, then keep
// extending it leftward with infix operators whose precedence exceeds
// minPrec.
func (p *Parser) parseExpr(minPrec int) Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for p.peek.Kind != Semicolon && minPrec < p.peek.precedence() {
		switch p.peek.Kind {
		case Lparen:
			p.advance()
			left = p.parseCall(left)
		case Lbracket:
			p.advance()
			left = p.parseIndex(left)
		case Dot:
			p.advance()
			left = p.parseField(left)
		default:
			p.advance()
			left = p.parseInfix(left)
		}
	}
	return left
}

func (p *Parser) parsePrefix() Expr {
	switch p.cur.Kind {
	case Ident:
		if p.cur.Literal == "fn" {
			return p.parseFunction()
		}
		return &IdentExpr{Name: p.cur.Literal}
	case Integer:
		v, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.cur.Literal)
			return nil
		}
		return &IntegerExpr{Value: v}
	case Float:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			p.errorf("invalid float literal %q", p.cur.Literal)
			return nil
		}
		return &FloatExpr{Value: v}
	case True:
		return &BooleanExpr{Value: true}
	case False:
		return &BooleanExpr{Value: false}
	case String:
		return &StringExpr{Value: p.cur.Literal}
	case Bang, Minus:
		op := p.cur.Kind
		p.advance()
		right := p.parseExpr(Prefix)
		return &UnaryExpr{Op: op, Right: right}
	case Lparen:
		p.advance()
		inner := p.parseExpr(Lowest)
		if !p.expect(Rparen, ")") {
			return nil
		}
		return &ParenExpr{Inner: inner}
	case Lbracket:
		elements := p.parseExprList(Rbracket)
		return &ArrayExpr{Elements: elements}
	case Lbrace:
		return p.parseMap()
	case Let:
		return p.parseLet()
	case If:
		return p.parseIf()
	default:
		p.errorf("unexpected token %q", p.cur.Literal)
		return nil
	}
}

func (p *Parser) parseInfix(left Expr) Expr {
	tok := p.cur
	prec := tok.precedence()
	p.advance()
	right := p.parseExpr(prec)
	return &BinaryExpr{Op: tok.Kind, Text: tok.Literal, Left: left, Right: right}
}

func (p *Parser) parseCall(fn Expr) Expr {
	args := p.parseExprList(Rparen)
	return &CallExpr{Fn: fn, Args: args}
}

func (p *Parser) parseIndex(left Expr) Expr {
	p.advance()
	index := p.parseExpr(Lowest)
	if !p.expect(Rbracket, "]") {
		return nil
	}
	return &IndexExpr{Left: left, Index: index}
}

func (p *Parser) parseField(left Expr) Expr {
	if !p.expect(Ident, "field name") {
		return nil
	}
	return &FieldExpr{Left: left, Name: p.cur.Literal}
}

func (p *Parser) parseLet() Expr {
	if !p.expect(Ident, "identifier") {
		return nil
	}
	name := p.cur.Literal
	if !p.expect(Assign, "=") {
		return nil
	}
	p.advance()
	value := p.parseExpr(Lowest)
	return &LetExpr{Name: name, Value: value}
}

func (p *Parser) parseIf() Expr {
	if !p.expect(Lparen, "(") {
		return nil
	}
	p.advance()
	cond := p.parseExpr(Lowest)
	if !p.expect(Rparen, ")") {
		return nil
	}
	if !p.expect(Lbrace, "{") {
		return nil
	}
	consequence := p.parseBlock()
	var alternative []Expr
	if p.peek.Kind == Else {
		p.advance()
		if !p.expect(Lbrace, "{") {
			return nil
		}
		alternative = p.parseBlock()
	}
	return &IfExpr{Cond: cond, Consequence: consequence, Alternative: alternative}
}

// parseFunction parses: fn name?(params) { body }. cur is the `fn`
// identifier on entry.
func (p *Parser) parseFunction() Expr {
	var name string
	if p.peek.Kind == Ident {
		p.advance()
		name = p.cur.Literal
	}
	if !p.expect(Lparen, "(") {
		return nil
	}
	params := p.parseParams()
	if !p.expect(Lbrace, "{") {
		return nil
	}
	body := p.parseBlock()
	return &FunctionExpr{Name: name, Params: params, Body: body}
}

func (p *Parser) parseMap() Expr {
	var pairs []MapPair
	for p.peek.Kind != Rbrace {
		p.advance()
		key := p.parseExpr(Lowest)
		if !p.expect(Colon, ":") {
			return nil
		}
		p.advance()
		value := p.parseExpr(Lowest)
		pairs = append(pairs, MapPair{Key: key, Value: value})
		if p.peek.Kind != Rbrace && !p.expect(Comma, ",") {
			return nil
		}
	}
	p.advance()
	return &MapExpr{Pairs: pairs}
}

// TemplatePiece is one alternating segment of a request template: either a
// literal run of text, or an interpolated identifier placeholder.
type TemplatePiece struct {
	Literal string
	Ident   string // non-empty marks this piece as a placeholder
}

// SplitTemplate breaks raw template text into alternating literal and
// placeholder pieces. A placeholder is `{` up to the matching `}` whose
// trimmed inner text is a bare identifier; anything else (unterminated
// `{`, non-identifier content) is folded back into the surrounding literal.
func SplitTemplate(text string) []TemplatePiece {
	var pieces []TemplatePiece
	var literal strings.Builder
	i := 0
	for i < len(text) {
		if text[i] == '{' {
			end := strings.IndexByte(text[i+1:], '}')
			if end >= 0 {
				inner := strings.TrimSpace(text[i+1 : i+1+end])
				if isIdentifier(inner) {
					if literal.Len() > 0 {
						pieces = append(pieces, TemplatePiece{Literal: literal.String()})
						literal.Reset()
					}
					pieces = append(pieces, TemplatePiece{Ident: inner})
					i = i + 1 + end + 1
					continue
				}
			}
		}
		literal.WriteByte(text[i])
		i++
	}
	if literal.Len() > 0 {
		pieces = append(pieces, TemplatePiece{Literal: literal.String()})
	}
	return pieces
}

func isIdentifier(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) && !isDigit(s[i]) {
			return false
		}
	}
	return true
}
