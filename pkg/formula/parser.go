// Package formula implements the tokenizer, parser, and evaluator for the
// board formula language: a small expression grammar over column
// references and a builtin function library.
//
// Precedence, tightest to loosest:
//
//	unary -          (binds tighter than any binary operator)
//	&                string concatenation
//	* / %
//	+ -
//	= <> < > <= >=   comparisons
//
// Grammar:
//
//	expression  → comparison
//	comparison  → additive (cmp_op additive)?
//	additive    → multiplicative (("+"|"-") multiplicative)*
//	multiplicative → concat (("*"|"/"|"%") concat)*
//	concat      → unary ("&" unary)*
//	unary       → "-" unary | primary
//	primary     → NUMBER | STRING | TRUE ["(" ")"] | FALSE ["(" ")"] | column_ref | func_call | "(" expression ")"
//	func_call   → IDENT "(" (expression ("," expression)*)? ")"
package formula

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/formulacore/pkg/token"
)

// Parser parses formula source into an expression tree.
type Parser struct {
	lexer  *Lexer
	tok    token.Token
	peek   token.Token
	errors []*ParseError
}

// NewParser creates a Parser over formula source text.
func NewParser(src string) *Parser {
	p := &Parser{lexer: NewLexer(src)}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.tok = p.peek
	p.peek = p.lexer.NextToken()
}

// Parse parses a formula and returns its expression tree, or the first
// ParseError encountered. An empty formula parses to a string literal "".
func Parse(src string) (Expr, error) {
	p := NewParser(src)
	if p.tok.Type == token.EOF {
		return &Literal{Kind: LiteralString, Str: ""}, nil
	}
	expr := p.parseExpression()
	if p.tok.Type != token.EOF {
		p.addError(fmt.Sprintf("unexpected token %s", p.tok.Type))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return expr, nil
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{Position: p.tok.Pos.Offset, Message: msg})
}

func (p *Parser) check(t token.Type) bool { return p.tok.Type == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type) {
	if !p.match(t) {
		p.addError(fmt.Sprintf("expected %s, got %s", t, p.tok.Type))
	}
}

func (p *Parser) parseExpression() Expr { return p.parseComparison() }

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	var op string
	switch p.tok.Type {
	case token.EQ:
		op = "="
	case token.NE:
		op = "<>"
	case token.LT:
		op = "<"
	case token.GT:
		op = ">"
	case token.LE:
		op = "<="
	case token.GE:
		op = ">="
	default:
		return left
	}
	p.next()
	right := p.parseAdditive()
	return &BinaryOp{Op: op, Left: left, Right: right}
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for {
		var op string
		switch p.tok.Type {
		case token.PLUS:
			op = "+"
		case token.MINUS:
			op = "-"
		default:
			return left
		}
		p.next()
		right := p.parseMultiplicative()
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseConcat()
	for {
		var op string
		switch p.tok.Type {
		case token.STAR:
			op = "*"
		case token.SLASH:
			op = "/"
		case token.MOD:
			op = "%"
		default:
			return left
		}
		p.next()
		right := p.parseConcat()
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseConcat() Expr {
	left := p.parseUnary()
	for p.check(token.AMP) {
		p.next()
		right := p.parseUnary()
		left = &BinaryOp{Op: "&", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.check(token.MINUS) {
		p.next()
		return &UnaryOp{Op: "-", Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	switch p.tok.Type {
	case token.NUMBER:
		n, err := strconv.ParseFloat(p.tok.Literal, 64)
		if err != nil {
			n = 0
		}
		p.next()
		return &Literal{Kind: LiteralNumber, Num: n}
	case token.STRING:
		s := p.tok.Literal
		p.next()
		return &Literal{Kind: LiteralString, Str: s}
	case token.TRUEK, token.FALSEK:
		b := p.tok.Type == token.TRUEK
		p.next()
		if p.check(token.LPAREN) && p.peek.Type == token.RPAREN {
			p.next()
			p.next()
		}
		return &Literal{Kind: LiteralBool, Bool: b}
	case token.COLUMN:
		return p.parseColumnRef()
	case token.IDENT:
		return p.parseFunctionCall()
	case token.LPAREN:
		p.next()
		expr := p.parseExpression()
		p.expect(token.RPAREN)
		return expr
	default:
		p.addError(fmt.Sprintf("unexpected token in expression: %s", p.tok.Type))
		p.next()
		return &Literal{Kind: LiteralString, Str: ""}
	}
}

func (p *Parser) parseColumnRef() Expr {
	raw := p.tok.Literal
	p.next()
	columnID, subField := raw, ""
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' {
			columnID, subField = raw[:i], raw[i+1:]
			break
		}
	}
	return &ColumnRef{ColumnID: columnID, SubField: subField}
}

func (p *Parser) parseFunctionCall() Expr {
	name := p.tok.Literal
	p.next()

	if !p.check(token.LPAREN) {
		// Bare identifier: only the zero-arg builtins are valid without
		// parens; any other bare identifier is still treated as a
		// (no-arg) function call per the tolerant-parsing contract —
		// unknown function names are a runtime concern, not a parse error.
		return &FunctionCall{Name: name}
	}

	p.next() // consume '('
	call := &FunctionCall{Name: name}
	if !p.check(token.RPAREN) {
		for {
			call.Args = append(call.Args, p.parseExpression())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)
	return call
}

// ExtractColumnIDs returns the set of column ids referenced anywhere in
// the formula source, via a token-only pass (it does not require the
// formula to parse successfully).
func ExtractColumnIDs(src string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, tok := range Tokenize(src) {
		if tok.Type != token.COLUMN {
			continue
		}
		id := tok.Literal
		for i := 0; i < len(id); i++ {
			if id[i] == '#' {
				id = id[:i]
				break
			}
		}
		ids[id] = struct{}{}
	}
	return ids
}
