package kicadsexp

import (
	"io"
)

// Parser parses S-expressions from a lexer
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// ParseAll parses all top-level S-expressions from the input
func (p *Parser) ParseAll() ([]Sexp, error) {
	var result []Sexp

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	return result, nil
}

func (p *Parser) errf(msg string) *ParseError {
	return &ParseError{Offset: p.current.Offset, Line: p.current.Line, Msg: msg}
}

// parseExpr parses a single S-expression
func (p *Parser) parseExpr() (Sexp, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenSymbol:
		return Symbol(p.current.Value), nil

	case TokenString:
		return Str(p.current.Value), nil

	case TokenRightParen:
		return nil, p.errf("unexpected ')'")

	case TokenEOF:
		return nil, p.errf("unexpected EOF")

	default:
		return nil, p.errf("unexpected token")
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (Sexp, error) {
	if p.current.Type != TokenLeftParen {
		return nil, p.errf("expected '('")
	}

	list := NewList()

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.Type == TokenRightParen {
			break
		}

		if p.current.Type == TokenEOF {
			return nil, p.errf("unexpected EOF in list")
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Append(elem)
	}

	return list, nil
}
