package kicadsexp

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

// ParseError reports a lexical or structural failure with its location in
// the input, so callers can surface the byte offset of the fault.
type ParseError struct {
	Offset int
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("sexp: line %d (offset %d): %s", e.Line, e.Offset, e.Msg)
	}
	return "sexp: " + e.Msg
}

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Offset int
	Line   int
}

// Lexer tokenizes S-expressions from an io.Reader
type Lexer struct {
	reader *bufio.Reader
	peeked *rune
	offset int
	line   int
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(r),
		line:   1,
	}
}

func (l *Lexer) errf(format string, args ...any) *ParseError {
	return &ParseError{Offset: l.offset, Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	// Skip whitespace and comments (# to end of line)
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return Token{Type: TokenEOF, Offset: l.offset, Line: l.line}, nil
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			continue
		}

		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	start := Token{Offset: l.offset, Line: l.line}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			start.Type = TokenEOF
			return start, nil
		}
		return Token{}, err
	}

	switch ch {
	case '(':
		l.read()
		start.Type, start.Value = TokenLeftParen, "("
		return start, nil

	case ')':
		l.read()
		start.Type, start.Value = TokenRightParen, ")"
		return start, nil

	case '"':
		return l.readString(start)

	default:
		return l.readSymbol(start)
	}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune
func (l *Lexer) read() (rune, error) {
	var ch rune
	var err error
	if l.peeked != nil {
		ch = *l.peeked
		l.peeked = nil
	} else {
		ch, _, err = l.reader.ReadRune()
		if err != nil {
			return ch, err
		}
	}
	l.offset++
	if ch == '\n' {
		l.line++
	}
	return ch, nil
}

// readString reads a quoted string
func (l *Lexer) readString(tok Token) (Token, error) {
	// Consume opening quote
	l.read()

	var result []rune
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, l.errf("unexpected EOF in string")
			}
			return Token{}, err
		}

		if ch == '"' {
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return Token{}, l.errf("unexpected EOF after backslash")
			}
			switch next {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			default:
				// Unknown escape - keep it verbatim
				result = append(result, next)
			}
			continue
		}

		result = append(result, ch)
	}

	tok.Type, tok.Value = TokenString, string(result)
	return tok, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol(tok Token) (Token, error) {
	var result []rune

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		// Stop at delimiters
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		result = append(result, ch)
	}

	if len(result) == 0 {
		return Token{}, l.errf("empty symbol")
	}

	tok.Type, tok.Value = TokenSymbol, string(result)
	return tok, nil
}
