package reader

import (
	"bufio"
	"io"
	"strings"

	"github.com/wippyai/rikiki/errors"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	LParen TokenType = iota
	RParen
	Dot
	Quote
	Atom
	String
	Char
	EOF
)

func (t TokenType) String() string {
	switch t {
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Dot:
		return "'.'"
	case Quote:
		return "'''"
	case Atom:
		return "atom"
	case String:
		return "string"
	case Char:
		return "char"
	case EOF:
		return "end of input"
	}
	return "unknown"
}

// Token is a single lexical token.
type Token struct {
	Value string
	Type  TokenType
	Line  int
}

// scanner produces tokens from a byte stream one at a time, so that a
// reader over stdin never blocks on input it does not need yet.
type scanner struct {
	r    *bufio.Reader
	name string
	line int
}

func newScanner(name string, r io.Reader) *scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &scanner{r: br, name: name, line: 1}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '\'', '"', ';', ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func (s *scanner) next() (Token, error) {
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return Token{Type: EOF, Line: s.line}, nil
		}
		if err != nil {
			return Token{}, errors.Wrap(errors.PhaseRead, errors.KindInvalidInput, err, "read source")
		}

		switch {
		case c == '\n':
			s.line++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			continue
		case c == ';':
			// Line comment
			for {
				c, err = s.r.ReadByte()
				if err != nil {
					break
				}
				if c == '\n' {
					s.line++
					break
				}
			}
			continue
		case c == '(':
			return Token{"(", LParen, s.line}, nil
		case c == ')':
			return Token{")", RParen, s.line}, nil
		case c == '\'':
			return Token{"'", Quote, s.line}, nil
		case c == '"':
			return s.scanString()
		case c == '#':
			if p, err := s.r.Peek(1); err == nil && p[0] == '\\' {
				s.r.ReadByte()
				return s.scanChar()
			}
		}

		return s.scanAtom(c)
	}
}

func (s *scanner) scanAtom(first byte) (Token, error) {
	var b strings.Builder
	b.WriteByte(first)
	for {
		p, err := s.r.Peek(1)
		if err != nil || isDelimiter(p[0]) {
			break
		}
		c, _ := s.r.ReadByte()
		b.WriteByte(c)
	}
	v := b.String()
	if v == "." {
		return Token{v, Dot, s.line}, nil
	}
	return Token{v, Atom, s.line}, nil
}

func (s *scanner) scanString() (Token, error) {
	start := s.line
	var b strings.Builder
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return Token{}, errors.Syntax(s.name, start, "unterminated string")
		}
		switch c {
		case '"':
			return Token{b.String(), String, start}, nil
		case '\n':
			s.line++
		case '\\':
			e, err := s.r.ReadByte()
			if err != nil {
				return Token{}, errors.Syntax(s.name, start, "unterminated string")
			}
			switch e {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case 'r':
				c = '\r'
			case '0':
				c = 0
			default:
				c = e
			}
		}
		b.WriteByte(c)
	}
}

var charNames = map[string]byte{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"return":  '\r',
	"nul":     0,
}

func (s *scanner) scanChar() (Token, error) {
	c, err := s.r.ReadByte()
	if err != nil {
		return Token{}, errors.Syntax(s.name, s.line, "incomplete character literal")
	}
	var b strings.Builder
	b.WriteByte(c)
	for {
		p, err := s.r.Peek(1)
		if err != nil || isDelimiter(p[0]) {
			break
		}
		n, _ := s.r.ReadByte()
		b.WriteByte(n)
	}
	v := b.String()
	if len(v) == 1 {
		return Token{v, Char, s.line}, nil
	}
	if named, ok := charNames[v]; ok {
		return Token{string([]byte{named}), Char, s.line}, nil
	}
	return Token{}, errors.Syntax(s.name, s.line, "unknown character name #\\"+v)
}
