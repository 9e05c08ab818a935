package reader

import (
	"io"
	"strconv"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// MaxNesting bounds list nesting in source text.
const MaxNesting = 4096

// Builder allocates the cells a reader produces. *slab.Slab satisfies it.
type Builder interface {
	Alloc(c slab.Cell) (slab.Ref, error)
	Release(r slab.Ref) error
}

// QuoteSymbol is the symbol the reader expands 'x into: (quote x).
var QuoteSymbol = atom.MustSymbol("quote")

// Reader parses top-level forms from a source stream.
type Reader struct {
	b     Builder
	sc    *scanner
	depth int
}

// New creates a reader over src. name is used in error positions.
func New(b Builder, name string, src io.Reader) *Reader {
	return &Reader{
		b:  b,
		sc: newScanner(name, src),
	}
}

// Line returns the current source line.
func (r *Reader) Line() int {
	return r.sc.line
}

// Read parses the next top-level form and returns an owned reference.
// It returns io.EOF when the input holds no further forms.
func (r *Reader) Read() (slab.Ref, error) {
	t, err := r.next()
	if err != nil {
		return 0, err
	}
	if t.Type == EOF {
		return 0, io.EOF
	}
	return r.parse(t)
}

// ReadAll parses every remaining form.
func (r *Reader) ReadAll() ([]slab.Ref, error) {
	var forms []slab.Ref
	for {
		ref, err := r.Read()
		if err == io.EOF {
			return forms, nil
		}
		if err != nil {
			for _, f := range forms {
				r.b.Release(f)
			}
			return nil, err
		}
		forms = append(forms, ref)
	}
}

func (r *Reader) next() (Token, error) {
	return r.sc.next()
}

func (r *Reader) syntax(line int, detail string) error {
	return errors.Syntax(r.sc.name, line, detail)
}

func (r *Reader) parse(t Token) (slab.Ref, error) {
	switch t.Type {
	case LParen:
		r.depth++
		defer func() { r.depth-- }()
		if r.depth > MaxNesting {
			return 0, r.syntax(t.Line, "nesting too deep")
		}
		return r.parseList(t.Line)
	case RParen:
		return 0, r.syntax(t.Line, "unexpected ')'")
	case Dot:
		return 0, r.syntax(t.Line, "unexpected '.'")
	case Quote:
		r.depth++
		defer func() { r.depth-- }()
		if r.depth > MaxNesting {
			return 0, r.syntax(t.Line, "nesting too deep")
		}
		return r.parseQuote(t.Line)
	case String:
		return r.stringList([]byte(t.Value))
	case Char:
		return r.b.Alloc(slab.Cell{Tag: atom.TagChar, Char: int8(t.Value[0])})
	case Atom:
		return r.parseAtom(t)
	case EOF:
		return 0, r.syntax(t.Line, "unexpected end of input")
	}
	return 0, r.syntax(t.Line, "unknown token")
}

func (r *Reader) parseAtom(t Token) (slab.Ref, error) {
	switch t.Value {
	case "T":
		return r.b.Alloc(slab.Cell{Tag: atom.TagTrue})
	case "NIL":
		return r.b.Alloc(slab.Cell{Tag: atom.TagNil})
	case "_":
		return r.b.Alloc(slab.Cell{Tag: atom.TagWildcard})
	}

	if isNumber(t.Value) {
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return 0, r.syntax(t.Line, "number out of range: "+t.Value)
		}
		return r.b.Alloc(slab.Cell{Tag: atom.TagNumber, Number: n})
	}

	sym, err := atom.NewSymbol(errors.PhaseRead, t.Value)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Source = r.sc.name
			e.Line = t.Line
		}
		return 0, err
	}
	return r.b.Alloc(slab.Cell{Tag: atom.TagSymbol, Symbol: sym})
}

func isNumber(s string) bool {
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (r *Reader) parseQuote(line int) (slab.Ref, error) {
	t, err := r.next()
	if err != nil {
		return 0, err
	}
	if t.Type == EOF {
		return 0, r.syntax(line, "quote without a form")
	}
	quoted, err := r.parse(t)
	if err != nil {
		return 0, err
	}
	q, err := r.b.Alloc(slab.Cell{Tag: atom.TagSymbol, Symbol: QuoteSymbol})
	if err != nil {
		r.b.Release(quoted)
		return 0, err
	}
	return r.list([]slab.Ref{q, quoted}, 0)
}

func (r *Reader) parseList(line int) (slab.Ref, error) {
	var items []slab.Ref
	var tail slab.Ref

	fail := func(err error) (slab.Ref, error) {
		for _, it := range items {
			r.b.Release(it)
		}
		r.b.Release(tail)
		return 0, err
	}

	for {
		t, err := r.next()
		if err != nil {
			return fail(err)
		}
		switch t.Type {
		case EOF:
			return fail(r.syntax(line, "unterminated list"))
		case RParen:
			return r.list(items, tail)
		case Dot:
			if len(items) == 0 {
				return fail(r.syntax(t.Line, "dotted pair without a head"))
			}
			nt, err := r.next()
			if err != nil {
				return fail(err)
			}
			tail, err = r.parse(nt)
			if err != nil {
				return fail(err)
			}
			closing, err := r.next()
			if err != nil {
				return fail(err)
			}
			if closing.Type != RParen {
				return fail(r.syntax(closing.Line, "expected ')' after dotted tail"))
			}
			return r.list(items, tail)
		default:
			item, err := r.parse(t)
			if err != nil {
				return fail(err)
			}
			items = append(items, item)
		}
	}
}

// list builds a chain of pairs from items ending in tail, or Nil when tail
// is zero. It consumes items and tail.
func (r *Reader) list(items []slab.Ref, tail slab.Ref) (slab.Ref, error) {
	if tail.IsZero() {
		nilRef, err := r.b.Alloc(slab.Cell{Tag: atom.TagNil})
		if err != nil {
			for _, it := range items {
				r.b.Release(it)
			}
			return 0, err
		}
		tail = nilRef
	}
	for i := len(items) - 1; i >= 0; i-- {
		p, err := r.b.Alloc(slab.Cell{Tag: atom.TagPair, First: items[i], Rest: tail})
		if err != nil {
			for _, it := range items[:i] {
				r.b.Release(it)
			}
			return 0, err
		}
		tail = p
	}
	return tail, nil
}

func (r *Reader) stringList(s []byte) (slab.Ref, error) {
	items := make([]slab.Ref, 0, len(s))
	for _, c := range s {
		ch, err := r.b.Alloc(slab.Cell{Tag: atom.TagChar, Char: int8(c)})
		if err != nil {
			for _, it := range items {
				r.b.Release(it)
			}
			return 0, err
		}
		items = append(items, ch)
	}
	return r.list(items, 0)
}
