package engine

import (
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/slab"
)

var charNames = map[byte]string{
	' ':  "space",
	'\n': "newline",
	'\t': "tab",
	'\r': "return",
	0:    "nul",
}

// Sprint renders r in reader syntax.
func (in *Interp) Sprint(r slab.Ref) (string, error) {
	var b strings.Builder
	if err := in.write(&b, r, false); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Print writes r in reader syntax.
func (in *Interp) Print(w io.Writer, r slab.Ref) error {
	var b strings.Builder
	if err := in.write(&b, r, false); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Display writes r for humans: characters and strings appear raw.
func (in *Interp) Display(w io.Writer, r slab.Ref) error {
	var b strings.Builder
	if err := in.write(&b, r, true); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (in *Interp) write(b *strings.Builder, r slab.Ref, display bool) error {
	c, err := in.slab.Get(r)
	if err != nil {
		return err
	}
	switch c.Tag {
	case atom.TagNone:
		b.WriteString("NONE")
	case atom.TagNil:
		b.WriteString("NIL")
	case atom.TagTrue:
		b.WriteString("T")
	case atom.TagChar:
		ch := byte(c.Char)
		if display {
			b.WriteByte(ch)
		} else if name, ok := charNames[ch]; ok {
			b.WriteString(`#\` + name)
		} else {
			b.WriteString(`#\`)
			b.WriteByte(ch)
		}
	case atom.TagNumber:
		b.WriteString(strconv.FormatInt(c.Number, 10))
	case atom.TagSymbol:
		b.WriteString(c.Symbol.String())
	case atom.TagWildcard:
		b.WriteByte('_')
	case atom.TagPair:
		return in.writePair(b, r, c, display)
	default:
		b.WriteString("?")
	}
	return nil
}

func (in *Interp) writePair(b *strings.Builder, r slab.Ref, c slab.Cell, display bool) error {
	if bi, ok, err := in.builtinOf(c); ok {
		if err != nil {
			b.WriteString("<builtin ?>")
		} else {
			b.WriteString("<builtin " + bi.name + ">")
		}
		return nil
	}

	if s, ok := in.stringOf(r); ok {
		if display {
			b.WriteString(s)
		} else {
			b.WriteString(strconv.Quote(s))
		}
		return nil
	}

	b.WriteByte('(')
	for {
		if err := in.write(b, c.First, display); err != nil {
			return err
		}
		rest, err := in.slab.Get(c.Rest)
		if err != nil {
			return err
		}
		if rest.Tag == atom.TagNil {
			break
		}
		if rest.Tag != atom.TagPair {
			b.WriteString(" . ")
			if err := in.write(b, c.Rest, display); err != nil {
				return err
			}
			break
		}
		b.WriteByte(' ')
		c = rest
	}
	b.WriteByte(')')
	return nil
}

// stringOf returns the text of a proper, non-empty list of printable
// characters.
func (in *Interp) stringOf(r slab.Ref) (string, bool) {
	var b strings.Builder
	for {
		c, err := in.slab.Get(r)
		if err != nil {
			return "", false
		}
		switch c.Tag {
		case atom.TagNil:
			return b.String(), b.Len() > 0
		case atom.TagPair:
			ch, err := in.slab.Get(c.First)
			if err != nil || ch.Tag != atom.TagChar || !printable(byte(ch.Char)) {
				return "", false
			}
			b.WriteByte(byte(ch.Char))
			r = c.Rest
		default:
			return "", false
		}
	}
}

func printable(c byte) bool {
	return c == '\n' || c == '\t' || (c >= 0x20 && c < 0x7f)
}

// Text decodes a proper list of characters.
func (in *Interp) Text(r slab.Ref) (string, error) {
	items, err := in.Slice(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(items))
	for _, it := range items {
		c, err := in.slab.Get(it)
		if err != nil {
			return "", err
		}
		if c.Tag != atom.TagChar {
			return "", typeMismatch(atom.TagChar, c.Tag)
		}
		buf = append(buf, byte(c.Char))
	}
	return string(buf), nil
}
