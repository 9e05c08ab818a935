package atom

import "strconv"

// Value is a decoded, arena-independent snapshot of a single atom.
// Pair payloads are not decoded; walk them through the owning runtime.
type Value struct {
	Symbol string
	Number int64
	Tag    Tag
	Char   int8
}

// String names the value for diagnostics. None and Nil render as "None"
// and "Nil"; the printer uses the reader spellings NONE and NIL instead.
func (v Value) String() string {
	switch v.Tag {
	case TagNone:
		return "None"
	case TagNil:
		return "Nil"
	case TagTrue:
		return "T"
	case TagChar:
		return string([]byte{byte(v.Char)})
	case TagNumber:
		return strconv.FormatInt(v.Number, 10)
	case TagPair:
		return "Pair"
	case TagSymbol:
		return v.Symbol
	case TagWildcard:
		return "_"
	}
	return "?"
}
