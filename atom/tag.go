package atom

// Tag identifies the variant of an atom.
// Numeric values are stable and must not be reordered.
type Tag uint8

const (
	TagNone     Tag = iota // absence / sentinel, distinct from Nil
	TagNil                 // empty list, false
	TagTrue                // canonical truth value
	TagChar                // single signed byte
	TagNumber              // 64-bit signed integer
	TagPair                // cons cell
	TagSymbol              // inline identifier
	TagWildcard            // match-anything placeholder
)

// NumTags is the number of atom variants.
const NumTags = 8

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagNil:
		return "nil"
	case TagTrue:
		return "true"
	case TagChar:
		return "char"
	case TagNumber:
		return "number"
	case TagPair:
		return "pair"
	case TagSymbol:
		return "symbol"
	case TagWildcard:
		return "wildcard"
	}
	return "unknown"
}

// Valid reports whether t is one of the eight atom variants.
func (t Tag) Valid() bool {
	return t < NumTags
}

// SelfEvaluating reports whether atoms of this tag evaluate to themselves.
func (t Tag) SelfEvaluating() bool {
	switch t {
	case TagNone, TagNil, TagTrue, TagChar, TagNumber, TagWildcard:
		return true
	case TagPair, TagSymbol:
		return false
	}
	return false
}
