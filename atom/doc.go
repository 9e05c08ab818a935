// Package atom defines the closed set of runtime value variants.
//
// Every runtime value is an atom carrying exactly one Tag:
//
//	TagNone      sentinel, distinct from Nil
//	TagNil       empty list / false
//	TagTrue      truth
//	TagChar      int8 payload
//	TagNumber    int64 payload
//	TagPair      first/rest references (stored in the slab)
//	TagSymbol    16-byte inline name
//	TagWildcard  match-anything placeholder
//
// Symbols are stored inline: at most MaxSymbolLen (15) content bytes plus a
// NUL terminator. Longer names are rejected with KindSymbolTooLong rather
// than truncated, so two distinct source identifiers never alias.
package atom
