package atom

import (
	"bytes"

	"github.com/wippyai/rikiki/errors"
)

const (
	// SymbolSize is the inline width of a symbol, terminator included.
	SymbolSize = 16
	// MaxSymbolLen is the maximum number of content bytes in a symbol.
	MaxSymbolLen = SymbolSize - 1
)

// Symbol is the inline, NUL-terminated encoding of an identifier.
type Symbol [SymbolSize]byte

// NewSymbol encodes name. Names longer than MaxSymbolLen are rejected,
// never truncated; empty names and names containing NUL are rejected too.
func NewSymbol(phase errors.Phase, name string) (Symbol, error) {
	var s Symbol
	if len(name) == 0 {
		return s, errors.InvalidInput(phase, "empty symbol name")
	}
	if len(name) > MaxSymbolLen {
		return s, errors.SymbolTooLong(phase, name, MaxSymbolLen)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return s, errors.InvalidInput(phase, "symbol name contains NUL")
	}
	copy(s[:], name)
	return s, nil
}

// MustSymbol is NewSymbol for compile-time constant names.
func MustSymbol(name string) Symbol {
	s, err := NewSymbol(errors.PhaseRuntime, name)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of content bytes.
func (s Symbol) Len() int {
	if i := bytes.IndexByte(s[:], 0); i >= 0 {
		return i
	}
	return SymbolSize
}

// String returns the symbol name.
func (s Symbol) String() string {
	return string(s[:s.Len()])
}
