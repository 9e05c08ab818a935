package wasmext

import (
	"math"
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// lower converts the i-th call argument to a flat core value.
// Bool accepts any atom; only Nil is false.
func lower(c *engine.Call, i int, p Param) (uint64, error) {
	cell, err := c.Cell(i)
	if err != nil {
		return 0, err
	}

	switch p.Type.(type) {
	case wit.Bool:
		if cell.Tag == atom.TagNil {
			return 0, nil
		}
		return 1, nil
	case wit.Char:
		if cell.Tag != atom.TagChar {
			return 0, argType(c, i, p, atom.TagChar, cell.Tag)
		}
		return uint64(uint8(cell.Char)), nil
	}

	if cell.Tag != atom.TagNumber {
		return 0, argType(c, i, p, atom.TagNumber, cell.Tag)
	}
	n := cell.Number

	var lo, hi int64
	switch p.Type.(type) {
	case wit.S8:
		lo, hi = math.MinInt8, math.MaxInt8
	case wit.U8:
		lo, hi = 0, math.MaxUint8
	case wit.S16:
		lo, hi = math.MinInt16, math.MaxInt16
	case wit.U16:
		lo, hi = 0, math.MaxUint16
	case wit.S32:
		lo, hi = math.MinInt32, math.MaxInt32
	case wit.U32:
		lo, hi = 0, math.MaxUint32
	case wit.S64:
		return api.EncodeI64(n), nil
	case wit.U64:
		lo, hi = 0, math.MaxInt64
	}
	if n < lo || n > hi {
		return 0, errors.New(errors.PhaseExtension, errors.KindInvalidInput).
			Value(n).
			Detail("argument %s of %s out of range for %s", p.Name, c.Name, typeName(p.Type)).
			Build()
	}
	if _, wide := p.Type.(wit.U64); wide {
		return uint64(n), nil
	}
	return api.EncodeI32(int32(n)), nil
}

func argType(c *engine.Call, i int, p Param, want, got atom.Tag) error {
	return errors.New(errors.PhaseExtension, errors.KindTypeMismatch).
		Want(want.String()).
		Got(got.String()).
		Detail("argument %d (%s) of %s", i+1, p.Name, c.Name).
		Build()
}

// lift converts a flat core result back into an atom.
func lift(in *engine.Interp, t wit.Type, v uint64) (slab.Ref, error) {
	switch t.(type) {
	case wit.Bool:
		return in.Bool(v != 0)
	case wit.Char:
		cp := api.DecodeU32(v)
		if cp > math.MaxUint8 {
			return 0, errors.InvalidInput(errors.PhaseExtension,
				"character U+"+strconv.FormatUint(uint64(cp), 16)+" does not fit a Char")
		}
		return in.Char(int8(uint8(cp)))
	case wit.S8:
		return in.Number(int64(int8(v)))
	case wit.U8:
		return in.Number(int64(uint8(v)))
	case wit.S16:
		return in.Number(int64(int16(v)))
	case wit.U16:
		return in.Number(int64(uint16(v)))
	case wit.S32:
		return in.Number(int64(api.DecodeI32(v)))
	case wit.U32:
		return in.Number(int64(api.DecodeU32(v)))
	case wit.S64:
		return in.Number(int64(v))
	case wit.U64:
		if v > math.MaxInt64 {
			return 0, errors.InvalidInput(errors.PhaseExtension,
				"u64 result "+strconv.FormatUint(v, 10)+" overflows Number")
		}
		return in.Number(int64(v))
	}
	return 0, errors.Unsupported(errors.PhaseExtension, "result type")
}

func typeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.Char:
		return "char"
	case wit.S8:
		return "s8"
	case wit.U8:
		return "u8"
	case wit.S16:
		return "s16"
	case wit.U16:
		return "u16"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	}
	return "?"
}
