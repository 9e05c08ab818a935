package slab

import (
	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
)

// DefaultCapacity is the cell capacity used when New is given a non-positive size.
const DefaultCapacity = 1 << 16

// Ref is a generation-checked reference to a cell.
// The low 32 bits hold index+1, the high 32 bits the slot generation.
// The zero Ref is the empty reference.
type Ref uint64

func makeRef(idx, gen uint32) Ref {
	return Ref(uint64(gen)<<32 | uint64(idx+1))
}

// IsZero reports whether r is the empty reference.
func (r Ref) IsZero() bool {
	return r == 0
}

func (r Ref) index() uint32 {
	return uint32(r) - 1
}

func (r Ref) gen() uint32 {
	return uint32(r >> 32)
}

// Cell is the fixed layout stored in every slot. Only the fields matching
// Tag are meaningful.
type Cell struct {
	Symbol atom.Symbol
	Number int64
	First  Ref
	Rest   Ref
	Tag    atom.Tag
	Char   int8
}

type slot struct {
	cell Cell
	refs uint32
	gen  uint32
	live bool
}

// Slab is a fixed-capacity arena of reference-counted cells.
// It is not safe for concurrent use; a slab has exactly one owner.
type Slab struct {
	owner    any
	slots    []slot
	freeList []uint32
	pending  []Ref
	capacity int
	live     int
	peak     int
	closed   bool
}

// New creates a slab holding at most capacity cells.
// Storage grows lazily up to capacity and never beyond it.
func New(capacity int) *Slab {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	initial := capacity
	if initial > 1024 {
		initial = 1024
	}
	return &Slab{
		slots:    make([]slot, 0, initial),
		freeList: make([]uint32, 0, 64),
		capacity: capacity,
	}
}

// Alloc stores c and returns a reference with a count of one.
// For pairs, Alloc takes ownership of c.First and c.Rest, even on failure.
func (s *Slab) Alloc(c Cell) (Ref, error) {
	if s.closed {
		s.dropChildren(c)
		return 0, errors.NotInitialized(errors.PhaseAlloc, "slab")
	}
	if !c.Tag.Valid() {
		s.dropChildren(c)
		return 0, errors.InvalidInput(errors.PhaseAlloc, "invalid tag")
	}
	if c.Tag != atom.TagPair {
		c.First, c.Rest = 0, 0
	}

	var idx uint32
	switch {
	case len(s.freeList) > 0:
		idx = s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
	case len(s.slots) < s.capacity:
		s.slots = append(s.slots, slot{gen: 1})
		idx = uint32(len(s.slots) - 1)
	default:
		s.dropChildren(c)
		return 0, errors.OutOfSpace(s.capacity)
	}

	sl := &s.slots[idx]
	sl.cell = c
	sl.refs = 1
	sl.live = true

	s.live++
	if s.live > s.peak {
		s.peak = s.live
	}
	return makeRef(idx, sl.gen), nil
}

func (s *Slab) dropChildren(c Cell) {
	if c.Tag == atom.TagPair {
		_ = s.Release(c.First)
		_ = s.Release(c.Rest)
	}
}

func (s *Slab) lookup(r Ref) (*slot, error) {
	if r.IsZero() {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "empty reference")
	}
	idx := r.index()
	if int(idx) >= len(s.slots) {
		return nil, errors.StaleHandle(errors.PhaseAlloc, "ref", uint64(r))
	}
	sl := &s.slots[idx]
	if !sl.live || sl.gen != r.gen() {
		return nil, errors.StaleHandle(errors.PhaseAlloc, "ref", uint64(r))
	}
	return sl, nil
}

// Get returns a copy of the cell behind r.
func (s *Slab) Get(r Ref) (Cell, error) {
	sl, err := s.lookup(r)
	if err != nil {
		return Cell{}, err
	}
	return sl.cell, nil
}

// Tag returns the tag of the cell behind r.
func (s *Slab) Tag(r Ref) (atom.Tag, error) {
	sl, err := s.lookup(r)
	if err != nil {
		return atom.TagNone, err
	}
	return sl.cell.Tag, nil
}

// Retain adds one reference to r.
func (s *Slab) Retain(r Ref) error {
	sl, err := s.lookup(r)
	if err != nil {
		return err
	}
	sl.refs++
	return nil
}

// Refs returns the current reference count of r.
func (s *Slab) Refs(r Ref) (uint32, error) {
	sl, err := s.lookup(r)
	if err != nil {
		return 0, err
	}
	return sl.refs, nil
}

// Release drops one reference to r. When the count reaches zero the cell is
// freed and its children released in turn. Releasing the zero Ref is a no-op.
func (s *Slab) Release(r Ref) error {
	if r.IsZero() {
		return nil
	}
	if _, err := s.lookup(r); err != nil {
		return err
	}

	// Iterative so that long lists do not recurse once per element.
	s.pending = append(s.pending[:0], r)
	for len(s.pending) > 0 {
		cur := s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]

		sl, err := s.lookup(cur)
		if err != nil {
			continue
		}
		sl.refs--
		if sl.refs > 0 {
			continue
		}

		if sl.cell.Tag == atom.TagPair {
			if !sl.cell.First.IsZero() {
				s.pending = append(s.pending, sl.cell.First)
			}
			if !sl.cell.Rest.IsZero() {
				s.pending = append(s.pending, sl.cell.Rest)
			}
		}
		s.free(cur.index())
	}
	return nil
}

func (s *Slab) free(idx uint32) {
	sl := &s.slots[idx]
	sl.cell = Cell{}
	sl.live = false
	sl.refs = 0
	sl.gen++
	if sl.gen == 0 {
		sl.gen = 1
	}
	s.freeList = append(s.freeList, idx)
	s.live--
}

// Len returns the number of live cells.
func (s *Slab) Len() int {
	return s.live
}

// Cap returns the fixed cell capacity.
func (s *Slab) Cap() int {
	return s.capacity
}

// Peak returns the highest number of simultaneously live cells.
func (s *Slab) Peak() int {
	return s.peak
}

// Bind records owner as the single owner of the slab.
func (s *Slab) Bind(owner any) error {
	if s.closed {
		return errors.NotInitialized(errors.PhaseAlloc, "slab")
	}
	if s.owner != nil {
		return errors.New(errors.PhaseAlloc, errors.KindInUse).
			Detail("slab already bound to an interpreter").
			Build()
	}
	s.owner = owner
	return nil
}

// Unbind releases ownership. It is a no-op if owner is not the current owner.
func (s *Slab) Unbind(owner any) {
	if s.owner == owner {
		s.owner = nil
	}
}

// Bound reports whether an interpreter currently owns the slab.
func (s *Slab) Bound() bool {
	return s.owner != nil
}

// Close destroys the slab. It fails while an interpreter is still bound,
// since every atom would dangle.
func (s *Slab) Close() error {
	if s.closed {
		return nil
	}
	if s.owner != nil {
		return errors.New(errors.PhaseAlloc, errors.KindInUse).
			Detail("close the interpreter before its slab").
			Build()
	}
	s.closed = true
	s.slots = nil
	s.freeList = nil
	s.pending = nil
	s.live = 0
	return nil
}
