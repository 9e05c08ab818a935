package resource

import (
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// LocalBackend is an in-memory handle backend with borrow tracking and
// per-slot generations. It is not safe for concurrent use.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	live     int
	closed   bool
}

type entry struct {
	ref         slab.Ref
	borrowCount uint32
	gen         uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Create stores a reference and returns a handle.
func (b *LocalBackend) Create(ref slab.Ref) (Handle, error) {
	if b.closed {
		return 0, errors.NotInitialized(errors.PhaseRuntime, "handle table")
	}

	var idx uint32
	if len(b.freeList) > 0 {
		idx = b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
	} else {
		b.entries = append(b.entries, entry{gen: 1})
		idx = uint32(len(b.entries) - 1)
	}

	e := &b.entries[idx]
	e.ref = ref
	e.valid = true
	e.borrowCount = 0
	b.live++

	return makeHandle(idx, e.gen), nil
}

func (b *LocalBackend) lookup(handle Handle) (*entry, error) {
	if handle == 0 {
		return nil, errors.Consumed("lookup")
	}
	idx := handle.index()
	if int(idx) >= len(b.entries) {
		return nil, errors.StaleHandle(errors.PhaseRuntime, "handle", uint64(handle))
	}
	e := &b.entries[idx]
	if !e.valid || e.gen != handle.gen() {
		return nil, errors.StaleHandle(errors.PhaseRuntime, "handle", uint64(handle))
	}
	return e, nil
}

// Get retrieves the reference behind a handle.
func (b *LocalBackend) Get(handle Handle) (slab.Ref, error) {
	e, err := b.lookup(handle)
	if err != nil {
		return 0, err
	}
	return e.ref, nil
}

// Drop removes a handle and returns the reference it held.
func (b *LocalBackend) Drop(handle Handle) (slab.Ref, error) {
	e, err := b.lookup(handle)
	if err != nil {
		return 0, err
	}

	if e.borrowCount > 0 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindOutstandingBorrow).
			Detail("handle has %d outstanding borrow(s)", e.borrowCount).
			Build()
	}

	ref := e.ref
	e.valid = false
	e.ref = 0
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	b.freeList = append(b.freeList, handle.index())
	b.live--

	return ref, nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) error {
	e, err := b.lookup(handle)
	if err != nil {
		return err
	}
	e.borrowCount++
	return nil
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) error {
	e, err := b.lookup(handle)
	if err != nil {
		return err
	}
	if e.borrowCount == 0 {
		return errors.InvalidInput(errors.PhaseRuntime, "no outstanding borrow to return")
	}
	e.borrowCount--
	return nil
}

// Borrows returns the outstanding borrow count for a handle.
func (b *LocalBackend) Borrows(handle Handle) (uint32, error) {
	e, err := b.lookup(handle)
	if err != nil {
		return 0, err
	}
	return e.borrowCount, nil
}

// Close invalidates every handle.
func (b *LocalBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of live handles.
func (b *LocalBackend) Len() int {
	return b.live
}

// Each iterates over all live handles.
func (b *LocalBackend) Each(fn func(Handle, slab.Ref) bool) {
	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.ref) {
				break
			}
		}
	}
}
