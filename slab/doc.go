// Package slab provides the fixed-capacity arena backing every runtime atom.
//
// A Slab is an index-based arena: a slice of slots that grows lazily up to a
// fixed capacity, plus a free list of reclaimed indices. Nothing is ever
// compacted or moved.
//
//	s := slab.New(4096)
//	r, err := s.Alloc(slab.Cell{Tag: atom.TagNumber, Number: 42})
//	...
//	s.Release(r)
//
// # References
//
// A Ref packs (generation, index). Each slot's generation advances when the
// slot is freed, so a Ref to a freed cell is reported as KindStaleHandle
// instead of silently reading whatever now lives in that slot.
//
// # Reference counting
//
// Every cell carries a count. Alloc returns a Ref with count one; a pair
// cell owns one count on each child. Release decrements and, at zero, frees
// the cell and releases its children iteratively, so dropping a long list
// costs no stack.
//
// # Ownership
//
// A slab has exactly one owner. The interpreter built on it calls Bind, and
// Close refuses to destroy a bound slab:
//
//	s := slab.New(0)
//	rt, _ := runtime.Open(ctx, s, nil)
//	...
//	rt.Close(ctx) // unbinds
//	s.Close()
package slab
