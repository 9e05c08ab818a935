package slab

import (
	"errors"
	"testing"

	"github.com/wippyai/rikiki/atom"
	rerrors "github.com/wippyai/rikiki/errors"
)

func number(t *testing.T, s *Slab, n int64) Ref {
	t.Helper()
	r, err := s.Alloc(Cell{Tag: atom.TagNumber, Number: n})
	if err != nil {
		t.Fatalf("Alloc number: %v", err)
	}
	return r
}

func pair(t *testing.T, s *Slab, first, rest Ref) Ref {
	t.Helper()
	r, err := s.Alloc(Cell{Tag: atom.TagPair, First: first, Rest: rest})
	if err != nil {
		t.Fatalf("Alloc pair: %v", err)
	}
	return r
}

func TestSlab_Basic(t *testing.T) {
	s := New(16)

	r := number(t, s, 42)
	if r.IsZero() {
		t.Fatal("expected non-zero ref")
	}

	c, err := s.Get(r)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.Tag != atom.TagNumber || c.Number != 42 {
		t.Fatalf("unexpected cell %+v", c)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	if err := s.Release(r); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after release, want 0", s.Len())
	}

	_, err = s.Get(r)
	if !errors.Is(err, rerrors.ErrStaleHandle) {
		t.Fatalf("expected stale handle, got %v", err)
	}
}

func TestSlab_OutOfSpace(t *testing.T) {
	s := New(2)
	a := number(t, s, 1)
	number(t, s, 2)

	_, err := s.Alloc(Cell{Tag: atom.TagNil})
	if !errors.Is(err, rerrors.ErrOutOfSpace) {
		t.Fatalf("expected out of space, got %v", err)
	}

	// Freed slots are reused.
	if err := s.Release(a); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Alloc(Cell{Tag: atom.TagNil}); err != nil {
		t.Fatalf("Alloc after free: %v", err)
	}
	if s.Cap() != 2 {
		t.Errorf("Cap = %d, want 2", s.Cap())
	}
}

func TestSlab_PairAllocFailureReleasesChildren(t *testing.T) {
	s := New(2)
	a := number(t, s, 1)
	b := number(t, s, 2)

	_, err := s.Alloc(Cell{Tag: atom.TagPair, First: a, Rest: b})
	if !errors.Is(err, rerrors.ErrOutOfSpace) {
		t.Fatalf("expected out of space, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("children should be released on failure, Len = %d", s.Len())
	}
}

func TestSlab_StaleAfterReuse(t *testing.T) {
	s := New(1)
	old := number(t, s, 1)
	if err := s.Release(old); err != nil {
		t.Fatal(err)
	}
	fresh := number(t, s, 2)
	if old == fresh {
		t.Fatal("reused slot must carry a new generation")
	}
	if old.index() != fresh.index() {
		t.Fatal("expected the slot to be reused")
	}
	if err := s.Retain(old); !errors.Is(err, rerrors.ErrStaleHandle) {
		t.Fatalf("stale retain should fail, got %v", err)
	}
	if err := s.Release(old); !errors.Is(err, rerrors.ErrStaleHandle) {
		t.Fatalf("stale release should fail, got %v", err)
	}
	c, _ := s.Get(fresh)
	if c.Number != 2 {
		t.Fatalf("stale release must not touch the new cell, got %+v", c)
	}
}

func TestSlab_RefCounting(t *testing.T) {
	s := New(16)
	shared := number(t, s, 7)
	if err := s.Retain(shared); err != nil {
		t.Fatal(err)
	}
	p := pair(t, s, shared, 0)

	if n, _ := s.Refs(shared); n != 2 {
		t.Fatalf("refs = %d, want 2", n)
	}

	if err := s.Release(p); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Refs(shared); n != 1 {
		t.Fatalf("refs after pair release = %d, want 1", n)
	}
	if err := s.Release(shared); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestSlab_ReleaseLongList(t *testing.T) {
	const n = 100000
	s := New(2*n + 1)

	list, err := s.Alloc(Cell{Tag: atom.TagNil})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		list = pair(t, s, number(t, s, int64(i)), list)
	}
	if s.Len() != 2*n+1 {
		t.Fatalf("Len = %d, want %d", s.Len(), 2*n+1)
	}
	if err := s.Release(list); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after release, want 0", s.Len())
	}
	if s.Peak() != 2*n+1 {
		t.Errorf("Peak = %d", s.Peak())
	}
}

func TestSlab_ReleaseZeroIsNoop(t *testing.T) {
	s := New(1)
	if err := s.Release(0); err != nil {
		t.Fatalf("Release(0) = %v", err)
	}
}

func TestSlab_ScalarDropsChildRefs(t *testing.T) {
	s := New(4)
	a := number(t, s, 1)
	r, err := s.Alloc(Cell{Tag: atom.TagNumber, Number: 3, First: a})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := s.Get(r)
	if !c.First.IsZero() {
		t.Fatal("non-pair cells must not carry children")
	}
}

func TestSlab_InvalidTag(t *testing.T) {
	s := New(1)
	if _, err := s.Alloc(Cell{Tag: atom.Tag(99)}); err == nil {
		t.Fatal("expected error for invalid tag")
	}
}

func TestSlab_BindAndClose(t *testing.T) {
	s := New(4)
	owner := new(int)

	if err := s.Bind(owner); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Bind(new(int)); !errors.Is(err, rerrors.ErrInUse) {
		t.Fatalf("second Bind should fail with in_use, got %v", err)
	}
	if err := s.Close(); !errors.Is(err, rerrors.ErrInUse) {
		t.Fatalf("Close while bound should fail, got %v", err)
	}

	s.Unbind(new(int))
	if !s.Bound() {
		t.Fatal("Unbind by a stranger must not release ownership")
	}
	s.Unbind(owner)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.Alloc(Cell{Tag: atom.TagNil}); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("Alloc after Close should fail, got %v", err)
	}
}

func TestSlab_DefaultCapacity(t *testing.T) {
	if New(0).Cap() != DefaultCapacity {
		t.Fatal("non-positive capacity should select the default")
	}
}
