package resource

import (
	"github.com/wippyai/rikiki/slab"
)

// Table maps boundary handles to slab references and notifies observers
// of lifecycle events.
type Table struct {
	backend   Backend
	observers []Observer
	closed    bool
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return NewTableWithBackend(NewLocalBackend())
}

// NewTableWithBackend creates a table over a custom backend.
func NewTableWithBackend(b Backend) *Table {
	return &Table{backend: b}
}

// Insert adds a reference and returns its handle.
func (t *Table) Insert(ref slab.Ref) (Handle, error) {
	handle, err := t.backend.Create(ref)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Ref:    ref,
	})

	return handle, nil
}

// Get retrieves the reference behind a handle.
func (t *Table) Get(handle Handle) (slab.Ref, error) {
	return t.backend.Get(handle)
}

// Remove drops a handle and returns the reference it held.
// The caller becomes responsible for that reference.
func (t *Table) Remove(handle Handle) (slab.Ref, error) {
	ref, err := t.backend.Drop(handle)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Ref:    ref,
	})

	return ref, nil
}

// Borrow marks a handle as lent out; Remove fails until ReturnBorrow.
func (t *Table) Borrow(handle Handle) (slab.Ref, error) {
	if err := t.backend.Borrow(handle); err != nil {
		return 0, err
	}
	ref, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		Ref:    ref,
	})
	return ref, nil
}

// ReturnBorrow ends a borrow started with Borrow.
func (t *Table) ReturnBorrow(handle Handle) error {
	if err := t.backend.ReturnBorrow(handle); err != nil {
		return err
	}
	ref, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: handle,
		Ref:    ref,
	})
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Drain removes every live handle, passing each held reference to release.
// Borrow counts are ignored. It returns the number of handles drained.
func (t *Table) Drain(release func(slab.Ref)) int {
	// Collect first so the backend is not mutated mid-iteration.
	type held struct {
		handle Handle
		ref    slab.Ref
	}
	var all []held
	t.backend.Each(func(h Handle, r slab.Ref) bool {
		all = append(all, held{h, r})
		return true
	})
	for _, h := range all {
		for {
			if err := t.backend.ReturnBorrow(h.handle); err != nil {
				break
			}
		}
		if _, err := t.Remove(h.handle); err == nil && release != nil {
			release(h.ref)
		}
	}
	return len(all)
}

// Close invalidates every handle and stops accepting inserts.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
