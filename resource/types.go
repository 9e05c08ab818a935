package resource

import "github.com/wippyai/rikiki/slab"

// Handle is an opaque, generation-checked reference to a table entry.
// Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(idx, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx+1))
}

func (h Handle) index() uint32 {
	return uint32(h) - 1
}

func (h Handle) gen() uint32 {
	return uint32(h >> 32)
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow-returned"
	}
	return "unknown"
}

// Event represents a handle lifecycle event.
type Event struct {
	Ref    slab.Ref
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism for handles.
type Backend interface {
	// Create stores a reference and returns a handle.
	Create(ref slab.Ref) (Handle, error)

	// Get retrieves the reference behind a handle.
	Get(handle Handle) (slab.Ref, error)

	// Drop removes a handle and returns the reference it held.
	// Fails if the handle is invalid or has outstanding borrows.
	Drop(handle Handle) (slab.Ref, error)

	// Borrow increments the borrow count for a handle.
	Borrow(handle Handle) error

	// ReturnBorrow decrements the borrow count for a handle.
	ReturnBorrow(handle Handle) error

	// Len returns the number of live handles.
	Len() int

	// Each iterates over all live handles.
	Each(func(Handle, slab.Ref) bool)

	// Close invalidates every handle.
	Close() error
}
