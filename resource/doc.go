// Package resource provides the boundary handle table of the runtime.
//
// Hosts never see slab references directly. Every atom handed across the
// boundary is an entry in a Table, and the entry's Handle is what the host
// holds. This package implements that table.
//
// # Handle Lifecycle
//
// The boundary protocol has three operations:
//
//	own     - Ownership transfer (caller loses handle)
//	borrow  - Temporary access (handle remains valid)
//	release - Explicit destruction of an owned handle
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a slab reference, get a handle
//	h, err := table.Insert(ref)
//
//	// Read the reference back
//	ref, err := table.Get(h)
//
//	// Remove and take the reference (for ownership transfer or release)
//	ref, err := table.Remove(h)
//
// # Generations
//
// Handles carry the generation of their slot. After Remove the slot's
// generation advances, so a copy of a removed handle reports
// KindStaleHandle even once the slot has been reused.
//
// # Borrows
//
// Borrow raises a handle's borrow count; Remove fails with
// KindOutstandingBorrow until every borrow is returned. The runtime borrows
// the environment handle for the duration of an evaluation.
//
// # Observers
//
// Register observers to track handle lifecycle events:
//
//	table.Subscribe(myObserver)
//
// # Memory Management
//
// Handles are not garbage collected. The holder must release each owned
// handle exactly once. Drain releases whatever is left when the runtime
// closes.
package resource
