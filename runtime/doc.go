// Package runtime is the host binding layer: it owns one interpreter and
// the table of handles given out to Go code.
//
// # Quick Start
//
//	ctx := context.Background()
//	s := slab.New(slab.DefaultCapacity)
//	rt, err := runtime.Open(ctx, s, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	defer rt.Close(ctx)
//
//	v, err := rt.EvalString(ctx, "(map (\\ (x) (* x x)) '(1 2 3))")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Release()
//	out, _ := rt.Sprint(v.Borrow()) // "(1 4 9)"
//
// # Ownership
//
// An *Atom is one owned reference. Release it exactly once, or hand it to
// a consuming operation (Cons, List, Eval's expression, a HostFunc result),
// which empties it. Further use of an emptied Atom reports KindConsumed and
// releasing it again is a no-op. Copies of an Atom value made before a
// release report KindStaleHandle instead of aliasing newer values.
//
// Borrowed is a view for read-only operations (TypeOf, First, Rest, Eval's
// environment). It has no Release method. While Eval runs with an Atom as
// its environment, releasing that Atom fails with KindOutstandingBorrow.
//
// # Teardown
//
// Close pops the I/O frame pushed by Open, reclaims handles the host did
// not release (logged as a warning), finalizes modules and unbinds the
// slab. Closing the slab while a runtime is bound to it fails with
// KindInUse.
package runtime
