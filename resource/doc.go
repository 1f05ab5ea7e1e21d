// Package resource maps opaque integer handles to host-owned instances.
//
// Guests never see Go pointers. Every checker, interactor, reader and writer
// handed across the call boundary is registered in a Table and referred to by
// a Handle. Handle 0 is reserved and always invalid.
//
// # Lifecycle
//
// Owning instances are created with Insert and released with Remove. Components
// of an owning instance (the readers of a checker, the write end of an
// interactor) are exposed as sub-handles created with InsertChild:
//
//	checker := table.Insert(resource.TypeChecker, c)
//	input, err := table.InsertChild(checker, resource.TypeReader, c.Input)
//
// A sub-handle borrows its parent. Removing the parent drops its sub-handles
// first, and a sub-handle cannot be removed on its own.
//
// Handles are allocated monotonically and never reused, so using a handle
// after release fails the lookup instead of reaching an unrelated instance.
//
// # Type Safety
//
// Lookup checks the handle's TypeID and reports misuse as a bridge fault:
//
//	v, err := table.Lookup(h, resource.TypeReader)
//	// errors.KindInvalidHandle for unknown or released handles
//	// errors.KindTypeMismatch for handles of another type
//
// # Observers
//
// Observers receive lifecycle events (created, dropped, borrowed, borrow
// returned). Subscribe returns the function that removes the observer.
//
// Values implementing Dropper have Drop called once when their handle is
// removed or when the table is closed.
package resource
