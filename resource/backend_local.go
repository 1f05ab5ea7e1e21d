package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource backend closed")
	ErrOutstandingBorrow = errors.New("cannot drop instance with outstanding borrows")
	ErrUnknownHandle     = errors.New("handle is not live")
	ErrUnknownParent     = errors.New("parent handle is not live")
)

// LocalBackend is an in-memory handle store with borrow tracking.
//
// Handles grow monotonically and are never handed out twice, so a stale
// handle from a released instance can only ever miss; it never aliases a
// newer instance.
type LocalBackend struct {
	entries []entry
	live    int
	mu      sync.RWMutex
	closed  bool
}

type entry struct {
	value       any
	typeID      TypeID
	parent      Handle
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries: make([]entry, 0, 16),
	}
}

// Create stores an owning instance and returns its handle.
func (b *LocalBackend) Create(typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	return b.append(entry{typeID: typeID, value: value, valid: true}), nil
}

// CreateChild stores a non-owning sub-handle that borrows parent until it is
// dropped.
func (b *LocalBackend) CreateChild(parent Handle, typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	p := b.lookup(parent)
	if p == nil {
		return 0, ErrUnknownParent
	}
	p.borrowCount++
	return b.append(entry{typeID: typeID, value: value, parent: parent, valid: true}), nil
}

func (b *LocalBackend) append(e entry) Handle {
	b.entries = append(b.entries, e)
	b.live++
	return Handle(len(b.entries))
}

// lookup returns the live entry for handle. Caller holds mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return TypeInvalid, false
	}
	return e.typeID, true
}

// Parent returns the owning handle of a sub-handle, or 0 for owning instances.
func (b *LocalBackend) Parent(handle Handle) (Handle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.parent, true
}

// Children lists the live sub-handles borrowed from parent.
func (b *LocalBackend) Children(parent Handle) []Handle {
	if parent == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Handle
	for i := int(parent); i < len(b.entries); i++ {
		if e := b.entries[i]; e.valid && e.parent == parent {
			out = append(out, Handle(i+1))
		}
	}
	return out
}

// Owners lists the live owning handles in creation order.
func (b *LocalBackend) Owners() []Handle {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Handle
	for i, e := range b.entries {
		if e.valid && e.parent == 0 {
			out = append(out, Handle(i+1))
		}
	}
	return out
}

// Drop removes an instance and returns its value. It fails for unknown
// handles and for instances that still have outstanding borrows. Dropping a
// sub-handle returns its borrow on the parent.
func (b *LocalBackend) Drop(handle Handle) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	e := b.lookup(handle)
	if e == nil {
		return nil, ErrUnknownHandle
	}
	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}
	if p := b.lookup(e.parent); p != nil && p.borrowCount > 0 {
		p.borrowCount--
	}

	value := e.value
	*e = entry{}
	b.live--
	return value, nil
}

// Close drops every live instance. Owning instances implementing Dropper are
// dropped after their sub-handles are gone.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		e := &b.entries[i]
		if !e.valid || e.parent != 0 {
			continue
		}
		if d, ok := e.value.(Dropper); ok {
			d.Drop()
		}
	}

	b.entries = nil
	b.live = 0
	return nil
}

// Len returns the number of live handles.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all live handles in creation order.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}
