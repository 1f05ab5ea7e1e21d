package resource

import (
	"sync"

	"github.com/wippyai/wave-testlib/errors"
)

// Table maps handles to instances with type information and observer support.
type Table struct {
	backend   *LocalBackend
	observers []observerEntry
	nextObsID uint64
	obsMu     sync.RWMutex
}

type observerEntry struct {
	o  Observer
	id uint64
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds an owning instance and returns its handle. It returns 0 once
// the table is closed.
func (t *Table) Insert(typeID TypeID, value any) Handle {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return handle
}

// InsertChild adds a sub-handle for a component owned by parent. The parent
// cannot be removed directly while the child is live; Remove on the parent
// drops its children first.
func (t *Table) InsertChild(parent Handle, typeID TypeID, value any) (Handle, error) {
	handle, err := t.backend.CreateChild(parent, typeID, value)
	if err != nil {
		return 0, errors.New(errors.PhaseBridge, errors.KindInvalidHandle).
			Handle(uint32(parent)).
			Cause(err).
			Detail("cannot derive %s handle", typeID).
			Build()
	}

	t.notify(Event{Type: EventBorrowed, Handle: parent, TypeID: typeID})
	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Parent: parent,
		TypeID: typeID,
		Value:  value,
	})
	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// Lookup retrieves a value of the expected type, or a bridge fault describing
// why the handle cannot be used.
func (t *Table) Lookup(handle Handle, typeID TypeID) (any, error) {
	actual, ok := t.backend.TypeID(handle)
	if !ok {
		return nil, errors.InvalidHandle(uint32(handle), typeID.String())
	}
	if actual != typeID {
		return nil, errors.TypeMismatch(uint32(handle), typeID.String(), actual.String())
	}
	v, _ := t.backend.Get(handle)
	return v, nil
}

// Remove releases an owning instance of the expected type together with all
// sub-handles derived from it, then calls Drop on the value if it is a
// Dropper. Sub-handles cannot be removed on their own.
func (t *Table) Remove(handle Handle, typeID TypeID) (any, error) {
	if _, err := t.Lookup(handle, typeID); err != nil {
		return nil, err
	}
	if parent, _ := t.backend.Parent(handle); parent != 0 {
		return nil, errors.New(errors.PhaseBridge, errors.KindInvalidHandle).
			Handle(uint32(handle)).
			Detail("sub-handle of %d cannot be released on its own", parent).
			Build()
	}

	for _, child := range t.backend.Children(handle) {
		childType, _ := t.backend.TypeID(child)
		value, err := t.backend.Drop(child)
		if err != nil {
			continue
		}
		t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeID: childType})
		t.notify(Event{
			Type:   EventDropped,
			Handle: child,
			Parent: handle,
			TypeID: childType,
			Value:  value,
		})
	}

	value, err := t.backend.Drop(handle)
	if err != nil {
		return nil, errors.New(errors.PhaseBridge, errors.KindInvalidHandle).
			Handle(uint32(handle)).
			Cause(err).
			Detail("release %s", typeID).
			Build()
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, nil
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	t.nextObsID++
	id := t.nextObsID
	t.observers = append(t.observers, observerEntry{o: o, id: id})

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, e := range t.observers {
			if e.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of live handles, sub-handles included.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Clear releases every owning instance.
func (t *Table) Clear() {
	for _, h := range t.backend.Owners() {
		if typeID, ok := t.backend.TypeID(h); ok {
			_, _ = t.Remove(h, typeID)
		}
	}
}

// Close releases all instances and stops accepting new ones.
func (t *Table) Close() error {
	return t.backend.Close()
}

// Each calls fn for every live handle in creation order until fn returns false.
func (t *Table) Each(fn func(Handle, TypeID, any) bool) {
	t.backend.Each(fn)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, entry := range t.observers {
		entry.o.OnResourceEvent(e)
	}
}
