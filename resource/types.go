package resource

// Handle is an opaque reference to an instance in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// TypeID identifies what kind of instance a handle refers to.
type TypeID uint32

const (
	TypeInvalid TypeID = iota
	TypeChecker
	TypeInteractor
	TypeReader
	TypeWriter
)

func (t TypeID) String() string {
	switch t {
	case TypeChecker:
		return "checker"
	case TypeInteractor:
		return "interactor"
	case TypeReader:
		return "reader"
	case TypeWriter:
		return "writer"
	default:
		return "invalid"
	}
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	default:
		return "borrow_returned"
	}
}

// Event represents a handle lifecycle event. Parent is set for sub-handles.
type Event struct {
	Value  any
	Handle Handle
	Parent Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by owning instances that hold files or
// other resources. Drop is called once when the handle is removed.
type Dropper interface {
	Drop()
}
