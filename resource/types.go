package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventRetained
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	}
	return "unknown"
}

// Event represents a lifecycle event.
type Event struct {
	Value    any
	Handle   Handle
	TypeID   uint32
	RefCount uint32
	Type     EventType
}

// Observer receives notifications about lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism.
type Backend interface {
	// Create stores a value with a zero count and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes an entry and returns (value, true) if destructor should be called.
	// Returns (nil, false) if handle is invalid or still referenced.
	Drop(handle Handle) (any, bool)

	// Close releases all entries held by the backend.
	Close() error
}

// CountingBackend extends Backend with reference counting.
type CountingBackend interface {
	Backend

	// Retain increments the count and returns the new value.
	Retain(handle Handle) (uint32, bool)

	// Release decrements the count and returns the new value.
	// Fails without changing anything when the count is already zero.
	Release(handle Handle) (uint32, bool)

	// RefCount returns the current count.
	RefCount(handle Handle) (uint32, bool)
}

// Table manages values with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(typeID uint32, value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Retain increments the handle's count.
	Retain(handle Handle) (uint32, bool)

	// Release decrements the handle's count.
	Release(handle Handle) (uint32, bool)

	// Remove drops an unreferenced entry and returns (value, true) if found.
	Remove(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of live entries.
	Len() int

	// Clear drops all entries regardless of count.
	Clear()

	// Close releases all entries and stops accepting operations.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup.
type Dropper interface {
	Drop()
}
