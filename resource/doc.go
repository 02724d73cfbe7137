// Package resource provides reference counted handle tables.
//
// A handle is a small integer that stands in for a Go value held on the other
// side of an API boundary. The engine package uses a table to hand out Refs
// for contexts, values and property ids; the jsruntime package uses one to
// box callback closures so they can travel through the hosting API as a
// single pointer sized word.
//
// # Handle Table
//
// The UnifiedTable maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove and get value
//	value, ok := table.Remove(handle)
//
// # Reference Counts
//
// Entries start with a count of zero. Retain and Release move the count and
// return the new value; Release refuses to go below zero. Remove refuses to
// drop an entry while its count is positive, so owners must release first:
//
//	table.Retain(handle)  // 1
//	table.Remove(handle)  // false, still referenced
//	table.Release(handle) // 0
//	table.Remove(handle)  // true
//
// # Type Safety
//
// Each kind of value gets a type ID chosen by the caller:
//
//	const KindValue = 1
//	const KindContext = 2
//
//	value, ok := table.GetTyped(handle, KindContext) // !ok for a value handle
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer)
//
// Observers see EventCreated, EventRetained, EventReleased and EventDropped.
//
// # Memory Management
//
// Entries are never reclaimed implicitly. The owner decides when a zero
// count entry is dead and calls Remove. Values implementing Dropper have
// Drop called on removal and on Close.
package resource
