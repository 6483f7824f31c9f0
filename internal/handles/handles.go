// Package handles provides a thread-safe table for storing Go values behind
// integer handles.
//
// C code must never hold Go pointers, so values handed across the boundary
// (connections returned from droidusb_open, objects of the in-memory JVM
// used in tests) are registered here and referred to by a uintptr ID.
package handles

import (
	"sync"
)

// Table maps non-zero uintptr handles to Go values. The zero value is ready
// to use.
type Table struct {
	mu     sync.RWMutex
	values map[uintptr]any
	nextID uintptr
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Register stores v and returns its handle. Handles are never reused and
// never zero, so zero can stand for "null" on the other side.
//
// Thread-safe.
func (t *Table) Register(v any) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.values == nil {
		t.values = make(map[uintptr]any)
	}
	t.nextID++
	id := t.nextID
	t.values[id] = v
	return id
}

// Lookup retrieves the value registered under id.
// Returns nil, false if the handle is not registered.
//
// Thread-safe.
func (t *Table) Lookup(id uintptr) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[id]
	return v, ok
}

// Unregister removes a handle and reports whether it was registered.
// Unregistering an unknown handle is not an error; callers that need to
// detect double release check the result.
//
// Thread-safe.
func (t *Table) Unregister(id uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.values[id]; !ok {
		return false
	}
	delete(t.values, id)
	return true
}

// Count returns the number of currently registered handles.
// Useful for testing for leaks.
//
// Thread-safe.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// CountFunc returns the number of registered values for which keep returns
// true.
func (t *Table) CountFunc(keep func(v any) bool) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, v := range t.values {
		if keep(v) {
			n++
		}
	}
	return n
}
