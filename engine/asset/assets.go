package asset

import (
	"fmt"
	"sync"
)

// Assets is a typed, concurrency-safe collection of assets of one Kind.
// Every mutation queues an Event; consumers drain them once per frame with DrainEvents.
type Assets[T any] struct {
	mu     sync.RWMutex
	kind   Kind
	items  map[Handle]T
	events []Event
}

// NewAssets creates an empty collection for the given kind.
//
// Parameters:
//   - kind: the kind every handle in this collection must carry
//
// Returns:
//   - *Assets[T]: the new collection
func NewAssets[T any](kind Kind) *Assets[T] {
	return &Assets[T]{
		kind:  kind,
		items: make(map[Handle]T),
	}
}

// Kind returns the asset kind stored by this collection.
func (a *Assets[T]) Kind() Kind {
	return a.kind
}

// Add stores value under a fresh handle.
//
// Parameters:
//   - value: the asset to store
//
// Returns:
//   - Handle: the handle the value was stored under
func (a *Assets[T]) Add(value T) Handle {
	h := NewHandle(a.kind)
	a.Set(h, value)
	return h
}

// Set stores value under h, replacing any previous value.
// Emits EventCreated for a new handle and EventModified for a replaced one.
// Panics if h belongs to another kind, since that is a wiring bug and not a runtime condition.
//
// Parameters:
//   - h: the handle to store the value under
//   - value: the asset to store
func (a *Assets[T]) Set(h Handle, value T) {
	if h.Kind != a.kind {
		panic(fmt.Sprintf("asset: %s handle stored in %s collection", h.Kind, a.kind))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	evt := EventCreated
	if _, exists := a.items[h]; exists {
		evt = EventModified
	}
	a.items[h] = value
	a.events = append(a.events, Event{Type: evt, Handle: h})
}

// Get returns the asset stored under h.
//
// Parameters:
//   - h: the handle to look up
//
// Returns:
//   - T: the asset, or the zero value if absent
//   - bool: true if the asset is loaded
func (a *Assets[T]) Get(h Handle) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.items[h]
	return v, ok
}

// IsLoaded reports whether h currently resolves to a value.
func (a *Assets[T]) IsLoaded(h Handle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.items[h]
	return ok
}

// Remove deletes the asset stored under h and emits EventRemoved.
//
// Parameters:
//   - h: the handle to remove
//
// Returns:
//   - bool: true if a value was removed
func (a *Assets[T]) Remove(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.items[h]; !ok {
		return false
	}
	delete(a.items, h)
	a.events = append(a.events, Event{Type: EventRemoved, Handle: h})
	return true
}

// Len returns the number of loaded assets.
func (a *Assets[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// DrainEvents returns every event queued since the previous call, oldest first.
//
// Returns:
//   - []Event: the queued events; nil if nothing changed
func (a *Assets[T]) DrainEvents() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return nil
	}
	out := a.events
	a.events = nil
	return out
}
