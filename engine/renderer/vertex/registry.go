package vertex

import "sync"

// LayoutID is the stable identity of an interned Descriptor. IDs start at 1.
type LayoutID uint32

// Registry interns vertex descriptors. Entries are never removed, so a LayoutID stays valid
// for the lifetime of the registry.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[string]LayoutID
	layouts []Descriptor
}

// NewRegistry creates an empty registry.
//
// Returns:
//   - *Registry: the new registry
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]LayoutID),
	}
}

// Intern returns the id of d, registering a copy of it on first sight.
// Structurally equal descriptors always receive the same id.
//
// Parameters:
//   - d: the descriptor to intern
//
// Returns:
//   - LayoutID: the stable id
func (r *Registry) Intern(d Descriptor) LayoutID {
	key := d.Key()

	r.mu.RLock()
	id, ok := r.byKey[key]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byKey[key]; ok {
		return id
	}

	stored := d
	stored.Attributes = append([]Attribute(nil), d.Attributes...)
	r.layouts = append(r.layouts, stored)
	id = LayoutID(len(r.layouts))
	r.byKey[key] = id
	return id
}

// Get returns the descriptor registered under id.
//
// Parameters:
//   - id: the layout id
//
// Returns:
//   - Descriptor: the registered descriptor
//   - bool: false if id was never issued by this registry
func (r *Registry) Get(id LayoutID) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.layouts) {
		return Descriptor{}, false
	}
	return r.layouts[id-1], true
}

// Len returns the number of distinct layouts interned.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.layouts)
}
