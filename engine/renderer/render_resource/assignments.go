package render_resource

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// Assignments is the per-frame resource assignment table: for each ready entity, and for each
// compiled pipeline, the ordered set of bindings that must be attached before drawing.
// It is rebuilt from scratch every frame.
type Assignments struct {
	mu        sync.RWMutex
	entities  map[common.Entity][]ResourceBinding
	pipelines map[PipelineHandle][]ResourceBinding
}

// NewAssignments creates an empty table.
//
// Returns:
//   - *Assignments: the new table
func NewAssignments() *Assignments {
	return &Assignments{
		entities:  make(map[common.Entity][]ResourceBinding),
		pipelines: make(map[PipelineHandle][]ResourceBinding),
	}
}

// Set validates bindings and records them for entity, replacing any previous set.
// On a duplicate slot nothing is recorded and the entity is left out of the table.
//
// Parameters:
//   - entity: the entity the bindings belong to
//   - bindings: the entity's bindings in any order
//
// Returns:
//   - error: a *DuplicateSlotError if two bindings share a slot
func (a *Assignments) Set(entity common.Entity, bindings ...ResourceBinding) error {
	set, err := NewBindingSet(bindings...)
	if err != nil {
		a.mu.Lock()
		delete(a.entities, entity)
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entities[entity] = set
	return nil
}

// Get returns the bindings recorded for entity, sorted by slot.
//
// Parameters:
//   - entity: the entity to look up
//
// Returns:
//   - []ResourceBinding: the recorded bindings
//   - bool: true if the entity has an entry this frame
func (a *Assignments) Get(entity common.Entity) ([]ResourceBinding, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.entities[entity]
	return b, ok
}

// SetShared validates and records bindings shared by every entity drawn with pipeline.
//
// Parameters:
//   - pipeline: the device pipeline the bindings belong to
//   - bindings: the shared bindings in any order
//
// Returns:
//   - error: a *DuplicateSlotError if two bindings share a slot
func (a *Assignments) SetShared(pipeline PipelineHandle, bindings ...ResourceBinding) error {
	set, err := NewBindingSet(bindings...)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipelines[pipeline] = set
	return nil
}

// Shared returns the bindings recorded for pipeline.
func (a *Assignments) Shared(pipeline PipelineHandle) ([]ResourceBinding, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.pipelines[pipeline]
	return b, ok
}

// Entities returns every entity with an entry, sorted by id.
func (a *Assignments) Entities() []common.Entity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]common.Entity, 0, len(a.entities))
	for e := range a.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, common.Entity.Compare)
	return out
}

// Len returns the number of entities with an entry.
func (a *Assignments) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entities)
}

// Clear drops every entry. Called at the start of each frame's resolution pass.
func (a *Assignments) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.entities)
	clear(a.pipelines)
}
