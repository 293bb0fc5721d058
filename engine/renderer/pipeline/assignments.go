package pipeline

import (
	"cmp"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// Assignments is the per-frame pipeline assignment table: which compiled pipeline each ready
// entity is drawn with. It is rebuilt from scratch every frame.
type Assignments struct {
	mu       sync.RWMutex
	entities map[common.Entity]*CompiledPipeline
}

// Batch is every entity drawn with one pipeline, sorted by entity.
type Batch struct {
	Pipeline *CompiledPipeline
	Entities []common.Entity
}

// NewAssignments creates an empty table.
//
// Returns:
//   - *Assignments: the new table
func NewAssignments() *Assignments {
	return &Assignments{
		entities: make(map[common.Entity]*CompiledPipeline),
	}
}

// Set records the pipeline of entity, replacing any previous entry.
func (a *Assignments) Set(entity common.Entity, p *CompiledPipeline) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entities[entity] = p
}

// Get returns the pipeline recorded for entity.
//
// Parameters:
//   - entity: the entity to look up
//
// Returns:
//   - *CompiledPipeline: the assigned pipeline
//   - bool: true if the entity has an entry this frame
func (a *Assignments) Get(entity common.Entity) (*CompiledPipeline, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.entities[entity]
	return p, ok
}

// Remove drops the entry of entity.
func (a *Assignments) Remove(entity common.Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entities, entity)
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

// Batches groups entities by pipeline so each pipeline is bound once per pass.
// Batches are ordered by pipeline handle.
//
// Returns:
//   - []Batch: one batch per distinct pipeline
func (a *Assignments) Batches() []Batch {
	a.mu.RLock()
	byPipeline := make(map[*CompiledPipeline][]common.Entity)
	for e, p := range a.entities {
		byPipeline[p] = append(byPipeline[p], e)
	}
	a.mu.RUnlock()

	out := make([]Batch, 0, len(byPipeline))
	for p, entities := range byPipeline {
		slices.SortFunc(entities, common.Entity.Compare)
		out = append(out, Batch{Pipeline: p, Entities: entities})
	}
	slices.SortFunc(out, func(x, y Batch) int { return cmp.Compare(x.Pipeline.Handle, y.Pipeline.Handle) })
	return out
}

// Len returns the number of entities with an entry.
func (a *Assignments) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entities)
}

// Clear drops every entry.
func (a *Assignments) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.entities)
}
