package render_resource

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
)

// PendingAsset records one unresolved asset reference held by an entity.
type PendingAsset struct {
	Entity common.Entity
	Kind   asset.Kind
	Handle asset.Handle
}

// EntitiesWaitingForAssets tracks, for the current frame, which entities reference assets that
// are not loaded yet. It is cleared once per frame before any resolution step reads it and is
// only ever added to between clears.
type EntitiesWaitingForAssets struct {
	mu      sync.RWMutex
	pending map[common.Entity][]PendingAsset
}

// NewEntitiesWaitingForAssets creates an empty tracker.
//
// Returns:
//   - *EntitiesWaitingForAssets: the new tracker
func NewEntitiesWaitingForAssets() *EntitiesWaitingForAssets {
	return &EntitiesWaitingForAssets{
		pending: make(map[common.Entity][]PendingAsset),
	}
}

// MarkWaiting records that entity cannot render this frame because h is not loaded.
// Marking the same asset twice for one entity is a no-op.
//
// Parameters:
//   - entity: the entity holding the reference
//   - kind: the kind of the unresolved asset
//   - h: the unresolved asset handle
func (w *EntitiesWaitingForAssets) MarkWaiting(entity common.Entity, kind asset.Kind, h asset.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.pending[entity] {
		if p.Kind == kind && p.Handle == h {
			return
		}
	}
	w.pending[entity] = append(w.pending[entity], PendingAsset{Entity: entity, Kind: kind, Handle: h})
}

// Clear empties the tracker. Called once at the start of every frame.
func (w *EntitiesWaitingForAssets) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.pending)
}

// IsReady reports whether entity has no unresolved asset references this frame.
func (w *EntitiesWaitingForAssets) IsReady(entity common.Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, waiting := w.pending[entity]
	return !waiting
}

// Pending returns the unresolved references of entity in the order they were marked.
//
// Parameters:
//   - entity: the entity to inspect
//
// Returns:
//   - []PendingAsset: a copy of the entity's pending assets; nil if it is ready
func (w *EntitiesWaitingForAssets) Pending(entity common.Entity) []PendingAsset {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.pending[entity])
}

// Entities returns every waiting entity sorted by id.
func (w *EntitiesWaitingForAssets) Entities() []common.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]common.Entity, 0, len(w.pending))
	for e := range w.pending {
		out = append(out, e)
	}
	slices.SortFunc(out, common.Entity.Compare)
	return out
}

// Len returns the number of waiting entities.
func (w *EntitiesWaitingForAssets) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pending)
}
