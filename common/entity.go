package common

import (
	"cmp"
	"fmt"
)

// Entity is an opaque identifier handed out by the host component registry.
// The render core never owns entities; it only associates per-frame data with them.
// Two entities are the same only if both ID and Version match, so a recycled ID
// never aliases data recorded for its previous owner.
type Entity struct {
	// ID is the slot index of the entity in the owning registry.
	ID uint32
	// Version is bumped every time the slot is recycled.
	Version uint32
}

// String formats the entity as "id:version" for logs.
func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.ID, e.Version)
}

// Compare orders entities by ID then Version, for use with slices.SortFunc.
// Used wherever per-frame iteration must be deterministic.
//
// Parameters:
//   - other: the entity to compare against
//
// Returns:
//   - int: negative if e sorts first, zero if equal, positive otherwise
func (e Entity) Compare(other Entity) int {
	if c := cmp.Compare(e.ID, other.ID); c != 0 {
		return c
	}
	return cmp.Compare(e.Version, other.Version)
}
