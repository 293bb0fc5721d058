// Package render_resource holds the per-frame bookkeeping that sits between assets and the GPU:
// which entities are still waiting on assets, and which resource bindings each entity
// must attach before it can be drawn.
package render_resource

import (
	"cmp"
	"fmt"
	"slices"
)

// ResourceKind classifies a GPU-bindable resource.
type ResourceKind int

const (
	// KindUniformBuffer is a read-only uniform buffer.
	KindUniformBuffer ResourceKind = iota

	// KindStorageBuffer is a read-only storage buffer.
	KindStorageBuffer

	// KindSampledTexture is a texture view sampled in a shader.
	KindSampledTexture

	// KindSampler is a texture sampler.
	KindSampler
)

func (k ResourceKind) String() string {
	switch k {
	case KindUniformBuffer:
		return "uniform_buffer"
	case KindStorageBuffer:
		return "storage_buffer"
	case KindSampledTexture:
		return "sampled_texture"
	case KindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("resource_kind(%d)", int(k))
	}
}

// ResourceHandle identifies a buffer, texture or sampler owned by a device. Zero is never allocated.
type ResourceHandle uint64

// PipelineHandle identifies a compiled pipeline owned by a device. Zero is never allocated.
type PipelineHandle uint64

// BindGroupHandle identifies a bind group owned by a device. Zero is never allocated.
type BindGroupHandle uint64

// Slot addresses one binding position: the bind group index in the high 32 bits and the
// binding index in the low 32 bits, so every WGSL group/binding pair has its own slot.
// Slots sort by group first, then binding.
type Slot uint64

// SlotOf packs a group and binding index into a Slot.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index within the group
//
// Returns:
//   - Slot: the packed slot
func SlotOf(group, binding uint32) Slot {
	return Slot(uint64(group)<<32 | uint64(binding))
}

// Group returns the bind group index of the slot.
func (s Slot) Group() uint32 {
	return uint32(s >> 32)
}

// Binding returns the binding index of the slot within its group.
func (s Slot) Binding() uint32 {
	return uint32(s)
}

func (s Slot) String() string {
	return fmt.Sprintf("@group(%d) @binding(%d)", s.Group(), s.Binding())
}

// ResourceBinding attaches one device resource to one slot.
type ResourceBinding struct {
	Slot   Slot
	Kind   ResourceKind
	Handle ResourceHandle
}

// NewBindingSet validates that every slot appears at most once and returns the bindings
// sorted by slot. The input slice is not modified.
//
// Parameters:
//   - bindings: the candidate bindings
//
// Returns:
//   - []ResourceBinding: a sorted copy of the bindings
//   - error: a *DuplicateSlotError if two bindings target the same slot
func NewBindingSet(bindings ...ResourceBinding) ([]ResourceBinding, error) {
	out := slices.Clone(bindings)
	slices.SortStableFunc(out, func(a, b ResourceBinding) int {
		return cmp.Compare(a.Slot, b.Slot)
	})
	for i := 1; i < len(out); i++ {
		if out[i].Slot == out[i-1].Slot {
			return nil, &DuplicateSlotError{Slot: out[i].Slot, First: out[i-1], Second: out[i]}
		}
	}
	return out, nil
}

// GroupBindings splits a sorted binding set by bind group index.
//
// Parameters:
//   - bindings: bindings sorted by slot, as returned by NewBindingSet
//
// Returns:
//   - map[uint32][]ResourceBinding: bindings keyed by group index, each still sorted
func GroupBindings(bindings []ResourceBinding) map[uint32][]ResourceBinding {
	groups := make(map[uint32][]ResourceBinding)
	for _, b := range bindings {
		g := b.Slot.Group()
		groups[g] = append(groups[g], b)
	}
	return groups
}
