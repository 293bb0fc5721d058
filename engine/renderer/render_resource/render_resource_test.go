package render_resource

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotPacking(t *testing.T) {
	s := SlotOf(3, 7)
	assert.Equal(t, uint32(3), s.Group())
	assert.Equal(t, uint32(7), s.Binding())
	assert.Less(t, SlotOf(0, 9), SlotOf(1, 0))
	assert.Equal(t, "@group(3) @binding(7)", s.String())
}

func TestSlotKeepsWideIndicesApart(t *testing.T) {
	wide := SlotOf(0, 0x10000)
	assert.NotEqual(t, SlotOf(1, 0), wide)
	assert.Equal(t, uint32(0x10000), wide.Binding())
	assert.Equal(t, uint32(0), wide.Group())

	top := SlotOf(0xffffffff, 0xffffffff)
	assert.Equal(t, uint32(0xffffffff), top.Group())
	assert.Equal(t, uint32(0xffffffff), top.Binding())
	assert.NotEqual(t, SlotOf(0, 0), SlotOf(0x10000, 0))

	set, err := NewBindingSet(
		ResourceBinding{Slot: SlotOf(0x10000, 0), Handle: 1},
		ResourceBinding{Slot: SlotOf(0, 0), Handle: 2},
		ResourceBinding{Slot: wide, Handle: 3},
	)
	require.NoError(t, err)
	assert.Equal(t, []ResourceHandle{2, 3, 1}, []ResourceHandle{set[0].Handle, set[1].Handle, set[2].Handle})
}

func TestNewBindingSetSortsBySlot(t *testing.T) {
	set, err := NewBindingSet(
		ResourceBinding{Slot: SlotOf(1, 0), Kind: KindSampledTexture, Handle: 3},
		ResourceBinding{Slot: SlotOf(0, 1), Kind: KindUniformBuffer, Handle: 2},
		ResourceBinding{Slot: SlotOf(0, 0), Kind: KindUniformBuffer, Handle: 1},
	)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, ResourceHandle(1), set[0].Handle)
	assert.Equal(t, ResourceHandle(2), set[1].Handle)
	assert.Equal(t, ResourceHandle(3), set[2].Handle)

	groups := GroupBindings(set)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
}

func TestNewBindingSetRejectsDuplicateSlot(t *testing.T) {
	_, err := NewBindingSet(
		ResourceBinding{Slot: SlotOf(0, 0), Kind: KindUniformBuffer, Handle: 1},
		ResourceBinding{Slot: SlotOf(0, 0), Kind: KindStorageBuffer, Handle: 2},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateBindingSlot))

	var dup *DuplicateSlotError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, SlotOf(0, 0), dup.Slot)
}

func TestAssignmentsDuplicateLeavesEntityOut(t *testing.T) {
	a := NewAssignments()
	e := common.Entity{ID: 1}

	require.NoError(t, a.Set(e, ResourceBinding{Slot: SlotOf(0, 0), Handle: 1}))
	_, ok := a.Get(e)
	require.True(t, ok)

	err := a.Set(e,
		ResourceBinding{Slot: SlotOf(0, 0), Handle: 1},
		ResourceBinding{Slot: SlotOf(0, 0), Handle: 2},
	)
	require.ErrorIs(t, err, ErrDuplicateBindingSlot)
	_, ok = a.Get(e)
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())
}

func TestAssignmentsSharedAndClear(t *testing.T) {
	a := NewAssignments()
	require.NoError(t, a.SetShared(PipelineHandle(4), ResourceBinding{Slot: SlotOf(0, 0), Handle: 9}))
	require.NoError(t, a.Set(common.Entity{ID: 2}, ResourceBinding{Slot: SlotOf(1, 0), Handle: 5}))
	require.NoError(t, a.Set(common.Entity{ID: 1}, ResourceBinding{Slot: SlotOf(1, 0), Handle: 6}))

	shared, ok := a.Shared(PipelineHandle(4))
	require.True(t, ok)
	assert.Equal(t, ResourceHandle(9), shared[0].Handle)
	assert.Equal(t, []common.Entity{{ID: 1}, {ID: 2}}, a.Entities())

	a.Clear()
	assert.Equal(t, 0, a.Len())
	_, ok = a.Shared(PipelineHandle(4))
	assert.False(t, ok)
}

func TestWaitingTrackerClearMakesReady(t *testing.T) {
	w := NewEntitiesWaitingForAssets()
	e := common.Entity{ID: 7, Version: 1}
	tex := asset.NewHandle(asset.KindTexture)

	assert.True(t, w.IsReady(e))

	w.MarkWaiting(e, asset.KindTexture, tex)
	w.MarkWaiting(e, asset.KindTexture, tex)
	assert.False(t, w.IsReady(e))
	assert.Len(t, w.Pending(e), 1)
	assert.Equal(t, 1, w.Len())

	w.Clear()
	assert.True(t, w.IsReady(e))
	assert.Nil(t, w.Pending(e))
	assert.Equal(t, 0, w.Len())
}

func TestWaitingTrackerVersionedEntitiesAreDistinct(t *testing.T) {
	w := NewEntitiesWaitingForAssets()
	old := common.Entity{ID: 1, Version: 0}
	recycled := common.Entity{ID: 1, Version: 1}

	w.MarkWaiting(old, asset.KindMesh, asset.NewHandle(asset.KindMesh))
	assert.False(t, w.IsReady(old))
	assert.True(t, w.IsReady(recycled))
	assert.Equal(t, []common.Entity{old}, w.Entities())
}
