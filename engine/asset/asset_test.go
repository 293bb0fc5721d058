package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleFromPathIsStable(t *testing.T) {
	a := HandleFromPath(KindMesh, "/assets/cube.gltf")
	b := HandleFromPath(KindMesh, "/assets/cube.gltf")
	c := HandleFromPath(KindTexture, "/assets/cube.gltf")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.ID, c.ID)
	assert.False(t, a.IsNil())
	assert.True(t, Handle{}.IsNil())
	assert.Equal(t, 0, a.Compare(b))
	assert.Negative(t, a.Compare(c))
}

func TestHandleFromLabeledPath(t *testing.T) {
	main := HandleFromPath(KindMesh, "/assets/cube.gltf")

	assert.Equal(t, main, HandleFromLabeledPath(KindMesh, "/assets/cube.gltf", ""))
	prim := HandleFromLabeledPath(KindMesh, "/assets/cube.gltf", "Mesh0/Primitive0")
	assert.NotEqual(t, main, prim)
	assert.Equal(t, prim, HandleFromLabeledPath(KindMesh, "/assets/cube.gltf", "Mesh0/Primitive0"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mesh", KindMesh.String())
	assert.Equal(t, "pipeline_descriptor", KindPipelineDescriptor.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestAssetsEvents(t *testing.T) {
	a := NewAssets[string](KindShader)
	h := HandleFromPath(KindShader, "/a.wgsl")

	assert.False(t, a.IsLoaded(h))
	a.Set(h, "v1")
	a.Set(h, "v2")
	assert.True(t, a.Remove(h))
	assert.False(t, a.Remove(h))

	assert.Equal(t, []Event{
		{Type: EventCreated, Handle: h},
		{Type: EventModified, Handle: h},
		{Type: EventRemoved, Handle: h},
	}, a.DrainEvents())
	assert.Nil(t, a.DrainEvents())
}

func TestAssetsAddAndGet(t *testing.T) {
	a := NewAssets[int](KindMesh)
	h := a.Add(42)

	assert.Equal(t, KindMesh, h.Kind)
	v, ok := a.Get(h)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, KindMesh, a.Kind())
}

func TestAssetsRejectsForeignKind(t *testing.T) {
	a := NewAssets[int](KindMesh)
	assert.Panics(t, func() { a.Set(NewHandle(KindTexture), 1) })
}
