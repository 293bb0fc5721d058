package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformResolution(t *testing.T) {
	pipeline := asset.NewHandle(asset.KindPipelineDescriptor)
	m := NewMaterial(pipeline,
		WithBaseColor([4]float32{0.5, 0.25, 1, 1}),
		WithMetallic(0.75),
		WithUniform("tint", []byte{1, 2, 3, 4}),
	)

	data, ok := m.UniformData("tint")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	color, ok := m.UniformData("color")
	require.True(t, ok)
	assert.Len(t, color, 16)
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(color[4:])))

	std, ok := m.UniformData(StandardUniformName)
	require.True(t, ok)
	require.Len(t, std, 32)
	assert.Equal(t, float32(0.75), math.Float32frombits(binary.LittleEndian.Uint32(std[16:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(std[20:])))

	_, ok = m.UniformData("unknown")
	assert.False(t, ok)
}

func TestTexturesAndDependencies(t *testing.T) {
	pipeline := asset.NewHandle(asset.KindPipelineDescriptor)
	albedo := asset.HandleFromPath(asset.KindTexture, "/tex/albedo.png")
	m := NewMaterial(pipeline,
		WithTexture("albedo", albedo),
		WithTexture("detail", albedo),
		WithBinding(render_resource.ResourceBinding{Slot: render_resource.SlotOf(3, 0), Kind: render_resource.KindStorageBuffer, Handle: 9}),
	)

	h, ok := m.Texture("albedo")
	require.True(t, ok)
	assert.Equal(t, albedo, h)
	assert.Equal(t, []asset.Handle{albedo}, m.Textures())
	assert.Equal(t, []asset.Handle{pipeline, albedo}, m.Dependencies())
	assert.Len(t, m.Bindings(), 1)
	assert.Equal(t, pipeline, m.Pipeline())
}
