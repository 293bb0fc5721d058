package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformPipeline(t *testing.T, dev *device.NullDevice) render_resource.PipelineHandle {
	t.Helper()
	p, err := dev.CreatePipeline(&device.PipelineState{
		Label:  "test",
		Vertex: device.ShaderStageState{EntryPoint: "vs_main"},
		BindGroupLayouts: []wgpu.BindGroupLayoutDescriptor{{
			Entries: []wgpu.BindGroupLayoutEntry{{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 64},
			}},
		}},
	})
	require.NoError(t, err)
	return p
}

func TestEnsureBufferReusesAndGrows(t *testing.T) {
	dev := device.NewNullDevice()
	p := NewBindGroupProvider("entity")

	first, err := p.EnsureBuffer(dev, "transform", 64)
	require.NoError(t, err)
	again, err := p.EnsureBuffer(dev, "transform", 32)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	grown, err := p.EnsureBuffer(dev, "transform", 128)
	require.NoError(t, err)
	assert.NotEqual(t, first, grown)
	_, ok := dev.BufferContents(first)
	assert.False(t, ok, "the old buffer is destroyed")
	data, ok := dev.BufferContents(grown)
	require.True(t, ok)
	assert.Len(t, data, 128)
	assert.Equal(t, 1, p.Buffers())
}

func TestReleaseDestroysEverything(t *testing.T) {
	dev := device.NewNullDevice()
	p := NewBindGroupProvider("mixed")

	_, err := p.EnsureBuffer(dev, "a", 16)
	require.NoError(t, err)
	_, err = p.EnsureBuffer(dev, "b", 16)
	require.NoError(t, err)
	vb, err := dev.CreateBuffer(device.BufferDescriptor{Size: 12})
	require.NoError(t, err)
	ib, err := dev.CreateBuffer(device.BufferDescriptor{Size: 6})
	require.NoError(t, err)
	p.SetGeometry(vb, ib, 1, 3, 7)
	tex, err := dev.CreateTexture(device.TextureDescriptor{Width: 1, Height: 1})
	require.NoError(t, err)
	smp, err := dev.CreateSampler("s", common.SamplerStagingData{})
	require.NoError(t, err)
	p.SetTexture(tex, smp)

	assert.Equal(t, uint32(3), p.IndexCount())
	assert.EqualValues(t, 7, p.Layout())

	p.Release(dev)
	s := dev.Stats()
	assert.Zero(t, s.LiveBuffers)
	assert.Zero(t, s.LiveTextures)
	assert.Zero(t, s.LiveSamplers)
	assert.Zero(t, p.Buffers())
	assert.Zero(t, p.VertexBuffer())

	// A second release is a no-op.
	p.Release(dev)
}

func TestFlushJoinsErrors(t *testing.T) {
	dev := device.NewNullDevice()
	p := NewBindGroupProvider("entity")
	h, err := p.EnsureBuffer(dev, "color", 16)
	require.NoError(t, err)

	err = Flush(dev, []BufferWrite{
		{Provider: p, Name: "color", Data: []byte{1, 2, 3, 4}},
		{Provider: p, Name: "missing", Data: []byte{1}},
		{Provider: p, Name: "color", Offset: 12, Data: []byte{9, 9, 9, 9, 9}},
		{Provider: p, Name: "color", Offset: 4, Data: []byte{5}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no buffer "missing"`)
	assert.Contains(t, err.Error(), "exceeds size")

	data, _ := dev.BufferContents(h)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data[:5])
}

func TestCacheReusesAndSweeps(t *testing.T) {
	dev := device.NewNullDevice()
	pipe := uniformPipeline(t, dev)
	p := NewBindGroupProvider("entity")
	a, err := p.EnsureBuffer(dev, "a", 64)
	require.NoError(t, err)
	b, err := p.EnsureBuffer(dev, "b", 64)
	require.NoError(t, err)

	c := NewCache(dev)
	bindA := []render_resource.ResourceBinding{{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: a}}
	bindB := []render_resource.ResourceBinding{{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: b}}

	g1, err := c.Get(pipe, 0, bindA)
	require.NoError(t, err)
	g2, err := c.Get(pipe, 0, bindA)
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
	_, err = c.Get(pipe, 0, bindB)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, dev.Stats().BindCalls)

	assert.Zero(t, c.Sweep(), "everything was used this frame")

	_, err = c.Get(pipe, 0, bindA)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, dev.Stats().LiveBindGroups)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, dev.Stats().LiveBindGroups)
}

func TestCachePropagatesDeviceErrors(t *testing.T) {
	dev := device.NewNullDevice()
	pipe := uniformPipeline(t, dev)
	c := NewCache(dev)

	_, err := c.Get(pipe, 0, []render_resource.ResourceBinding{{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: 999}})
	require.ErrorIs(t, err, device.ErrUnknownHandle)
	assert.Zero(t, c.Len())
}
