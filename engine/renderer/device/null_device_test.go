package device

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipelineState() *PipelineState {
	return &PipelineState{
		Label:    "test",
		Vertex:   ShaderStageState{Label: "vs", Source: "src", EntryPoint: "vs_main"},
		Fragment: &ShaderStageState{Label: "fs", Source: "src", EntryPoint: "fs_main"},
		BindGroupLayouts: []wgpu.BindGroupLayoutDescriptor{
			{Entries: []wgpu.BindGroupLayoutEntry{
				{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 64}},
			}},
			{Entries: []wgpu.BindGroupLayoutEntry{
				{Binding: 0, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}},
				{Binding: 1, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
			}},
		},
	}
}

func TestNullDevicePipelineLifecycle(t *testing.T) {
	d := NewNullDevice()
	h, err := d.CreatePipeline(testPipelineState())
	require.NoError(t, err)
	assert.NotZero(t, h)

	_, ok := d.Pipeline(h)
	assert.True(t, ok)

	d.DestroyPipeline(h)
	d.DestroyPipeline(h)
	s := d.Stats()
	assert.Equal(t, 1, s.PipelinesCreated)
	assert.Equal(t, 1, s.PipelinesDestroyed)
	assert.Equal(t, 0, s.LivePipelines)
}

func TestNullDevicePipelineValidator(t *testing.T) {
	boom := errors.New("rejected")
	d := NewNullDevice(WithPipelineValidator(func(*PipelineState) error { return boom }))
	_, err := d.CreatePipeline(testPipelineState())
	assert.ErrorIs(t, err, boom)

	state := testPipelineState()
	state.Vertex.EntryPoint = ""
	_, err = NewNullDevice().CreatePipeline(state)
	assert.Error(t, err)
}

func TestNullDeviceBufferWrites(t *testing.T) {
	d := NewNullDevice()
	h, err := d.CreateBuffer(BufferDescriptor{Label: "u", Size: 8, Contents: []byte{1, 2}})
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(h, 4, []byte{9, 9, 9, 9}))
	data, ok := d.BufferContents(h)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 0, 0, 9, 9, 9, 9}, data)

	assert.Error(t, d.WriteBuffer(h, 6, []byte{1, 2, 3}))
	assert.ErrorIs(t, d.WriteBuffer(render_resource.ResourceHandle(999), 0, nil), ErrUnknownHandle)

	_, err = d.CreateBuffer(BufferDescriptor{Size: 1, Contents: []byte{1, 2}})
	assert.Error(t, err)
}

func TestNullDeviceBindResourcesValidatesLayout(t *testing.T) {
	d := NewNullDevice()
	p, err := d.CreatePipeline(testPipelineState())
	require.NoError(t, err)

	ubo, err := d.CreateBuffer(BufferDescriptor{Size: 64})
	require.NoError(t, err)
	small, err := d.CreateBuffer(BufferDescriptor{Size: 16})
	require.NoError(t, err)
	tex, err := d.CreateTexture(TextureDescriptor{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}})
	require.NoError(t, err)
	samp, err := d.CreateSampler("s", common.SamplerStagingData{})
	require.NoError(t, err)

	bg, err := d.BindResources(p, 0, []render_resource.ResourceBinding{
		{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: ubo},
	})
	require.NoError(t, err)
	got, ok := d.BindGroupBindings(bg)
	require.True(t, ok)
	assert.Len(t, got, 1)

	_, err = d.BindResources(p, 0, []render_resource.ResourceBinding{
		{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: small},
	})
	assert.Error(t, err, "buffer below min binding size")

	_, err = d.BindResources(p, 1, []render_resource.ResourceBinding{
		{Slot: render_resource.SlotOf(1, 0), Kind: render_resource.KindSampledTexture, Handle: tex},
		{Slot: render_resource.SlotOf(1, 1), Kind: render_resource.KindSampler, Handle: samp},
	})
	require.NoError(t, err)

	_, err = d.BindResources(p, 1, []render_resource.ResourceBinding{
		{Slot: render_resource.SlotOf(1, 0), Kind: render_resource.KindSampler, Handle: samp},
		{Slot: render_resource.SlotOf(1, 1), Kind: render_resource.KindSampledTexture, Handle: tex},
	})
	assert.Error(t, err, "kinds swapped")

	_, err = d.BindResources(p, 2, nil)
	assert.Error(t, err)
	_, err = d.BindResources(render_resource.PipelineHandle(999), 0, nil)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	assert.Equal(t, 2, d.Stats().BindCalls)
}

func TestNullDeviceRecordsDraws(t *testing.T) {
	d := NewNullDevice()
	p, err := d.CreatePipeline(testPipelineState())
	require.NoError(t, err)
	ubo, _ := d.CreateBuffer(BufferDescriptor{Size: 64})
	vb, _ := d.CreateBuffer(BufferDescriptor{Size: 36})
	ib, _ := d.CreateBuffer(BufferDescriptor{Size: 12})
	target, _ := d.CreateTexture(TextureDescriptor{Width: 4, Height: 4, Usage: wgpu.TextureUsageRenderAttachment})
	bg, err := d.BindResources(p, 0, []render_resource.ResourceBinding{
		{Slot: render_resource.SlotOf(0, 0), Kind: render_resource.KindUniformBuffer, Handle: ubo},
	})
	require.NoError(t, err)

	_, err = d.BeginPass(PassDescriptor{ColorTarget: 12345})
	assert.ErrorIs(t, err, ErrUnknownHandle)

	pass, err := d.BeginPass(PassDescriptor{Label: "main", ColorTarget: target})
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline(p))
	require.NoError(t, pass.SetBindGroup(0, bg))
	assert.Error(t, pass.SetBindGroup(1, bg))
	require.NoError(t, pass.SetVertexBuffer(0, vb))
	require.NoError(t, pass.SetIndexBuffer(ib))
	pass.DrawIndexed(3, 1)

	assert.Empty(t, d.Draws(), "draws land on End")
	require.NoError(t, pass.End())
	assert.Error(t, pass.End())

	draws := d.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, "main", draws[0].Pass)
	assert.Equal(t, p, draws[0].Pipeline)
	assert.Equal(t, bg, draws[0].BindGroups[0])
	assert.Equal(t, ib, draws[0].IndexBuffer)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, uint32(3), draws[0].Count)

	d.ResetDraws()
	assert.Empty(t, d.Draws())
}
