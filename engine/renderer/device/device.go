// Package device is the boundary between the render core and the GPU. The core only ever talks
// to the Device interface; NewWGPUDevice backs it with a headless WebGPU device and
// NewNullDevice with CPU-side bookkeeping for tests and dry runs.
package device

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnknownHandle is returned when a handle was never issued by the device or was already destroyed.
var ErrUnknownHandle = errors.New("unknown device handle")

// ShaderStageState is one programmable stage of a pipeline.
type ShaderStageState struct {
	Label      string
	Source     string
	EntryPoint string
}

// PipelineState is the fully merged state a device needs to create a render pipeline.
type PipelineState struct {
	Label    string
	Vertex   ShaderStageState
	Fragment *ShaderStageState
	// VertexBuffers holds one layout per vertex buffer slot.
	VertexBuffers []wgpu.VertexBufferLayout
	// BindGroupLayouts is indexed by group. Groups the shaders do not use hold an empty descriptor.
	BindGroupLayouts []wgpu.BindGroupLayoutDescriptor
	Primitive        wgpu.PrimitiveState
	DepthStencil     *wgpu.DepthStencilState
	ColorTargets     []wgpu.ColorTargetState
	SampleCount      uint32
}

// BufferDescriptor describes a buffer to create. Contents, when set, is written after creation
// and must not exceed Size.
type BufferDescriptor struct {
	Label    string
	Size     uint64
	Usage    wgpu.BufferUsage
	Contents []byte
}

// TextureDescriptor describes a 2D texture to create. Pixels, when set, is uploaded as RGBA8.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
	Pixels []byte
}

// PassDescriptor describes the attachments of a render pass. A zero DepthTarget means no depth.
type PassDescriptor struct {
	Label       string
	ColorTarget render_resource.ResourceHandle
	DepthTarget render_resource.ResourceHandle
	ClearColor  wgpu.Color
	ClearDepth  float32
}

// Pass records draw commands. Commands are submitted when End is called.
type Pass interface {
	SetPipeline(p render_resource.PipelineHandle) error
	SetBindGroup(index uint32, bg render_resource.BindGroupHandle) error
	SetVertexBuffer(slot uint32, buf render_resource.ResourceHandle) error
	SetIndexBuffer(buf render_resource.ResourceHandle) error
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End() error
}

// Device creates, binds and releases GPU objects. All methods are safe for concurrent use.
type Device interface {
	// CreatePipeline compiles a render pipeline from fully merged state.
	//
	// Parameters:
	//   - state: the pipeline state
	//
	// Returns:
	//   - render_resource.PipelineHandle: the new pipeline
	//   - error: error if the device rejects the state
	CreatePipeline(state *PipelineState) (render_resource.PipelineHandle, error)

	// DestroyPipeline releases a pipeline and the layouts created with it. Unknown handles are ignored.
	DestroyPipeline(h render_resource.PipelineHandle)

	// CreateBuffer allocates a buffer and uploads desc.Contents if set.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - render_resource.ResourceHandle: the new buffer
	//   - error: error if allocation fails
	CreateBuffer(desc BufferDescriptor) (render_resource.ResourceHandle, error)

	// WriteBuffer uploads data into a buffer at offset.
	//
	// Parameters:
	//   - h: the buffer
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: ErrUnknownHandle, or an error if the write is out of range
	WriteBuffer(h render_resource.ResourceHandle, offset uint64, data []byte) error

	// DestroyBuffer releases a buffer. Unknown handles are ignored.
	DestroyBuffer(h render_resource.ResourceHandle)

	// CreateTexture allocates a 2D texture and its default view.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - render_resource.ResourceHandle: the new texture
	//   - error: error if allocation fails
	CreateTexture(desc TextureDescriptor) (render_resource.ResourceHandle, error)

	// DestroyTexture releases a texture and its view. Unknown handles are ignored.
	DestroyTexture(h render_resource.ResourceHandle)

	// CreateSampler creates a sampler. Zero fields fall back to linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - render_resource.ResourceHandle: the new sampler
	//   - error: error if creation fails
	CreateSampler(label string, data common.SamplerStagingData) (render_resource.ResourceHandle, error)

	// DestroySampler releases a sampler. Unknown handles are ignored.
	DestroySampler(h render_resource.ResourceHandle)

	// BindResources creates a bind group for one group index of a pipeline.
	//
	// Parameters:
	//   - p: the pipeline whose layout the bind group must match
	//   - group: the bind group index
	//   - bindings: the bindings of that group, sorted by slot
	//
	// Returns:
	//   - render_resource.BindGroupHandle: the new bind group
	//   - error: error if a handle is unknown or the bindings do not match the layout
	BindResources(p render_resource.PipelineHandle, group uint32, bindings []render_resource.ResourceBinding) (render_resource.BindGroupHandle, error)

	// ReleaseBindGroup releases a bind group. Unknown handles are ignored.
	ReleaseBindGroup(h render_resource.BindGroupHandle)

	// BeginPass starts a render pass against the given attachments.
	//
	// Parameters:
	//   - desc: the pass descriptor
	//
	// Returns:
	//   - Pass: the pass to record into
	//   - error: error if an attachment is unknown
	BeginPass(desc PassDescriptor) (Pass, error)

	// Close releases every object the device still owns.
	Close()
}
