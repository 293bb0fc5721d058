// Package bind_group_provider owns the device resources behind render-world objects and the
// bind groups built from them. A BindGroupProvider holds the buffers, texture, sampler or
// geometry of one mesh, texture or entity; a Cache deduplicates bind groups across frames.
package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"

	"github.com/cogentcore/webgpu/wgpu"
)

type buffer struct {
	handle render_resource.ResourceHandle
	size   uint64
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// buffers holds named buffers, e.g. one per uniform binding of an entity.
	buffers map[string]buffer
	usage   wgpu.BufferUsage

	// texture and sampler back a texture asset.
	texture render_resource.ResourceHandle
	sampler render_resource.ResourceHandle

	// The following fields back a mesh asset.
	vertexBuffer render_resource.ResourceHandle
	indexBuffer  render_resource.ResourceHandle
	vertexCount  uint32
	indexCount   uint32
	layout       vertex.LayoutID
}

// BindGroupProvider holds the device resources created for one render-world object. The Renderer
// creates providers for meshes (geometry), textures (texture + sampler) and entities (named uniform
// buffers) and releases them when the source asset changes or the entity disappears.
//
// Providers are owned by a single render stage and are not safe for concurrent use.
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Buffer returns the named buffer.
	//
	// Parameters:
	//   - name: the buffer name, typically the shader variable it is bound to
	//
	// Returns:
	//   - render_resource.ResourceHandle: the buffer
	//   - bool: true if the buffer exists
	Buffer(name string) (render_resource.ResourceHandle, bool)

	// Buffers returns the number of named buffers.
	Buffers() int

	// EnsureBuffer returns the named buffer, creating it or growing it to at least size bytes.
	// A grown buffer gets a new handle; the old one is destroyed.
	//
	// Parameters:
	//   - dev: the device to allocate on
	//   - name: the buffer name
	//   - size: the minimum size in bytes
	//
	// Returns:
	//   - render_resource.ResourceHandle: the buffer
	//   - error: error if allocation fails
	EnsureBuffer(dev device.Device, name string, size uint64) (render_resource.ResourceHandle, error)

	// Texture returns the texture and sampler of a texture provider.
	//
	// Returns:
	//   - render_resource.ResourceHandle: the texture, zero if unset
	//   - render_resource.ResourceHandle: the sampler, zero if unset
	Texture() (render_resource.ResourceHandle, render_resource.ResourceHandle)

	// SetTexture stores the texture and sampler of a texture provider.
	SetTexture(texture, sampler render_resource.ResourceHandle)

	// VertexBuffer returns the vertex buffer of a mesh provider, zero if unset.
	VertexBuffer() render_resource.ResourceHandle

	// IndexBuffer returns the index buffer of a mesh provider, zero for non-indexed meshes.
	IndexBuffer() render_resource.ResourceHandle

	// VertexCount returns the number of vertices for non-indexed draws.
	VertexCount() uint32

	// IndexCount returns the number of indices for indexed draws.
	IndexCount() uint32

	// Layout returns the interned vertex layout of a mesh provider.
	Layout() vertex.LayoutID

	// SetGeometry stores the uploaded geometry of a mesh provider.
	//
	// Parameters:
	//   - vb: the vertex buffer
	//   - ib: the index buffer, zero if the mesh is not indexed
	//   - vertexCount: the vertex count
	//   - indexCount: the index count
	//   - layout: the interned vertex layout
	SetGeometry(vb, ib render_resource.ResourceHandle, vertexCount, indexCount uint32, layout vertex.LayoutID)

	// Release destroys every device resource held by this provider.
	//
	// Parameters:
	//   - dev: the device the resources were created on
	Release(dev device.Device)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label of the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[string]buffer),
		usage:   wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Buffer(name string) (render_resource.ResourceHandle, bool) {
	b, ok := p.buffers[name]
	return b.handle, ok
}

func (p *bindGroupProvider) Buffers() int {
	return len(p.buffers)
}

func (p *bindGroupProvider) EnsureBuffer(dev device.Device, name string, size uint64) (render_resource.ResourceHandle, error) {
	if b, ok := p.buffers[name]; ok && b.size >= size {
		return b.handle, nil
	}

	h, err := dev.CreateBuffer(device.BufferDescriptor{
		Label: p.label + "/" + name,
		Size:  size,
		Usage: p.usage,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create buffer %q: %w", p.label, name, err)
	}
	if old, ok := p.buffers[name]; ok {
		dev.DestroyBuffer(old.handle)
	}
	p.buffers[name] = buffer{handle: h, size: size}
	return h, nil
}

func (p *bindGroupProvider) Texture() (render_resource.ResourceHandle, render_resource.ResourceHandle) {
	return p.texture, p.sampler
}

func (p *bindGroupProvider) SetTexture(texture, sampler render_resource.ResourceHandle) {
	p.texture = texture
	p.sampler = sampler
}

func (p *bindGroupProvider) VertexBuffer() render_resource.ResourceHandle {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() render_resource.ResourceHandle {
	return p.indexBuffer
}

func (p *bindGroupProvider) VertexCount() uint32 {
	return p.vertexCount
}

func (p *bindGroupProvider) IndexCount() uint32 {
	return p.indexCount
}

func (p *bindGroupProvider) Layout() vertex.LayoutID {
	return p.layout
}

func (p *bindGroupProvider) SetGeometry(vb, ib render_resource.ResourceHandle, vertexCount, indexCount uint32, layout vertex.LayoutID) {
	p.vertexBuffer = vb
	p.indexBuffer = ib
	p.vertexCount = vertexCount
	p.indexCount = indexCount
	p.layout = layout
}

func (p *bindGroupProvider) Release(dev device.Device) {
	for name, b := range p.buffers {
		dev.DestroyBuffer(b.handle)
		delete(p.buffers, name)
	}
	if p.texture != 0 {
		dev.DestroyTexture(p.texture)
		p.texture = 0
	}
	if p.sampler != 0 {
		dev.DestroySampler(p.sampler)
		p.sampler = 0
	}
	if p.vertexBuffer != 0 {
		dev.DestroyBuffer(p.vertexBuffer)
		p.vertexBuffer = 0
	}
	if p.indexBuffer != 0 {
		dev.DestroyBuffer(p.indexBuffer)
		p.indexBuffer = 0
	}
}
