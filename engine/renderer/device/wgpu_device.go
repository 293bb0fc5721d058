package device

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
	groups   []*wgpu.BindGroupLayout
	entries  [][]wgpu.BindGroupLayoutEntry
	modules  []*wgpu.ShaderModule
}

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// wgpuDevice is the WebGPU implementation of the Device interface. It owns no surface:
// render targets are offscreen textures created through CreateTexture.
type wgpuDevice struct {
	mu *sync.Mutex

	label                string
	forceFallbackAdapter bool
	maxBindGroups        uint32

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	next       uint64
	pipelines  map[render_resource.PipelineHandle]*wgpuPipeline
	buffers    map[render_resource.ResourceHandle]*wgpuBuffer
	textures   map[render_resource.ResourceHandle]*wgpuTexture
	samplers   map[render_resource.ResourceHandle]*wgpu.Sampler
	bindGroups map[render_resource.BindGroupHandle]*wgpu.BindGroup
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice requests an adapter and device without a surface.
//
// Parameters:
//   - options: a variadic list of WGPUDeviceBuilderOption functions
//
// Returns:
//   - Device: the new device
//   - error: error if no adapter or device could be acquired
func NewWGPUDevice(options ...WGPUDeviceBuilderOption) (Device, error) {
	d := &wgpuDevice{
		mu:            &sync.Mutex{},
		label:         "Render Device",
		maxBindGroups: 8,
		pipelines:     make(map[render_resource.PipelineHandle]*wgpuPipeline),
		buffers:       make(map[render_resource.ResourceHandle]*wgpuBuffer),
		textures:      make(map[render_resource.ResourceHandle]*wgpuTexture),
		samplers:      make(map[render_resource.ResourceHandle]*wgpu.Sampler),
		bindGroups:    make(map[render_resource.BindGroupHandle]*wgpu.BindGroup),
	}
	for _, option := range options {
		option(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = d.maxBindGroups

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	return d, nil
}

func (d *wgpuDevice) nextHandle() uint64 {
	d.next++
	return d.next
}

func (d *wgpuDevice) CreatePipeline(state *PipelineState) (render_resource.PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &wgpuPipeline{}
	ok := false
	defer func() {
		if !ok {
			p.release()
		}
	}()

	vs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          state.Vertex.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: state.Vertex.Source},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create vertex module %s: %w", state.Vertex.Label, err)
	}
	p.modules = append(p.modules, vs)

	var fragment *wgpu.FragmentState
	if state.Fragment != nil {
		fs := vs
		if state.Fragment.Source != state.Vertex.Source {
			fs, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
				Label:          state.Fragment.Label,
				WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: state.Fragment.Source},
			})
			if err != nil {
				return 0, fmt.Errorf("failed to create fragment module %s: %w", state.Fragment.Label, err)
			}
			p.modules = append(p.modules, fs)
		}
		fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: state.Fragment.EntryPoint,
			Targets:    state.ColorTargets,
		}
	}

	for g := range state.BindGroupLayouts {
		desc := state.BindGroupLayouts[g]
		layout, err := d.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return 0, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		p.groups = append(p.groups, layout)
		p.entries = append(p.entries, desc.Entries)
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            state.Label,
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	p.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  state.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: state.Vertex.EntryPoint,
			Buffers:    state.VertexBuffers,
		},
		Fragment:     fragment,
		Primitive:    state.Primitive,
		DepthStencil: state.DepthStencil,
		Multisample: wgpu.MultisampleState{
			Count: common.Coalesce(state.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create render pipeline %s: %w", state.Label, err)
	}

	ok = true
	h := render_resource.PipelineHandle(d.nextHandle())
	d.pipelines[h] = p
	return h, nil
}

func (p *wgpuPipeline) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	for _, g := range p.groups {
		g.Release()
	}
	for _, m := range p.modules {
		m.Release()
	}
}

func (d *wgpuDevice) DestroyPipeline(h render_resource.PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pipelines[h]; ok {
		p.release()
		delete(d.pipelines, h)
	}
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (render_resource.ResourceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if uint64(len(desc.Contents)) > desc.Size {
		return 0, fmt.Errorf("buffer %s: %d bytes of contents exceed size %d", desc.Label, len(desc.Contents), desc.Size)
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create buffer %s: %w", desc.Label, err)
	}
	if len(desc.Contents) > 0 {
		d.queue.WriteBuffer(buf, 0, desc.Contents)
	}

	h := render_resource.ResourceHandle(d.nextHandle())
	d.buffers[h] = &wgpuBuffer{buffer: buf, size: desc.Size}
	return h, nil
}

func (d *wgpuDevice) WriteBuffer(h render_resource.ResourceHandle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("buffer %d: write of %d bytes at %d exceeds size %d", h, len(data), offset, buf.size)
	}
	d.queue.WriteBuffer(buf.buffer, offset, data)
	return nil
}

func (d *wgpuDevice) DestroyBuffer(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[h]; ok {
		buf.buffer.Release()
		delete(d.buffers, h)
	}
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (render_resource.ResourceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	format := common.Coalesce(desc.Format, wgpu.TextureFormatRGBA8UnormSrgb)
	usage := common.Coalesce(desc.Usage, wgpu.TextureUsageTextureBinding)
	if len(desc.Pixels) > 0 {
		usage |= wgpu.TextureUsageCopyDst
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create texture %s: %w", desc.Label, err)
	}

	if len(desc.Pixels) > 0 {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			desc.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&wgpu.Extent3D{
				Width:              desc.Width,
				Height:             desc.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("failed to create view for texture %s: %w", desc.Label, err)
	}

	h := render_resource.ResourceHandle(d.nextHandle())
	d.textures[h] = &wgpuTexture{texture: tex, view: view}
	return h, nil
}

func (d *wgpuDevice) DestroyTexture(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[h]; ok {
		t.view.Release()
		t.texture.Release()
		delete(d.textures, h)
	}
}

func (d *wgpuDevice) CreateSampler(label string, data common.SamplerStagingData) (render_resource.ResourceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
		Compare:       data.Compare,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create sampler %s: %w", label, err)
	}

	h := render_resource.ResourceHandle(d.nextHandle())
	d.samplers[h] = samp
	return h, nil
}

func (d *wgpuDevice) DestroySampler(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.samplers[h]; ok {
		s.Release()
		delete(d.samplers, h)
	}
}

func (d *wgpuDevice) BindResources(p render_resource.PipelineHandle, group uint32, bindings []render_resource.ResourceBinding) (render_resource.BindGroupHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pipe, ok := d.pipelines[p]
	if !ok {
		return 0, fmt.Errorf("pipeline %d: %w", p, ErrUnknownHandle)
	}
	if int(group) >= len(pipe.groups) {
		return 0, fmt.Errorf("pipeline %d has no bind group %d", p, group)
	}
	if len(bindings) != len(pipe.entries[group]) {
		return 0, fmt.Errorf("pipeline %d group %d expects %d bindings, got %d", p, group, len(pipe.entries[group]), len(bindings))
	}

	entries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, b := range bindings {
		entry := wgpu.BindGroupEntry{Binding: b.Slot.Binding()}
		switch b.Kind {
		case render_resource.KindUniformBuffer, render_resource.KindStorageBuffer:
			buf, ok := d.buffers[b.Handle]
			if !ok {
				return 0, fmt.Errorf("%s buffer %d: %w", b.Slot, b.Handle, ErrUnknownHandle)
			}
			entry.Buffer = buf.buffer
			entry.Size = wgpu.WholeSize
		case render_resource.KindSampledTexture:
			tex, ok := d.textures[b.Handle]
			if !ok {
				return 0, fmt.Errorf("%s texture %d: %w", b.Slot, b.Handle, ErrUnknownHandle)
			}
			entry.TextureView = tex.view
		case render_resource.KindSampler:
			samp, ok := d.samplers[b.Handle]
			if !ok {
				return 0, fmt.Errorf("%s sampler %d: %w", b.Slot, b.Handle, ErrUnknownHandle)
			}
			entry.Sampler = samp
		}
		entries[i] = entry
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("pipeline %d group %d", p, group),
		Layout:  pipe.groups[group],
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group: %w", err)
	}

	h := render_resource.BindGroupHandle(d.nextHandle())
	d.bindGroups[h] = bg
	return h, nil
}

func (d *wgpuDevice) ReleaseBindGroup(h render_resource.BindGroupHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bg, ok := d.bindGroups[h]; ok {
		bg.Release()
		delete(d.bindGroups, h)
	}
}

func (d *wgpuDevice) BeginPass(desc PassDescriptor) (Pass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	color, ok := d.textures[desc.ColorTarget]
	if !ok {
		return nil, fmt.Errorf("color target %d: %w", desc.ColorTarget, ErrUnknownHandle)
	}

	rp := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       color.view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: desc.ClearColor,
			},
		},
	}
	if desc.DepthTarget != 0 {
		depth, ok := d.textures[desc.DepthTarget]
		if !ok {
			return nil, fmt.Errorf("depth target %d: %w", desc.DepthTarget, ErrUnknownHandle)
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: common.Coalesce(desc.ClearDepth, 1.0),
		}
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}

	return &wgpuPass{
		device:  d,
		encoder: encoder,
		pass:    encoder.BeginRenderPass(rp),
	}, nil
}

func (d *wgpuDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for h, bg := range d.bindGroups {
		bg.Release()
		delete(d.bindGroups, h)
	}
	for h, p := range d.pipelines {
		p.release()
		delete(d.pipelines, h)
	}
	for h, b := range d.buffers {
		b.buffer.Release()
		delete(d.buffers, h)
	}
	for h, t := range d.textures {
		t.view.Release()
		t.texture.Release()
		delete(d.textures, h)
	}
	for h, s := range d.samplers {
		s.Release()
		delete(d.samplers, h)
	}
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

// wgpuPass records into a single command encoder and submits it on End.
type wgpuPass struct {
	device  *wgpuDevice
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

func (p *wgpuPass) SetPipeline(h render_resource.PipelineHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	pipe, ok := p.device.pipelines[h]
	if !ok {
		return fmt.Errorf("pipeline %d: %w", h, ErrUnknownHandle)
	}
	p.pass.SetPipeline(pipe.pipeline)
	return nil
}

func (p *wgpuPass) SetBindGroup(index uint32, h render_resource.BindGroupHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	bg, ok := p.device.bindGroups[h]
	if !ok {
		return fmt.Errorf("bind group %d: %w", h, ErrUnknownHandle)
	}
	p.pass.SetBindGroup(index, bg, nil)
	return nil
}

func (p *wgpuPass) SetVertexBuffer(slot uint32, h render_resource.ResourceHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	buf, ok := p.device.buffers[h]
	if !ok {
		return fmt.Errorf("vertex buffer %d: %w", h, ErrUnknownHandle)
	}
	p.pass.SetVertexBuffer(slot, buf.buffer, 0, wgpu.WholeSize)
	return nil
}

func (p *wgpuPass) SetIndexBuffer(h render_resource.ResourceHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	buf, ok := p.device.buffers[h]
	if !ok {
		return fmt.Errorf("index buffer %d: %w", h, ErrUnknownHandle)
	}
	p.pass.SetIndexBuffer(buf.buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	return nil
}

func (p *wgpuPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuPass) End() error {
	p.pass.End()

	commandBuffer, err := p.encoder.Finish(nil)
	if err != nil {
		p.encoder.Release()
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}

	p.device.mu.Lock()
	p.device.queue.Submit(commandBuffer)
	p.device.mu.Unlock()

	commandBuffer.Release()
	p.encoder.Release()
	return nil
}
