package device

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

// DrawRecord is one draw call recorded by a NullDevice pass.
type DrawRecord struct {
	Pass         string
	Pipeline     render_resource.PipelineHandle
	BindGroups   map[uint32]render_resource.BindGroupHandle
	VertexBuffer render_resource.ResourceHandle
	IndexBuffer  render_resource.ResourceHandle
	Count        uint32
	Instances    uint32
	Indexed      bool
}

// NullStats counts what a NullDevice has been asked to do.
type NullStats struct {
	PipelinesCreated   int
	PipelinesDestroyed int
	LivePipelines      int
	LiveBuffers        int
	LiveTextures       int
	LiveSamplers       int
	LiveBindGroups     int
	BindCalls          int
	Passes             int
}

type nullBindGroup struct {
	pipeline render_resource.PipelineHandle
	group    uint32
	bindings []render_resource.ResourceBinding
}

// NullDevice implements Device without a GPU. It allocates handles, validates bindings against
// pipeline layouts the way a real device would, keeps buffer contents and records draws so the
// render core can be exercised and inspected on any machine.
type NullDevice struct {
	mu       *sync.Mutex
	validate func(*PipelineState) error

	next       uint64
	pipelines  map[render_resource.PipelineHandle]*PipelineState
	buffers    map[render_resource.ResourceHandle][]byte
	textures   map[render_resource.ResourceHandle]TextureDescriptor
	samplers   map[render_resource.ResourceHandle]common.SamplerStagingData
	bindGroups map[render_resource.BindGroupHandle]nullBindGroup

	stats NullStats
	draws []DrawRecord
}

var _ Device = &NullDevice{}

// NewNullDevice creates an empty NullDevice.
//
// Parameters:
//   - options: a variadic list of NullDeviceBuilderOption functions
//
// Returns:
//   - *NullDevice: the new device
func NewNullDevice(options ...NullDeviceBuilderOption) *NullDevice {
	d := &NullDevice{
		mu:         &sync.Mutex{},
		pipelines:  make(map[render_resource.PipelineHandle]*PipelineState),
		buffers:    make(map[render_resource.ResourceHandle][]byte),
		textures:   make(map[render_resource.ResourceHandle]TextureDescriptor),
		samplers:   make(map[render_resource.ResourceHandle]common.SamplerStagingData),
		bindGroups: make(map[render_resource.BindGroupHandle]nullBindGroup),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *NullDevice) nextHandle() uint64 {
	d.next++
	return d.next
}

func (d *NullDevice) CreatePipeline(state *PipelineState) (render_resource.PipelineHandle, error) {
	if state.Vertex.EntryPoint == "" {
		return 0, fmt.Errorf("pipeline %s: vertex stage has no entry point", state.Label)
	}
	if state.Fragment != nil && state.Fragment.EntryPoint == "" {
		return 0, fmt.Errorf("pipeline %s: fragment stage has no entry point", state.Label)
	}
	if d.validate != nil {
		if err := d.validate(state); err != nil {
			return 0, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	h := render_resource.PipelineHandle(d.nextHandle())
	d.pipelines[h] = state
	d.stats.PipelinesCreated++
	return h, nil
}

func (d *NullDevice) DestroyPipeline(h render_resource.PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[h]; ok {
		delete(d.pipelines, h)
		d.stats.PipelinesDestroyed++
	}
}

func (d *NullDevice) CreateBuffer(desc BufferDescriptor) (render_resource.ResourceHandle, error) {
	if uint64(len(desc.Contents)) > desc.Size {
		return 0, fmt.Errorf("buffer %s: %d bytes of contents exceed size %d", desc.Label, len(desc.Contents), desc.Size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	data := make([]byte, desc.Size)
	copy(data, desc.Contents)
	h := render_resource.ResourceHandle(d.nextHandle())
	d.buffers[h] = data
	return h, nil
}

func (d *NullDevice) WriteBuffer(h render_resource.ResourceHandle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("buffer %d: write of %d bytes at %d exceeds size %d", h, len(data), offset, len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

func (d *NullDevice) DestroyBuffer(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, h)
}

func (d *NullDevice) CreateTexture(desc TextureDescriptor) (render_resource.ResourceHandle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("texture %s: zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if len(desc.Pixels) > 0 && uint32(len(desc.Pixels)) != desc.Width*desc.Height*4 {
		return 0, fmt.Errorf("texture %s: %d bytes of pixels for %dx%d", desc.Label, len(desc.Pixels), desc.Width, desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	desc.Pixels = nil
	h := render_resource.ResourceHandle(d.nextHandle())
	d.textures[h] = desc
	return h, nil
}

func (d *NullDevice) DestroyTexture(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, h)
}

func (d *NullDevice) CreateSampler(label string, data common.SamplerStagingData) (render_resource.ResourceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := render_resource.ResourceHandle(d.nextHandle())
	d.samplers[h] = data
	return h, nil
}

func (d *NullDevice) DestroySampler(h render_resource.ResourceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.samplers, h)
}

func (d *NullDevice) BindResources(p render_resource.PipelineHandle, group uint32, bindings []render_resource.ResourceBinding) (render_resource.BindGroupHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.pipelines[p]
	if !ok {
		return 0, fmt.Errorf("pipeline %d: %w", p, ErrUnknownHandle)
	}
	if int(group) >= len(state.BindGroupLayouts) {
		return 0, fmt.Errorf("pipeline %d has no bind group %d", p, group)
	}
	entries := state.BindGroupLayouts[group].Entries
	if len(bindings) != len(entries) {
		return 0, fmt.Errorf("pipeline %d group %d expects %d bindings, got %d", p, group, len(entries), len(bindings))
	}

	for _, b := range bindings {
		if b.Slot.Group() != group {
			return 0, fmt.Errorf("binding %s passed for group %d", b.Slot, group)
		}
		idx := slices.IndexFunc(entries, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == b.Slot.Binding() })
		if idx < 0 {
			return 0, fmt.Errorf("pipeline %d has no binding at %s", p, b.Slot)
		}
		if err := d.checkBinding(entries[idx], b); err != nil {
			return 0, fmt.Errorf("pipeline %d: %w", p, err)
		}
	}

	h := render_resource.BindGroupHandle(d.nextHandle())
	d.bindGroups[h] = nullBindGroup{pipeline: p, group: group, bindings: slices.Clone(bindings)}
	d.stats.BindCalls++
	return h, nil
}

// checkBinding verifies that a binding's kind and handle match its layout entry.
func (d *NullDevice) checkBinding(entry wgpu.BindGroupLayoutEntry, b render_resource.ResourceBinding) error {
	var exists bool
	var matches bool
	switch b.Kind {
	case render_resource.KindUniformBuffer:
		_, exists = d.buffers[b.Handle]
		matches = entry.Buffer.Type == wgpu.BufferBindingTypeUniform
	case render_resource.KindStorageBuffer:
		_, exists = d.buffers[b.Handle]
		matches = entry.Buffer.Type == wgpu.BufferBindingTypeStorage || entry.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage
	case render_resource.KindSampledTexture:
		_, exists = d.textures[b.Handle]
		matches = entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
	case render_resource.KindSampler:
		_, exists = d.samplers[b.Handle]
		matches = entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined
	}
	if !exists {
		return fmt.Errorf("%s %s %d: %w", b.Slot, b.Kind, b.Handle, ErrUnknownHandle)
	}
	if !matches {
		return fmt.Errorf("%s: %s does not match the layout entry", b.Slot, b.Kind)
	}
	if size, ok := d.buffers[b.Handle]; ok && entry.Buffer.MinBindingSize > uint64(len(size)) {
		return fmt.Errorf("%s: buffer of %d bytes below minimum binding size %d", b.Slot, len(size), entry.Buffer.MinBindingSize)
	}
	return nil
}

func (d *NullDevice) ReleaseBindGroup(h render_resource.BindGroupHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroups, h)
}

func (d *NullDevice) BeginPass(desc PassDescriptor) (Pass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[desc.ColorTarget]; !ok {
		return nil, fmt.Errorf("color target %d: %w", desc.ColorTarget, ErrUnknownHandle)
	}
	if desc.DepthTarget != 0 {
		if _, ok := d.textures[desc.DepthTarget]; !ok {
			return nil, fmt.Errorf("depth target %d: %w", desc.DepthTarget, ErrUnknownHandle)
		}
	}
	d.stats.Passes++
	return &nullPass{device: d, label: desc.Label, bindGroups: make(map[uint32]render_resource.BindGroupHandle)}, nil
}

func (d *NullDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.pipelines)
	clear(d.buffers)
	clear(d.textures)
	clear(d.samplers)
	clear(d.bindGroups)
}

// Stats returns a snapshot of the device counters.
func (d *NullDevice) Stats() NullStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.LivePipelines = len(d.pipelines)
	s.LiveBuffers = len(d.buffers)
	s.LiveTextures = len(d.textures)
	s.LiveSamplers = len(d.samplers)
	s.LiveBindGroups = len(d.bindGroups)
	return s
}

// Draws returns every draw recorded by ended passes, oldest first.
func (d *NullDevice) Draws() []DrawRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.draws)
}

// ResetDraws forgets recorded draws.
func (d *NullDevice) ResetDraws() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = nil
}

// Pipeline returns the state a pipeline was created with.
func (d *NullDevice) Pipeline(h render_resource.PipelineHandle) (*PipelineState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.pipelines[h]
	return s, ok
}

// BufferContents returns a copy of a buffer's current contents.
func (d *NullDevice) BufferContents(h render_resource.ResourceHandle) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	return slices.Clone(b), ok
}

// Texture returns the descriptor a texture was created with, without pixel data.
func (d *NullDevice) Texture(h render_resource.ResourceHandle) (TextureDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[h]
	return t, ok
}

// BindGroupBindings returns the bindings a bind group was created with.
func (d *NullDevice) BindGroupBindings(h render_resource.BindGroupHandle) ([]render_resource.ResourceBinding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bg, ok := d.bindGroups[h]
	return slices.Clone(bg.bindings), ok
}

type nullPass struct {
	device *NullDevice
	label  string

	pipeline   render_resource.PipelineHandle
	bindGroups map[uint32]render_resource.BindGroupHandle
	vertex     render_resource.ResourceHandle
	index      render_resource.ResourceHandle
	draws      []DrawRecord
	ended      bool
}

func (p *nullPass) SetPipeline(h render_resource.PipelineHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	if _, ok := p.device.pipelines[h]; !ok {
		return fmt.Errorf("pipeline %d: %w", h, ErrUnknownHandle)
	}
	p.pipeline = h
	clear(p.bindGroups)
	return nil
}

func (p *nullPass) SetBindGroup(index uint32, h render_resource.BindGroupHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	bg, ok := p.device.bindGroups[h]
	if !ok {
		return fmt.Errorf("bind group %d: %w", h, ErrUnknownHandle)
	}
	if bg.pipeline != p.pipeline || bg.group != index {
		return fmt.Errorf("bind group %d was created for pipeline %d group %d", h, bg.pipeline, bg.group)
	}
	p.bindGroups[index] = h
	return nil
}

func (p *nullPass) SetVertexBuffer(slot uint32, h render_resource.ResourceHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	if _, ok := p.device.buffers[h]; !ok {
		return fmt.Errorf("vertex buffer %d: %w", h, ErrUnknownHandle)
	}
	p.vertex = h
	return nil
}

func (p *nullPass) SetIndexBuffer(h render_resource.ResourceHandle) error {
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	if _, ok := p.device.buffers[h]; !ok {
		return fmt.Errorf("index buffer %d: %w", h, ErrUnknownHandle)
	}
	p.index = h
	return nil
}

func (p *nullPass) Draw(vertexCount, instanceCount uint32) {
	p.record(vertexCount, instanceCount, false)
}

func (p *nullPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.record(indexCount, instanceCount, true)
}

func (p *nullPass) record(count, instances uint32, indexed bool) {
	rec := DrawRecord{
		Pass:         p.label,
		Pipeline:     p.pipeline,
		BindGroups:   maps.Clone(p.bindGroups),
		VertexBuffer: p.vertex,
		Count:        count,
		Instances:    instances,
		Indexed:      indexed,
	}
	if indexed {
		rec.IndexBuffer = p.index
	}
	p.draws = append(p.draws, rec)
}

func (p *nullPass) End() error {
	if p.ended {
		return fmt.Errorf("pass %s already ended", p.label)
	}
	p.ended = true

	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	p.device.draws = append(p.device.draws, p.draws...)
	return nil
}
