package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/singleflight"
)

// DescriptorSource looks up pipeline templates. *asset.Assets[Descriptor] satisfies it.
type DescriptorSource interface {
	Get(h asset.Handle) (Descriptor, bool)
}

// ShaderSource looks up shader assets. *asset.Assets[shader.Shader] satisfies it.
type ShaderSource interface {
	Get(h asset.Handle) (shader.Shader, bool)
}

// Key identifies one cache entry.
type Key struct {
	Template asset.Handle
	Layout   vertex.LayoutID
}

// Stats is a snapshot of the compiler's cache counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Failures uint64
	Live     int
}

// compiler is the implementation of the Compiler interface.
type compiler struct {
	device    device.Device
	templates DescriptorSource
	shaders   ShaderSource
	layouts   *vertex.Registry
	defs      []string

	mu          *sync.Mutex
	cache       map[Key]*CompiledPipeline
	failures    map[Key]error
	generations map[asset.Handle]uint64
	users       map[asset.Handle]map[asset.Handle]struct{}

	flight singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
	failed atomic.Uint64
}

// Compiler specializes pipeline templates for vertex layouts and caches the device pipelines.
// All methods are safe for concurrent use. A key is compiled at most once until it is invalidated.
type Compiler interface {
	// Compile returns the pipeline for (template, layout), creating it on a cache miss.
	// A failed compile is remembered and returned again until the template is invalidated.
	//
	// Parameters:
	//   - template: the pipeline descriptor asset
	//   - layout: the interned vertex layout of the mesh
	//
	// Returns:
	//   - *CompiledPipeline: the shared compiled pipeline
	//   - error: render_resource.ErrAssetNotReady if the template or a shader is not loaded,
	//     ErrInvalidated if the template changed mid-compile, or a *CompilationError
	Compile(template asset.Handle, layout vertex.LayoutID) (*CompiledPipeline, error)

	// Lookup returns a cached pipeline without compiling.
	//
	// Parameters:
	//   - template: the pipeline descriptor asset
	//   - layout: the interned vertex layout
	//
	// Returns:
	//   - *CompiledPipeline: the cached pipeline
	//   - bool: true on a hit
	Lookup(template asset.Handle, layout vertex.LayoutID) (*CompiledPipeline, bool)

	// Invalidate evicts every entry compiled from template and destroys their device pipelines.
	//
	// Parameters:
	//   - template: the pipeline descriptor asset
	//
	// Returns:
	//   - int: the number of evicted pipelines
	Invalidate(template asset.Handle) int

	// InvalidateShader invalidates every template that has been compiled against shader.
	//
	// Parameters:
	//   - shader: the shader asset
	//
	// Returns:
	//   - int: the number of evicted pipelines
	InvalidateShader(shader asset.Handle) int

	// Stats returns the current cache counters.
	//
	// Returns:
	//   - Stats: hits, misses, failures and live entries
	Stats() Stats

	// Close destroys every cached pipeline and empties the cache.
	Close()
}

var _ Compiler = &compiler{}

// NewCompiler creates a new Compiler with all specified options applied.
//
// Parameters:
//   - dev: the device pipelines are created on
//   - templates: the pipeline descriptor store
//   - shaders: the shader store
//   - layouts: the vertex layout registry
//   - options: a variadic list of CompilerBuilderOption functions
//
// Returns:
//   - Compiler: the new compiler
func NewCompiler(dev device.Device, templates DescriptorSource, shaders ShaderSource, layouts *vertex.Registry, options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		device:      dev,
		templates:   templates,
		shaders:     shaders,
		layouts:     layouts,
		mu:          &sync.Mutex{},
		cache:       make(map[Key]*CompiledPipeline),
		failures:    make(map[Key]error),
		generations: make(map[asset.Handle]uint64),
		users:       make(map[asset.Handle]map[asset.Handle]struct{}),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *compiler) Compile(template asset.Handle, layout vertex.LayoutID) (*CompiledPipeline, error) {
	key := Key{Template: template, Layout: layout}

	c.mu.Lock()
	if p, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return p, nil
	}
	if err, ok := c.failures[key]; ok {
		c.mu.Unlock()
		return nil, err
	}
	gen := c.generations[template]
	c.mu.Unlock()

	flightKey := template.ID.String() + "/" + strconv.FormatUint(uint64(layout), 10) + "/" + strconv.FormatUint(gen, 10)
	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		c.mu.Lock()
		if p, ok := c.cache[key]; ok {
			c.mu.Unlock()
			return p, nil
		}
		c.mu.Unlock()
		return c.compile(key, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompiledPipeline), nil
}

// compile builds the pipeline for key and publishes it if the template generation is unchanged.
func (c *compiler) compile(key Key, gen uint64) (*CompiledPipeline, error) {
	desc, ok := c.templates.Get(key.Template)
	if !ok {
		return nil, fmt.Errorf("pipeline template %s: %w", key.Template, render_resource.ErrAssetNotReady)
	}

	shaderHandles := desc.Shaders()
	c.mu.Lock()
	for _, h := range shaderHandles {
		set, ok := c.users[h]
		if !ok {
			set = make(map[asset.Handle]struct{})
			c.users[h] = set
		}
		set[key.Template] = struct{}{}
	}
	c.mu.Unlock()

	state, bindings, err := c.buildState(key, desc)
	if err != nil {
		return nil, c.fail(key, gen, err)
	}

	handle, err := c.device.CreatePipeline(state)
	if err != nil {
		return nil, c.fail(key, gen, &CompilationError{
			Template: key.Template, Label: desc.Label(), Layout: key.Layout,
			Reason: "device rejected pipeline", Err: err,
		})
	}
	c.misses.Add(1)

	p := &CompiledPipeline{
		Handle:   handle,
		Template: key.Template,
		Layout:   key.Layout,
		Label:    state.Label,
		Bindings: bindings,
		Groups:   uint32(len(state.BindGroupLayouts)),
		shaders:  shaderHandles,
	}

	c.mu.Lock()
	if c.generations[key.Template] != gen {
		c.mu.Unlock()
		c.device.DestroyPipeline(handle)
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label(), ErrInvalidated)
	}
	c.cache[key] = p
	c.mu.Unlock()

	common.Logger().Debug("pipeline compiled", "label", p.Label, "layout", key.Layout, "handle", handle)
	return p, nil
}

// fail records a compile failure in the negative cache. Readiness errors are not cached since
// they resolve on their own once the asset loads.
func (c *compiler) fail(key Key, gen uint64, err error) error {
	var ce *CompilationError
	if !errors.As(err, &ce) {
		return err
	}
	c.failed.Add(1)
	c.mu.Lock()
	if c.generations[key.Template] == gen {
		c.failures[key] = err
	}
	c.mu.Unlock()
	return err
}

// buildState merges the template's fixed-function state with the layout and the reflected shaders.
func (c *compiler) buildState(key Key, desc Descriptor) (*device.PipelineState, []shader.Binding, error) {
	compileErr := func(reason string, err error) error {
		return &CompilationError{Template: key.Template, Label: desc.Label(), Layout: key.Layout, Reason: reason, Err: err}
	}

	layout, ok := c.layouts.Get(key.Layout)
	if !ok {
		return nil, nil, compileErr(fmt.Sprintf("vertex layout %d is not registered", key.Layout), nil)
	}

	defs := append(desc.ShaderDefs(), c.defs...)
	vs, err := c.specialize(desc.VertexShader(), defs)
	if err != nil {
		return nil, nil, specializeErr(err, compileErr)
	}
	if vs.VertexEntry == "" {
		return nil, nil, compileErr(fmt.Sprintf("shader %q declares no vertex entry point", vs.Label), nil)
	}

	modules := []*shader.Module{vs}
	state := &device.PipelineState{
		Label: desc.Label() + "/" + strconv.FormatUint(uint64(key.Layout), 10),
		Vertex: device.ShaderStageState{
			Label:      vs.Label,
			Source:     vs.Source,
			EntryPoint: vs.VertexEntry,
		},
		Primitive:    desc.PrimitiveState(),
		DepthStencil: desc.DepthStencilState(),
		SampleCount:  desc.SampleCount(),
	}

	if fragment := desc.FragmentShader(); !fragment.IsNil() {
		fs := vs
		if fragment != desc.VertexShader() {
			if fs, err = c.specialize(fragment, defs); err != nil {
				return nil, nil, specializeErr(err, compileErr)
			}
			modules = append(modules, fs)
		}
		if fs.FragmentEntry == "" {
			return nil, nil, compileErr(fmt.Sprintf("shader %q declares no fragment entry point", fs.Label), nil)
		}
		state.Fragment = &device.ShaderStageState{
			Label:      fs.Label,
			Source:     fs.Source,
			EntryPoint: fs.FragmentEntry,
		}
		state.ColorTargets = desc.ColorTargets()
	}

	vbl, err := matchInputs(vs, layout)
	if err != nil {
		return nil, nil, compileErr("vertex layout does not satisfy shader inputs", err)
	}
	state.VertexBuffers = []wgpu.VertexBufferLayout{vbl}

	bindings, err := mergeBindings(modules)
	if err != nil {
		return nil, nil, compileErr("conflicting resource bindings", err)
	}
	state.BindGroupLayouts = groupLayouts(state.Label, bindings)
	return state, bindings, nil
}

// specialize fetches a shader and specializes it for defs.
func (c *compiler) specialize(h asset.Handle, defs []string) (*shader.Module, error) {
	s, ok := c.shaders.Get(h)
	if !ok {
		return nil, fmt.Errorf("shader %s: %w", h, render_resource.ErrAssetNotReady)
	}
	m, err := s.Specialize(defs...)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.Key(), err)
	}
	return m, nil
}

// specializeErr passes readiness errors through and turns everything else into a compile failure.
func specializeErr(err error, compileErr func(string, error) error) error {
	if errors.Is(err, render_resource.ErrAssetNotReady) {
		return err
	}
	return compileErr("shader specialization failed", err)
}

// matchInputs pairs every vertex input of the shader with the mesh attribute of the same name.
func matchInputs(m *shader.Module, layout vertex.Descriptor) (wgpu.VertexBufferLayout, error) {
	vbl := wgpu.VertexBufferLayout{
		ArrayStride: layout.Stride,
		StepMode:    layout.StepMode,
	}
	for _, in := range m.Inputs {
		attr, ok := layout.Attribute(in.Name)
		if !ok {
			return vbl, fmt.Errorf("input %q at location %d has no mesh attribute", in.Name, in.Location)
		}
		if attr.Format != in.Format {
			return vbl, fmt.Errorf("input %q expects format %v, mesh provides %v", in.Name, in.Format, attr.Format)
		}
		vbl.Attributes = append(vbl.Attributes, wgpu.VertexAttribute{
			Format:         attr.Format,
			Offset:         attr.Offset,
			ShaderLocation: in.Location,
		})
	}
	return vbl, nil
}

// mergeBindings unions the bindings of every stage. A slot declared by several stages must
// agree on kind and type; its visibility becomes the union of the stages.
func mergeBindings(modules []*shader.Module) ([]shader.Binding, error) {
	merged := make(map[render_resource.Slot]shader.Binding)
	for _, m := range modules {
		for _, b := range m.Bindings {
			prev, ok := merged[b.Slot()]
			if !ok {
				merged[b.Slot()] = b
				continue
			}
			if prev.Kind != b.Kind || prev.TypeName != b.TypeName {
				return nil, fmt.Errorf("%s declared as %s %s and %s %s", b.Slot(), prev.Kind, prev.TypeName, b.Kind, b.TypeName)
			}
			prev.Layout.Visibility |= b.Layout.Visibility
			merged[b.Slot()] = prev
		}
	}

	out := make([]shader.Binding, 0, len(merged))
	for _, slot := range common.SortedKeys(merged) {
		out = append(out, merged[slot])
	}
	return out, nil
}

// groupLayouts builds one bind group layout per group up to the highest used group.
func groupLayouts(label string, bindings []shader.Binding) []wgpu.BindGroupLayoutDescriptor {
	if len(bindings) == 0 {
		return nil
	}
	groups := make([]wgpu.BindGroupLayoutDescriptor, bindings[len(bindings)-1].Group+1)
	for i := range groups {
		groups[i].Label = label + "/group" + strconv.Itoa(i)
	}
	for _, b := range bindings {
		groups[b.Group].Entries = append(groups[b.Group].Entries, b.Layout)
	}
	return groups
}

func (c *compiler) Lookup(template asset.Handle, layout vertex.LayoutID) (*CompiledPipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.cache[Key{Template: template, Layout: layout}]
	return p, ok
}

func (c *compiler) Invalidate(template asset.Handle) int {
	c.mu.Lock()
	c.generations[template]++
	var evicted []*CompiledPipeline
	for key, p := range c.cache {
		if key.Template == template {
			evicted = append(evicted, p)
			delete(c.cache, key)
		}
	}
	for key := range c.failures {
		if key.Template == template {
			delete(c.failures, key)
		}
	}
	c.mu.Unlock()

	for _, p := range evicted {
		c.device.DestroyPipeline(p.Handle)
	}
	if len(evicted) > 0 {
		common.Logger().Debug("pipelines invalidated", "template", template, "count", len(evicted))
	}
	return len(evicted)
}

func (c *compiler) InvalidateShader(h asset.Handle) int {
	c.mu.Lock()
	templates := make([]asset.Handle, 0, len(c.users[h]))
	for t := range c.users[h] {
		templates = append(templates, t)
	}
	c.mu.Unlock()

	slices.SortFunc(templates, func(a, b asset.Handle) int { return a.Compare(b) })
	n := 0
	for _, t := range templates {
		n += c.Invalidate(t)
	}
	return n
}

func (c *compiler) Stats() Stats {
	c.mu.Lock()
	live := len(c.cache)
	c.mu.Unlock()
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failed.Load(),
		Live:     live,
	}
}

func (c *compiler) Close() {
	c.mu.Lock()
	evicted := c.cache
	c.cache = make(map[Key]*CompiledPipeline)
	clear(c.failures)
	for t := range c.generations {
		c.generations[t]++
	}
	c.mu.Unlock()

	for _, key := range slices.SortedFunc(maps.Keys(evicted), compareKeys) {
		c.device.DestroyPipeline(evicted[key].Handle)
	}
}

func compareKeys(a, b Key) int {
	if n := a.Template.Compare(b.Template); n != 0 {
		return n
	}
	return cmp.Compare(a.Layout, b.Layout)
}
