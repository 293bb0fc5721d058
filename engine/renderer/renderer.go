// Package renderer runs the render core once per frame. ClearWaiting, HandleAssetEvents,
// PrepareResources and Render are the entry points of the pre_update, asset_events,
// render_resource and render stages; the engine calls them in that order.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"
)

// ErrGraphConfiguration is wrapped by Render when the graph cannot be built. It is fatal:
// no node runs until the configuration is fixed.
var ErrGraphConfiguration = errors.New("render graph configuration error")

// DefaultStaleWaitFrames is the number of consecutive frames an entity may wait on assets
// before the renderer logs a warning about it.
const DefaultStaleWaitFrames = 120

// Stats is a snapshot of the renderer's per-frame bookkeeping.
type Stats struct {
	Frame      uint64
	Compiler   pipeline.Stats
	Waiting    int
	Pipelines  int
	Resources  int
	BindGroups int
	Meshes     int
	Textures   int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device   device.Device
	stores   AssetStores
	layouts  *vertex.Registry
	compiler pipeline.Compiler

	waiting   *render_resource.EntitiesWaitingForAssets
	pipelines *pipeline.Assignments
	resources *render_resource.Assignments

	graph      render_graph.Graph
	baseConfig *render_graph.BaseConfig
	bindGroups *bind_group_provider.Cache

	// GPU resources of loaded assets and live entities.
	meshProviders    map[asset.Handle]bind_group_provider.BindGroupProvider
	textureProviders map[asset.Handle]bind_group_provider.BindGroupProvider
	entityProviders  map[common.Entity]bind_group_provider.BindGroupProvider
	cameras          bind_group_provider.BindGroupProvider
	defaultSampler   render_resource.ResourceHandle

	// Per-frame state written by PrepareResources and read by the graph nodes.
	drawables map[common.Entity]bind_group_provider.BindGroupProvider
	views     [2]*View

	// Render targets owned by the base graph nodes.
	colorTarget render_resource.ResourceHandle
	depthTarget render_resource.ResourceHandle

	staleWaitFrames int
	waitFrames      map[common.Entity]int
	compilerOptions []pipeline.CompilerBuilderOption

	width  uint32
	height uint32
	frame  uint64
}

// Renderer is the render core of the engine.
//
// A frame runs ClearWaiting, HandleAssetEvents, PrepareResources and Render in that order.
// PrepareResources rebuilds the pipeline and resource assignment tables from scratch; Render
// executes the render graph, whose nodes draw what the tables hold.
type Renderer interface {
	// ClearWaiting resets the asset readiness tracker. It runs first in every frame.
	ClearWaiting()

	// HandleAssetEvents consumes the change events of every asset store: changed pipeline
	// descriptors and shaders invalidate compiled pipelines, changed meshes and textures drop
	// their uploaded GPU resources.
	HandleAssetEvents()

	// PrepareResources resolves every renderable entity of src. Entities whose assets are not
	// loaded are marked waiting and left out of both tables; failures are logged per entity.
	//
	// Parameters:
	//   - src: the component registry
	PrepareResources(src ComponentSource)

	// BuildGraph validates the render graph and fixes its execution order if nodes were added
	// since the last build. NewRenderer builds once; hosts call it again before a frame's
	// stages run so a broken graph stops the frame before any resource work.
	//
	// Returns:
	//   - error: an error wrapping ErrGraphConfiguration if the graph cannot be built
	BuildGraph() error

	// Render builds the graph if nodes were added and executes one frame.
	//
	// Parameters:
	//   - ctx: cancels the remaining nodes
	//
	// Returns:
	//   - error: an error wrapping ErrGraphConfiguration if the graph cannot be built, or the
	//     joined node errors
	Render(ctx context.Context) error

	// Resize changes the size of the main render targets.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// Size returns the size of the main render targets.
	Size() (uint32, uint32)

	// Graph returns the render graph. Extensions may add nodes at any time.
	Graph() render_graph.Graph

	// Compiler returns the pipeline compiler.
	Compiler() pipeline.Compiler

	// Layouts returns the vertex layout registry.
	Layouts() *vertex.Registry

	// Waiting returns the asset readiness tracker.
	Waiting() *render_resource.EntitiesWaitingForAssets

	// PipelineAssignments returns this frame's entity to pipeline table.
	PipelineAssignments() *pipeline.Assignments

	// ResourceAssignments returns this frame's entity to bindings table.
	ResourceAssignments() *render_resource.Assignments

	// Stores returns the asset stores the renderer reads.
	Stores() AssetStores

	// Device returns the device the renderer draws with.
	Device() device.Device

	// Stats returns a snapshot of the renderer counters.
	Stats() Stats

	// Close releases every GPU resource the renderer created. The device itself is not closed.
	Close()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer drawing with dev and reading assets from stores.
//
// Parameters:
//   - dev: the device to create GPU objects on
//   - stores: the asset stores
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error if the base graph cannot be installed, or one wrapping
//     ErrGraphConfiguration if the graph does not build
func NewRenderer(dev device.Device, stores AssetStores, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		device:           dev,
		stores:           stores,
		waiting:          render_resource.NewEntitiesWaitingForAssets(),
		pipelines:        pipeline.NewAssignments(),
		resources:        render_resource.NewAssignments(),
		bindGroups:       bind_group_provider.NewCache(dev),
		meshProviders:    make(map[asset.Handle]bind_group_provider.BindGroupProvider),
		textureProviders: make(map[asset.Handle]bind_group_provider.BindGroupProvider),
		entityProviders:  make(map[common.Entity]bind_group_provider.BindGroupProvider),
		drawables:        make(map[common.Entity]bind_group_provider.BindGroupProvider),
		waitFrames:       make(map[common.Entity]int),
		staleWaitFrames:  DefaultStaleWaitFrames,
		width:            1280,
		height:           720,
	}
	for _, opt := range options {
		opt(r)
	}

	if r.layouts == nil {
		r.layouts = vertex.NewRegistry()
	}
	if r.graph == nil {
		r.graph = render_graph.NewGraph()
	}
	r.compiler = pipeline.NewCompiler(dev, stores.Pipelines, stores.Shaders, r.layouts, r.compilerOptions...)
	r.cameras = bind_group_provider.NewBindGroupProvider("cameras", bind_group_provider.WithBufferUsage(bufferUsage))

	if r.baseConfig != nil {
		if err := render_graph.AddBaseGraph(r.graph, *r.baseConfig, r.basePasses(*r.baseConfig)); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to add base render graph: %w", err)
		}
	}
	if err := r.buildGraph(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *renderer) BuildGraph() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildGraph()
}

// buildGraph builds the graph if nodes were added since the last build.
// Caller must hold the mutex.
func (r *renderer) buildGraph() error {
	if r.graph.State() != render_graph.GraphConfiguring {
		return nil
	}
	if err := r.graph.Build(); err != nil {
		common.Logger().Error("render graph configuration error", "error", err)
		return fmt.Errorf("%w: %w", ErrGraphConfiguration, err)
	}
	return nil
}

func (r *renderer) ClearWaiting() {
	r.waiting.Clear()
}

func (r *renderer) Render(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.buildGraph(); err != nil {
		return err
	}

	err := r.graph.Execute(ctx, r.frame)
	if released := r.bindGroups.Sweep(); released > 0 {
		common.Logger().Debug("released unused bind groups", "count", released)
	}
	r.frame++
	if err != nil {
		return fmt.Errorf("frame %d: %w", r.frame-1, err)
	}
	return nil
}

func (r *renderer) Resize(width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == 0 || height == 0 || (width == r.width && height == r.height) {
		return
	}
	r.width = width
	r.height = height
	r.releaseTargets()
}

func (r *renderer) Size() (uint32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Graph() render_graph.Graph {
	return r.graph
}

func (r *renderer) Compiler() pipeline.Compiler {
	return r.compiler
}

func (r *renderer) Layouts() *vertex.Registry {
	return r.layouts
}

func (r *renderer) Waiting() *render_resource.EntitiesWaitingForAssets {
	return r.waiting
}

func (r *renderer) PipelineAssignments() *pipeline.Assignments {
	return r.pipelines
}

func (r *renderer) ResourceAssignments() *render_resource.Assignments {
	return r.resources
}

func (r *renderer) Stores() AssetStores {
	return r.stores
}

func (r *renderer) Device() device.Device {
	return r.device
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Frame:      r.frame,
		Compiler:   r.compiler.Stats(),
		Waiting:    r.waiting.Len(),
		Pipelines:  r.pipelines.Len(),
		Resources:  r.resources.Len(),
		BindGroups: r.bindGroups.Len(),
		Meshes:     len(r.meshProviders),
		Textures:   len(r.textureProviders),
	}
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindGroups.Clear()
	for h, p := range r.meshProviders {
		p.Release(r.device)
		delete(r.meshProviders, h)
	}
	for h, p := range r.textureProviders {
		p.Release(r.device)
		delete(r.textureProviders, h)
	}
	for e, p := range r.entityProviders {
		p.Release(r.device)
		delete(r.entityProviders, e)
	}
	if r.cameras != nil {
		r.cameras.Release(r.device)
	}
	if r.defaultSampler != 0 {
		r.device.DestroySampler(r.defaultSampler)
		r.defaultSampler = 0
	}
	r.releaseTargets()
	if r.compiler != nil {
		r.compiler.Close()
	}
	r.pipelines.Clear()
	r.resources.Clear()
	clear(r.drawables)
}

func (r *renderer) releaseTargets() {
	if r.colorTarget != 0 {
		r.device.DestroyTexture(r.colorTarget)
		r.colorTarget = 0
	}
	if r.depthTarget != 0 {
		r.device.DestroyTexture(r.depthTarget)
		r.depthTarget = 0
	}
}
