// Package engine is the host scheduler. It owns the asset stores, the asset loader and the
// renderer, and runs the render stages of every frame in a fixed order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// Stage names one step of a frame.
type Stage string

const (
	// StagePreUpdate clears the asset readiness tracker and advances the scene.
	StagePreUpdate Stage = "pre_update"
	// StageAssetEvents commits finished loads and reacts to asset changes.
	StageAssetEvents Stage = "asset_events"
	// StageRenderResource rebuilds the pipeline and resource assignment tables.
	StageRenderResource Stage = "render_resource"
	// StageRender executes the render graph.
	StageRender Stage = "render"
)

// Stages lists the stages in the order every frame runs them.
var Stages = []Stage{StagePreUpdate, StageAssetEvents, StageRenderResource, StageRender}

// StageError reports the stage a frame failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	device   device.Device
	stores   renderer.AssetStores
	loader   loader.Loader
	renderer renderer.Renderer
	scene    scene.Scene

	plugin        RenderPlugin
	loaderOptions []loader.LoaderBuilderOption
	watch         bool
	width         uint32
	height        uint32

	tickRate        time.Duration
	tickRateChannel chan time.Duration
	tickCallback    func(deltaTime float32)
	lastFrame       time.Time

	profiler         *profiler.Profiler
	profilingEnabled bool

	quitChannel chan struct{}
	quitOnce    sync.Once
	closeOnce   sync.Once
}

// Engine is the main entry point of the render core.
// Every frame runs StagePreUpdate, StageAssetEvents, StageRenderResource and StageRender in
// that order.
type Engine interface {
	// Renderer returns the render core.
	Renderer() renderer.Renderer

	// Loader returns the asset loader feeding the stores.
	Loader() loader.Loader

	// Stores returns the asset stores shared by the loader and the renderer.
	Stores() renderer.AssetStores

	// Scene returns the scene the renderer reads, or nil.
	Scene() scene.Scene

	// SetScene replaces the scene the renderer reads. Takes effect on the next frame.
	//
	// Parameters:
	//   - s: the new scene, or nil to render nothing
	SetScene(s scene.Scene)

	// Resize changes the size of the render targets and the aspect of the scene cameras.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the frame rate Run aims for.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called during StagePreUpdate of every frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// RunFrame runs one frame.
	//
	// Parameters:
	//   - ctx: cancels the render graph
	//
	// Returns:
	//   - error: a *StageError; it wraps renderer.ErrGraphConfiguration when the graph cannot be
	//     built, in which case the frame stopped before StagePreUpdate and no stage ran
	RunFrame(ctx context.Context) error

	// Run calls RunFrame at the tick rate until ctx is done, Quit is called or the render graph
	// configuration fails. Other frame errors are logged and the loop continues. When hot
	// reload is enabled the loader watches the asset files for the duration of the run.
	//
	// Parameters:
	//   - ctx: stops the loop
	//
	// Returns:
	//   - error: nil on cancellation or Quit, otherwise the fatal frame error
	Run(ctx context.Context) error

	// Quit stops Run. Safe to call multiple times.
	Quit()

	// Close stops the loader and releases every GPU resource the renderer created. The device
	// itself is not closed.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine drawing with dev. The asset stores, loader and renderer are
// created here; options configure them.
//
// Parameters:
//   - dev: the device the renderer creates GPU objects on
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the renderer cannot be created; it wraps renderer.ErrGraphConfiguration
//     when the render graph does not build
func NewEngine(dev device.Device, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:              &sync.Mutex{},
		device:          dev,
		stores:          renderer.NewAssetStores(),
		width:           1280,
		height:          720,
		tickRate:        time.Second / 60,
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	e.loader = loader.NewLoader(e.stores, e.loaderOptions...)

	rendererOptions := append([]renderer.RendererBuilderOption{
		renderer.WithSize(e.width, e.height),
		renderer.WithBaseGraph(e.plugin.BaseRenderGraphConfig),
	}, e.plugin.Options...)
	r, err := renderer.NewRenderer(dev, e.stores, rendererOptions...)
	if err != nil {
		e.loader.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	e.renderer = r
	return e, nil
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

func (e *engine) Stores() renderer.AssetStores {
	return e.stores
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = s
}

func (e *engine) Resize(width, height uint32) {
	e.renderer.Resize(width, height)
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the frame rate. If Run is looping, the change takes effect on its next tick.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	e.tickRate = newRate
	e.mu.Unlock()

	// Replace a pending update that the loop has not picked up yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		select {
		case e.tickRateChannel <- newRate:
		default:
		}
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) RunFrame(ctx context.Context) error {
	e.mu.Lock()
	now := time.Now()
	var dt float32
	if !e.lastFrame.IsZero() {
		dt = float32(now.Sub(e.lastFrame).Seconds())
	}
	src := e.scene
	callback := e.tickCallback
	profiling := e.profilingEnabled
	e.mu.Unlock()

	// Nodes added since the last frame are validated before any stage touches the frame.
	if err := e.renderer.BuildGraph(); err != nil {
		return &StageError{Stage: StageRender, Err: err}
	}

	e.mu.Lock()
	e.lastFrame = now
	e.mu.Unlock()

	// pre_update
	e.renderer.ClearWaiting()
	if callback != nil {
		callback(dt)
	}
	if src != nil {
		width, height := e.renderer.Size()
		src.Update(dt, width, height)
	}

	// asset_events
	if n := e.loader.Update(); n > 0 {
		common.Logger().Debug("asset loads committed", "count", n)
	}
	e.renderer.HandleAssetEvents()

	// render_resource
	if src != nil {
		e.renderer.PrepareResources(src)
	} else {
		e.renderer.PrepareResources(emptySource{})
	}

	// render
	if err := e.renderer.Render(ctx); err != nil {
		return &StageError{Stage: StageRender, Err: err}
	}

	if profiling {
		e.profiler.Tick(e.renderer.Stats())
	}
	return nil
}

func (e *engine) Run(ctx context.Context) error {
	e.mu.Lock()
	watch := e.watch
	rate := e.tickRate
	e.mu.Unlock()

	if err := e.renderer.BuildGraph(); err != nil {
		return err
	}

	if watch {
		if err := e.loader.Watch(ctx); err != nil {
			common.Logger().Warn("asset hot reload unavailable", "error", err)
		}
	}

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		case <-ticker.C:
			err := e.RunFrame(ctx)
			switch {
			case err == nil:
			case errors.Is(err, renderer.ErrGraphConfiguration):
				return err
			case ctx.Err() != nil:
				return nil
			default:
				common.Logger().Warn("frame failed", "error", err)
			}
		}
	}
}

// Quit signals Run to return. Safe to call multiple times.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	e.closeOnce.Do(func() {
		e.Quit()
		e.loader.Close()
		e.renderer.Close()
	})
}

// emptySource is read when no scene is set, so the assignment tables are still rebuilt.
type emptySource struct{}

func (emptySource) Renderables() []common.Entity                     { return nil }
func (emptySource) Mesh(common.Entity) (asset.Handle, bool)          { return asset.Handle{}, false }
func (emptySource) Material(common.Entity) (material.Material, bool) { return nil, false }
func (emptySource) Transform(common.Entity) common.Mat4              { return common.Identity4() }
func (emptySource) ActiveCamera() (renderer.View, bool)              { return renderer.View{}, false }
func (emptySource) ActiveCamera2d() (renderer.View, bool)            { return renderer.View{}, false }
