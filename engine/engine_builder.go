package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler uses p instead of a profiler reporting once per second.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the frame rate Run aims for.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.tickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithScene sets the scene the renderer reads.
//
// Parameters:
//   - s: the scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithRenderPlugin configures the renderer the engine creates.
//
// Parameters:
//   - p: the render plugin
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderPlugin(p RenderPlugin) EngineBuilderOption {
	return func(e *engine) {
		e.plugin = p
	}
}

// WithSize sets the initial size of the render targets.
func WithSize(width, height uint32) EngineBuilderOption {
	return func(e *engine) {
		if width > 0 && height > 0 {
			e.width = width
			e.height = height
		}
	}
}

// WithLoaderOptions configures the asset loader the engine creates.
//
// Parameters:
//   - options: loader options, applied in order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoaderOptions(options ...loader.LoaderBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.loaderOptions = append(e.loaderOptions, options...)
	}
}

// WithHotReload makes Run watch loaded asset files and reload them when they change.
func WithHotReload(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.watch = enabled
	}
}

// WithTickCallback registers the function called during the pre_update stage of every frame.
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}
