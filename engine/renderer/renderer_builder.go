package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithBaseGraph installs the built-in passes enabled by cfg. A nil cfg installs nothing,
// which is also the default.
//
// Parameters:
//   - cfg: the base graph configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the base graph option to a renderer
func WithBaseGraph(cfg *render_graph.BaseConfig) RendererBuilderOption {
	return func(r *renderer) {
		if cfg == nil {
			r.baseConfig = nil
			return
		}
		c := *cfg
		r.baseConfig = &c
	}
}

// WithGraph uses g instead of a new empty graph. Nodes already in g are kept.
//
// Parameters:
//   - g: the render graph
//
// Returns:
//   - RendererBuilderOption: a function that applies the graph option to a renderer
func WithGraph(g render_graph.Graph) RendererBuilderOption {
	return func(r *renderer) {
		r.graph = g
	}
}

// WithLayouts shares a vertex layout registry with the renderer.
//
// Parameters:
//   - layouts: the registry
//
// Returns:
//   - RendererBuilderOption: a function that applies the registry option to a renderer
func WithLayouts(layouts *vertex.Registry) RendererBuilderOption {
	return func(r *renderer) {
		r.layouts = layouts
	}
}

// WithSize sets the initial size of the main render targets. The default is 1280x720.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height uint32) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width = width
			r.height = height
		}
	}
}

// WithStaleWaitFrames sets how many consecutive frames an entity may wait on assets before
// a warning is logged. Zero disables the warning.
//
// Parameters:
//   - frames: the number of frames
//
// Returns:
//   - RendererBuilderOption: a function that applies the stale wait option to a renderer
func WithStaleWaitFrames(frames int) RendererBuilderOption {
	return func(r *renderer) {
		r.staleWaitFrames = frames
	}
}

// WithCompilerOptions passes options through to the pipeline compiler.
//
// Parameters:
//   - options: the compiler options
//
// Returns:
//   - RendererBuilderOption: a function that applies the compiler options to a renderer
func WithCompilerOptions(options ...pipeline.CompilerBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.compilerOptions = append(r.compilerOptions, options...)
	}
}
