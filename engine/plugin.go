package engine

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_graph"
)

// RenderPlugin configures the renderer an Engine creates.
type RenderPlugin struct {
	// BaseRenderGraphConfig installs the base graph (main color target, main depth texture,
	// camera nodes and the main pass). Nil means no base graph; extensions add every node.
	BaseRenderGraphConfig *render_graph.BaseConfig

	// Options are applied to the renderer after the base graph option.
	Options []renderer.RendererBuilderOption
}

// DefaultRenderPlugin returns a plugin installing the default base graph.
//
// Returns:
//   - RenderPlugin: the plugin
func DefaultRenderPlugin() RenderPlugin {
	cfg := render_graph.DefaultBaseConfig()
	return RenderPlugin{BaseRenderGraphConfig: &cfg}
}
