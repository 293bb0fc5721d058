package pipeline

import (
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"
)

// CompiledPipeline is a template specialized for one vertex layout and created on the device.
// It is owned by the Compiler cache and must be treated as read-only.
type CompiledPipeline struct {
	Handle   render_resource.PipelineHandle
	Template asset.Handle
	Layout   vertex.LayoutID
	Label    string
	// Bindings is the merged binding layout of every stage, sorted by slot.
	Bindings []shader.Binding
	// Groups is the number of bind groups the pipeline layout declares.
	Groups uint32

	shaders []asset.Handle
}

// Binding returns the reflected binding at slot.
//
// Parameters:
//   - slot: the packed group/binding slot
//
// Returns:
//   - shader.Binding: the binding declaration
//   - bool: true if any stage declares the slot
func (p *CompiledPipeline) Binding(slot render_resource.Slot) (shader.Binding, bool) {
	for _, b := range p.Bindings {
		if b.Slot() == slot {
			return b, true
		}
	}
	return shader.Binding{}, false
}

// UsesShader reports whether the pipeline was built from the given shader.
func (p *CompiledPipeline) UsesShader(h asset.Handle) bool {
	for _, s := range p.shaders {
		if s == h {
			return true
		}
	}
	return false
}
