package shader

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexInput is one @location input consumed by a vertex entry point.
type VertexInput struct {
	// Name is the WGSL parameter or struct field name. Mesh attributes are matched against it.
	Name string
	// Location is the @location index.
	Location uint32
	// Format is the vertex format implied by the WGSL type.
	Format wgpu.VertexFormat
}

// Binding is one @group/@binding resource declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	// Name is the WGSL variable name, used to match material resources.
	Name string
	// TypeName is the declared WGSL type, e.g. "CameraUniform" or "texture_2d<f32>".
	TypeName string
	Kind     render_resource.ResourceKind
	// Size is the minimum binding size of buffer bindings; zero for textures and samplers
	// and for types whose layout could not be resolved.
	Size uint64
	// Layout is the bind group layout entry derived from the declaration.
	Layout wgpu.BindGroupLayoutEntry
}

// Slot returns the packed group/binding slot of the declaration.
func (b Binding) Slot() render_resource.Slot {
	return render_resource.SlotOf(b.Group, b.Binding)
}

// Module is a shader specialized for one set of shader defs: the processed WGSL source plus
// everything reflected from it that pipeline compilation needs.
type Module struct {
	Label         string
	Source        string
	VertexEntry   string
	FragmentEntry string
	Inputs        []VertexInput
	// Bindings are sorted by slot.
	Bindings []Binding
	// SPIRV holds the compiled module when validation is enabled.
	SPIRV []byte
}

// Input returns the vertex input with the given name.
//
// Parameters:
//   - name: the WGSL input name
//
// Returns:
//   - VertexInput: the input
//   - bool: true if the vertex entry point consumes it
func (m *Module) Input(name string) (VertexInput, bool) {
	for _, in := range m.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return VertexInput{}, false
}
