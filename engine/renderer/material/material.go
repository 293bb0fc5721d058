// Package material describes how an entity is shaded: which pipeline template to draw with and
// which uniforms, textures and explicit resources its shader bindings resolve to.
package material

import (
	"encoding/binary"
	"maps"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
)

// StandardUniformName is the shader variable name that receives StandardUniform data.
const StandardUniformName = "material"

// material is the implementation of the Material interface.
type material struct {
	name      string
	pipeline  asset.Handle
	baseColor [4]float32
	metallic  float32
	roughness float32
	uniforms  map[string][]byte
	textures  map[string]asset.Handle
	bindings  []render_resource.ResourceBinding
}

// Material defines the interface for a render material. A Material is immutable once built;
// replace the component to change it.
//
// Shader bindings are resolved against a material by variable name: a uniform buffer binding
// takes the bytes of the uniform with the same name, a texture binding the texture with the same
// name, and a sampler binding the sampler of the texture it is named after.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Pipeline retrieves the pipeline descriptor asset this material is drawn with.
	//
	// Returns:
	//   - asset.Handle: the pipeline descriptor handle
	Pipeline() asset.Handle

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// UniformData returns the bytes for the uniform buffer binding called name. Explicit uniforms
	// win; otherwise "material" resolves to StandardUniform and "color" or "base_color" to the
	// base color as a vec4<f32>.
	//
	// Parameters:
	//   - name: the shader variable name
	//
	// Returns:
	//   - []byte: the uniform contents
	//   - bool: true if the material provides the uniform
	UniformData(name string) ([]byte, bool)

	// StandardUniform encodes base color, metallic and roughness as a 32-byte std140 struct.
	//
	// Returns:
	//   - []byte: the encoded uniform
	StandardUniform() []byte

	// Texture returns the texture asset bound to the shader variable called name.
	//
	// Parameters:
	//   - name: the shader variable name
	//
	// Returns:
	//   - asset.Handle: the texture handle
	//   - bool: true if the material provides the texture
	Texture(name string) (asset.Handle, bool)

	// Textures returns every texture handle of the material, sorted.
	//
	// Returns:
	//   - []asset.Handle: the texture handles
	Textures() []asset.Handle

	// Bindings returns the explicit bindings of the material. They are appended to the resolved
	// bindings as-is, so a slot collision with a resolved binding is reported as a duplicate.
	//
	// Returns:
	//   - []render_resource.ResourceBinding: the explicit bindings
	Bindings() []render_resource.ResourceBinding

	// Dependencies returns every asset the material needs loaded before it can be drawn.
	//
	// Returns:
	//   - []asset.Handle: the pipeline handle followed by the texture handles
	Dependencies() []asset.Handle
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - pipeline: the pipeline descriptor asset the material is drawn with
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(pipeline asset.Handle, options ...MaterialBuilderOption) Material {
	m := &material{
		pipeline:  pipeline,
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		uniforms:  make(map[string][]byte),
		textures:  make(map[string]asset.Handle),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Pipeline() asset.Handle {
	return m.pipeline
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) UniformData(name string) ([]byte, bool) {
	if data, ok := m.uniforms[name]; ok {
		return data, true
	}
	switch name {
	case StandardUniformName:
		return m.StandardUniform(), true
	case "color", "base_color":
		return putFloats(make([]byte, 16), m.baseColor[:]...), true
	}
	return nil, false
}

func (m *material) StandardUniform() []byte {
	buf := make([]byte, 32)
	putFloats(buf, m.baseColor[:]...)
	putFloats(buf[16:], m.metallic, m.roughness)
	return buf
}

func (m *material) Texture(name string) (asset.Handle, bool) {
	h, ok := m.textures[name]
	return h, ok
}

func (m *material) Textures() []asset.Handle {
	out := slices.Collect(maps.Values(m.textures))
	slices.SortFunc(out, asset.Handle.Compare)
	return slices.Compact(out)
}

func (m *material) Bindings() []render_resource.ResourceBinding {
	return slices.Clone(m.bindings)
}

func (m *material) Dependencies() []asset.Handle {
	return append([]asset.Handle{m.pipeline}, m.Textures()...)
}

func putFloats(buf []byte, values ...float32) []byte {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
