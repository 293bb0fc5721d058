package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo/diffuse RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithUniform is an option builder that provides the contents of a uniform buffer binding.
//
// Parameters:
//   - name: the shader variable name of the binding
//   - data: the buffer contents; must match the declared struct size
//
// Returns:
//   - MaterialBuilderOption: a function that applies the uniform option to a material
func WithUniform(name string, data []byte) MaterialBuilderOption {
	return func(m *material) {
		m.uniforms[name] = append([]byte(nil), data...)
	}
}

// WithTexture is an option builder that binds a texture asset to a shader texture variable.
// A sampler variable named "<name>_sampler" or "<name>Sampler" receives the texture's sampler.
//
// Parameters:
//   - name: the shader variable name of the texture binding
//   - texture: the texture asset
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(name string, texture asset.Handle) MaterialBuilderOption {
	return func(m *material) {
		m.textures[name] = texture
	}
}

// WithBinding is an option builder that adds an explicit resource binding.
//
// Parameters:
//   - binding: the binding to attach as-is
//
// Returns:
//   - MaterialBuilderOption: a function that applies the binding option to a material
func WithBinding(binding render_resource.ResourceBinding) MaterialBuilderOption {
	return func(m *material) {
		m.bindings = append(m.bindings, binding)
	}
}
