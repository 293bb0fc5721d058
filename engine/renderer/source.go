package renderer

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
)

// AssetStores holds one store per asset kind the render core reads.
type AssetStores struct {
	Meshes    *asset.Assets[*mesh.Mesh]
	Textures  *asset.Assets[*texture.Texture]
	Shaders   *asset.Assets[shader.Shader]
	Pipelines *asset.Assets[pipeline.Descriptor]
}

// NewAssetStores creates an empty store for every asset kind.
//
// Returns:
//   - AssetStores: the stores
func NewAssetStores() AssetStores {
	return AssetStores{
		Meshes:    asset.NewAssets[*mesh.Mesh](asset.KindMesh),
		Textures:  asset.NewAssets[*texture.Texture](asset.KindTexture),
		Shaders:   asset.NewAssets[shader.Shader](asset.KindShader),
		Pipelines: asset.NewAssets[pipeline.Descriptor](asset.KindPipelineDescriptor),
	}
}

// IsLoaded reports whether h resolves in the store of its kind.
func (s AssetStores) IsLoaded(h asset.Handle) bool {
	switch h.Kind {
	case asset.KindMesh:
		return s.Meshes.IsLoaded(h)
	case asset.KindTexture:
		return s.Textures.IsLoaded(h)
	case asset.KindShader:
		return s.Shaders.IsLoaded(h)
	case asset.KindPipelineDescriptor:
		return s.Pipelines.IsLoaded(h)
	default:
		return false
	}
}

// ViewUniformSize is the size of the camera uniform: a mat4x4<f32> view projection followed
// by a vec4<f32> world position.
const ViewUniformSize = 80

// View is what a camera contributes to a frame.
type View struct {
	ViewProjection common.Mat4
	Position       [3]float32
}

// UniformBytes encodes the view as the camera uniform.
//
// Returns:
//   - []byte: ViewUniformSize bytes
func (v View) UniformBytes() []byte {
	buf := make([]byte, ViewUniformSize)
	copy(buf, v.ViewProjection.Bytes())
	for i, f := range v.Position {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(1))
	return buf
}

// ComponentSource is the read-only view of the component registry the renderer scans
// every frame.
type ComponentSource interface {
	// Renderables returns every entity carrying the Renderable marker, sorted by id.
	Renderables() []common.Entity

	// Mesh returns the mesh asset of entity.
	Mesh(entity common.Entity) (asset.Handle, bool)

	// Material returns the material of entity.
	Material(entity common.Entity) (material.Material, bool)

	// Transform returns the model matrix of entity, identity if it has none.
	Transform(entity common.Entity) common.Mat4

	// ActiveCamera returns the view of the active 3D camera.
	ActiveCamera() (View, bool)

	// ActiveCamera2d returns the view of the active 2D camera.
	ActiveCamera2d() (View, bool)
}
