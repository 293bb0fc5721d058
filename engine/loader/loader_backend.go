package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-render/engine/texture"
)

// loadedAsset is one value produced by a backend, ready to be committed to its store.
type loadedAsset struct {
	handle asset.Handle
	value  any
}

// loadResult is everything one file produced: its assets (main asset first) and the
// absolute paths of files it references, which are loaded next.
type loadResult struct {
	assets []loadedAsset
	deps   []string
}

// loaderBackend decodes one file format into assets. Backends run on worker goroutines and
// must not touch the asset stores.
type loaderBackend interface {
	// Kind returns the kind of the file's main asset.
	Kind() asset.Kind

	// Extensions lists the lower-case suffixes the backend handles, dot included.
	Extensions() []string

	// Load decodes data read from path.
	//
	// Parameters:
	//   - path: the absolute, cleaned source path
	//   - data: the file contents
	//
	// Returns:
	//   - loadResult: the decoded assets and referenced files
	//   - error: error if the file cannot be decoded
	Load(path string, data []byte) (loadResult, error)
}

// resolveBackend selects the backend whose extension is the longest suffix of path, so
// "lit.pipeline.yaml" is a pipeline descriptor and not a generic YAML file.
func resolveBackend(backends []loaderBackend, path string) (loaderBackend, error) {
	lower := strings.ToLower(filepath.Base(path))
	var best loaderBackend
	bestLen := 0
	for _, b := range backends {
		for _, ext := range b.Extensions() {
			if strings.HasSuffix(lower, ext) && len(ext) > bestLen {
				best, bestLen = b, len(ext)
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return best, nil
}

// shaderLoaderBackend loads WGSL shaders. With validation on, the default specialization is
// compiled to SPIR-V at load time so broken shaders fail here instead of at first use.
type shaderLoaderBackend struct {
	validate bool
}

func (b *shaderLoaderBackend) Kind() asset.Kind     { return asset.KindShader }
func (b *shaderLoaderBackend) Extensions() []string { return []string{".wgsl"} }

func (b *shaderLoaderBackend) Load(path string, data []byte) (loadResult, error) {
	s, err := shader.NewShader(path, string(data), shader.WithValidation(b.validate))
	if err != nil {
		return loadResult{}, err
	}
	if b.validate {
		if _, err := s.Specialize(); err != nil {
			return loadResult{}, err
		}
	}
	return loadResult{assets: []loadedAsset{{handle: asset.HandleFromPath(asset.KindShader, path), value: s}}}, nil
}

// pipelineLoaderBackend loads YAML pipeline descriptors. Shader paths are relative to the
// descriptor file and are scheduled as dependencies.
type pipelineLoaderBackend struct{}

func (b *pipelineLoaderBackend) Kind() asset.Kind { return asset.KindPipelineDescriptor }
func (b *pipelineLoaderBackend) Extensions() []string {
	return []string{".pipeline.yaml", ".pipeline.yml"}
}

func (b *pipelineLoaderBackend) Load(path string, data []byte) (loadResult, error) {
	var deps []string
	dir := filepath.Dir(path)
	desc, err := pipeline.ParseDescriptor(data, func(ref string) asset.Handle {
		abs := filepath.Clean(filepath.Join(dir, filepath.FromSlash(ref)))
		if filepath.IsAbs(ref) {
			abs = filepath.Clean(ref)
		}
		deps = append(deps, abs)
		return asset.HandleFromPath(asset.KindShader, abs)
	})
	if err != nil {
		return loadResult{}, err
	}
	return loadResult{
		assets: []loadedAsset{{handle: asset.HandleFromPath(asset.KindPipelineDescriptor, path), value: desc}},
		deps:   deps,
	}, nil
}

// textureLoaderBackend loads images through the registered image decoders.
type textureLoaderBackend struct{}

func (b *textureLoaderBackend) Kind() asset.Kind { return asset.KindTexture }
func (b *textureLoaderBackend) Extensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}
}

func (b *textureLoaderBackend) Load(path string, data []byte) (loadResult, error) {
	tex, err := texture.DecodeBytes(filepath.Base(path), data)
	if err != nil {
		return loadResult{}, err
	}
	return loadResult{assets: []loadedAsset{{handle: asset.HandleFromPath(asset.KindTexture, path), value: tex}}}, nil
}

// gltfLoaderBackend loads glTF and GLB files. The first primitive of the first mesh is the
// file's main asset; every primitive is also addressable as "Mesh{i}/Primitive{j}" and every
// texture as "Texture{i}".
type gltfLoaderBackend struct{}

func (b *gltfLoaderBackend) Kind() asset.Kind     { return asset.KindMesh }
func (b *gltfLoaderBackend) Extensions() []string { return []string{".gltf", ".glb"} }

func (b *gltfLoaderBackend) Load(path string, data []byte) (loadResult, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path, data); err != nil {
		return loadResult{}, fmt.Errorf("failed to parse glTF: %w", err)
	}
	doc := parser.Document()
	if len(doc.Meshes) == 0 {
		return loadResult{}, fmt.Errorf("glTF file has no meshes")
	}

	var res loadResult
	extractor := newGLTFMeshExtractor(parser)
	for i := range doc.Meshes {
		primitives, err := extractor.ExtractMesh(i)
		if err != nil {
			return loadResult{}, err
		}
		for j, m := range primitives {
			if i == 0 && j == 0 {
				res.assets = append(res.assets, loadedAsset{handle: asset.HandleFromPath(asset.KindMesh, path), value: m})
			}
			label := fmt.Sprintf("Mesh%d/Primitive%d", i, j)
			res.assets = append(res.assets, loadedAsset{handle: asset.HandleFromLabeledPath(asset.KindMesh, path, label), value: m})
		}
	}

	for i := range doc.Textures {
		label := fmt.Sprintf("Texture%d", i)
		tex, err := extractTexture(parser, i, filepath.Base(path)+"#"+label)
		if err != nil {
			return loadResult{}, fmt.Errorf("texture %d: %w", i, err)
		}
		if tex == nil {
			continue
		}
		res.assets = append(res.assets, loadedAsset{handle: asset.HandleFromLabeledPath(asset.KindTexture, path, label), value: tex})
	}

	return res, nil
}

// commit stores a decoded value in the store for its kind.
func commit(stores renderer.AssetStores, a loadedAsset) error {
	switch a.handle.Kind {
	case asset.KindMesh:
		v, ok := a.value.(*mesh.Mesh)
		if !ok {
			return fmt.Errorf("%s: got %T, want *mesh.Mesh", a.handle, a.value)
		}
		stores.Meshes.Set(a.handle, v)
	case asset.KindTexture:
		v, ok := a.value.(*texture.Texture)
		if !ok {
			return fmt.Errorf("%s: got %T, want *texture.Texture", a.handle, a.value)
		}
		stores.Textures.Set(a.handle, v)
	case asset.KindShader:
		v, ok := a.value.(shader.Shader)
		if !ok {
			return fmt.Errorf("%s: got %T, want shader.Shader", a.handle, a.value)
		}
		stores.Shaders.Set(a.handle, v)
	case asset.KindPipelineDescriptor:
		v, ok := a.value.(pipeline.Descriptor)
		if !ok {
			return fmt.Errorf("%s: got %T, want pipeline.Descriptor", a.handle, a.value)
		}
		stores.Pipelines.Set(a.handle, v)
	default:
		return fmt.Errorf("%s: unknown asset kind", a.handle)
	}
	return nil
}

// remove deletes h from the store for its kind.
func remove(stores renderer.AssetStores, h asset.Handle) bool {
	switch h.Kind {
	case asset.KindMesh:
		return stores.Meshes.Remove(h)
	case asset.KindTexture:
		return stores.Textures.Remove(h)
	case asset.KindShader:
		return stores.Shaders.Remove(h)
	case asset.KindPipelineDescriptor:
		return stores.Pipelines.Remove(h)
	default:
		return false
	}
}
