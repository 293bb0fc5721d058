package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatShader = `
@vertex
fn vs_main(@location(0) Vertex_Position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(Vertex_Position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

const litDescriptor = `
label: lit
vertex: shaders/lit.wgsl
fragment: shaders/lit.wgsl
primitive:
  cull_mode: back
`

func newTestLoader(t *testing.T, dir string, options ...LoaderBuilderOption) (Loader, renderer.AssetStores) {
	t.Helper()
	stores := renderer.NewAssetStores()
	options = append([]LoaderBuilderOption{WithRoot(dir), WithShaderValidation(false)}, options...)
	l := NewLoader(stores, options...)
	t.Cleanup(l.Close)
	return l, stores
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func putFloats(buf []byte, values ...float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// triangleGLTF builds a document with meshes copies of one indexed, textured triangle.
// The binary buffer holds positions (36 bytes), uvs (24 bytes) and uint16 indices (6 bytes).
func triangleGLTF(t *testing.T, meshes int, texture []byte) (map[string]any, []byte) {
	t.Helper()
	bin := putFloats(nil, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	bin = putFloats(bin, 0, 0, 1, 0, 0, 1)
	for _, i := range []uint16{0, 1, 2} {
		bin = binary.LittleEndian.AppendUint16(bin, i)
	}

	doc := map[string]any{
		"asset": map[string]any{"version": "2.0"},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 24},
			map[string]any{"buffer": 0, "byteOffset": 60, "byteLength": 6},
		},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC2"},
			map[string]any{"bufferView": 2, "componentType": gltfComponentTypeUnsignedShort, "count": 3, "type": "SCALAR"},
		},
	}
	var ms []any
	for i := range meshes {
		ms = append(ms, map[string]any{
			"name": "tri" + string(rune('A'+i)),
			"primitives": []any{map[string]any{
				"attributes": map[string]any{"POSITION": 0, "TEXCOORD_0": 1},
				"indices":    2,
			}},
		})
	}
	doc["meshes"] = ms
	if texture != nil {
		doc["images"] = []any{map[string]any{"uri": "data:image/png;base64," + base64.StdEncoding.EncodeToString(texture)}}
		doc["samplers"] = []any{map[string]any{"magFilter": gltfFilterNearest, "wrapS": gltfWrapClampToEdge}}
		doc["textures"] = []any{map[string]any{"source": 0, "sampler": 0}}
	}
	return doc, bin
}

func gltfFile(t *testing.T, meshes int, texture []byte) []byte {
	t.Helper()
	doc, bin := triangleGLTF(t, meshes, texture)
	doc["buffers"] = []any{map[string]any{
		"byteLength": len(bin),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin),
	}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func glbFile(t *testing.T) []byte {
	t.Helper()
	doc, bin := triangleGLTF(t, 1, nil)
	doc["buffers"] = []any{map[string]any{"byteLength": len(bin)}}
	jsonChunk, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := 12 + 8 + len(jsonChunk) + 8 + len(bin)
	out := binary.LittleEndian.AppendUint32(nil, gltfGLBMagic)
	out = binary.LittleEndian.AppendUint32(out, gltfGLBVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkJSON)
	out = append(out, jsonChunk...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(bin)))
	out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkBIN)
	return append(out, bin...)
}

func TestLoadCommitsOnlyOnUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flat.wgsl")
	writeFile(t, path, []byte(flatShader))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("flat.wgsl")
	require.NoError(t, err)
	assert.Equal(t, asset.HandleFromPath(asset.KindShader, path), h)

	l.Wait()
	assert.False(t, stores.Shaders.IsLoaded(h))
	assert.Equal(t, LoadStateLoading, l.State(h))
	assert.Equal(t, 1, l.Pending())

	assert.Equal(t, 1, l.Update())
	assert.True(t, stores.Shaders.IsLoaded(h))
	assert.Equal(t, LoadStateLoaded, l.State(h))
	assert.Zero(t, l.Pending())
	assert.Equal(t, []asset.Event{{Type: asset.EventCreated, Handle: h}}, stores.Shaders.DrainEvents())
}

func TestLoadValidatesShaders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flat.wgsl"), []byte(flatShader))
	l, stores := newTestLoader(t, dir, WithShaderValidation(true))

	h, err := l.Load("flat.wgsl")
	require.NoError(t, err)
	l.Wait()
	l.Update()

	s, ok := stores.Shaders.Get(h)
	require.True(t, ok)
	m, err := s.Specialize()
	require.NoError(t, err)
	assert.NotEmpty(t, m.SPIRV)
}

func TestLoadTwiceDecodesOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flat.wgsl"), []byte(flatShader))
	l, _ := newTestLoader(t, dir)

	a, err := l.Load("flat.wgsl")
	require.NoError(t, err)
	b, err := l.Load(filepath.Join(dir, "flat.wgsl"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	l.Wait()
	assert.Equal(t, 1, l.Update())

	_, err = l.Load("flat.wgsl")
	require.NoError(t, err)
	l.Wait()
	assert.Zero(t, l.Update())
}

func TestPipelineDescriptorLoadsReferencedShaders(t *testing.T) {
	dir := t.TempDir()
	shaderPath := filepath.Join(dir, "pipelines", "shaders", "lit.wgsl")
	writeFile(t, shaderPath, []byte(flatShader))
	writeFile(t, filepath.Join(dir, "pipelines", "lit.pipeline.yaml"), []byte(litDescriptor))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("pipelines/lit.pipeline.yaml")
	require.NoError(t, err)
	assert.Equal(t, asset.KindPipelineDescriptor, h.Kind)

	l.Wait()
	assert.Equal(t, 2, l.Update())

	d, ok := stores.Pipelines.Get(h)
	require.True(t, ok)
	assert.Equal(t, "lit", d.Label())
	shaderHandle := asset.HandleFromPath(asset.KindShader, shaderPath)
	assert.Equal(t, shaderHandle, d.VertexShader())
	assert.Equal(t, []asset.Handle{shaderHandle}, d.Shaders())
	assert.True(t, stores.Shaders.IsLoaded(shaderHandle))
	assert.Equal(t, wgpu.CullModeBack, d.PrimitiveState().CullMode)
}

func TestLoadTexture(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "checker.png"), pngBytes(t, 4, 2, color.RGBA{R: 255, A: 255}))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("checker.png")
	require.NoError(t, err)
	l.Wait()
	l.Update()

	tex, ok := stores.Textures.Get(h)
	require.True(t, ok)
	assert.Equal(t, uint32(4), tex.Data.Width)
	assert.Equal(t, uint32(2), tex.Data.Height)
	assert.Equal(t, []byte{255, 0, 0, 255}, tex.Data.Pixels[:4])
}

func TestLoadGLTF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.gltf")
	writeFile(t, path, gltfFile(t, 2, pngBytes(t, 1, 1, color.RGBA{G: 255, A: 255})))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("tri.gltf")
	require.NoError(t, err)
	l.Wait()
	l.Update()

	m, ok := stores.Meshes.Get(h)
	require.True(t, ok)
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2}, m.Indices)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, m.Topology)
	uv, ok := m.Attribute(mesh.AttributeUv)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 1}, uv.Values)
	normal, ok := m.Attribute(mesh.AttributeNormal)
	require.True(t, ok, "normals are generated for triangle lists")
	assert.InDelta(t, 1, normal.Values[2], 1e-6)

	second := asset.HandleFromLabeledPath(asset.KindMesh, path, "Mesh1/Primitive0")
	assert.True(t, stores.Meshes.IsLoaded(second))
	assert.Equal(t, LoadStateLoaded, l.State(second))

	tex, ok := stores.Textures.Get(asset.HandleFromLabeledPath(asset.KindTexture, path, "Texture0"))
	require.True(t, ok)
	assert.Equal(t, wgpu.FilterModeNearest, tex.Sampler.MagFilter)
	assert.Equal(t, wgpu.FilterModeLinear, tex.Sampler.MinFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, tex.Sampler.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, tex.Sampler.AddressModeV)
}

func TestLoadGLB(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tri.glb"), glbFile(t))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("tri.glb")
	require.NoError(t, err)
	l.Wait()
	l.Update()

	m, ok := stores.Meshes.Get(h)
	require.True(t, ok)
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2}, m.Indices)
}

func TestLoadFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.wgsl"), []byte("fn helper() {}"))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load("broken.wgsl")
	require.NoError(t, err)
	l.Wait()
	assert.Equal(t, 1, l.Update())

	assert.Equal(t, LoadStateFailed, l.State(h))
	assert.ErrorContains(t, l.Err(h), "entry point")
	assert.False(t, stores.Shaders.IsLoaded(h))
}

func TestLoadMissingFileFails(t *testing.T) {
	l, _ := newTestLoader(t, t.TempDir())

	h, err := l.Load("missing.png")
	require.NoError(t, err)
	l.Wait()
	l.Update()

	assert.Equal(t, LoadStateFailed, l.State(h))
	assert.ErrorIs(t, l.Err(h), os.ErrNotExist)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l, _ := newTestLoader(t, t.TempDir())

	_, err := l.Load("model.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = l.Load("notes.yaml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReloadReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flat.wgsl")
	writeFile(t, path, []byte(flatShader))
	l, stores := newTestLoader(t, dir)

	h, err := l.Load(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()
	stores.Shaders.DrainEvents()

	writeFile(t, path, []byte(flatShader+"\n// edited\n"))
	_, err = l.Reload(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()

	assert.Equal(t, []asset.Event{{Type: asset.EventModified, Handle: h}}, stores.Shaders.DrainEvents())
	s, _ := stores.Shaders.Get(h)
	assert.Contains(t, s.Source(), "edited")
}

func TestReloadRemovesVanishedSubAssets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.gltf")
	writeFile(t, path, gltfFile(t, 2, nil))
	l, stores := newTestLoader(t, dir)

	_, err := l.Load(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()
	second := asset.HandleFromLabeledPath(asset.KindMesh, path, "Mesh1/Primitive0")
	require.True(t, stores.Meshes.IsLoaded(second))

	writeFile(t, path, gltfFile(t, 1, nil))
	_, err = l.Reload(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()

	assert.False(t, stores.Meshes.IsLoaded(second))
	assert.Equal(t, LoadStateNotLoaded, l.State(second))
	assert.True(t, stores.Meshes.IsLoaded(asset.HandleFromPath(asset.KindMesh, path)))
}

func TestWatchReloadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flat.wgsl")
	writeFile(t, path, []byte(flatShader))
	l, stores := newTestLoader(t, dir, WithDebounce(10*time.Millisecond))

	h, err := l.Load(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()
	stores.Shaders.DrainEvents()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Watch(ctx))
	assert.Error(t, l.Watch(ctx), "a second watcher is rejected")

	writeFile(t, path, []byte(flatShader+"\n// hot\n"))
	require.Eventually(t, func() bool {
		l.Wait()
		l.Update()
		s, _ := stores.Shaders.Get(h)
		return bytes.Contains([]byte(s.Source()), []byte("hot"))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checker.png")
	writeFile(t, path, pngBytes(t, 1, 1, color.RGBA{A: 255}))
	l, stores := newTestLoader(t, dir, WithDebounce(10*time.Millisecond))

	h, err := l.Load(path)
	require.NoError(t, err)
	l.Wait()
	l.Update()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Watch(ctx))

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		l.Update()
		return !stores.Textures.IsLoaded(h)
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, LoadStateNotLoaded, l.State(h))
}

func TestLoadDirSkipsUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.wgsl"), []byte(flatShader))
	writeFile(t, filepath.Join(dir, "sub", "b.png"), pngBytes(t, 1, 1, color.RGBA{A: 255}))
	writeFile(t, filepath.Join(dir, "README.md"), []byte("# assets"))
	l, stores := newTestLoader(t, dir)

	handles, err := l.LoadDir(".")
	require.NoError(t, err)
	require.Len(t, handles, 2)
	assert.Equal(t, asset.KindShader, handles[0].Kind)
	assert.Equal(t, asset.KindTexture, handles[1].Kind)

	l.Wait()
	assert.Equal(t, 2, l.Update())
	assert.Equal(t, 1, stores.Shaders.Len())
	assert.Equal(t, 1, stores.Textures.Len())
}

func TestCloseRejectsLoads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flat.wgsl"), []byte(flatShader))
	l, _ := newTestLoader(t, dir)

	l.Close()
	l.Close()
	_, err := l.Load("flat.wgsl")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, l.Watch(context.Background()), ErrClosed)
}

func TestReadFloatAccessorNormalizedAndStrided(t *testing.T) {
	// two interleaved vertices: vec3 float position followed by normalized RGBA8 color
	var bin []byte
	bin = putFloats(bin, 1, 2, 3)
	bin = append(bin, 255, 0, 51, 255)
	bin = putFloats(bin, 4, 5, 6)
	bin = append(bin, 0, 255, 0, 0)
	stride := 16

	p := &gltfParserImpl{document: &gltfDocument{
		Buffers:     []gltfBuffer{{ByteLength: len(bin), Data: bin}},
		BufferViews: []gltfBufferView{{Buffer: 0, ByteLength: len(bin), ByteStride: &stride}},
		Accessors: []gltfAccessor{
			{BufferView: new(int), ComponentType: gltfComponentTypeFloat, Count: 2, Type: gltfAccessorTypeVec3},
			{BufferView: new(int), ByteOffset: 12, ComponentType: gltfComponentTypeUnsignedByte, Normalized: true, Count: 2, Type: gltfAccessorTypeVec4},
			{BufferView: new(int), ComponentType: gltfComponentTypeUnsignedByte, Count: 2, Type: gltfAccessorTypeVec4},
		},
	}}

	pos, n, err := p.ReadFloatAccessor(0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, pos)

	col, n, err := p.ReadFloatAccessor(1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.InDeltaSlice(t, []float32{1, 0, 0.2, 1, 0, 1, 0, 0}, col, 1e-6)

	_, _, err = p.ReadFloatAccessor(2)
	assert.ErrorContains(t, err, "normalized")
	_, _, err = p.ReadFloatAccessor(7)
	assert.ErrorContains(t, err, "out of range")
}

func TestGLTFTopology(t *testing.T) {
	mode := func(m int) *int { return &m }

	topology, err := gltfTopology(nil)
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, topology)
	topology, err = gltfTopology(mode(gltfPrimitiveModeLineStrip))
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyLineStrip, topology)
	_, err = gltfTopology(mode(6))
	assert.Error(t, err)
}
