package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litSource = `
struct Camera {
    view_proj: mat4x4<f32>,
    position: vec3<f32>,
};

struct Transform {
    model: mat4x4<f32>,
};

struct VertexInput {
    @location(0) Vertex_Position: vec3<f32>,
    @location(1) Vertex_Normal: vec3<f32>,
    @location(2) Vertex_Uv: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@group(0) @binding(0) var<uniform> camera: Camera;
@group(1) @binding(0) var<uniform> transform: Transform;
@group(2) @binding(0) var albedo: texture_2d<f32>;
@group(2) @binding(1) var albedo_sampler: sampler;
// @group(3) @binding(0) var<uniform> commented: Camera;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = camera.view_proj * transform.model * vec4<f32>(in.Vertex_Position, 1.0);
    out.uv = in.Vertex_Uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
#ifdef UNLIT
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
#else
    return textureSample(albedo, albedo_sampler, in.uv);
#endif
}
`

func TestNewShaderDetectsStages(t *testing.T) {
	s, err := NewShader("lit.wgsl", litSource, WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, "lit.wgsl", s.Key())
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, s.Stages())
}

func TestNewShaderRejectsNoEntryPoint(t *testing.T) {
	_, err := NewShader("empty.wgsl", "struct A { x: f32 };", WithValidation(false))
	assert.Error(t, err)
}

func TestNewShaderRejectsUnbalancedDirectives(t *testing.T) {
	_, err := NewShader("bad.wgsl", "#ifdef A\n@vertex fn main() -> @builtin(position) vec4f { return vec4f(); }\n", WithValidation(false))
	assert.Error(t, err)
}

func TestSpecializeReflectsInputsAndBindings(t *testing.T) {
	s, err := NewShader("lit.wgsl", litSource, WithValidation(false))
	require.NoError(t, err)

	m, err := s.Specialize()
	require.NoError(t, err)
	assert.Equal(t, "vs_main", m.VertexEntry)
	assert.Equal(t, "fs_main", m.FragmentEntry)

	require.Len(t, m.Inputs, 3)
	assert.Equal(t, VertexInput{Name: "Vertex_Position", Location: 0, Format: wgpu.VertexFormatFloat32x3}, m.Inputs[0])
	assert.Equal(t, VertexInput{Name: "Vertex_Uv", Location: 2, Format: wgpu.VertexFormatFloat32x2}, m.Inputs[2])
	_, ok := m.Input("Vertex_Normal")
	assert.True(t, ok)

	require.Len(t, m.Bindings, 4)
	camera := m.Bindings[0]
	assert.Equal(t, "camera", camera.Name)
	assert.Equal(t, render_resource.KindUniformBuffer, camera.Kind)
	assert.Equal(t, uint64(80), camera.Size)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, camera.Layout.Visibility)

	assert.Equal(t, uint64(64), m.Bindings[1].Size)
	assert.Equal(t, render_resource.KindSampledTexture, m.Bindings[2].Kind)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, m.Bindings[2].Layout.Texture.SampleType)
	assert.Equal(t, render_resource.KindSampler, m.Bindings[3].Kind)
	assert.Equal(t, render_resource.SlotOf(2, 1), m.Bindings[3].Slot())
}

func TestSpecializeResolvesDefs(t *testing.T) {
	s, err := NewShader("lit.wgsl", litSource, WithValidation(false))
	require.NoError(t, err)

	lit, err := s.Specialize()
	require.NoError(t, err)
	unlit, err := s.Specialize("UNLIT")
	require.NoError(t, err)

	assert.Contains(t, lit.Source, "textureSample")
	assert.NotContains(t, unlit.Source, "textureSample")
	assert.NotContains(t, unlit.Source, "#ifdef")
	assert.Equal(t, "lit.wgsl[UNLIT]", unlit.Label)

	again, err := s.Specialize("UNLIT", "UNLIT")
	require.NoError(t, err)
	assert.Same(t, unlit, again)
}

func TestSpecializeInlineLocations(t *testing.T) {
	src := `
@vertex
fn main(@builtin(vertex_index) idx: u32, @location(1) color: vec4f, @location(0) pos: vec2f) -> @builtin(position) vec4f {
    return vec4f(pos, 0.0, 1.0);
}
`
	s, err := NewShader("inline.wgsl", src, WithValidation(false))
	require.NoError(t, err)
	m, err := s.Specialize()
	require.NoError(t, err)

	require.Len(t, m.Inputs, 2)
	assert.Equal(t, "pos", m.Inputs[0].Name)
	assert.Equal(t, "color", m.Inputs[1].Name)
	assert.Empty(t, m.Bindings)
	assert.Equal(t, "", m.FragmentEntry)
}

func TestSpecializeRejectsDuplicateSlot(t *testing.T) {
	src := `
@group(0) @binding(0) var<uniform> a: vec4f;
@group(0) @binding(0) var<uniform> b: vec4f;
@fragment
fn main() -> @location(0) vec4f { return a + b; }
`
	s, err := NewShader("dup.wgsl", src, WithValidation(false))
	require.NoError(t, err)
	_, err = s.Specialize()
	assert.Error(t, err)
}

func TestSpecializeValidatesWithNaga(t *testing.T) {
	valid := `
@fragment
fn main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`
	s, err := NewShader("valid.wgsl", valid)
	require.NoError(t, err)
	m, err := s.Specialize()
	require.NoError(t, err)
	assert.NotEmpty(t, m.SPIRV)

	_, err = NewShader("broken.wgsl", "@fragment\nfn main() -> @location(0) vec4<f32> {\n    return undefined_symbol;\n}\n")
	assert.Error(t, err)
}

func TestSpecializeReadsBufferSizesFromIR(t *testing.T) {
	src := `
struct Light { position: vec3f, intensity: f32, color: vec4f };
struct Lights { count: u32, items: array<Light, 4> };

@group(0) @binding(0) var<uniform> lights: Lights;
@group(0) @binding(1) var<storage, read> instances: array<Light>;
@group(0) @binding(2) var<storage, read_write> counters: array<u32, 8>;

@fragment
fn main() -> @location(0) vec4f {
    return lights.items[0].color + instances[0].color + vec4f(f32(counters[0]));
}
`
	s, err := NewShader("lights.wgsl", src, WithValidation(false))
	require.NoError(t, err)
	m, err := s.Specialize()
	require.NoError(t, err)

	require.Len(t, m.Bindings, 3)
	assert.Equal(t, uint64(144), m.Bindings[0].Size)
	assert.Equal(t, "Lights", m.Bindings[0].TypeName)
	assert.Equal(t, uint64(32), m.Bindings[1].Size)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, m.Bindings[1].Layout.Buffer.Type)
	assert.Equal(t, uint64(32), m.Bindings[2].Size)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, m.Bindings[2].Layout.Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageFragment, m.Bindings[2].Layout.Visibility)
}

func TestSpecializeAcceptsAnyAttributeOrder(t *testing.T) {
	src := `
struct Camera {
    view_proj: mat4x4<f32>,
};

@binding(0) @group(0) var<uniform> camera: Camera;
@binding(1)
@group(0)
var depth: texture_depth_2d;
@group(0) /* shadow */ @binding(2) var shadow: sampler_comparison;

@vertex
fn vs_main(@location(0) Vertex_Position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return camera.view_proj * vec4<f32>(Vertex_Position, 1.0);
}
`
	s, err := NewShader("reordered.wgsl", src)
	require.NoError(t, err)
	m, err := s.Specialize()
	require.NoError(t, err)
	assert.NotEmpty(t, m.SPIRV)

	require.Len(t, m.Bindings, 3)
	assert.Equal(t, "camera", m.Bindings[0].Name)
	assert.Equal(t, render_resource.KindUniformBuffer, m.Bindings[0].Kind)
	assert.Equal(t, uint64(64), m.Bindings[0].Size)
	assert.Equal(t, render_resource.SlotOf(0, 0), m.Bindings[0].Slot())

	assert.Equal(t, render_resource.KindSampledTexture, m.Bindings[1].Kind)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, m.Bindings[1].Layout.Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, m.Bindings[1].Layout.Texture.ViewDimension)

	assert.Equal(t, render_resource.KindSampler, m.Bindings[2].Kind)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, m.Bindings[2].Layout.Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex, m.Bindings[2].Layout.Visibility)
}

func TestNewShaderRejectsUnloweredSource(t *testing.T) {
	_, err := NewShader("typo.wgsl", "@vertex\nfn main() -> @builtin(position) vec4<f32> {\n    return missing;\n}\n", WithValidation(false))
	assert.Error(t, err)
}

func TestPreProcessNested(t *testing.T) {
	src := "a\n#ifdef X\nb\n#ifndef Y\nc\n#endif\n#else\nd\n#endif\ne"
	out, err := preProcess(src, map[string]struct{}{"X": {}})
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb\n\nc\n\n\n\n\ne", out)

	out, err = preProcess(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\n\n\n\n\n\n\nd\n\ne", out)

	_, err = preProcess("#endif", nil)
	assert.Error(t, err)
	_, err = preProcess("#ifdef A\n#else\n#else\n#endif", nil)
	assert.Error(t, err)
	_, err = preProcess("#define A", nil)
	assert.Error(t, err)
}
