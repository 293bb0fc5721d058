package pipeline

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"

	"github.com/cogentcore/webgpu/wgpu"
	"gopkg.in/yaml.v3"
)

// DescriptorFile is the on-disk form of a Descriptor.
//
//	label: lit
//	vertex: shaders/lit.wgsl
//	fragment: shaders/lit.wgsl
//	shader_defs: [VERTEX_COLORS]
//	primitive:
//	  topology: triangle-list
//	  cull_mode: back
//	  front_face: ccw
//	depth:
//	  test: true
//	  write: true
//	  compare: less
//	blend: alpha
//	color_format: rgba8unorm-srgb
//	sample_count: 1
type DescriptorFile struct {
	Label       string        `yaml:"label"`
	Vertex      string        `yaml:"vertex"`
	Fragment    string        `yaml:"fragment"`
	ShaderDefs  []string      `yaml:"shader_defs"`
	Primitive   PrimitiveFile `yaml:"primitive"`
	Depth       DepthFile     `yaml:"depth"`
	Blend       string        `yaml:"blend"`
	WriteMask   string        `yaml:"write_mask"`
	ColorFormat string        `yaml:"color_format"`
	SampleCount uint32        `yaml:"sample_count"`
}

// PrimitiveFile is the rasterizer section of a DescriptorFile.
type PrimitiveFile struct {
	Topology  string `yaml:"topology"`
	CullMode  string `yaml:"cull_mode"`
	FrontFace string `yaml:"front_face"`
}

// DepthFile is the depth section of a DescriptorFile. Unset booleans keep the defaults.
type DepthFile struct {
	Test           *bool   `yaml:"test"`
	Write          *bool   `yaml:"write"`
	Compare        string  `yaml:"compare"`
	Bias           int32   `yaml:"bias"`
	BiasSlopeScale float32 `yaml:"bias_slope_scale"`
}

var topologies = map[string]wgpu.PrimitiveTopology{
	"point-list":     wgpu.PrimitiveTopologyPointList,
	"line-list":      wgpu.PrimitiveTopologyLineList,
	"line-strip":     wgpu.PrimitiveTopologyLineStrip,
	"triangle-list":  wgpu.PrimitiveTopologyTriangleList,
	"triangle-strip": wgpu.PrimitiveTopologyTriangleStrip,
}

var cullModes = map[string]wgpu.CullMode{
	"none":  wgpu.CullModeNone,
	"front": wgpu.CullModeFront,
	"back":  wgpu.CullModeBack,
}

var frontFaces = map[string]wgpu.FrontFace{
	"ccw": wgpu.FrontFaceCCW,
	"cw":  wgpu.FrontFaceCW,
}

var compareFunctions = map[string]wgpu.CompareFunction{
	"never":         wgpu.CompareFunctionNever,
	"less":          wgpu.CompareFunctionLess,
	"less-equal":    wgpu.CompareFunctionLessEqual,
	"equal":         wgpu.CompareFunctionEqual,
	"greater":       wgpu.CompareFunctionGreater,
	"greater-equal": wgpu.CompareFunctionGreaterEqual,
	"not-equal":     wgpu.CompareFunctionNotEqual,
	"always":        wgpu.CompareFunctionAlways,
}

var writeMasks = map[string]wgpu.ColorWriteMask{
	"all":   wgpu.ColorWriteMaskAll,
	"color": wgpu.ColorWriteMaskRed | wgpu.ColorWriteMaskGreen | wgpu.ColorWriteMaskBlue,
	"alpha": wgpu.ColorWriteMaskAlpha,
	"none":  wgpu.ColorWriteMaskNone,
}

var colorFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":      wgpu.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": wgpu.TextureFormatRGBA8UnormSrgb,
	"bgra8unorm":      wgpu.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": wgpu.TextureFormatBGRA8UnormSrgb,
	"rgba16float":     wgpu.TextureFormatRGBA16Float,
}

func lookup[T any](table map[string]T, field, value string) (T, bool, error) {
	var zero T
	if value == "" {
		return zero, false, nil
	}
	v, ok := table[strings.ToLower(value)]
	if !ok {
		return zero, false, fmt.Errorf("unknown %s %q", field, value)
	}
	return v, true, nil
}

// ParseDescriptor decodes a YAML pipeline descriptor. Shader paths are turned into handles with
// resolve, which lets the caller anchor them relative to the descriptor file and schedule loads.
//
// Parameters:
//   - data: the YAML document
//   - resolve: maps a shader path from the document to its asset handle
//
// Returns:
//   - Descriptor: the decoded template
//   - error: error if the document is malformed or names an unknown enum value
func ParseDescriptor(data []byte, resolve func(path string) asset.Handle) (Descriptor, error) {
	var f DescriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline descriptor: %w", err)
	}
	if f.Vertex == "" {
		return nil, fmt.Errorf("pipeline descriptor %q has no vertex shader", f.Label)
	}

	opts := []DescriptorBuilderOption{WithShaderDefs(f.ShaderDefs...), WithSampleCount(f.SampleCount)}

	if v, ok, err := lookup(topologies, "topology", f.Primitive.Topology); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithTopology(v))
	}
	if v, ok, err := lookup(cullModes, "cull mode", f.Primitive.CullMode); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithCullMode(v))
	}
	if v, ok, err := lookup(frontFaces, "front face", f.Primitive.FrontFace); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithFrontFace(v))
	}
	if v, ok, err := lookup(compareFunctions, "depth compare", f.Depth.Compare); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithDepthCompare(v))
	}
	if v, ok, err := lookup(writeMasks, "write mask", f.WriteMask); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithWriteMask(v))
	}
	if v, ok, err := lookup(colorFormats, "color format", f.ColorFormat); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithColorFormat(v))
	}
	if f.Depth.Test != nil {
		opts = append(opts, WithDepthTestEnabled(*f.Depth.Test))
	}
	if f.Depth.Write != nil {
		opts = append(opts, WithDepthWriteEnabled(*f.Depth.Write))
	}
	if f.Depth.Bias != 0 || f.Depth.BiasSlopeScale != 0 {
		opts = append(opts, WithDepthBias(f.Depth.Bias, f.Depth.BiasSlopeScale))
	}

	switch strings.ToLower(f.Blend) {
	case "", "none", "replace":
	case "alpha":
		opts = append(opts, WithBlendEnabled(true), WithBlendState(AlphaBlending))
	case "additive":
		opts = append(opts, WithBlendEnabled(true), WithBlendState(AdditiveBlending))
	default:
		return nil, fmt.Errorf("unknown blend mode %q", f.Blend)
	}

	vertexShader := resolve(f.Vertex)
	fragmentShader := asset.Handle{}
	if f.Fragment != "" {
		fragmentShader = resolve(f.Fragment)
	}
	return NewDescriptor(f.Label, vertexShader, fragmentShader, opts...), nil
}
