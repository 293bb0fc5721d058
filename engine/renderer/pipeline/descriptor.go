// Package pipeline turns pipeline descriptor assets into device pipelines. A Descriptor is an
// immutable template (shader references plus fixed-function state); the Compiler specializes a
// template for a concrete vertex layout, caches the result per (template, layout) pair, and
// evicts it when the template or one of its shaders changes.
package pipeline

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"

	"github.com/cogentcore/webgpu/wgpu"
)

// descriptor is the implementation of the Descriptor interface.
type descriptor struct {
	label          string
	vertexShader   asset.Handle
	fragmentShader asset.Handle
	shaderDefs     []string

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthCompare        wgpu.CompareFunction
	depthFormat         wgpu.TextureFormat
	depthBias           int32
	depthBiasSlopeScale float32

	blendEnabled bool
	blendState   wgpu.BlendState
	writeMask    wgpu.ColorWriteMask
	colorFormat  wgpu.TextureFormat

	cullMode    wgpu.CullMode
	topology    wgpu.PrimitiveTopology
	frontFace   wgpu.FrontFace
	sampleCount uint32
}

// Descriptor is a pipeline template: which shaders to run and the fixed-function state to run
// them with. It carries no vertex layout; the Compiler pairs it with one per mesh layout.
// A Descriptor never changes after construction, so it is safe to share between goroutines.
type Descriptor interface {
	// Label returns the debug label used for compiled pipelines.
	//
	// Returns:
	//   - string: the label
	Label() string

	// VertexShader returns the handle of the shader providing the vertex entry point.
	//
	// Returns:
	//   - asset.Handle: the vertex shader handle
	VertexShader() asset.Handle

	// FragmentShader returns the handle of the shader providing the fragment entry point.
	// A nil handle describes a depth-only pipeline.
	//
	// Returns:
	//   - asset.Handle: the fragment shader handle, possibly nil
	FragmentShader() asset.Handle

	// Shaders returns every distinct shader handle the template references.
	//
	// Returns:
	//   - []asset.Handle: the vertex handle, followed by the fragment handle if it differs
	Shaders() []asset.Handle

	// ShaderDefs returns the sorted shader defs both stages are specialized with.
	//
	// Returns:
	//   - []string: the shader defs
	ShaderDefs() []string

	// PrimitiveState returns the rasterizer state.
	//
	// Returns:
	//   - wgpu.PrimitiveState: topology, front face and cull mode
	PrimitiveState() wgpu.PrimitiveState

	// DepthStencilState returns the depth state, or nil when depth testing and writing are both disabled.
	//
	// Returns:
	//   - *wgpu.DepthStencilState: the depth state
	DepthStencilState() *wgpu.DepthStencilState

	// ColorTargets returns the color target states of the fragment stage.
	//
	// Returns:
	//   - []wgpu.ColorTargetState: one target per color attachment
	ColorTargets() []wgpu.ColorTargetState

	// SampleCount returns the multisample count.
	//
	// Returns:
	//   - uint32: the sample count
	SampleCount() uint32
}

var _ Descriptor = &descriptor{}

// NewDescriptor creates a new Descriptor with defaults matching an opaque, depth-tested
// triangle list and all specified options applied.
//
// Parameters:
//   - label: the debug label of the template
//   - vertexShader: the shader providing the vertex entry point
//   - fragmentShader: the shader providing the fragment entry point; may be a nil handle
//   - opts: a variadic list of DescriptorBuilderOption functions
//
// Returns:
//   - Descriptor: the new template
func NewDescriptor(label string, vertexShader, fragmentShader asset.Handle, opts ...DescriptorBuilderOption) Descriptor {
	d := &descriptor{
		label:             label,
		vertexShader:      vertexShader,
		fragmentShader:    fragmentShader,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		depthFormat:       wgpu.TextureFormatDepth24Plus,
		writeMask:         wgpu.ColorWriteMaskAll,
		colorFormat:       wgpu.TextureFormatRGBA8UnormSrgb,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		sampleCount:       1,
		blendState:        AlphaBlending,
	}
	for _, opt := range opts {
		opt(d)
	}
	slices.Sort(d.shaderDefs)
	d.shaderDefs = slices.Compact(d.shaderDefs)
	return d
}

// AlphaBlending is the standard premultiplied-free alpha blend used when blending is enabled.
var AlphaBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// AdditiveBlending adds source color onto the target.
var AdditiveBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

func (d *descriptor) Label() string {
	return d.label
}

func (d *descriptor) VertexShader() asset.Handle {
	return d.vertexShader
}

func (d *descriptor) FragmentShader() asset.Handle {
	return d.fragmentShader
}

func (d *descriptor) Shaders() []asset.Handle {
	out := []asset.Handle{d.vertexShader}
	if !d.fragmentShader.IsNil() && d.fragmentShader != d.vertexShader {
		out = append(out, d.fragmentShader)
	}
	return out
}

func (d *descriptor) ShaderDefs() []string {
	return slices.Clone(d.shaderDefs)
}

func (d *descriptor) PrimitiveState() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  d.topology,
		FrontFace: d.frontFace,
		CullMode:  d.cullMode,
	}
}

func (d *descriptor) DepthStencilState() *wgpu.DepthStencilState {
	if !d.depthTestEnabled && !d.depthWriteEnabled {
		return nil
	}
	compare := d.depthCompare
	if !d.depthTestEnabled {
		compare = wgpu.CompareFunctionAlways
	}
	return &wgpu.DepthStencilState{
		Format:              d.depthFormat,
		DepthWriteEnabled:   d.depthWriteEnabled,
		DepthCompare:        compare,
		DepthBias:           d.depthBias,
		DepthBiasSlopeScale: d.depthBiasSlopeScale,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

func (d *descriptor) ColorTargets() []wgpu.ColorTargetState {
	target := wgpu.ColorTargetState{
		Format:    d.colorFormat,
		WriteMask: d.writeMask,
	}
	if d.blendEnabled {
		blend := d.blendState
		target.Blend = &blend
	}
	return []wgpu.ColorTargetState{target}
}

func (d *descriptor) SampleCount() uint32 {
	return d.sampleCount
}
