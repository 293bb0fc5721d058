package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// DescriptorBuilderOption is a functional option used to configure a Descriptor during construction.
type DescriptorBuilderOption func(*descriptor)

// WithShaderDefs adds shader defs that both stages are specialized with.
//
// Parameters:
//   - defs: the shader defs to enable
//
// Returns:
//   - DescriptorBuilderOption: a function that appends the shader defs
func WithShaderDefs(defs ...string) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.shaderDefs = append(d.shaderDefs, defs...)
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth test enabled state
func WithDepthTestEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth write enabled state
func WithDepthWriteEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the comparison used by the depth test.
//
// Parameters:
//   - compare: the comparison function
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth compare function
func WithDepthCompare(compare wgpu.CompareFunction) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthCompare = compare
	}
}

// WithDepthFormat sets the format of the depth attachment this pipeline renders into.
//
// Parameters:
//   - format: the depth texture format
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth format
func WithDepthFormat(format wgpu.TextureFormat) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthFormat = format
	}
}

// WithDepthBias sets the depth bias for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias
//   - slopeScale: the slope-scaled depth bias
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the depth bias values
func WithDepthBias(bias int32, slopeScale float32) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.depthBias = bias
		d.depthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the blend enabled state
func WithBlendEnabled(enabled bool) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.blendEnabled = enabled
	}
}

// WithBlendState sets the blend state used when blending is enabled.
//
// Parameters:
//   - state: the blend state
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the blend state
func WithBlendState(state wgpu.BlendState) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.blendState = state
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - mask: the color write mask
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the write mask
func WithWriteMask(mask wgpu.ColorWriteMask) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.writeMask = mask
	}
}

// WithColorFormat sets the format of the color attachment this pipeline renders into.
//
// Parameters:
//   - format: the color texture format
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the color format
func WithColorFormat(format wgpu.TextureFormat) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.colorFormat = format
	}
}

// WithCullMode sets the face culling mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.topology = topology
	}
}

// WithFrontFace sets the winding order considered front-facing.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the front face
func WithFrontFace(face wgpu.FrontFace) DescriptorBuilderOption {
	return func(d *descriptor) {
		d.frontFace = face
	}
}

// WithSampleCount sets the multisample count for this pipeline.
//
// Parameters:
//   - count: the sample count; zero is ignored
//
// Returns:
//   - DescriptorBuilderOption: a function that sets the sample count
func WithSampleCount(count uint32) DescriptorBuilderOption {
	return func(d *descriptor) {
		if count > 0 {
			d.sampleCount = count
		}
	}
}
