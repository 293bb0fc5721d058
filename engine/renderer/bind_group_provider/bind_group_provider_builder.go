package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBufferUsage sets the usage flags of buffers created by EnsureBuffer.
// The default is uniform | copy-dst.
//
// Parameters:
//   - usage: the buffer usage flags
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer usage for this provider
func WithBufferUsage(usage wgpu.BufferUsage) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.usage = usage
	}
}
