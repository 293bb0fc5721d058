package device

// WGPUDeviceBuilderOption is a functional option for configuring a device via NewWGPUDevice.
type WGPUDeviceBuilderOption func(*wgpuDevice)

// WithForceFallbackAdapter is an option builder that requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the adapter option to a device
func WithForceFallbackAdapter(force bool) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxBindGroups is an option builder that raises the device's bind group limit.
//
// Parameters:
//   - n: the number of bind groups pipelines may use
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the limit option to a device
func WithMaxBindGroups(n uint32) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.maxBindGroups = n
	}
}

// WithLabel is an option builder that sets the device debug label.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the label option to a device
func WithLabel(label string) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.label = label
	}
}

// NullDeviceBuilderOption is a functional option for configuring a device via NewNullDevice.
type NullDeviceBuilderOption func(*NullDevice)

// WithPipelineValidator is an option builder that installs a check run on every CreatePipeline
// call. A non-nil error from the check is returned as the creation error.
//
// Parameters:
//   - validate: the check to run
//
// Returns:
//   - NullDeviceBuilderOption: a function that applies the validator to a null device
func WithPipelineValidator(validate func(*PipelineState) error) NullDeviceBuilderOption {
	return func(d *NullDevice) {
		d.validate = validate
	}
}
