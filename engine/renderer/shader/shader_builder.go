package shader

// ShaderBuilderOption is a functional option for configuring a Shader via NewShader.
type ShaderBuilderOption func(*shader)

// WithValidation is an option builder that toggles IR validation and SPIR-V generation for every
// specialization. Specializations are always parsed and lowered with naga for reflection;
// validation is enabled by default.
//
// Parameters:
//   - enabled: whether specializations are validated
//
// Returns:
//   - ShaderBuilderOption: a function that applies the validation option to a shader
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
