package pipeline

// CompilerBuilderOption is a functional option used to configure a Compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithGlobalShaderDefs adds shader defs that every template is specialized with, on top of its own.
//
// Parameters:
//   - defs: the shader defs
//
// Returns:
//   - CompilerBuilderOption: a function that appends the global shader defs
func WithGlobalShaderDefs(defs ...string) CompilerBuilderOption {
	return func(c *compiler) {
		c.defs = append(c.defs, defs...)
	}
}
