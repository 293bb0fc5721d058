// Package shader holds WGSL shader assets. A Shader keeps its raw source and is specialized
// on demand for a set of shader defs; each specialization is lowered to naga IR once, reflected
// from that IR (entry points, vertex inputs, resource bindings) and optionally validated by
// compiling the same IR to SPIR-V.
package shader

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key      string
	source   string
	stages   wgpu.ShaderStage
	validate bool

	mu      *sync.Mutex
	modules map[string]*Module
}

// Shader is an immutable WGSL shader asset.
type Shader interface {
	// Key retrieves the unique identifier of the shader, typically its source path.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the raw WGSL source, directives included.
	//
	// Returns:
	//   - string: the raw source
	Source() string

	// Stages reports which entry point stages the source declares.
	//
	// Returns:
	//   - wgpu.ShaderStage: a combination of wgpu.ShaderStageVertex and wgpu.ShaderStageFragment
	Stages() wgpu.ShaderStage

	// Specialize resolves #ifdef blocks for defs and reflects the result. Results are cached
	// per def set, so repeated calls with the same defs return the same *Module.
	//
	// Parameters:
	//   - defs: the shader defs to set; order and duplicates do not matter
	//
	// Returns:
	//   - *Module: the specialized module
	//   - error: error if processing, reflection or validation fails
	Specialize(defs ...string) (*Module, error)
}

var _ Shader = &shader{}

// NewShader parses source and returns a Shader. The variant without shader defs is specialized
// up front, so malformed directives or WGSL fail at load time instead of at first use and the
// declared stages are known.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and logs
//   - source: the WGSL source
//   - options: a variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the new shader
//   - error: error if the directives are malformed, the WGSL does not lower, or no entry point is declared
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:      key,
		source:   source,
		validate: true,
		mu:       &sync.Mutex{},
		modules:  make(map[string]*Module),
	}
	for _, option := range options {
		option(s)
	}

	base, err := s.Specialize()
	if err != nil {
		return nil, err
	}
	if base.VertexEntry != "" {
		s.stages |= wgpu.ShaderStageVertex
	}
	if base.FragmentEntry != "" {
		s.stages |= wgpu.ShaderStageFragment
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stages() wgpu.ShaderStage {
	return s.stages
}

func (s *shader) Specialize(defs ...string) (*Module, error) {
	sorted := slices.Clone(defs)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	key := defsKey(sorted)

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modules[key]; ok {
		return m, nil
	}

	set := make(map[string]struct{}, len(sorted))
	for _, d := range sorted {
		set[d] = struct{}{}
	}
	processed, err := preProcess(s.source, set)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", s.key, err)
	}

	m := &Module{Label: s.key, Source: processed}
	if len(sorted) > 0 {
		m.Label = s.key + "[" + key + "]"
	}
	module, err := lower(processed)
	if err != nil {
		return nil, fmt.Errorf("shader %s: invalid WGSL: %w", m.Label, err)
	}
	if err := reflectModule(m, module); err != nil {
		return nil, fmt.Errorf("shader %s: %w", m.Label, err)
	}
	if s.validate {
		spirv, err := compileSPIRV(module)
		if err != nil {
			return nil, fmt.Errorf("shader %s: invalid WGSL: %w", m.Label, err)
		}
		m.SPIRV = spirv
	}

	s.modules[key] = m
	return m, nil
}
