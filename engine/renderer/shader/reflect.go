package shader

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// vertexFormatKey identifies a scalar or vector vertex input type.
type vertexFormatKey struct {
	kind  ir.ScalarKind
	width uint8
	size  uint8
}

var vertexFormats = map[vertexFormatKey]wgpu.VertexFormat{
	{ir.ScalarFloat, 4, 1}: wgpu.VertexFormatFloat32,
	{ir.ScalarFloat, 4, 2}: wgpu.VertexFormatFloat32x2,
	{ir.ScalarFloat, 4, 3}: wgpu.VertexFormatFloat32x3,
	{ir.ScalarFloat, 4, 4}: wgpu.VertexFormatFloat32x4,
	{ir.ScalarSint, 4, 1}:  wgpu.VertexFormatSint32,
	{ir.ScalarSint, 4, 2}:  wgpu.VertexFormatSint32x2,
	{ir.ScalarSint, 4, 3}:  wgpu.VertexFormatSint32x3,
	{ir.ScalarSint, 4, 4}:  wgpu.VertexFormatSint32x4,
	{ir.ScalarUint, 4, 1}:  wgpu.VertexFormatUint32,
	{ir.ScalarUint, 4, 2}:  wgpu.VertexFormatUint32x2,
	{ir.ScalarUint, 4, 3}:  wgpu.VertexFormatUint32x3,
	{ir.ScalarUint, 4, 4}:  wgpu.VertexFormatUint32x4,
	{ir.ScalarFloat, 2, 2}: wgpu.VertexFormatFloat16x2,
	{ir.ScalarFloat, 2, 4}: wgpu.VertexFormatFloat16x4,
}

var viewDimensions = map[ir.ImageDimension]wgpu.TextureViewDimension{
	ir.Dim1D:   wgpu.TextureViewDimension1D,
	ir.Dim2D:   wgpu.TextureViewDimension2D,
	ir.Dim3D:   wgpu.TextureViewDimension3D,
	ir.DimCube: wgpu.TextureViewDimensionCube,
}

var sampleTypes = map[ir.ScalarKind]wgpu.TextureSampleType{
	ir.ScalarFloat: wgpu.TextureSampleTypeFloat,
	ir.ScalarSint:  wgpu.TextureSampleTypeSint,
	ir.ScalarUint:  wgpu.TextureSampleTypeUint,
}

// lower parses processed WGSL and lowers it to naga IR.
//
// Parameters:
//   - source: WGSL with every preprocessor directive resolved
//
// Returns:
//   - *ir.Module: the lowered module
//   - error: error if the source does not parse or type-check
func lower(source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	return naga.LowerWithSource(ast, source)
}

// compileSPIRV validates a lowered module and generates SPIR-V from it.
func compileSPIRV(module *ir.Module) ([]byte, error) {
	opts := naga.DefaultOptions()
	issues, err := naga.Validate(module)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, &issues[0]
	}
	return naga.GenerateSPIRV(module, spirv.Options{Version: opts.SPIRVVersion, Debug: opts.Debug})
}

// reflectModule fills m's entry points, vertex inputs and bindings from the lowered module.
// The first vertex and the first fragment entry point are used.
//
// Parameters:
//   - m: the module to populate
//   - module: the lowered IR of m.Source
//
// Returns:
//   - error: error if there is no entry point or a declaration cannot be mapped to wgpu
func reflectModule(m *Module, module *ir.Module) error {
	var visibility wgpu.ShaderStage
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		switch ep.Stage {
		case ir.StageVertex:
			if m.VertexEntry != "" {
				continue
			}
			inputs, err := vertexInputs(module, &ep.Function)
			if err != nil {
				return fmt.Errorf("vertex entry %s: %w", ep.Name, err)
			}
			m.VertexEntry = ep.Name
			m.Inputs = inputs
			visibility |= wgpu.ShaderStageVertex
		case ir.StageFragment:
			if m.FragmentEntry != "" {
				continue
			}
			m.FragmentEntry = ep.Name
			visibility |= wgpu.ShaderStageFragment
		}
	}
	if visibility == wgpu.ShaderStageNone {
		return fmt.Errorf("no @vertex or @fragment entry point")
	}

	bindings, err := resourceBindings(module, visibility)
	if err != nil {
		return err
	}
	m.Bindings = bindings
	return nil
}

// vertexInputs resolves the @location inputs of a vertex entry point. Arguments may carry
// @location directly or be a struct whose members do.
func vertexInputs(module *ir.Module, fn *ir.Function) ([]VertexInput, error) {
	var inputs []VertexInput
	add := func(name string, binding *ir.Binding, ty ir.TypeHandle) error {
		loc, ok := location(binding)
		if !ok {
			return nil
		}
		format, ok := vertexFormat(module, ty)
		if !ok {
			return fmt.Errorf("input %q has unsupported vertex type %s", name, typeName(module, ty))
		}
		inputs = append(inputs, VertexInput{Name: name, Location: loc, Format: format})
		return nil
	}

	for _, arg := range fn.Arguments {
		if arg.Binding != nil {
			if err := add(arg.Name, arg.Binding, arg.Type); err != nil {
				return nil, err
			}
			continue
		}
		st, ok := typeInner(module, arg.Type).(ir.StructType)
		if !ok {
			return nil, fmt.Errorf("argument %q has no binding and is not a struct", arg.Name)
		}
		for _, member := range st.Members {
			if err := add(member.Name, member.Binding, member.Type); err != nil {
				return nil, err
			}
		}
	}

	slices.SortFunc(inputs, func(a, b VertexInput) int { return cmp.Compare(a.Location, b.Location) })
	for i := 1; i < len(inputs); i++ {
		if inputs[i].Location == inputs[i-1].Location {
			return nil, fmt.Errorf("inputs %q and %q share @location(%d)", inputs[i-1].Name, inputs[i].Name, inputs[i].Location)
		}
	}
	return inputs, nil
}

// resourceBindings reflects every global with a @group/@binding. Bindings are sorted by slot
// and a slot declared twice is an error.
func resourceBindings(module *ir.Module, visibility wgpu.ShaderStage) ([]Binding, error) {
	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Group:    gv.Binding.Group,
			Binding:  gv.Binding.Binding,
			Name:     gv.Name,
			TypeName: typeName(module, gv.Type),
			Layout:   wgpu.BindGroupLayoutEntry{Binding: gv.Binding.Binding, Visibility: visibility},
		}
		if err := classify(&b, module, gv); err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	slices.SortFunc(out, func(a, b Binding) int { return cmp.Compare(a.Slot(), b.Slot()) })
	for i := 1; i < len(out); i++ {
		if out[i].Slot() == out[i-1].Slot() {
			return nil, fmt.Errorf("%q and %q both declared at %s", out[i-1].Name, out[i].Name, out[i].Slot())
		}
	}
	return out, nil
}

// classify derives the resource kind and layout entry of a bound global.
func classify(b *Binding, module *ir.Module, gv ir.GlobalVariable) error {
	switch gv.Space {
	case ir.SpaceUniform:
		b.Kind = render_resource.KindUniformBuffer
		b.Layout.Buffer.Type = wgpu.BufferBindingTypeUniform
		b.Size = uint64(ir.TypeSize(module, gv.Type))
		b.Layout.Buffer.MinBindingSize = b.Size
		return nil
	case ir.SpaceStorage:
		b.Kind = render_resource.KindStorageBuffer
		b.Layout.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if gv.Access == ir.StorageReadWrite {
			b.Layout.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		b.Size = uint64(ir.TypeSize(module, gv.Type))
		b.Layout.Buffer.MinBindingSize = b.Size
		return nil
	case ir.SpaceHandle:
	default:
		return fmt.Errorf("%s: unsupported address space %d", b.Name, gv.Space)
	}

	switch t := typeInner(module, gv.Type).(type) {
	case ir.SamplerType:
		b.Kind = render_resource.KindSampler
		b.Layout.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		if t.Comparison {
			b.Layout.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
	case ir.ImageType:
		dim, ok := viewDimensions[t.Dim]
		if !ok || t.Class == ir.ImageClassStorage || t.Class == ir.ImageClassExternal {
			return fmt.Errorf("%s: unsupported texture type %s", b.Name, b.TypeName)
		}
		if t.Arrayed {
			switch dim {
			case wgpu.TextureViewDimension2D:
				dim = wgpu.TextureViewDimension2DArray
			case wgpu.TextureViewDimensionCube:
				dim = wgpu.TextureViewDimensionCubeArray
			}
		}
		b.Kind = render_resource.KindSampledTexture
		b.Layout.Texture.ViewDimension = dim
		b.Layout.Texture.Multisampled = t.Multisampled
		if t.Class == ir.ImageClassDepth {
			b.Layout.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else if st, ok := sampleTypes[t.SampledKind]; ok {
			b.Layout.Texture.SampleType = st
		}
	default:
		return fmt.Errorf("%s: unsupported resource type %s", b.Name, b.TypeName)
	}
	return nil
}

// location returns the @location index of a binding, if it is one.
func location(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	switch lb := (*b).(type) {
	case ir.LocationBinding:
		return lb.Location, true
	case *ir.LocationBinding:
		return lb.Location, true
	}
	return 0, false
}

func vertexFormat(module *ir.Module, h ir.TypeHandle) (wgpu.VertexFormat, bool) {
	var key vertexFormatKey
	switch t := typeInner(module, h).(type) {
	case ir.ScalarType:
		key = vertexFormatKey{t.Kind, t.Width, 1}
	case ir.VectorType:
		key = vertexFormatKey{t.Scalar.Kind, t.Scalar.Width, uint8(t.Size)}
	default:
		return 0, false
	}
	f, ok := vertexFormats[key]
	return f, ok
}

func typeInner(module *ir.Module, h ir.TypeHandle) ir.TypeInner {
	if int(h) >= len(module.Types) {
		return nil
	}
	return module.Types[h].Inner
}

// typeName renders a type for labels and errors: the declared name for structs and aliases,
// otherwise a WGSL-like spelling.
func typeName(module *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(module.Types) {
		return "<invalid>"
	}
	if name := module.Types[h].Name; name != "" {
		return name
	}
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return scalarName(t)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return fmt.Sprintf("array<%s>", typeName(module, t.Base))
		}
		return fmt.Sprintf("array<%s, %d>", typeName(module, t.Base), *t.Size.Constant)
	case ir.SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ir.ImageType:
		return "texture"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		return fmt.Sprintf("f%d", int(s.Width)*8)
	case ir.ScalarSint:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarBool:
		return "bool"
	default:
		return "abstract"
	}
}
