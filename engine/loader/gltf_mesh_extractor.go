package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/mesh"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor converts the primitives of a parsed glTF document into mesh assets.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every primitive of one glTF mesh, in primitive order.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []*mesh.Mesh: one mesh per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]*mesh.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

// gltfAttributes maps glTF attribute semantics to mesh attribute names.
var gltfAttributes = map[string]string{
	"POSITION":   mesh.AttributePosition,
	"NORMAL":     mesh.AttributeNormal,
	"TEXCOORD_0": mesh.AttributeUv,
	"COLOR_0":    mesh.AttributeColor,
	"TANGENT":    mesh.AttributeTangent,
}

var floatFormats = [...]wgpu.VertexFormat{
	1: wgpu.VertexFormatFloat32,
	2: wgpu.VertexFormatFloat32x2,
	3: wgpu.VertexFormatFloat32x3,
	4: wgpu.VertexFormatFloat32x4,
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]*mesh.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	m := &doc.Meshes[meshIndex]
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("Mesh%d", meshIndex)
	}

	result := make([]*mesh.Mesh, 0, len(m.Primitives))
	for primIdx := range m.Primitives {
		out, err := e.extractPrimitive(&m.Primitives[primIdx], fmt.Sprintf("%s/Primitive%d", name, primIdx))
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		result = append(result, out)
	}

	return result, nil
}

// extractPrimitive builds one mesh from a primitive. Attributes without an engine name
// (JOINTS_0, WEIGHTS_0, extra UV sets) are skipped. Triangle lists without normals get
// generated smooth normals.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, label string) (*mesh.Mesh, error) {
	topology, err := gltfTopology(prim.Mode)
	if err != nil {
		return nil, err
	}
	if _, ok := prim.Attributes["POSITION"]; !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	out := mesh.New(label, topology)
	for semantic, accessorIndex := range prim.Attributes {
		name, ok := gltfAttributes[semantic]
		if !ok {
			continue
		}
		values, components, err := e.parser.ReadFloatAccessor(accessorIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", semantic, err)
		}
		if semantic == "COLOR_0" && components == 3 {
			values, components = expandRGB(values), 4
		}
		if err := out.SetAttribute(name, floatFormats[components], values); err != nil {
			return nil, err
		}
	}

	if prim.Indices != nil {
		indices, err := e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		out.Indices = indices
	}

	if _, ok := out.Attribute(mesh.AttributeNormal); !ok && topology == wgpu.PrimitiveTopologyTriangleList {
		if err := out.GenerateNormals(); err != nil {
			return nil, err
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// gltfTopology maps a glTF primitive mode to a wgpu topology. Loops and fans have no
// wgpu equivalent and are rejected.
func gltfTopology(mode *int) (wgpu.PrimitiveTopology, error) {
	if mode == nil {
		return wgpu.PrimitiveTopologyTriangleList, nil
	}
	switch *mode {
	case gltfPrimitiveModePoints:
		return wgpu.PrimitiveTopologyPointList, nil
	case gltfPrimitiveModeLines:
		return wgpu.PrimitiveTopologyLineList, nil
	case gltfPrimitiveModeLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case gltfPrimitiveModeTriangles:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case gltfPrimitiveModeTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, nil
	default:
		return 0, fmt.Errorf("unsupported primitive mode: %d", *mode)
	}
}

func expandRGB(values []float32) []float32 {
	out := make([]float32, 0, len(values)/3*4)
	for i := 0; i+2 < len(values); i += 3 {
		out = append(out, values[i], values[i+1], values[i+2], 1)
	}
	return out
}
