// Package mesh holds CPU-side geometry assets. A Mesh is a set of named float attributes plus
// an optional index list; its vertex layout is derived from the attribute set, so two meshes
// with the same attributes share one interned layout and therefore one compiled pipeline.
package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"

	"github.com/cogentcore/webgpu/wgpu"
)

// Standard attribute names. Shaders consume them by declaring vertex inputs with the same name.
const (
	AttributePosition = "Vertex_Position"
	AttributeNormal   = "Vertex_Normal"
	AttributeUv       = "Vertex_Uv"
	AttributeColor    = "Vertex_Color"
	AttributeTangent  = "Vertex_Tangent"
)

// Attribute is one named per-vertex stream. Values holds FloatComponents(Format) floats per vertex.
type Attribute struct {
	Name   string
	Format wgpu.VertexFormat
	Values []float32
}

// Mesh is vertex and index data for one draw. Attributes are kept sorted by name.
type Mesh struct {
	Label      string
	Topology   wgpu.PrimitiveTopology
	Attributes []Attribute
	Indices    []uint32
}

// New creates an empty mesh.
//
// Parameters:
//   - label: the debug label of the mesh
//   - topology: the primitive topology the indices describe
//
// Returns:
//   - *Mesh: the new mesh
func New(label string, topology wgpu.PrimitiveTopology) *Mesh {
	return &Mesh{Label: label, Topology: topology}
}

// SetAttribute inserts or replaces an attribute.
//
// Parameters:
//   - name: the attribute name
//   - format: a Float32 vertex format
//   - values: the flattened values, FloatComponents(format) per vertex
//
// Returns:
//   - error: error if the format is not a float format or values is not a whole number of vertices
func (m *Mesh) SetAttribute(name string, format wgpu.VertexFormat, values []float32) error {
	n := vertex.FloatComponents(format)
	if n == 0 {
		return fmt.Errorf("mesh %s: attribute %q: unsupported format %v", m.Label, name, format)
	}
	if len(values)%n != 0 {
		return fmt.Errorf("mesh %s: attribute %q: %d values is not a multiple of %d", m.Label, name, len(values), n)
	}

	attr := Attribute{Name: name, Format: format, Values: values}
	i, found := slices.BinarySearchFunc(m.Attributes, name, func(a Attribute, name string) int {
		return strings.Compare(a.Name, name)
	})
	if found {
		m.Attributes[i] = attr
	} else {
		m.Attributes = slices.Insert(m.Attributes, i, attr)
	}
	return nil
}

// Attribute returns the attribute with the given name.
func (m *Mesh) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// VertexCount returns the number of vertices, taken from the first attribute.
func (m *Mesh) VertexCount() int {
	if len(m.Attributes) == 0 {
		return 0
	}
	a := m.Attributes[0]
	return len(a.Values) / vertex.FloatComponents(a.Format)
}

// Validate checks that every attribute has the same vertex count and that indices are in range.
//
// Returns:
//   - error: the first inconsistency found
func (m *Mesh) Validate() error {
	if len(m.Attributes) == 0 {
		return fmt.Errorf("mesh %s: no attributes", m.Label)
	}
	count := m.VertexCount()
	for _, a := range m.Attributes[1:] {
		if n := len(a.Values) / vertex.FloatComponents(a.Format); n != count {
			return fmt.Errorf("mesh %s: attribute %q has %d vertices, %q has %d", m.Label, a.Name, n, m.Attributes[0].Name, count)
		}
	}
	for i, idx := range m.Indices {
		if int(idx) >= count {
			return fmt.Errorf("mesh %s: index %d at position %d out of range (%d vertices)", m.Label, idx, i, count)
		}
	}
	return nil
}

// VertexLayout returns the interleaved layout of the mesh: attributes in name order, tightly packed.
//
// Returns:
//   - vertex.Descriptor: the layout
//   - error: error if the mesh has no attributes
func (m *Mesh) VertexLayout() (vertex.Descriptor, error) {
	if len(m.Attributes) == 0 {
		return vertex.Descriptor{}, fmt.Errorf("mesh %s: no attributes", m.Label)
	}
	names := make([]string, len(m.Attributes))
	formats := make([]wgpu.VertexFormat, len(m.Attributes))
	for i, a := range m.Attributes {
		names[i] = a.Name
		formats[i] = a.Format
	}
	return vertex.NewDescriptor(names, formats)
}

// VertexBytes interleaves every attribute into one little-endian vertex buffer matching VertexLayout.
//
// Returns:
//   - []byte: the vertex buffer contents
func (m *Mesh) VertexBytes() []byte {
	count := m.VertexCount()
	stride := 0
	for _, a := range m.Attributes {
		stride += vertex.FloatComponents(a.Format) * 4
	}

	buf := make([]byte, count*stride)
	offset := 0
	for _, a := range m.Attributes {
		n := vertex.FloatComponents(a.Format)
		for v := range count {
			dst := v*stride + offset
			for c := range n {
				binary.LittleEndian.PutUint32(buf[dst+c*4:], math.Float32bits(a.Values[v*n+c]))
			}
		}
		offset += n * 4
	}
	return buf
}

// IndexBytes returns the indices as a little-endian uint32 index buffer, or nil for a non-indexed mesh.
func (m *Mesh) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// GenerateNormals computes smooth, area-weighted vertex normals from the triangle list and
// stores them as AttributeNormal. Non-indexed meshes are treated as sequential triangles.
//
// Returns:
//   - error: error if the mesh has no position attribute or is not a triangle list
func (m *Mesh) GenerateNormals() error {
	pos, ok := m.Attribute(AttributePosition)
	if !ok || pos.Format != wgpu.VertexFormatFloat32x3 {
		return fmt.Errorf("mesh %s: normals need a Float32x3 %s attribute", m.Label, AttributePosition)
	}
	if m.Topology != wgpu.PrimitiveTopologyTriangleList {
		return fmt.Errorf("mesh %s: normals can only be generated for triangle lists", m.Label)
	}

	n := len(pos.Values) / 3
	indices := m.Indices
	if len(indices) == 0 {
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	at := func(i uint32) [3]float32 {
		return [3]float32{pos.Values[i*3], pos.Values[i*3+1], pos.Values[i*3+2]}
	}
	accum := make([]float32, n*3)
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}
		p0, p1, p2 := at(i0), at(i1), at(i2)
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx*3] += face[0]
			accum[idx*3+1] += face[1]
			accum[idx*3+2] += face[2]
		}
	}

	for i := range n {
		x, y, z := accum[i*3], accum[i*3+1], accum[i*3+2]
		length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if length < 1e-6 {
			accum[i*3], accum[i*3+1], accum[i*3+2] = 0, 1, 0
			continue
		}
		accum[i*3], accum[i*3+1], accum[i*3+2] = x/length, y/length, z/length
	}
	return m.SetAttribute(AttributeNormal, wgpu.VertexFormatFloat32x3, accum)
}
