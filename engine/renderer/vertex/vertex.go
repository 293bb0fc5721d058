// Package vertex describes vertex buffer layouts and interns them so that every structurally
// equal layout maps to one stable LayoutID for the lifetime of the process.
package vertex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Attribute is one named vertex attribute inside an interleaved vertex buffer.
type Attribute struct {
	// Name matches the WGSL vertex input field name it feeds, e.g. "Vertex_Position".
	Name string
	// Format is the attribute's component format.
	Format wgpu.VertexFormat
	// Offset is the byte offset of the attribute within one vertex.
	Offset uint64
}

// Descriptor is the full layout of one vertex buffer. Two descriptors are equal when every
// attribute, the stride and the step mode are equal; Key renders that identity as a string.
type Descriptor struct {
	Attributes []Attribute
	Stride     uint64
	StepMode   wgpu.VertexStepMode
}

// NewDescriptor builds a tightly packed descriptor: offsets follow attribute order and the
// stride is the sum of the attribute sizes.
//
// Parameters:
//   - names: attribute names in buffer order
//   - formats: attribute formats, one per name
//
// Returns:
//   - Descriptor: the packed descriptor
//   - error: error if the slices differ in length or a format has no known size
func NewDescriptor(names []string, formats []wgpu.VertexFormat) (Descriptor, error) {
	if len(names) != len(formats) {
		return Descriptor{}, fmt.Errorf("vertex: %d attribute names for %d formats", len(names), len(formats))
	}

	d := Descriptor{StepMode: wgpu.VertexStepModeVertex}
	for i, name := range names {
		size := FormatSize(formats[i])
		if size == 0 {
			return Descriptor{}, fmt.Errorf("vertex: attribute %q has unsupported format %v", name, formats[i])
		}
		d.Attributes = append(d.Attributes, Attribute{Name: name, Format: formats[i], Offset: d.Stride})
		d.Stride += size
	}
	return d, nil
}

// Attribute returns the attribute with the given name.
//
// Parameters:
//   - name: the attribute name
//
// Returns:
//   - Attribute: the attribute
//   - bool: true if the descriptor contains it
func (d Descriptor) Attribute(name string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Key returns the canonical string identity of the descriptor.
func (d Descriptor) Key() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(d.Stride, 10))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(int(d.StepMode)))
	for _, a := range d.Attributes {
		sb.WriteByte('|')
		sb.WriteString(a.Name)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(a.Format)))
		sb.WriteByte('@')
		sb.WriteString(strconv.FormatUint(a.Offset, 10))
	}
	return sb.String()
}

// FormatSize returns the byte size of a vertex format, or 0 if the format is unknown.
//
// Parameters:
//   - f: the vertex format
//
// Returns:
//   - uint64: the size in bytes
func FormatSize(f wgpu.VertexFormat) uint64 {
	switch f {
	case wgpu.VertexFormatUint8x2, wgpu.VertexFormatSint8x2, wgpu.VertexFormatUnorm8x2, wgpu.VertexFormatSnorm8x2:
		return 2
	case wgpu.VertexFormatUint8x4, wgpu.VertexFormatSint8x4, wgpu.VertexFormatUnorm8x4, wgpu.VertexFormatSnorm8x4,
		wgpu.VertexFormatUint16x2, wgpu.VertexFormatSint16x2, wgpu.VertexFormatUnorm16x2, wgpu.VertexFormatSnorm16x2,
		wgpu.VertexFormatFloat16x2, wgpu.VertexFormatFloat32, wgpu.VertexFormatUint32, wgpu.VertexFormatSint32:
		return 4
	case wgpu.VertexFormatUint16x4, wgpu.VertexFormatSint16x4, wgpu.VertexFormatUnorm16x4, wgpu.VertexFormatSnorm16x4,
		wgpu.VertexFormatFloat16x4, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatUint32x2, wgpu.VertexFormatSint32x2:
		return 8
	case wgpu.VertexFormatFloat32x3, wgpu.VertexFormatUint32x3, wgpu.VertexFormatSint32x3:
		return 12
	case wgpu.VertexFormatFloat32x4, wgpu.VertexFormatUint32x4, wgpu.VertexFormatSint32x4:
		return 16
	default:
		return 0
	}
}

// FloatComponents returns the component count of a 32-bit float format, or 0 for any other format.
//
// Parameters:
//   - f: the vertex format
//
// Returns:
//   - int: 1 to 4 for Float32 formats, otherwise 0
func FloatComponents(f wgpu.VertexFormat) int {
	switch f {
	case wgpu.VertexFormatFloat32:
		return 1
	case wgpu.VertexFormatFloat32x2:
		return 2
	case wgpu.VertexFormatFloat32x3:
		return 3
	case wgpu.VertexFormatFloat32x4:
		return 4
	default:
		return 0
	}
}
