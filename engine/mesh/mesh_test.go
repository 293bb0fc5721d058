package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAttributeKeepsNameOrder(t *testing.T) {
	m := New("tri", wgpu.PrimitiveTopologyTriangleList)
	require.NoError(t, m.SetAttribute(AttributeUv, wgpu.VertexFormatFloat32x2, []float32{0, 0, 1, 0, 0, 1}))
	require.NoError(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}))
	require.NoError(t, m.SetAttribute(AttributeColor, wgpu.VertexFormatFloat32x4, make([]float32, 12)))

	names := []string{}
	for _, a := range m.Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{AttributeColor, AttributePosition, AttributeUv}, names)
	assert.Equal(t, 3, m.VertexCount())
	assert.NoError(t, m.Validate())

	require.NoError(t, m.SetAttribute(AttributeUv, wgpu.VertexFormatFloat32x2, []float32{1, 1, 1, 1, 1, 1}))
	assert.Len(t, m.Attributes, 3)
}

func TestSetAttributeRejectsBadInput(t *testing.T) {
	m := New("bad", wgpu.PrimitiveTopologyTriangleList)
	assert.Error(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatUint32, []float32{1}))
	assert.Error(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, []float32{1, 2}))
}

func TestValidateCatchesMismatches(t *testing.T) {
	m := New("mismatch", wgpu.PrimitiveTopologyTriangleList)
	assert.Error(t, m.Validate())

	require.NoError(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, make([]float32, 9)))
	require.NoError(t, m.SetAttribute(AttributeUv, wgpu.VertexFormatFloat32x2, make([]float32, 4)))
	assert.Error(t, m.Validate())

	require.NoError(t, m.SetAttribute(AttributeUv, wgpu.VertexFormatFloat32x2, make([]float32, 6)))
	m.Indices = []uint32{0, 1, 3}
	assert.Error(t, m.Validate())
}

func TestSameAttributesShareLayout(t *testing.T) {
	cube, err := Cube(1).VertexLayout()
	require.NoError(t, err)
	quad, err := Quad(2, 1).VertexLayout()
	require.NoError(t, err)

	registry := vertex.NewRegistry()
	assert.Equal(t, registry.Intern(cube), registry.Intern(quad))
	assert.Equal(t, uint64(32), cube.Stride)

	uv, ok := cube.Attribute(AttributeUv)
	require.True(t, ok)
	assert.Equal(t, uint64(24), uv.Offset)
}

func TestVertexBytesInterleaves(t *testing.T) {
	m := New("line", wgpu.PrimitiveTopologyLineList)
	require.NoError(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, []float32{1, 2, 3, 4, 5, 6}))
	require.NoError(t, m.SetAttribute(AttributeUv, wgpu.VertexFormatFloat32x2, []float32{7, 8, 9, 10}))

	buf := m.VertexBytes()
	require.Len(t, buf, 2*20)
	read := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])) }
	assert.Equal(t, []float32{1, 2, 3, 7, 8, 4, 5, 6, 9, 10}, []float32{
		read(0), read(1), read(2), read(3), read(4), read(5), read(6), read(7), read(8), read(9),
	})

	assert.Nil(t, m.IndexBytes())
	m.Indices = []uint32{1, 0}
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, m.IndexBytes())
}

func TestGenerateNormals(t *testing.T) {
	m := New("tri", wgpu.PrimitiveTopologyTriangleList)
	require.NoError(t, m.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}))
	require.NoError(t, m.GenerateNormals())

	n, ok := m.Attribute(AttributeNormal)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}, n.Values, 1e-6)

	lines := New("lines", wgpu.PrimitiveTopologyLineList)
	require.NoError(t, lines.SetAttribute(AttributePosition, wgpu.VertexFormatFloat32x3, make([]float32, 6)))
	assert.Error(t, lines.GenerateNormals())
}

func TestCubeIsValid(t *testing.T) {
	c := Cube(2)
	assert.NoError(t, c.Validate())
	assert.Equal(t, 24, c.VertexCount())
	assert.Len(t, c.Indices, 36)
}
