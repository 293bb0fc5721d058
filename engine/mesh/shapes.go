package mesh

import "github.com/cogentcore/webgpu/wgpu"

// Cube builds an axis-aligned cube centered on the origin with per-face normals and uvs.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *Mesh: a 24-vertex, 36-index triangle list
func Cube(size float32) *Mesh {
	h := size / 2
	faces := []struct {
		positions [4][3]float32
		normal    [3]float32
	}{
		{[4][3]float32{{h, -h, -h}, {h, h, -h}, {h, h, h}, {h, -h, h}}, [3]float32{1, 0, 0}},
		{[4][3]float32{{-h, -h, h}, {-h, h, h}, {-h, h, -h}, {-h, -h, -h}}, [3]float32{-1, 0, 0}},
		{[4][3]float32{{-h, h, -h}, {-h, h, h}, {h, h, h}, {h, h, -h}}, [3]float32{0, 1, 0}},
		{[4][3]float32{{-h, -h, h}, {-h, -h, -h}, {h, -h, -h}, {h, -h, h}}, [3]float32{0, -1, 0}},
		{[4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}, [3]float32{0, 0, 1}},
		{[4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}, [3]float32{0, 0, -1}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	positions := make([]float32, 0, 24*3)
	normals := make([]float32, 0, 24*3)
	texcoords := make([]float32, 0, 24*2)
	indices := make([]uint32, 0, 36)
	for fi, face := range faces {
		for vi, p := range face.positions {
			positions = append(positions, p[:]...)
			normals = append(normals, face.normal[:]...)
			texcoords = append(texcoords, uvs[vi][:]...)
		}
		base := uint32(fi * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	m := New("cube", wgpu.PrimitiveTopologyTriangleList)
	m.Attributes = []Attribute{
		{Name: AttributeNormal, Format: wgpu.VertexFormatFloat32x3, Values: normals},
		{Name: AttributePosition, Format: wgpu.VertexFormatFloat32x3, Values: positions},
		{Name: AttributeUv, Format: wgpu.VertexFormatFloat32x2, Values: texcoords},
	}
	m.Indices = indices
	return m
}

// Quad builds a unit-normal quad in the XY plane facing +Z.
//
// Parameters:
//   - width, height: the quad extents
//
// Returns:
//   - *Mesh: a 4-vertex, 6-index triangle list
func Quad(width, height float32) *Mesh {
	w, h := width/2, height/2
	m := New("quad", wgpu.PrimitiveTopologyTriangleList)
	m.Attributes = []Attribute{
		{Name: AttributeNormal, Format: wgpu.VertexFormatFloat32x3, Values: []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1}},
		{Name: AttributePosition, Format: wgpu.VertexFormatFloat32x3, Values: []float32{-w, -h, 0, w, -h, 0, w, h, 0, -w, h, 0}},
		{Name: AttributeUv, Format: wgpu.VertexFormatFloat32x2, Values: []float32{0, 1, 1, 1, 1, 0, 0, 0}},
	}
	m.Indices = []uint32{0, 1, 2, 0, 2, 3}
	return m
}
