package vertex

import (
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positionNormalUV(t *testing.T) Descriptor {
	t.Helper()
	d, err := NewDescriptor(
		[]string{"Vertex_Position", "Vertex_Normal", "Vertex_Uv"},
		[]wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x2},
	)
	require.NoError(t, err)
	return d
}

func TestNewDescriptorPacksOffsets(t *testing.T) {
	d := positionNormalUV(t)
	assert.Equal(t, uint64(32), d.Stride)
	assert.Equal(t, uint64(0), d.Attributes[0].Offset)
	assert.Equal(t, uint64(12), d.Attributes[1].Offset)
	assert.Equal(t, uint64(24), d.Attributes[2].Offset)

	uv, ok := d.Attribute("Vertex_Uv")
	require.True(t, ok)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, uv.Format)
}

func TestNewDescriptorRejectsMismatch(t *testing.T) {
	_, err := NewDescriptor([]string{"a", "b"}, []wgpu.VertexFormat{wgpu.VertexFormatFloat32})
	assert.Error(t, err)
}

func TestInternIsValueBased(t *testing.T) {
	r := NewRegistry()
	a := positionNormalUV(t)
	b := positionNormalUV(t)

	idA := r.Intern(a)
	idB := r.Intern(b)
	assert.Equal(t, idA, idB)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(idA)
	require.True(t, ok)
	assert.Equal(t, a.Key(), got.Key())
}

func TestInternDistinguishesLayouts(t *testing.T) {
	r := NewRegistry()
	a := positionNormalUV(t)
	b, err := NewDescriptor([]string{"Vertex_Position"}, []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3})
	require.NoError(t, err)

	assert.NotEqual(t, r.Intern(a), r.Intern(b))
	assert.Equal(t, 2, r.Len())

	_, ok := r.Get(LayoutID(99))
	assert.False(t, ok)
	_, ok = r.Get(LayoutID(0))
	assert.False(t, ok)
}

func TestInternCopiesAttributes(t *testing.T) {
	r := NewRegistry()
	d := positionNormalUV(t)
	id := r.Intern(d)
	d.Attributes[0].Name = "mutated"

	got, _ := r.Get(id)
	assert.Equal(t, "Vertex_Position", got.Attributes[0].Name)
}

func TestInternConcurrent(t *testing.T) {
	r := NewRegistry()
	d := positionNormalUV(t)

	var wg sync.WaitGroup
	ids := make([]LayoutID, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.Intern(d)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, r.Len())
}
