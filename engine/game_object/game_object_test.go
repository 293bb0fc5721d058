package game_object

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transformPoint(m common.Mat4, p [3]float32) [3]float32 {
	var out [3]float32
	for row := 0; row < 3; row++ {
		out[row] = m[row]*p[0] + m[4+row]*p[1] + m[8+row]*p[2] + m[12+row]
	}
	return out
}

func TestDefaultsToIdentity(t *testing.T) {
	g := NewGameObject()

	assert.True(t, g.Enabled())
	_, ok := g.Mesh()
	assert.False(t, ok)
	assert.Nil(t, g.Material())
	assert.Equal(t, common.Identity4(), g.Transform())
}

func TestTransformAppliesScaleRotationTranslation(t *testing.T) {
	g := NewGameObject(
		WithScale(2, 2, 2),
		WithRotation(0, 0, math.Pi/2),
		WithPosition(10, 0, 0),
	)

	p := transformPoint(g.Transform(), [3]float32{1, 0, 0})
	assert.InDelta(t, 10, p[0], 1e-5)
	assert.InDelta(t, 2, p[1], 1e-5)
	assert.InDelta(t, 0, p[2], 1e-5)
}

func TestAdvanceSpins(t *testing.T) {
	g := NewGameObject(WithRotationSpeed(0, 1, 0))
	g.Advance(0.5)
	g.Advance(0.25)

	_, ry, _ := g.Rotation()
	assert.InDelta(t, 0.75, ry, 1e-6)
}

func TestSettersReplaceComponents(t *testing.T) {
	h := asset.HandleFromPath(asset.KindMesh, "/assets/cube.gltf")
	g := NewGameObject(WithEnabled(false))
	g.SetMesh(h)
	g.SetEnabled(true)
	g.SetEntity(common.Entity{ID: 7})

	got, ok := g.Mesh()
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.True(t, g.Enabled())
	assert.Equal(t, uint32(7), g.Entity().ID)
}
