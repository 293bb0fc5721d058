package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func apply(m Mat4, p [3]float32) [3]float32 {
	var out [3]float32
	for row := 0; row < 3; row++ {
		out[row] = m[row]*p[0] + m[4+row]*p[1] + m[8+row]*p[2] + m[12+row]
	}
	return out
}

func TestMulAppliesRightOperandFirst(t *testing.T) {
	m := Translation(1, 0, 0).Mul(Scaling(2, 2, 2))
	p := apply(m, [3]float32{1, 1, 1})
	assert.Equal(t, [3]float32{3, 2, 2}, p)
	assert.Equal(t, m, m.Mul(Identity4()))
}

func TestRotationXYZ(t *testing.T) {
	y := apply(RotationXYZ(math.Pi/2, 0, 0), [3]float32{0, 1, 0})
	assert.InDelta(t, 1, y[2], 1e-6)

	x := apply(RotationXYZ(0, math.Pi/2, 0), [3]float32{1, 0, 0})
	assert.InDelta(t, -1, x[2], 1e-6)

	// X is applied first: +Y turns to +Z, then Z rotation leaves it there.
	p := apply(RotationXYZ(math.Pi/2, 0, math.Pi/2), [3]float32{0, 1, 0})
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
	assert.InDelta(t, 1, p[2], 1e-6)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := [3]float32{3, 4, 5}
	v := LookAt(eye, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	p := apply(v, eye)
	for _, c := range p {
		assert.InDelta(t, 0, c, 1e-5)
	}
	target := apply(v, [3]float32{0, 0, 0})
	assert.Less(t, target[2], float32(0), "the target lies down -Z")
}

func TestBytesIsLittleEndianColumnMajor(t *testing.T) {
	b := Translation(1, 0, 0).Bytes()
	assert.Len(t, b, 64)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, b[48:52])
}
