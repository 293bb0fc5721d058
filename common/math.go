package common

import (
	"encoding/binary"
	"math"
)

// Mat4 is a 4x4 float32 matrix stored in column-major order (WebGPU convention).
type Mat4 [16]float32

// Identity4 returns the identity matrix.
//
// Returns:
//   - Mat4: the identity matrix
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * other.
//
// Parameters:
//   - other: right-hand matrix
//
// Returns:
//   - Mat4: the product
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ { // column of other
		for j := 0; j < 4; j++ { // row of m
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += m[k*4+j] * other[i*4+k]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// Bytes serializes the matrix as 64 little-endian bytes for a uniform buffer write.
//
// Returns:
//   - []byte: the serialized matrix
func (m Mat4) Bytes() []byte {
	buf := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Translation builds a translation matrix.
//
// Parameters:
//   - x, y, z: translation in world space
//
// Returns:
//   - Mat4: the translation matrix
func Translation(x, y, z float32) Mat4 {
	m := Identity4()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scaling builds a scale matrix.
//
// Parameters:
//   - x, y, z: scale factors per axis
//
// Returns:
//   - Mat4: the scale matrix
func Scaling(x, y, z float32) Mat4 {
	m := Identity4()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotationXYZ builds a rotation matrix from Euler angles in radians, applied X first, then Y,
// then Z.
//
// Parameters:
//   - rx, ry, rz: rotation around each axis in radians
//
// Returns:
//   - Mat4: the rotation matrix
func RotationXYZ(rx, ry, rz float32) Mat4 {
	sx, cx := sincos(rx)
	sy, cy := sincos(ry)
	sz, cz := sincos(rz)

	rotX := Mat4{1, 0, 0, 0, 0, cx, sx, 0, 0, -sx, cx, 0, 0, 0, 0, 1}
	rotY := Mat4{cy, 0, -sy, 0, 0, 1, 0, 0, sy, 0, cy, 0, 0, 0, 0, 1}
	rotZ := Mat4{cz, sz, 0, 0, -sz, cz, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	return rotZ.Mul(rotY).Mul(rotX)
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

// Perspective creates a right-handed perspective projection for WebGPU clip space [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	m := Identity4()
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1.0
	m[14] = (near * far) / (near - far)
	m[15] = 0.0
	return m
}

// Orthographic creates a right-handed orthographic projection for WebGPU clip space [0, 1].
//
// Parameters:
//   - left, right, bottom, top: view volume extents
//   - near, far: clipping plane distances
//
// Returns:
//   - Mat4: the projection matrix
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	m := Identity4()
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = 1 / (near - far)
	m[12] = -(right + left) / (right - left)
	m[13] = -(top + bottom) / (top - bottom)
	m[14] = near / (near - far)
	return m
}

// LookAt creates a view matrix that transforms world coordinates to camera space.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation (typically 0,1,0)
//
// Returns:
//   - Mat4: the view matrix
func LookAt(eye, center, up [3]float32) Mat4 {
	z := normalize3([3]float32{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize3(cross3(up, z))
	y := cross3(z, x)

	var m Mat4
	m[0], m[4], m[8], m[12] = x[0], x[1], x[2], -dot3(x, eye)
	m[1], m[5], m[9], m[13] = y[0], y[1], y[2], -dot3(y, eye)
	m[2], m[6], m[10], m[14] = z[0], z[1], z[2], -dot3(z, eye)
	m[3], m[7], m[11], m[15] = 0, 0, 0, 1
	return m
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func normalize3(v [3]float32) [3]float32 {
	l := float64(dot3(v, v))
	if l == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(l))
	return [3]float32{v[0] * inv, v[1] * inv, v[2] * inv}
}
