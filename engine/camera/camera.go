// Package camera provides the camera components the renderer draws from. A camera owns its
// projection settings and turns a controller's position and target into a renderer.View.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// Projection selects how a camera maps view space to clip space.
type Projection int

const (
	// ProjectionPerspective is the 3D projection used by ActiveCamera.
	ProjectionPerspective Projection = iota
	// ProjectionOrthographic is the 2D projection used by ActiveCamera2d.
	ProjectionOrthographic
)

func (p Projection) String() string {
	switch p {
	case ProjectionPerspective:
		return "perspective"
	case ProjectionOrthographic:
		return "orthographic"
	default:
		return "unknown"
	}
}

type cameraImpl struct {
	mu *sync.Mutex

	projection Projection
	up         [3]float32

	// Eye and target used when no controller is attached.
	position [3]float32
	target   [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32
	height float32

	viewMatrix           common.Mat4
	projectionMatrix     common.Mat4
	viewProjectionMatrix common.Mat4
	eye                  [3]float32

	controller CameraController
}

// Camera defines the interface for the camera component.
// The camera holds projection settings and computes its matrices on Update, reading the eye
// and target from an attached CameraController when there is one.
type Camera interface {
	// Projection returns the projection kind of the camera.
	Projection() Projection

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Fov returns the vertical field of view in radians. Orthographic cameras ignore it.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Height returns the height of the orthographic view volume in world units.
	Height() float32

	// ViewMatrix returns the view matrix computed by the last Update.
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the projection matrix computed by the last Update.
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns projection * view as computed by the last Update.
	ViewProjectionMatrix() common.Mat4

	// Position returns the eye position used by the last Update.
	Position() [3]float32

	// SetUp sets the camera's up vector.
	SetUp(x, y, z float32)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio. Non-positive values are ignored.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)

	// SetHeight sets the height of the orthographic view volume.
	SetHeight(height float32)

	// LookAt places the eye and target used while no controller is attached.
	//
	// Parameters:
	//   - eye: the camera position
	//   - target: the point the camera faces
	LookAt(eye, target [3]float32)

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// SetController attaches a controller. Passing nil detaches it.
	SetController(ctrl CameraController)

	// Update recomputes the view and projection matrices.
	Update()

	// View returns what the camera contributes to a frame, as of the last Update.
	//
	// Returns:
	//   - renderer.View: the view projection and eye position
	View() renderer.View
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings looking from (0, 0, 5)
// at the origin. The matrices are computed before it is returned.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		projection: ProjectionPerspective,
		up:         [3]float32{0, 1, 0},
		position:   [3]float32{0, 0, 5},
		fov:        45.0 * (math.Pi / 180.0),
		aspect:     1.0,
		near:       0.1,
		far:        100.0,
		height:     2.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

// NewCamera2d creates an orthographic Camera looking down -Z at the origin. The near and far
// planes default to -1000 and 1000 so sprites at any small Z are visible.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera2d(options ...CameraBuilderOption) Camera {
	opts := append([]CameraBuilderOption{
		WithProjection(ProjectionOrthographic),
		WithNear(-1000),
		WithFar(1000),
		WithPosition(0, 0, 1),
	}, options...)
	return NewCamera(opts...)
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Height() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
}

func (c *cameraImpl) SetHeight(height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = height
}

func (c *cameraImpl) LookAt(eye, target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = eye
	c.target = target
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) View() renderer.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return renderer.View{ViewProjection: c.viewProjectionMatrix, Position: c.eye}
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	eye, target := c.position, c.target
	if c.controller != nil {
		eye[0], eye[1], eye[2] = c.controller.Position()
		target[0], target[1], target[2] = c.controller.Target()
	}
	c.eye = eye
	c.viewMatrix = common.LookAt(eye, target, c.up)

	switch c.projection {
	case ProjectionOrthographic:
		halfH := c.height / 2
		halfW := halfH * c.aspect
		c.projectionMatrix = common.Orthographic(-halfW, halfW, -halfH, halfH, c.near, c.far)
	default:
		c.projectionMatrix = common.Perspective(c.fov, c.aspect, c.near, c.far)
	}

	c.viewProjectionMatrix = c.projectionMatrix.Mul(c.viewMatrix)
}
