// Package game_object holds the per-entity component bundle a scene stores: the Renderable
// marker, the mesh reference, the material and the transform.
package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
)

type gameObject struct {
	mu *sync.Mutex

	entity  common.Entity
	enabled atomic.Bool

	mesh    asset.Handle
	hasMesh bool
	mat     material.Material

	position      [3]float32
	rotation      [3]float32
	rotationSpeed [3]float32
	scale         [3]float32
}

// GameObject defines the components of one scene entity.
// An enabled object carries the Renderable marker; the renderer draws it once its mesh and
// material assets are loaded.
type GameObject interface {
	// Entity returns the entity the object was spawned as. It is the zero Entity until the
	// object is added to a scene.
	Entity() common.Entity

	// SetEntity records the entity the object was spawned as. Scenes call it on spawn.
	SetEntity(e common.Entity)

	// Enabled returns whether the object carries the Renderable marker.
	Enabled() bool

	// SetEnabled adds or removes the Renderable marker.
	SetEnabled(enabled bool)

	// Mesh returns the mesh asset of the object.
	//
	// Returns:
	//   - asset.Handle: the mesh handle
	//   - bool: false if no mesh is set
	Mesh() (asset.Handle, bool)

	// SetMesh sets the mesh asset of the object.
	SetMesh(h asset.Handle)

	// Material returns the material of the object, or nil.
	Material() material.Material

	// SetMaterial sets the material of the object.
	SetMaterial(m material.Material)

	// Position returns the object's world position.
	Position() (x, y, z float32)

	// Rotation returns the object's Euler rotation in radians.
	Rotation() (rx, ry, rz float32)

	// RotationSpeed returns the object's spin in radians per second.
	RotationSpeed() (rx, ry, rz float32)

	// Scale returns the object's scale factors.
	Scale() (sx, sy, sz float32)

	// SetPosition sets the object's world position.
	SetPosition(x, y, z float32)

	// SetRotation sets the object's Euler rotation in radians.
	SetRotation(rx, ry, rz float32)

	// SetRotationSpeed sets the object's spin in radians per second.
	SetRotationSpeed(rx, ry, rz float32)

	// SetScale sets the object's scale factors.
	SetScale(sx, sy, sz float32)

	// Advance applies the rotation speed for dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// Transform returns the model matrix translation * rotation * scale.
	//
	// Returns:
	//   - common.Mat4: the model matrix
	Transform() common.Mat4
}

var _ GameObject = &gameObject{}

// NewGameObject creates an enabled GameObject at the origin with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		mu:    &sync.Mutex{},
		scale: [3]float32{1, 1, 1},
	}
	g.enabled.Store(true)
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *gameObject) Entity() common.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entity
}

func (g *gameObject) SetEntity(e common.Entity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entity = e
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Mesh() (asset.Handle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mesh, g.hasMesh
}

func (g *gameObject) SetMesh(h asset.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mesh = h
	g.hasMesh = true
}

func (g *gameObject) Material() material.Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mat
}

func (g *gameObject) SetMaterial(m material.Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mat = m
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position[0], g.position[1], g.position[2]
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation[0], g.rotation[1], g.rotation[2]
}

func (g *gameObject) RotationSpeed() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed[0], g.rotationSpeed[1], g.rotationSpeed[2]
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale[0], g.scale[1], g.scale[2]
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) Advance(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.rotation {
		g.rotation[i] += g.rotationSpeed[i] * dt
	}
}

func (g *gameObject) Transform() common.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := common.Translation(g.position[0], g.position[1], g.position[2])
	r := common.RotationXYZ(g.rotation[0], g.rotation[1], g.rotation[2])
	s := common.Scaling(g.scale[0], g.scale[1], g.scale[2])
	return t.Mul(r).Mul(s)
}
