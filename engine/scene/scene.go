// Package scene is the component registry the renderer reads. A Scene spawns entities from
// GameObjects, owns the active 3D and 2D cameras and implements renderer.ComponentSource.
package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
)

// defaultChunkSize is the number of objects one update task advances.
const defaultChunkSize = 256

// Scene manages the entities of one world and the cameras that view it.
// Thread-safe for concurrent access.
type Scene interface {
	renderer.ComponentSource

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Camera returns the active 3D camera, or nil.
	Camera() camera.Camera

	// SetCamera replaces the active 3D camera. Passing nil removes it.
	SetCamera(cam camera.Camera)

	// Camera2d returns the active 2D camera, or nil.
	Camera2d() camera.Camera

	// SetCamera2d replaces the active 2D camera. Passing nil removes it.
	SetCamera2d(cam camera.Camera)

	// Count returns the number of live entities.
	Count() int

	// Spawn adds obj to the scene as a new entity. A slot freed by Despawn is reused with a
	// bumped version, so the old entity never aliases the new one.
	//
	// Parameters:
	//   - obj: the components of the entity
	//
	// Returns:
	//   - common.Entity: the spawned entity
	Spawn(obj game_object.GameObject) common.Entity

	// Get returns the components of entity, or nil if it is not alive.
	//
	// Parameters:
	//   - entity: the entity to look up
	//
	// Returns:
	//   - game_object.GameObject: the components or nil
	Get(entity common.Entity) game_object.GameObject

	// Despawn removes entity from the scene.
	//
	// Parameters:
	//   - entity: the entity to remove
	//
	// Returns:
	//   - bool: false if the entity was not alive
	Despawn(entity common.Entity) bool

	// Clear despawns every entity.
	Clear()

	// Update advances every object by dt and runs the camera update system for a render
	// target of the given size. Objects are advanced in parallel chunks on the scene's workers.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//   - width: the render target width in pixels
	//   - height: the render target height in pixels
	Update(dt float32, width, height uint32)

	// Close stops the scene's workers.
	Close()
}

type slot struct {
	version uint32
	obj     game_object.GameObject
}

type scene struct {
	mu *sync.Mutex

	name     string
	camera   camera.Camera
	camera2d camera.Camera

	slots []slot
	free  []uint32
	count int

	updateWorkers int
	chunkSize     int
	pool          worker.DynamicWorkerPool
	closeOnce     sync.Once
}

var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:            &sync.Mutex{},
		name:          "scene",
		updateWorkers: max(runtime.NumCPU()-1, 1),
		chunkSize:     defaultChunkSize,
	}
	for _, option := range options {
		option(s)
	}

	// Initialize the pool after options so WithUpdateWorkers can override the default.
	s.pool = worker.NewDynamicWorkerPool(s.updateWorkers, 256, time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Camera2d() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera2d
}

func (s *scene) SetCamera2d(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera2d = cam
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *scene) Spawn(obj game_object.GameObject) common.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked(obj)
}

// spawnLocked stores obj in a free slot or a new one. Caller must hold the mutex.
func (s *scene) spawnLocked(obj game_object.GameObject) common.Entity {
	var e common.Entity
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		sl := &s.slots[id]
		sl.version++
		sl.obj = obj
		e = common.Entity{ID: id, Version: sl.version}
	} else {
		e = common.Entity{ID: uint32(len(s.slots))}
		s.slots = append(s.slots, slot{obj: obj})
	}
	s.count++
	obj.SetEntity(e)
	return e
}

func (s *scene) Get(entity common.Entity) game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(entity)
}

// lookup returns the object of a live entity. Caller must hold the mutex.
func (s *scene) lookup(entity common.Entity) game_object.GameObject {
	if int(entity.ID) >= len(s.slots) {
		return nil
	}
	sl := s.slots[entity.ID]
	if sl.obj == nil || sl.version != entity.Version {
		return nil
	}
	return sl.obj
}

func (s *scene) Despawn(entity common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(entity) == nil {
		return false
	}
	s.slots[entity.ID].obj = nil
	s.free = append(s.free, entity.ID)
	s.count--
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.slots {
		if s.slots[id].obj != nil {
			s.slots[id].obj = nil
			s.free = append(s.free, uint32(id))
		}
	}
	s.count = 0
}

func (s *scene) Update(dt float32, width, height uint32) {
	objs := s.objects()

	// A WaitGroup provides the per-frame barrier; the pool's own Wait blocks until workers
	// idle-exit.
	var wg sync.WaitGroup
	for id, start := 0, 0; start < len(objs); id, start = id+1, start+s.chunkSize {
		chunk := objs[start:min(start+s.chunkSize, len(objs))]
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for _, obj := range chunk {
					obj.Advance(dt)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	s.mu.Lock()
	cams := []camera.Camera{s.camera, s.camera2d}
	s.mu.Unlock()
	camera.UpdateSystem(width, height, cams...)
}

// objects returns the live objects in entity order.
func (s *scene) objects() []game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs := make([]game_object.GameObject, 0, s.count)
	for _, sl := range s.slots {
		if sl.obj != nil {
			objs = append(objs, sl.obj)
		}
	}
	return objs
}

func (s *scene) Close() {
	s.closeOnce.Do(s.pool.Stop)
}

func (s *scene) Renderables() []common.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.Entity, 0, s.count)
	for id, sl := range s.slots {
		if sl.obj != nil && sl.obj.Enabled() {
			out = append(out, common.Entity{ID: uint32(id), Version: sl.version})
		}
	}
	// Slots are visited in ID order and each ID has one live version, so out is sorted.
	return out
}

func (s *scene) Mesh(entity common.Entity) (asset.Handle, bool) {
	obj := s.Get(entity)
	if obj == nil {
		return asset.Handle{}, false
	}
	return obj.Mesh()
}

func (s *scene) Material(entity common.Entity) (material.Material, bool) {
	obj := s.Get(entity)
	if obj == nil {
		return nil, false
	}
	m := obj.Material()
	return m, m != nil
}

func (s *scene) Transform(entity common.Entity) common.Mat4 {
	obj := s.Get(entity)
	if obj == nil {
		return common.Identity4()
	}
	return obj.Transform()
}

func (s *scene) ActiveCamera() (renderer.View, bool) {
	cam := s.Camera()
	if cam == nil {
		return renderer.View{}, false
	}
	return cam.View(), true
}

func (s *scene) ActiveCamera2d() (renderer.View, bool) {
	cam := s.Camera2d()
	if cam == nil {
		return renderer.View{}, false
	}
	return cam.View(), true
}
