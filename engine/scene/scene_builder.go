package scene

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
)

// SceneBuilderOption is a functional option for configuring a Scene via NewScene.
type SceneBuilderOption func(*scene)

// WithName sets the scene's identifier.
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithCamera sets the active 3D camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithCamera2d sets the active 2D camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera2d(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera2d = cam
	}
}

// WithObjects spawns the given objects during construction, in order.
//
// Parameters:
//   - objects: the objects to spawn
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			s.spawnLocked(obj)
		}
	}
}

// WithUpdateWorkers sets the number of workers Update advances objects on. Values below 1
// are raised to 1.
//
// Parameters:
//   - n: the number of update workers
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdateWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.updateWorkers = n
	}
}

// WithChunkSize sets how many objects one update task advances. Values below 1 are ignored.
func WithChunkSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}
