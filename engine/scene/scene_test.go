package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s := NewScene(append([]SceneBuilderOption{WithUpdateWorkers(2)}, options...)...)
	t.Cleanup(s.Close)
	return s
}

func TestSpawnRecyclesSlotsWithNewVersion(t *testing.T) {
	s := newTestScene(t)

	a := s.Spawn(game_object.NewGameObject())
	b := s.Spawn(game_object.NewGameObject())
	assert.Equal(t, common.Entity{ID: 0}, a)
	assert.Equal(t, common.Entity{ID: 1}, b)

	require.True(t, s.Despawn(a))
	assert.False(t, s.Despawn(a))
	assert.Nil(t, s.Get(a))

	c := s.Spawn(game_object.NewGameObject())
	assert.Equal(t, common.Entity{ID: 0, Version: 1}, c)
	assert.Nil(t, s.Get(a), "stale entity must not alias the recycled slot")
	assert.NotNil(t, s.Get(c))
	assert.Equal(t, c, s.Get(c).Entity())
	assert.Equal(t, 2, s.Count())
}

func TestRenderablesSkipsDisabledAndSorts(t *testing.T) {
	s := newTestScene(t)
	e0 := s.Spawn(game_object.NewGameObject())
	s.Spawn(game_object.NewGameObject(game_object.WithEnabled(false)))
	e2 := s.Spawn(game_object.NewGameObject())

	assert.Equal(t, []common.Entity{e0, e2}, s.Renderables())

	s.Clear()
	assert.Empty(t, s.Renderables())
	assert.Zero(t, s.Count())
}

func TestComponentLookups(t *testing.T) {
	s := newTestScene(t)
	h := asset.HandleFromPath(asset.KindMesh, "/assets/cube.gltf")
	mat := material.NewMaterial(asset.HandleFromPath(asset.KindPipelineDescriptor, "/assets/lit.pipeline.yaml"))

	e := s.Spawn(game_object.NewGameObject(
		game_object.WithMesh(h),
		game_object.WithMaterial(mat),
		game_object.WithPosition(1, 2, 3),
	))
	bare := s.Spawn(game_object.NewGameObject())

	got, ok := s.Mesh(e)
	require.True(t, ok)
	assert.Equal(t, h, got)
	m, ok := s.Material(e)
	require.True(t, ok)
	assert.Equal(t, mat, m)
	assert.Equal(t, common.Translation(1, 2, 3), s.Transform(e))

	_, ok = s.Mesh(bare)
	assert.False(t, ok)
	_, ok = s.Material(bare)
	assert.False(t, ok)

	gone := common.Entity{ID: 99}
	assert.Equal(t, common.Identity4(), s.Transform(gone))
}

func TestActiveCameras(t *testing.T) {
	s := newTestScene(t)
	_, ok := s.ActiveCamera()
	assert.False(t, ok)
	_, ok = s.ActiveCamera2d()
	assert.False(t, ok)

	cam := camera.NewCamera(camera.WithPosition(0, 0, 4))
	s.SetCamera(cam)
	s.SetCamera2d(camera.NewCamera2d())

	v, ok := s.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, cam.View(), v)
	_, ok = s.ActiveCamera2d()
	assert.True(t, ok)
}

func TestUpdateAdvancesObjectsAndCameras(t *testing.T) {
	cam := camera.NewCamera()
	s := newTestScene(t, WithCamera(cam), WithChunkSize(2))

	var objs []game_object.GameObject
	for range 5 {
		obj := game_object.NewGameObject(game_object.WithRotationSpeed(0, 2, 0))
		objs = append(objs, obj)
		s.Spawn(obj)
	}

	s.Update(0.5, 800, 400)

	for _, obj := range objs {
		_, ry, _ := obj.Rotation()
		assert.InDelta(t, 1, ry, 1e-6)
	}
	assert.Equal(t, float32(2), cam.Aspect())
}

func TestWithObjectsSpawnsInOrder(t *testing.T) {
	a := game_object.NewGameObject()
	b := game_object.NewGameObject()
	s := newTestScene(t, WithObjects(a, b), WithName("level"))

	assert.Equal(t, "level", s.Name())
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, uint32(1), b.Entity().ID)
}
