package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateSpawnsCubeWithoutMeshes(t *testing.T) {
	eng, err := engine.NewEngine(device.NewNullDevice(),
		engine.WithLoaderOptions(loader.WithRoot("assets"), loader.WithShaderValidation(false)))
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	s := scene.NewScene(scene.WithUpdateWorkers(1))
	t.Cleanup(s.Close)

	handles, err := eng.Loader().LoadDir(".")
	require.NoError(t, err)
	eng.Loader().Wait()

	assert.Equal(t, 1, populate(eng, s, handles))
	entities := s.Renderables()
	require.Len(t, entities, 1)
	m, ok := s.Material(entities[0])
	require.True(t, ok)
	assert.Equal(t, asset.KindPipelineDescriptor, m.Pipeline().Kind)
}

func TestPopulateWithoutPipelinesSpawnsNothing(t *testing.T) {
	eng, err := engine.NewEngine(device.NewNullDevice())
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	s := scene.NewScene(scene.WithUpdateWorkers(1))
	t.Cleanup(s.Close)

	mesh := asset.HandleFromPath(asset.KindMesh, "/assets/cube.gltf")
	assert.Zero(t, populate(eng, s, []asset.Handle{mesh}))
	assert.Zero(t, s.Count())
}

func TestRunRejectsUnknownProfileMode(t *testing.T) {
	err := run(options{profile: "gpu", null: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile mode")
}
