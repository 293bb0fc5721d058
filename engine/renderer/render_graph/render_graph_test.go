package render_graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder appends node names to a shared slice as they run.
type recorder struct {
	ran []string
}

func (r *recorder) node(name string, inputs []Input, outputs ...string) Node {
	return Node{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		Run: func(_ context.Context, rc *RunContext) error {
			r.ran = append(r.ran, rc.Node())
			for _, out := range outputs {
				if err := rc.Output(out, rc.Node()+"."+out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func TestBuildOrdersByDependencyThenDeclaration(t *testing.T) {
	r := &recorder{}
	g := NewGraph()
	require.NoError(t, g.AddNode(r.node("pass", []Input{{Name: "depth", From: "depth", Slot: "texture"}})))
	require.NoError(t, g.AddNode(r.node("ui", nil)))
	require.NoError(t, g.AddNode(r.node("depth", nil, "texture")))
	require.NoError(t, g.AddNode(r.node("shadow", nil)))

	assert.Equal(t, GraphConfiguring, g.State())
	require.NoError(t, g.Build())
	assert.Equal(t, GraphBuilt, g.State())
	assert.Equal(t, []string{"ui", "depth", "pass", "shadow"}, g.Order())

	for frame := uint64(0); frame < 3; frame++ {
		r.ran = nil
		require.NoError(t, g.Execute(context.Background(), frame))
		assert.Equal(t, g.Order(), r.ran, "same order every frame")
	}
	assert.Equal(t, GraphFrameComplete, g.State())
	assert.Equal(t, NodeDone, g.NodeState("pass"))
}

func TestExecutePassesOutputsToDependants(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{
		Name:    "producer",
		Outputs: []string{"value"},
		Run: func(_ context.Context, rc *RunContext) error {
			return rc.Output("value", rc.Frame()*10)
		},
	}))
	var got any
	require.NoError(t, g.AddNode(Node{
		Name:   "consumer",
		Inputs: []Input{{Name: "in", From: "producer", Slot: "value"}},
		Run: func(_ context.Context, rc *RunContext) error {
			v, ok := rc.Input("in")
			require.True(t, ok)
			got = v
			return nil
		},
	}))
	require.NoError(t, g.Build())
	require.NoError(t, g.Execute(context.Background(), 4))
	assert.Equal(t, uint64(40), got)

	v, ok := g.Output("producer", "value")
	require.True(t, ok)
	assert.Equal(t, uint64(40), v)
}

func TestCyclicGraphFailsBuildAndRunsNothing(t *testing.T) {
	r := &recorder{}
	g := NewGraph()
	require.NoError(t, g.AddNode(r.node("a", []Input{{Name: "b", From: "b", Slot: "out"}}, "out")))
	require.NoError(t, g.AddNode(r.node("b", []Input{{Name: "a", From: "a", Slot: "out"}}, "out")))
	require.NoError(t, g.AddNode(r.node("c", nil)))

	err := g.Build()
	require.ErrorIs(t, err, ErrCyclicGraph)
	var cyclic *CyclicGraphError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"a", "b"}, cyclic.Nodes)

	require.ErrorIs(t, g.Execute(context.Background(), 0), ErrNotBuilt)
	assert.Empty(t, r.ran)
	assert.Empty(t, g.Order())
}

func TestSelfDependencyIsCyclic(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{Name: "loop", Inputs: []Input{{From: "loop"}}}))
	require.ErrorIs(t, g.Build(), ErrCyclicGraph)
}

func TestBuildValidatesReferences(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{Name: "a", Outputs: []string{"out"}}))
	require.ErrorIs(t, g.AddNode(Node{Name: "a"}), ErrDuplicateNode)
	require.Error(t, g.AddNode(Node{}))

	require.NoError(t, g.AddNode(Node{Name: "b", Inputs: []Input{{Name: "x", From: "missing"}}}))
	require.ErrorIs(t, g.Build(), ErrUnknownNode)

	g = NewGraph()
	require.NoError(t, g.AddNode(Node{Name: "a", Outputs: []string{"out"}}))
	require.NoError(t, g.AddNode(Node{Name: "b", Inputs: []Input{{Name: "x", From: "a", Slot: "nope"}}}))
	require.ErrorIs(t, g.Build(), ErrUnknownSlot)

	g = NewGraph()
	require.NoError(t, g.AddNode(Node{Name: "a", Outputs: []string{"out"}}))
	require.NoError(t, g.AddNode(Node{Name: "b", Inputs: []Input{{Name: "x", From: "a"}, {Name: "x", From: "a"}}}))
	require.Error(t, g.Build())
}

func TestOptionalInputFromMissingNode(t *testing.T) {
	ran := false
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{
		Name:   "main",
		Inputs: []Input{{Name: "camera_2d", From: "camera_2d", Slot: "camera", Optional: true}},
		Run: func(_ context.Context, rc *RunContext) error {
			_, ok := rc.Input("camera_2d")
			assert.False(t, ok)
			ran = true
			return nil
		},
	}))
	require.NoError(t, g.Build())
	require.NoError(t, g.Execute(context.Background(), 0))
	assert.True(t, ran)
}

func TestFailedNodeSkipsDependants(t *testing.T) {
	boom := errors.New("boom")
	r := &recorder{}
	g := NewGraph(WithLabel("test"))
	require.NoError(t, g.AddNode(Node{
		Name:    "broken",
		Outputs: []string{"out"},
		Run:     func(context.Context, *RunContext) error { return boom },
	}))
	require.NoError(t, g.AddNode(r.node("needs", []Input{{Name: "in", From: "broken", Slot: "out"}}, "out")))
	require.NoError(t, g.AddNode(r.node("transitive", []Input{{From: "needs"}})))
	require.NoError(t, g.AddNode(r.node("tolerant", []Input{{Name: "in", From: "broken", Slot: "out", Optional: true}})))
	require.NoError(t, g.AddNode(r.node("independent", nil)))
	require.NoError(t, g.Build())

	err := g.Execute(context.Background(), 0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"tolerant", "independent"}, r.ran)
	assert.Equal(t, NodeFailed, g.NodeState("broken"))
	assert.Equal(t, NodeSkipped, g.NodeState("needs"))
	assert.Equal(t, NodeSkipped, g.NodeState("transitive"))
	assert.Equal(t, NodeDone, g.NodeState("tolerant"))
}

func TestMissingOutputFailsNode(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{
		Name:    "lazy",
		Outputs: []string{"texture"},
		Run:     func(context.Context, *RunContext) error { return nil },
	}))
	require.NoError(t, g.Build())
	require.ErrorIs(t, g.Execute(context.Background(), 0), ErrMissingOutput)
	assert.Equal(t, NodeFailed, g.NodeState("lazy"))
}

func TestUndeclaredOutputIsRejected(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{
		Name: "chatty",
		Run: func(_ context.Context, rc *RunContext) error {
			return rc.Output("extra", 1)
		},
	}))
	require.NoError(t, g.Build())
	require.ErrorIs(t, g.Execute(context.Background(), 0), ErrUnknownSlot)
}

func TestAddNodeAfterBuildRequiresRebuild(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(Node{Name: "a"}))
	require.NoError(t, g.Build())
	require.NoError(t, g.AddNode(Node{Name: "b", Inputs: []Input{{From: "a"}}}))
	require.ErrorIs(t, g.Execute(context.Background(), 0), ErrNotBuilt)
	require.NoError(t, g.Build())
	assert.Equal(t, []string{"a", "b"}, g.Order())
	require.NoError(t, g.Execute(context.Background(), 0))
}

func TestCancelledContextStopsExecution(t *testing.T) {
	r := &recorder{}
	g := NewGraph()
	require.NoError(t, g.AddNode(r.node("a", nil)))
	require.NoError(t, g.Build())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, g.Execute(ctx, 0), context.Canceled)
	assert.Empty(t, r.ran)
	assert.Equal(t, NodeNotRun, g.NodeState("a"))
}

func basePasses(r *recorder) BasePasses {
	texture := func(_ context.Context, rc *RunContext) error {
		r.ran = append(r.ran, rc.Node())
		return rc.Output(SlotTexture, rc.Node())
	}
	camera := func(_ context.Context, rc *RunContext) error {
		r.ran = append(r.ran, rc.Node())
		return rc.Output(SlotCamera, rc.Node())
	}
	return BasePasses{
		MainColorTarget:  texture,
		MainDepthTexture: texture,
		Camera3d:         camera,
		Camera2d:         camera,
		MainPass: func(_ context.Context, rc *RunContext) error {
			r.ran = append(r.ran, rc.Node())
			return nil
		},
	}
}

func TestAddBaseGraphDefault(t *testing.T) {
	r := &recorder{}
	g := NewGraph()
	require.NoError(t, AddBaseGraph(g, DefaultBaseConfig(), basePasses(r)))
	require.NoError(t, g.Build())
	assert.Equal(t, []string{NodeMainColorTarget, NodeMainDepthTexture, NodeCamera3d, NodeCamera2d, NodeMainPass}, g.Order())
	require.NoError(t, g.Execute(context.Background(), 0))
	assert.Len(t, r.ran, 5)
}

func TestAddBaseGraphWithoutOptionalPasses(t *testing.T) {
	cfg := DefaultBaseConfig()
	cfg.Add2dCamera = false
	cfg.AddMainDepthTexture = false

	r := &recorder{}
	g := NewGraph()
	require.NoError(t, AddBaseGraph(g, cfg, basePasses(r)))
	assert.False(t, g.Has(NodeCamera2d))
	require.NoError(t, g.Build())
	require.NoError(t, g.Execute(context.Background(), 0))
	assert.Equal(t, []string{NodeMainColorTarget, NodeCamera3d, NodeMainPass}, r.ran)
}

func TestAddBaseGraphRequiresLogic(t *testing.T) {
	g := NewGraph()
	err := AddBaseGraph(g, DefaultBaseConfig(), BasePasses{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), NodeMainColorTarget)
}

func TestParseBaseConfig(t *testing.T) {
	cfg, err := ParseBaseConfig([]byte("add_2d_camera: false\nclear_color: [0, 0, 0, 1]\n"), "yaml")
	require.NoError(t, err)
	assert.False(t, cfg.Add2dCamera)
	assert.True(t, cfg.AddMainPass, "omitted keys keep their default")
	assert.Equal(t, [4]float64{0, 0, 0, 1}, cfg.ClearColor)

	cfg, err = ParseBaseConfig([]byte("add_main_depth_texture = false\n"), "toml")
	require.NoError(t, err)
	assert.False(t, cfg.AddMainDepthTexture)
	assert.True(t, cfg.Add3dCamera)

	cfg, err = ParseBaseConfig(nil, "yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseConfig(), cfg)

	_, err = ParseBaseConfig([]byte("bogus: true\n"), "yaml")
	require.Error(t, err)
	_, err = ParseBaseConfig([]byte("bogus = true\n"), "toml")
	require.Error(t, err)
	_, err = ParseBaseConfig(nil, "json")
	require.Error(t, err)
}

func TestLoadBaseConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.toml")
	require.NoError(t, os.WriteFile(path, []byte("add_main_pass = false\n"), 0o644))

	cfg, err := LoadBaseConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.AddMainPass)

	_, err = LoadBaseConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
