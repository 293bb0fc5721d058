package render_graph

import (
	"context"
	"fmt"
	"slices"
)

// NodeState is the per-frame state of a node.
type NodeState int

const (
	// NodeNotRun means the node has not run yet this frame.
	NodeNotRun NodeState = iota

	// NodeRunning means the node's pass logic is executing.
	NodeRunning

	// NodeDone means the node ran and produced every declared output.
	NodeDone

	// NodeSkipped means a required input was not produced this frame, so the node did not run.
	NodeSkipped

	// NodeFailed means the node returned an error or did not produce a declared output.
	NodeFailed
)

func (s NodeState) String() string {
	switch s {
	case NodeNotRun:
		return "not_run"
	case NodeRunning:
		return "running"
	case NodeDone:
		return "done"
	case NodeSkipped:
		return "skipped"
	case NodeFailed:
		return "failed"
	default:
		return fmt.Sprintf("node_state(%d)", int(s))
	}
}

// RunFunc is the pass logic of a node.
type RunFunc func(ctx context.Context, rc *RunContext) error

// Input declares a dependency of a node on another node. When Slot is set the value the
// producer writes to that output is made available under Name; an empty Slot only orders
// the two nodes.
type Input struct {
	Name string
	From string
	Slot string

	// Optional inputs may reference nodes that are not part of the graph, and an optional
	// input whose producer did not finish this frame is simply absent.
	Optional bool
}

// Node is a named unit of rendering work.
type Node struct {
	Name    string
	Inputs  []Input
	Outputs []string
	Run     RunFunc
}

// RunContext carries a node's inputs and collects its outputs for one frame.
type RunContext struct {
	frame    uint64
	node     string
	inputs   map[string]any
	outputs  map[string]any
	declared []string
}

// Frame returns the frame number being executed.
func (rc *RunContext) Frame() uint64 {
	return rc.frame
}

// Node returns the name of the running node.
func (rc *RunContext) Node() string {
	return rc.node
}

// Input returns the value bound to a named input.
//
// Parameters:
//   - name: the input name
//
// Returns:
//   - any: the value written by the producing node
//   - bool: false if the input is not connected or was not produced this frame
func (rc *RunContext) Input(name string) (any, bool) {
	v, ok := rc.inputs[name]
	return v, ok
}

// Output writes a declared output of the running node.
//
// Parameters:
//   - name: the output name
//   - v: the value passed to dependants
//
// Returns:
//   - error: error if the node did not declare the output
func (rc *RunContext) Output(name string, v any) error {
	if !slices.Contains(rc.declared, name) {
		return fmt.Errorf("node %s: output %q: %w", rc.node, name, ErrUnknownSlot)
	}
	rc.outputs[name] = v
	return nil
}
