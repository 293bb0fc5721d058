// Package render_graph orders and runs the passes of a frame. Nodes declare the outputs they
// produce and the outputs of other nodes they consume; the graph is sorted once at Build time
// and executed in that order every frame.
package render_graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// GraphState is the lifecycle state of a graph.
type GraphState int

const (
	// GraphConfiguring means nodes were added since the last Build.
	GraphConfiguring GraphState = iota

	// GraphBuilt means the topology is validated and the execution order is fixed.
	GraphBuilt

	// GraphExecuting means a frame is running.
	GraphExecuting

	// GraphFrameComplete means the last frame finished and the graph is ready for the next one.
	GraphFrameComplete
)

func (s GraphState) String() string {
	switch s {
	case GraphConfiguring:
		return "configuring"
	case GraphBuilt:
		return "built"
	case GraphExecuting:
		return "executing"
	case GraphFrameComplete:
		return "frame_complete"
	default:
		return fmt.Sprintf("graph_state(%d)", int(s))
	}
}

// edge connects an input of a node to its producer. from is -1 for an optional input whose
// producer is not in the graph.
type edge struct {
	input Input
	from  int
}

// nodeEntry is one arena slot. Nodes reference each other by index.
type nodeEntry struct {
	node    Node
	deps    []edge
	state   NodeState
	outputs map[string]any
}

type graph struct {
	mu    *sync.Mutex
	label string

	nodes  []nodeEntry
	byName map[string]int
	order  []int
	state  GraphState
}

// Graph is a directed acyclic graph of render passes.
type Graph interface {
	// AddNode appends a node. Nodes may be added at any time; the graph must be built again
	// before the next Execute.
	//
	// Parameters:
	//   - n: the node to add
	//
	// Returns:
	//   - error: ErrDuplicateNode if a node with the same name exists
	AddNode(n Node) error

	// Has reports whether a node with the given name exists.
	Has(name string) bool

	// Nodes returns the node names in declaration order.
	Nodes() []string

	// Build validates every input reference and fixes the execution order. Independent nodes
	// run in declaration order.
	//
	// Returns:
	//   - error: a *CyclicGraphError, or an error wrapping ErrUnknownNode or ErrUnknownSlot
	Build() error

	// Order returns the node names in execution order. Empty until the graph is built.
	Order() []string

	// Execute runs one frame. Nodes whose required inputs were not produced are skipped.
	// Every node error is collected; execution continues with nodes that do not depend on
	// the failed one. Node logic must not call back into the graph.
	//
	// Parameters:
	//   - ctx: cancels the remaining nodes when done
	//   - frame: the frame number passed to each node
	//
	// Returns:
	//   - error: ErrNotBuilt, or the joined node errors
	Execute(ctx context.Context, frame uint64) error

	// State returns the lifecycle state of the graph.
	State() GraphState

	// NodeState returns the state of a node in the current or last frame.
	NodeState(name string) NodeState

	// Output returns a value a node produced in the current or last frame.
	//
	// Parameters:
	//   - node: the producing node
	//   - slot: the output name
	//
	// Returns:
	//   - any: the value
	//   - bool: false if the node does not exist or did not produce the output
	Output(node, slot string) (any, bool)
}

var _ Graph = &graph{}

// NewGraph creates an empty graph.
//
// Parameters:
//   - options: a variadic list of GraphBuilderOption functions
//
// Returns:
//   - Graph: the new graph
func NewGraph(options ...GraphBuilderOption) Graph {
	g := &graph{
		mu:     &sync.Mutex{},
		label:  "render_graph",
		byName: make(map[string]int),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *graph) AddNode(n Node) error {
	if n.Name == "" {
		return errors.New("render graph node has no name")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byName[n.Name]; ok {
		return fmt.Errorf("%s: %q: %w", g.label, n.Name, ErrDuplicateNode)
	}
	n.Inputs = slices.Clone(n.Inputs)
	n.Outputs = slices.Clone(n.Outputs)
	g.byName[n.Name] = len(g.nodes)
	g.nodes = append(g.nodes, nodeEntry{node: n})
	g.order = nil
	g.state = GraphConfiguring
	return nil
}

func (g *graph) Has(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.byName[name]
	return ok
}

func (g *graph) Nodes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.nodes))
	for i, e := range g.nodes {
		names[i] = e.node.Name
	}
	return names
}

func (g *graph) Build() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.nodes {
		deps, err := g.resolve(i)
		if err != nil {
			g.order = nil
			g.state = GraphConfiguring
			return err
		}
		g.nodes[i].deps = deps
	}

	order, err := g.sort()
	if err != nil {
		g.order = nil
		g.state = GraphConfiguring
		return err
	}
	g.order = order
	g.state = GraphBuilt
	common.Logger().Info("render graph built", "graph", g.label, "nodes", len(order))
	return nil
}

// resolve maps every input of node i to a producer index.
func (g *graph) resolve(i int) ([]edge, error) {
	n := g.nodes[i].node
	seen := make(map[string]struct{}, len(n.Inputs))
	deps := make([]edge, 0, len(n.Inputs))
	for _, in := range n.Inputs {
		if in.Name != "" {
			if _, dup := seen[in.Name]; dup {
				return nil, fmt.Errorf("%s: node %s declares input %q twice", g.label, n.Name, in.Name)
			}
			seen[in.Name] = struct{}{}
		}

		from, ok := g.byName[in.From]
		if !ok {
			if in.Optional {
				deps = append(deps, edge{input: in, from: -1})
				continue
			}
			return nil, fmt.Errorf("%s: node %s input %q from %q: %w", g.label, n.Name, in.Name, in.From, ErrUnknownNode)
		}
		if from == i {
			return nil, &CyclicGraphError{Nodes: []string{n.Name}}
		}
		if in.Slot != "" && !slices.Contains(g.nodes[from].node.Outputs, in.Slot) {
			return nil, fmt.Errorf("%s: node %s input %q from %s.%s: %w", g.label, n.Name, in.Name, in.From, in.Slot, ErrUnknownSlot)
		}
		deps = append(deps, edge{input: in, from: from})
	}
	return deps, nil
}

// sort runs Kahn's algorithm, always taking the lowest ready index so ties resolve to
// declaration order.
func (g *graph) sort() ([]int, error) {
	indegree := make([]int, len(g.nodes))
	dependants := make([][]int, len(g.nodes))
	for i, e := range g.nodes {
		for _, d := range e.deps {
			if d.from < 0 {
				continue
			}
			indegree[i]++
			dependants[d.from] = append(dependants[d.from], i)
		}
	}

	var ready []int
	for i, n := range indegree {
		if n == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		at := slices.Index(ready, slices.Min(ready))
		next := ready[at]
		ready = slices.Delete(ready, at, at+1)
		order = append(order, next)
		for _, d := range dependants[next] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) < len(g.nodes) {
		var cyclic []string
		for i, n := range indegree {
			if n > 0 {
				cyclic = append(cyclic, g.nodes[i].node.Name)
			}
		}
		return nil, &CyclicGraphError{Nodes: cyclic}
	}
	return order, nil
}

func (g *graph) Order() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.order))
	for i, idx := range g.order {
		names[i] = g.nodes[idx].node.Name
	}
	return names
}

func (g *graph) Execute(ctx context.Context, frame uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == GraphConfiguring {
		return fmt.Errorf("%s: %w", g.label, ErrNotBuilt)
	}
	g.state = GraphExecuting
	for i := range g.nodes {
		g.nodes[i].state = NodeNotRun
		g.nodes[i].outputs = nil
	}

	var errs []error
	for _, idx := range g.order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := g.run(ctx, idx, frame); err != nil {
			errs = append(errs, err)
		}
	}

	g.state = GraphFrameComplete
	return errors.Join(errs...)
}

// run executes one node. Its dependencies have already been visited.
func (g *graph) run(ctx context.Context, idx int, frame uint64) error {
	e := &g.nodes[idx]
	rc := &RunContext{
		frame:    frame,
		node:     e.node.Name,
		inputs:   make(map[string]any),
		outputs:  make(map[string]any, len(e.node.Outputs)),
		declared: e.node.Outputs,
	}

	for _, d := range e.deps {
		if d.from < 0 {
			continue
		}
		producer := &g.nodes[d.from]
		if producer.state != NodeDone {
			if d.input.Optional {
				continue
			}
			e.state = NodeSkipped
			common.Logger().Debug("render graph node skipped",
				"graph", g.label, "node", e.node.Name, "dependency", producer.node.Name, "dependency_state", producer.state)
			return nil
		}
		if d.input.Slot != "" && d.input.Name != "" {
			rc.inputs[d.input.Name] = producer.outputs[d.input.Slot]
		}
	}

	e.state = NodeRunning
	if e.node.Run != nil {
		if err := e.node.Run(ctx, rc); err != nil {
			e.state = NodeFailed
			return fmt.Errorf("%s: node %s: %w", g.label, e.node.Name, err)
		}
	}
	for _, out := range e.node.Outputs {
		if _, ok := rc.outputs[out]; !ok {
			e.state = NodeFailed
			return fmt.Errorf("%s: node %s output %q: %w", g.label, e.node.Name, out, ErrMissingOutput)
		}
	}
	e.outputs = rc.outputs
	e.state = NodeDone
	return nil
}

func (g *graph) State() GraphState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *graph) NodeState(name string) NodeState {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx, ok := g.byName[name]
	if !ok {
		return NodeNotRun
	}
	return g.nodes[idx].state
}

func (g *graph) Output(node, slot string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx, ok := g.byName[node]
	if !ok {
		return nil, false
	}
	v, ok := g.nodes[idx].outputs[slot]
	return v, ok
}
