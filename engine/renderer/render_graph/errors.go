package render_graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCyclicGraph is wrapped by every CyclicGraphError.
	ErrCyclicGraph = errors.New("cyclic render graph")

	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate render graph node")

	// ErrUnknownNode is returned when an input references a node that is not in the graph.
	ErrUnknownNode = errors.New("unknown render graph node")

	// ErrUnknownSlot is returned when an input or output names a slot the node does not declare.
	ErrUnknownSlot = errors.New("unknown render graph slot")

	// ErrNotBuilt is returned by Execute when nodes were added since the last successful Build.
	ErrNotBuilt = errors.New("render graph not built")

	// ErrMissingOutput is wrapped when a node finishes without writing a declared output.
	ErrMissingOutput = errors.New("render graph node did not produce a declared output")
)

// CyclicGraphError reports the nodes that could not be ordered because they depend on each other.
// Nodes are listed in declaration order.
type CyclicGraphError struct {
	Nodes []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("%s: nodes %s depend on each other", ErrCyclicGraph, strings.Join(e.Nodes, ", "))
}

func (e *CyclicGraphError) Unwrap() error {
	return ErrCyclicGraph
}
