package render_graph

// GraphBuilderOption is a functional option used to configure a Graph during construction.
type GraphBuilderOption func(*graph)

// WithLabel sets the label used in log records and errors.
//
// Parameters:
//   - label: the graph label
//
// Returns:
//   - GraphBuilderOption: a function that sets the label
func WithLabel(label string) GraphBuilderOption {
	return func(g *graph) {
		g.label = label
	}
}
