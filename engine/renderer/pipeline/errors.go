package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/vertex"
)

var (
	// ErrCompilation is wrapped by every *CompilationError.
	ErrCompilation = errors.New("pipeline compilation failed")

	// ErrInvalidated is returned when the template was invalidated while its compile was in flight.
	// The result was discarded; compiling again picks up the new template.
	ErrInvalidated = errors.New("pipeline template invalidated during compilation")
)

// CompilationError reports why a (template, layout) pair could not be turned into a pipeline.
type CompilationError struct {
	Template asset.Handle
	Label    string
	Layout   vertex.LayoutID
	Reason   string
	Err      error
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("pipeline %q (template %s, layout %d): %s", e.Label, e.Template, e.Layout, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrCompilation and the underlying cause to errors.Is and errors.As.
func (e *CompilationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompilation}
	}
	return []error{ErrCompilation, e.Err}
}
