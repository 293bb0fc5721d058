package loader

import "time"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRoot is an option builder that sets the directory relative paths are resolved against.
// Defaults to the working directory.
//
// Parameters:
//   - root: the asset root directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the root option to a loader
func WithRoot(root string) LoaderBuilderOption {
	return func(l *loader) {
		l.root = root
	}
}

// WithWorkers is an option builder that sets the number of decode workers and the task queue size.
//
// Parameters:
//   - workers: the maximum number of concurrent decodes
//   - queueSize: the number of decodes that can wait for a worker
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(workers, queueSize int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = workers
		l.queueSize = queueSize
	}
}

// WithShaderValidation is an option builder that toggles compiling shaders to SPIR-V at load time.
//
// Parameters:
//   - enabled: whether loaded shaders are validated
//
// Returns:
//   - LoaderBuilderOption: a function that applies the validation option to a loader
func WithShaderValidation(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.validate = enabled
	}
}

// WithDebounce is an option builder that sets how long file events are collected before a
// hot reload is scheduled.
func WithDebounce(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}
