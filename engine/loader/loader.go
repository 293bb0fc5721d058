// Package loader is the asset server: it turns files on disk into assets in the render core's
// stores. Files are decoded asynchronously on a worker pool; decoded values are committed to the
// stores only by Update, which the engine calls once per frame before asset events are handled,
// so stores never change in the middle of a frame. Handles are derived from the file path, which
// lets callers reference an asset before it has loaded and lets a reloaded file replace the
// asset in place.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/fsnotify/fsnotify"
)

var (
	// ErrUnsupportedFormat is returned by Load for a file no backend handles.
	ErrUnsupportedFormat = errors.New("unsupported asset format")

	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("loader closed")
)

// LoadState is the lifecycle state of a path-derived handle.
type LoadState int

const (
	// LoadStateNotLoaded means the handle was never requested.
	LoadStateNotLoaded LoadState = iota

	// LoadStateLoading means a decode is queued or running, or finished but not yet committed.
	LoadStateLoading

	// LoadStateLoaded means the asset is in its store.
	LoadStateLoaded

	// LoadStateFailed means the last load attempt failed; Err returns why.
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateNotLoaded:
		return "not_loaded"
	case LoadStateLoading:
		return "loading"
	case LoadStateLoaded:
		return "loaded"
	case LoadStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("load_state(%d)", int(s))
	}
}

// completedLoad is a finished decode (or a file removal) waiting for Update.
type completedLoad struct {
	path    string
	handle  asset.Handle
	result  loadResult
	err     error
	removed bool
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.Mutex

	stores   renderer.AssetStores
	backends []loaderBackend

	root        string
	workers     int
	queueSize   int
	validate    bool
	debounce    time.Duration
	idleTimeout time.Duration

	pool     worker.DynamicWorkerPool
	idle     *sync.Cond
	inflight int
	taskID   int
	closed   bool

	state    map[asset.Handle]LoadState
	errs     map[asset.Handle]error
	paths    map[string]asset.Handle
	produced map[string][]asset.Handle
	loading  map[string]bool
	dirty    map[string]bool
	done     []completedLoad

	watcher     *fsnotify.Watcher
	watchedDirs map[string]bool
}

// Loader loads asset files into renderer.AssetStores.
type Loader interface {
	// Load schedules path for loading and returns its handle immediately. Relative paths are
	// resolved against the loader root. Loading a path that is already loading or loaded
	// returns the same handle without decoding it again.
	//
	// Parameters:
	//   - path: the file to load
	//
	// Returns:
	//   - asset.Handle: the path-derived handle of the file's main asset
	//   - error: ErrUnsupportedFormat or ErrClosed
	Load(path string) (asset.Handle, error)

	// Reload schedules path for decoding even if it is already loaded. The new value replaces
	// the old one under the same handle, producing a Modified event.
	//
	// Parameters:
	//   - path: the file to reload
	//
	// Returns:
	//   - asset.Handle: the handle of the file's main asset
	//   - error: ErrUnsupportedFormat or ErrClosed
	Reload(path string) (asset.Handle, error)

	// LoadDir loads every file under dir that a backend handles, in lexical order.
	//
	// Parameters:
	//   - dir: the directory to walk; relative paths are resolved against the root
	//
	// Returns:
	//   - []asset.Handle: the handles of the scheduled files
	//   - error: error if the directory cannot be walked
	LoadDir(dir string) ([]asset.Handle, error)

	// Update commits every finished load to the stores and applies pending removals.
	// Failed loads are logged and recorded for Err.
	//
	// Returns:
	//   - int: the number of files committed or removed
	Update() int

	// Wait blocks until every scheduled load, including loads of referenced files, has finished
	// decoding. It does not commit; call Update afterwards.
	Wait()

	// Watch starts hot reloading: changed files that were loaded before are reloaded, removed
	// files have their assets removed. Watching stops when ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the lifetime of the watcher
	//
	// Returns:
	//   - error: error if the file watcher cannot be created
	Watch(ctx context.Context) error

	// State returns the load state of a handle returned by Load or of a labeled sub-asset.
	State(h asset.Handle) LoadState

	// Err returns the error of the last failed load of h, or nil.
	Err(h asset.Handle) error

	// Pending returns the number of files scheduled but not yet committed.
	Pending() int

	// Close stops watching, waits for in-flight loads and stops the worker pool. Safe to call twice.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a Loader committing into stores.
//
// Parameters:
//   - stores: the asset stores loaded values are committed to
//   - options: a variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the new loader
func NewLoader(stores renderer.AssetStores, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          &sync.Mutex{},
		stores:      stores,
		workers:     4,
		queueSize:   64,
		validate:    true,
		debounce:    100 * time.Millisecond,
		idleTimeout: time.Second,
		state:       make(map[asset.Handle]LoadState),
		errs:        make(map[asset.Handle]error),
		paths:       make(map[string]asset.Handle),
		produced:    make(map[string][]asset.Handle),
		loading:     make(map[string]bool),
		dirty:       make(map[string]bool),
		watchedDirs: make(map[string]bool),
	}
	l.idle = sync.NewCond(l.mu)
	for _, option := range options {
		option(l)
	}
	if l.root == "" {
		if wd, err := os.Getwd(); err == nil {
			l.root = wd
		}
	}

	l.backends = []loaderBackend{
		&shaderLoaderBackend{validate: l.validate},
		&pipelineLoaderBackend{},
		&textureLoaderBackend{},
		&gltfLoaderBackend{},
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queueSize, l.idleTimeout)
	return l
}

func (l *loader) Load(path string) (asset.Handle, error) {
	return l.schedule(path, false)
}

func (l *loader) Reload(path string) (asset.Handle, error) {
	return l.schedule(path, true)
}

func (l *loader) LoadDir(dir string) ([]asset.Handle, error) {
	var handles []asset.Handle
	err := filepath.WalkDir(l.resolve(dir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := resolveBackend(l.backends, path); err != nil {
			return nil
		}
		h, err := l.Load(path)
		if err != nil {
			return err
		}
		handles = append(handles, h)
		return nil
	})
	if err != nil {
		return handles, fmt.Errorf("failed to load directory %s: %w", dir, err)
	}
	return handles, nil
}

// schedule queues a decode of path. With force unset, a path already loading or loaded is not
// decoded again. With force set, a path that is mid-decode is marked dirty and decoded once more
// after the running decode finishes.
func (l *loader) schedule(path string, force bool) (asset.Handle, error) {
	abs := l.resolve(path)
	backend, err := resolveBackend(l.backends, abs)
	if err != nil {
		return asset.Handle{}, err
	}
	h := asset.HandleFromPath(backend.Kind(), abs)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return h, ErrClosed
	}
	l.paths[abs] = h
	if l.loading[abs] {
		if force {
			l.dirty[abs] = true
		}
		l.mu.Unlock()
		return h, nil
	}
	if !force && (l.state[h] == LoadStateLoaded || l.state[h] == LoadStateLoading) {
		l.mu.Unlock()
		return h, nil
	}
	l.loading[abs] = true
	if l.state[h] != LoadStateLoaded {
		l.state[h] = LoadStateLoading
	}
	l.watchDirLocked(filepath.Dir(abs))
	l.taskID++
	id := l.taskID
	l.inflight++
	l.mu.Unlock()

	task := worker.Task{
		ID:      id,
		Payload: abs,
		Do: func() (any, error) {
			defer l.taskDone()
			res, err := l.decode(backend, abs)
			l.finish(abs, h, res, err)
			return nil, err
		},
	}
	// SubmitTask blocks while the queue is full; loads scheduled from a running decode
	// (referenced shaders) must not wait on the worker they are running on.
	go l.pool.SubmitTask(task)

	common.Logger().Debug("asset load scheduled", "path", abs, "handle", h)
	return h, nil
}

func (l *loader) decode(backend loaderBackend, path string) (loadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return loadResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	res, err := backend.Load(path, data)
	if err != nil {
		return loadResult{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	for _, dep := range res.deps {
		if _, err := l.Load(dep); err != nil && !errors.Is(err, ErrClosed) {
			common.Logger().Warn("referenced asset not scheduled", "path", path, "dependency", dep, "error", err)
		}
	}
	return res, nil
}

// finish records a decode result for Update and resubmits the path if it changed meanwhile.
func (l *loader) finish(path string, h asset.Handle, res loadResult, err error) {
	l.mu.Lock()
	l.done = append(l.done, completedLoad{path: path, handle: h, result: res, err: err})
	delete(l.loading, path)
	again := l.dirty[path] && !l.closed
	delete(l.dirty, path)
	l.mu.Unlock()

	if again {
		if _, err := l.Reload(path); err != nil {
			common.Logger().Warn("asset reload not scheduled", "path", path, "error", err)
		}
	}
}

func (l *loader) Update() int {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.mu.Unlock()

	log := common.Logger()
	for _, c := range done {
		if c.removed {
			l.removeProduced(c.path)
			l.forget(c.handle)
			log.Info("asset removed", "path", c.path, "handle", c.handle)
			continue
		}
		if c.err != nil {
			l.mu.Lock()
			l.state[c.handle] = LoadStateFailed
			l.errs[c.handle] = c.err
			l.mu.Unlock()
			log.Warn("asset load failed", "path", c.path, "handle", c.handle, "error", c.err)
			continue
		}

		var committed []asset.Handle
		var commitErr error
		for _, a := range c.result.assets {
			if err := commit(l.stores, a); err != nil {
				commitErr = errors.Join(commitErr, err)
				continue
			}
			committed = append(committed, a.handle)
		}

		l.mu.Lock()
		stale := l.produced[c.path]
		l.produced[c.path] = committed
		for _, h := range committed {
			l.state[h] = LoadStateLoaded
			delete(l.errs, h)
		}
		if commitErr != nil {
			l.state[c.handle] = LoadStateFailed
			l.errs[c.handle] = commitErr
		}
		l.mu.Unlock()

		// sub-assets that disappeared from a reloaded file
		for _, h := range stale {
			if !slices.Contains(committed, h) {
				remove(l.stores, h)
				l.forget(h)
			}
		}
		if commitErr != nil {
			log.Warn("asset commit failed", "path", c.path, "error", commitErr)
			continue
		}
		log.Info("asset loaded", "path", c.path, "handle", c.handle, "assets", len(committed))
	}
	return len(done)
}

func (l *loader) removeProduced(path string) {
	l.mu.Lock()
	handles := l.produced[path]
	delete(l.produced, path)
	l.mu.Unlock()
	for _, h := range handles {
		remove(l.stores, h)
		l.forget(h)
	}
}

func (l *loader) forget(h asset.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, h)
	delete(l.errs, h)
}

func (l *loader) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.inflight > 0 {
		l.idle.Wait()
	}
}

func (l *loader) taskDone() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if l.inflight == 0 {
		l.idle.Broadcast()
	}
}

func (l *loader) State(h asset.Handle) LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state[h]
}

func (l *loader) Err(h asset.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errs[h]
}

func (l *loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loading) + len(l.done)
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Close()
	}
	l.Wait()
	l.pool.Stop()
}

// resolve anchors a relative path at the root and cleans it.
func (l *loader) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	return filepath.Clean(path)
}
