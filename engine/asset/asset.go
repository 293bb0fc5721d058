// Package asset defines the identity and storage of engine assets: meshes, textures,
// shaders and pipeline descriptors. Assets are addressed by Handle and stored in typed
// Assets collections that queue change events for the render core to consume once per frame.
package asset

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the fixed set of asset kinds the render core depends on.
type Kind int

const (
	// KindMesh is vertex/index geometry.
	KindMesh Kind = iota

	// KindTexture is decoded image data bound as a sampled texture.
	KindTexture

	// KindShader is a WGSL shader module.
	KindShader

	// KindPipelineDescriptor is a pipeline template: shader references plus fixed-function state.
	KindPipelineDescriptor
)

// Kinds lists every asset kind in declaration order.
var Kinds = [...]Kind{KindMesh, KindTexture, KindShader, KindPipelineDescriptor}

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindTexture:
		return "texture"
	case KindShader:
		return "shader"
	case KindPipelineDescriptor:
		return "pipeline_descriptor"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// handleNamespace scopes path-derived handle ids so they never collide with random ones.
var handleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("oxy-render/asset"))

// Handle references an asset of a given kind. Handles are comparable and usable as map keys.
type Handle struct {
	Kind Kind
	ID   uuid.UUID
}

// NewHandle returns a handle with a fresh random id.
//
// Parameters:
//   - kind: the asset kind the handle refers to
//
// Returns:
//   - Handle: the new handle
func NewHandle(kind Kind) Handle {
	return Handle{Kind: kind, ID: uuid.New()}
}

// HandleFromPath returns the stable handle for an asset loaded from path.
// The same path always maps to the same handle, which is what lets a reloaded file
// replace the asset in place and lets other assets reference it before it has loaded.
//
// Parameters:
//   - kind: the asset kind the handle refers to
//   - path: the cleaned, absolute source path
//
// Returns:
//   - Handle: the path-derived handle
func HandleFromPath(kind Kind, path string) Handle {
	return Handle{Kind: kind, ID: uuid.NewSHA1(handleNamespace, []byte(kind.String()+":"+path))}
}

// HandleFromLabeledPath returns the stable handle of a sub-asset inside a file, such as one
// primitive of a glTF mesh ("Mesh0/Primitive1"). An empty label is the file's main asset.
//
// Parameters:
//   - kind: the asset kind the handle refers to
//   - path: the cleaned, absolute source path
//   - label: the sub-asset label within the file
//
// Returns:
//   - Handle: the path-derived handle
func HandleFromLabeledPath(kind Kind, path, label string) Handle {
	if label == "" {
		return HandleFromPath(kind, path)
	}
	return HandleFromPath(kind, path+"#"+label)
}

// IsNil reports whether the handle has no id.
func (h Handle) IsNil() bool {
	return h.ID == uuid.Nil
}

// Compare orders handles by kind, then by id bytes.
func (h Handle) Compare(other Handle) int {
	if n := cmp.Compare(h.Kind, other.Kind); n != 0 {
		return n
	}
	return bytes.Compare(h.ID[:], other.ID[:])
}

func (h Handle) String() string {
	return h.Kind.String() + "/" + h.ID.String()
}

// EventType classifies an asset change.
type EventType int

const (
	// EventCreated is emitted the first time a handle receives a value.
	EventCreated EventType = iota

	// EventModified is emitted when an existing handle's value is replaced (e.g. hot reload).
	EventModified

	// EventRemoved is emitted when a handle's value is removed.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event describes a change to one asset.
type Event struct {
	Type   EventType
	Handle Handle
}
