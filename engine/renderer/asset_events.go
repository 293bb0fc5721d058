package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
)

func (r *renderer) HandleAssetEvents() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range asset.Kinds {
		for _, evt := range r.drainEvents(kind) {
			if evt.Type == asset.EventCreated {
				continue
			}
			r.handleChange(evt)
		}
	}
}

func (r *renderer) drainEvents(kind asset.Kind) []asset.Event {
	switch kind {
	case asset.KindMesh:
		return r.stores.Meshes.DrainEvents()
	case asset.KindTexture:
		return r.stores.Textures.DrainEvents()
	case asset.KindShader:
		return r.stores.Shaders.DrainEvents()
	case asset.KindPipelineDescriptor:
		return r.stores.Pipelines.DrainEvents()
	default:
		return nil
	}
}

// handleChange reacts to a modified or removed asset.
func (r *renderer) handleChange(evt asset.Event) {
	log := common.Logger()
	switch evt.Handle.Kind {
	case asset.KindMesh:
		if p, ok := r.meshProviders[evt.Handle]; ok {
			p.Release(r.device)
			delete(r.meshProviders, evt.Handle)
			log.Debug("mesh resources released", "mesh", evt.Handle, "event", evt.Type)
		}
	case asset.KindTexture:
		if p, ok := r.textureProviders[evt.Handle]; ok {
			p.Release(r.device)
			delete(r.textureProviders, evt.Handle)
			log.Debug("texture resources released", "texture", evt.Handle, "event", evt.Type)
		}
	case asset.KindShader:
		if n := r.compiler.InvalidateShader(evt.Handle); n > 0 {
			log.Info("pipelines invalidated by shader change", "shader", evt.Handle, "event", evt.Type, "pipelines", n)
		}
	case asset.KindPipelineDescriptor:
		if n := r.compiler.Invalidate(evt.Handle); n > 0 {
			log.Info("pipelines invalidated by descriptor change", "descriptor", evt.Handle, "event", evt.Type, "pipelines", n)
		}
	}
}
