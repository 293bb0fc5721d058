package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnresolvedBinding is returned when a shader binding matches no camera, transform or
// material resource.
var ErrUnresolvedBinding = errors.New("unresolved shader binding")

const bufferUsage = wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst

// Binding names resolved by the renderer before the material is consulted.
var (
	camera3dNames  = []string{"camera", "camera3d", "camera_3d", "view"}
	camera2dNames  = []string{"camera2d", "camera_2d"}
	transformNames = []string{"transform", "model", "mesh"}
)

const (
	camera3dBuffer  = "camera_3d"
	camera2dBuffer  = "camera_2d"
	transformBuffer = "transform"
)

// cameraIndex addresses r.views.
const (
	view3d = iota
	view2d
)

func (r *renderer) PrepareResources(src ComponentSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelines.Clear()
	r.resources.Clear()
	clear(r.drawables)
	r.captureViews(src)

	log := common.Logger()
	var writes []bind_group_provider.BufferWrite
	seen := make(map[common.Entity]struct{})

	for _, e := range src.Renderables() {
		seen[e] = struct{}{}

		meshHandle, ok := src.Mesh(e)
		if !ok {
			continue
		}
		mat, ok := src.Material(e)
		if !ok {
			continue
		}

		if !r.checkReady(e, meshHandle, mat) {
			continue
		}

		meshProvider, err := r.meshProvider(meshHandle)
		if err != nil {
			log.Warn("mesh upload failed", "entity", e, "mesh", meshHandle, "error", err)
			continue
		}

		compiled, err := r.compiler.Compile(mat.Pipeline(), meshProvider.Layout())
		switch {
		case errors.Is(err, render_resource.ErrAssetNotReady):
			// The asset was removed after the readiness check.
			r.waiting.MarkWaiting(e, asset.KindPipelineDescriptor, mat.Pipeline())
			continue
		case errors.Is(err, pipeline.ErrInvalidated):
			log.Debug("pipeline invalidated while compiling", "entity", e)
			continue
		case err != nil:
			log.Warn("pipeline compilation failed", "entity", e, "error", err)
			continue
		}
		r.pipelines.Set(e, compiled)

		shared, own, w, err := r.resolveBindings(e, compiled, mat, src)
		if err != nil {
			var dup *render_resource.DuplicateSlotError
			if !errors.As(err, &dup) {
				r.pipelines.Remove(e)
			}
			log.Warn("resource binding failed", "entity", e, "pipeline", compiled.Label, "error", err)
			continue
		}
		if err := r.resources.Set(e, own...); err != nil {
			log.Warn("resource binding failed", "entity", e, "pipeline", compiled.Label, "error", err)
			continue
		}
		if len(shared) > 0 {
			if err := r.resources.SetShared(compiled.Handle, shared...); err != nil {
				log.Warn("shared binding failed", "pipeline", compiled.Label, "error", err)
			}
		}
		writes = append(writes, w...)
		r.drawables[e] = meshProvider
	}

	if err := bind_group_provider.Flush(r.device, writes); err != nil {
		log.Warn("uniform upload failed", "error", err)
	}
	r.releaseGone(seen)

	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("resources prepared",
			"frame", r.frame, "waiting", r.waiting.Len(), "pipelines", r.pipelines.Len(), "resources", r.resources.Len())
	}
}

// checkReady marks every missing asset of entity and tracks how long it has been waiting.
func (r *renderer) checkReady(e common.Entity, meshHandle asset.Handle, mat material.Material) bool {
	mark := func(h asset.Handle) {
		if !r.stores.IsLoaded(h) {
			r.waiting.MarkWaiting(e, h.Kind, h)
		}
	}

	mark(meshHandle)
	for _, h := range mat.Dependencies() {
		mark(h)
	}
	if desc, ok := r.stores.Pipelines.Get(mat.Pipeline()); ok {
		for _, h := range desc.Shaders() {
			mark(h)
		}
	}

	if r.waiting.IsReady(e) {
		delete(r.waitFrames, e)
		return true
	}

	r.waitFrames[e]++
	if r.staleWaitFrames > 0 && r.waitFrames[e] == r.staleWaitFrames {
		pending := r.waiting.Pending(e)
		ids := make([]string, len(pending))
		for i, p := range pending {
			ids[i] = p.Handle.String()
		}
		common.Logger().Warn("entity still waiting for assets",
			"entity", e, "frames", r.waitFrames[e], "assets", strings.Join(ids, ","))
	}
	return false
}

// releaseGone frees the per-entity buffers of entities that are no longer renderable.
func (r *renderer) releaseGone(seen map[common.Entity]struct{}) {
	for e, p := range r.entityProviders {
		if _, ok := seen[e]; !ok {
			p.Release(r.device)
			delete(r.entityProviders, e)
		}
	}
	for e := range r.waitFrames {
		if _, ok := seen[e]; !ok {
			delete(r.waitFrames, e)
		}
	}
}

func (r *renderer) captureViews(src ComponentSource) {
	r.views = [2]*View{}
	if v, ok := src.ActiveCamera(); ok {
		r.views[view3d] = &v
	}
	if v, ok := src.ActiveCamera2d(); ok {
		r.views[view2d] = &v
	}
}

// resolveBindings maps every reflected binding of compiled to a device resource. Camera bindings
// are shared by every entity of the pipeline; the rest belong to the entity.
func (r *renderer) resolveBindings(e common.Entity, compiled *pipeline.CompiledPipeline, mat material.Material, src ComponentSource) (shared, own []render_resource.ResourceBinding, writes []bind_group_provider.BufferWrite, err error) {
	var entity bind_group_provider.BindGroupProvider
	entityProvider := func() bind_group_provider.BindGroupProvider {
		if entity == nil {
			entity = r.entityProvider(e)
		}
		return entity
	}

	var all []render_resource.ResourceBinding
	for _, b := range compiled.Bindings {
		rb := render_resource.ResourceBinding{Slot: b.Slot(), Kind: b.Kind}
		isShared := false

		switch b.Kind {
		case render_resource.KindUniformBuffer, render_resource.KindStorageBuffer:
			switch {
			case matches(b.Name, camera3dNames):
				rb.Handle, err = r.cameras.EnsureBuffer(r.device, camera3dBuffer, max(ViewUniformSize, b.Size))
				isShared = true
			case matches(b.Name, camera2dNames):
				rb.Handle, err = r.cameras.EnsureBuffer(r.device, camera2dBuffer, max(ViewUniformSize, b.Size))
				isShared = true
			case matches(b.Name, transformNames):
				data := src.Transform(e).Bytes()
				p := entityProvider()
				rb.Handle, err = p.EnsureBuffer(r.device, transformBuffer, max(uint64(len(data)), b.Size))
				writes = append(writes, bind_group_provider.BufferWrite{Provider: p, Name: transformBuffer, Data: data})
			default:
				data, ok := mat.UniformData(b.Name)
				if !ok {
					return nil, nil, nil, fmt.Errorf("%s %q: %w", b.Slot(), b.Name, ErrUnresolvedBinding)
				}
				p := entityProvider()
				rb.Handle, err = p.EnsureBuffer(r.device, b.Name, max(align16(uint64(len(data))), b.Size))
				writes = append(writes, bind_group_provider.BufferWrite{Provider: p, Name: b.Name, Data: data})
			}
		case render_resource.KindSampledTexture:
			h, ok := mat.Texture(b.Name)
			if !ok {
				return nil, nil, nil, fmt.Errorf("%s %q: %w", b.Slot(), b.Name, ErrUnresolvedBinding)
			}
			var p bind_group_provider.BindGroupProvider
			if p, err = r.textureProvider(h); err == nil {
				rb.Handle, _ = p.Texture()
			}
		case render_resource.KindSampler:
			rb.Handle, err = r.sampler(mat, b.Name)
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s %q: %w", b.Slot(), b.Name, err)
		}

		all = append(all, rb)
		if isShared {
			shared = append(shared, rb)
		} else {
			own = append(own, rb)
		}
	}

	explicit := mat.Bindings()
	if _, err := render_resource.NewBindingSet(append(all, explicit...)...); err != nil {
		return nil, nil, nil, err
	}
	return shared, append(own, explicit...), writes, nil
}

// sampler returns the sampler of the texture a sampler binding is named after, or the
// default sampler.
func (r *renderer) sampler(mat material.Material, name string) (render_resource.ResourceHandle, error) {
	for _, suffix := range []string{"_sampler", "Sampler"} {
		base, ok := strings.CutSuffix(name, suffix)
		if !ok {
			continue
		}
		if h, ok := mat.Texture(base); ok {
			p, err := r.textureProvider(h)
			if err != nil {
				return 0, err
			}
			_, s := p.Texture()
			return s, nil
		}
	}

	if r.defaultSampler == 0 {
		s, err := r.device.CreateSampler("default", common.SamplerStagingData{})
		if err != nil {
			return 0, err
		}
		r.defaultSampler = s
	}
	return r.defaultSampler, nil
}

// meshProvider returns the uploaded geometry of a mesh, uploading it on first use.
func (r *renderer) meshProvider(h asset.Handle) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := r.meshProviders[h]; ok {
		return p, nil
	}
	m, ok := r.stores.Meshes.Get(h)
	if !ok {
		return nil, render_resource.ErrAssetNotReady
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	desc, err := m.VertexLayout()
	if err != nil {
		return nil, err
	}
	layout := r.layouts.Intern(desc)

	vertexData := m.VertexBytes()
	vb, err := r.device.CreateBuffer(device.BufferDescriptor{
		Label:    m.Label + "/vertices",
		Size:     uint64(len(vertexData)),
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		Contents: vertexData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer: %w", err)
	}

	var ib render_resource.ResourceHandle
	if len(m.Indices) > 0 {
		indexData := m.IndexBytes()
		ib, err = r.device.CreateBuffer(device.BufferDescriptor{
			Label:    m.Label + "/indices",
			Size:     uint64(len(indexData)),
			Usage:    wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			Contents: indexData,
		})
		if err != nil {
			r.device.DestroyBuffer(vb)
			return nil, fmt.Errorf("failed to create index buffer: %w", err)
		}
	}

	p := bind_group_provider.NewBindGroupProvider(m.Label)
	p.SetGeometry(vb, ib, uint32(m.VertexCount()), uint32(len(m.Indices)), layout)
	r.meshProviders[h] = p
	common.Logger().Debug("mesh uploaded", "mesh", h, "label", m.Label, "vertices", m.VertexCount(), "layout", layout)
	return p, nil
}

// textureProvider returns the uploaded texture and sampler of a texture asset, uploading
// them on first use.
func (r *renderer) textureProvider(h asset.Handle) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := r.textureProviders[h]; ok {
		return p, nil
	}
	t, ok := r.stores.Textures.Get(h)
	if !ok {
		return nil, render_resource.ErrAssetNotReady
	}

	tex, err := r.device.CreateTexture(device.TextureDescriptor{
		Label:  t.Label,
		Width:  t.Data.Width,
		Height: t.Data.Height,
		Format: t.Format,
		Usage:  wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Pixels: t.Data.Pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture: %w", err)
	}
	smp, err := r.device.CreateSampler(t.Label+"/sampler", t.Sampler)
	if err != nil {
		r.device.DestroyTexture(tex)
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	p := bind_group_provider.NewBindGroupProvider(t.Label)
	p.SetTexture(tex, smp)
	r.textureProviders[h] = p
	common.Logger().Debug("texture uploaded", "texture", h, "label", t.Label, "width", t.Data.Width, "height", t.Data.Height)
	return p, nil
}

func (r *renderer) entityProvider(e common.Entity) bind_group_provider.BindGroupProvider {
	p, ok := r.entityProviders[e]
	if !ok {
		p = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("entity/%d.%d", e.ID, e.Version), bind_group_provider.WithBufferUsage(bufferUsage))
		r.entityProviders[e] = p
	}
	return p
}

func matches(name string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

func align16(n uint64) uint64 {
	return (n + 15) &^ 15
}
