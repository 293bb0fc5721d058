package renderer

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_resource"

	"github.com/cogentcore/webgpu/wgpu"
)

// basePasses returns the logic of the built-in graph nodes. Nodes run inside Render, which
// holds the renderer lock.
func (r *renderer) basePasses(cfg render_graph.BaseConfig) render_graph.BasePasses {
	return render_graph.BasePasses{
		MainColorTarget: func(_ context.Context, rc *render_graph.RunContext) error {
			h, err := r.target(&r.colorTarget, "main_color", wgpu.TextureFormatRGBA8UnormSrgb,
				wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
			if err != nil {
				return err
			}
			return rc.Output(render_graph.SlotTexture, h)
		},
		MainDepthTexture: func(_ context.Context, rc *render_graph.RunContext) error {
			h, err := r.target(&r.depthTarget, "main_depth", wgpu.TextureFormatDepth24Plus, wgpu.TextureUsageRenderAttachment)
			if err != nil {
				return err
			}
			return rc.Output(render_graph.SlotTexture, h)
		},
		Camera3d: r.cameraPass(view3d, camera3dBuffer),
		Camera2d: r.cameraPass(view2d, camera2dBuffer),
		MainPass: r.mainPass(cfg),
	}
}

// target returns the render target stored in slot, creating it at the current size.
func (r *renderer) target(slot *render_resource.ResourceHandle, label string, format wgpu.TextureFormat, usage wgpu.TextureUsage) (render_resource.ResourceHandle, error) {
	if *slot != 0 {
		return *slot, nil
	}
	h, err := r.device.CreateTexture(device.TextureDescriptor{
		Label:  label,
		Width:  r.width,
		Height: r.height,
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create %s target: %w", label, err)
	}
	*slot = h
	return h, nil
}

// cameraPass uploads the view captured by PrepareResources. Without an active camera the
// identity view is used.
func (r *renderer) cameraPass(index int, buffer string) render_graph.RunFunc {
	return func(_ context.Context, rc *render_graph.RunContext) error {
		view := View{ViewProjection: common.Identity4()}
		if v := r.views[index]; v != nil {
			view = *v
		}
		h, err := r.cameras.EnsureBuffer(r.device, buffer, ViewUniformSize)
		if err != nil {
			return err
		}
		if err := bind_group_provider.Flush(r.device, []bind_group_provider.BufferWrite{
			{Provider: r.cameras, Name: buffer, Data: view.UniformBytes()},
		}); err != nil {
			return err
		}
		return rc.Output(render_graph.SlotCamera, h)
	}
}

// mainPass draws every entity present in both assignment tables, batched by pipeline.
func (r *renderer) mainPass(cfg render_graph.BaseConfig) render_graph.RunFunc {
	clearColor := wgpu.Color{R: cfg.ClearColor[0], G: cfg.ClearColor[1], B: cfg.ClearColor[2], A: cfg.ClearColor[3]}

	return func(_ context.Context, rc *render_graph.RunContext) error {
		log := common.Logger()
		color, ok := rc.Input(render_graph.InputColorAttachment)
		if !ok {
			log.Debug("main pass has no color attachment, nothing drawn", "frame", rc.Frame())
			return nil
		}

		desc := device.PassDescriptor{
			Label:       render_graph.NodeMainPass,
			ColorTarget: color.(render_resource.ResourceHandle),
			ClearColor:  clearColor,
			ClearDepth:  1,
		}
		if depth, ok := rc.Input(render_graph.InputDepthAttachment); ok {
			desc.DepthTarget = depth.(render_resource.ResourceHandle)
		}

		pass, err := r.device.BeginPass(desc)
		if err != nil {
			return fmt.Errorf("failed to begin main pass: %w", err)
		}

		drawn := 0
		for _, batch := range r.pipelines.Batches() {
			if err := pass.SetPipeline(batch.Pipeline.Handle); err != nil {
				log.Warn("failed to set pipeline", "pipeline", batch.Pipeline.Label, "error", err)
				continue
			}
			shared, _ := r.resources.Shared(batch.Pipeline.Handle)
			for _, e := range batch.Entities {
				own, ok := r.resources.Get(e)
				if !ok {
					continue
				}
				geometry, ok := r.drawables[e]
				if !ok {
					continue
				}
				if err := r.draw(pass, batch.Pipeline, geometry, shared, own); err != nil {
					log.Warn("draw failed", "entity", e, "pipeline", batch.Pipeline.Label, "error", err)
					continue
				}
				drawn++
			}
		}

		if err := pass.End(); err != nil {
			return fmt.Errorf("failed to end main pass: %w", err)
		}
		log.Debug("main pass complete", "frame", rc.Frame(), "draws", drawn)
		return nil
	}
}

func (r *renderer) draw(pass device.Pass, p *pipeline.CompiledPipeline, geometry bind_group_provider.BindGroupProvider, shared, own []render_resource.ResourceBinding) error {
	bindings, err := render_resource.NewBindingSet(append(shared[:len(shared):len(shared)], own...)...)
	if err != nil {
		return err
	}
	groups := render_resource.GroupBindings(bindings)
	for g := uint32(0); g < p.Groups; g++ {
		bg, err := r.bindGroups.Get(p.Handle, g, groups[g])
		if err != nil {
			return fmt.Errorf("group %d: %w", g, err)
		}
		if err := pass.SetBindGroup(g, bg); err != nil {
			return err
		}
	}

	if err := pass.SetVertexBuffer(0, geometry.VertexBuffer()); err != nil {
		return err
	}
	if ib := geometry.IndexBuffer(); ib != 0 {
		if err := pass.SetIndexBuffer(ib); err != nil {
			return err
		}
		pass.DrawIndexed(geometry.IndexCount(), 1)
		return nil
	}
	pass.Draw(geometry.VertexCount(), 1)
	return nil
}
