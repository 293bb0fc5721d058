// Command oxyrender loads a directory of assets, spawns one entity per mesh and runs the render
// core for a number of frames, then prints the cache statistics.
//
// Usage:
//
//	oxyrender -assets ./assets -frames 120 -null
//	oxyrender -assets ./assets -frames 0 -watch   # run until interrupted, hot-reloading assets
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/asset"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/mesh"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/pkg/profile"
)

// entitySpacing is the distance between spawned entities on the XZ grid.
const entitySpacing = 2.5

type options struct {
	assets    string
	frames    int
	graph     string
	null      bool
	profile   string
	watch     bool
	verbose   bool
	profiling bool
	width     uint
	height    uint
}

func main() {
	var opts options
	flag.StringVar(&opts.assets, "assets", "assets", "asset directory")
	flag.IntVar(&opts.frames, "frames", 60, "number of frames to run; 0 runs until interrupted")
	flag.StringVar(&opts.graph, "graph", "", "base render graph config (.yaml, .yml or .toml)")
	flag.BoolVar(&opts.null, "null", false, "use the null device instead of a GPU")
	flag.StringVar(&opts.profile, "profile", "", "write a cpu or mem profile to the working directory")
	flag.BoolVar(&opts.watch, "watch", false, "reload assets when their files change")
	flag.BoolVar(&opts.verbose, "v", false, "log debug output")
	flag.BoolVar(&opts.profiling, "stats", false, "log frame statistics every second")
	flag.UintVar(&opts.width, "width", 1280, "render target width")
	flag.UintVar(&opts.height, "height", 720, "render target height")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("oxyrender: %v", err)
	}
}

func run(opts options) error {
	// ── Logging ─────────────────────────────────────────────────────
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// ── Profiling ───────────────────────────────────────────────────
	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", opts.profile)
	}

	// ── Device ──────────────────────────────────────────────────────
	var dev device.Device
	var nullDev *device.NullDevice
	if opts.null {
		nullDev = device.NewNullDevice()
		dev = nullDev
	} else {
		d, err := device.NewWGPUDevice(device.WithLabel("oxyrender"))
		if err != nil {
			return fmt.Errorf("failed to create device (try -null): %w", err)
		}
		dev = d
	}
	defer dev.Close()

	// ── Engine ──────────────────────────────────────────────────────
	plugin := engine.DefaultRenderPlugin()
	if opts.graph != "" {
		cfg, err := render_graph.LoadBaseConfig(opts.graph)
		if err != nil {
			return err
		}
		plugin.BaseRenderGraphConfig = &cfg
	}

	ctrl := camera.NewOrbitController()
	cam := camera.NewCamera(camera.WithController(ctrl), camera.WithFar(1000))
	s := scene.NewScene(scene.WithName("oxyrender"), scene.WithCamera(cam))
	defer s.Close()

	eng, err := engine.NewEngine(dev,
		engine.WithRenderPlugin(plugin),
		engine.WithScene(s),
		engine.WithSize(uint32(opts.width), uint32(opts.height)),
		engine.WithLoaderOptions(loader.WithRoot(opts.assets)),
		engine.WithHotReload(opts.watch),
		engine.WithProfiling(opts.profiling),
		engine.WithTickCallback(func(dt float32) {
			ctrl.Orbit(0.5*dt, 0)
		}),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	// ── Assets ──────────────────────────────────────────────────────
	handles, err := eng.Loader().LoadDir(".")
	if err != nil {
		return err
	}
	eng.Loader().Wait()

	spawned := populate(eng, s, handles)
	// Push the eye back so the whole grid is in view.
	ctrl.Zoom(-2 * float32(math.Sqrt(float64(spawned))) * entitySpacing)
	common.Logger().Info("scene populated", "entities", spawned, "assets", len(handles))

	// ── Frames ──────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.frames <= 0 {
		if err := eng.Run(ctx); err != nil {
			return err
		}
	} else {
		for i := 0; i < opts.frames && ctx.Err() == nil; i++ {
			err := eng.RunFrame(ctx)
			switch {
			case err == nil:
			case errors.Is(err, renderer.ErrGraphConfiguration):
				return err
			default:
				common.Logger().Warn("frame failed", "frame", i, "error", err)
			}
		}
	}

	printStats(eng.Renderer().Stats(), nullDev)
	return nil
}

// populate spawns one entity per loaded mesh, drawn with the first pipeline descriptor. When the
// directory holds no mesh a cube is spawned so the pipeline still has something to draw.
func populate(eng engine.Engine, s scene.Scene, handles []asset.Handle) int {
	var meshes, pipelines, textures []asset.Handle
	for _, h := range handles {
		switch h.Kind {
		case asset.KindMesh:
			meshes = append(meshes, h)
		case asset.KindPipelineDescriptor:
			pipelines = append(pipelines, h)
		case asset.KindTexture:
			textures = append(textures, h)
		}
	}
	if len(pipelines) == 0 {
		common.Logger().Warn("no pipeline descriptors found, nothing to draw")
		return 0
	}
	slices.SortFunc(pipelines, func(a, b asset.Handle) int { return a.Compare(b) })
	if len(meshes) == 0 {
		meshes = append(meshes, eng.Stores().Meshes.Add(mesh.Cube(1)))
	}

	matOpts := []material.MaterialBuilderOption{material.WithName("default")}
	if len(textures) > 0 {
		matOpts = append(matOpts, material.WithTexture("albedo", textures[0]))
	}
	mat := material.NewMaterial(pipelines[0], matOpts...)

	side := int(math.Ceil(math.Sqrt(float64(len(meshes)))))
	offset := float32(side-1) * entitySpacing / 2
	for i, h := range meshes {
		x := float32(i%side)*entitySpacing - offset
		z := float32(i/side)*entitySpacing - offset
		s.Spawn(game_object.NewGameObject(
			game_object.WithMesh(h),
			game_object.WithMaterial(mat),
			game_object.WithPosition(x, 0, z),
			game_object.WithRotationSpeed(0, 1, 0),
		))
	}
	return len(meshes)
}

func printStats(stats renderer.Stats, nullDev *device.NullDevice) {
	fmt.Printf("frames:            %d\n", stats.Frame)
	fmt.Printf("pipeline hits:     %d\n", stats.Compiler.Hits)
	fmt.Printf("pipeline misses:   %d\n", stats.Compiler.Misses)
	fmt.Printf("pipeline failures: %d\n", stats.Compiler.Failures)
	fmt.Printf("live pipelines:    %d\n", stats.Compiler.Live)
	fmt.Printf("waiting entities:  %d\n", stats.Waiting)
	fmt.Printf("bind groups:       %d\n", stats.BindGroups)
	fmt.Printf("meshes uploaded:   %d\n", stats.Meshes)
	fmt.Printf("textures uploaded: %d\n", stats.Textures)
	if nullDev != nil {
		ns := nullDev.Stats()
		fmt.Printf("device pipelines:  %d\n", ns.PipelinesCreated)
		fmt.Printf("draws recorded:    %d\n", len(nullDev.Draws()))
	}
}
