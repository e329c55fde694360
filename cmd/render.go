package cmd

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"
)

const (
	// Coefficients for converting cursor deltas to orbit angles.
	mouseSensitivity float32 = 0.005

	// World units per second for the light moved with W, A, S, D, Q and E.
	lightMoveSpeed float32 = 3
)

var errInteractiveBackend = errors.New("interactive view needs the wgpu backend")

// RenderFrame renders a single frame of the demo scene and writes it as a PNG.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	scene, err := newDemoScene(ctx.String("texture"))
	if err != nil {
		return err
	}

	backendType, options, err := rendererOptions(ctx, scene)
	if err != nil {
		return err
	}
	r, err := renderer.NewRenderer(backendType, options...)
	if err != nil {
		return err
	}
	defer r.Release()

	eng, err := engine.NewEngine(
		engine.WithRenderer(r),
		engine.WithCamera(newCamera(ctx)),
		engine.WithRoot(scene.root),
		engine.WithShadowMapSize(ctx.Int("shadow-size")),
	)
	if err != nil {
		return err
	}
	defer eng.Quit()

	logger.Noticef("rendering %dx%d frame", ctx.Int("width"), ctx.Int("height"))
	if err := eng.RenderFrame(); err != nil {
		return err
	}

	img, err := r.Image()
	if err != nil {
		return err
	}
	out := ctx.String("out")
	if err := renderer.SavePNG(out, img); err != nil {
		return err
	}
	logger.Noticef("wrote %s", out)

	displayFrameStats(r)
	return nil
}

// RenderInteractive opens a window and renders the demo scene until it is closed.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	scene, err := newDemoScene(ctx.String("texture"))
	if err != nil {
		return err
	}

	backendType, options, err := rendererOptions(ctx, scene)
	if err != nil {
		return err
	}
	if backendType != renderer.BackendTypeWGPU {
		return errInteractiveBackend
	}

	win, err := window.NewWindow(
		window.WithTitle("oxy-rt"),
		window.WithSize(ctx.Int("width"), ctx.Int("height")),
		window.WithSizeLimits(160, 120, 3840, 2160),
	)
	if err != nil {
		return err
	}

	presentMode := renderer.PresentModeUncapped
	if ctx.Bool("vsync") {
		presentMode = renderer.PresentModeVSync
	}
	options = append(options, renderer.WithSurface(win), renderer.WithPresentMode(presentMode))
	r, err := renderer.NewRenderer(backendType, options...)
	if err != nil {
		return err
	}
	defer r.Release()

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithCamera(newCamera(ctx)),
		engine.WithRoot(scene.root),
		engine.WithControlledLight(scene.key, lightMoveSpeed),
		engine.WithShadowMapSize(ctx.Int("shadow-size")),
		engine.WithProfiling(ctx.Bool("profile")),
		engine.WithRenderFrameLimit(ctx.Float64("fps")),
	)
	if err != nil {
		return err
	}
	eng.SetTickCallback(func(dt float32) {
		scene.advance(dt)
		eng.MarkDirty()
	})

	logger.Notice("controls: drag to orbit, right drag to pan, scroll to zoom, WASDQE to move the key light, space to pause, P for stats, Esc to quit")
	return eng.Run()
}

func rendererOptions(ctx *cli.Context, scene *demoScene) (renderer.RendererBackendType, []renderer.RendererBuilderOption, error) {
	backendType, err := renderer.ParseBackendType(ctx.String("backend"))
	if err != nil {
		return 0, nil, err
	}

	width, height := ctx.Int("width"), ctx.Int("height")
	if width <= 0 || height <= 0 {
		return 0, nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	options := []renderer.RendererBuilderOption{
		renderer.WithResolution(width, height),
		renderer.WithRoughnessThreshold(float32(ctx.Float64("threshold"))),
		renderer.WithMaxBounces(ctx.Int("bounces")),
		renderer.WithRayCapacity(uint32(max(ctx.Int("capacity"), 0))),
		renderer.WithBackfaceCulling(ctx.Bool("cull")),
		renderer.WithAmbient(float32(ctx.Float64("ambient"))),
		renderer.WithClearColor(mgl32.Vec4{0.05, 0.06, 0.08, 1}),
		renderer.WithTextures(scene.textures),
		renderer.WithWorkers(ctx.Int("workers")),
		renderer.WithForceSoftwareRenderer(ctx.Bool("fallback-adapter")),
	}
	return backendType, options, nil
}

func newCamera(ctx *cli.Context) camera.Camera {
	aspect := float32(ctx.Int("width")) / float32(ctx.Int("height"))
	return camera.NewCamera(
		camera.WithAspect(aspect),
		camera.WithController(camera.NewCameraController(
			camera.WithTarget(mgl32.Vec3{0, 0.8, 0}),
			camera.WithRadius(9),
			camera.WithAzimuth(0.6),
			camera.WithElevation(0.35),
			camera.WithRadiusBounds(2, 40),
			camera.WithMouseSensitivity(mouseSensitivity),
		)),
	)
}

func displayFrameStats(r renderer.Renderer) {
	stats := r.Stats()
	logger.Noticef("frame statistics\n%s", stats.Table())
}
