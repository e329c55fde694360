// Package renderer drives the hybrid frame: migration of a render list into flat scene buffers,
// the raster, spawn, dispatch and trace stages, deferred lighting and presentation. Stages run on
// a RendererBackend, either in Go on a worker pool or as WebGPU pipelines.
package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/Carmen-Shannon/oxy-rt/log"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("renderer")

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	config      raytrace.Config
	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	textures             *material.TextureArray
	workers              int
	window               window.Window
	presentMode          PresentMode
	forceFallbackAdapter bool

	scene       *raytrace.Scene
	dirty       bool
	input       *FrameInput
	frame       uint64
	stats       profiler.FrameStats
	migrateTime profiler.FrameStats
}

// Renderer defines the interface for the hybrid rendering system.
//
// A frame is produced by Migrate, then Trace and Composite, or by RenderFrame which runs all three.
// The migrated scene is kept until the render list changes, which the caller signals with MarkDirty.
// Every method is safe for concurrent use; stages of one renderer never overlap.
type Renderer interface {
	// Config returns the normalized configuration in use.
	//
	// Returns:
	//   - raytrace.Config: the configuration
	Config() raytrace.Config

	// Backend returns the type of the backend running the stages.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Backend() RendererBackendType

	// Scene returns the last migrated scene, nil before the first migration.
	//
	// Returns:
	//   - *raytrace.Scene: the migrated scene
	Scene() *raytrace.Scene

	// MarkDirty makes the next RenderFrame migrate the render list again. Call it after meshes,
	// materials or transforms in the list change.
	MarkDirty()

	// Migrate flattens a render list into the triangle, bounding volume and material buffers and
	// makes them resident on the backend. The previous scene stays in use if migration fails.
	//
	// Parameters:
	//   - list: the render list, lights first
	//
	// Returns:
	//   - error: raytrace.ErrEmptyRenderList, raytrace.ErrNotRenderable or a backend error, wrapped
	Migrate(list *renderlist.List) error

	// Trace resets the frame state and runs the raster, spawn, dispatch and trace stages.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - list: the render list the scene was migrated from
	//
	// Returns:
	//   - error: ErrNotMigrated, ErrInvalidCamera or a backend error, wrapped
	Trace(cam camera.Camera, list *renderlist.List) error

	// Composite runs deferred lighting over the state left by the last Trace.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - list: the render list holding the lights
	//   - shadows: the shadow map source, may be nil
	//
	// Returns:
	//   - error: ErrNotTraced, ErrInvalidCamera or a backend error, wrapped
	Composite(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) error

	// RenderFrame migrates the list when the scene is dirty, then runs Trace and Composite.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - list: the render list
	//   - shadows: the shadow map source, may be nil
	//
	// Returns:
	//   - error: the first stage error, wrapped
	RenderFrame(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) error

	// Present shows the last composite on the window surface.
	//
	// Returns:
	//   - error: ErrNoSurface when rendering headless, ErrNotTraced before the first frame
	Present() error

	// Resize changes the rendered resolution and reallocates the frame state.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the backend cannot allocate the new frame state
	Resize(width, height int) error

	// Output returns the linear color of the last composite, row major.
	//
	// Returns:
	//   - []mgl32.Vec4: one color per pixel
	//   - error: an error if the image cannot be read back
	Output() ([]mgl32.Vec4, error)

	// Image returns the last composite encoded as sRGB.
	//
	// Returns:
	//   - *image.RGBA: the image
	//   - error: an error if the image cannot be read back
	Image() (*image.RGBA, error)

	// Frame returns the ray state of the last trace for diagnostics.
	//
	// Returns:
	//   - *raytrace.FrameContext: the node buffer, head image, counter and dispatch descriptor
	//   - error: an error if the state cannot be read back
	Frame() (*raytrace.FrameContext, error)

	// Stats returns the measurements of the last frame.
	//
	// Returns:
	//   - profiler.FrameStats: timings and ray counts
	Stats() profiler.FrameStats

	// Release frees every backend resource. The renderer must not be used afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer on the given backend.
//
// Parameters:
//   - backendType: the backend running the stages
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrBackendUnavailable wrapped with the cause when the backend cannot be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		config:      raytrace.DefaultConfig(),
		backendType: backendType,
		workers:     max(runtime.NumCPU()-1, 1),
		dirty:       true,
	}
	for _, opt := range options {
		opt(r)
	}
	r.config = r.config.Normalized()
	if r.workers <= 0 {
		r.workers = max(runtime.NumCPU()-1, 1)
	}

	var err error
	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.workers)
	case BackendTypeWGPU:
		r.backend, err = newWGPURendererBackend(wgpuBackendOptions{
			window:               r.window,
			forceFallbackAdapter: r.forceFallbackAdapter,
			presentMode:          r.presentMode,
			textures:             r.textures,
		})
	default:
		err = fmt.Errorf("%w: %s", ErrBackendUnavailable, backendType)
	}
	if err != nil {
		logger.Errorf("create %s backend: %v", backendType, err)
		return nil, err
	}

	if err := r.backend.Resize(r.config); err != nil {
		logger.Errorf("allocate frame state: %v", err)
		r.backend.Release()
		return nil, fmt.Errorf("allocate frame state: %w", err)
	}
	logger.Infof("%s renderer %dx%d, threshold %.2f, %d bounces, %d ray slots",
		backendType, r.config.Width, r.config.Height, r.config.RoughnessThreshold, r.config.MaxBounces, r.config.Capacity())
	return r, nil
}

func (r *renderer) Config() raytrace.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

func (r *renderer) Backend() RendererBackendType {
	return r.backendType
}

func (r *renderer) Scene() *raytrace.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene
}

func (r *renderer) MarkDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = true
}

func (r *renderer) Migrate(list *renderlist.List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.migrate(list)
}

func (r *renderer) migrate(list *renderlist.List) error {
	var scene *raytrace.Scene
	err := r.migrateTime.Measure(profiler.StageMigrate, func() error {
		if err := r.backend.PrepareMeshes(list); err != nil {
			return err
		}
		s, err := raytrace.Migrate(list, r.backend.MeshReader(), r.textures)
		if err != nil {
			return err
		}
		if err := r.backend.Upload(s, list); err != nil {
			return err
		}
		scene = s
		return nil
	})
	if err != nil {
		logger.Errorf("migrate: %v", err)
		return fmt.Errorf("migrate: %w", err)
	}
	r.scene = scene
	r.dirty = false
	logger.Debugf("migrated %d triangles in %d volumes, %d materials",
		len(scene.Triangles), len(scene.Volumes), len(scene.Materials))
	return nil
}

func (r *renderer) Trace(cam camera.Camera, list *renderlist.List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace(cam, list)
}

func (r *renderer) trace(cam camera.Camera, list *renderlist.List) error {
	if r.scene == nil {
		logger.Errorf("trace: %v", ErrNotMigrated)
		return ErrNotMigrated
	}
	in, err := r.frameInput(cam, list, nil)
	if err != nil {
		logger.Errorf("trace: %v", err)
		return err
	}

	r.beginFrame()
	if err := r.backend.Trace(in, &r.stats); err != nil {
		logger.Errorf("trace: %v", err)
		return fmt.Errorf("trace: %w", err)
	}
	r.input = in

	if r.stats.Dropped > 0 {
		logger.Warningf("frame %d: ray buffer full, %d allocations dropped (capacity %d)",
			r.stats.Frame, r.stats.Dropped, r.config.Capacity())
	}
	logger.Debugf("frame %d: %d rays spawned, %d nodes, %d hits",
		r.stats.Frame, r.stats.Seeds, r.stats.Nodes, r.stats.Hits)
	return nil
}

func (r *renderer) Composite(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.composite(cam, list, shadows)
}

func (r *renderer) composite(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) error {
	if r.input == nil {
		logger.Errorf("composite: %v", ErrNotTraced)
		return ErrNotTraced
	}
	in, err := r.frameInput(cam, list, shadows)
	if err != nil {
		logger.Errorf("composite: %v", err)
		return err
	}
	if err := r.backend.Composite(in, &r.stats); err != nil {
		logger.Errorf("composite: %v", err)
		return fmt.Errorf("composite: %w", err)
	}
	r.input = in
	return nil
}

func (r *renderer) RenderFrame(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dirty || r.scene == nil {
		if err := r.migrate(list); err != nil {
			return err
		}
	}
	if err := r.trace(cam, list); err != nil {
		return err
	}
	return r.composite(cam, list, shadows)
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.input == nil {
		return ErrNotTraced
	}
	return r.stats.Measure(profiler.StagePresent, func() error {
		return r.backend.Present(r.input)
	})
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.config
	cfg.Width, cfg.Height = width, height
	cfg = cfg.Normalized()
	if cfg.Width == r.config.Width && cfg.Height == r.config.Height {
		return nil
	}
	if err := r.backend.Resize(cfg); err != nil {
		logger.Errorf("resize to %dx%d: %v", cfg.Width, cfg.Height, err)
		return fmt.Errorf("resize: %w", err)
	}
	r.config = cfg
	r.input = nil
	logger.Infof("resized to %dx%d, %d ray slots", cfg.Width, cfg.Height, cfg.Capacity())
	return nil
}

func (r *renderer) Output() ([]mgl32.Vec4, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Output()
}

func (r *renderer) Image() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	colors, err := r.backend.Output()
	if err != nil {
		return nil, err
	}
	return ToImage(colors, r.config.Width, r.config.Height), nil
}

func (r *renderer) Frame() (*raytrace.FrameContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Frame()
}

func (r *renderer) Stats() profiler.FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
	r.scene = nil
	r.input = nil
}

// beginFrame starts the statistics of a new frame, carrying over the migration time spent since
// the previous one.
func (r *renderer) beginFrame() {
	r.frame++
	r.stats = profiler.FrameStats{
		Frame:   r.frame,
		Backend: r.backendType.String(),
		Width:   r.config.Width,
		Height:  r.config.Height,
	}
	r.stats.Record(profiler.StageMigrate, r.migrateTime.Timing(profiler.StageMigrate))
	r.migrateTime = profiler.FrameStats{}
}

func (r *renderer) frameInput(cam camera.Camera, list *renderlist.List, shadows light.ShadowSource) (*FrameInput, error) {
	if cam == nil {
		return nil, fmt.Errorf("%w: nil camera", ErrInvalidCamera)
	}
	if err := cam.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCamera, err)
	}
	if list == nil {
		list = renderlist.NewList()
	}
	return &FrameInput{
		Config:   r.config,
		ViewProj: cam.ViewProjectionMatrix(),
		Eye:      cam.Position(),
		List:     list,
		Shadows:  shadows,
	}, nil
}
