// Package engine drives a renderer from a scene graph. A fixed rate tick goroutine animates the
// graph and applies input while the render goroutine migrates, shadows, traces, composites and
// presents each frame.
package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/Carmen-Shannon/oxy-rt/log"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("engine")

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	stopOnce    sync.Once

	windowClosed bool // only touched on the window thread

	dirty atomic.Bool

	// mu guards the scene graph and the input state shared by both loops.
	mu         *sync.Mutex
	root       *renderlist.Node
	paused     bool
	pressed    map[int]bool
	controlled light.Light
	lightSpeed float32

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera

	pool          worker.DynamicWorkerPool
	shadows       *gbuffer.ShadowMapper
	shadowMapSize int

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, nil when rendering headless
	Window() window.Window

	// Renderer returns the renderer the engine drives.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Camera returns the camera frames are rendered from.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Update runs fn with exclusive access to the scene graph. Changing a mesh or its placement
	// requires MarkDirty so the next frame migrates again; moving lights does not.
	//
	// Parameters:
	//   - fn: the function receiving the root node
	Update(fn func(root *renderlist.Node))

	// MarkDirty makes the next frame migrate the scene graph before tracing.
	MarkDirty()

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// The callback runs with the scene graph locked, so it may modify nodes directly and call
	// MarkDirty, but not Update.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// RenderFrame renders one frame of the current scene graph: it flattens the graph, migrates
	// when dirty, redraws the shadow maps and runs every stage of the renderer. It does not
	// present.
	//
	// Returns:
	//   - error: the first failing stage's error
	RenderFrame() error

	// Run starts the tick and render loops and processes window messages until the window closes.
	//
	// Returns:
	//   - error: ErrNoWindow when the engine was built without a window
	Run() error

	// Quit signals all engine goroutines to stop, waits for them and stops the worker pool.
	// Safe to call multiple times; it must not be called from a tick or render callback.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A renderer, a camera and a scene graph root are required; the window is optional.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrMissingRenderer, ErrMissingCamera or ErrMissingScene
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		mu:               &sync.Mutex{},
		pressed:          make(map[int]bool),
		lightSpeed:       4,
		shadowMapSize:    light.ShadowMapResolution,
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(time.Second),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	switch {
	case e.renderer == nil:
		return nil, ErrMissingRenderer
	case e.camera == nil:
		return nil, ErrMissingCamera
	case e.root == nil:
		return nil, ErrMissingScene
	}

	e.pool = worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 64, time.Second)
	e.shadows = gbuffer.NewShadowMapper(e.pool, e.shadowMapSize)

	e.dirty.Store(true)
	if e.window != nil {
		e.bindInput()
	}
	return e, nil
}

// bindInput routes window events: drag orbits or pans the camera, scroll zooms, held keys move the
// controlled light.
func (e *engine) bindInput() {
	// The window must be destroyed on the thread processing its messages.
	e.window.SetFrameCallback(func() {
		select {
		case <-e.quitChannel:
			if !e.windowClosed {
				e.windowClosed = true
				if err := e.window.Close(); err != nil {
					logger.Warningf("close window: %v", err)
				}
			}
		default:
		}
	})

	e.window.SetResizeCallback(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		if err := e.renderer.Resize(width, height); err != nil {
			logger.Errorf("resize: %v", err)
		}
		e.camera.SetAspect(float32(width) / float32(height))
	})

	e.window.SetDragCallback(func(button window.MouseButton, dx, dy float32) {
		ctrl := e.camera.Controller()
		if ctrl == nil {
			return
		}
		switch button {
		case window.MouseButtonLeft:
			ctrl.Orbit(dx, dy)
		default:
			ctrl.Pan(dx, dy)
		}
	})

	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})

	e.window.SetKeyDownCallback(func(keyCode uint32) {
		e.mu.Lock()
		defer e.mu.Unlock()

		key := int(keyCode)
		e.pressed[key] = true
		switch key {
		case common.KeySpace:
			e.paused = !e.paused
			logger.Infof("animation paused: %t", e.paused)
		case common.KeyR:
			e.dirty.Store(true)
		case common.KeyP:
			stats := e.renderer.Stats()
			logger.Noticef("frame %d\n%s", stats.Frame, stats.Table())
		case common.KeyEsc:
			go e.Quit()
		}
	})

	e.window.SetKeyUpCallback(func(keyCode uint32) {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.pressed, int(keyCode))
	})
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Update(fn func(root *renderlist.Node)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.root)
}

func (e *engine) MarkDirty() {
	e.dirty.Store(true)
}

func (e *engine) RenderFrame() error {
	e.mu.Lock()
	list := e.root.Flatten()
	e.mu.Unlock()
	dirty := e.dirty.Swap(false)

	e.camera.Update()
	r := e.renderer
	if dirty || r.Scene() == nil {
		if err := r.Migrate(list); err != nil {
			e.MarkDirty()
			return err
		}
	}
	e.shadows.Update(r.Scene(), list)
	if err := r.RenderFrame(e.camera, list, e.shadows); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	return nil
}

func (e *engine) Run() error {
	if e.window == nil {
		return ErrNoWindow
	}
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.Quit()
	if !e.windowClosed {
		e.windowClosed = true
		if err := e.window.Close(); err != nil {
			logger.Warningf("close window: %v", err)
		}
	}
	return nil
}

// Quit stops both loops, waits for them and shuts the worker pool down. Further calls return
// immediately.
func (e *engine) Quit() {
	e.signalQuit()
	e.wg.Wait()
	e.stopOnce.Do(e.pool.Stop)
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle starts the tick and render loops.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine ticks at engineTickRate until quit. Rate changes arrive on tickRateChannel.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			e.tick(dt)
		case rate := <-e.tickRateChannel:
			ticker.Reset(rate)
			e.engineTickRate = rate
		}
	}
}

// tick moves the controlled light by the held keys and runs the tick callback unless paused.
func (e *engine) tick(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.controlled != nil {
		var move mgl32.Vec3
		for key := range e.pressed {
			if d, ok := common.LightMoveKeys[key]; ok {
				move = move.Add(mgl32.Vec3(d))
			}
		}
		if move.Len() > 0 {
			e.controlled.Translate(move.Normalize().Mul(e.lightSpeed * dt))
		}
	}

	if !e.paused && e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// handleRender renders and presents frames back to back, sleeping to honor renderFrameLimit.
// A failed frame or a panic stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("render loop panicked: %v", r)
			e.signalQuit()
		}
	}()

	last := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		if err := e.RenderFrame(); err != nil {
			logger.Errorf("render: %v", err)
			e.signalQuit()
			return
		}
		if err := e.renderer.Present(); err != nil {
			logger.Errorf("present: %v", err)
			e.signalQuit()
			return
		}
		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick(e.renderer.Stats())
		}

		if e.renderFrameLimit > 0 {
			if wait := e.renderFrameLimit - time.Since(start); wait > 0 {
				time.Sleep(wait)
			}
		}
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	rate := time.Second / time.Duration(fps)
	if !e.running {
		e.engineTickRate = rate
		return
	}

	// Replace a pending rate rather than block the caller.
	select {
	case e.tickRateChannel <- rate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- rate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
