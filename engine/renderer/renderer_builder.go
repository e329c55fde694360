package renderer

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithResolution sets the size of the image rendered per frame.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolution option to a renderer
func WithResolution(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.config.Width = width
		r.config.Height = height
	}
}

// WithRoughnessThreshold sets the roughness at or below which a surface spawns a reflection ray.
//
// Parameters:
//   - threshold: the roughness cutoff, clamped to [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the threshold option to a renderer
func WithRoughnessThreshold(threshold float32) RendererBuilderOption {
	return func(r *renderer) {
		r.config.RoughnessThreshold = threshold
	}
}

// WithMaxBounces sets the number of bounces traced per seed. Zero disables tracing; seeds are
// still spawned and the image is direct lighting only.
//
// Parameters:
//   - bounces: the bounce count
//
// Returns:
//   - RendererBuilderOption: a function that applies the bounce option to a renderer
func WithMaxBounces(bounces int) RendererBuilderOption {
	return func(r *renderer) {
		r.config.MaxBounces = bounces
	}
}

// WithRayCapacity sets the number of RayNode slots per frame. Zero sizes the buffer so every
// pixel can hold a full chain. Allocations past the capacity are dropped and counted.
//
// Parameters:
//   - capacity: the node slot count
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithRayCapacity(capacity uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.config.RayCapacity = capacity
	}
}

// WithBackfaceCulling makes the tracer ignore triangles facing away from the ray.
//
// Parameters:
//   - cull: true to cull back faces
//
// Returns:
//   - RendererBuilderOption: a function that applies the culling option to a renderer
func WithBackfaceCulling(cull bool) RendererBuilderOption {
	return func(r *renderer) {
		r.config.BackfaceCulling = cull
	}
}

// WithAmbient sets the ambient factor applied to the albedo.
//
// Parameters:
//   - ambient: the factor
//
// Returns:
//   - RendererBuilderOption: a function that applies the ambient option to a renderer
func WithAmbient(ambient float32) RendererBuilderOption {
	return func(r *renderer) {
		r.config.Ambient = ambient
	}
}

// WithShadowBias sets the depth bias of the shadow map comparison.
//
// Parameters:
//   - bias: the bias in light clip depth
//
// Returns:
//   - RendererBuilderOption: a function that applies the bias option to a renderer
func WithShadowBias(bias float32) RendererBuilderOption {
	return func(r *renderer) {
		r.config.ShadowBias = bias
	}
}

// WithClearColor sets the color of pixels and rays that hit nothing.
//
// Parameters:
//   - color: the linear RGBA color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(color mgl32.Vec4) RendererBuilderOption {
	return func(r *renderer) {
		r.config.ClearColor = color
	}
}

// WithTextures sets the texture array material texture indices resolve against.
//
// Parameters:
//   - textures: the texture array, may be nil
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture option to a renderer
func WithTextures(textures *material.TextureArray) RendererBuilderOption {
	return func(r *renderer) {
		r.textures = textures
	}
}

// WithWorkers sets the worker count of the software backend. Zero uses one worker per CPU.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = workers
	}
}

// WithSurface makes the WGPU backend present to a window. Without it the backend renders headless.
//
// Parameters:
//   - w: the window to present to
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option to a renderer
func WithSurface(w window.Window) RendererBuilderOption {
	return func(r *renderer) {
		r.window = w
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
