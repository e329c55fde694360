package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeSoftware runs every stage in Go on a worker pool.
	BackendTypeSoftware RendererBackendType = iota

	// BackendTypeWGPU runs every stage as a WebGPU pipeline.
	BackendTypeWGPU
)

// String returns the name used on the command line.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeSoftware:
		return "software"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType maps a command line name to a backend type.
//
// Parameters:
//   - name: "software", "cpu", "wgpu" or "gpu", case insensitive
//
// Returns:
//   - RendererBackendType: the matching type
//   - error: an error if the name is unknown
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "software", "cpu":
		return BackendTypeSoftware, nil
	case "wgpu", "gpu":
		return BackendTypeWGPU, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", name)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// FrameInput carries the per-frame state a backend needs beyond the migrated scene.
type FrameInput struct {
	Config   raytrace.Config
	ViewProj mgl32.Mat4
	Eye      mgl32.Vec3
	List     *renderlist.List
	Shadows  light.ShadowSource
}

// Uniforms packs the input into the record shared by every kernel.
//
// Parameters:
//   - scene: the migrated scene, for the volume count
//   - shadowMapSize: the edge length of the uploaded shadow maps, 0 when there are none
//
// Returns:
//   - raytrace.FrameUniforms: the uniform block
func (in *FrameInput) Uniforms(scene *raytrace.Scene, shadowMapSize int) raytrace.FrameUniforms {
	cfg := in.Config
	u := raytrace.FrameUniforms{
		ViewProj:           in.ViewProj,
		CameraPos:          in.Eye.Vec4(1),
		ClearColor:         cfg.ClearColor,
		Width:              uint32(cfg.Width),
		Height:             uint32(cfg.Height),
		MaxBounces:         uint32(cfg.MaxBounces),
		Capacity:           cfg.Capacity(),
		RoughnessThreshold: cfg.RoughnessThreshold,
		Ambient:            cfg.Ambient,
		ShadowBias:         cfg.ShadowBias,
		LightCount:         uint32(in.List.LightCount()),
		ShadowMapSize:      uint32(shadowMapSize),
	}
	if scene != nil {
		u.VolumeCount = uint32(len(scene.Volumes))
	}
	if cfg.BackfaceCulling {
		u.BackfaceCulling = 1
	}
	return u
}

// RendererBackend runs the stages of a frame. Both implementations give the same results for the
// same inputs; the software backend is the reference.
type RendererBackend interface {
	// Type returns the backend type.
	//
	// Returns:
	//   - RendererBackendType: the type
	Type() RendererBackendType

	// MeshReader returns the geometry transfer migration reads meshes through.
	//
	// Returns:
	//   - raytrace.MeshReader: the reader for this backend's mesh storage
	MeshReader() raytrace.MeshReader

	// PrepareMeshes makes sure every mesh of a list has the storage MeshReader reads from.
	//
	// Parameters:
	//   - list: the render list about to be migrated
	//
	// Returns:
	//   - error: an error if mesh storage cannot be created
	PrepareMeshes(list *renderlist.List) error

	// Upload makes a migrated scene resident for the following frames. The previous scene is
	// released only once the new one is in place.
	//
	// Parameters:
	//   - scene: the migrated scene
	//   - list: the list the scene was migrated from
	//
	// Returns:
	//   - error: an error if the scene buffers cannot be created
	Upload(scene *raytrace.Scene, list *renderlist.List) error

	// Resize reallocates the per-frame state for a configuration.
	//
	// Parameters:
	//   - cfg: the normalized configuration
	//
	// Returns:
	//   - error: an error if the frame resources cannot be created
	Resize(cfg raytrace.Config) error

	// Trace runs reset, raster, spawn, dispatch build and trace.
	//
	// Parameters:
	//   - in: the frame input
	//   - stats: receives timings and ray counts
	//
	// Returns:
	//   - error: an error if a stage cannot run
	Trace(in *FrameInput, stats *profiler.FrameStats) error

	// Composite runs the lighting integrator over the state left by Trace.
	//
	// Parameters:
	//   - in: the frame input
	//   - stats: receives the lighting timing
	//
	// Returns:
	//   - error: an error if the stage cannot run
	Composite(in *FrameInput, stats *profiler.FrameStats) error

	// Output returns the linear color of the last composite, row major.
	//
	// Returns:
	//   - []mgl32.Vec4: one color per pixel
	//   - error: an error if the image cannot be read back
	Output() ([]mgl32.Vec4, error)

	// Frame returns the ray state of the last trace.
	//
	// Returns:
	//   - *raytrace.FrameContext: the nodes, heads, counter and dispatch descriptor
	//   - error: an error if the state cannot be read back
	Frame() (*raytrace.FrameContext, error)

	// Present shows the last composite on the window surface.
	//
	// Parameters:
	//   - in: the frame input
	//
	// Returns:
	//   - error: ErrNoSurface when the backend renders headless
	Present(in *FrameInput) error

	// Release frees every resource the backend holds.
	Release()
}
