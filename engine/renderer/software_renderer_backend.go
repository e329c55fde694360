package renderer

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/gbuffer"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

// lightingTileRows is the number of rows one lighting task composites.
const lightingTileRows = 8

// softwareRendererBackend runs every stage in Go. Dispatches become ParallelFor calls on a worker
// pool: raster and spawn by row band, trace by workgroup, lighting by row tile.
type softwareRendererBackend struct {
	pool       worker.DynamicWorkerPool
	rasterizer *gbuffer.Rasterizer

	scene  *raytrace.Scene
	gbuf   *gbuffer.GBuffer
	frame  *raytrace.FrameContext
	output []mgl32.Vec4
}

var _ RendererBackend = &softwareRendererBackend{}

func newSoftwareRendererBackend(workers int) *softwareRendererBackend {
	pool := worker.NewDynamicWorkerPool(workers, 256, time.Second)
	logger.Debugf("software backend on %d workers", workers)
	return &softwareRendererBackend{
		pool:       pool,
		rasterizer: gbuffer.NewRasterizer(pool),
	}
}

func (b *softwareRendererBackend) Type() RendererBackendType {
	return BackendTypeSoftware
}

func (b *softwareRendererBackend) MeshReader() raytrace.MeshReader {
	return raytrace.HostReader{}
}

func (b *softwareRendererBackend) PrepareMeshes(list *renderlist.List) error {
	return nil
}

func (b *softwareRendererBackend) Upload(scene *raytrace.Scene, list *renderlist.List) error {
	b.scene = scene
	return nil
}

func (b *softwareRendererBackend) Resize(cfg raytrace.Config) error {
	b.gbuf = gbuffer.NewGBuffer(cfg.Width, cfg.Height)
	b.frame = raytrace.NewFrameContext(cfg.Width, cfg.Height, cfg.MaxBounces, cfg.Capacity())
	b.output = make([]mgl32.Vec4, cfg.Width*cfg.Height)
	return nil
}

func (b *softwareRendererBackend) Trace(in *FrameInput, stats *profiler.FrameStats) error {
	if b.scene == nil {
		return ErrNotMigrated
	}
	f := b.frame
	f.Reset()

	stats.Measure(profiler.StageRaster, func() error {
		b.rasterizer.Draw(b.gbuf, b.scene, in.ViewProj, in.Eye)
		return nil
	})

	stats.Measure(profiler.StageSpawn, func() error {
		spawner := raytrace.Spawner{
			Frame:     f,
			Surfaces:  b.gbuf,
			Eye:       in.Eye,
			Threshold: in.Config.RoughnessThreshold,
		}
		bands := (f.Height + gbuffer.BandHeight - 1) / gbuffer.BandHeight
		common.ParallelFor(b.pool, bands, 1, func(lo, hi int) {
			for band := lo; band < hi; band++ {
				y0 := band * gbuffer.BandHeight
				spawner.Rows(y0, min(y0+gbuffer.BandHeight, f.Height))
			}
		})
		return nil
	})

	var dispatch raytrace.DispatchArgs
	stats.Measure(profiler.StageDispatch, func() error {
		dispatch = f.BuildDispatch()
		return nil
	})

	var hits atomic.Uint32
	stats.Measure(profiler.StageTrace, func() error {
		if in.Config.MaxBounces == 0 {
			return nil
		}
		tracer := raytrace.Tracer{
			Scene:      b.scene,
			Frame:      f,
			MaxBounces: in.Config.MaxBounces,
			Cull:       in.Config.BackfaceCulling,
		}
		common.ParallelFor(b.pool, int(dispatch.Invocations()), raytrace.WorkgroupSize, func(lo, hi int) {
			hits.Add(uint32(tracer.TraceRange(uint32(lo), uint32(hi))))
		})
		return nil
	})

	stats.Seeds, stats.Nodes, stats.Dropped = f.Stats()
	stats.Hits = hits.Load()
	return nil
}

func (b *softwareRendererBackend) Composite(in *FrameInput, stats *profiler.FrameStats) error {
	if b.scene == nil {
		return ErrNotMigrated
	}
	return stats.Measure(profiler.StageLighting, func() error {
		integrator := raytrace.Integrator{
			Frame:    b.frame,
			Surfaces: b.gbuf,
			Shading: &raytrace.Shading{
				Lights:     raytrace.LightSamples(in.List, in.Shadows),
				Ambient:    in.Config.Ambient,
				ShadowBias: in.Config.ShadowBias,
			},
			Eye:        in.Eye,
			ClearColor: in.Config.ClearColor,
		}
		tiles := (b.frame.Height + lightingTileRows - 1) / lightingTileRows
		common.ParallelFor(b.pool, tiles, 1, func(lo, hi int) {
			for t := lo; t < hi; t++ {
				y0 := t * lightingTileRows
				integrator.Rows(b.output, y0, min(y0+lightingTileRows, b.frame.Height))
			}
		})
		return nil
	})
}

func (b *softwareRendererBackend) Output() ([]mgl32.Vec4, error) {
	return slices.Clone(b.output), nil
}

func (b *softwareRendererBackend) Frame() (*raytrace.FrameContext, error) {
	return b.frame, nil
}

func (b *softwareRendererBackend) Present(in *FrameInput) error {
	return ErrNoSurface
}

func (b *softwareRendererBackend) Release() {
	if b.pool != nil {
		b.pool.Stop()
		b.pool = nil
	}
	b.scene = nil
}
