package gbuffer

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapper renders a depth map per shadow-casting light of a render list. Maps are kept across
// updates and redrawn in place.
type ShadowMapper struct {
	pool worker.DynamicWorkerPool
	size int
	maps light.ShadowMaps
}

var _ light.ShadowSource = &ShadowMapper{}

// NewShadowMapper creates a mapper producing size x size maps on pool.
func NewShadowMapper(pool worker.DynamicWorkerPool, size int) *ShadowMapper {
	return &ShadowMapper{pool: pool, size: max(size, 1)}
}

// Size returns the edge length of every map in texels.
func (s *ShadowMapper) Size() int {
	return s.size
}

// ShadowMap returns the map of the light at a render list index.
func (s *ShadowMapper) ShadowMap(index int) (*light.ShadowMap, bool) {
	return s.maps.ShadowMap(index)
}

// Maps returns the current maps indexed by light position. Lights without shadows hold nil.
func (s *ShadowMapper) Maps() light.ShadowMaps {
	return s.maps
}

// Update redraws the map of every shadow-casting light of list from the migrated scene.
//
// Parameters:
//   - scene: the migrated scene providing occluders
//   - list: the render list providing the lights
func (s *ShadowMapper) Update(scene *raytrace.Scene, list *renderlist.List) {
	lights := list.Lights()
	if len(s.maps) != len(lights) {
		s.maps = make(light.ShadowMaps, len(lights))
	}
	for i, e := range lights {
		l, ok := e.AsLight()
		if !ok || !l.CastsShadows() {
			s.maps[i] = nil
			continue
		}
		vp := l.ViewProj(e.World)
		if s.maps[i] == nil {
			s.maps[i] = light.NewShadowMap(s.size, vp)
		}
		s.draw(s.maps[i], scene, vp)
	}
}

func (s *ShadowMapper) draw(m *light.ShadowMap, scene *raytrace.Scene, viewProj mgl32.Mat4) {
	m.ViewProj = viewProj
	projected := make([][3]clipVertex, len(scene.Triangles))
	for i := range scene.Triangles {
		tri := &scene.Triangles[i]
		projected[i] = projectTriangle(viewProj, tri.V[0].Vec3(), tri.V[1].Vec3(), tri.V[2].Vec3())
	}

	bands := (m.Size + BandHeight - 1) / BandHeight
	common.ParallelFor(s.pool, bands, 1, func(lo, hi int) {
		for b := lo; b < hi; b++ {
			y0 := b * BandHeight
			y1 := min(y0+BandHeight, m.Size)
			depth := m.Depth[y0*m.Size : y1*m.Size]
			for i := range depth {
				depth[i] = 1
			}
			t := target{width: m.Size, height: m.Size, y0: y0, y1: y1}
			scratch := make([]clipVertex, 0, 4)
			for ti := range projected {
				scratch = rasterize(projected[ti], t, scratch, func(x, y int, z float32, _ mgl32.Vec3) {
					i := y*m.Size + x
					if z < m.Depth[i] {
						m.Depth[i] = z
					}
				})
			}
		}
	})
}
