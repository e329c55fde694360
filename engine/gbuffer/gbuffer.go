// Package gbuffer holds the geometry buffer of the deferred pipeline and the software rasterizer
// that fills it and the light shadow maps from a migrated scene.
package gbuffer

import (
	"math"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/go-gl/mathgl/mgl32"
)

// BandHeight is the number of rows a single raster task owns.
const BandHeight = 16

// GBuffer is a depth-resolved geometry buffer. Each pixel keeps the nearest surface only.
type GBuffer struct {
	Width  int
	Height int

	// Position is the world-space position, w = 1 when the pixel is covered.
	Position []mgl32.Vec4

	// Normal is the shading normal oriented toward the camera, w = metalness.
	Normal []mgl32.Vec4

	// Albedo is the linear base color, w = roughness.
	Albedo []mgl32.Vec4

	// Depth is the [0, 1] depth of the nearest fragment, 1 when uncovered.
	Depth []float32

	triangle []int32
	bary     []mgl32.Vec3
}

var _ raytrace.SurfaceReader = &GBuffer{}

// NewGBuffer allocates a cleared G-buffer.
func NewGBuffer(width, height int) *GBuffer {
	n := width * height
	g := &GBuffer{
		Width:    width,
		Height:   height,
		Position: make([]mgl32.Vec4, n),
		Normal:   make([]mgl32.Vec4, n),
		Albedo:   make([]mgl32.Vec4, n),
		Depth:    make([]float32, n),
		triangle: make([]int32, n),
		bary:     make([]mgl32.Vec3, n),
	}
	g.clearRows(0, height)
	return g
}

func (g *GBuffer) clearRows(y0, y1 int) {
	lo, hi := y0*g.Width, y1*g.Width
	clear(g.Position[lo:hi])
	clear(g.Normal[lo:hi])
	clear(g.Albedo[lo:hi])
	for i := lo; i < hi; i++ {
		g.Depth[i] = 1
		g.triangle[i] = -1
	}
}

// Dimensions returns the width and height in pixels.
func (g *GBuffer) Dimensions() (int, int) {
	return g.Width, g.Height
}

// Covered reports whether geometry covers a pixel.
func (g *GBuffer) Covered(x, y int) bool {
	return g.Position[y*g.Width+x].W() > 0
}

// Surface returns the shading inputs stored at a pixel.
func (g *GBuffer) Surface(x, y int) (raytrace.Surface, bool) {
	i := y*g.Width + x
	p := g.Position[i]
	if p.W() <= 0 {
		return raytrace.Surface{}, false
	}
	tri := raytrace.NoTriangle
	if g.triangle[i] >= 0 {
		tri = uint32(g.triangle[i])
	}
	return raytrace.Surface{
		Position:  p.Vec3(),
		Normal:    g.Normal[i].Vec3(),
		Albedo:    g.Albedo[i].Vec3(),
		Metalness: g.Normal[i].W(),
		Roughness: g.Albedo[i].W(),
		Triangle:  tri,
	}, true
}

// Rasterizer draws a migrated scene into a G-buffer on a worker pool. Each task owns a band of
// rows, so tasks never write the same pixel.
type Rasterizer struct {
	pool worker.DynamicWorkerPool
}

// NewRasterizer creates a rasterizer running on pool. A nil pool rasterizes on the caller.
func NewRasterizer(pool worker.DynamicWorkerPool) *Rasterizer {
	return &Rasterizer{pool: pool}
}

// Draw clears g and rasterizes every triangle of scene seen through viewProj. Visibility is
// resolved first; attributes are then fetched once per pixel for the winning triangle.
//
// Parameters:
//   - g: the G-buffer to fill
//   - scene: the migrated scene
//   - viewProj: the camera view-projection with [0, 1] depth
//   - eye: the camera position, used to orient normals
func (r *Rasterizer) Draw(g *GBuffer, scene *raytrace.Scene, viewProj mgl32.Mat4, eye mgl32.Vec3) {
	projected := make([][3]clipVertex, len(scene.Triangles))
	common.ParallelFor(r.pool, len(scene.Triangles), 1024, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			tri := &scene.Triangles[i]
			projected[i] = projectTriangle(viewProj, tri.V[0].Vec3(), tri.V[1].Vec3(), tri.V[2].Vec3())
		}
	})

	bands := (g.Height + BandHeight - 1) / BandHeight
	common.ParallelFor(r.pool, bands, 1, func(lo, hi int) {
		for b := lo; b < hi; b++ {
			y0 := b * BandHeight
			y1 := min(y0+BandHeight, g.Height)
			r.drawBand(g, scene, projected, eye, y0, y1)
		}
	})
}

func (r *Rasterizer) drawBand(g *GBuffer, scene *raytrace.Scene, projected [][3]clipVertex, eye mgl32.Vec3, y0, y1 int) {
	g.clearRows(y0, y1)
	t := target{width: g.Width, height: g.Height, y0: y0, y1: y1}
	scratch := make([]clipVertex, 0, 4)
	for ti := range projected {
		scratch = rasterize(projected[ti], t, scratch, func(x, y int, depth float32, bary mgl32.Vec3) {
			i := y*g.Width + x
			if depth < g.Depth[i] {
				g.Depth[i] = depth
				g.triangle[i] = int32(ti)
				g.bary[i] = bary
			}
		})
	}

	for i := y0 * g.Width; i < y1*g.Width; i++ {
		ti := g.triangle[i]
		if ti < 0 {
			continue
		}
		surf := resolve(scene, uint32(ti), g.bary[i], eye)
		g.Position[i] = surf.Position.Vec4(1)
		g.Normal[i] = surf.Normal.Vec4(surf.Metalness)
		g.Albedo[i] = surf.Albedo.Vec4(surf.Roughness)
	}
}

// resolve fetches the surface of a triangle at barycentric weights, applies the material normal
// map and orients the normal toward eye.
func resolve(scene *raytrace.Scene, triangle uint32, bary mgl32.Vec3, eye mgl32.Vec3) raytrace.Surface {
	tri := &scene.Triangles[triangle]
	pos := tri.V[0].Vec3().Mul(bary.X()).Add(tri.V[1].Vec3().Mul(bary.Y())).Add(tri.V[2].Vec3().Mul(bary.Z()))
	surf := scene.SurfaceAt(triangle, raytrace.TriangleHit{U: bary.Y(), V: bary.Z()}, pos)

	m := &scene.Materials[tri.Material]
	if m.NormalTexture != material.NoTexture {
		uv := tri.UV[0].Mul(bary.X()).Add(tri.UV[1].Mul(bary.Y())).Add(tri.UV[2].Mul(bary.Z()))
		surf.Normal = normalMap(tri, surf.Normal, scene.Textures.Sample(m.NormalTexture, uv))
	}
	if surf.Normal.Dot(eye.Sub(pos)) < 0 {
		surf.Normal = surf.Normal.Mul(-1)
	}
	return surf
}

// normalMap perturbs n by a tangent-space normal texel. The tangent frame is derived from the UV
// gradients of the triangle.
func normalMap(tri *raytrace.TriangleRecord, n mgl32.Vec3, texel mgl32.Vec4) mgl32.Vec3 {
	e1 := tri.V[1].Vec3().Sub(tri.V[0].Vec3())
	e2 := tri.V[2].Vec3().Sub(tri.V[0].Vec3())
	d1 := tri.UV[1].Sub(tri.UV[0])
	d2 := tri.UV[2].Sub(tri.UV[0])
	det := d1.X()*d2.Y() - d2.X()*d1.Y()
	if math.Abs(float64(det)) < 1e-12 {
		return n
	}
	tangent := e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(1 / det)
	bitangent := e2.Mul(d1.X()).Sub(e1.Mul(d2.X())).Mul(1 / det)

	tangent = tangent.Sub(n.Mul(n.Dot(tangent)))
	if tangent.Len() < 1e-8 {
		return n
	}
	tangent = tangent.Normalize()
	b := n.Cross(tangent)
	if b.Dot(bitangent) < 0 {
		b = b.Mul(-1)
	}

	ts := mgl32.Vec3{texel.X()*2 - 1, texel.Y()*2 - 1, texel.Z()*2 - 1}
	return tangent.Mul(ts.X()).Add(b.Mul(ts.Y())).Add(n.Mul(ts.Z())).Normalize()
}
