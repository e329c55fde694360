package gbuffer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// clipVertex is a clip-space position together with its barycentric weights over the source
// triangle, so attributes survive near-plane clipping.
type clipVertex struct {
	pos  mgl32.Vec4
	bary mgl32.Vec3
}

// fragmentFunc receives a covered pixel, its [0, 1] depth and the perspective-correct barycentric
// weights over the source triangle.
type fragmentFunc func(x, y int, depth float32, bary mgl32.Vec3)

// target describes the pixel grid being rasterized and the band of rows a task owns.
type target struct {
	width  int
	height int
	y0     int
	y1     int
}

var cornerBary = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// projectTriangle transforms three world-space points into clip space.
func projectTriangle(viewProj mgl32.Mat4, v0, v1, v2 mgl32.Vec3) [3]clipVertex {
	return [3]clipVertex{
		{pos: viewProj.Mul4x1(v0.Vec4(1)), bary: cornerBary[0]},
		{pos: viewProj.Mul4x1(v1.Vec4(1)), bary: cornerBary[1]},
		{pos: viewProj.Mul4x1(v2.Vec4(1)), bary: cornerBary[2]},
	}
}

// clipNear clips a triangle against the WebGPU near plane z >= 0 and returns the resulting convex
// polygon, which has zero, three or four vertices.
func clipNear(tri [3]clipVertex, out []clipVertex) []clipVertex {
	out = out[:0]
	for i := range 3 {
		a := tri[i]
		b := tri[(i+1)%3]
		aIn := a.pos.Z() >= 0
		bIn := b.pos.Z() >= 0
		if aIn {
			out = append(out, a)
		}
		if aIn != bIn {
			t := a.pos.Z() / (a.pos.Z() - b.pos.Z())
			out = append(out, clipVertex{
				pos:  a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
				bary: a.bary.Add(b.bary.Sub(a.bary).Mul(t)),
			})
		}
	}
	return out
}

func edge(ax, ay, bx, by, cx, cy float32) float32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// rasterize clips a projected triangle and emits every covered pixel of the target band. Both
// windings are drawn.
func rasterize(tri [3]clipVertex, t target, scratch []clipVertex, fn fragmentFunc) []clipVertex {
	poly := clipNear(tri, scratch)
	for i := 1; i+1 < len(poly); i++ {
		rasterizeClipped([3]clipVertex{poly[0], poly[i], poly[i+1]}, t, fn)
	}
	return poly
}

func rasterizeClipped(v [3]clipVertex, t target, fn fragmentFunc) {
	var sx, sy, sz, invW [3]float32
	for i := range 3 {
		w := v[i].pos.W()
		if w <= 0 {
			return
		}
		invW[i] = 1 / w
		sx[i] = (v[i].pos.X()*invW[i]*0.5 + 0.5) * float32(t.width)
		sy[i] = (0.5 - v[i].pos.Y()*invW[i]*0.5) * float32(t.height)
		sz[i] = v[i].pos.Z() * invW[i]
	}

	area := edge(sx[0], sy[0], sx[1], sy[1], sx[2], sy[2])
	if float32(math.Abs(float64(area))) < 1e-12 {
		return
	}

	minX := max(int(math.Floor(float64(min(sx[0], sx[1], sx[2])))), 0)
	maxX := min(int(math.Ceil(float64(max(sx[0], sx[1], sx[2])))), t.width-1)
	minY := max(int(math.Floor(float64(min(sy[0], sy[1], sy[2])))), t.y0)
	maxY := min(int(math.Ceil(float64(max(sy[0], sy[1], sy[2])))), t.y1-1)

	sign := float32(1)
	if area < 0 {
		sign = -1
	}
	invArea := 1 / (area * sign)

	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(sx[1], sy[1], sx[2], sy[2], cx, cy) * sign
			w1 := edge(sx[2], sy[2], sx[0], sy[0], cx, cy) * sign
			w2 := edge(sx[0], sy[0], sx[1], sy[1], cx, cy) * sign
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			l0, l1, l2 := w0*invArea, w1*invArea, w2*invArea
			z := l0*sz[0] + l1*sz[1] + l2*sz[2]
			if z < 0 || z > 1 {
				continue
			}
			p0, p1, p2 := l0*invW[0], l1*invW[1], l2*invW[2]
			norm := 1 / (p0 + p1 + p2)
			bary := v[0].bary.Mul(p0 * norm).Add(v[1].bary.Mul(p1 * norm)).Add(v[2].bary.Mul(p2 * norm))
			fn(px, py, z, bary)
		}
	}
}
