package mesh

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/go-gl/mathgl/mgl32"
)

// geometry is the unpacked form primitives are built in before packing.
type geometry struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2
	indices   []uint32
}

func (g *geometry) add(p, n mgl32.Vec3, uv mgl32.Vec2) uint32 {
	g.positions = append(g.positions, p)
	g.normals = append(g.normals, n)
	g.uvs = append(g.uvs, uv)
	return uint32(len(g.positions) - 1)
}

// flatten duplicates the vertices of every face so each face carries its own geometric normal.
// Degenerate faces are dropped.
func (g *geometry) flatten() *geometry {
	out := &geometry{}
	for i := 0; i+2 < len(g.indices); i += 3 {
		a, b, c := g.indices[i], g.indices[i+1], g.indices[i+2]
		pa, pb, pc := g.positions[a], g.positions[b], g.positions[c]
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		out.indices = append(out.indices,
			out.add(pa, n, g.uvs[a]),
			out.add(pb, n, g.uvs[b]),
			out.add(pc, n, g.uvs[c]),
		)
	}
	return out
}

// tangents derives per-vertex tangents from the UV layout, accumulating the per-face tangent and
// orthogonalising it against the vertex normal.
func (g *geometry) tangents() []mgl32.Vec4 {
	tan := make([]mgl32.Vec3, len(g.positions))
	bit := make([]mgl32.Vec3, len(g.positions))
	for i := 0; i+2 < len(g.indices); i += 3 {
		ia, ib, ic := g.indices[i], g.indices[i+1], g.indices[i+2]
		e1 := g.positions[ib].Sub(g.positions[ia])
		e2 := g.positions[ic].Sub(g.positions[ia])
		d1 := g.uvs[ib].Sub(g.uvs[ia])
		d2 := g.uvs[ic].Sub(g.uvs[ia])
		det := d1[0]*d2[1] - d2[0]*d1[1]
		if det == 0 {
			continue
		}
		r := 1 / det
		t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
		b := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)
		for _, idx := range []uint32{ia, ib, ic} {
			tan[idx] = tan[idx].Add(t)
			bit[idx] = bit[idx].Add(b)
		}
	}

	out := make([]mgl32.Vec4, len(g.positions))
	for i, n := range g.normals {
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() < 1e-6 {
			t = orthogonal(n)
		}
		t = t.Normalize()
		w := float32(1)
		if n.Cross(t).Dot(bit[i]) < 0 {
			w = -1
		}
		out[i] = t.Vec4(w)
	}
	return out
}

func orthogonal(n mgl32.Vec3) mgl32.Vec3 {
	if math.Abs(float64(n[0])) < 0.9 {
		return mgl32.Vec3{1, 0, 0}.Cross(n)
	}
	return mgl32.Vec3{0, 1, 0}.Cross(n)
}

func (g *geometry) build(name string, mat material.Material) Mesh {
	tangents := g.tangents()
	vertices := make([]Vertex, len(g.positions))
	for i := range vertices {
		vertices[i] = NewVertex(g.positions[i], g.normals[i], g.uvs[i], tangents[i])
	}
	return NewMesh(WithName(name), WithGeometry(vertices, g.indices), WithMaterial(mat))
}

// NewSphere builds a UV sphere centered on the origin. With flat set every face gets its own
// geometric normal, which makes the mesh a convex polyhedron for shading purposes as well.
//
// Parameters:
//   - name: the mesh name
//   - radius: the sphere radius
//   - rings: number of latitude bands (at least 2)
//   - segments: number of longitude bands (at least 3)
//   - flat: true for per-face normals, false for smooth normals
//   - mat: the surface material, may be nil
//
// Returns:
//   - Mesh: the sphere
func NewSphere(name string, radius float32, rings, segments int, flat bool, mat material.Material) Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)

	g := &geometry{}
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j <= segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			uv := mgl32.Vec2{float32(j) / float32(segments), float32(i) / float32(rings)}
			g.add(n.Mul(radius), n, uv)
		}
	}

	stride := uint32(segments + 1)
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			if i != 0 {
				g.indices = append(g.indices, a, a+1, b)
			}
			if i != rings-1 {
				g.indices = append(g.indices, a+1, b+1, b)
			}
		}
	}

	if flat {
		g = g.flatten()
	}
	return g.build(name, mat)
}

// NewPlane builds a square in the XZ plane facing +Y, centered on the origin. The texture repeats
// tiles times across each side.
func NewPlane(name string, size, tiles float32, mat material.Material) Mesh {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	g := &geometry{}
	a := g.add(mgl32.Vec3{-h, 0, -h}, up, mgl32.Vec2{0, 0})
	b := g.add(mgl32.Vec3{-h, 0, h}, up, mgl32.Vec2{0, tiles})
	c := g.add(mgl32.Vec3{h, 0, h}, up, mgl32.Vec2{tiles, tiles})
	d := g.add(mgl32.Vec3{h, 0, -h}, up, mgl32.Vec2{tiles, 0})
	g.indices = []uint32{a, b, c, a, c, d}
	return g.build(name, mat)
}

// NewCube builds an axis-aligned cube centered on the origin with flat faces.
func NewCube(name string, size float32, mat material.Material) Mesh {
	h := size / 2
	faces := []struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	g := &geometry{}
	for _, f := range faces {
		center := f.n.Mul(h)
		corner := func(su, sv float32) mgl32.Vec3 {
			return center.Add(f.u.Mul(su * h)).Add(f.v.Mul(sv * h))
		}
		a := g.add(corner(-1, -1), f.n, mgl32.Vec2{0, 1})
		b := g.add(corner(1, -1), f.n, mgl32.Vec2{1, 1})
		c := g.add(corner(1, 1), f.n, mgl32.Vec2{1, 0})
		d := g.add(corner(-1, 1), f.n, mgl32.Vec2{0, 0})
		g.indices = append(g.indices, a, b, c, a, c, d)
	}
	return g.build(name, mat)
}

// NewRing builds a torus in the XZ plane. major is the distance from the origin to the tube center
// and minor the tube radius.
func NewRing(name string, major, minor float32, segments, sides int, mat material.Material) Mesh {
	segments = max(segments, 3)
	sides = max(sides, 3)

	g := &geometry{}
	for i := 0; i <= segments; i++ {
		u := 2 * math.Pi * float64(i) / float64(segments)
		center := mgl32.Vec3{float32(math.Cos(u)) * major, 0, float32(math.Sin(u)) * major}
		for j := 0; j <= sides; j++ {
			v := 2 * math.Pi * float64(j) / float64(sides)
			n := mgl32.Vec3{
				float32(math.Cos(v) * math.Cos(u)),
				float32(math.Sin(v)),
				float32(math.Cos(v) * math.Sin(u)),
			}
			uv := mgl32.Vec2{float32(i) / float32(segments), float32(j) / float32(sides)}
			g.add(center.Add(n.Mul(minor)), n, uv)
		}
	}

	stride := uint32(sides + 1)
	for i := 0; i < segments; i++ {
		for j := 0; j < sides; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			g.indices = append(g.indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return g.build(name, mat)
}
