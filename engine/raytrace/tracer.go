package raytrace

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Tracer extends seeds into reflection chains by mirror bouncing against the migrated scene.
// Invocation i owns the chain starting at seed slot i; no two invocations write the same node.
type Tracer struct {
	Scene      *Scene
	Frame      *FrameContext
	MaxBounces int
	Cull       bool
}

type closestHit struct {
	triangle uint32
	hit      TriangleHit
}

// closest finds the nearest accepted triangle along r, testing only the triangles of bounding
// volumes the ray enters. The triangle skip is never reported.
func (t *Tracer) closest(r Ray, skip uint32) (closestHit, bool) {
	best := closestHit{hit: TriangleHit{T: float32(math.Inf(1))}}
	found := false
	for vi := range t.Scene.Volumes {
		vol := &t.Scene.Volumes[vi]
		if _, ok := IntersectSphere(r, vol.Center.Vec3(), vol.Radius); !ok {
			continue
		}
		end := vol.FirstTriangle + vol.TriangleCount
		for ti := vol.FirstTriangle; ti < end; ti++ {
			if ti == skip {
				continue
			}
			tri := &t.Scene.Triangles[ti]
			h, ok := IntersectTriangle(r, tri.V[0].Vec3(), tri.V[1].Vec3(), tri.V[2].Vec3(), t.Cull)
			if ok && h.T < best.hit.T {
				best = closestHit{triangle: ti, hit: h}
				found = true
			}
		}
	}
	return best, found
}

// orientedFace returns the face normal of a triangle turned toward the side incoming arrives from.
func (t *Tracer) orientedFace(triangle uint32, incoming mgl32.Vec3) mgl32.Vec3 {
	face := t.Scene.Triangles[triangle].FaceNormal()
	if face.Dot(incoming) > 0 {
		return face.Mul(-1)
	}
	return face
}

// Trace runs one tracer invocation. A chain ends early when its mirror direction points into the
// face it leaves, which interpolated normals produce near silhouettes.
//
// Parameters:
//   - invocation: the global invocation index, equal to the seed slot
//
// Returns:
//   - int: the number of triangle hits appended to the chain
func (t *Tracer) Trace(invocation uint32) int {
	if invocation >= t.Frame.Dispatch.SeedCount || len(t.Scene.Volumes) == 0 {
		return 0
	}
	nodes := t.Frame.Nodes
	prev := invocation
	seed := &nodes[prev]
	r := Ray{Origin: seed.Position.Add(seed.Normal.Mul(OriginOffset)), Direction: seed.Direction.Normalize()}
	skip := seed.Triangle
	if int(skip) < len(t.Scene.Triangles) {
		// The view ray is the mirror image of the seed direction about the shading normal.
		face := t.orientedFace(skip, common.Reflect(r.Direction, seed.Normal))
		if face.Dot(r.Direction) <= 0 {
			return 0
		}
		r.Origin = seed.Position.Add(face.Mul(OriginOffset))
	}

	hits := 0
	for range t.MaxBounces {
		h, ok := t.closest(r, skip)
		if !ok {
			break
		}
		pos := r.At(h.hit.T)
		surf := t.Scene.SurfaceAt(h.triangle, h.hit, pos)
		if surf.Normal.Dot(r.Direction) > 0 {
			surf.Normal = surf.Normal.Mul(-1)
		}

		slot, ok := t.Frame.Allocate()
		if !ok {
			break
		}
		hits++
		dir := common.Reflect(r.Direction, surf.Normal).Normalize()
		nodes[prev].Next = int32(slot)
		nodes[slot] = RayNode{
			Position:  pos,
			Metalness: surf.Metalness,
			Normal:    surf.Normal,
			Roughness: surf.Roughness,
			Albedo:    surf.Albedo,
			Next:      NoNode,
			Direction: dir,
			Triangle:  h.triangle,
		}

		face := t.orientedFace(h.triangle, r.Direction)
		if face.Dot(dir) <= 0 {
			break
		}
		r = Ray{Origin: pos.Add(face.Mul(OriginOffset)), Direction: dir}
		skip = h.triangle
		prev = slot
	}
	return hits
}

// TraceRange runs invocations [first, last).
//
// Returns:
//   - int: the number of triangle hits across the range
func (t *Tracer) TraceRange(first, last uint32) int {
	hits := 0
	for i := first; i < last; i++ {
		hits += t.Trace(i)
	}
	return hits
}
