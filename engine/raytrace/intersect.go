package raytrace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectSphere tests the ray against a sphere with the geometric solution. When the origin is
// inside the sphere the far intersection is returned.
//
// Parameters:
//   - r: the ray, with a unit direction
//   - center: the sphere center
//   - radius: the sphere radius
//
// Returns:
//   - float32: the distance to the intersection
//   - bool: false on a miss or when both intersections lie behind the origin
func IntersectSphere(r Ray, center mgl32.Vec3, radius float32) (float32, bool) {
	l := center.Sub(r.Origin)
	tca := l.Dot(r.Direction)
	d2 := l.Dot(l) - tca*tca
	r2 := radius * radius
	if d2 > r2 {
		return 0, false
	}
	thc := float32(math.Sqrt(float64(r2 - d2)))
	t0, t1 := tca-thc, tca+thc
	if t0 < 0 {
		t0 = t1
	}
	if t0 < 0 {
		return 0, false
	}
	return t0, true
}

// TriangleHit is the result of a successful ray/triangle test.
type TriangleHit struct {
	T float32
	U float32
	V float32
}

// IntersectTriangle runs the Moller-Trumbore test. A determinant with magnitude below Epsilon is a
// miss, and with cull set so is a determinant below Epsilon (a back face). Hits closer than Epsilon
// are rejected.
//
// Parameters:
//   - r: the ray
//   - v0, v1, v2: the triangle corners
//   - cull: reject triangles whose winding faces away from the ray
//
// Returns:
//   - TriangleHit: the distance and the barycentric weights of v1 and v2
//   - bool: true on a hit
func IntersectTriangle(r Ray, v0, v1, v2 mgl32.Vec3, cull bool) (TriangleHit, bool) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if cull {
		if det < Epsilon {
			return TriangleHit{}, false
		}
	} else if float32(math.Abs(float64(det))) < Epsilon {
		return TriangleHit{}, false
	}
	inv := 1 / det
	s := r.Origin.Sub(v0)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return TriangleHit{}, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return TriangleHit{}, false
	}
	t := e2.Dot(q) * inv
	if t <= Epsilon {
		return TriangleHit{}, false
	}
	return TriangleHit{T: t, U: u, V: v}, true
}
