package raytrace

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

// Surface is the set of shading inputs at a point: a G-buffer pixel or a RayNode.
type Surface struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	Albedo    mgl32.Vec3
	Metalness float32
	Roughness float32

	// Triangle is the migrated triangle the surface lies on, NoTriangle when unknown.
	Triangle uint32
}

// SurfaceReader exposes a depth-resolved G-buffer to the spawn and lighting stages.
type SurfaceReader interface {
	// Dimensions returns the width and height in pixels.
	Dimensions() (int, int)

	// Surface returns the surface at a pixel, false when no geometry covers it.
	Surface(x, y int) (Surface, bool)
}

// LightSample is a light resolved to world space for shading.
type LightSample struct {
	Position mgl32.Vec3
	Radiance mgl32.Vec3
	Shadow   *light.ShadowMap
}

// LightSamples resolves the lights of a render list. Shadow maps are looked up by list position;
// lights that do not cast shadows never get one.
//
// Parameters:
//   - list: the render list, lights first
//   - shadows: the shadow map source, may be nil
//
// Returns:
//   - []LightSample: one sample per light in list order
func LightSamples(list *renderlist.List, shadows light.ShadowSource) []LightSample {
	out := make([]LightSample, 0, list.LightCount())
	for i, e := range list.Lights() {
		l, ok := e.AsLight()
		if !ok {
			continue
		}
		s := LightSample{Position: l.WorldPosition(e.World), Radiance: l.Radiance()}
		if shadows != nil && l.CastsShadows() {
			if m, ok := shadows.ShadowMap(i); ok {
				s.Shadow = m
			}
		}
		out = append(out, s)
	}
	return out
}

// Shading holds the scene-wide terms of the direct lighting routine.
type Shading struct {
	Lights     []LightSample
	Ambient    float32
	ShadowBias float32
}

// Direct evaluates the ambient term plus the Cook-Torrance contribution of every light at a
// surface seen from eye. Surfaces facing away from eye receive only the ambient term.
//
// Parameters:
//   - s: the surface to shade
//   - eye: the point the surface is seen from
//
// Returns:
//   - mgl32.Vec3: the outgoing linear radiance
func (sh *Shading) Direct(s Surface, eye mgl32.Vec3) mgl32.Vec3 {
	color := s.Albedo.Mul(sh.Ambient)

	n := s.Normal.Normalize()
	v := eye.Sub(s.Position).Normalize()
	nDotV := n.Dot(v)
	if nDotV <= 0 {
		return color
	}

	f0 := mixVec3(mgl32.Vec3{0.04, 0.04, 0.04}, s.Albedo, s.Metalness)
	for _, l := range sh.Lights {
		toLight := l.Position.Sub(s.Position)
		dist := toLight.Len()
		if dist == 0 {
			continue
		}
		ld := toLight.Mul(1 / dist)
		nDotL := n.Dot(ld)
		if nDotL <= 0 {
			continue
		}
		visibility := 1 - l.Shadow.Occlusion(s.Position, sh.ShadowBias)
		if visibility == 0 {
			continue
		}

		h := v.Add(ld).Normalize()
		d := distributionGGX(n.Dot(h), s.Roughness)
		g := geometrySmith(nDotV, nDotL, s.Roughness)
		f := fresnelSchlick(max(h.Dot(v), 0), f0)

		specular := f.Mul(d * g / (4*nDotV*nDotL + 1e-4))
		kd := mgl32.Vec3{1 - f.X(), 1 - f.Y(), 1 - f.Z()}.Mul(1 - s.Metalness)
		diffuse := mulVec3(kd, s.Albedo).Mul(1 / math.Pi)

		radiance := l.Radiance.Mul(1 / (dist * dist))
		color = color.Add(mulVec3(diffuse.Add(specular), radiance).Mul(nDotL * visibility))
	}
	return color
}

func distributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	nDotH = max(nDotH, 0)
	denom := nDotH*nDotH*(a2-1) + 1
	return a2 / max(math.Pi*denom*denom, 1e-7)
}

func geometrySchlickGGX(nDotX, k float32) float32 {
	return nDotX / (nDotX*(1-k) + k)
}

func geometrySmith(nDotV, nDotL, roughness float32) float32 {
	r := roughness + 1
	k := r * r / 8
	return geometrySchlickGGX(nDotV, k) * geometrySchlickGGX(nDotL, k)
}

func fresnelSchlick(cosTheta float32, f0 mgl32.Vec3) mgl32.Vec3 {
	w := float32(math.Pow(float64(1-cosTheta), 5))
	return f0.Add(mgl32.Vec3{1 - f0.X(), 1 - f0.Y(), 1 - f0.Z()}.Mul(w))
}

func mixVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
