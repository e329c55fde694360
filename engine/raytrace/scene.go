package raytrace

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the flat, migrated representation of a render list: world-space triangles contiguous
// per mesh, one bounding volume and one material record per mesh, and the texture array the
// material handles point into.
type Scene struct {
	Triangles []TriangleRecord
	Volumes   []BoundingVolume
	Materials []MaterialRecord
	Textures  *material.TextureArray
}

// TriangleData returns the triangle array as raw bytes for upload.
func (s *Scene) TriangleData() []byte {
	return common.SliceToBytes(s.Triangles)
}

// VolumeData returns the bounding volume array as raw bytes for upload.
func (s *Scene) VolumeData() []byte {
	return common.SliceToBytes(s.Volumes)
}

// MaterialData returns the material record array as raw bytes for upload.
func (s *Scene) MaterialData() []byte {
	return common.SliceToBytes(s.Materials)
}

// SurfaceAt resolves the shading inputs of a hit: interpolated normal and texture coordinates and
// the material scalars modulated by their textures. The normal is not yet oriented.
//
// Parameters:
//   - triangle: the index of the triangle hit
//   - hit: the barycentric result of the intersection
//   - position: the world-space hit point
//
// Returns:
//   - Surface: the shading inputs
func (s *Scene) SurfaceAt(triangle uint32, hit TriangleHit, position mgl32.Vec3) Surface {
	tri := &s.Triangles[triangle]
	w := 1 - hit.U - hit.V
	n := tri.N[0].Vec3().Mul(w).Add(tri.N[1].Vec3().Mul(hit.U)).Add(tri.N[2].Vec3().Mul(hit.V)).Normalize()
	uv := tri.UV[0].Mul(w).Add(tri.UV[1].Mul(hit.U)).Add(tri.UV[2].Mul(hit.V))

	m := &s.Materials[tri.Material]
	albedo := s.Textures.Sample(m.AlbedoTexture, uv)
	metal := s.Textures.Sample(m.MetalnessTexture, uv)
	rough := s.Textures.Sample(m.RoughnessTexture, uv)
	return Surface{
		Position:  position,
		Normal:    n,
		Albedo:    mulVec3(m.Albedo.Vec3(), albedo.Vec3()),
		Metalness: m.Metalness * metal.X(),
		Roughness: m.Roughness * rough.X(),
		Triangle:  triangle,
	}
}
