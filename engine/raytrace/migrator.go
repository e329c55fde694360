package raytrace

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/Carmen-Shannon/oxy-rt/log"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("raytrace")

// MeshReader transfers the geometry of one mesh to host memory. Migration calls it exactly once
// per mesh element.
type MeshReader interface {
	// ReadMesh returns the packed vertices and the triangle indices of a mesh.
	//
	// Parameters:
	//   - m: the mesh to read
	//
	// Returns:
	//   - []mesh.Vertex: the vertices in model space
	//   - []uint32: three indices per face
	//   - error: when the mesh has no readable geometry
	ReadMesh(m mesh.Mesh) ([]mesh.Vertex, []uint32, error)
}

// HostReader reads geometry from the host copy every mesh keeps.
type HostReader struct{}

// ReadMesh copies the host-side vertices and indices of m.
func (HostReader) ReadMesh(m mesh.Mesh) ([]mesh.Vertex, []uint32, error) {
	if !m.HasGeometry() {
		return nil, nil, fmt.Errorf("mesh %q has no geometry: %w", m.Name(), ErrNotRenderable)
	}
	return slices.Clone(m.Vertices()), slices.Clone(m.Indices()), nil
}

// Migrate flattens a render list into a Scene.
//
// The list is scanned twice: once to size the arrays exactly, once to read back each mesh, move
// its triangles to world space, and emit its bounding volume and material record. Any element at
// a mesh position that cannot be read fails the whole migration, so a caller keeps its previous
// scene. Identical lists produce byte-identical arrays.
//
// Parameters:
//   - list: the render list, lights first
//   - reader: the geometry transfer for the active backend
//   - textures: the texture array material handles are resolved against, may be nil
//
// Returns:
//   - *Scene: the migrated scene
//   - error: ErrEmptyRenderList or a wrapped ErrNotRenderable
func Migrate(list *renderlist.List, reader MeshReader, textures *material.TextureArray) (*Scene, error) {
	if list.Len() == 0 {
		return nil, ErrEmptyRenderList
	}

	lightCount := list.LightCount()
	meshCount := list.Len() - lightCount
	triangleCount := 0
	for i := lightCount; i < list.Len(); i++ {
		m, ok := list.At(i).AsMesh()
		if !ok {
			return nil, fmt.Errorf("element %d is a %s: %w", i, list.At(i).Kind, ErrNotRenderable)
		}
		triangleCount += m.FaceCount()
	}

	scene := &Scene{
		Triangles: make([]TriangleRecord, 0, triangleCount),
		Volumes:   make([]BoundingVolume, 0, meshCount),
		Materials: make([]MaterialRecord, 0, meshCount),
		Textures:  textures,
	}

	for i := lightCount; i < list.Len(); i++ {
		e := list.At(i)
		m, _ := e.AsMesh()
		vertices, indices, err := reader.ReadMesh(m)
		if err != nil {
			return nil, fmt.Errorf("failed to read mesh at element %d: %w", i, err)
		}
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("mesh %q index count %d: %w", m.Name(), len(indices), ErrNotRenderable)
		}

		materialIndex := uint32(i - lightCount)
		first := uint32(len(scene.Triangles))
		normalMatrix := common.NormalMatrix(e.World)

		for f := 0; f+2 < len(indices); f += 3 {
			tri := TriangleRecord{Material: materialIndex}
			for k := range 3 {
				idx := indices[f+k]
				if int(idx) >= len(vertices) {
					return nil, fmt.Errorf("mesh %q index %d out of range: %w", m.Name(), idx, ErrNotRenderable)
				}
				v := vertices[idx]
				tri.V[k] = mgl32.TransformCoordinate(v.Pos(), e.World).Vec4(1)
				tri.N[k] = normalMatrix.Mul3x1(v.UnpackNormal()).Normalize().Vec4(0)
				tri.UV[k] = v.UnpackUV()
			}
			scene.Triangles = append(scene.Triangles, tri)
		}

		scene.Volumes = append(scene.Volumes, BoundingVolume{
			Center:        e.World.Col(3),
			Radius:        m.BoundingRadius() * common.MaxAxisScale(e.World),
			FirstTriangle: first,
			TriangleCount: uint32(len(scene.Triangles)) - first,
		})
		scene.Materials = append(scene.Materials, newMaterialRecord(m.Material(), textures))
	}

	logger.Debugf("migrated %d meshes, %d triangles", len(scene.Volumes), len(scene.Triangles))
	return scene, nil
}

func newMaterialRecord(mat material.Material, textures *material.TextureArray) MaterialRecord {
	return MaterialRecord{
		Albedo:           mat.Albedo(),
		Emission:         mat.Emission(),
		Metalness:        mat.Metalness(),
		Roughness:        mat.Roughness(),
		AlbedoTexture:    textures.Resolve(mat.Texture(material.TextureAlbedo)),
		MetalnessTexture: textures.Resolve(mat.Texture(material.TextureMetalness)),
		RoughnessTexture: textures.Resolve(mat.Texture(material.TextureRoughness)),
		NormalTexture:    textures.Resolve(mat.Texture(material.TextureNormal)),
	}
}
