package mesh

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	mu             sync.RWMutex
	name           string
	vertices       []Vertex
	indices        []uint32
	boundingRadius float32
	material       material.Material
	vertexBuffer   *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
}

// Mesh defines an indexed triangle mesh in model space together with its material.
//
// The host copy of the geometry is always kept. A GPU backend may additionally attach vertex and
// index buffers, in which case migration reads the geometry back from those buffers.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Vertices retrieves the packed host-side vertices.
	//
	// Returns:
	//   - []Vertex: the vertex array, shared with the mesh
	Vertices() []Vertex

	// Indices retrieves the triangle list indices.
	//
	// Returns:
	//   - []uint32: three indices per face, shared with the mesh
	Indices() []uint32

	// FaceCount returns the number of triangles.
	//
	// Returns:
	//   - int: len(Indices()) / 3
	FaceCount() int

	// BoundingRadius returns the model-space bounding sphere radius around the mesh origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Material retrieves the surface description of the mesh.
	//
	// Returns:
	//   - material.Material: the material, never nil
	Material() material.Material

	// VertexData returns the vertex array as raw bytes for GPU upload.
	//
	// Returns:
	//   - []byte: a view over the vertex array
	VertexData() []byte

	// IndexData returns the index array as raw bytes for GPU upload.
	//
	// Returns:
	//   - []byte: a view over the index array
	IndexData() []byte

	// HasGeometry reports whether the mesh holds a non-empty, well-formed triangle list.
	//
	// Returns:
	//   - bool: true when the mesh can be migrated
	HasGeometry() bool

	// GPUBuffers returns the vertex and index buffers attached by a GPU backend, or nils.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer
	//   - *wgpu.Buffer: the index buffer
	GPUBuffers() (*wgpu.Buffer, *wgpu.Buffer)

	// SetGPUBuffers attaches GPU copies of the geometry.
	//
	// Parameters:
	//   - vertex: the vertex buffer
	//   - index: the index buffer
	SetGPUBuffers(vertex, index *wgpu.Buffer)
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh with the provided options applied. The bounding radius is computed
// from the vertices unless set explicitly, and a default material is assigned when none is given.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions to configure the Mesh
//
// Returns:
//   - Mesh: a new Mesh instance
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{boundingRadius: -1}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius < 0 {
		m.boundingRadius = ComputeBoundingRadius(m.vertices)
	}
	if m.material == nil {
		m.material = material.NewMaterial(material.WithName(m.name))
	}
	return m
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Vertices() []Vertex {
	return m.vertices
}

func (m *mesh) Indices() []uint32 {
	return m.indices
}

func (m *mesh) FaceCount() int {
	return len(m.indices) / 3
}

func (m *mesh) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *mesh) Material() material.Material {
	return m.material
}

func (m *mesh) VertexData() []byte {
	return common.SliceToBytes(m.vertices)
}

func (m *mesh) IndexData() []byte {
	return common.SliceToBytes(m.indices)
}

func (m *mesh) HasGeometry() bool {
	if len(m.vertices) == 0 || len(m.indices) == 0 || len(m.indices)%3 != 0 {
		return false
	}
	for _, idx := range m.indices {
		if int(idx) >= len(m.vertices) {
			return false
		}
	}
	return true
}

func (m *mesh) GPUBuffers() (*wgpu.Buffer, *wgpu.Buffer) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertexBuffer, m.indexBuffer
}

func (m *mesh) SetGPUBuffers(vertex, index *wgpu.Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vertexBuffer = vertex
	m.indexBuffer = index
}
