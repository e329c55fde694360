package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct read by the G-buffer
// vertex stage. Matches Vertex exactly (24-byte stride).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// Vertex is the packed mesh vertex as stored in host memory and in GPU vertex buffers.
// The normal and tangent are snorm 10:10:10:2 (tangent handedness in the 2-bit W field) and the
// texture coordinate is two IEEE half floats.
// Size: 24 bytes.
type Vertex struct {
	Position [3]float32 // offset  0: model-space position (12 bytes)
	Normal   uint32     // offset 12: packed snorm10x3 normal (4 bytes)
	UV       uint32     // offset 16: packed half2 texture coordinate (4 bytes)
	Tangent  uint32     // offset 20: packed snorm10x3 tangent + handedness (4 bytes)
}

// NewVertex packs an unpacked vertex.
//
// Parameters:
//   - position: model-space position
//   - normal: unit normal
//   - uv: texture coordinate
//   - tangent: unit tangent in xyz and handedness (+1 or -1) in w
//
// Returns:
//   - Vertex: the packed vertex
func NewVertex(position, normal mgl32.Vec3, uv mgl32.Vec2, tangent mgl32.Vec4) Vertex {
	return Vertex{
		Position: position,
		Normal:   common.PackSnorm1010102(normal.Vec4(0)),
		UV:       common.PackHalf2x16(uv),
		Tangent:  common.PackSnorm1010102(tangent),
	}
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, 0, 24)
	for _, f := range v.Position {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	buf = binary.LittleEndian.AppendUint32(buf, v.Normal)
	buf = binary.LittleEndian.AppendUint32(buf, v.UV)
	buf = binary.LittleEndian.AppendUint32(buf, v.Tangent)
	return buf
}

// Pos returns the position as a vector.
func (v Vertex) Pos() mgl32.Vec3 {
	return mgl32.Vec3(v.Position)
}

// UnpackNormal decodes the packed normal.
func (v Vertex) UnpackNormal() mgl32.Vec3 {
	return common.UnpackSnorm1010102(v.Normal).Vec3()
}

// UnpackUV decodes the packed texture coordinate.
func (v Vertex) UnpackUV() mgl32.Vec2 {
	return common.UnpackHalf2x16(v.UV)
}

// UnpackTangent decodes the packed tangent and its handedness.
func (v Vertex) UnpackTangent() mgl32.Vec4 {
	return common.UnpackSnorm1010102(v.Tangent)
}

// UnmarshalVertices decodes a vertex buffer read back from the GPU. Trailing bytes that do not
// form a whole vertex are ignored.
func UnmarshalVertices(data []byte) []Vertex {
	const stride = 24
	out := make([]Vertex, len(data)/stride)
	for i := range out {
		b := data[i*stride:]
		out[i] = Vertex{
			Position: [3]float32{
				math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
				math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
				math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
			},
			Normal:  binary.LittleEndian.Uint32(b[12:16]),
			UV:      binary.LittleEndian.Uint32(b[16:20]),
			Tangent: binary.LittleEndian.Uint32(b[20:24]),
		}
	}
	return out
}

// UnmarshalIndices decodes a uint32 index buffer read back from the GPU.
func UnmarshalIndices(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// GPUObjectSource is the canonical WGSL definition of the ObjectData struct used by the G-buffer
// pass to place each mesh. Matches GPUObject exactly (144 bytes, std430 aligned).
//
//go:embed assets/object.wgsl
var GPUObjectSource string

// GPUObject is the per-draw record of the G-buffer pass, indexed by the instance index.
// Size: 144 bytes.
type GPUObject struct {
	Model    [16]float32 // offset   0: world matrix (64 bytes)
	Normal   [16]float32 // offset  64: inverse-transpose of the world 3x3, padded to 4x4 (64 bytes)
	Material      uint32    // offset 128: index into the material record array (4 bytes)
	FirstTriangle uint32    // offset 132: first migrated triangle of the mesh (4 bytes)
	_             [2]uint32 // offset 136: padding (8 bytes)
}

// NewGPUObject builds the per-draw record for a mesh placed by world. Primitive i of the draw is
// migrated triangle firstTriangle + i.
func NewGPUObject(world mgl32.Mat4, materialIndex, firstTriangle uint32) GPUObject {
	return GPUObject{
		Model:         world,
		Normal:        common.NormalMatrix(world).Mat4(),
		Material:      materialIndex,
		FirstTriangle: firstTriangle,
	}
}

// Size returns the size of the GPUObject struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUObject) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObject struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload.
func (g *GPUObject) Marshal() []byte {
	buf := make([]byte, 0, 144)
	for _, f := range g.Model {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, f := range g.Normal {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	buf = binary.LittleEndian.AppendUint32(buf, g.Material)
	buf = binary.LittleEndian.AppendUint32(buf, g.FirstTriangle)
	return append(buf, make([]byte, 8)...)
}

// ComputeBoundingRadius returns the largest distance from the model-space origin across all
// vertices, the radius of a bounding sphere centered on the mesh origin.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []Vertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}
