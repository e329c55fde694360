package raytrace

import (
	_ "embed"
	"encoding/binary"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// NoTriangle marks a surface that does not lie on a known migrated triangle.
const NoTriangle uint32 = 0xFFFFFFFF

// NoNode terminates a chain and marks a pixel without a head.
const NoNode int32 = -1

// TriangleSource is the canonical WGSL definition of the Triangle struct (128 bytes).
//
//go:embed assets/triangle.wgsl
var TriangleSource string

// BoundingVolumeSource is the canonical WGSL definition of the BoundingVolume struct (32 bytes).
//
//go:embed assets/bounding_volume.wgsl
var BoundingVolumeSource string

// MaterialRecordSource is the canonical WGSL definition of the MaterialRecord struct (64 bytes).
//
//go:embed assets/material_record.wgsl
var MaterialRecordSource string

// RayNodeSource is the canonical WGSL definition of the RayNode struct (64 bytes).
//
//go:embed assets/ray_node.wgsl
var RayNodeSource string

// DispatchArgsSource is the canonical WGSL definition of the DispatchArgs struct (16 bytes).
//
//go:embed assets/dispatch_args.wgsl
var DispatchArgsSource string

// FrameUniformsSource is the canonical WGSL definition of the FrameUniforms struct (144 bytes).
//
//go:embed assets/frame_uniforms.wgsl
var FrameUniformsSource string

// TriangleRecord is one world-space triangle of the migrated scene.
// Size: 128 bytes.
type TriangleRecord struct {
	V        [3]mgl32.Vec4 // offset   0: world positions, w = 1
	N        [3]mgl32.Vec4 // offset  48: world vertex normals, w = 0
	UV       [3]mgl32.Vec2 // offset  96: texture coordinates
	Material uint32        // offset 120: index into the material records
	_        uint32        // offset 124: padding
}

// Size returns the size of the TriangleRecord struct in bytes.
func (r *TriangleRecord) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *TriangleRecord) Marshal() []byte {
	return marshal(r, r.Size())
}

// FaceNormal returns the unit geometric normal following the vertex winding.
func (r *TriangleRecord) FaceNormal() mgl32.Vec3 {
	e1 := r.V[1].Vec3().Sub(r.V[0].Vec3())
	e2 := r.V[2].Vec3().Sub(r.V[0].Vec3())
	return e1.Cross(e2).Normalize()
}

// BoundingVolume is the world-space bounding sphere of one mesh together with its contiguous
// triangle range.
// Size: 32 bytes.
type BoundingVolume struct {
	Center        mgl32.Vec4 // offset  0: world-space center, w = 1
	Radius        float32    // offset 16
	FirstTriangle uint32     // offset 20
	TriangleCount uint32     // offset 24
	_             uint32     // offset 28: padding
}

// Size returns the size of the BoundingVolume struct in bytes.
func (r *BoundingVolume) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *BoundingVolume) Marshal() []byte {
	return marshal(r, r.Size())
}

// MaterialRecord is the flattened surface description of one mesh.
// Size: 64 bytes.
type MaterialRecord struct {
	Albedo           mgl32.Vec4 // offset  0
	Emission         mgl32.Vec4 // offset 16
	Metalness        float32    // offset 32
	Roughness        float32    // offset 36
	AlbedoTexture    uint32     // offset 40: texture array layer or NoTexture
	MetalnessTexture uint32     // offset 44
	RoughnessTexture uint32     // offset 48
	NormalTexture    uint32     // offset 52
	_                [2]uint32  // offset 56: padding
}

// Size returns the size of the MaterialRecord struct in bytes.
func (r *MaterialRecord) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *MaterialRecord) Marshal() []byte {
	return marshal(r, r.Size())
}

// RayNode is one surface interaction of a reflection chain. A node is written once by the
// invocation that allocated it; only its Next link is set afterwards, by the same invocation.
// Size: 64 bytes.
type RayNode struct {
	Position  mgl32.Vec3 // offset  0
	Metalness float32    // offset 12
	Normal    mgl32.Vec3 // offset 16: shading normal facing the incoming ray
	Roughness float32    // offset 28
	Albedo    mgl32.Vec3 // offset 32
	Next      int32      // offset 44: successor slot or NoNode
	Direction mgl32.Vec3 // offset 48: outgoing mirror direction
	Triangle  uint32     // offset 60: triangle the node lies on or NoTriangle
}

// Size returns the size of the RayNode struct in bytes.
func (r *RayNode) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *RayNode) Marshal() []byte {
	return marshal(r, r.Size())
}

// Surface returns the shading inputs stored in the node.
func (r *RayNode) Surface() Surface {
	return Surface{
		Position:  r.Position,
		Normal:    r.Normal,
		Albedo:    r.Albedo,
		Metalness: r.Metalness,
		Roughness: r.Roughness,
		Triangle:  r.Triangle,
	}
}

// DispatchArgs is the indirect dispatch descriptor of the tracer: three workgroup counts in the
// layout DispatchWorkgroupsIndirect expects, followed by the number of seeds.
// Size: 16 bytes.
type DispatchArgs struct {
	X         uint32
	Y         uint32
	Z         uint32
	SeedCount uint32
}

// Size returns the size of the DispatchArgs struct in bytes.
func (r *DispatchArgs) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *DispatchArgs) Marshal() []byte {
	return marshal(r, r.Size())
}

// FrameUniforms carries the per-frame constants shared by every compute kernel.
// Size: 144 bytes.
type FrameUniforms struct {
	ViewProj           mgl32.Mat4 // offset   0
	CameraPos          mgl32.Vec4 // offset  64
	ClearColor         mgl32.Vec4 // offset  80
	Width              uint32     // offset  96
	Height             uint32     // offset 100
	MaxBounces         uint32     // offset 104
	Capacity           uint32     // offset 108
	RoughnessThreshold float32    // offset 112
	Ambient            float32    // offset 116
	ShadowBias         float32    // offset 120
	LightCount         uint32     // offset 124
	VolumeCount        uint32     // offset 128
	BackfaceCulling    uint32     // offset 132
	ShadowMapSize      uint32     // offset 136
	_                  uint32     // offset 140: padding
}

// Size returns the size of the FrameUniforms struct in bytes.
func (r *FrameUniforms) Size() int {
	return int(unsafe.Sizeof(*r))
}

// Marshal serializes the record little-endian.
func (r *FrameUniforms) Marshal() []byte {
	return marshal(r, r.Size())
}

func marshal(v any, size int) []byte {
	buf, err := binary.Append(make([]byte, 0, size), binary.LittleEndian, v)
	if err != nil {
		panic(err)
	}
	return buf
}
