package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Perspective creates a right-handed perspective projection matrix that maps view-space depth
// into the WebGPU clip range [0, 1]. mgl32.Perspective targets the OpenGL range [-1, 1] and is
// therefore not used for anything that ends up in a depth buffer or shadow map.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// ModelMatrix constructs a model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll).
//
// Parameters:
//   - position: translation in world space
//   - rotation: rotation angles in radians around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: T * Ry * Rx * Rz * S
func ModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	r := mgl32.HomogRotate3DY(rotation.Y()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z()))
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(r).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of m. Normals transformed by it stay
// perpendicular to surfaces under non-uniform scale. A singular matrix yields the plain 3x3.
func NormalMatrix(m mgl32.Mat4) mgl32.Mat3 {
	m3 := m.Mat3()
	if m3.Det() == 0 {
		return m3
	}
	return m3.Inv().Transpose()
}

// MaxAxisScale returns the length of the longest basis column of m, the factor by which a bounding
// sphere radius must grow to stay conservative under the transform.
func MaxAxisScale(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	return max(sx, sy, sz)
}

// Reflect mirrors the incident direction d around the normal n, matching the WGSL reflect builtin.
func Reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// PackSnorm1010102 packs a signed normalized vector into 10:10:10:2 bits. X lives in the lowest
// bits and W in the two highest. Components are clamped to [-1, 1].
func PackSnorm1010102(v mgl32.Vec4) uint32 {
	return packSnorm(v[0], 10) |
		packSnorm(v[1], 10)<<10 |
		packSnorm(v[2], 10)<<20 |
		packSnorm(v[3], 2)<<30
}

// UnpackSnorm1010102 is the inverse of PackSnorm1010102.
func UnpackSnorm1010102(p uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		unpackSnorm(p, 10),
		unpackSnorm(p>>10, 10),
		unpackSnorm(p>>20, 10),
		unpackSnorm(p>>30, 2),
	}
}

func packSnorm(v float32, bits uint) uint32 {
	scale := float32(int32(1)<<(bits-1) - 1)
	q := int32(math.Round(float64(Clamp(v, -1, 1) * scale)))
	return uint32(q) & (1<<bits - 1)
}

func unpackSnorm(p uint32, bits uint) float32 {
	scale := float32(int32(1)<<(bits-1) - 1)
	// sign-extend the field to 32 bits
	q := int32(p<<(32-bits)) >> (32 - bits)
	return max(float32(q)/scale, -1)
}

// PackHalf2x16 packs two floats as IEEE half precision with x in the low 16 bits, the layout read
// by the WGSL unpack2x16float builtin.
func PackHalf2x16(v mgl32.Vec2) uint32 {
	return uint32(float16.Fromfloat32(v[0]).Bits()) | uint32(float16.Fromfloat32(v[1]).Bits())<<16
}

// UnpackHalf2x16 is the inverse of PackHalf2x16.
func UnpackHalf2x16(p uint32) mgl32.Vec2 {
	return mgl32.Vec2{
		float16.Frombits(uint16(p)).Float32(),
		float16.Frombits(uint16(p >> 16)).Float32(),
	}
}
