package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (96 bytes).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single point light.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
type GPULight struct {
	Position [4]float32  // offset  0: world-space position, w = 1 when the light casts shadows
	Color    [4]float32  // offset 16: linear RGB color, w = intensity
	ViewProj [16]float32 // offset 32: shadow view-projection, column-major
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 0, g.Size())
	for _, f := range g.Position {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, f := range g.Color {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, f := range g.ViewProj {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// ToGPULight converts a Light placed by a world matrix into its GPU representation.
//
// Parameters:
//   - l: the Light to convert
//   - world: the world matrix of the render list element carrying the light
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light, world mgl32.Mat4) GPULight {
	p := l.WorldPosition(world)
	shadow := float32(0)
	if l.CastsShadows() {
		shadow = 1
	}
	c := l.Color()
	return GPULight{
		Position: [4]float32{p.X(), p.Y(), p.Z(), shadow},
		Color:    [4]float32{c.X(), c.Y(), c.Z(), l.Intensity()},
		ViewProj: l.ViewProj(world),
	}
}
