package material

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NoTexture is the texture handle stored in a slot that samples nothing. Sampling it yields a
// texel of 1, so the scalar property passes through unchanged.
const NoTexture uint32 = 0xFFFFFFFF

// TextureSlot names one of the four texture handles a Material carries.
type TextureSlot int

const (
	// TextureAlbedo multiplies the albedo color.
	TextureAlbedo TextureSlot = iota

	// TextureMetalness multiplies the metalness factor (red channel).
	TextureMetalness

	// TextureRoughness multiplies the roughness factor (red channel).
	TextureRoughness

	// TextureNormal perturbs the shading normal in tangent space.
	TextureNormal

	textureSlotCount
)

// material is the implementation of the Material interface.
type material struct {
	name      string
	albedo    mgl32.Vec4
	emission  mgl32.Vec4
	metalness float32
	roughness float32
	textures  [textureSlotCount]uint32
}

// Material defines the surface description of a mesh: the scalar PBR parameters plus the texture
// array layers that modulate them.
//
// Materials are plain values from the renderer's point of view. They are copied into a
// MaterialRecord during migration and never referenced by the GPU directly.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Albedo retrieves the base RGBA color of the material in linear space.
	//
	// Returns:
	//   - mgl32.Vec4: the albedo color
	Albedo() mgl32.Vec4

	// Emission retrieves the emitted RGB radiance of the material. Alpha is unused.
	//
	// Returns:
	//   - mgl32.Vec4: the emission color
	Emission() mgl32.Vec4

	// Metalness retrieves the metalness factor in [0, 1].
	//
	// Returns:
	//   - float32: the metalness factor
	Metalness() float32

	// Roughness retrieves the roughness factor in [0, 1]. Surfaces at or below the renderer's
	// roughness threshold spawn reflection rays.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Texture retrieves the texture array layer bound to a slot, or NoTexture.
	//
	// Parameters:
	//   - slot: the texture slot to query
	//
	// Returns:
	//   - uint32: the layer handle
	Texture(slot TextureSlot) uint32

	// SetTexture binds a texture array layer to a slot.
	//
	// Parameters:
	//   - slot: the texture slot to set
	//   - handle: the layer handle returned by TextureArray.Register, or NoTexture
	SetTexture(slot TextureSlot, handle uint32)

	// SetRoughness replaces the roughness factor, clamped to [0, 1].
	//
	// Parameters:
	//   - roughness: the new roughness factor
	SetRoughness(roughness float32)
}

var _ Material = &material{}

// NewMaterial creates a new Material configured with the provided options. The defaults are a
// white, fully rough dielectric with no textures.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		albedo:    mgl32.Vec4{1, 1, 1, 1},
		roughness: 1.0,
	}
	for i := range m.textures {
		m.textures[i] = NoTexture
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Albedo() mgl32.Vec4 {
	return m.albedo
}

func (m *material) Emission() mgl32.Vec4 {
	return m.emission
}

func (m *material) Metalness() float32 {
	return m.metalness
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Texture(slot TextureSlot) uint32 {
	if slot < 0 || slot >= textureSlotCount {
		return NoTexture
	}
	return m.textures[slot]
}

func (m *material) SetTexture(slot TextureSlot, handle uint32) {
	if slot < 0 || slot >= textureSlotCount {
		return
	}
	m.textures[slot] = handle
}

func (m *material) SetRoughness(roughness float32) {
	m.roughness = clamp01(roughness)
}

func clamp01(v float32) float32 {
	return max(0, min(v, 1))
}
