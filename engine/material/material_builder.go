package material

import "github.com/go-gl/mathgl/mgl32"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithAlbedo is an option builder that sets the linear RGBA base color of the material.
//
// Parameters:
//   - color: the albedo color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo option to a material
func WithAlbedo(color mgl32.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.albedo = color
	}
}

// WithEmission is an option builder that sets the emitted radiance of the material.
//
// Parameters:
//   - color: the emission color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emission option to a material
func WithEmission(color mgl32.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.emission = color
	}
}

// WithMetalness is an option builder that sets the metalness factor, clamped to [0, 1].
//
// Parameters:
//   - metalness: the metalness factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metalness option to a material
func WithMetalness(metalness float32) MaterialBuilderOption {
	return func(m *material) {
		m.metalness = clamp01(metalness)
	}
}

// WithRoughness is an option builder that sets the roughness factor, clamped to [0, 1].
//
// Parameters:
//   - roughness: the roughness factor (0.0 = mirror, 1.0 = fully rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = clamp01(roughness)
	}
}

// WithTexture is an option builder that binds a texture array layer to a slot.
//
// Parameters:
//   - slot: the texture slot
//   - handle: the layer handle returned by TextureArray.Register
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(slot TextureSlot, handle uint32) MaterialBuilderOption {
	return func(m *material) {
		if slot >= 0 && slot < textureSlotCount {
			m.textures[slot] = handle
		}
	}
}
