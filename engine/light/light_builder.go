package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*light)

// WithName is an option builder that sets the light identifier.
//
// Parameters:
//   - name: the light name
//
// Returns:
//   - LightBuilderOption: a function that applies the name option to a light
func WithName(name string) LightBuilderOption {
	return func(l *light) {
		l.name = name
	}
}

// WithPosition is an option builder that sets the local-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a light
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *light) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget is an option builder that sets the point the shadow frustum looks at.
//
// Parameters:
//   - x: the x target component
//   - y: the y target component
//   - z: the z target component
//
// Returns:
//   - LightBuilderOption: a function that applies the target option to a light
func WithTarget(x, y, z float32) LightBuilderOption {
	return func(l *light) {
		l.target = mgl32.Vec3{x, y, z}
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - r: the red component
//   - g: the green component
//   - b: the blue component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a light
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *light) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the intensity multiplier. Negative values clamp to 0.
//
// Parameters:
//   - intensity: the light intensity
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a light
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *light) {
		l.intensity = max(intensity, 0)
	}
}

// WithShadowFov is an option builder that sets the vertical field of view of the shadow projection.
//
// Parameters:
//   - degrees: the field of view in degrees, clamped to [1, 170]
//
// Returns:
//   - LightBuilderOption: a function that applies the field of view option to a light
func WithShadowFov(degrees float32) LightBuilderOption {
	return func(l *light) {
		l.fovY = mgl32.DegToRad(mgl32.Clamp(degrees, 1, 170))
	}
}

// WithShadowPlanes is an option builder that sets the shadow projection clip planes. Invalid
// ranges are ignored.
//
// Parameters:
//   - near: the near plane distance, must be > 0
//   - far: the far plane distance, must be > near
//
// Returns:
//   - LightBuilderOption: a function that applies the clip plane option to a light
func WithShadowPlanes(near, far float32) LightBuilderOption {
	return func(l *light) {
		if near <= 0 || far <= near {
			return
		}
		l.near, l.far = near, far
	}
}

// WithCastsShadows is an option builder that toggles shadow lookups for the light.
//
// Parameters:
//   - castsShadows: whether the light casts shadows
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a light
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *light) {
		l.castsShadows = castsShadows
	}
}
