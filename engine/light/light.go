package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// light is the implementation of the Light interface.
type light struct {
	name         string
	position     mgl32.Vec3
	target       mgl32.Vec3
	color        mgl32.Vec3
	intensity    float32
	fovY         float32 // radians
	near         float32
	far          float32
	castsShadows bool
}

// Light defines a point light source.
//
// The position and target are expressed in the local space of the render list element that carries
// the light, so the same light attached to a moving scene node follows it. The shadow projection is
// a square perspective frustum looking from the light position toward the target.
type Light interface {
	// Name retrieves the light identifier.
	//
	// Returns:
	//   - string: the light name
	Name() string

	// Position returns the local-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the light position
	Position() mgl32.Vec3

	// Target returns the local-space point the shadow frustum looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the light color
	Color() mgl32.Vec3

	// Intensity returns the scalar multiplier applied to the color.
	//
	// Returns:
	//   - float32: the light intensity
	Intensity() float32

	// Radiance returns color multiplied by intensity, before distance falloff.
	//
	// Returns:
	//   - mgl32.Vec3: the emitted radiance
	Radiance() mgl32.Vec3

	// CastsShadows reports whether a shadow map is looked up for this light.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// ShadowPlanes returns the vertical field of view (radians) and the clip planes of the shadow
	// projection.
	//
	// Returns:
	//   - float32: the field of view in radians
	//   - float32: the near plane distance
	//   - float32: the far plane distance
	ShadowPlanes() (float32, float32, float32)

	// WorldPosition transforms the light position by a world matrix.
	//
	// Parameters:
	//   - world: the world matrix of the element carrying the light
	//
	// Returns:
	//   - mgl32.Vec3: the world-space position
	WorldPosition(world mgl32.Mat4) mgl32.Vec3

	// ViewProj returns the shadow view-projection matrix in world space. Depth follows the WebGPU
	// [0, 1] convention.
	//
	// Parameters:
	//   - world: the world matrix of the element carrying the light
	//
	// Returns:
	//   - mgl32.Mat4: projection * view
	ViewProj(world mgl32.Mat4) mgl32.Mat4

	// SetPosition moves the light in local space.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// Translate offsets the light position in local space.
	//
	// Parameters:
	//   - d: the offset to add
	Translate(d mgl32.Vec3)

	// SetColor replaces the light color.
	//
	// Parameters:
	//   - c: the new linear RGB color
	SetColor(c mgl32.Vec3)

	// SetIntensity replaces the intensity. Negative values are clamped to 0.
	//
	// Parameters:
	//   - intensity: the new intensity
	SetIntensity(intensity float32)
}

var _ Light = &light{}

// NewLight creates a point light with the provided options applied. Defaults: white, intensity 1,
// at the origin looking at -Z, a 90 degree shadow frustum from 1 to 100 units, casting shadows.
//
// Parameters:
//   - opts: the builder options to apply
//
// Returns:
//   - Light: the constructed light
func NewLight(opts ...LightBuilderOption) Light {
	l := &light{
		name:         "light",
		target:       mgl32.Vec3{0, 0, -1},
		color:        mgl32.Vec3{1, 1, 1},
		intensity:    1,
		fovY:         mgl32.DegToRad(90),
		near:         DefaultShadowNear,
		far:          DefaultShadowFar,
		castsShadows: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *light) Name() string {
	return l.name
}

func (l *light) Position() mgl32.Vec3 {
	return l.position
}

func (l *light) Target() mgl32.Vec3 {
	return l.target
}

func (l *light) Color() mgl32.Vec3 {
	return l.color
}

func (l *light) Intensity() float32 {
	return l.intensity
}

func (l *light) Radiance() mgl32.Vec3 {
	return l.color.Mul(l.intensity)
}

func (l *light) CastsShadows() bool {
	return l.castsShadows
}

func (l *light) ShadowPlanes() (float32, float32, float32) {
	return l.fovY, l.near, l.far
}

func (l *light) WorldPosition(world mgl32.Mat4) mgl32.Vec3 {
	return mgl32.TransformCoordinate(l.position, world)
}

func (l *light) ViewProj(world mgl32.Mat4) mgl32.Mat4 {
	eye := l.WorldPosition(world)
	center := mgl32.TransformCoordinate(l.target, world)
	forward := center.Sub(eye)
	if forward.Len() < 1e-6 {
		forward = mgl32.Vec3{0, 0, -1}
		center = eye.Add(forward)
	}
	up := mgl32.Vec3{0, 1, 0}
	if math.Abs(float64(forward.Normalize().Dot(up))) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(eye, center, up)
	return common.Perspective(l.fovY, 1, l.near, l.far).Mul4(view)
}

func (l *light) SetPosition(p mgl32.Vec3) {
	l.position = p
}

func (l *light) Translate(d mgl32.Vec3) {
	l.position = l.position.Add(d)
}

func (l *light) SetColor(c mgl32.Vec3) {
	l.color = c
}

func (l *light) SetIntensity(intensity float32) {
	l.intensity = max(intensity, 0)
}
