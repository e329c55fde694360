package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController places the camera on a sphere around a target point. Mouse input orbits,
// zooms and pans it; the Camera reads Position and Target to build its view matrix.
type CameraController interface {
	// Position returns the world-space eye position derived from the orbit parameters.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the point the camera orbits and looks at.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget moves the orbit pivot, keeping radius and angles.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Radius returns the distance between the eye and the target.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// Elevation returns the angle of the eye above the horizontal plane through the target.
	//
	// Returns:
	//   - float32: elevation in radians
	Elevation() float32

	// ElevationBounds returns the range Orbit clamps the elevation to.
	//
	// Returns:
	//   - float32: minimum elevation in radians
	//   - float32: maximum elevation in radians
	ElevationBounds() (float32, float32)

	// Orbit rotates the camera by a mouse drag. Deltas are scaled by the mouse sensitivity and the
	// elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Orbit(dx, dy float32)

	// Zoom moves the eye toward the target for positive deltas and away for negative ones,
	// clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: scroll amount, scaled by the zoom speed
	Zoom(delta float32)

	// Pan slides the target and the eye together in the view plane so the scene follows the
	// cursor. The right axis stays horizontal.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Pan(dx, dy float32)

	// Dolly slides the target and the eye together along the view direction.
	//
	// Parameters:
	//   - delta: world units, positive moves forward
	Dolly(delta float32)
}
