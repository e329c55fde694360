package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

type orbitController struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32 // around +Y, 0 puts the eye on +Z
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &orbitController{}

// NewCameraController creates an orbit controller looking at the origin from 8 units away, 30
// degrees above the horizon.
//
// Parameters:
//   - options: a variadic list of CameraControllerOption functions
//
// Returns:
//   - CameraController: the controller with its position derived from the orbit parameters
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		mu:        &sync.Mutex{},
		radius:    8,
		elevation: math.Pi / 6,

		minRadius:    0.5,
		maxRadius:    500,
		minElevation: -(math.Pi/2 - 0.05),
		maxElevation: math.Pi/2 - 0.05,

		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         0.01,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.place()
	return cc
}

func (cc *orbitController) place() {
	sinE, cosE := math.Sincos(float64(cc.elevation))
	sinA, cosA := math.Sincos(float64(cc.azimuth))
	offset := mgl32.Vec3{float32(cosE * sinA), float32(sinE), float32(cosE * cosA)}
	cc.position = cc.target.Add(offset.Mul(cc.radius))
}

// axes returns the right, up and forward axes of the view.
func (cc *orbitController) axes() (right, up, forward mgl32.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Len() < 1e-8 {
		return
	}
	back = back.Normalize()
	right = mgl32.Vec3{back.Z(), 0, -back.X()}
	if right.Len() < 1e-8 {
		return
	}
	right = right.Normalize()
	return right, back.Cross(right), back.Mul(-1)
}

func (cc *orbitController) slide(d mgl32.Vec3) {
	cc.target = cc.target.Add(d)
	cc.position = cc.position.Add(d)
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.place()
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *orbitController) ElevationBounds() (float32, float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minElevation, cc.maxElevation
}

func (cc *orbitController) Orbit(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation = common.Clamp(cc.elevation+dy*cc.mouseSensitivity, cc.minElevation, cc.maxElevation)
	cc.place()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.place()
}

func (cc *orbitController) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, up, _ := cc.axes()
	cc.slide(right.Mul(-dx * cc.panSpeed).Add(up.Mul(dy * cc.panSpeed)))
}

func (cc *orbitController) Dolly(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, _, forward := cc.axes()
	cc.slide(forward.Mul(delta))
}
