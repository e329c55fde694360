package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestControllerPosition(t *testing.T) {
	tests := []struct {
		name      string
		opts      []CameraControllerOption
		wantPos   mgl32.Vec3
		wantRadus float32
	}{
		{
			name:      "on +Z",
			opts:      []CameraControllerOption{WithRadius(5), WithElevation(0), WithAzimuth(0)},
			wantPos:   mgl32.Vec3{0, 0, 5},
			wantRadus: 5,
		},
		{
			name:      "on +X around a target",
			opts:      []CameraControllerOption{WithTarget(mgl32.Vec3{1, 2, 3}), WithRadius(2), WithElevation(0), WithAzimuth(math.Pi / 2)},
			wantPos:   mgl32.Vec3{3, 2, 3},
			wantRadus: 2,
		},
		{
			name:      "radius clamped to bounds",
			opts:      []CameraControllerOption{WithRadiusBounds(1, 10), WithRadius(50), WithElevation(0)},
			wantPos:   mgl32.Vec3{0, 0, 10},
			wantRadus: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCameraController(tt.opts...)
			got := cc.Position()
			if !got.ApproxEqualThreshold(tt.wantPos, 1e-4) {
				t.Errorf("Position() = %v, want %v", got, tt.wantPos)
			}
			if r := cc.Radius(); !approx(r, tt.wantRadus) {
				t.Errorf("Radius() = %v, want %v", r, tt.wantRadus)
			}
		})
	}
}

func TestControllerZoomAndOrbit(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithRadiusBounds(1, 10), WithZoomSpeed(1), WithElevation(0))
	cc.Zoom(100)
	if got := cc.Radius(); got != 1 {
		t.Errorf("Radius() after Zoom(100) = %v, want 1", got)
	}
	cc.Zoom(-100)
	if got := cc.Radius(); got != 10 {
		t.Errorf("Radius() after Zoom(-100) = %v, want 10", got)
	}

	cc.Orbit(0, 1e6)
	_, want := cc.ElevationBounds()
	if got := cc.Elevation(); got != want {
		t.Errorf("Elevation() after a large drag = %v, want %v", got, want)
	}
	if d := cc.Position().Sub(cc.Target()).Len(); !approx(d, 10) {
		t.Errorf("distance to target = %v, want 10", d)
	}
}

func TestControllerPanKeepsOffset(t *testing.T) {
	cc := NewCameraController(WithRadius(4), WithElevation(0), WithPanSpeed(1))
	before := cc.Position().Sub(cc.Target())
	cc.Pan(-2, 1)
	cc.Dolly(-3)
	after := cc.Position().Sub(cc.Target())
	if !after.ApproxEqualThreshold(before, 1e-4) {
		t.Errorf("offset after panning = %v, want %v", after, before)
	}
	want := mgl32.Vec3{2, 1, 3}
	if got := cc.Target(); !got.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("Target() = %v, want %v", got, want)
	}
}

func TestCameraValidate(t *testing.T) {
	ctrl := NewCameraController(WithRadius(5))
	tests := []struct {
		name    string
		opts    []CameraBuilderOption
		wantErr bool
	}{
		{name: "no controller", wantErr: true},
		{name: "valid", opts: []CameraBuilderOption{WithController(ctrl)}},
		{name: "zero aspect", opts: []CameraBuilderOption{WithController(ctrl), WithAspect(0)}, wantErr: true},
		{name: "far before near", opts: []CameraBuilderOption{WithController(ctrl), WithNear(10), WithFar(1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCamera(tt.opts...).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDegenerate) {
				t.Errorf("Validate() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestCameraProjection(t *testing.T) {
	ctrl := NewCameraController(WithRadius(5), WithElevation(0))
	c := NewCamera(WithController(ctrl), WithNear(1), WithFar(9))

	if got := c.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 0, 5}, 1e-4) {
		t.Errorf("Position() = %v, want [0 0 5]", got)
	}

	tests := []struct {
		name  string
		point mgl32.Vec3
		depth float32
	}{
		{name: "near plane", point: mgl32.Vec3{0, 0, 4}, depth: 0},
		{name: "far plane", point: mgl32.Vec3{0, 0, -4}, depth: 1},
	}
	vp := c.ViewProjectionMatrix()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := vp.Mul4x1(tt.point.Vec4(1))
			ndc := clip.Vec3().Mul(1 / clip.W())
			if !approx(ndc.X(), 0) || !approx(ndc.Y(), 0) {
				t.Errorf("ndc xy = (%v, %v), want (0, 0)", ndc.X(), ndc.Y())
			}
			if !approx(ndc.Z(), tt.depth) {
				t.Errorf("ndc z = %v, want %v", ndc.Z(), tt.depth)
			}
		})
	}
}
