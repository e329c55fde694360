package gbuffer

import (
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

func migrate(t *testing.T, elements ...renderlist.Element) (*raytrace.Scene, *renderlist.List) {
	t.Helper()
	list := renderlist.NewList(elements...)
	scene, err := raytrace.Migrate(list, raytrace.HostReader{}, nil)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return scene, list
}

func viewProj(eye, center, up mgl32.Vec3, aspect float32) mgl32.Mat4 {
	return common.Perspective(mgl32.DegToRad(60), aspect, 0.1, 100).Mul4(mgl32.LookAtV(eye, center, up))
}

func TestDrawPlaneFromAbove(t *testing.T) {
	scene, _ := migrate(t, renderlist.MeshElement(mesh.NewPlane("floor", 10, 1, nil), mgl32.Ident4()))
	g := NewGBuffer(32, 32)
	// Offset so the shared diagonal of the two floor triangles avoids pixel centers.
	eye := mgl32.Vec3{0.05, 5, 0}
	NewRasterizer(nil).Draw(g, scene, viewProj(eye, mgl32.Vec3{0.05, 0, 0}, mgl32.Vec3{0, 0, -1}, 1), eye)

	for y := range g.Height {
		for x := range g.Width {
			s, ok := g.Surface(x, y)
			if !ok {
				t.Fatalf("Surface(%d, %d) covered = false, want true", x, y)
			}
			if !s.Normal.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-4) {
				t.Fatalf("Surface(%d, %d) normal = %v, want (0, 1, 0)", x, y, s.Normal)
			}
			if math.Abs(float64(s.Position.Y())) > 1e-4 {
				t.Fatalf("Surface(%d, %d) position = %v, want y = 0", x, y, s.Position)
			}
			if d := g.Depth[y*g.Width+x]; d <= 0 || d >= 1 {
				t.Fatalf("Depth(%d, %d) = %v, want in (0, 1)", x, y, d)
			}
			if s.Triangle >= uint32(len(scene.Triangles)) {
				t.Fatalf("Surface(%d, %d) triangle = %d, want one of the %d floor triangles", x, y, s.Triangle, len(scene.Triangles))
			}
		}
	}
}

func TestDrawOrientsNormalTowardEye(t *testing.T) {
	scene, _ := migrate(t, renderlist.MeshElement(mesh.NewPlane("floor", 10, 1, nil), mgl32.Ident4()))
	g := NewGBuffer(8, 8)
	eye := mgl32.Vec3{0, -5, 0}
	NewRasterizer(nil).Draw(g, scene, viewProj(eye, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 1), eye)

	s, ok := g.Surface(2, 4)
	if !ok {
		t.Fatalf("Surface(2, 4) covered = false, want true")
	}
	if !s.Normal.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-4) {
		t.Errorf("Surface(2, 4) normal = %v, want (0, -1, 0)", s.Normal)
	}
}

func TestSurfaceTriangleMatchesPosition(t *testing.T) {
	scene, _ := migrate(t, renderlist.MeshElement(mesh.NewSphere("sphere", 1, 8, 12, false, nil), mgl32.Ident4()))
	g := NewGBuffer(32, 32)
	eye := mgl32.Vec3{0, 1, 4}
	NewRasterizer(nil).Draw(g, scene, viewProj(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 1), eye)

	covered := 0
	for y := range g.Height {
		for x := range g.Width {
			s, ok := g.Surface(x, y)
			if !ok {
				continue
			}
			covered++
			tri := &scene.Triangles[s.Triangle]
			face := tri.FaceNormal()
			if d := s.Position.Sub(tri.V[0].Vec3()).Dot(face); math.Abs(float64(d)) > 1e-4 {
				t.Fatalf("Surface(%d, %d) position is %v off the plane of triangle %d", x, y, d, s.Triangle)
			}
		}
	}
	if covered == 0 {
		t.Fatalf("no pixel covered by the sphere")
	}
}

func TestDrawClipsNearPlane(t *testing.T) {
	scene, _ := migrate(t, renderlist.MeshElement(mesh.NewPlane("floor", 200, 1, nil), mgl32.Ident4()))
	g := NewGBuffer(32, 32)
	eye := mgl32.Vec3{0, 1, 0}
	NewRasterizer(nil).Draw(g, scene, viewProj(eye, mgl32.Vec3{0, 1, -10}, mgl32.Vec3{0, 1, 0}, 1), eye)

	if !g.Covered(16, 31) {
		t.Errorf("Covered(16, 31) = false, want true below the horizon")
	}
	if g.Covered(16, 0) {
		t.Errorf("Covered(16, 0) = true, want false above the horizon")
	}
}

func TestDrawPoolMatchesSerial(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 256, time.Second)
	defer pool.Stop()

	scene, _ := migrate(t,
		renderlist.MeshElement(mesh.NewSphere("sphere", 1, 8, 12, false, nil), mgl32.Translate3D(0, 1, 0)),
		renderlist.MeshElement(mesh.NewPlane("floor", 20, 1, nil), mgl32.Ident4()),
	)
	eye := mgl32.Vec3{0, 3, 6}
	vp := viewProj(eye, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0}, 4.0/3)

	serial := NewGBuffer(64, 48)
	NewRasterizer(nil).Draw(serial, scene, vp, eye)
	parallel := NewGBuffer(64, 48)
	NewRasterizer(pool).Draw(parallel, scene, vp, eye)

	for i := range serial.Depth {
		if serial.Depth[i] != parallel.Depth[i] || serial.Normal[i] != parallel.Normal[i] {
			t.Fatalf("pixel %d differs between serial and pooled rasterization", i)
		}
	}
}

func TestShadowMapperOccludes(t *testing.T) {
	lamp := light.NewLight(light.WithPosition(0, 8, 0), light.WithTarget(0, 0, 0), light.WithShadowFov(90))
	quiet := light.NewLight(light.WithCastsShadows(false))
	scene, list := migrate(t,
		renderlist.LightElement(lamp, mgl32.Ident4()),
		renderlist.LightElement(quiet, mgl32.Ident4()),
		renderlist.MeshElement(mesh.NewSphere("sphere", 1, 8, 12, false, nil), mgl32.Translate3D(0, 2, 0)),
		renderlist.MeshElement(mesh.NewPlane("floor", 20, 1, nil), mgl32.Ident4()),
	)

	mapper := NewShadowMapper(nil, 256)
	mapper.Update(scene, list)

	if _, ok := mapper.ShadowMap(1); ok {
		t.Errorf("ShadowMap(1) ok = true for a light without shadows, want false")
	}
	m, ok := mapper.ShadowMap(0)
	if !ok {
		t.Fatalf("ShadowMap(0) ok = false, want true")
	}

	tests := []struct {
		name string
		p    mgl32.Vec3
		want float32
	}{
		{"under sphere", mgl32.Vec3{0, 0, 0}, 1},
		{"open floor", mgl32.Vec3{3, 0, 3}, 0},
		{"sphere top", mgl32.Vec3{0, 3, 0}, 0},
	}
	for _, tt := range tests {
		if got := m.Occlusion(tt.p, light.DefaultShadowBias); got != tt.want {
			t.Errorf("Occlusion(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
