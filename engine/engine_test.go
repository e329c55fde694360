package engine

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

func testScene(lamp light.Light) *renderlist.Node {
	root := renderlist.NewNode("root")
	root.AddChild(&renderlist.Node{Name: "lamp", Local: mgl32.Ident4(), Light: lamp})
	mirror := material.NewMaterial(material.WithRoughness(0), material.WithMetalness(1))
	root.AddChild(&renderlist.Node{Name: "sphere", Local: mgl32.Ident4(), Mesh: mesh.NewSphere("sphere", 1, 8, 12, false, mirror)})
	root.AddChild(&renderlist.Node{Name: "floor", Local: mgl32.Translate3D(0, -1, 0), Mesh: mesh.NewPlane("floor", 10, 1, nil)})
	return root
}

func newTestEngine(t *testing.T, lamp light.Light) *engine {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware,
		renderer.WithResolution(16, 16),
		renderer.WithWorkers(2),
	)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(r.Release)

	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(5))))
	e, err := NewEngine(
		WithRenderer(r),
		WithCamera(cam),
		WithRoot(testScene(lamp)),
		WithControlledLight(lamp, 2),
		WithShadowMapSize(32),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Quit)
	return e.(*engine)
}

func TestNewEngineRequires(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithResolution(4, 4))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Release()
	cam := camera.NewCamera()

	tests := []struct {
		name    string
		options []EngineBuilderOption
		want    error
	}{
		{"no renderer", []EngineBuilderOption{WithCamera(cam), WithRoot(renderlist.NewNode("root"))}, ErrMissingRenderer},
		{"no camera", []EngineBuilderOption{WithRenderer(r), WithRoot(renderlist.NewNode("root"))}, ErrMissingCamera},
		{"no scene", []EngineBuilderOption{WithRenderer(r), WithCamera(cam)}, ErrMissingScene},
	}
	for _, tt := range tests {
		if _, err := NewEngine(tt.options...); !errors.Is(err, tt.want) {
			t.Errorf("NewEngine(%s) error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestRunWithoutWindow(t *testing.T) {
	e := newTestEngine(t, light.NewLight(light.WithPosition(0, 5, 2)))
	if err := e.Run(); !errors.Is(err, ErrNoWindow) {
		t.Errorf("Run() error = %v, want %v", err, ErrNoWindow)
	}
}

func TestRenderFrameMigratesOnce(t *testing.T) {
	e := newTestEngine(t, light.NewLight(light.WithPosition(0, 5, 2)))
	if err := e.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	scene := e.renderer.Scene()
	if scene == nil {
		t.Fatalf("Scene() = nil after RenderFrame")
	}
	if len(scene.Volumes) != 2 {
		t.Errorf("len(Scene().Volumes) = %d, want 2", len(scene.Volumes))
	}
	if _, ok := e.shadows.ShadowMap(0); !ok {
		t.Errorf("ShadowMap(0) ok = false, want a map for the lamp")
	}

	if err := e.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if e.renderer.Scene() != scene {
		t.Errorf("RenderFrame() migrated a clean scene again")
	}

	e.MarkDirty()
	if err := e.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if e.renderer.Scene() == scene {
		t.Errorf("RenderFrame() after MarkDirty kept the old scene")
	}
}

func TestTickMovesControlledLight(t *testing.T) {
	lamp := light.NewLight(light.WithPosition(0, 5, 0))
	e := newTestEngine(t, lamp)

	ticks := 0
	e.SetTickCallback(func(float32) { ticks++ })

	e.pressed[common.KeyD] = true
	e.tick(0.5)
	if got, want := lamp.Position(), (mgl32.Vec3{1, 5, 0}); !got.ApproxEqual(want) {
		t.Errorf("Position() after tick = %v, want %v", got, want)
	}
	if ticks != 1 {
		t.Errorf("tick callback ran %d times, want 1", ticks)
	}

	e.paused = true
	delete(e.pressed, common.KeyD)
	e.tick(0.5)
	if ticks != 1 {
		t.Errorf("tick callback ran %d times while paused, want 1", ticks)
	}
}
