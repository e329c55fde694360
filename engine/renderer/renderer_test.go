package renderer

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const testSize = 24

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) Renderer {
	t.Helper()
	options = append([]RendererBuilderOption{
		WithResolution(testSize, testSize),
		WithWorkers(2),
		WithClearColor(mgl32.Vec4{0, 0, 0, 1}),
	}, options...)
	r, err := NewRenderer(BackendTypeSoftware, options...)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func frontCamera() camera.Camera {
	return camera.NewCamera(camera.WithController(camera.NewCameraController(
		camera.WithTarget(mgl32.Vec3{0, 0, 0}),
		camera.WithRadius(4),
		camera.WithAzimuth(0),
		camera.WithElevation(0),
	)))
}

func sphereList(roughness float32) *renderlist.List {
	mat := material.NewMaterial(
		material.WithAlbedo(mgl32.Vec4{0.8, 0.8, 0.8, 1}),
		material.WithMetalness(1-roughness),
		material.WithRoughness(roughness),
	)
	return renderlist.NewList(
		renderlist.LightElement(light.NewLight(light.WithPosition(0, 4, 4), light.WithIntensity(20)), mgl32.Ident4()),
		renderlist.MeshElement(mesh.NewSphere("sphere", 1, 16, 24, false, mat), mgl32.Ident4()),
	)
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		name    string
		want    RendererBackendType
		wantErr bool
	}{
		{"software", BackendTypeSoftware, false},
		{"CPU", BackendTypeSoftware, false},
		{" wgpu ", BackendTypeWGPU, false},
		{"gpu", BackendTypeWGPU, false},
		{"vulkan", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendType(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBackendType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEncodeSRGB(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.5, 188},
		{1, 255},
		{4, 255},
	}
	for _, tt := range tests {
		if got := EncodeSRGB(tt.in); got != tt.want {
			t.Errorf("EncodeSRGB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSavePNG(t *testing.T) {
	img := ToImage([]mgl32.Vec4{{1, 0, 0, 1}, {0, 0, 1, 0.5}}, 2, 1)
	if got := img.Pix[0:4]; got[0] != 255 || got[1] != 0 || got[2] != 0 || got[3] != 255 {
		t.Errorf("ToImage() pixel 0 = %v, want [255 0 0 255]", got)
	}
	if got := img.Pix[7]; got != 128 {
		t.Errorf("ToImage() pixel 1 alpha = %v, want 128", got)
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(path, img); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("decoded bounds = %v, want 2x1", b)
	}
}

func TestRendererStageOrder(t *testing.T) {
	r := newTestRenderer(t)
	cam := frontCamera()
	list := sphereList(1)

	if err := r.Trace(cam, list); !errors.Is(err, ErrNotMigrated) {
		t.Errorf("Trace() before Migrate error = %v, want %v", err, ErrNotMigrated)
	}
	if err := r.Composite(cam, list, nil); !errors.Is(err, ErrNotTraced) {
		t.Errorf("Composite() before Trace error = %v, want %v", err, ErrNotTraced)
	}
	if err := r.Present(); !errors.Is(err, ErrNotTraced) {
		t.Errorf("Present() before Trace error = %v, want %v", err, ErrNotTraced)
	}
	if err := r.Migrate(renderlist.NewList()); !errors.Is(err, raytrace.ErrEmptyRenderList) {
		t.Errorf("Migrate(empty) error = %v, want %v", err, raytrace.ErrEmptyRenderList)
	}

	if err := r.RenderFrame(cam, list, nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if err := r.Present(); !errors.Is(err, ErrNoSurface) {
		t.Errorf("Present() headless error = %v, want %v", err, ErrNoSurface)
	}
}

func TestRendererInvalidCamera(t *testing.T) {
	r := newTestRenderer(t)
	list := sphereList(1)
	if err := r.Migrate(list); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := r.Trace(camera.NewCamera(), list); !errors.Is(err, ErrInvalidCamera) {
		t.Errorf("Trace() without controller error = %v, want %v", err, ErrInvalidCamera)
	}
}

func TestRenderDiffuseSphere(t *testing.T) {
	r := newTestRenderer(t)
	if err := r.RenderFrame(frontCamera(), sphereList(1), nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}

	stats := r.Stats()
	if stats.Seeds != 0 || stats.Nodes != 0 {
		t.Errorf("Stats() seeds, nodes = %d, %d, want 0, 0 for rough surfaces", stats.Seeds, stats.Nodes)
	}

	out, err := r.Output()
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if len(out) != testSize*testSize {
		t.Fatalf("len(Output()) = %d, want %d", len(out), testSize*testSize)
	}
	center := out[(testSize/2)*testSize+testSize/2]
	if center.X() <= 0 || center[3] != 1 {
		t.Errorf("center pixel = %v, want lit and opaque", center)
	}
	if corner := out[0]; corner != (mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("corner pixel = %v, want clear color", corner)
	}
}

func TestRenderMirrorSphereChains(t *testing.T) {
	r := newTestRenderer(t, WithMaxBounces(2))
	if err := r.RenderFrame(frontCamera(), sphereList(0), nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	stats := r.Stats()
	if stats.Seeds == 0 {
		t.Fatalf("Stats().Seeds = 0, want mirror pixels to spawn rays")
	}
	if stats.Dropped != 0 {
		t.Errorf("Stats().Dropped = %d, want 0 with derived capacity", stats.Dropped)
	}

	f, err := r.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	heads := 0
	for y := range f.Height {
		for x := range f.Width {
			head := f.Head(x, y)
			if head == raytrace.NoNode {
				continue
			}
			heads++
			chain, err := f.Chain(head)
			if err != nil {
				t.Fatalf("Chain(%d) error = %v", head, err)
			}
			if len(chain) > f.MaxBounces+1 {
				t.Errorf("len(Chain(%d)) = %d, want <= %d", head, len(chain), f.MaxBounces+1)
			}
		}
	}
	if uint32(heads) != stats.Seeds {
		t.Errorf("heads = %d, want %d seeds", heads, stats.Seeds)
	}
}

func TestRenderLoneMirrorSphereEqualsDirect(t *testing.T) {
	mirror := material.NewMaterial(material.WithMetalness(1), material.WithRoughness(0))
	list := renderlist.NewList(
		renderlist.LightElement(light.NewLight(light.WithPosition(0, 4, 4), light.WithIntensity(20)), mgl32.Ident4()),
		renderlist.MeshElement(mesh.NewSphere("sphere", 1, 12, 16, false, mirror), mgl32.Ident4()),
	)

	for _, cull := range []bool{false, true} {
		render := func(bounces int) ([]mgl32.Vec4, Renderer) {
			r := newTestRenderer(t, WithMaxBounces(bounces), WithBackfaceCulling(cull))
			if err := r.RenderFrame(frontCamera(), list, nil); err != nil {
				t.Fatalf("RenderFrame(bounces %d, cull %v) error = %v", bounces, cull, err)
			}
			out, err := r.Output()
			if err != nil {
				t.Fatalf("Output() error = %v", err)
			}
			return out, r
		}

		direct, _ := render(0)
		traced, r := render(3)
		if stats := r.Stats(); stats.Seeds == 0 || stats.Hits != 0 {
			t.Errorf("cull %v: Stats() seeds, hits = %d, %d, want seeds > 0 and no hits", cull, stats.Seeds, stats.Hits)
		}
		for i := range direct {
			if direct[i] != traced[i] {
				t.Fatalf("cull %v: pixel %d = %v with tracing, want direct %v", cull, i, traced[i], direct[i])
			}
		}
	}
}

func TestRenderFrameIdempotentComposite(t *testing.T) {
	r := newTestRenderer(t)
	cam := frontCamera()
	list := sphereList(0)
	if err := r.RenderFrame(cam, list, nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	first, _ := r.Output()
	if err := r.Composite(cam, list, nil); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	second, _ := r.Output()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("pixel %d = %v after recomposite, want %v", i, second[i], first[i])
		}
	}
}

func TestRendererResize(t *testing.T) {
	r := newTestRenderer(t)
	cam := frontCamera()
	list := sphereList(1)
	if err := r.RenderFrame(cam, list, nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if err := r.Resize(10, 6); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := r.Composite(cam, list, nil); !errors.Is(err, ErrNotTraced) {
		t.Errorf("Composite() after Resize error = %v, want %v", err, ErrNotTraced)
	}
	if err := r.RenderFrame(cam, list, nil); err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	img, err := r.Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 6 {
		t.Errorf("Image() bounds = %v, want 10x6", b)
	}
}

func TestKernelDeclarationsResolve(t *testing.T) {
	providers := map[shader.AnnotationArg]bool{
		frameIdentity:              true,
		shader.AnnotationArgScene:   true,
		shader.AnnotationArgRays:    true,
		shader.AnnotationArgGBuffer: true,
		shader.AnnotationArgLights:  true,
		shader.AnnotationArgOutput:  true,
	}
	for key, source := range kernelSources() {
		pp := shader.NewPreProcessor()
		if _, err := pp.Process(source); err != nil {
			t.Errorf("Process(%s) error = %v", key, err)
			continue
		}
		for _, decl := range pp.Declarations() {
			if decl.Group == nil || decl.Binding == nil {
				continue
			}
			identity, ok := groupIdentities[decl.Role()]
			if decl.Type == shader.AnnotationTypeProvider {
				identity, ok = decl.Args[0], true
			}
			if !ok || !providers[identity] {
				t.Errorf("%s line %d: role %q has no provider", key, decl.Line, decl.Role())
			}
		}
	}
}

func TestKernelPipelines(t *testing.T) {
	tests := []struct {
		name   string
		format wgpu.TextureFormat
		want   int
	}{
		{"headless", wgpu.TextureFormatUndefined, 5},
		{"surface", wgpu.TextureFormatBGRA8Unorm, 6},
	}
	for _, tt := range tests {
		pipelines, err := kernelPipelines(tt.format)
		if errors.Is(err, shader.ErrInvalidShader) {
			t.Skipf("naga rejected a kernel: %v", err)
		}
		if err != nil {
			t.Fatalf("kernelPipelines(%s) error = %v", tt.name, err)
		}
		if len(pipelines) != tt.want {
			t.Errorf("len(kernelPipelines(%s)) = %d, want %d", tt.name, len(pipelines), tt.want)
		}
	}
}

func TestStageUploadCommitsAllOrNothing(t *testing.T) {
	errAlloc := errors.New("out of memory")
	tests := []struct {
		name        string
		failAt      int
		wantCommits string
		wantDiscard string
	}{
		{"all allocated", -1, "abc", ""},
		{"last allocation fails", 2, "", "ab"},
		{"first allocation fails", 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var commits, discards string
			allocs := make([]func() (uploadStep, error), 0, 3)
			for i, name := range []string{"a", "b", "c"} {
				allocs = append(allocs, func() (uploadStep, error) {
					if i == tt.failAt {
						return uploadStep{}, errAlloc
					}
					return uploadStep{
						commit:  func() { commits += name },
						discard: func() { discards += name },
					}, nil
				})
			}

			err := stageUpload(allocs...)
			if wantErr := tt.failAt >= 0; (err != nil) != wantErr || (wantErr && !errors.Is(err, errAlloc)) {
				t.Errorf("stageUpload() error = %v, want failure %v", err, wantErr)
			}
			if commits != tt.wantCommits || discards != tt.wantDiscard {
				t.Errorf("commits, discards = %q, %q, want %q, %q", commits, discards, tt.wantCommits, tt.wantDiscard)
			}
		})
	}
}
