package raytrace

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

// gridSurfaces is a SurfaceReader over a hand-built G-buffer.
type gridSurfaces struct {
	w, h     int
	surfaces []Surface
	covered  []bool
}

func newGridSurfaces(w, h int, fn func(x, y int) (Surface, bool)) *gridSurfaces {
	g := &gridSurfaces{w: w, h: h, surfaces: make([]Surface, w*h), covered: make([]bool, w*h)}
	for y := range h {
		for x := range w {
			g.surfaces[y*w+x], g.covered[y*w+x] = fn(x, y)
		}
	}
	return g
}

func (g *gridSurfaces) Dimensions() (int, int) { return g.w, g.h }

func (g *gridSurfaces) Surface(x, y int) (Surface, bool) {
	return g.surfaces[y*g.w+x], g.covered[y*g.w+x]
}

func corridorList() *renderlist.List {
	mirror := material.NewMaterial(material.WithRoughness(0), material.WithMetalness(1))
	floor := mesh.NewPlane("floor", 100, 1, mirror)
	ceiling := mesh.NewPlane("ceiling", 100, 1, mirror)
	return renderlist.NewList(
		renderlist.LightElement(light.NewLight(light.WithPosition(0, 1, 0)), mgl32.Ident4()),
		renderlist.MeshElement(floor, mgl32.Ident4()),
		renderlist.MeshElement(ceiling, mgl32.Translate3D(0, 2, 0).Mul4(mgl32.HomogRotate3DX(math.Pi))),
	)
}

func TestMigrateDeterministic(t *testing.T) {
	list := renderlist.NewList(
		renderlist.LightElement(light.NewLight(), mgl32.Ident4()),
		renderlist.MeshElement(mesh.NewSphere("sphere", 1, 6, 8, false, nil), mgl32.Translate3D(0, 1, 0)),
		renderlist.MeshElement(mesh.NewRing("ring", 2, 0.5, 12, 6, nil), mgl32.Scale3D(2, 1, 1)),
		renderlist.MeshElement(mesh.NewPlane("floor", 10, 2, nil), mgl32.Ident4()),
	)

	a, err := Migrate(list, HostReader{}, nil)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	b, err := Migrate(list, HostReader{}, nil)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !bytes.Equal(a.TriangleData(), b.TriangleData()) ||
		!bytes.Equal(a.VolumeData(), b.VolumeData()) ||
		!bytes.Equal(a.MaterialData(), b.MaterialData()) {
		t.Errorf("Migrate() produced different buffers for the same list")
	}

	if len(a.Volumes) != 3 || len(a.Materials) != 3 {
		t.Fatalf("Migrate() volumes, materials = %d, %d, want 3, 3", len(a.Volumes), len(a.Materials))
	}
	var next uint32
	for i, v := range a.Volumes {
		if v.FirstTriangle != next {
			t.Errorf("volume %d FirstTriangle = %d, want %d", i, v.FirstTriangle, next)
		}
		m, _ := list.At(list.LightCount() + i).AsMesh()
		if int(v.TriangleCount) != m.FaceCount() {
			t.Errorf("volume %d TriangleCount = %d, want %d", i, v.TriangleCount, m.FaceCount())
		}
		for ti := v.FirstTriangle; ti < v.FirstTriangle+v.TriangleCount; ti++ {
			if a.Triangles[ti].Material != uint32(i) {
				t.Errorf("triangle %d material = %d, want %d", ti, a.Triangles[ti].Material, i)
			}
		}
		next += v.TriangleCount
	}
	if int(next) != len(a.Triangles) {
		t.Errorf("volume ranges cover %d triangles, want %d", next, len(a.Triangles))
	}

	if got := a.Volumes[1].Radius; math.Abs(float64(got-5)) > 1e-3 {
		t.Errorf("scaled ring radius = %v, want 5", got)
	}
	if got := a.Volumes[0].Center.Vec3(); !got.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("sphere center = %v, want (0, 1, 0)", got)
	}
}

func TestMigrateErrors(t *testing.T) {
	tests := []struct {
		name string
		list *renderlist.List
		want error
	}{
		{"nil list", nil, ErrEmptyRenderList},
		{"empty list", renderlist.NewList(), ErrEmptyRenderList},
		{"mesh slot without mesh", renderlist.NewList(renderlist.Element{Kind: renderlist.KindMesh}), ErrNotRenderable},
		{"mesh without geometry", renderlist.NewList(renderlist.MeshElement(mesh.NewMesh(), mgl32.Ident4())), ErrNotRenderable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := Migrate(tt.list, HostReader{}, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Migrate() error = %v, want %v", err, tt.want)
			}
			if scene != nil {
				t.Errorf("Migrate() scene = %v, want nil", scene)
			}
		})
	}
}

func TestAllocationUnique(t *testing.T) {
	const n = 4096
	c := NewAllocationCounter(n)
	slots := make([]uint32, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, ok := c.Allocate()
			if !ok {
				t.Errorf("Allocate() ok = false below capacity")
			}
			slots[i] = slot
		}()
	}
	wg.Wait()

	seen := make([]bool, n)
	for _, s := range slots {
		if seen[s] {
			t.Fatalf("slot %d allocated twice", s)
		}
		seen[s] = true
	}
	if _, ok := c.Allocate(); ok {
		t.Errorf("Allocate() at capacity ok = true, want false")
	}
	if c.Dropped() != 1 || c.Live() != n || c.Load() != n+1 {
		t.Errorf("Dropped, Live, Load = %d, %d, %d, want 1, %d, %d", c.Dropped(), c.Live(), c.Load(), n, n+1)
	}
}

func TestNewDispatchArgs(t *testing.T) {
	tests := []struct {
		counter, capacity uint32
		want              DispatchArgs
	}{
		{0, 100, DispatchArgs{0, 1, 1, 0}},
		{1, 100, DispatchArgs{1, 1, 1, 1}},
		{64, 100, DispatchArgs{1, 1, 1, 64}},
		{65, 100, DispatchArgs{2, 1, 1, 65}},
		{500, 100, DispatchArgs{2, 1, 1, 100}},
	}
	for _, tt := range tests {
		if got := NewDispatchArgs(tt.counter, tt.capacity); got != tt.want {
			t.Errorf("NewDispatchArgs(%d, %d) = %v, want %v", tt.counter, tt.capacity, got, tt.want)
		}
	}
}

func TestRoughnessGating(t *testing.T) {
	roughness := []float32{0, 0.25, 0.2500001, 1}
	surfaces := newGridSurfaces(len(roughness), 1, func(x, _ int) (Surface, bool) {
		return Surface{Position: mgl32.Vec3{float32(x), 0, 0}, Normal: mgl32.Vec3{0, 1, 0}, Roughness: roughness[x], Triangle: uint32(10 + x)}, true
	})
	frame := NewFrameContext(len(roughness), 1, 3, 16)
	s := &Spawner{Frame: frame, Surfaces: surfaces, Eye: mgl32.Vec3{0, 5, 5}, Threshold: DefaultRoughnessThreshold}
	if n := s.Rows(0, 1); n != 2 {
		t.Errorf("Rows() = %d, want 2", n)
	}

	wantSeed := []bool{true, true, false, false}
	for x, want := range wantSeed {
		head := frame.Head(x, 0)
		if got := head != NoNode; got != want {
			t.Errorf("pixel %d (roughness %v) seeded = %v, want %v", x, roughness[x], got, want)
		}
		if head != NoNode && frame.Nodes[head].Triangle != uint32(10+x) {
			t.Errorf("seed %d Triangle = %d, want %d", head, frame.Nodes[head].Triangle, 10+x)
		}
	}
}

func TestIntersectSphere(t *testing.T) {
	tests := []struct {
		name   string
		ray    Ray
		want   float32
		wantOK bool
	}{
		{"front", Ray{mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 1}}, 8, true},
		{"inside", Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}}, 2, true},
		{"behind", Ray{mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 1}}, 0, false},
		{"offset miss", Ray{mgl32.Vec3{3, 0, -10}, mgl32.Vec3{0, 0, 1}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntersectSphere(tt.ray, mgl32.Vec3{}, 2)
			if ok != tt.wantOK || math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("IntersectSphere() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIntersectTriangle(t *testing.T) {
	v0 := mgl32.Vec3{0, 0, 0}
	v1 := mgl32.Vec3{1, 0, 0}
	v2 := mgl32.Vec3{0, 1, 0}
	centroid := v0.Add(v1).Add(v2).Mul(1.0 / 3)

	tests := []struct {
		name   string
		ray    Ray
		cull   bool
		wantOK bool
		wantT  float32
	}{
		{"centroid front", Ray{centroid.Add(mgl32.Vec3{0, 0, 5}), mgl32.Vec3{0, 0, -1}}, false, true, 5},
		{"centroid back face", Ray{centroid.Add(mgl32.Vec3{0, 0, -5}), mgl32.Vec3{0, 0, 1}}, false, true, 5},
		{"back face culled", Ray{centroid.Add(mgl32.Vec3{0, 0, -5}), mgl32.Vec3{0, 0, 1}}, true, false, 0},
		{"parallel", Ray{mgl32.Vec3{-1, 0.2, 0}, mgl32.Vec3{1, 0, 0}}, false, false, 0},
		{"outside", Ray{mgl32.Vec3{1, 1, 5}, mgl32.Vec3{0, 0, -1}}, false, false, 0},
		{"behind origin", Ray{centroid.Add(mgl32.Vec3{0, 0, -5}), mgl32.Vec3{0, 0, -1}}, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := IntersectTriangle(tt.ray, v0, v1, v2, tt.cull)
			if ok != tt.wantOK {
				t.Fatalf("IntersectTriangle() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if math.Abs(float64(h.T-tt.wantT)) > 1e-5 {
				t.Errorf("IntersectTriangle() t = %v, want %v", h.T, tt.wantT)
			}
			if math.Abs(float64(h.U-1.0/3)) > 1e-5 || math.Abs(float64(h.V-1.0/3)) > 1e-5 {
				t.Errorf("IntersectTriangle() barycentrics = (%v, %v), want (1/3, 1/3)", h.U, h.V)
			}
		})
	}
}

func traceCorridor(t *testing.T, maxBounces int, capacity uint32) (*FrameContext, *gridSurfaces, int) {
	t.Helper()
	scene, err := Migrate(corridorList(), HostReader{}, nil)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	surfaces := newGridSurfaces(8, 8, func(x, y int) (Surface, bool) {
		return Surface{
			Position: mgl32.Vec3{float32(x)*0.1 - 0.4, 0, float32(y)*0.1 - 0.4},
			Normal:   mgl32.Vec3{0, 1, 0},
			Albedo:   mgl32.Vec3{1, 1, 1},
			Triangle: 0, // floor
		}, true
	})
	frame := NewFrameContext(8, 8, maxBounces, capacity)
	spawner := &Spawner{Frame: frame, Surfaces: surfaces, Eye: mgl32.Vec3{0, 1, -3}, Threshold: DefaultRoughnessThreshold}
	spawner.Rows(0, 8)
	frame.BuildDispatch()
	tracer := &Tracer{Scene: scene, Frame: frame, MaxBounces: maxBounces}
	hits := tracer.TraceRange(0, frame.Dispatch.Invocations())
	return frame, surfaces, hits
}

func TestTraceChainsTerminate(t *testing.T) {
	const maxBounces = 3
	frame, _, hits := traceCorridor(t, maxBounces, 64*(maxBounces+1))

	if hits != 64*maxBounces {
		t.Errorf("TraceRange() hits = %d, want %d", hits, 64*maxBounces)
	}
	for i, head := range frame.Heads {
		chain, err := frame.Chain(head)
		if err != nil {
			t.Fatalf("Chain(pixel %d) error = %v", i, err)
		}
		if len(chain) != maxBounces+1 {
			t.Errorf("Chain(pixel %d) length = %d, want %d", i, len(chain), maxBounces+1)
		}
		for _, slot := range chain[1:] {
			if frame.Nodes[slot].Triangle == NoTriangle {
				t.Errorf("bounce node %d has no triangle", slot)
			}
		}
	}
}

func TestTraceStopsAtFaceEnteringSeed(t *testing.T) {
	const maxBounces = 3
	scene, err := Migrate(corridorList(), HostReader{}, nil)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	eye := mgl32.Vec3{0, 1, -3}

	tests := []struct {
		name    string
		normal  mgl32.Vec3
		wantLen int
	}{
		// Tilted so the mirror of the view ray dips below the floor plane.
		{"grazing shading normal", mgl32.Vec3{0, 0.978, 0.208}.Normalize(), 1},
		{"upright shading normal", mgl32.Vec3{0, 1, 0}, maxBounces + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surfaces := newGridSurfaces(1, 1, func(_, _ int) (Surface, bool) {
				return Surface{Position: mgl32.Vec3{0.3, 0, 0.1}, Normal: tt.normal, Triangle: 0}, true
			})
			frame := NewFrameContext(1, 1, maxBounces, maxBounces+1)
			spawner := &Spawner{Frame: frame, Surfaces: surfaces, Eye: eye, Threshold: DefaultRoughnessThreshold}
			if spawner.Rows(0, 1) != 1 {
				t.Fatalf("Rows() spawned no seed")
			}
			frame.BuildDispatch()
			tracer := &Tracer{Scene: scene, Frame: frame, MaxBounces: maxBounces}
			hits := tracer.TraceRange(0, frame.Dispatch.Invocations())

			chain, err := frame.Chain(frame.Head(0, 0))
			if err != nil {
				t.Fatalf("Chain() error = %v", err)
			}
			if len(chain) != tt.wantLen || hits != tt.wantLen-1 {
				t.Errorf("len(Chain()), hits = %d, %d, want %d, %d", len(chain), hits, tt.wantLen, tt.wantLen-1)
			}
		})
	}
}

func TestTraceOverflowIsBounded(t *testing.T) {
	frame, _, _ := traceCorridor(t, 3, 80)
	if frame.Counter.Live() != 80 {
		t.Errorf("Live() = %d, want 80", frame.Counter.Live())
	}
	if frame.Counter.Dropped() == 0 {
		t.Errorf("Dropped() = 0, want > 0")
	}
	for i, head := range frame.Heads {
		if _, err := frame.Chain(head); err != nil {
			t.Fatalf("Chain(pixel %d) error = %v", i, err)
		}
	}
}

func TestChainDetectsCycle(t *testing.T) {
	frame := NewFrameContext(1, 1, 3, 4)
	for range 2 {
		frame.Allocate()
	}
	frame.Nodes[0].Next = 1
	frame.Nodes[1].Next = 0
	if _, err := frame.Chain(0); !errors.Is(err, ErrChainTooLong) {
		t.Errorf("Chain() error = %v, want %v", err, ErrChainTooLong)
	}
}

func TestIntegratorIdempotent(t *testing.T) {
	frame, surfaces, _ := traceCorridor(t, 3, 256)
	in := &Integrator{
		Frame:    frame,
		Surfaces: surfaces,
		Shading: &Shading{
			Lights:     []LightSample{{Position: mgl32.Vec3{0, 1, 2}, Radiance: mgl32.Vec3{10, 10, 10}}},
			Ambient:    DefaultAmbient,
			ShadowBias: light.DefaultShadowBias,
		},
		Eye: mgl32.Vec3{0, 1, -3},
	}
	a := make([]mgl32.Vec4, 64)
	b := make([]mgl32.Vec4, 64)
	in.Rows(a, 0, 8)
	in.Rows(b, 0, 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d = %v then %v, want identical", i, a[i], b[i])
		}
	}
}

func TestIntegratorChainWeights(t *testing.T) {
	cam := mgl32.Vec3{0, 3, 1}
	shading := &Shading{
		Lights:     []LightSample{{Position: mgl32.Vec3{0, 5, 0}, Radiance: mgl32.Vec3{10, 10, 10}}},
		Ambient:    DefaultAmbient,
		ShadowBias: light.DefaultShadowBias,
	}
	up := mgl32.Vec3{0, 1, 0}
	node := func(i int, albedo float32) RayNode {
		return RayNode{
			Position:  mgl32.Vec3{float32(i), -float32(i), 0},
			Normal:    up,
			Albedo:    mgl32.Vec3{albedo, albedo * 0.5, 0.25},
			Roughness: 0.3,
			Next:      NoNode,
			Triangle:  NoTriangle,
		}
	}
	direct := func(n RayNode, eye mgl32.Vec3) mgl32.Vec3 {
		return shading.Direct(n.Surface(), eye)
	}
	a, b, c, d := node(0, 0.9), node(1, 0.6), node(2, 0.4), node(3, 0.2)
	gsurf := Surface{Position: mgl32.Vec3{0, 0.5, 0}, Normal: up, Albedo: mgl32.Vec3{0.1, 0.7, 0.3}, Roughness: 0.8}

	tests := []struct {
		name  string
		chain []RayNode
		want  mgl32.Vec3
	}{
		{"no head", nil, shading.Direct(gsurf, cam)},
		{"head without successor", []RayNode{a}, shading.Direct(gsurf, cam)},
		{"two nodes", []RayNode{a, b}, direct(a, cam).Add(direct(b, a.Position))},
		{"three nodes", []RayNode{a, b, c},
			direct(a, cam).Add(direct(b, a.Position).Mul(0.5)).Add(direct(c, b.Position).Mul(0.5))},
		{"walk capped at max bounces", []RayNode{a, b, c, d},
			direct(a, cam).Add(direct(b, a.Position).Mul(0.5)).Add(direct(c, b.Position).Mul(0.5))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := NewFrameContext(2, 1, 2, 8)
			for i := range tt.chain {
				slot, _ := frame.Allocate()
				frame.Nodes[slot] = tt.chain[i]
				if i > 0 {
					frame.Nodes[slot-1].Next = int32(slot)
				}
			}
			if len(tt.chain) > 0 {
				frame.Heads[0] = 0
			}
			surfaces := newGridSurfaces(2, 1, func(x, _ int) (Surface, bool) { return gsurf, x == 0 })
			in := &Integrator{Frame: frame, Surfaces: surfaces, Shading: shading, Eye: cam, ClearColor: mgl32.Vec4{0.1, 0.2, 0.3, 1}}

			got := in.Pixel(0, 0)
			for i := range 3 {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-5 {
					t.Fatalf("Pixel() = %v, want %v", got, tt.want.Vec4(1))
				}
			}
			if got[3] != 1 {
				t.Errorf("Pixel() alpha = %v, want 1", got[3])
			}
			if got := in.Pixel(1, 0); got != in.ClearColor {
				t.Errorf("uncovered Pixel() = %v, want %v", got, in.ClearColor)
			}
		})
	}
}

func TestDirect(t *testing.T) {
	surf := Surface{Position: mgl32.Vec3{}, Normal: mgl32.Vec3{0, 1, 0}, Albedo: mgl32.Vec3{0.5, 0.5, 0.5}, Roughness: 0.5}
	above := LightSample{Position: mgl32.Vec3{0, 2, 0}, Radiance: mgl32.Vec3{4, 4, 4}}
	ambient := surf.Albedo.Mul(DefaultAmbient)

	blocked := light.NewShadowMap(4, light.NewLight(light.WithPosition(0, 2, 0), light.WithTarget(0, 0, 0)).ViewProj(mgl32.Ident4()))
	for i := range blocked.Depth {
		blocked.Depth[i] = 0
	}

	tests := []struct {
		name        string
		eye         mgl32.Vec3
		light       LightSample
		wantAmbient bool
	}{
		{"lit", mgl32.Vec3{0, 3, 1}, above, false},
		{"facing away", mgl32.Vec3{0, -3, 0}, above, true},
		{"light below", mgl32.Vec3{0, 3, 1}, LightSample{Position: mgl32.Vec3{0, -2, 0}, Radiance: mgl32.Vec3{4, 4, 4}}, true},
		{"shadowed", mgl32.Vec3{0, 3, 1}, LightSample{Position: above.Position, Radiance: above.Radiance, Shadow: blocked}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &Shading{Lights: []LightSample{tt.light}, Ambient: DefaultAmbient, ShadowBias: light.DefaultShadowBias}
			got := sh.Direct(surf, tt.eye)
			if isAmbient := got == ambient; isAmbient != tt.wantAmbient {
				t.Errorf("Direct() = %v, ambient-only = %v, want %v", got, isAmbient, tt.wantAmbient)
			}
		})
	}
}

func TestRecordSizes(t *testing.T) {
	tests := []struct {
		name string
		size int
		data []byte
		want int
	}{
		{"TriangleRecord", (&TriangleRecord{}).Size(), (&TriangleRecord{}).Marshal(), 128},
		{"BoundingVolume", (&BoundingVolume{}).Size(), (&BoundingVolume{}).Marshal(), 32},
		{"MaterialRecord", (&MaterialRecord{}).Size(), (&MaterialRecord{}).Marshal(), 64},
		{"RayNode", (&RayNode{}).Size(), (&RayNode{}).Marshal(), 64},
		{"DispatchArgs", (&DispatchArgs{}).Size(), (&DispatchArgs{}).Marshal(), 16},
		{"FrameUniforms", (&FrameUniforms{}).Size(), (&FrameUniforms{}).Marshal(), 144},
	}
	for _, tt := range tests {
		if tt.size != tt.want || len(tt.data) != tt.want {
			t.Errorf("%s Size(), len(Marshal()) = %d, %d, want %d", tt.name, tt.size, len(tt.data), tt.want)
		}
	}
}
