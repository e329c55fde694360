package light

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestViewProjCentersTarget(t *testing.T) {
	tests := []struct {
		name   string
		pos    mgl32.Vec3
		target mgl32.Vec3
		world  mgl32.Mat4
	}{
		{"above origin", mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0}, mgl32.Ident4()},
		{"side", mgl32.Vec3{5, 2, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Ident4()},
		{"translated", mgl32.Vec3{0, 0, 8}, mgl32.Vec3{0, 0, 0}, mgl32.Translate3D(3, 1, -2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLight(
				WithPosition(tt.pos.X(), tt.pos.Y(), tt.pos.Z()),
				WithTarget(tt.target.X(), tt.target.Y(), tt.target.Z()),
				WithShadowFov(75),
			)
			target := mgl32.TransformCoordinate(tt.target, tt.world)
			clip := l.ViewProj(tt.world).Mul4x1(target.Vec4(1))
			ndc := clip.Vec3().Mul(1 / clip.W())
			if math.Abs(float64(ndc.X())) > 1e-4 || math.Abs(float64(ndc.Y())) > 1e-4 {
				t.Errorf("ViewProj() target ndc = %v, want centered", ndc)
			}
			if ndc.Z() <= 0 || ndc.Z() >= 1 {
				t.Errorf("ViewProj() target depth = %v, want in (0, 1)", ndc.Z())
			}
		})
	}
}

func TestWorldPosition(t *testing.T) {
	l := NewLight(WithPosition(1, 2, 3))
	got := l.WorldPosition(mgl32.Translate3D(10, 0, 0))
	want := mgl32.Vec3{11, 2, 3}
	if !got.ApproxEqual(want) {
		t.Errorf("WorldPosition() = %v, want %v", got, want)
	}
}

func TestOcclusion(t *testing.T) {
	l := NewLight(WithPosition(0, 10, 0), WithTarget(0, 0, 0), WithShadowPlanes(1, 100))
	vp := l.ViewProj(mgl32.Ident4())

	tests := []struct {
		name  string
		depth float32
		p     mgl32.Vec3
		want  float32
	}{
		{"occluder closer", 0.5, mgl32.Vec3{0, 0, 0}, 1},
		{"nothing drawn", 1, mgl32.Vec3{0, 0, 0}, 0},
		{"behind light", 0.5, mgl32.Vec3{0, 20, 0}, 0},
		{"outside frustum", 0.5, mgl32.Vec3{100, 9, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewShadowMap(16, vp)
			for i := range m.Depth {
				m.Depth[i] = tt.depth
			}
			if got := m.Occlusion(tt.p, DefaultShadowBias); got != tt.want {
				t.Errorf("Occlusion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTexelOf(t *testing.T) {
	tests := []struct {
		x, y         float32
		wantX, wantY int
		wantOK       bool
	}{
		{-1, 1, 0, 0, true},
		{1, -1, 7, 7, true},
		{0, 0, 4, 4, true},
		{1.5, 0, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := TexelOf(tt.x, tt.y, 8)
		if x != tt.wantX || y != tt.wantY || ok != tt.wantOK {
			t.Errorf("TexelOf(%v, %v) = (%d, %d, %v), want (%d, %d, %v)", tt.x, tt.y, x, y, ok, tt.wantX, tt.wantY, tt.wantOK)
		}
	}
}

func TestShadowMapsLookup(t *testing.T) {
	m := NewShadowMap(4, mgl32.Ident4())
	maps := ShadowMaps{nil, m}
	if _, ok := maps.ShadowMap(0); ok {
		t.Errorf("ShadowMap(0) ok = true, want false")
	}
	if got, ok := maps.ShadowMap(1); !ok || got != m {
		t.Errorf("ShadowMap(1) = %v, %v, want the map", got, ok)
	}
	if _, ok := maps.ShadowMap(5); ok {
		t.Errorf("ShadowMap(5) ok = true, want false")
	}
}

func TestGPULight(t *testing.T) {
	l := NewLight(WithPosition(1, 2, 3), WithColor(1, 0.5, 0.25), WithIntensity(40), WithCastsShadows(false))
	g := ToGPULight(l, mgl32.Ident4())
	if g.Size() != 96 {
		t.Errorf("Size() = %d, want 96", g.Size())
	}
	if n := len(g.Marshal()); n != 96 {
		t.Errorf("len(Marshal()) = %d, want 96", n)
	}
	if g.Color[3] != 40 {
		t.Errorf("Color.w = %v, want 40", g.Color[3])
	}
	if g.Position[3] != 0 {
		t.Errorf("Position.w = %v, want 0 for a light without shadows", g.Position[3])
	}
}
