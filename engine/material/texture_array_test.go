package material

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

func checker(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestTextureArraySampleNearestRepeat(t *testing.T) {
	arr := NewTextureArray(4)
	h := arr.AddImage("checker", checker(4))

	tests := []struct {
		name string
		uv   mgl32.Vec2
		want mgl32.Vec4
	}{
		{"origin", mgl32.Vec2{0, 0}, mgl32.Vec4{1, 0, 0, 1}},
		{"next texel", mgl32.Vec2{0.3, 0}, mgl32.Vec4{0, 0, 1, 1}},
		{"wraps positive", mgl32.Vec2{1.0, 0}, mgl32.Vec4{1, 0, 0, 1}},
		{"wraps negative", mgl32.Vec2{-0.1, 0}, mgl32.Vec4{0, 0, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := arr.Sample(h, tt.uv); got != tt.want {
				t.Errorf("Sample(%v) = %v, want %v", tt.uv, got, tt.want)
			}
		})
	}
}

func TestTextureArrayNoTextureIsWhite(t *testing.T) {
	arr := NewTextureArray(4)
	white := mgl32.Vec4{1, 1, 1, 1}
	if got := arr.Sample(NoTexture, mgl32.Vec2{0.5, 0.5}); got != white {
		t.Errorf("Sample(NoTexture) = %v, want %v", got, white)
	}
	if got := arr.Sample(7, mgl32.Vec2{0.5, 0.5}); got != white {
		t.Errorf("Sample(unregistered) = %v, want %v", got, white)
	}
	if got := arr.Resolve(7); got != NoTexture {
		t.Errorf("Resolve(unregistered) = %d, want NoTexture", got)
	}
}

func TestTextureArrayRegisterResamplesAndDedupes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, checker(16)); err != nil {
		t.Fatal(err)
	}

	arr := NewTextureArray(8)
	src := common.TextureSource{Name: "c", Data: buf.Bytes()}
	h1, err := arr.Register(src)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	h2, err := arr.Register(src)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if h1 != h2 || arr.Len() != 1 {
		t.Errorf("duplicate name registered twice: handles %d, %d, len %d", h1, h2, arr.Len())
	}

	st := arr.Staging()
	if st.Width != 8 || st.Height != 8 || st.Layers != 1 || len(st.Pixels) != 8*8*4 {
		t.Errorf("Staging() = %dx%dx%d with %d bytes", st.Width, st.Height, st.Layers, len(st.Pixels))
	}
}

func TestEmptyTextureArrayStagesOneWhiteLayer(t *testing.T) {
	st := NewTextureArray(2).Staging()
	if st.Layers != 1 {
		t.Fatalf("Layers = %d, want 1", st.Layers)
	}
	for i, b := range st.Pixels {
		if b != 0xFF {
			t.Fatalf("pixel byte %d = %#x, want 0xff", i, b)
		}
	}
}

func TestMaterialDefaultsAndClamp(t *testing.T) {
	m := NewMaterial(WithName("m"), WithRoughness(1.5), WithMetalness(-1), WithTexture(TextureNormal, 3))
	if m.Roughness() != 1 || m.Metalness() != 0 {
		t.Errorf("roughness, metalness = %v, %v, want 1, 0", m.Roughness(), m.Metalness())
	}
	if m.Texture(TextureAlbedo) != NoTexture {
		t.Errorf("albedo slot = %d, want NoTexture", m.Texture(TextureAlbedo))
	}
	if m.Texture(TextureNormal) != 3 {
		t.Errorf("normal slot = %d, want 3", m.Texture(TextureNormal))
	}
}
