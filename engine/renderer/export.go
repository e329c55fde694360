package renderer

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// EncodeSRGB converts a linear channel value to an 8 bit sRGB value. Values outside [0, 1] are
// clamped first.
func EncodeSRGB(v float32) uint8 {
	v = common.Clamp(v, 0, 1)
	if v <= 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*float32(math.Pow(float64(v), 1/2.4)) - 0.055
	}
	return uint8(v*255 + 0.5)
}

// ToImage encodes a row major linear color buffer as an sRGB image. Alpha is stored linearly.
//
// Parameters:
//   - colors: one linear color per pixel
//   - width: the image width in pixels
//   - height: the image height in pixels
//
// Returns:
//   - *image.RGBA: the encoded image
func ToImage(colors []mgl32.Vec4, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := min(len(colors), width*height)
	for i := range n {
		c := colors[i]
		o := i * 4
		img.Pix[o+0] = EncodeSRGB(c[0])
		img.Pix[o+1] = EncodeSRGB(c[1])
		img.Pix[o+2] = EncodeSRGB(c[2])
		img.Pix[o+3] = uint8(common.Clamp(c[3], 0, 1)*255 + 0.5)
	}
	return img
}

// SavePNG writes an image to a PNG file.
//
// Parameters:
//   - path: the file to create or truncate
//   - img: the image to encode
//
// Returns:
//   - error: an error if the file cannot be created or encoded
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
