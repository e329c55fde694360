// package common contains small helpers and plain data types shared across the engine: byte packing,
// vertex attribute encodings, image decoding, and input key codes.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Layers is the number of array layers stored back to back in Pixels. Zero means one.
	Layers uint32
}

// TextureSource names an image either by file path or by encoded bytes held in memory.
// PNG, JPEG, BMP, TIFF and WebP are recognised.
type TextureSource struct {
	// Name identifies the texture in logs and in the texture array registry.
	Name string
	// Path is the file to read when Data is empty.
	Path string
	// Data holds encoded image bytes.
	Data []byte
}

// Decode decodes the source to an RGBA image.
//
// Returns:
//   - *image.RGBA: the decoded pixels, origin at (0, 0)
//   - error: error if the source is empty, missing, or not a known format
func (t TextureSource) Decode() (*image.RGBA, error) {
	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedded image %q: %w", t.Name, err)
		}
	case t.Path != "":
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return nil, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return nil, fmt.Errorf("texture %q has neither data nor path", t.Name)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}
