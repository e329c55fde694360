package material

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// DefaultLayerSize is the edge length in texels of every layer in a TextureArray unless overridden.
const DefaultLayerSize = 256

// TextureArray is the registry behind material texture handles. Every registered image is resampled
// to a square layer of a fixed size so the whole set can be uploaded as one 2D array texture and
// addressed from a kernel by layer index.
//
// Sampling is nearest-texel with repeat addressing on both backends.
type TextureArray struct {
	mu        sync.RWMutex
	layerSize int
	layers    []*image.RGBA
	byName    map[string]uint32
}

// NewTextureArray creates an empty registry whose layers are layerSize texels square.
// A non-positive size selects DefaultLayerSize.
func NewTextureArray(layerSize int) *TextureArray {
	if layerSize <= 0 {
		layerSize = DefaultLayerSize
	}
	return &TextureArray{
		layerSize: layerSize,
		byName:    make(map[string]uint32),
	}
}

// Register decodes src and appends it as a new layer. Sources are de-duplicated by name, so
// registering the same name twice returns the first handle without decoding again.
//
// Parameters:
//   - src: the image to register
//
// Returns:
//   - uint32: the layer handle to store in a material slot
//   - error: an error if the image cannot be decoded
func (a *TextureArray) Register(src common.TextureSource) (uint32, error) {
	if src.Name != "" {
		a.mu.RLock()
		handle, ok := a.byName[src.Name]
		a.mu.RUnlock()
		if ok {
			return handle, nil
		}
	}

	img, err := src.Decode()
	if err != nil {
		return NoTexture, fmt.Errorf("failed to register texture %q: %w", src.Name, err)
	}
	return a.AddImage(src.Name, img), nil
}

// AddImage appends an already decoded image as a new layer, resampling it with a Catmull-Rom
// filter when its size differs from the layer size.
//
// Parameters:
//   - name: the de-duplication key, may be empty
//   - img: the image to add
//
// Returns:
//   - uint32: the layer handle
func (a *TextureArray) AddImage(name string, img image.Image) uint32 {
	layer := image.NewRGBA(image.Rect(0, 0, a.layerSize, a.layerSize))
	if img.Bounds().Size() == layer.Bounds().Size() {
		draw.Copy(layer, image.Point{}, img, img.Bounds(), draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(layer, layer.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if name != "" {
		if handle, ok := a.byName[name]; ok {
			return handle
		}
	}
	handle := uint32(len(a.layers))
	a.layers = append(a.layers, layer)
	if name != "" {
		a.byName[name] = handle
	}
	return handle
}

// Len returns the number of registered layers.
func (a *TextureArray) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.layers)
}

// LayerSize returns the edge length of every layer in texels.
func (a *TextureArray) LayerSize() int {
	return a.layerSize
}

// Resolve maps a material handle to the handle stored in a MaterialRecord: handles that do not
// name a registered layer become NoTexture.
func (a *TextureArray) Resolve(handle uint32) uint32 {
	if a == nil || handle == NoTexture {
		return NoTexture
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(handle) >= len(a.layers) {
		return NoTexture
	}
	return handle
}

// Sample returns the texel of a layer at uv as linear RGBA in [0, 1]. A NoTexture or unknown
// handle returns (1, 1, 1, 1).
//
// Parameters:
//   - handle: the layer handle
//   - uv: the texture coordinate, wrapped into [0, 1)
//
// Returns:
//   - mgl32.Vec4: the texel
func (a *TextureArray) Sample(handle uint32, uv mgl32.Vec2) mgl32.Vec4 {
	white := mgl32.Vec4{1, 1, 1, 1}
	if a == nil || handle == NoTexture {
		return white
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(handle) >= len(a.layers) {
		return white
	}

	layer := a.layers[handle]
	x := TexelCoord(uv[0], a.layerSize)
	y := TexelCoord(uv[1], a.layerSize)
	c := layer.RGBAAt(x, y)
	return mgl32.Vec4{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// TexelCoord converts a texture coordinate to a texel index with repeat addressing.
func TexelCoord(t float32, size int) int {
	f := t - float32(math.Floor(float64(t)))
	return min(int(f*float32(size)), size-1)
}

// Staging packs every layer back to back for upload as a 2D array texture. An empty registry
// produces a single white layer because a texture array must have at least one layer.
//
// Returns:
//   - common.TextureStagingData: RGBA8 pixels for all layers
func (a *TextureArray) Staging() common.TextureStagingData {
	a.mu.RLock()
	defer a.mu.RUnlock()

	size := a.layerSize
	layers := a.layers
	if len(layers) == 0 {
		white := image.NewRGBA(image.Rect(0, 0, size, size))
		for i := range white.Pix {
			white.Pix[i] = 0xFF
		}
		layers = []*image.RGBA{white}
	}

	stride := size * size * 4
	pixels := make([]byte, 0, stride*len(layers))
	for _, layer := range layers {
		pixels = append(pixels, layer.Pix[:stride]...)
	}
	return common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(size),
		Height: uint32(size),
		Layers: uint32(len(layers)),
	}
}
