package light

import "github.com/go-gl/mathgl/mgl32"

// ShadowMapResolution is the default edge length in texels of a square shadow map.
const ShadowMapResolution = 1024

// DefaultShadowBias is the depth bias subtracted before comparing against a shadow map.
const DefaultShadowBias float32 = 0.001

// DefaultShadowNear is the default near plane of the shadow projection.
const DefaultShadowNear float32 = 1.0

// DefaultShadowFar is the default far plane of the shadow projection.
const DefaultShadowFar float32 = 100.0

// ShadowMap is a square depth image rendered from a light. Depth values are in the [0, 1] range of
// the light projection, row 0 at the top, with 1 meaning nothing was drawn.
type ShadowMap struct {
	Size     int
	Depth    []float32
	ViewProj mgl32.Mat4
}

// ShadowSource supplies the shadow map of each light. Lights are addressed by their position in
// the render list, which keeps lights first.
type ShadowSource interface {
	// ShadowMap returns the depth map for the light at a render list index.
	//
	// Parameters:
	//   - index: the light's position in the render list
	//
	// Returns:
	//   - *ShadowMap: the map, nil when the light has none
	//   - bool: true when a map exists
	ShadowMap(index int) (*ShadowMap, bool)
}

// ShadowMaps is a ShadowSource backed by a slice indexed by light position. Nil entries are lights
// without a map.
type ShadowMaps []*ShadowMap

var _ ShadowSource = ShadowMaps(nil)

// ShadowMap returns the entry at index when present.
func (s ShadowMaps) ShadowMap(index int) (*ShadowMap, bool) {
	if index < 0 || index >= len(s) || s[index] == nil {
		return nil, false
	}
	return s[index], true
}

// NewShadowMap allocates a map of the given size cleared to the far plane.
//
// Parameters:
//   - size: the edge length in texels
//   - viewProj: the light view-projection the map is rendered with
//
// Returns:
//   - *ShadowMap: the cleared map
func NewShadowMap(size int, viewProj mgl32.Mat4) *ShadowMap {
	m := &ShadowMap{Size: size, Depth: make([]float32, size*size), ViewProj: viewProj}
	m.Clear()
	return m
}

// Clear resets every texel to the far plane.
func (m *ShadowMap) Clear() {
	for i := range m.Depth {
		m.Depth[i] = 1
	}
}

// TexelOf maps normalized device coordinates to a texel. The y axis is flipped so row 0 is the
// top of the light's view.
//
// Parameters:
//   - x: the NDC x coordinate
//   - y: the NDC y coordinate
//   - size: the map edge length in texels
//
// Returns:
//   - int: the texel column
//   - int: the texel row
//   - bool: false when the point falls outside the map
func TexelOf(x, y float32, size int) (int, int, bool) {
	u := x*0.5 + 0.5
	v := 0.5 - y*0.5
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, false
	}
	return min(int(u*float32(size)), size-1), min(int(v*float32(size)), size-1), true
}

// Occlusion looks a world-space point up in the map.
//
// Parameters:
//   - p: the world-space point
//   - bias: the depth bias subtracted before comparing
//
// Returns:
//   - float32: 1 when the point is shadowed, 0 when it is lit or outside the map
func (m *ShadowMap) Occlusion(p mgl32.Vec3, bias float32) float32 {
	if m == nil || m.Size == 0 {
		return 0
	}
	clip := m.ViewProj.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0
	}
	z := clip.Z() / clip.W()
	if z < 0 || z > 1 {
		return 0
	}
	x, y, ok := TexelOf(clip.X()/clip.W(), clip.Y()/clip.W(), m.Size)
	if !ok {
		return 0
	}
	if z-bias > m.Depth[y*m.Size+x] {
		return 1
	}
	return 0
}
