package raytrace

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Spawner seeds reflection chains from the G-buffer. Every covered pixel whose roughness is at or
// below the threshold allocates one RayNode and records it in the head image.
type Spawner struct {
	Frame     *FrameContext
	Surfaces  SurfaceReader
	Eye       mgl32.Vec3
	Threshold float32
}

// Pixel runs the spawn step for one pixel.
//
// Returns:
//   - bool: true when a seed was written
func (s *Spawner) Pixel(x, y int) bool {
	surf, ok := s.Surfaces.Surface(x, y)
	if !ok || surf.Roughness > s.Threshold {
		return false
	}
	slot, ok := s.Frame.Allocate()
	if !ok {
		return false
	}
	view := surf.Position.Sub(s.Eye).Normalize()
	s.Frame.Nodes[slot] = RayNode{
		Position:  surf.Position,
		Metalness: surf.Metalness,
		Normal:    surf.Normal,
		Roughness: surf.Roughness,
		Albedo:    surf.Albedo,
		Next:      NoNode,
		Direction: common.Reflect(view, surf.Normal),
		Triangle:  surf.Triangle,
	}
	s.Frame.Heads[y*s.Frame.Width+x] = int32(slot)
	return true
}

// Rows runs the spawn step for rows [y0, y1).
//
// Returns:
//   - int: the number of seeds written
func (s *Spawner) Rows(y0, y1 int) int {
	spawned := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < s.Frame.Width; x++ {
			if s.Pixel(x, y) {
				spawned++
			}
		}
	}
	return spawned
}
