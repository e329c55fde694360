package raytrace

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// WorkgroupSize is the number of invocations per tracer workgroup.
	WorkgroupSize = 64

	// DefaultRoughnessThreshold is the roughness at or below which a surface spawns a reflection
	// ray.
	DefaultRoughnessThreshold float32 = 0.25

	// DefaultMaxBounces is the default number of bounces traced per seed.
	DefaultMaxBounces = 3

	// MaxBouncesLimit is the upper clamp of the bounce count.
	MaxBouncesLimit = 8

	// DefaultAmbient scales the albedo for the ambient term.
	DefaultAmbient float32 = 0.1

	// Epsilon is the smallest accepted hit distance and the determinant cutoff of the triangle
	// test.
	Epsilon float32 = 1e-4

	// OriginOffset pushes ray origins off the surface they start on.
	OriginOffset float32 = 2e-4
)

// Config holds the tunables shared by the spawn, trace and lighting stages.
type Config struct {
	Width              int
	Height             int
	RoughnessThreshold float32
	MaxBounces         int
	RayCapacity        uint32 // 0 derives Width * Height * (MaxBounces + 1)
	BackfaceCulling    bool
	Ambient            float32
	ShadowBias         float32
	ClearColor         mgl32.Vec4
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Width:              800,
		Height:             600,
		RoughnessThreshold: DefaultRoughnessThreshold,
		MaxBounces:         DefaultMaxBounces,
		Ambient:            DefaultAmbient,
		ShadowBias:         light.DefaultShadowBias,
		ClearColor:         mgl32.Vec4{0, 0, 0, 1},
	}
}

// Normalized returns a copy with every field clamped to its valid range.
func (c Config) Normalized() Config {
	c.Width = max(c.Width, 1)
	c.Height = max(c.Height, 1)
	c.RoughnessThreshold = common.Clamp(c.RoughnessThreshold, 0, 1)
	c.MaxBounces = common.Clamp(c.MaxBounces, 0, MaxBouncesLimit)
	c.Ambient = max(c.Ambient, 0)
	c.ShadowBias = max(c.ShadowBias, 0)
	return c
}

// Capacity returns the number of RayNode slots a frame holds. A chain holds at most one head plus
// MaxBounces nodes, so the derived value covers every pixel spawning a full chain.
func (c Config) Capacity() uint32 {
	if c.RayCapacity > 0 {
		return c.RayCapacity
	}
	return uint32(c.Width) * uint32(c.Height) * uint32(c.MaxBounces+1)
}
