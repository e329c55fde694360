package raytrace

import "github.com/go-gl/mathgl/mgl32"

// Integrator composites direct and ray-traced indirect light per pixel by walking the reflection
// chains built by the tracer. It only reads its inputs, so running it twice yields the same image.
type Integrator struct {
	Frame      *FrameContext
	Surfaces   SurfaceReader
	Shading    *Shading
	Eye        mgl32.Vec3
	ClearColor mgl32.Vec4
}

// Pixel returns the linear color of one pixel.
//
// A pixel without a chain, or whose chain ends at its head, gets the direct term of its G-buffer
// surface. Otherwise every node with a successor contributes its shading divided by the bounce
// index, and the terminal node contributes its direct term divided by the final bounce count.
func (in *Integrator) Pixel(x, y int) mgl32.Vec4 {
	surf, ok := in.Surfaces.Surface(x, y)
	if !ok {
		return in.ClearColor
	}

	head := in.Frame.Head(x, y)
	nodes := in.Frame.Nodes
	if head == NoNode || nodes[head].Next == NoNode {
		return in.Shading.Direct(surf, in.Eye).Vec4(1)
	}

	var color mgl32.Vec3
	eye := in.Eye
	bounces := 0
	cur := head
	for steps := 0; nodes[cur].Next != NoNode && steps < in.Frame.MaxBounces; steps++ {
		bounces++
		node := &nodes[cur]
		color = color.Add(in.Shading.Direct(node.Surface(), eye).Mul(1 / float32(bounces)))
		eye = node.Position
		cur = node.Next
	}
	terminal := &nodes[cur]
	color = color.Add(in.Shading.Direct(terminal.Surface(), eye).Mul(1 / float32(bounces)))
	return color.Vec4(1)
}

// Rows fills out for rows [y0, y1). out is row major with Frame.Width columns.
func (in *Integrator) Rows(out []mgl32.Vec4, y0, y1 int) {
	w := in.Frame.Width
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = in.Pixel(x, y)
		}
	}
}
