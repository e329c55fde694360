package raytrace

import (
	"fmt"
	"slices"
)

// FrameContext owns the per-frame ray state: the RayNode buffer, the allocation counter, the
// head-index image and the dispatch descriptor. One context is created per resolution and capacity
// and reused across frames.
type FrameContext struct {
	Width      int
	Height     int
	MaxBounces int
	Nodes      []RayNode
	Heads      []int32
	Counter    *AllocationCounter
	Dispatch   DispatchArgs
}

// NewFrameContext allocates a context for a resolution.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - maxBounces: the number of bounces traced per seed
//   - capacity: the number of RayNode slots
//
// Returns:
//   - *FrameContext: a reset context
func NewFrameContext(width, height, maxBounces int, capacity uint32) *FrameContext {
	f := &FrameContext{
		Width:      width,
		Height:     height,
		MaxBounces: maxBounces,
		Nodes:      make([]RayNode, capacity),
		Heads:      make([]int32, width*height),
		Counter:    NewAllocationCounter(capacity),
	}
	f.Reset()
	return f
}

// Reset prepares the context for a new frame: the used node range is cleared, every head becomes
// NoNode and the counter returns to zero.
func (f *FrameContext) Reset() {
	clear(f.Nodes[:f.Counter.Live()])
	for i := range f.Heads {
		f.Heads[i] = NoNode
	}
	f.Counter.Reset()
	f.Dispatch = DispatchArgs{}
}

// Allocate reserves a node slot.
//
// Returns:
//   - uint32: the reserved slot
//   - bool: false when the buffer is full
func (f *FrameContext) Allocate() (uint32, bool) {
	return f.Counter.Allocate()
}

// BuildDispatch records the tracer dispatch descriptor from the current counter value.
func (f *FrameContext) BuildDispatch() DispatchArgs {
	f.Dispatch = NewDispatchArgs(f.Counter.Load(), f.Counter.Capacity())
	return f.Dispatch
}

// Head returns the head slot of a pixel or NoNode.
func (f *FrameContext) Head(x, y int) int32 {
	return f.Heads[y*f.Width+x]
}

// Chain walks the chain starting at head and returns the visited slots in order.
//
// Parameters:
//   - head: the first slot, NoNode yields an empty chain
//
// Returns:
//   - []int32: the slots from head to the terminal node
//   - error: ErrChainTooLong when the chain exceeds MaxBounces + 1 nodes or revisits a slot
func (f *FrameContext) Chain(head int32) ([]int32, error) {
	var chain []int32
	live := int32(f.Counter.Live())
	for cur := head; cur != NoNode; cur = f.Nodes[cur].Next {
		if cur < 0 || cur >= live {
			return chain, fmt.Errorf("slot %d outside live range %d: %w", cur, live, ErrChainTooLong)
		}
		if slices.Contains(chain, cur) || len(chain) == f.MaxBounces+1 {
			return chain, fmt.Errorf("chain from %d: %w", head, ErrChainTooLong)
		}
		chain = append(chain, cur)
	}
	return chain, nil
}

// Stats summarises the allocation state of the frame.
func (f *FrameContext) Stats() (seeds, nodes, dropped uint32) {
	return f.Dispatch.SeedCount, f.Counter.Live(), f.Counter.Dropped()
}
