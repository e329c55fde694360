package raytrace

import "github.com/Carmen-Shannon/oxy-rt/common"

// NewDispatchArgs builds the tracer dispatch descriptor from the counter value observed after the
// spawn stage. One invocation runs per live seed, WorkgroupSize invocations per workgroup.
//
// Parameters:
//   - counter: the allocation counter after the spawn barrier
//   - capacity: the RayNode buffer capacity
//
// Returns:
//   - DispatchArgs: {ceil(n / WorkgroupSize), 1, 1, n} with n = min(counter, capacity)
func NewDispatchArgs(counter, capacity uint32) DispatchArgs {
	n := min(counter, capacity)
	return DispatchArgs{X: common.CeilDiv(n, WorkgroupSize), Y: 1, Z: 1, SeedCount: n}
}

// Invocations returns the total invocation count the descriptor launches.
func (d DispatchArgs) Invocations() uint32 {
	return d.X * d.Y * d.Z * WorkgroupSize
}
