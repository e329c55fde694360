package raytrace

import "sync/atomic"

// AllocationCounter hands out RayNode slots to concurrent invocations with an atomic fetch-add.
// Allocation is bounds checked: a request at or past the capacity fails and is counted as dropped.
// The raw counter may exceed the capacity; consumers read Live.
type AllocationCounter struct {
	value    atomic.Uint32
	dropped  atomic.Uint32
	capacity uint32
}

// NewAllocationCounter creates a counter for a buffer of capacity slots.
func NewAllocationCounter(capacity uint32) *AllocationCounter {
	return &AllocationCounter{capacity: capacity}
}

// Allocate reserves the next slot.
//
// Returns:
//   - uint32: the reserved slot
//   - bool: false when the buffer is full
func (c *AllocationCounter) Allocate() (uint32, bool) {
	slot := c.value.Add(1) - 1
	if slot >= c.capacity {
		c.dropped.Add(1)
		return 0, false
	}
	return slot, true
}

// Reset sets the counter and the dropped tally back to zero.
func (c *AllocationCounter) Reset() {
	c.value.Store(0)
	c.dropped.Store(0)
}

// Load returns the raw counter value.
func (c *AllocationCounter) Load() uint32 {
	return c.value.Load()
}

// Live returns the number of slots actually written, min(counter, capacity).
func (c *AllocationCounter) Live() uint32 {
	return min(c.value.Load(), c.capacity)
}

// Dropped returns the number of failed allocations since the last Reset.
func (c *AllocationCounter) Dropped() uint32 {
	return c.dropped.Load()
}

// Capacity returns the number of slots the counter guards.
func (c *AllocationCounter) Capacity() uint32 {
	return c.capacity
}

// Store overwrites the counter, used when a GPU backend reads its device counter back.
func (c *AllocationCounter) Store(value uint32) {
	c.value.Store(value)
	if value > c.capacity {
		c.dropped.Store(value - c.capacity)
	} else {
		c.dropped.Store(0)
	}
}
