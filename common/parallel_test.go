package common

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

func TestParallelFor(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 256, time.Second)
	defer pool.Stop()

	tests := []struct {
		name  string
		n     int
		chunk int
	}{
		{"empty", 0, 8},
		{"single chunk", 5, 8},
		{"uneven", 1000, 7},
		{"chunk of one", 33, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.n)
			ParallelFor(pool, tt.n, tt.chunk, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, c := range seen {
				if c != 1 {
					t.Errorf("ParallelFor() item %d visited %d times, want 1", i, c)
				}
			}
		})
	}
}
