// Package profiler measures the renderer: per-stage timings and ray counts of a frame, and the
// rolling frame rate and memory statistics of the interactive loop.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/log"
)

var logger = log.New("profiler")

// Profiler tracks frame rate and memory statistics for the interactive loop.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// last holds the most recent frame statistics passed to Tick.
	last FrameStats
}

// NewProfiler creates a new Profiler reporting once per interval. A non-positive interval
// defaults to one second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Tick should be called once per rendered frame with that frame's statistics.
// When the update interval has elapsed it logs the frame rate, heap usage, allocation rate, GC
// pauses and the ray counts of the latest frame.
//
// Parameters:
//   - stats: the statistics of the frame just rendered
//
// Returns:
//   - float64: the frame rate over the elapsed interval, 0 when nothing was logged
func (p *Profiler) Tick(stats FrameStats) float64 {
	p.frameCount++
	p.last = stats
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return 0
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logger.Infof("FPS: %.2f | frame: %s | rays: %d seeds, %d hits, %d dropped | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, stats.Total(), stats.Seeds, stats.Hits, stats.Dropped, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return fps
}

// Last returns the statistics most recently passed to Tick.
func (p *Profiler) Last() FrameStats {
	return p.last
}
