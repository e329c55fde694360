package profiler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stage identifies one step of a frame.
type Stage int

const (
	StageMigrate Stage = iota
	StageRaster
	StageSpawn
	StageDispatch
	StageTrace
	StageLighting
	StagePresent
	stageCount
)

var stageNames = [stageCount]string{"migrate", "raster", "spawn", "dispatch", "trace", "lighting", "present"}

// String returns the lower case stage name.
func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// FrameStats holds the measurements of one frame.
type FrameStats struct {
	Frame   uint64
	Backend string
	Width   int
	Height  int

	// Seeds is the number of chains the spawn stage started.
	Seeds uint32
	// Nodes is the number of RayNode slots written, seeds included.
	Nodes uint32
	// Hits is the number of ray-triangle hits appended by the tracer.
	Hits uint32
	// Dropped is the number of allocations refused because the node buffer was full.
	Dropped uint32

	Timings [stageCount]time.Duration
}

// Record adds d to the time spent in a stage.
func (f *FrameStats) Record(stage Stage, d time.Duration) {
	if stage >= 0 && stage < stageCount {
		f.Timings[stage] += d
	}
}

// Measure runs fn and records its wall time under stage.
func (f *FrameStats) Measure(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	f.Record(stage, time.Since(start))
	return err
}

// Timing returns the time recorded for a stage.
func (f *FrameStats) Timing(stage Stage) time.Duration {
	if stage < 0 || stage >= stageCount {
		return 0
	}
	return f.Timings[stage]
}

// Total returns the sum of every stage timing.
func (f *FrameStats) Total() time.Duration {
	var total time.Duration
	for _, d := range f.Timings {
		total += d
	}
	return total
}

// Table renders the stage timings and ray counts as a text table.
//
// Returns:
//   - string: the rendered table
func (f *FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Stage", "Time", "% of frame"})

	total := f.Total()
	for s := range stageCount {
		d := f.Timings[s]
		if d == 0 {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(d) / float64(total)
		}
		table.Append([]string{s.String(), d.String(), fmt.Sprintf("%02.1f %%", pct)})
	}
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"seeds", fmt.Sprintf("%d", f.Seeds), ""})
	table.Append([]string{"nodes", fmt.Sprintf("%d", f.Nodes), ""})
	table.Append([]string{"hits", fmt.Sprintf("%d", f.Hits), ""})
	table.Append([]string{"dropped", fmt.Sprintf("%d", f.Dropped), ""})
	table.SetFooter([]string{fmt.Sprintf("%s %dx%d", f.Backend, f.Width, f.Height), total.String(), "TOTAL"})

	table.Render()
	return buf.String()
}
