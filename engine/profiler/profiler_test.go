package profiler

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageMigrate, "migrate"},
		{StageTrace, "trace"},
		{StagePresent, "present"},
		{Stage(42), "Stage(42)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}

func TestFrameStatsTotal(t *testing.T) {
	var f FrameStats
	f.Record(StageRaster, 2*time.Millisecond)
	f.Record(StageTrace, 3*time.Millisecond)
	f.Record(StageTrace, time.Millisecond)
	f.Record(Stage(-1), time.Hour)

	if got := f.Timing(StageTrace); got != 4*time.Millisecond {
		t.Errorf("Timing(StageTrace) = %v, want %v", got, 4*time.Millisecond)
	}
	if got := f.Total(); got != 6*time.Millisecond {
		t.Errorf("Total() = %v, want %v", got, 6*time.Millisecond)
	}
}

func TestFrameStatsMeasure(t *testing.T) {
	var f FrameStats
	boom := errors.New("boom")
	if err := f.Measure(StageSpawn, func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Measure() = %v, want %v", err, boom)
	}
	if err := f.Measure(StageSpawn, func() error { return nil }); err != nil {
		t.Errorf("Measure() = %v, want nil", err)
	}
}

func TestFrameStatsTable(t *testing.T) {
	f := FrameStats{Backend: "software", Width: 64, Height: 32, Seeds: 10, Hits: 4}
	f.Record(StageLighting, time.Millisecond)

	out := f.Table()
	for _, want := range []string{"lighting", "seeds", "software 64x32", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table() missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "raster") {
		t.Errorf("Table() lists an unmeasured stage:\n%s", out)
	}
}

func TestProfilerTick(t *testing.T) {
	p := NewProfiler(time.Hour)
	if fps := p.Tick(FrameStats{Frame: 7}); fps != 0 {
		t.Errorf("Tick() = %v, want 0 before the interval elapses", fps)
	}
	if got := p.Last().Frame; got != 7 {
		t.Errorf("Last().Frame = %d, want 7", got)
	}
}
