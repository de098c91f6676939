package trend

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
)

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAverage(t *testing.T) {
	if got := Average(nil); got != 0.0 {
		t.Errorf("Average(nil) = %v, want 0", got)
	}
	if got := Average([]int{2, 4, 6}); !floatEq(got, 4.0) {
		t.Errorf("Average = %v, want 4", got)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]int{5}); got != 0.0 {
		t.Errorf("StdDev of one value = %v, want 0", got)
	}
	// Sample deviation: mean 5, squared deviations sum 32, variance 32/7
	got := StdDev([]int{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if !floatEq(got, want) {
		t.Errorf("StdDev = %v, want %v", got, want)
	}
}

func TestDetectSpike(t *testing.T) {
	tests := []struct {
		name      string
		latest    int
		avg       float64
		spike     bool
		direction string
		threshold float64
	}{
		{"doubling over average", 20, 10.0, true, "increase", 5.0},
		{"flat series", 10, 10.0, false, "flat", 5.0},
		{"drop below average", 2, 10.0, true, "decrease", 5.0},
		{"small move under floor", 3, 2.0, false, "increase", 2.0},
		{"floor applies near zero", 1, 0.0, false, "increase", 2.0},
		{"floor crossed near zero", 2, 0.0, true, "increase", 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DetectSpike(tt.latest, tt.avg)
			if s.Spike != tt.spike {
				t.Errorf("Spike = %v, want %v", s.Spike, tt.spike)
			}
			if s.Direction != tt.direction {
				t.Errorf("Direction = %q, want %q", s.Direction, tt.direction)
			}
			if !floatEq(s.Threshold, tt.threshold) {
				t.Errorf("Threshold = %v, want %v", s.Threshold, tt.threshold)
			}
			if s.Latest != tt.latest {
				t.Errorf("Latest = %d, want %d", s.Latest, tt.latest)
			}
		})
	}
}

func TestDetectDrift(t *testing.T) {
	tests := []struct {
		name      string
		series    []int
		pattern   string
		meanDelta float64
		recent    []int
	}{
		{"too short", []int{4}, PatternInsufficientData, 0.0, []int{}},
		{"sudden jump in last step", []int{1, 1, 1, 10}, PatternSuddenChange, 3.0, []int{0, 0, 9}},
		{"steady climb", []int{1, 2, 3, 4}, PatternSlowIncrease, 1.0, []int{1, 1, 1}},
		{"steady decline", []int{4, 3, 2, 1}, PatternSlowDecrease, -1.0, []int{-1, -1, -1}},
		{"oscillation", []int{3, 1, 3, 1}, PatternNoClearDrift, -0.67, []int{-2, 2, -2}},
		{"recent deltas keep last three", []int{1, 2, 3, 4, 5}, PatternSlowIncrease, 1.0, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DetectDrift(tt.series)
			if d.Pattern != tt.pattern {
				t.Errorf("Pattern = %q, want %q", d.Pattern, tt.pattern)
			}
			if !floatEq(d.MeanDelta, tt.meanDelta) {
				t.Errorf("MeanDelta = %v, want %v", d.MeanDelta, tt.meanDelta)
			}
			if !reflect.DeepEqual(d.RecentDeltas, tt.recent) {
				t.Errorf("RecentDeltas = %v, want %v", d.RecentDeltas, tt.recent)
			}
		})
	}
}

func TestClassifyStability(t *testing.T) {
	tests := []struct {
		name           string
		series         []int
		driftPattern   string
		classification string
		reason         string
	}{
		{"short window", []int{1, 2}, PatternSlowIncrease, StabilityEmerging, "insufficient history"},
		{"high variance wins", []int{0, 10, 0, 10, 0}, PatternNoClearDrift, StabilityVolatile, "high variance"},
		{"upward drift", []int{1, 2, 3}, PatternSlowIncrease, StabilityEmerging, "consistent upward drift"},
		{"downward drift", []int{3, 2, 1}, PatternSlowDecrease, StabilityDeclining, "consistent downward drift"},
		{"quiet window", []int{5, 5, 5}, PatternNoClearDrift, StabilityStable, "no significant drift"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ClassifyStability(tt.series, tt.driftPattern)
			if s.Classification != tt.classification {
				t.Errorf("Classification = %q, want %q", s.Classification, tt.classification)
			}
			if s.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", s.Reason, tt.reason)
			}
		})
	}
}

func windowOf(totals []int) *history.History {
	var h *history.History
	for n, total := range totals {
		h = history.Ingest(h, &delta.Delta{
			RunID:        fmt.Sprintf("run-%d", n+1),
			WorkflowName: "ci",
			CommitSHA:    fmt.Sprintf("sha-%d", n+1),
			TimestampUTC: fmt.Sprintf("2026-02-%02dT00:00:00Z", n+1),
			Changes: delta.Changes{
				TotalSignals: total,
				BySeverity:   map[string]int{"info": total, "low": 0, "medium": 0, "high": 0},
				ByScope:      map[string]int{"guardian": total, "cms": 0, "directive": 0},
			},
		}, 10)
	}
	return h
}

func TestComputeEmptyWindow(t *testing.T) {
	trends := Compute(history.Ingest(nil, nil, 10))

	if trends.EntryCount != 0 {
		t.Errorf("EntryCount = %d, want 0", trends.EntryCount)
	}
	if trends.WindowSize != 10 {
		t.Errorf("WindowSize = %d, want 10", trends.WindowSize)
	}
	if trends.GeneratedAt != nil {
		t.Errorf("GeneratedAt = %v, want nil", *trends.GeneratedAt)
	}
	if trends.RollingAverage.TotalSignals != 0.0 {
		t.Errorf("rolling average = %v, want 0", trends.RollingAverage.TotalSignals)
	}
	if trends.Drift.TotalSignals.Pattern != PatternInsufficientData {
		t.Errorf("drift pattern = %q", trends.Drift.TotalSignals.Pattern)
	}
	if trends.Stability.Classification != StabilityEmerging {
		t.Errorf("stability = %q, want emerging", trends.Stability.Classification)
	}
}

func TestComputeSnapshot(t *testing.T) {
	trends := Compute(windowOf([]int{2, 4, 6}))

	if trends.EntryCount != 3 {
		t.Errorf("EntryCount = %d, want 3", trends.EntryCount)
	}
	if trends.GeneratedAt == nil || *trends.GeneratedAt != "2026-02-03T00:00:00Z" {
		t.Errorf("GeneratedAt = %v, want newest entry timestamp", trends.GeneratedAt)
	}
	if !floatEq(trends.RollingAverage.TotalSignals, 4.0) {
		t.Errorf("rolling average = %v, want 4", trends.RollingAverage.TotalSignals)
	}
	if !floatEq(trends.RollingAverage.BySeverity["info"], 4.0) {
		t.Errorf("info average = %v, want 4", trends.RollingAverage.BySeverity["info"])
	}
	if !floatEq(trends.RollingAverage.BySeverity["high"], 0.0) {
		t.Errorf("high average = %v, want 0", trends.RollingAverage.BySeverity["high"])
	}

	// Every fixed key is present in the per-series maps
	for _, key := range []string{"info", "low", "medium", "high"} {
		if _, ok := trends.Spikes.BySeverity[key]; !ok {
			t.Errorf("Spikes.BySeverity missing %q", key)
		}
	}
	for _, key := range []string{"guardian", "cms", "directive"} {
		if _, ok := trends.Spikes.ByScope[key]; !ok {
			t.Errorf("Spikes.ByScope missing %q", key)
		}
	}

	if trends.Spikes.TotalSignals.Latest != 6 {
		t.Errorf("latest total = %d, want 6", trends.Spikes.TotalSignals.Latest)
	}
	if trends.Drift.TotalSignals.Pattern != PatternSlowIncrease {
		t.Errorf("drift pattern = %q, want slow_increase", trends.Drift.TotalSignals.Pattern)
	}
	if trends.Stability.Classification != StabilityEmerging || trends.Stability.Reason != "consistent upward drift" {
		t.Errorf("stability = %+v", trends.Stability)
	}
}
