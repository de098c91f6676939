// Package trend derives rolling statistics from the history window: per-series
// averages, spike detection, a drift pattern, and a stability classification.
// Everything here is stateless; every run recomputes the whole snapshot from
// the current window, and every threshold is a function of the series itself.
package trend

import (
	"math"

	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/signal"
)

// Drift patterns for the total-signal series.
const (
	PatternInsufficientData = "insufficient_data"
	PatternSuddenChange     = "sudden_change"
	PatternSlowIncrease     = "slow_increase"
	PatternSlowDecrease     = "slow_decrease"
	PatternNoClearDrift     = "no_clear_drift"
)

// Stability classifications.
const (
	StabilityEmerging  = "emerging"
	StabilityVolatile  = "volatile"
	StabilityDeclining = "declining"
	StabilityStable    = "stable"
)

// StabilityClasses returns the fixed classification label order used by
// metric exports.
func StabilityClasses() []string {
	return []string{StabilityStable, StabilityVolatile, StabilityEmerging, StabilityDeclining}
}

// Spike compares the latest value of a series against its rolling average.
type Spike struct {
	Latest    int     `json:"latest"`
	Average   float64 `json:"average"`
	Delta     float64 `json:"delta"`
	Threshold float64 `json:"threshold"`
	Spike     bool    `json:"spike"`
	Direction string  `json:"direction"`
}

// Drift describes how the total-signal series has been moving.
type Drift struct {
	Pattern      string  `json:"pattern"`
	MeanDelta    float64 `json:"mean_delta"`
	RecentDeltas []int   `json:"recent_deltas"`
}

// Stability is the window-level classification with its reason.
type Stability struct {
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// RollingAverage holds the per-series means over the window.
type RollingAverage struct {
	TotalSignals float64            `json:"total_signals"`
	BySeverity   map[string]float64 `json:"by_severity"`
	ByScope      map[string]float64 `json:"by_scope"`
}

// Spikes holds the spike check for every tracked series.
type Spikes struct {
	TotalSignals Spike            `json:"total_signals"`
	BySeverity   map[string]Spike `json:"by_severity"`
	ByScope      map[string]Spike `json:"by_scope"`
}

// DriftSection wraps the drift analysis; only the total series is classified.
type DriftSection struct {
	TotalSignals Drift `json:"total_signals"`
}

// Trends is the persisted trend artifact.
type Trends struct {
	WindowSize     int            `json:"window_size"`
	GeneratedAt    *string        `json:"generated_at"`
	EntryCount     int            `json:"entry_count"`
	RollingAverage RollingAverage `json:"rolling_average"`
	Spikes         Spikes         `json:"spikes"`
	Drift          DriftSection   `json:"drift"`
	Stability      Stability      `json:"stability"`
}

// Average returns the mean of values, 0.0 for an empty series.
func Average(values []int) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0
	for _, value := range values {
		sum += value
	}
	return float64(sum) / float64(len(values))
}

// StdDev returns the sample standard deviation, 0.0 below two values.
func StdDev(values []int) float64 {
	if len(values) < 2 {
		return 0.0
	}
	avg := Average(values)
	variance := 0.0
	for _, value := range values {
		dev := float64(value) - avg
		variance += dev * dev
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// DetectSpike flags the latest value when it deviates from the average by at
// least max(2, 0.5*|average|).
func DetectSpike(latest int, avg float64) Spike {
	threshold := math.Max(2.0, math.Abs(avg)*0.5)
	delta := float64(latest) - avg

	direction := "flat"
	if delta > 0 {
		direction = "increase"
	} else if delta < 0 {
		direction = "decrease"
	}

	return Spike{
		Latest:    latest,
		Average:   round2(avg),
		Delta:     round2(delta),
		Threshold: round2(threshold),
		Spike:     math.Abs(delta) >= threshold,
		Direction: direction,
	}
}

// DetectDrift classifies the run-over-run movement of a series. A sudden
// change in the last step beats any slow pattern; slow patterns require every
// step monotonic in one direction with a mean step magnitude above 0.5.
func DetectDrift(series []int) Drift {
	if len(series) < 2 {
		return Drift{Pattern: PatternInsufficientData, MeanDelta: 0.0, RecentDeltas: []int{}}
	}

	deltas := make([]int, 0, len(series)-1)
	for i := 0; i < len(series)-1; i++ {
		deltas = append(deltas, series[i+1]-series[i])
	}

	meanDelta := Average(deltas)
	monotonicIncrease := true
	monotonicDecrease := true
	for _, d := range deltas {
		if d < 0 {
			monotonicIncrease = false
		}
		if d > 0 {
			monotonicDecrease = false
		}
	}

	suddenThreshold := math.Max(3.0, math.Abs(Average(series)))
	suddenChange := math.Abs(float64(deltas[len(deltas)-1])) >= suddenThreshold

	pattern := PatternNoClearDrift
	switch {
	case suddenChange:
		pattern = PatternSuddenChange
	case monotonicIncrease && meanDelta > 0.5:
		pattern = PatternSlowIncrease
	case monotonicDecrease && meanDelta < -0.5:
		pattern = PatternSlowDecrease
	}

	recent := deltas
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	return Drift{
		Pattern:      pattern,
		MeanDelta:    round2(meanDelta),
		RecentDeltas: recent,
	}
}

// ClassifyStability maps the total series and its drift pattern onto a
// stability classification. High variance wins over any drift pattern.
func ClassifyStability(series []int, driftPattern string) Stability {
	if len(series) < 3 {
		return Stability{Classification: StabilityEmerging, Reason: "insufficient history"}
	}

	avg := Average(series)
	if StdDev(series) > math.Max(2.0, math.Abs(avg)*0.75) {
		return Stability{Classification: StabilityVolatile, Reason: "high variance"}
	}

	switch driftPattern {
	case PatternSlowIncrease:
		return Stability{Classification: StabilityEmerging, Reason: "consistent upward drift"}
	case PatternSlowDecrease:
		return Stability{Classification: StabilityDeclining, Reason: "consistent downward drift"}
	}
	return Stability{Classification: StabilityStable, Reason: "no significant drift"}
}

// Compute derives the full trend snapshot from the history window.
func Compute(h *history.History) *Trends {
	if h == nil {
		h = &history.History{WindowSize: config.DefaultWindowSize, Entries: []history.Entry{}}
	}

	windowSize := h.WindowSize
	if windowSize <= 0 {
		windowSize = config.DefaultWindowSize
	}

	totalSeries := h.TotalSeries()

	severityAverages := map[string]float64{}
	severitySpikes := map[string]Spike{}
	for _, key := range signal.SeverityKeys() {
		series := h.SeveritySeries(key)
		severityAverages[key] = round2(Average(series))
		severitySpikes[key] = DetectSpike(latest(series), Average(series))
	}

	scopeAverages := map[string]float64{}
	scopeSpikes := map[string]Spike{}
	for _, key := range signal.ScopeKeys() {
		series := h.ScopeSeries(key)
		scopeAverages[key] = round2(Average(series))
		scopeSpikes[key] = DetectSpike(latest(series), Average(series))
	}

	drift := DetectDrift(totalSeries)
	stability := ClassifyStability(totalSeries, drift.Pattern)

	return &Trends{
		WindowSize:  windowSize,
		GeneratedAt: h.GeneratedAt,
		EntryCount:  len(h.Entries),
		RollingAverage: RollingAverage{
			TotalSignals: round2(Average(totalSeries)),
			BySeverity:   severityAverages,
			ByScope:      scopeAverages,
		},
		Spikes: Spikes{
			TotalSignals: DetectSpike(latest(totalSeries), Average(totalSeries)),
			BySeverity:   severitySpikes,
			ByScope:      scopeSpikes,
		},
		Drift:     DriftSection{TotalSignals: drift},
		Stability: stability,
	}
}

func latest(series []int) int {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
