// Package anomaly turns trend and history signals into explained findings.
// Each finding carries a title, a time window, an explanation, supporting
// evidence, and a confidence rating. The structured report is the persisted
// artifact; the markdown narrative is a derived, write-only rendering that
// nothing downstream parses.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/trend"
)

// Finding types.
const (
	TypeSpike         = "spike"
	TypeReversal      = "reversal"
	TypeEmergence     = "emergence"
	TypeDisappearance = "disappearance"
	TypeVolatility    = "volatility"
	TypeDisruption    = "disruption"
)

// Finding is one explained anomaly.
type Finding struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Window      string   `json:"window"`
	Explanation string   `json:"explanation"`
	Evidence    []string `json:"evidence"`
	Confidence  string   `json:"confidence"`
}

// Report is the persisted anomaly artifact. Findings are fully recomputed
// and overwritten every run; this is a reading of the window, not a ledger.
type Report struct {
	WindowSize      int       `json:"window_size"`
	GeneratedAt     *string   `json:"generated_at"`
	EntriesObserved int       `json:"entries_observed"`
	Findings        []Finding `json:"findings"`
}

// Detect derives findings from the history window and the trend snapshot.
// Findings appear in a fixed order: spikes (total, severities, scopes), then
// reversal, emergence, disappearance, volatility, disruption. A nil trends
// snapshot simply contributes no spike findings.
func Detect(h *history.History, t *trend.Trends) *Report {
	if h == nil {
		h = &history.History{WindowSize: config.DefaultWindowSize, Entries: []history.Entry{}}
	}

	windowSize := h.WindowSize
	if windowSize <= 0 {
		windowSize = config.DefaultWindowSize
	}
	entryCount := len(h.Entries)
	totalSeries := h.TotalSeries()

	findings := []Finding{}

	if t != nil {
		if t.Spikes.TotalSignals.Spike {
			findings = append(findings, spikeFinding("total signals", "", t.Spikes.TotalSignals, entryCount))
		}
		for _, key := range signal.SeverityKeys() {
			if s, ok := t.Spikes.BySeverity[key]; ok && s.Spike {
				findings = append(findings, spikeFinding(key, "severity", s, entryCount))
			}
		}
		for _, key := range signal.ScopeKeys() {
			if s, ok := t.Spikes.ByScope[key]; ok && s.Spike {
				findings = append(findings, spikeFinding(key, "scope", s, entryCount))
			}
		}
	}

	if rev := detectReversal(totalSeries); rev != nil {
		magnitude := math.Max(math.Abs(float64(rev.previous)), math.Abs(float64(rev.latest)))
		findings = append(findings, Finding{
			Title:  "Rapid trend reversal in total signals",
			Type:   TypeReversal,
			Window: "2 runs",
			Explanation: "The total signal change flipped direction between the last two runs, " +
				"indicating a rapid reversal in recent movement.",
			Evidence: []string{
				"Previous change: " + strconv.Itoa(rev.previous),
				"Latest change: " + strconv.Itoa(rev.latest),
				"Reversal threshold: " + formatFloat(rev.threshold),
			},
			Confidence: confidenceFromMagnitude(magnitude, rev.threshold, entryCount),
		})
	}

	if latest := h.Latest(); latest != nil && latest.Delta != nil {
		if newTypes := sortedUnique(latest.Delta.Changes.NewSignalTypes); len(newTypes) > 0 {
			findings = append(findings, Finding{
				Title:       "Emerging signal types",
				Type:        TypeEmergence,
				Window:      "1 run",
				Explanation: "New signal types appeared in the most recent run.",
				Evidence:    []string{"New types: " + strings.Join(newTypes, ", ")},
				Confidence:  typeChangeConfidence(entryCount),
			})
		}
		if removedTypes := sortedUnique(latest.Delta.Changes.RemovedSignalTypes); len(removedTypes) > 0 {
			findings = append(findings, Finding{
				Title:       "Disappearing signal types",
				Type:        TypeDisappearance,
				Window:      "1 run",
				Explanation: "Some signal types present before are absent in the latest run.",
				Evidence:    []string{"Removed types: " + strings.Join(removedTypes, ", ")},
				Confidence:  typeChangeConfidence(entryCount),
			})
		}
	}

	if vol := detectVolatility(totalSeries, entryCount); vol != nil {
		confidence := "low"
		if entryCount >= 5 {
			confidence = "medium"
		}
		findings = append(findings, Finding{
			Title:  "Sustained volatility in total signals",
			Type:   TypeVolatility,
			Window: fmt.Sprintf("%d runs", entryCount),
			Explanation: "Total signal changes have shown elevated variability across multiple runs, " +
				"indicating sustained volatility.",
			Evidence: []string{
				"Average change: " + formatFloat(vol.average),
				"Standard deviation: " + formatFloat(vol.deviation),
				"Volatility threshold: " + formatFloat(vol.threshold),
			},
			Confidence: confidence,
		})
	}

	if dis := detectDisruption(totalSeries); dis != nil {
		findings = append(findings, Finding{
			Title:  "Stability followed by disruption",
			Type:   TypeDisruption,
			Window: fmt.Sprintf("%d runs", entryCount),
			Explanation: "A previously steady pattern shifted sharply in the most recent run, " +
				"indicating disruption after prolonged stability.",
			Evidence: []string{
				"Baseline average: " + formatFloat(dis.baselineAverage),
				"Baseline deviation: " + formatFloat(dis.baselineDeviation),
				"Latest change: " + strconv.Itoa(dis.latest),
				"Disruption threshold: " + formatFloat(dis.threshold),
			},
			Confidence: "medium",
		})
	}

	return &Report{
		WindowSize:      windowSize,
		GeneratedAt:     h.GeneratedAt,
		EntriesObserved: entryCount,
		Findings:        findings,
	}
}

func spikeFinding(key, dimensionLabel string, s trend.Spike, entryCount int) Finding {
	prefix := ""
	if dimensionLabel != "" {
		prefix = dimensionLabel + " "
	}

	descriptor := "flat"
	if s.Direction == "increase" {
		descriptor = "increase"
	} else if s.Direction == "decrease" {
		descriptor = "decrease"
	}

	return Finding{
		Title:  "Spike in " + prefix + key,
		Type:   TypeSpike,
		Window: fmt.Sprintf("%d runs", entryCount),
		Explanation: fmt.Sprintf("The latest %s%s count shows a sudden %s compared to "+
			"the recent rolling average.", prefix, key, descriptor),
		Evidence: []string{
			"Latest: " + strconv.Itoa(s.Latest),
			"Rolling average: " + formatFloat(s.Average),
			"Delta: " + formatFloat(s.Delta),
			"Spike threshold: " + formatFloat(s.Threshold),
		},
		Confidence: confidenceFromMagnitude(math.Abs(s.Delta), s.Threshold, entryCount),
	}
}

// confidenceFromMagnitude rates a finding: short windows are always low
// confidence, and high confidence needs the magnitude to clear one and a
// half thresholds.
func confidenceFromMagnitude(magnitude, threshold float64, entryCount int) string {
	if entryCount < 3 {
		return "low"
	}
	if threshold > 0 && magnitude >= threshold*1.5 {
		return "high"
	}
	return "medium"
}

func typeChangeConfidence(entryCount int) string {
	if entryCount >= 2 {
		return "medium"
	}
	return "low"
}

type reversal struct {
	previous  int
	latest    int
	threshold float64
}

// detectReversal fires when the last two deltas are both nonzero with
// opposite signs.
func detectReversal(series []int) *reversal {
	if len(series) < 2 {
		return nil
	}
	previous := series[len(series)-2]
	latest := series[len(series)-1]
	if previous == 0 || latest == 0 {
		return nil
	}
	if (previous > 0 && latest < 0) || (previous < 0 && latest > 0) {
		avg := trend.Average(series)
		return &reversal{
			previous:  previous,
			latest:    latest,
			threshold: math.Max(2.0, math.Abs(avg)*0.5),
		}
	}
	return nil
}

type volatility struct {
	average   float64
	deviation float64
	threshold float64
}

func detectVolatility(series []int, entryCount int) *volatility {
	if entryCount < 3 {
		return nil
	}
	avg := trend.Average(series)
	deviation := trend.StdDev(series)
	threshold := math.Max(2.0, math.Abs(avg)*0.75)
	if deviation > threshold {
		return &volatility{average: avg, deviation: deviation, threshold: threshold}
	}
	return nil
}

type disruption struct {
	baselineAverage   float64
	baselineDeviation float64
	latest            int
	threshold         float64
}

// detectDisruption compares the latest value against a low-variance baseline
// formed by every earlier entry.
func detectDisruption(series []int) *disruption {
	if len(series) < 4 {
		return nil
	}
	baseline := series[:len(series)-1]
	latest := series[len(series)-1]
	avg := trend.Average(baseline)
	deviation := trend.StdDev(baseline)
	threshold := math.Max(2.0, math.Abs(avg)*0.75)
	if deviation <= threshold*0.5 && math.Abs(float64(latest)-avg) >= threshold {
		return &disruption{
			baselineAverage:   avg,
			baselineDeviation: deviation,
			latest:            latest,
			threshold:         threshold,
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func sortedUnique(values []string) []string {
	seen := map[string]bool{}
	unique := []string{}
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			unique = append(unique, value)
		}
	}
	sort.Strings(unique)
	return unique
}
