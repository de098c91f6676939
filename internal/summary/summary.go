// Package summary compacts history, trends, anomaly findings, and
// annotations into one long-horizon view. The summary is fully recomputed
// every run and identified by a content-derived id: identical inputs always
// produce an identical summary, byte for byte.
package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sigwatch/sigwatch/internal/annotation"
	"github.com/sigwatch/sigwatch/internal/anomaly"
	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/trend"
)

// Horizon describes how much history the summary covers.
type Horizon struct {
	NumberOfRuns int    `json:"number_of_runs"`
	TimeSpan     string `json:"time_span"`
}

// StabilityAssessment mirrors the trend classification into the summary.
type StabilityAssessment struct {
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// HumanContext carries annotation facts alongside the computed values
// without altering any of them.
type HumanContext struct {
	AnnotationCount  int    `json:"annotation_count"`
	LatestAnnotation string `json:"latest_annotation"`
}

// Summary is the persisted canonical summary artifact.
type Summary struct {
	SummaryID           string              `json:"summary_id"`
	GeneratedAt         string              `json:"generated_at"`
	Horizon             Horizon             `json:"horizon"`
	DominantTrends      []string            `json:"dominant_trends"`
	RecurringAnomalies  []string            `json:"recurring_anomalies"`
	StabilityAssessment StabilityAssessment `json:"stability_assessment"`
	NotableShifts       []string            `json:"notable_shifts"`
	HumanContext        HumanContext        `json:"human_context"`
	ConfidenceLevel     string              `json:"confidence_level"`
}

// Build compacts the four source artifacts into one summary. Nil sources are
// treated as empty; the summary never fails, it just reports less.
func Build(h *history.History, t *trend.Trends, report *anomaly.Report, annotations []annotation.Annotation) *Summary {
	if h == nil {
		h = &history.History{Entries: []history.Entry{}}
	}

	entryCount := len(h.Entries)

	annotationCount := len(annotations)
	latestAnnotation := ""
	for _, a := range annotations {
		if a.TimestampUTC > latestAnnotation {
			latestAnnotation = a.TimestampUTC
		}
	}

	candidates := []string{historyGeneratedAt(h), trendsGeneratedAt(t), latestAnnotation, reportGeneratedAt(report)}

	stability := StabilityAssessment{Classification: "n/a", Reason: "n/a"}
	if t != nil {
		if t.Stability.Classification != "" {
			stability.Classification = t.Stability.Classification
		}
		if t.Stability.Reason != "" {
			stability.Reason = t.Stability.Reason
		}
	}

	if latestAnnotation == "" {
		latestAnnotation = "n/a"
	}

	return &Summary{
		SummaryID:   ComputeSummaryID(h, t, report, annotations),
		GeneratedAt: pickGeneratedAt(candidates),
		Horizon: Horizon{
			NumberOfRuns: entryCount,
			TimeSpan:     timeSpan(h.Entries),
		},
		DominantTrends:      dominantTrends(t, entryCount),
		RecurringAnomalies:  recurringAnomalies(report),
		StabilityAssessment: stability,
		NotableShifts:       notableShifts(t),
		HumanContext: HumanContext{
			AnnotationCount:  annotationCount,
			LatestAnnotation: latestAnnotation,
		},
		ConfidenceLevel: ConfidenceLevel(entryCount),
	}
}

// ComputeSummaryID hashes the canonical serialization of the four source
// artifacts, concatenated in fixed order. Field order in memory never
// matters; only logical content does.
func ComputeSummaryID(h *history.History, t *trend.Trends, report *anomaly.Report, annotations []annotation.Annotation) string {
	parts := []any{h, t, report, annotations}

	hasher := sha256.New()
	for _, part := range parts {
		canonical, err := artifact.Canonical(part)
		if err != nil {
			continue
		}
		hasher.Write(canonical)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	return "canonical-" + digest[:12]
}

// ConfidenceLevel gates summary confidence on the number of observed runs.
func ConfidenceLevel(runCount int) string {
	if runCount >= 8 {
		return "high"
	}
	if runCount >= 3 {
		return "medium"
	}
	return "low"
}

func timeSpan(entries []history.Entry) string {
	if len(entries) == 0 {
		return "n/a"
	}
	start := entries[0].TimestampUTC
	if start == "" {
		start = "n/a"
	}
	end := entries[len(entries)-1].TimestampUTC
	if end == "" {
		end = "n/a"
	}
	if start == "n/a" && end == "n/a" {
		return "n/a"
	}
	return start + " → " + end
}

// pickGeneratedAt takes the maximum usable timestamp among the candidates.
// Placeholders never win over real timestamps.
func pickGeneratedAt(candidates []string) string {
	best := ""
	for _, value := range candidates {
		if value == "" || value == "unknown" || value == "n/a" {
			continue
		}
		if value > best {
			best = value
		}
	}
	if best == "" {
		return "n/a"
	}
	return best
}

func dominantTrends(t *trend.Trends, entryCount int) []string {
	if entryCount < 2 {
		return []string{"Insufficient history for long-horizon trends."}
	}

	total := 0.0
	classification := "n/a"
	driftPattern := ""
	if t != nil {
		total = t.RollingAverage.TotalSignals
		if t.Stability.Classification != "" {
			classification = t.Stability.Classification
		}
		driftPattern = t.Drift.TotalSignals.Pattern
	}

	trends := []string{
		"Rolling average total signals: " + formatNumber(total),
		"Stability classification: " + classification,
	}
	if driftPattern != "" {
		trends = append(trends, "Drift pattern: "+driftPattern)
	}
	return trends
}

// recurringAnomalies lists finding titles, deduplicated case-insensitively
// in first-seen order.
func recurringAnomalies(report *anomaly.Report) []string {
	titles := []string{}
	if report == nil {
		return titles
	}
	seen := map[string]bool{}
	for _, finding := range report.Findings {
		key := strings.ToLower(finding.Title)
		if finding.Title == "" || seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, finding.Title)
	}
	return titles
}

func notableShifts(t *trend.Trends) []string {
	shifts := []string{}
	if t != nil {
		if t.Drift.TotalSignals.Pattern == trend.PatternSuddenChange {
			shifts = append(shifts, "Sudden change detected in total signals.")
		}
		if t.Spikes.TotalSignals.Spike {
			shifts = append(shifts, "Spike in total signals ("+t.Spikes.TotalSignals.Direction+
				", delta "+formatNumber(t.Spikes.TotalSignals.Delta)+").")
		}
		for _, key := range signal.SeverityKeys() {
			if s, ok := t.Spikes.BySeverity[key]; ok && s.Spike {
				shifts = append(shifts, "Spike in "+key+" severity signals ("+s.Direction+").")
			}
		}
		for _, key := range signal.ScopeKeys() {
			if s, ok := t.Spikes.ByScope[key]; ok && s.Spike {
				shifts = append(shifts, "Spike in "+key+" scope signals ("+s.Direction+").")
			}
		}
	}
	if len(shifts) == 0 {
		return []string{"No notable shifts detected."}
	}
	return shifts
}

// formatNumber renders a float the shortest way that round-trips: whole
// numbers drop the decimal point.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func historyGeneratedAt(h *history.History) string {
	if h == nil || h.GeneratedAt == nil {
		return ""
	}
	return *h.GeneratedAt
}

func trendsGeneratedAt(t *trend.Trends) string {
	if t == nil || t.GeneratedAt == nil {
		return ""
	}
	return *t.GeneratedAt
}

func reportGeneratedAt(r *anomaly.Report) string {
	if r == nil || r.GeneratedAt == nil {
		return ""
	}
	return *r.GeneratedAt
}
