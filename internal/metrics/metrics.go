// Package metrics renders the derived artifacts as bounded-cardinality
// metrics: a Prometheus text exposition, a structured JSON mirror carrying
// the same values, and a manifest declaring sources, redaction rules, and
// cardinality bounds. Export is metrics-only: nothing here controls or
// mutates anything.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/sigwatch/sigwatch/internal/annotation"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/summary"
	"github.com/sigwatch/sigwatch/internal/trend"
)

// SchemaVersion identifies the export layout declared in the manifest.
const SchemaVersion = "v1"

// Namespace prefixes every exported metric name.
const Namespace = "sigwatch"

// Inputs collects everything the exporter reads. Nil artifacts export as
// zeros; Summary and Annotations stay nil when their config toggle is off.
type Inputs struct {
	Index       *index.Index
	Delta       *delta.Delta
	History     *history.History
	Trends      *trend.Trends
	Summary     *summary.Summary
	Annotations []*annotation.Annotation

	// TopSignalTypes caps the signal-type label dimension
	TopSignalTypes int

	// Sources are the artifact paths recorded in the manifest, in read order
	Sources []string
	// ExportedFiles are the output paths recorded in the manifest
	ExportedFiles []string
}

// Metadata identifies the run the export describes.
type Metadata struct {
	RunID        string `json:"run_id"`
	WorkflowName string `json:"workflow_name"`
	CommitSHA    string `json:"commit_sha"`
	TimestampUTC string `json:"timestamp_utc"`
}

// LabeledCounts is the labeled-dimension half of the JSON mirror. Every map
// is restricted to its fixed key set plus the "unknown" fallback; the
// signal-type map is capped to the top-N plus "other".
type LabeledCounts struct {
	SignalsBySeverity        map[string]int     `json:"signals_by_severity"`
	SignalsByScope           map[string]int     `json:"signals_by_scope"`
	SignalsByType            map[string]int     `json:"signals_by_type"`
	DeltaBySeverity          map[string]int     `json:"delta_by_severity"`
	DeltaByScope             map[string]int     `json:"delta_by_scope"`
	RollingAverageBySeverity map[string]float64 `json:"rolling_average_by_severity"`
	RollingAverageByScope    map[string]float64 `json:"rolling_average_by_scope"`
	StabilityClassification  map[string]int     `json:"stability_classification"`
	StabilityAssessment      map[string]int     `json:"stability_assessment"`
	ConfidenceLevel          map[string]int     `json:"confidence_level"`
	AnnotationsByIntent      map[string]int     `json:"annotations_by_intent"`
	AnnotationsByConfidence  map[string]int     `json:"annotations_by_confidence"`
}

// Mirror is the structured JSON equivalent of the text exposition.
type Mirror struct {
	Metadata      Metadata           `json:"metadata"`
	Gauges        map[string]float64 `json:"gauges"`
	LabeledCounts LabeledCounts      `json:"labeled_counts"`
}

// CardinalityBounds declares the hard caps on every label dimension.
type CardinalityBounds struct {
	SignalTypeTopN int      `json:"signal_type_top_n"`
	Severity       []string `json:"severity"`
	Scope          []string `json:"scope"`
	Class          []string `json:"class"`
	Confidence     []string `json:"confidence"`
	Intent         []string `json:"intent"`
	FallbackBucket string   `json:"fallback_bucket"`
}

// Manifest describes the export for downstream consumers.
type Manifest struct {
	SchemaVersion     string            `json:"schema_version"`
	ExportedFiles     []string          `json:"exported_files"`
	DataSources       []string          `json:"data_sources"`
	RedactionRules    []string          `json:"redaction_rules"`
	CardinalityBounds CardinalityBounds `json:"cardinality_bounds"`
}

// Export is the full exporter output.
type Export struct {
	Prom     string
	Mirror   *Mirror
	Manifest *Manifest
}

// Build renders the inputs into all three export forms. The only error path
// is the exposition encoder; the mirror and manifest are always produced.
func Build(in Inputs) (*Export, error) {
	idx := in.Index
	if idx == nil {
		idx = &index.Index{}
	}
	d := in.Delta
	if d == nil {
		d = &delta.Delta{}
	}
	t := in.Trends
	if t == nil {
		t = &trend.Trends{}
	}

	meta := pickMetadata(d, t, in.Summary, in.History)

	total := idx.TotalSignals
	bySeverity := normalizeCounts(idx.BySeverity, signal.SeverityKeys())
	byScope := normalizeCounts(idx.ByScope, signal.ScopeKeys())
	byType := TopSignalTypes(idx.ByType, in.TopSignalTypes, total)

	deltaBySeverity := normalizeCounts(d.Changes.BySeverity, signal.SeverityKeys())
	deltaByScope := normalizeCounts(d.Changes.ByScope, signal.ScopeKeys())

	bootstrap := 0.0
	if d.Bootstrap {
		bootstrap = 1.0
	}

	stabilityClass := normalizeLabel(t.Stability.Classification, trend.StabilityClasses())

	annotationsByIntent := countAnnotationLabels(in.Annotations, func(a *annotation.Annotation) string {
		return string(a.Intent)
	}, annotation.IntentKeys())
	annotationsByConfidence := countAnnotationLabels(in.Annotations, func(a *annotation.Annotation) string {
		return string(a.Confidence)
	}, annotation.ConfidenceKeys())

	gauges := map[string]float64{
		"total_signals":                  float64(total),
		"delta_total_signals":            float64(d.Changes.TotalSignals),
		"new_signal_types_count":         float64(len(d.Changes.NewSignalTypes)),
		"disappeared_signal_types_count": float64(len(d.Changes.RemovedSignalTypes)),
		"bootstrap":                      bootstrap,
		"rolling_average_total_signals":  t.RollingAverage.TotalSignals,
		"volatility_mean_delta":          t.Drift.TotalSignals.MeanDelta,
		"volatility_spike_delta":         t.Spikes.TotalSignals.Delta,
		"annotations_total_count":        float64(len(in.Annotations)),
	}

	stabilityAssessment := map[string]int{}
	confidenceLevel := map[string]int{}
	horizonRuns := 0
	recurringCount := 0
	if in.Summary != nil {
		horizonRuns = in.Summary.Horizon.NumberOfRuns
		recurringCount = len(in.Summary.RecurringAnomalies)
		stabilityAssessment[normalizeLabel(in.Summary.StabilityAssessment.Classification, trend.StabilityClasses())] = 1
		confidenceLevel[normalizeLabel(in.Summary.ConfidenceLevel, annotation.ConfidenceKeys())] = 1
	}
	gauges["horizon_runs"] = float64(horizonRuns)
	gauges["recurring_anomalies_count"] = float64(recurringCount)

	mirror := &Mirror{
		Metadata: meta,
		Gauges:   gauges,
		LabeledCounts: LabeledCounts{
			SignalsBySeverity:        bySeverity,
			SignalsByScope:           byScope,
			SignalsByType:            byType,
			DeltaBySeverity:          deltaBySeverity,
			DeltaByScope:             deltaByScope,
			RollingAverageBySeverity: normalizeAverages(t.RollingAverage.BySeverity, signal.SeverityKeys()),
			RollingAverageByScope:    normalizeAverages(t.RollingAverage.ByScope, signal.ScopeKeys()),
			StabilityClassification:  map[string]int{stabilityClass: 1},
			StabilityAssessment:      stabilityAssessment,
			ConfidenceLevel:          confidenceLevel,
			AnnotationsByIntent:      annotationsByIntent,
			AnnotationsByConfidence:  annotationsByConfidence,
		},
	}

	manifest := &Manifest{
		SchemaVersion: SchemaVersion,
		ExportedFiles: in.ExportedFiles,
		DataSources:   in.Sources,
		RedactionRules: []string{
			"metrics-only, no control",
			"no raw narrative text",
			"no free text in labels",
			"no file paths in labels",
			"no secrets",
		},
		CardinalityBounds: CardinalityBounds{
			SignalTypeTopN: in.TopSignalTypes,
			Severity:       signal.SeverityKeys(),
			Scope:          signal.ScopeKeys(),
			Class:          trend.StabilityClasses(),
			Confidence:     annotation.ConfidenceKeys(),
			Intent:         annotation.IntentKeys(),
			FallbackBucket: "unknown",
		},
	}

	prom, err := renderExposition(mirror, in.Summary != nil)
	if err != nil {
		return &Export{Mirror: mirror, Manifest: manifest}, err
	}

	return &Export{Prom: prom, Mirror: mirror, Manifest: manifest}, nil
}

// renderExposition builds a dedicated registry, sets every gauge from the
// mirror values, and encodes the Prometheus text format.
func renderExposition(m *Mirror, includeSummary bool) (string, error) {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	gaugeVec := func(name, help, label string) *prometheus.GaugeVec {
		v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help}, []string{label})
		reg.MustRegister(v)
		return v
	}
	setCounts := func(v *prometheus.GaugeVec, counts map[string]int) {
		for key, count := range counts {
			v.WithLabelValues(key).Set(float64(count))
		}
	}
	setAverages := func(v *prometheus.GaugeVec, averages map[string]float64) {
		for key, avg := range averages {
			v.WithLabelValues(key).Set(avg)
		}
	}

	gauge("total_signals", "Total signals observed in the index.").Set(m.Gauges["total_signals"])
	setCounts(gaugeVec("signals_by_severity", "Signals observed, by severity.", "severity"), m.LabeledCounts.SignalsBySeverity)
	setCounts(gaugeVec("signals_by_scope", "Signals observed, by scope.", "scope"), m.LabeledCounts.SignalsByScope)
	setCounts(gaugeVec("signals_by_signal_type", "Signals observed, by signal type (top-N plus other).", "signal_type"), m.LabeledCounts.SignalsByType)

	gauge("delta_total_signals", "Run-over-run change in total signals.").Set(m.Gauges["delta_total_signals"])
	setCounts(gaugeVec("delta_by_severity", "Run-over-run change, by severity.", "severity"), m.LabeledCounts.DeltaBySeverity)
	setCounts(gaugeVec("delta_by_scope", "Run-over-run change, by scope.", "scope"), m.LabeledCounts.DeltaByScope)
	gauge("new_signal_types_count", "Signal types that appeared in the latest run.").Set(m.Gauges["new_signal_types_count"])
	gauge("disappeared_signal_types_count", "Signal types that disappeared in the latest run.").Set(m.Gauges["disappeared_signal_types_count"])
	gauge("bootstrap", "1 when the latest delta had no previous index.").Set(m.Gauges["bootstrap"])

	gauge("rolling_average_total_signals", "Rolling average of total signal changes.").Set(m.Gauges["rolling_average_total_signals"])
	setAverages(gaugeVec("rolling_average_by_severity", "Rolling average of signal changes, by severity.", "severity"), m.LabeledCounts.RollingAverageBySeverity)
	setAverages(gaugeVec("rolling_average_by_scope", "Rolling average of signal changes, by scope.", "scope"), m.LabeledCounts.RollingAverageByScope)

	setCounts(gaugeVec("stability_classification", "One-hot stability classification of the window.", "class"), m.LabeledCounts.StabilityClassification)
	gauge("volatility_mean_delta", "Mean run-over-run step of the total series.").Set(m.Gauges["volatility_mean_delta"])
	gauge("volatility_spike_delta", "Deviation of the latest total change from its rolling average.").Set(m.Gauges["volatility_spike_delta"])

	if includeSummary {
		gauge("horizon_runs", "Runs covered by the canonical summary.").Set(m.Gauges["horizon_runs"])
		setCounts(gaugeVec("stability_assessment", "One-hot stability assessment from the canonical summary.", "class"), m.LabeledCounts.StabilityAssessment)
		gauge("recurring_anomalies_count", "Distinct recurring anomaly titles in the canonical summary.").Set(m.Gauges["recurring_anomalies_count"])
		setCounts(gaugeVec("confidence_level", "One-hot confidence level of the canonical summary.", "confidence"), m.LabeledCounts.ConfidenceLevel)
	}

	gauge("annotations_total_count", "Total annotations recorded.").Set(m.Gauges["annotations_total_count"])
	setCounts(gaugeVec("annotations_by_intent", "Annotations recorded, by intent.", "intent"), m.LabeledCounts.AnnotationsByIntent)
	setCounts(gaugeVec("annotations_by_confidence", "Annotations recorded, by confidence.", "confidence"), m.LabeledCounts.AnnotationsByConfidence)

	families, err := reg.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return "", fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return buf.String(), nil
}

// TopSignalTypes caps the one unbounded dimension. Types are ranked by count
// descending, name ascending; everything past the limit folds into an "other"
// bucket so the exported counts still sum to the true total. An empty type
// map with a positive total exports the whole total as "unknown".
func TopSignalTypes(byType map[string]int, limit, total int) map[string]int {
	if len(byType) == 0 {
		if total > 0 {
			return map[string]int{"unknown": total}
		}
		return map[string]int{}
	}

	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(byType))
	for name, count := range byType {
		entries = append(entries, entry{name: name, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	if limit < 0 {
		limit = 0
	}
	result := map[string]int{}
	other := 0
	for i, e := range entries {
		if i < limit {
			result[e.name] = e.count
			continue
		}
		other += e.count
	}
	if other != 0 {
		result["other"] = other
	}
	return result
}

// normalizeLabel restricts a label value to its allowed set, falling back to
// "unknown" for anything else, including the empty string.
func normalizeLabel(value string, allowed []string) string {
	for _, candidate := range allowed {
		if value == candidate {
			return value
		}
	}
	return "unknown"
}

// normalizeCounts folds arbitrary count keys onto the fixed key set plus the
// unknown bucket. Unexpected keys pool their counts under "unknown".
func normalizeCounts(source map[string]int, allowed []string) map[string]int {
	counts := make(map[string]int, len(allowed)+1)
	for _, key := range allowed {
		counts[key] = 0
	}
	counts["unknown"] = 0
	for key, value := range source {
		counts[normalizeLabel(key, allowed)] += value
	}
	return counts
}

// normalizeAverages projects the rolling averages onto the fixed key set.
func normalizeAverages(source map[string]float64, allowed []string) map[string]float64 {
	averages := make(map[string]float64, len(allowed))
	for _, key := range allowed {
		averages[key] = source[key]
	}
	return averages
}

func countAnnotationLabels(annotations []*annotation.Annotation, extract func(*annotation.Annotation) string, allowed []string) map[string]int {
	counts := make(map[string]int, len(allowed)+1)
	for _, key := range allowed {
		counts[key] = 0
	}
	counts["unknown"] = 0
	for _, a := range annotations {
		if a == nil {
			continue
		}
		counts[normalizeLabel(extract(a), allowed)]++
	}
	return counts
}

// pickMetadata resolves run identity (delta first, then environment, then
// "unknown") and the newest usable artifact timestamp (now when none).
func pickMetadata(d *delta.Delta, t *trend.Trends, s *summary.Summary, h *history.History) Metadata {
	meta := Metadata{
		RunID:        firstValue(d.RunID, os.Getenv("GITHUB_RUN_ID"), os.Getenv("RUN_ID")),
		WorkflowName: firstValue(d.WorkflowName, os.Getenv("GITHUB_WORKFLOW"), os.Getenv("WORKFLOW_NAME")),
		CommitSHA:    firstValue(d.CommitSHA, os.Getenv("GITHUB_SHA"), os.Getenv("COMMIT_SHA")),
	}

	candidates := []string{d.TimestampUTC}
	if t.GeneratedAt != nil {
		candidates = append(candidates, *t.GeneratedAt)
	}
	if s != nil {
		candidates = append(candidates, s.GeneratedAt)
	}
	if h != nil && h.GeneratedAt != nil {
		candidates = append(candidates, *h.GeneratedAt)
	}

	best := ""
	for _, candidate := range candidates {
		if candidate == "" || candidate == "unknown" || candidate == "n/a" {
			continue
		}
		if candidate > best {
			best = candidate
		}
	}
	if best == "" {
		best = time.Now().UTC().Format(signal.TimeLayout)
	}
	meta.TimestampUTC = best
	return meta
}

func firstValue(values ...string) string {
	for _, value := range values {
		if value != "" && value != "unknown" {
			return value
		}
	}
	return "unknown"
}
