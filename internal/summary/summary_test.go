package summary

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sigwatch/sigwatch/internal/annotation"
	"github.com/sigwatch/sigwatch/internal/anomaly"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/trend"
)

func makeWindow(totals []int) *history.History {
	var h *history.History
	for n, total := range totals {
		h = history.Ingest(h, &delta.Delta{
			RunID:        fmt.Sprintf("run-%d", n+1),
			WorkflowName: "ci",
			CommitSHA:    fmt.Sprintf("sha-%d", n+1),
			TimestampUTC: fmt.Sprintf("2026-03-%02dT00:00:00Z", n+1),
			Changes: delta.Changes{
				TotalSignals: total,
				BySeverity:   map[string]int{"info": 0, "low": 0, "medium": 0, "high": 0},
				ByScope:      map[string]int{"guardian": 0, "cms": 0, "directive": 0},
			},
		}, 10)
	}
	return h
}

func makeAnnotation(ts string) annotation.Annotation {
	return annotation.Annotation{
		ID:                 "ann-" + ts,
		Author:             "reviewer",
		ReferenceType:      annotation.ReferenceTrend,
		ReferenceWindow:    "last 4 runs",
		InterpretationText: "expected surge from rollout",
		Confidence:         annotation.ConfidenceMedium,
		Intent:             annotation.IntentExplanation,
		TimestampUTC:       ts,
	}
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil, nil, nil, nil)

	if s.Horizon.NumberOfRuns != 0 {
		t.Errorf("NumberOfRuns = %d, want 0", s.Horizon.NumberOfRuns)
	}
	if s.Horizon.TimeSpan != "n/a" {
		t.Errorf("TimeSpan = %q, want n/a", s.Horizon.TimeSpan)
	}
	if s.GeneratedAt != "n/a" {
		t.Errorf("GeneratedAt = %q, want n/a", s.GeneratedAt)
	}
	if len(s.DominantTrends) != 1 || s.DominantTrends[0] != "Insufficient history for long-horizon trends." {
		t.Errorf("DominantTrends = %v", s.DominantTrends)
	}
	if len(s.RecurringAnomalies) != 0 {
		t.Errorf("RecurringAnomalies = %v, want none", s.RecurringAnomalies)
	}
	if s.StabilityAssessment.Classification != "n/a" || s.StabilityAssessment.Reason != "n/a" {
		t.Errorf("StabilityAssessment = %+v", s.StabilityAssessment)
	}
	if len(s.NotableShifts) != 1 || s.NotableShifts[0] != "No notable shifts detected." {
		t.Errorf("NotableShifts = %v", s.NotableShifts)
	}
	if s.HumanContext.AnnotationCount != 0 || s.HumanContext.LatestAnnotation != "n/a" {
		t.Errorf("HumanContext = %+v", s.HumanContext)
	}
	if s.ConfidenceLevel != "low" {
		t.Errorf("ConfidenceLevel = %q, want low", s.ConfidenceLevel)
	}
	if !strings.HasPrefix(s.SummaryID, "canonical-") || len(s.SummaryID) != len("canonical-")+12 {
		t.Errorf("SummaryID = %q, want canonical- prefix and 12 hex chars", s.SummaryID)
	}
}

func TestBuildFullWindow(t *testing.T) {
	h := makeWindow([]int{10, 10, 10, 20})
	tr := trend.Compute(h)
	report := anomaly.Detect(h, tr)
	annotations := []annotation.Annotation{
		makeAnnotation("2026-03-02T12:00:00Z"),
		makeAnnotation("2026-03-05T12:00:00Z"),
	}

	s := Build(h, tr, report, annotations)

	if s.Horizon.NumberOfRuns != 4 {
		t.Errorf("NumberOfRuns = %d, want 4", s.Horizon.NumberOfRuns)
	}
	if s.Horizon.TimeSpan != "2026-03-01T00:00:00Z → 2026-03-04T00:00:00Z" {
		t.Errorf("TimeSpan = %q", s.Horizon.TimeSpan)
	}

	wantTrends := []string{
		"Rolling average total signals: 12.5",
		"Stability classification: emerging",
		"Drift pattern: slow_increase",
	}
	if len(s.DominantTrends) != len(wantTrends) {
		t.Fatalf("DominantTrends = %v", s.DominantTrends)
	}
	for i, want := range wantTrends {
		if s.DominantTrends[i] != want {
			t.Errorf("DominantTrends[%d] = %q, want %q", i, s.DominantTrends[i], want)
		}
	}

	wantRecurring := []string{"Spike in total signals", "Stability followed by disruption"}
	if len(s.RecurringAnomalies) != len(wantRecurring) {
		t.Fatalf("RecurringAnomalies = %v", s.RecurringAnomalies)
	}
	for i, want := range wantRecurring {
		if s.RecurringAnomalies[i] != want {
			t.Errorf("RecurringAnomalies[%d] = %q, want %q", i, s.RecurringAnomalies[i], want)
		}
	}

	if len(s.NotableShifts) != 1 || s.NotableShifts[0] != "Spike in total signals (increase, delta 7.5)." {
		t.Errorf("NotableShifts = %v", s.NotableShifts)
	}

	if s.StabilityAssessment.Classification != "emerging" || s.StabilityAssessment.Reason != "consistent upward drift" {
		t.Errorf("StabilityAssessment = %+v", s.StabilityAssessment)
	}

	if s.HumanContext.AnnotationCount != 2 {
		t.Errorf("AnnotationCount = %d, want 2", s.HumanContext.AnnotationCount)
	}
	if s.HumanContext.LatestAnnotation != "2026-03-05T12:00:00Z" {
		t.Errorf("LatestAnnotation = %q", s.HumanContext.LatestAnnotation)
	}

	// Newest usable timestamp across all sources is the latest annotation
	if s.GeneratedAt != "2026-03-05T12:00:00Z" {
		t.Errorf("GeneratedAt = %q", s.GeneratedAt)
	}

	if s.ConfidenceLevel != "medium" {
		t.Errorf("ConfidenceLevel = %q, want medium at 4 runs", s.ConfidenceLevel)
	}
}

func TestSummaryIDDeterminism(t *testing.T) {
	h := makeWindow([]int{5, 6, 7})
	tr := trend.Compute(h)
	report := anomaly.Detect(h, tr)
	annotations := []annotation.Annotation{makeAnnotation("2026-03-03T00:00:00Z")}

	first := Build(h, tr, report, annotations)
	second := Build(h, tr, report, annotations)
	if first.SummaryID != second.SummaryID {
		t.Errorf("identical inputs produced different ids: %q vs %q", first.SummaryID, second.SummaryID)
	}

	changed := Build(h, tr, report, append(annotations, makeAnnotation("2026-03-04T00:00:00Z")))
	if changed.SummaryID == first.SummaryID {
		t.Error("changing an input should change the summary id")
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		runs int
		want string
	}{
		{0, "low"},
		{2, "low"},
		{3, "medium"},
		{7, "medium"},
		{8, "high"},
		{12, "high"},
	}
	for _, tt := range tests {
		if got := ConfidenceLevel(tt.runs); got != tt.want {
			t.Errorf("ConfidenceLevel(%d) = %q, want %q", tt.runs, got, tt.want)
		}
	}
}

func TestRecurringAnomaliesDedupCaseInsensitive(t *testing.T) {
	report := &anomaly.Report{
		Findings: []anomaly.Finding{
			{Title: "Spike in total signals"},
			{Title: "SPIKE IN TOTAL SIGNALS"},
			{Title: "Emerging signal types"},
		},
	}

	titles := recurringAnomalies(report)
	if len(titles) != 2 {
		t.Fatalf("titles = %v, want 2 after dedup", titles)
	}
	if titles[0] != "Spike in total signals" || titles[1] != "Emerging signal types" {
		t.Errorf("titles = %v, want first-seen order", titles)
	}
}

func TestPickGeneratedAtSkipsPlaceholders(t *testing.T) {
	got := pickGeneratedAt([]string{"unknown", "", "2026-01-02T00:00:00Z", "n/a", "2026-01-01T00:00:00Z"})
	if got != "2026-01-02T00:00:00Z" {
		t.Errorf("pickGeneratedAt = %q", got)
	}

	if got := pickGeneratedAt([]string{"unknown", "n/a", ""}); got != "n/a" {
		t.Errorf("pickGeneratedAt with only placeholders = %q, want n/a", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	h := makeWindow([]int{10, 10, 10, 20})
	tr := trend.Compute(h)
	report := anomaly.Detect(h, tr)
	s := Build(h, tr, report, []annotation.Annotation{makeAnnotation("2026-03-05T12:00:00Z")})

	md := RenderMarkdown(s)

	for _, want := range []string{
		"# Canonical Signal Summary",
		"## System evolution",
		"- Runs observed: 4",
		"- Time span: 2026-03-01T00:00:00Z → 2026-03-04T00:00:00Z",
		"## Long-term patterns",
		"- Rolling average total signals: 12.5",
		"## Signals that matter",
		"## Recurring anomalies",
		"- Spike in total signals",
		"## Notable shifts",
		"- Spike in total signals (increase, delta 7.5).",
		"## Human context",
		"- Annotations recorded: 1",
		"- Latest annotation: 2026-03-05T12:00:00Z",
		"## Uncertainty and limits",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownEmptyAnomalies(t *testing.T) {
	md := RenderMarkdown(Build(nil, nil, nil, nil))

	if !strings.Contains(md, "- No recurring anomalies detected.") {
		t.Error("markdown missing empty-anomalies placeholder")
	}
	if !strings.Contains(md, "- No notable shifts detected.") {
		t.Error("markdown missing empty-shifts placeholder")
	}
	if !strings.Contains(md, "- Latest annotation: n/a") {
		t.Error("markdown missing n/a latest annotation")
	}
}
