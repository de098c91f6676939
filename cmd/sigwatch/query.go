package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/anomaly"
	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/signal"
	"github.com/sigwatch/sigwatch/internal/trend"
)

var (
	queryFormat string
	queryRecent int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read-only views over the derived artifacts",
	Long: `Render a normalized view of one derived artifact. Every view carries the
source path and an explicit "available" flag: a missing or corrupt artifact
yields defaults and available=false, never an error. Queries always exit 0.

Output is text by default; --format json emits the same structure as
key-sorted JSON.`,
}

var queryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Current signal counts from the index",
	Run: func(cmd *cobra.Command, args []string) {
		renderView(buildStatusView(projectPaths()), renderStatusText)
	},
}

var queryDeltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "The latest run-over-run change record",
	Run: func(cmd *cobra.Command, args []string) {
		renderView(buildDeltaView(projectPaths()), renderDeltaText)
	},
}

var queryTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Rolling statistics over the history window",
	Run: func(cmd *cobra.Command, args []string) {
		renderView(buildTrendsView(projectPaths()), renderTrendsText)
	},
}

var queryAnomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Structured anomaly findings from the latest run",
	Run: func(cmd *cobra.Command, args []string) {
		renderView(buildAnomaliesView(projectPaths(), queryRecent), renderAnomaliesText)
	},
}

// statusView normalizes the index over the fixed severity and scope keys.
type statusView struct {
	Source       string         `json:"source"`
	Available    bool           `json:"available"`
	TotalSignals int            `json:"total_signals"`
	BySeverity   map[string]int `json:"by_severity"`
	ByScope      map[string]int `json:"by_scope"`
}

type deltaView struct {
	Source             string         `json:"source"`
	Available          bool           `json:"available"`
	RunID              string         `json:"run_id"`
	WorkflowName       string         `json:"workflow_name"`
	CommitSHA          string         `json:"commit_sha"`
	TimestampUTC       string         `json:"timestamp_utc"`
	Bootstrap          bool           `json:"bootstrap"`
	TotalSignalsDelta  int            `json:"total_signals_delta"`
	BySeverity         map[string]int `json:"by_severity"`
	ByScope            map[string]int `json:"by_scope"`
	NewSignalTypes     []string       `json:"new_signal_types"`
	RemovedSignalTypes []string       `json:"removed_signal_types"`
}

type volatilityIndicators struct {
	Spikes trend.Spikes       `json:"spikes"`
	Drift  trend.DriftSection `json:"drift"`
}

type trendsView struct {
	Source               string               `json:"source"`
	Available            bool                 `json:"available"`
	EntryCount           int                  `json:"entry_count"`
	Stability            trend.Stability      `json:"stability"`
	RollingAverage       trend.RollingAverage `json:"rolling_average"`
	VolatilityIndicators volatilityIndicators `json:"volatility_indicators"`
}

type findingView struct {
	Title      string `json:"title"`
	Type       string `json:"type"`
	Confidence string `json:"confidence"`
	Window     string `json:"window"`
}

type anomaliesView struct {
	Source          string        `json:"source"`
	Available       bool          `json:"available"`
	GeneratedAt     string        `json:"generated_at"`
	EntriesObserved int           `json:"entries_observed"`
	Findings        []findingView `json:"findings"`
}

func buildStatusView(paths artifact.Paths) statusView {
	loaded := loadWithWarning[*index.Index](paths.Index())
	idx := loaded.Value
	if idx == nil {
		idx = &index.Index{}
	}
	return statusView{
		Source:       loaded.Source,
		Available:    loaded.Available,
		TotalSignals: idx.TotalSignals,
		BySeverity:   normalizeView(idx.BySeverity, signal.SeverityKeys()),
		ByScope:      normalizeView(idx.ByScope, signal.ScopeKeys()),
	}
}

func buildDeltaView(paths artifact.Paths) deltaView {
	loaded := loadWithWarning[*delta.Delta](paths.Delta())
	d := loaded.Value
	if d == nil {
		d = &delta.Delta{RunID: "unknown", WorkflowName: "unknown", CommitSHA: "unknown"}
	}
	return deltaView{
		Source:             loaded.Source,
		Available:          loaded.Available,
		RunID:              d.RunID,
		WorkflowName:       d.WorkflowName,
		CommitSHA:          d.CommitSHA,
		TimestampUTC:       d.TimestampUTC,
		Bootstrap:          d.Bootstrap,
		TotalSignalsDelta:  d.Changes.TotalSignals,
		BySeverity:         normalizeView(d.Changes.BySeverity, signal.SeverityKeys()),
		ByScope:            normalizeView(d.Changes.ByScope, signal.ScopeKeys()),
		NewSignalTypes:     emptyIfNil(d.Changes.NewSignalTypes),
		RemovedSignalTypes: emptyIfNil(d.Changes.RemovedSignalTypes),
	}
}

func buildTrendsView(paths artifact.Paths) trendsView {
	loaded := loadWithWarning[*trend.Trends](paths.Trends())
	t := loaded.Value
	if t == nil {
		// Defaults mirror an empty window rather than zero values
		t = trend.Compute(&history.History{})
	}
	return trendsView{
		Source:         loaded.Source,
		Available:      loaded.Available,
		EntryCount:     t.EntryCount,
		Stability:      t.Stability,
		RollingAverage: t.RollingAverage,
		VolatilityIndicators: volatilityIndicators{
			Spikes: t.Spikes,
			Drift:  t.Drift,
		},
	}
}

func buildAnomaliesView(paths artifact.Paths, recent int) anomaliesView {
	loaded := loadWithWarning[*anomaly.Report](paths.Anomalies())
	report := loaded.Value
	if report == nil {
		report = &anomaly.Report{}
	}

	findings := make([]findingView, 0, len(report.Findings))
	for _, finding := range report.Findings {
		findings = append(findings, findingView{
			Title:      finding.Title,
			Type:       finding.Type,
			Confidence: finding.Confidence,
			Window:     finding.Window,
		})
	}
	if recent > 0 && len(findings) > recent {
		findings = findings[len(findings)-recent:]
	}

	generatedAt := "n/a"
	if report.GeneratedAt != nil && *report.GeneratedAt != "" {
		generatedAt = *report.GeneratedAt
	}

	return anomaliesView{
		Source:          loaded.Source,
		Available:       loaded.Available,
		GeneratedAt:     generatedAt,
		EntriesObserved: report.EntriesObserved,
		Findings:        findings,
	}
}

// loadWithWarning loads an artifact and surfaces a malformed-artifact
// warning on the diagnostic stream. Missing artifacts stay silent.
func loadWithWarning[T any](path string) artifact.Result[T] {
	var def T
	loaded := artifact.Load[T](path, def)
	if loaded.Err != nil {
		logger.Warn("artifact unreadable; showing defaults", "source", path, "error", loaded.Err)
	}
	return loaded
}

// renderView prints a view as key-sorted JSON or hands it to the text
// renderer. The text output is a pure rendering of the same structure.
func renderView[T any](view T, text func(T)) {
	if queryFormat == "json" {
		data, err := artifact.MarshalSorted(view)
		if err != nil {
			logger.Warn("cannot encode view", "error", err)
			return
		}
		fmt.Println(string(data))
		return
	}
	text(view)
}

func renderStatusText(v statusView) {
	fmt.Printf("Signal status (%s)\n", v.Source)
	fmt.Printf("  Available:     %s\n", yesNo(v.Available))
	fmt.Printf("  Total signals: %d\n", v.TotalSignals)
	fmt.Printf("  By severity:   %s\n", countsLine(v.BySeverity, signal.SeverityKeys()))
	fmt.Printf("  By scope:      %s\n", countsLine(v.ByScope, signal.ScopeKeys()))
}

func renderDeltaText(v deltaView) {
	fmt.Printf("Signal delta (%s)\n", v.Source)
	fmt.Printf("  Available:     %s\n", yesNo(v.Available))
	fmt.Printf("  Run:           %s (workflow %s, commit %s)\n", v.RunID, v.WorkflowName, v.CommitSHA)
	fmt.Printf("  Timestamp:     %s\n", orPlaceholder(v.TimestampUTC))
	fmt.Printf("  Bootstrap:     %s\n", yesNo(v.Bootstrap))
	fmt.Printf("  Total change:  %+d\n", v.TotalSignalsDelta)
	fmt.Printf("  By severity:   %s\n", countsLine(v.BySeverity, signal.SeverityKeys()))
	fmt.Printf("  By scope:      %s\n", countsLine(v.ByScope, signal.ScopeKeys()))
	fmt.Printf("  New types:     %s\n", listLine(v.NewSignalTypes))
	fmt.Printf("  Removed types: %s\n", listLine(v.RemovedSignalTypes))
}

func renderTrendsText(v trendsView) {
	fmt.Printf("Signal trends (%s)\n", v.Source)
	fmt.Printf("  Available:       %s\n", yesNo(v.Available))
	fmt.Printf("  Entries:         %d\n", v.EntryCount)
	fmt.Printf("  Stability:       %s (%s)\n", v.Stability.Classification, v.Stability.Reason)
	fmt.Printf("  Rolling average: total %.2f\n", v.RollingAverage.TotalSignals)
	for _, key := range signal.SeverityKeys() {
		fmt.Printf("    severity %-7s %.2f\n", key, v.RollingAverage.BySeverity[key])
	}
	for _, key := range signal.ScopeKeys() {
		fmt.Printf("    scope %-10s %.2f\n", key, v.RollingAverage.ByScope[key])
	}
	total := v.VolatilityIndicators.Spikes.TotalSignals
	fmt.Printf("  Total spike:     %s (latest %d, average %.2f, threshold %.2f)\n",
		yesNo(total.Spike), total.Latest, total.Average, total.Threshold)
	drift := v.VolatilityIndicators.Drift.TotalSignals
	fmt.Printf("  Drift:           %s (mean delta %.2f)\n", drift.Pattern, drift.MeanDelta)
}

func renderAnomaliesText(v anomaliesView) {
	fmt.Printf("Anomaly findings (%s)\n", v.Source)
	fmt.Printf("  Available:    %s\n", yesNo(v.Available))
	fmt.Printf("  Generated at: %s\n", v.GeneratedAt)
	fmt.Printf("  Entries:      %d\n", v.EntriesObserved)
	if len(v.Findings) == 0 {
		fmt.Println("  No anomalies detected.")
		return
	}
	for _, finding := range v.Findings {
		fmt.Printf("  - %s [%s, confidence %s, window %s]\n",
			finding.Title, finding.Type, finding.Confidence, finding.Window)
	}
}

func normalizeView(counts map[string]int, keys []string) map[string]int {
	normalized := make(map[string]int, len(keys))
	for _, key := range keys {
		normalized[key] = counts[key]
	}
	return normalized
}

func countsLine(counts map[string]int, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
	}
	return strings.Join(parts, " ")
}

func listLine(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orPlaceholder(v string) string {
	if v == "" {
		return "n/a"
	}
	return v
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryStatusCmd, queryDeltaCmd, queryTrendsCmd, queryAnomaliesCmd)
	queryCmd.PersistentFlags().StringVar(&queryFormat, "format", "text", "output format: text or json")
	queryAnomaliesCmd.Flags().IntVar(&queryRecent, "recent", 0, "keep only the last N findings")
}
