// Package delta compares the current signal index against the stored
// previous index and records what changed between the two runs. Only the
// single immediately preceding index is consulted; longer memory lives in
// the history window.
package delta

import (
	"os"
	"sort"

	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/signal"
)

// Changes holds the per-dimension differences between two indexes.
// Severity and scope always carry the full fixed key set, zeros included.
type Changes struct {
	TotalSignals       int            `json:"total_signals"`
	BySeverity         map[string]int `json:"by_severity"`
	ByScope            map[string]int `json:"by_scope"`
	NewSignalTypes     []string       `json:"new_signal_types"`
	RemovedSignalTypes []string       `json:"removed_signal_types"`
}

// Delta is the per-run change record. Run metadata comes from the CI
// environment; "unknown" marks anything the environment did not provide.
type Delta struct {
	RunID        string  `json:"run_id"`
	WorkflowName string  `json:"workflow_name"`
	CommitSHA    string  `json:"commit_sha"`
	TimestampUTC string  `json:"timestamp_utc"`
	Bootstrap    bool    `json:"bootstrap"`
	Changes      Changes `json:"changes"`
}

// RunMeta identifies the run a delta belongs to.
type RunMeta struct {
	RunID        string
	WorkflowName string
	CommitSHA    string
}

// RunMetaFromEnv reads run identity from the environment. GitHub Actions
// variables are tried first, then the generic fallbacks.
func RunMetaFromEnv() RunMeta {
	return RunMeta{
		RunID:        firstEnv("GITHUB_RUN_ID", "RUN_ID"),
		WorkflowName: firstEnv("GITHUB_WORKFLOW", "WORKFLOW_NAME"),
		CommitSHA:    firstEnv("GITHUB_SHA", "COMMIT_SHA"),
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "unknown"
}

// Compute diffs current against previous. bootstrap marks a run with no
// usable previous index; the previous counts are then all zero and the
// delta simply mirrors the current index.
func Compute(current, previous *index.Index, bootstrap bool, meta RunMeta) *Delta {
	if previous == nil {
		previous = &index.Index{}
	}

	return &Delta{
		RunID:        meta.RunID,
		WorkflowName: meta.WorkflowName,
		CommitSHA:    meta.CommitSHA,
		TimestampUTC: signal.Now(),
		Bootstrap:    bootstrap,
		Changes: Changes{
			TotalSignals:       current.TotalSignals - previous.TotalSignals,
			BySeverity:         diffCounts(current.BySeverity, previous.BySeverity, signal.SeverityKeys()),
			ByScope:            diffCounts(current.ByScope, previous.ByScope, signal.ScopeKeys()),
			NewSignalTypes:     sortedDifference(current.SignalTypes(), previous.SignalTypes()),
			RemovedSignalTypes: sortedDifference(previous.SignalTypes(), current.SignalTypes()),
		},
	}
}

// diffCounts subtracts previous from current over a fixed key set. Keys the
// indexes never observed still appear with a zero difference.
func diffCounts(current, previous map[string]int, keys []string) map[string]int {
	diff := make(map[string]int, len(keys))
	for _, key := range keys {
		diff[key] = current[key] - previous[key]
	}
	return diff
}

// sortedDifference returns the members of a absent from b, sorted.
func sortedDifference(a, b map[string]bool) []string {
	diff := []string{}
	for name := range a {
		if !b[name] {
			diff = append(diff, name)
		}
	}
	sort.Strings(diff)
	return diff
}
