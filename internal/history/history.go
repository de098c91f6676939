// Package history maintains the bounded rolling window of per-run deltas.
// The window holds at most W entries in chronological ingestion order; every
// downstream statistic is recomputed from this window alone, so nothing else
// in the pipeline carries long-lived state.
package history

import (
	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/delta"
)

// Entry pairs one delta with its run metadata.
type Entry struct {
	RunID        string       `json:"run_id"`
	WorkflowName string       `json:"workflow_name"`
	CommitSHA    string       `json:"commit_sha"`
	TimestampUTC string       `json:"timestamp_utc"`
	Delta        *delta.Delta `json:"delta"`
}

// History is the persisted window artifact.
type History struct {
	WindowSize  int     `json:"window_size"`
	GeneratedAt *string `json:"generated_at"`
	Entries     []Entry `json:"entries"`
}

// Ingest returns prior extended with d, bounded to windowSize entries.
// A delta whose run_id is already present replaces that entry in place, so
// re-running the same run never grows the window or reorders it. A nil
// delta trims and restamps without adding anything.
func Ingest(prior *History, d *delta.Delta, windowSize int) *History {
	if windowSize <= 0 {
		windowSize = config.DefaultWindowSize
	}

	entries := []Entry{}
	if prior != nil {
		entries = append(entries, prior.Entries...)
	}

	if d != nil {
		entry := Entry{
			RunID:        d.RunID,
			WorkflowName: d.WorkflowName,
			CommitSHA:    d.CommitSHA,
			TimestampUTC: d.TimestampUTC,
			Delta:        d,
		}

		replaced := false
		for i := range entries {
			if entries[i].RunID == entry.RunID {
				entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
	}

	if len(entries) > windowSize {
		entries = entries[len(entries)-windowSize:]
	}

	out := &History{
		WindowSize: windowSize,
		Entries:    entries,
	}
	if len(entries) > 0 {
		ts := entries[len(entries)-1].TimestampUTC
		out.GeneratedAt = &ts
	}
	return out
}

// TotalSeries returns the total-signal delta of each entry in window order.
func (h *History) TotalSeries() []int {
	series := make([]int, 0, len(h.Entries))
	for _, entry := range h.Entries {
		if entry.Delta == nil {
			series = append(series, 0)
			continue
		}
		series = append(series, entry.Delta.Changes.TotalSignals)
	}
	return series
}

// SeveritySeries returns the per-severity delta series for one fixed key.
func (h *History) SeveritySeries(key string) []int {
	series := make([]int, 0, len(h.Entries))
	for _, entry := range h.Entries {
		if entry.Delta == nil {
			series = append(series, 0)
			continue
		}
		series = append(series, entry.Delta.Changes.BySeverity[key])
	}
	return series
}

// ScopeSeries returns the per-scope delta series for one fixed key.
func (h *History) ScopeSeries(key string) []int {
	series := make([]int, 0, len(h.Entries))
	for _, entry := range h.Entries {
		if entry.Delta == nil {
			series = append(series, 0)
			continue
		}
		series = append(series, entry.Delta.Changes.ByScope[key])
	}
	return series
}

// Latest returns the newest entry, or nil for an empty window.
func (h *History) Latest() *Entry {
	if len(h.Entries) == 0 {
		return nil
	}
	return &h.Entries[len(h.Entries)-1]
}
