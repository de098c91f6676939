// Package index builds the signal index: a full aggregation over every
// signal in the store, grouped by type, scope, severity, and policy. The
// index is always rebuilt from scratch, never updated incrementally, so
// rebuilding over an unchanged log yields an identical artifact.
package index

import (
	"github.com/sigwatch/sigwatch/internal/signal"
)

// Index aggregates the full signal log along its classification dimensions.
type Index struct {
	TotalSignals   int            `json:"total_signals"`
	ByType         map[string]int `json:"by_type"`
	ByScope        map[string]int `json:"by_scope"`
	BySeverity     map[string]int `json:"by_severity"`
	ByPolicy       map[string]int `json:"by_policy"`
	LatestSignalAt *string        `json:"latest_signal_at"`
	Mode           string         `json:"mode"`
}

// Build aggregates signals into an index. Only signals carrying a policy id
// contribute to the policy dimension; latest_signal_at is the maximum
// emitted_at timestamp, or null when the log is empty.
func Build(signals []*signal.Signal) *Index {
	idx := &Index{
		TotalSignals: len(signals),
		ByType:       map[string]int{},
		ByScope:      map[string]int{},
		BySeverity:   map[string]int{},
		ByPolicy:     map[string]int{},
		Mode:         signal.ModeObservationOnly,
	}

	for _, s := range signals {
		idx.ByType[s.Type]++
		idx.ByScope[string(s.Scope)]++
		idx.BySeverity[string(s.Severity)]++

		if s.PolicyID != "" {
			idx.ByPolicy[s.PolicyID]++
		}

		if s.EmittedAt != "" {
			if idx.LatestSignalAt == nil || s.EmittedAt > *idx.LatestSignalAt {
				ts := s.EmittedAt
				idx.LatestSignalAt = &ts
			}
		}
	}

	return idx
}

// SignalTypes returns the set of signal types the index has observed.
func (idx *Index) SignalTypes() map[string]bool {
	types := make(map[string]bool, len(idx.ByType))
	for name := range idx.ByType {
		types[name] = true
	}
	return types
}

// IsZero reports whether idx is the zero value, which is what decoding an
// empty or absent artifact produces. A genuine index over an empty log is
// not zero: Build always stamps the mode.
func (idx *Index) IsZero() bool {
	return idx == nil || (idx.TotalSignals == 0 && len(idx.ByType) == 0 && idx.LatestSignalAt == nil && idx.Mode == "")
}
