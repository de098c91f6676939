package summary

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the summary as a narrative. Like the anomaly
// narrative this is a write-only view; the structured summary is what
// downstream consumers read.
func RenderMarkdown(s *Summary) string {
	lines := []string{
		"# Canonical Signal Summary",
		"",
		"This summary compresses long-horizon signal history into stable reference points.",
		"",
		"## System evolution",
		fmt.Sprintf("- Runs observed: %d", s.Horizon.NumberOfRuns),
		fmt.Sprintf("- Time span: %s", s.Horizon.TimeSpan),
		fmt.Sprintf("- Generated at: %s", s.GeneratedAt),
		"",
		"## Long-term patterns",
	}
	for _, item := range s.DominantTrends {
		lines = append(lines, "- "+item)
	}

	lines = append(lines,
		"",
		"## Signals that matter",
		"- Stability reflects sustained variance or steadiness across the observed window.",
		"- Drift and spikes highlight directional movement that may affect future interpretation.",
		"",
		"## Recurring anomalies",
	)
	if len(s.RecurringAnomalies) == 0 {
		lines = append(lines, "- No recurring anomalies detected.")
	} else {
		for _, item := range s.RecurringAnomalies {
			lines = append(lines, "- "+item)
		}
	}

	lines = append(lines, "", "## Notable shifts")
	for _, item := range s.NotableShifts {
		lines = append(lines, "- "+item)
	}

	lines = append(lines,
		"",
		"## Human context",
		fmt.Sprintf("- Annotations recorded: %d", s.HumanContext.AnnotationCount),
		fmt.Sprintf("- Latest annotation: %s", s.HumanContext.LatestAnnotation),
		"",
		"## Uncertainty and limits",
		"- Confidence reflects the length of history available.",
		"- Limited or missing history reduces certainty in long-horizon interpretations.",
	)

	return strings.Join(lines, "\n") + "\n"
}
