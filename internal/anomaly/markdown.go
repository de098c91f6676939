package anomaly

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the report as a human-readable narrative. The
// output is write-only: nothing in the pipeline ever parses it back, so the
// structured report stays the single source of truth.
func RenderMarkdown(r *Report, trendsSource, historySource string) string {
	generatedAt := "n/a"
	if r.GeneratedAt != nil && *r.GeneratedAt != "" {
		generatedAt = *r.GeneratedAt
	}

	lines := []string{
		"# Anomaly Narratives",
		"",
		fmt.Sprintf("- Source: %s, %s", trendsSource, historySource),
		fmt.Sprintf("- Window size: %d", r.WindowSize),
		fmt.Sprintf("- Entries observed: %d", r.EntriesObserved),
		fmt.Sprintf("- Generated at: %s", generatedAt),
		"",
		"## Summary",
	}

	if len(r.Findings) == 0 {
		lines = append(lines, "- No anomalies detected in the current window.")
	} else {
		for _, finding := range r.Findings {
			lines = append(lines, fmt.Sprintf("- %s (%s, %s confidence)", finding.Title, finding.Type, finding.Confidence))
		}
	}

	lines = append(lines, "", "## Narratives")

	if len(r.Findings) == 0 {
		lines = append(lines, "- No anomaly narratives were generated for this window.")
	} else {
		for i, finding := range r.Findings {
			lines = append(lines,
				fmt.Sprintf("### %d. %s", i+1, finding.Title),
				fmt.Sprintf("- Anomaly type: %s", finding.Type),
				fmt.Sprintf("- Time window: %s", finding.Window),
				fmt.Sprintf("- Explanation: %s", finding.Explanation),
				"- Supporting evidence:",
			)
			for _, item := range finding.Evidence {
				lines = append(lines, "  - "+item)
			}
			lines = append(lines, fmt.Sprintf("- Confidence: %s", finding.Confidence), "")
		}
	}

	return strings.Join(lines, "\n") + "\n"
}
