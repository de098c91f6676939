package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/annotation"
)

var (
	annotateAuthor     string
	annotateRefType    string
	annotateRefID      string
	annotateRefWindow  string
	annotateText       string
	annotateConfidence string
	annotateIntent     string
	annotateTimestamp  string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Append a human interpretive note to the annotation log",
	Long: `Record an append-only annotation referencing a derived artifact either by
id (--reference-id) or by time window (--reference-window); exactly one of
the two must be given. Annotations add human context and never alter the
facts they reference.

A note that fails validation is rejected before any write: the problems are
reported as warnings and the command still exits 0.

Example:
  sigwatch annotate --author ops --reference-type anomaly \
    --reference-window "2026-02-01T00:00:00Z/2026-02-07T00:00:00Z" \
    --text "spike matches the staged rollout" --confidence medium --intent explanation`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		note := annotation.New(annotateAuthor, annotation.ReferenceType(annotateRefType),
			annotateRefID, annotateRefWindow, annotateText,
			annotation.Confidence(annotateConfidence), annotation.Intent(annotateIntent),
			annotateTimestamp)

		if problems := note.Validate(); len(problems) > 0 {
			for _, problem := range problems {
				logger.Warn("annotation rejected", "problem", problem)
			}
			return
		}

		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open annotation store: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		if err := store.AppendAnnotation(ctx, note); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to append annotation: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(note.ID)
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().StringVar(&annotateAuthor, "author", "", "who wrote the note (required)")
	annotateCmd.Flags().StringVar(&annotateRefType, "reference-type", "", "artifact kind: index, delta, trend, or anomaly (required)")
	annotateCmd.Flags().StringVar(&annotateRefID, "reference-id", "", "specific artifact record being annotated")
	annotateCmd.Flags().StringVar(&annotateRefWindow, "reference-window", "", "time window being annotated")
	annotateCmd.Flags().StringVar(&annotateText, "text", "", "interpretation text (required)")
	annotateCmd.Flags().StringVar(&annotateConfidence, "confidence", "", "confidence: low, medium, or high (required)")
	annotateCmd.Flags().StringVar(&annotateIntent, "intent", "", "intent: explanation, hypothesis, historical_note, caution, or clarification (required)")
	annotateCmd.Flags().StringVar(&annotateTimestamp, "timestamp", "", "timestamp override (default: now, UTC)")
}
