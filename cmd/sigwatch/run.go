package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/pipeline"
	"github.com/sigwatch/sigwatch/internal/storage"
)

var runSkipExport bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one observation pipeline pass",
	Long: `Run every derivation stage in order: index, delta, history, trends,
anomalies, canonical summary, and the metrics export.

The run always exits 0. A stage that cannot read or write its artifacts
degrades to defaults, logs a warning on stderr, and the run continues —
downstream automation is never blocked by this pipeline.

Example:
  sigwatch run
  sigwatch run --skip-export`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var store storage.Store
		if opened, err := openStore(ctx); err != nil {
			logger.Warn("cannot open signal store; running against an empty log", "error", err)
		} else {
			store = opened
			defer func() { _ = store.Close() }()
		}

		pipeline.New(cfg, store, logger).Run(ctx, pipeline.Options{SkipExport: runSkipExport})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSkipExport, "skip-export", false, "skip the metrics export stage")
}
