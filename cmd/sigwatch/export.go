package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/pipeline"
	"github.com/sigwatch/sigwatch/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the metrics export from the current artifacts",
	Long: `Read the current artifacts and write the three export files: the
Prometheus text exposition (metrics.prom), its structured mirror
(metrics.json), and the manifest (metrics_manifest.json).

Export is metrics-only and always exits 0; missing artifacts export as
zeros and any rendering failure keeps whatever partial output was written.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var store storage.Store
		if opened, err := openStore(ctx); err != nil {
			logger.Warn("cannot open signal store; exporting without annotation counts", "error", err)
		} else {
			store = opened
			defer func() { _ = store.Close() }()
		}

		pipeline.New(cfg, store, logger).Export(ctx)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
