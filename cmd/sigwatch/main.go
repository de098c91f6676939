package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/config"
	"github.com/sigwatch/sigwatch/internal/storage"
	"github.com/sigwatch/sigwatch/internal/telemetry"
)

var (
	dirFlag string

	// cfg and logger are resolved once before any command runs. Commands
	// receive them from here; no stage reads a global path or env on its own.
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sigwatch",
	Short: "Observation-only telemetry for policy signal streams",
	Long: `sigwatch records immutable observational signals and derives run-over-run
telemetry from them: a point-in-time index, deltas, a bounded history window,
trend statistics, anomaly findings, a canonical long-horizon summary, and a
bounded-cardinality metrics export.

sigwatch only observes. It never enforces, blocks, or mutates the systems it
watches, and a missing or corrupt artifact degrades to defaults instead of
failing the caller.

All state lives in one project directory (default .sigwatch/, override with
--dir or SIGWATCH_DIR).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var warnings []string
		cfg, warnings = config.Load(dirFlag)
		logger = telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
		for _, warning := range warnings {
			logger.Warn(warning)
		}
	},
}

// projectPaths resolves the artifact layout for the configured project dir.
func projectPaths() artifact.Paths {
	return artifact.NewPaths(cfg.Dir)
}

// openStore opens the project signal/annotation store.
func openStore(ctx context.Context) (storage.Store, error) {
	return storage.NewStore(ctx, &storage.Config{Path: projectPaths().SignalDB()})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", `project directory (default ".sigwatch")`)
}
