package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/anomaly"
	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/delta"
	"github.com/sigwatch/sigwatch/internal/history"
	"github.com/sigwatch/sigwatch/internal/index"
	"github.com/sigwatch/sigwatch/internal/metrics"
	"github.com/sigwatch/sigwatch/internal/summary"
	"github.com/sigwatch/sigwatch/internal/trend"
)

var doctorVerbose bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check project health and artifact integrity",
	Long: `Run health checks against the project directory: configuration validity,
store accessibility, artifact parseability, and window invariants.

Unlike the pipeline itself, doctor is an operator surface and reports
problems through its exit code.

Exit codes:
  0 - All checks passed (warnings allowed)
  1 - One or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		paths := projectPaths()

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running sigwatch health checks...\n\n")

		var failures []string
		var warnings []string

		// Check 1: project directory
		fmt.Printf("%s Project directory\n", cyan("→"))
		if info, err := os.Stat(paths.Dir); err != nil {
			warnings = append(warnings, "project directory missing (run sigwatch init)")
			fmt.Printf("  %s Missing: %s\n", yellow("⚠"), paths.Dir)
		} else if !info.IsDir() {
			failures = append(failures, fmt.Sprintf("%s exists but is not a directory", paths.Dir))
			fmt.Printf("  %s Not a directory: %s\n", red("✗"), paths.Dir)
		} else {
			fmt.Printf("  %s %s\n", green("✓"), paths.Dir)
		}

		// Check 2: configuration
		fmt.Printf("%s Configuration\n", cyan("→"))
		if err := cfg.Validate(); err != nil {
			failures = append(failures, fmt.Sprintf("invalid configuration: %v", err))
			fmt.Printf("  %s Invalid: %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s Valid (window %d, top types %d)\n", green("✓"), cfg.WindowSize, cfg.TopSignalTypes)
		}

		// Check 3: signal store
		fmt.Printf("%s Signal store\n", cyan("→"))
		signalCount := -1
		if store, err := openStore(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("cannot open store: %v", err))
			fmt.Printf("  %s Cannot open %s\n", red("✗"), paths.SignalDB())
			if doctorVerbose {
				fmt.Printf("    Error: %v\n", err)
			}
		} else {
			if count, err := store.CountSignals(ctx); err != nil {
				failures = append(failures, fmt.Sprintf("cannot read signal log: %v", err))
				fmt.Printf("  %s Cannot read signal log\n", red("✗"))
			} else {
				signalCount = count
				fmt.Printf("  %s Accessible (%d signals)\n", green("✓"), count)
			}
			_ = store.Close()
		}

		// Check 4: artifact parseability. Missing artifacts are expected
		// before the first run and only warn.
		fmt.Printf("%s Artifacts\n", cyan("→"))
		checkArtifact := func(name string, check func() error) {
			err := check()
			switch {
			case err == nil:
				fmt.Printf("  %s %s\n", green("✓"), name)
			case os.IsNotExist(err):
				warnings = append(warnings, fmt.Sprintf("%s missing (run sigwatch run)", name))
				fmt.Printf("  %s %s missing\n", yellow("⚠"), name)
			default:
				failures = append(failures, fmt.Sprintf("%s unreadable: %v", name, err))
				fmt.Printf("  %s %s unreadable\n", red("✗"), name)
				if doctorVerbose {
					fmt.Printf("    Error: %v\n", err)
				}
			}
		}
		checkArtifact("index.json", func() error { return parseCheck[*index.Index](paths.Index()) })
		checkArtifact("index.previous.json", func() error { return parseCheck[*index.Index](paths.PreviousIndex()) })
		checkArtifact("delta.json", func() error { return parseCheck[*delta.Delta](paths.Delta()) })
		checkArtifact("history.json", func() error { return parseCheck[*history.History](paths.History()) })
		checkArtifact("trends.json", func() error { return parseCheck[*trend.Trends](paths.Trends()) })
		checkArtifact("anomalies.json", func() error { return parseCheck[*anomaly.Report](paths.Anomalies()) })
		checkArtifact("canonical_summary.json", func() error { return parseCheck[*summary.Summary](paths.Summary()) })
		checkArtifact("metrics.json", func() error { return parseCheck[*metrics.Mirror](paths.MetricsJSON()) })
		checkArtifact("metrics_manifest.json", func() error { return parseCheck[*metrics.Manifest](paths.MetricsManifest()) })

		// Check 5: window invariant
		fmt.Printf("%s History window\n", cyan("→"))
		h := artifact.Load[*history.History](paths.History(), nil)
		switch {
		case !h.Available:
			fmt.Printf("  %s No window yet\n", yellow("⚠"))
		case len(h.Value.Entries) > cfg.WindowSize:
			failures = append(failures, fmt.Sprintf("history holds %d entries, window bound is %d", len(h.Value.Entries), cfg.WindowSize))
			fmt.Printf("  %s Window bound exceeded: %d > %d\n", red("✗"), len(h.Value.Entries), cfg.WindowSize)
		default:
			fmt.Printf("  %s %d of at most %d entries\n", green("✓"), len(h.Value.Entries), cfg.WindowSize)
		}

		// Summary
		fmt.Println()
		if len(failures) > 0 {
			fmt.Printf("%s %d check(s) failed:\n", red("✗"), len(failures))
			for _, failure := range failures {
				fmt.Printf("  - %s\n", failure)
			}
			if len(warnings) > 0 {
				fmt.Printf("%s %d warning(s)\n", yellow("⚠"), len(warnings))
			}
			os.Exit(1)
		}
		if len(warnings) > 0 {
			fmt.Printf("%s All checks passed with %d warning(s):\n", yellow("⚠"), len(warnings))
			for _, warning := range warnings {
				fmt.Printf("  - %s\n", warning)
			}
		} else {
			fmt.Printf("%s All checks passed", green("✓"))
			if signalCount >= 0 {
				fmt.Printf(" (%d signals on record)", signalCount)
			}
			fmt.Println()
		}
	},
}

// parseCheck reads and decodes one artifact, distinguishing missing from
// malformed for the doctor report.
func parseCheck[T any](path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	var def T
	loaded := artifact.Load[T](path, def)
	return loaded.Err
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "show full error details")
}
