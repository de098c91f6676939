package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/artifact"
	"github.com/sigwatch/sigwatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sigwatch project directory",
	Long: `Create the project directory, materialize the signal store schema, and
write a commented default config.yaml (kept as-is when one already exists).

Example:
  sigwatch init
  sigwatch init --dir ops/.sigwatch`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		paths := projectPaths()

		if err := paths.EnsureDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Opening the store once creates the database and its schema.
		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize signal store: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close()

		wroteConfig := false
		if _, err := os.Stat(paths.ConfigFile()); os.IsNotExist(err) {
			if err := artifact.SaveText(paths.ConfigFile(), config.DefaultFileContents()); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to write config file: %v\n", err)
				os.Exit(1)
			}
			wroteConfig = true
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized sigwatch project\n\n", green("✓"))
		fmt.Printf("  Store:  %s\n", cyan(paths.SignalDB()))
		if wroteConfig {
			fmt.Printf("  Config: %s\n", cyan(paths.ConfigFile()))
		} else {
			fmt.Printf("  Config: %s %s\n", cyan(paths.ConfigFile()), gray("(existing, kept)"))
		}
		fmt.Println()

		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("sigwatch emit --type <type>   # Record signals from instrumentation"))
		fmt.Printf("  %s\n", gray("sigwatch run                  # Derive index, trends, anomalies, metrics"))
		fmt.Printf("  %s\n", gray("sigwatch query status         # Inspect the results"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
