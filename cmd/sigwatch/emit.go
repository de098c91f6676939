package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigwatch/sigwatch/internal/signal"
)

var (
	emitType       string
	emitScope      string
	emitSeverity   string
	emitMessage    string
	emitPolicyID   string
	emitPayloadRef string
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Append one observational signal to the event log",
	Long: `Append one immutable signal record with a generated id and the current
timestamp. Callers are trusted instrumentation: the only requirement is a
non-empty --type. The log grows monotonically and is never truncated.

Example:
  sigwatch emit --type policy_drift --scope guardian --severity medium \
    --policy-id pol-42 --message "drift detected against baseline"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		sig, err := signal.New(emitType, signal.Scope(emitScope), signal.Severity(emitSeverity),
			emitMessage, emitPolicyID, emitPayloadRef)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open signal store: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		if err := store.AppendSignal(ctx, sig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to append signal: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(sig.ID)
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
	emitCmd.Flags().StringVar(&emitType, "type", "", "signal type (required)")
	emitCmd.Flags().StringVar(&emitScope, "scope", string(signal.ScopeGuardian), "scope: guardian, cms, or directive")
	emitCmd.Flags().StringVar(&emitSeverity, "severity", string(signal.SeverityInfo), "severity: info, low, medium, or high")
	emitCmd.Flags().StringVar(&emitMessage, "message", "", "short human-readable description")
	emitCmd.Flags().StringVar(&emitPolicyID, "policy-id", "", "policy the signal is attributed to")
	emitCmd.Flags().StringVar(&emitPayloadRef, "payload-ref", "", "reference to an external payload record")
	_ = emitCmd.MarkFlagRequired("type")
}
