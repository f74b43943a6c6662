package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
	"github.com/vaibhaw-/beholdr/internal/beholdr/report"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the shapes in a file written by a file:// sink",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var flagInspectExport string

func init() {
	inspectCmd.Flags().StringVar(&flagInspectExport, "export", "", "write the shape snapshot to this file")
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	// Replayed records carry no timing, so novelty is not reported.
	idx, stats, err := report.Inspect(f, index.Options{
		Notifier: index.NotifierFunc(func(record.Principal, string) {}),
	})
	if err != nil {
		return err
	}
	if stats.Invalid > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d lines were not records\n", stats.Invalid)
	}

	snap := idx.Snapshot()
	if flagInspectExport != "" {
		if err := report.ExportSnapshot(flagInspectExport, snap); err != nil {
			return err
		}
	}
	return report.PrintSummary(cmd.OutOrStdout(), snap)
}
