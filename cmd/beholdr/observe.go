package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/pipeline"
	"github.com/vaibhaw-/beholdr/internal/beholdr/report"
	"github.com/vaibhaw-/beholdr/internal/beholdr/source"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Fingerprint statements from an input and relay them to the sink",
	RunE:  runObserve,
}

var (
	flagExport       string
	flagSummary      bool
	flagFlushTimeout time.Duration
)

func init() {
	addInputFlags(observeCmd)
	observeCmd.Flags().StringVar(&flagExport, "export", "", "write the final shape snapshot to this file")
	observeCmd.Flags().BoolVar(&flagSummary, "summary", false, "print the shape summary when done")
	observeCmd.Flags().DurationVar(&flagFlushTimeout, "flush-timeout", 30*time.Second, "how long to wait for the relay to deliver pending records")
}

func runObserve(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if err := applyInputFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	in, err := openInput(cfg.Input.FilePath)
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := pipeline.FromConfig(ctx, cfg, newRegistry())
	if err != nil {
		return err
	}
	defer p.Close()

	_, runErr := source.Run(ctx, reader, in, p, cfg)

	flushCtx, cancel := context.WithTimeout(context.Background(), flagFlushTimeout)
	defer cancel()
	if err := p.Flush(flushCtx); err != nil {
		logger.L().Warnw("relay did not deliver every record",
			"pending", p.Pending(),
			"err", err.Error())
	}

	snap := p.ShowData()
	if flagExport != "" {
		if err := report.ExportSnapshot(flagExport, snap); err != nil {
			return err
		}
	}
	if flagSummary {
		if err := report.PrintSummary(cmd.OutOrStdout(), snap); err != nil {
			return fmt.Errorf("print summary: %w", err)
		}
	}
	return runErr
}
