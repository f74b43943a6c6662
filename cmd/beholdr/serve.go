package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/admin"
	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/pipeline"
	"github.com/vaibhaw-/beholdr/internal/beholdr/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline with the admin API until interrupted",
	RunE:  runServe,
}

var (
	flagListen  string
	flagNoInput bool
)

func init() {
	addInputFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "admin API listen address")
	serveCmd.Flags().BoolVar(&flagNoInput, "no-input", false, "serve the admin API without reading any input")
	serveCmd.Flags().DurationVar(&flagFlushTimeout, "flush-timeout", 30*time.Second, "how long to wait for the relay to deliver pending records on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if err := applyInputFlags(cmd, cfg); err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Admin.Listen = flagListen
	}
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := newRegistry()
	p, err := pipeline.FromConfig(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer p.Close()

	srv, err := admin.Start(cfg.Admin.Listen, admin.NewRouter(p, reg))
	if err != nil {
		return err
	}

	if !flagNoInput {
		reader, err := newReader(cfg)
		if err != nil {
			return err
		}
		in, err := openInput(cfg.Input.FilePath)
		if err != nil {
			return err
		}
		defer in.Close()

		go func() {
			sum, err := source.Run(ctx, reader, in, p, cfg)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("input failed, admin API keeps serving", "err", err.Error())
				return
			}
			log.Infow("input exhausted, admin API keeps serving",
				"observed_count", sum.ObservedCount,
				"new_shapes", sum.NewShapes)
		}()
	}

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("admin shutdown", "err", err.Error())
	}

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), flagFlushTimeout)
	defer cancelFlush()
	if err := p.Flush(flushCtx); err != nil {
		log.Warnw("relay did not deliver every record",
			"pending", p.Pending(),
			"err", err.Error())
	}
	return nil
}
