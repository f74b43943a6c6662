package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/source"
)

var (
	flagInput       string
	flagFormat      string
	flagDestination string
	flagRejectFile  string
	flagUser        string
	flagAddress     string
	flagWarmup      int
)

// addInputFlags registers the flags shared by observe and serve.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagInput, "input", "", "input file (default stdin)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "input format: sql|auditr")
	cmd.Flags().StringVar(&flagDestination, "destination", "", "relay sink: file://<path> or redis://<host>[:<port>][?list=<name>]")
	cmd.Flags().StringVar(&flagRejectFile, "reject-file", "", "file to store rejected input lines")
	cmd.Flags().StringVar(&flagUser, "user", "", "user attributed to statements without one")
	cmd.Flags().StringVar(&flagAddress, "address", "", "client address attributed to statements without one")
	cmd.Flags().IntVar(&flagWarmup, "warmup", 0, "warm-up window in seconds before new shapes are reported")
}

// applyInputFlags overrides config with the flags set on cmd.
func applyInputFlags(cmd *cobra.Command, cfg *config.Config) error {
	if flagInput != "" {
		cfg.Input.FilePath = flagInput
	}
	if flagFormat != "" {
		cfg.Input.Format = flagFormat
	}
	if flagDestination != "" {
		cfg.Relay.Destination = flagDestination
	}
	if flagRejectFile != "" {
		cfg.Output.RejectFile = flagRejectFile
	}
	if flagUser != "" {
		cfg.Input.User = flagUser
	}
	if flagAddress != "" {
		cfg.Input.Address = flagAddress
	}
	if cmd.Flags().Changed("warmup") {
		cfg.Index.WarmupSeconds = flagWarmup
	}
	return cfg.Validate()
}

// openInput returns stdin when path is empty.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func newReader(cfg *config.Config) (source.Reader, error) {
	r, err := source.NewFactory().NewReader(cfg.Input.Format, source.ReaderOptions{
		User:    cfg.Input.User,
		Address: cfg.Input.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("create reader: %w", err)
	}
	return r, nil
}
