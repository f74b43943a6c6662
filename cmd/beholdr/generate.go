package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/workload"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic SQL workload for observe",
	RunE:  runGenerate,
}

var (
	flagWorkload  string
	flagGenOutput string
	flagGenOps    int
	flagGenFormat string
)

func init() {
	generateCmd.Flags().StringVar(&flagWorkload, "workload", "", "workload config file (required)")
	generateCmd.Flags().StringVar(&flagGenOutput, "output", "", "output file (default stdout)")
	generateCmd.Flags().IntVar(&flagGenOps, "ops", 0, "override totalOps")
	generateCmd.Flags().StringVar(&flagGenFormat, "format", "", "override format: sql|auditr")
	generateCmd.MarkFlagRequired("workload")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := workload.ReadConfig(flagWorkload)
	if err != nil {
		return fmt.Errorf("load workload: %w", err)
	}
	if flagGenOps > 0 {
		cfg.TotalOps = flagGenOps
	}
	if flagGenFormat != "" {
		cfg.Format = flagGenFormat
	}

	var out io.Writer = cmd.OutOrStdout()
	if flagGenOutput != "" {
		f, err := os.Create(flagGenOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err = workload.Write(out, workload.NewGenerator(cfg))
	return err
}
