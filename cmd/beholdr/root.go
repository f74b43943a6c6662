package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
)

var (
	cfgFile string
	Version = "v0.1"
	build   = "dev"
	rootCmd = &cobra.Command{
		Use:   "beholdr",
		Short: "Beholdr - query shape watcher",
		Long:  "Beholdr: fingerprint observed SQL by structure, count shapes, flag late novel behavior and relay records to a sink.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				viper.SetConfigFile("config.yaml")
			}
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Using defaults and flags.\n", err)
			}
			if err := config.Load(viper.GetViper()); err != nil {
				return err
			}

			cfg := config.Get()
			if err := logger.InitLogger(logger.LogConfig{
				Level:        cfg.Logging.Level,
				ConsoleLevel: cfg.Logging.ConsoleLevel,
				DebugFile:    cfg.Logging.DebugFile,
				InfoFile:     cfg.Logging.InfoFile,
				Development:  cfg.Logging.Development,
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

// newRegistry returns the registry the pipeline and admin API share.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
