package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/beholdr/internal/beholdr/admin"
	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/report"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Show or clear the shape index of a running server",
}

var dataShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every shape with its count and representative record",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := adminClient().ShowData(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		return report.PrintRows(cmd.OutOrStdout(), rows)
	},
}

var dataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every shape and restart the warm-up window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := adminClient().ClearData(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cleared")
		return nil
	},
}

var (
	flagAdmin string
	flagJSON  bool
)

func init() {
	dataCmd.PersistentFlags().StringVar(&flagAdmin, "admin", "", "admin API address (default admin.listen from config)")
	dataShowCmd.Flags().BoolVar(&flagJSON, "json", false, "print raw JSON")
	dataCmd.AddCommand(dataShowCmd)
	dataCmd.AddCommand(dataClearCmd)
}

func adminClient() *admin.Client {
	addr := flagAdmin
	if addr == "" {
		addr = config.Get().Admin.Listen
	}
	return admin.NewClient(addr, nil)
}
