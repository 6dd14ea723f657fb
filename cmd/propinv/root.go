package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "propinv",
	Short: "Property inventory dashboard service",
	Long: `propinv aggregates inventory and request records from the inventory
backend into chart-ready activity timelines, category costs and KPI
summaries, and serves them over an HTTP API.`,
	Version: version,
	// Default to running the server when no subcommand is specified
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/propinv/config.yaml", "Path to configuration file")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
