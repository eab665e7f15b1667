package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at release time.
var version = "0.4.0"

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "magnet",
		Short: "Magnet - controlled adversary-simulation harness",
		Long: `Magnet runs a fixed sequence of benign adversary-behavior modules against
this host and records every outcome in an append-only telemetry trail for
detection-engineering review.

Run it only on systems you are authorized to test.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
