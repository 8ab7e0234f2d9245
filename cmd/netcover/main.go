package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/netcover/pkg/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "netcover",
	Short: "Coverage-driven path sampling over a fab equipment network",
	Long: `netcover samples, validates, and tracks network paths over a spatial
graph of interconnected equipment. It generates concrete paths between
equipment connection points until a configurable fraction of all
in-scope nodes and links is covered, and reports structural and
utility-consistency defects found along the way.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./netcover.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
}

// Commands are defined in separate files:
// - runCmd in run.go
// - runsCmd and reportCmd in report.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
