// Package cli implements strand's command-line interface using Cobra:
// serve, load, fact, and show.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "strand — an embedded deductive database engine",
	Long: `strand evaluates Datalog-like programs: stratified negation,
aggregation, deletion rules, and location-specifier-based fact
distribution across peers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var addr string

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "address of a running strand daemon's HTTP API (empty: use an embedded in-process engine)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
