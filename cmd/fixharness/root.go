// Command fixharness is a thin CLI shell over the comparison harness:
// every command here just wires flags to the library packages and
// prints their results. No comparison, linking, or mutation logic lives
// in this package.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "fixharness",
	Short: "FIX conformance harness",
	Long:  "fixharness compares expected and actual FIX traffic, offline (log vs. log) or online (log vs. a live gateway).",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		l, err := zap.NewProduction()
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(offlineCmd())
	rootCmd.AddCommand(onlineCmd())
	rootCmd.AddCommand(scanCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
