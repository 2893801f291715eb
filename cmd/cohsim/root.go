// Package main is the cohsim command: it loads a config.SocConfig from
// disk, elaborates it against the registered protocols, and runs the
// resulting simulation to completion.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cohsim",
	Short: "cohsim runs a coherence-fabric simulation from a config file.",
	Long: `cohsim elaborates a JSON SoC configuration into a directory-based ` +
		`coherence fabric, drives it with a stimulus source, and runs it to ` +
		`completion, optionally serving a live stats snapshot over HTTP.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
