// pulse-bar is a status bar engine. Widgets (clock, battery, file
// contents, MPD, system load) produce styled frames on their own schedule;
// the bar composes the latest frames into one line per update.
//
// Usage:
//
//	pulse-bar run [--config path] [--preview] [--output ansi|plain] [--width n] [--verbose]
//	pulse-bar config init [path]
//	pulse-bar config check [--config path]
//	pulse-bar status [--config path] [--json]
//	pulse-bar themes
//	pulse-bar --version
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pulse-bar",
		Short:        "Status bar engine with self-aligning widgets",
		Version:      version + " (" + commit + ") built " + date,
		SilenceUsage: true,
	}

	root.AddCommand(
		runCmd(),
		configCmd(),
		statusCmd(),
		themesCmd(),
	)
	return root
}
