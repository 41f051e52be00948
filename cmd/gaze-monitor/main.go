// Command gaze-monitor tracks eye-tracker hosts on the sensor network, keeps
// one of them linked and drives the screen pointer from the wearer's gaze.
//
// Usage:
//
//	gaze-monitor run [--config config.yaml] [--network mock] [--verbose]
//	gaze-monitor layout [--config config.yaml]
//	gaze-monitor version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gaze-monitor",
	Short: "Gaze-driven pointer for networked eye trackers",
	Long: `gaze-monitor discovers eye-tracker hosts on the sensor network, links
one of them at a time and moves the screen pointer to where the wearer is
looking, using four fiducial markers placed around the screen.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.AddCommand(runCmd, layoutCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
