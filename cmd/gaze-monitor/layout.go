package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gaze-pointer/monitor/internal/config"
	"github.com/gaze-pointer/monitor/internal/gaze"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show and check the calibration marker layout",
	Long: `Print which marker id is expected at each corner of the screen and
which corner of that marker is used as the quad vertex.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Calibration.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Screen: %dx%d\n\n", cfg.Screen.Width, cfg.Screen.Height)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CORNER\tMARKER\tVERTEX")
		for _, c := range gaze.Corners {
			fmt.Fprintf(w, "%s\t%d\t%s corner of marker %d\n", c, cfg.Calibration.ID(c), c, cfg.Calibration.ID(c))
		}
		return w.Flush()
	},
}
