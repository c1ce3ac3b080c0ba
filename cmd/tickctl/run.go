//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		ticks      uint64
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the task table headless and print LED transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sim, err := simulate(cmd.Context(), cfg, ticks, out)
			if err != nil {
				return err
			}
			if !quiet {
				for _, e := range sim.events {
					fmt.Fprintf(out, "%7d %-6s %s\n", e.Tick, channelName(e.Channel), onOff(e.On))
				}
			}
			sum := sim.summary()
			_, err = sum.WriteTo(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "board config file (default: built-in board)")
	cmd.Flags().Uint64VarP(&ticks, "ticks", "n", 10000, "ticks to run")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")
	return cmd
}
