//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickos/app"
)

func newLayoutCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Validate the config and print the stack map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			reload, _ := cfg.TickReload()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sram %#08x+%#x, systick reload %d\n", cfg.SRAMBase, cfg.SRAMSize, reload)
			for _, l := range app.LayoutLines(cfg.Names(), cfg.Layout()) {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "board config file (default: built-in board)")
	return cmd
}
