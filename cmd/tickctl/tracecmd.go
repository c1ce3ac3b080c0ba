//go:build !tinygo

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tickos/hal"
	"tickos/trace"
)

func newTraceCmd() *cobra.Command {
	var (
		configPath string
		ticks      uint64
		pngPath    string
		width      int
	)
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Run the task table and render a scheduling timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pngPath == "" {
				return fmt.Errorf("trace: --png is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			sim, err := simulate(cmd.Context(), cfg, ticks, io.Discard)
			if err != nil {
				return err
			}

			f, err := os.Create(pngPath)
			if err != nil {
				return fmt.Errorf("trace: %w", err)
			}
			err = trace.RenderPNG(f, sim.rec.Events(), trace.RenderOptions{
				Names:    cfg.Names(),
				Channels: hal.LEDCount,
				Horizon:  sim.rec.Now(),
				Width:    width,
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("trace: %w", err)
			}
			sum := sim.summary()
			_, err = sum.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "board config file (default: built-in board)")
	cmd.Flags().Uint64VarP(&ticks, "ticks", "n", 16000, "ticks to run")
	cmd.Flags().StringVarP(&pngPath, "png", "o", "", "output PNG path")
	cmd.Flags().IntVar(&width, "width", 1200, "image width in pixels")
	return cmd
}
