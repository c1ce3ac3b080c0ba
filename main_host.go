//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tickos/app"
	"tickos/hal"
	"tickos/kernel"
)

func main() {
	var cfg hal.HeadlessConfig
	var realtime bool
	var configPath string
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.Uint64Var(&cfg.Host.MaxTicks, "ticks", 0, "Stop after N ticks (0 = run until quit).")
	flag.BoolVar(&realtime, "realtime", false, "Pace ticks to wall-clock time in headless mode.")
	flag.BoolVar(&cfg.Interactive, "interactive", false, "Read monitor commands from the terminal in headless mode.")
	flag.StringVar(&configPath, "config", "", "Board config file (default: built-in board).")
	flag.Parse()

	board := app.DefaultConfig()
	if configPath != "" {
		var err error
		if board, err = app.LoadConfig(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	cfg.Host.SRAMBase, cfg.Host.SRAMSize = board.SRAMBase, board.SRAMSize
	newApp := func(h hal.HAL) (*kernel.Scheduler, error) {
		return app.New(h, board, nil)
	}

	if cfg.Enabled {
		if realtime {
			cfg.Host.Pacer = hal.NewRealtimePacer(board.TickHz)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg.Host.Pacer = hal.NewRealtimePacer(board.TickHz)
	if err := hal.RunWindow(newApp, hal.WindowConfig{Host: cfg.Host}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
