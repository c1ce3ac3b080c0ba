//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Host    HostConfig
	// Interactive reads monitor commands from the terminal while running.
	Interactive bool
}

// RunHeadless boots the app on a host board without opening a window and
// blocks until the core stops. Quitting the monitor cancels the run.
func RunHeadless(ctx context.Context, newApp NewApp, cfg HeadlessConfig) error {
	h, err := NewHost(cfg.Host)
	if err != nil {
		return err
	}
	s, err := newApp(h)
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	coreCtx, stopCore := context.WithCancel(gctx)
	defer stopCore()

	g.Go(func() error {
		return h.Boot(coreCtx, s.Start)
	})
	if cfg.Interactive {
		m := &monitor{host: h, sched: s, out: os.Stdout}
		g.Go(func() error {
			return m.serveTTY(gctx, stopCore)
		})
	}
	return g.Wait()
}
