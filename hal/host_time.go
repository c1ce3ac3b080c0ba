//go:build !tinygo

package hal

import (
	"context"
	"time"

	"tickos/hal/vcore"
)

// realtimePacer holds tick n back until n tick periods have passed since
// the first tick. A pacer that falls behind catches up without sleeping.
type realtimePacer struct {
	tickDur time.Duration
	start   time.Time
	now     func() time.Time
}

// NewRealtimePacer paces a core to tickHz ticks per wall-clock second.
func NewRealtimePacer(tickHz uint32) vcore.Pacer {
	if tickHz == 0 {
		tickHz = 1000
	}
	return &realtimePacer{tickDur: time.Second / time.Duration(tickHz), now: time.Now}
}

func (p *realtimePacer) Wait(ctx context.Context, tick uint64) error {
	now := p.now()
	if p.start.IsZero() {
		p.start = now.Add(-p.tickDur * time.Duration(tick))
		return nil
	}
	d := p.start.Add(p.tickDur * time.Duration(tick)).Sub(now)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
