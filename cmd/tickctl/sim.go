//go:build !tinygo

package main

import (
	"context"
	"io"

	"tickos/app"
	"tickos/hal"
	"tickos/trace"
)

func loadConfig(path string) (app.Config, error) {
	if path == "" {
		return app.DefaultConfig(), nil
	}
	return app.LoadConfig(path)
}

// simulation is one finished host run.
type simulation struct {
	cfg    app.Config
	rec    *trace.Recorder
	events []hal.OutputEvent
}

// simulate runs cfg for ticks ticks on a host board. Board log lines go to
// log.
func simulate(ctx context.Context, cfg app.Config, ticks uint64, log io.Writer) (*simulation, error) {
	rec := trace.NewRecorder(trace.Options{})
	h, err := hal.NewHost(hal.HostConfig{
		SRAMBase: cfg.SRAMBase,
		SRAMSize: cfg.SRAMSize,
		MaxTicks: ticks,
		Log:      log,
		OnOutput: func(e hal.OutputEvent) { rec.Output(e.Channel, e.On) },
	})
	if err != nil {
		return nil, err
	}
	s, err := app.New(h, cfg, rec)
	if err != nil {
		return nil, err
	}
	if err := h.Boot(ctx, s.Start); err != nil {
		return nil, err
	}
	return &simulation{cfg: cfg, rec: rec, events: h.Transitions()}, nil
}

func (sim *simulation) summary() trace.Summary {
	return trace.Summarize(sim.rec.Events(), len(sim.cfg.Tasks)+1, sim.rec.Now())
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func channelName(ch int) string {
	if ch >= 0 && ch < hal.LEDCount {
		return hal.LEDNames[ch]
	}
	return "?"
}
