package app

import (
	"fmt"

	"tickos/hal"
	"tickos/internal/buildinfo"
	"tickos/internal/faultdiag"
	"tickos/kernel"
)

// Delayer blocks the calling task for a number of ticks.
type Delayer interface {
	Delay(n kernel.Ticks)
}

// Blink drives ch on for period ticks, then off for period ticks, forever.
func Blink(d Delayer, out hal.Outputs, ch int, period kernel.Ticks) {
	for {
		out.SetOutput(ch, true)
		d.Delay(period)
		out.SetOutput(ch, false)
		d.Delay(period)
	}
}

// New builds the scheduler for cfg on board h. Faults are reported on the
// board log. obs may be nil.
func New(h hal.HAL, cfg Config, obs kernel.Observer) (*kernel.Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reload, _ := cfg.TickReload()

	out := h.Outputs()
	var s *kernel.Scheduler
	tasks := make([]kernel.Task, len(cfg.Tasks))
	for i, tc := range cfg.Tasks {
		ch, period := tc.Channel, kernel.Ticks(tc.Period)
		tasks[i] = kernel.Task{
			Name:  tc.Name,
			Entry: func() { Blink(s, out, ch, period) },
		}
	}

	s, err := kernel.New(h.Port(), kernel.Config{
		Layout:     cfg.Layout(),
		TickReload: reload,
		Tasks:      tasks,
		Observer:   obs,
		Reporter:   faultdiag.New(h.Logger()),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	log := h.Logger()
	log.WriteLineString(fmt.Sprintf("tickos %s: %d tasks, %d Hz tick on a %d Hz clock",
		buildinfo.Short(), len(cfg.Tasks), cfg.TickHz, cfg.CPUHz))
	for _, l := range LayoutLines(cfg.Names(), s.Layout()) {
		log.WriteLineString(l)
	}
	return s, nil
}

// Run starts the embedded board configuration on h. It does not return on
// hardware.
func Run(h hal.HAL) {
	s, err := New(h, DefaultConfig(), nil)
	if err != nil {
		h.Logger().WriteLineString("tickos: " + err.Error())
		return
	}
	if err := h.Run(s.Start); err != nil {
		h.Logger().WriteLineString("tickos: " + err.Error())
	}
}

// LayoutLines describes every stack region, one line each, in table order
// followed by the kernel stack.
func LayoutLines(names []string, l kernel.Layout) []string {
	lines := make([]string, 0, l.Tasks+1)
	for id := 0; id < l.Tasks; id++ {
		name := fmt.Sprintf("task%d", id)
		if id < len(names) {
			name = names[id]
		}
		r := l.Region(kernel.TaskID(id))
		lines = append(lines, fmt.Sprintf("stack %d %-14s %s %5d bytes", id, name, r, r.Size()))
	}
	k := l.KernelRegion()
	lines = append(lines, fmt.Sprintf("stack - %-14s %s %5d bytes", "kernel", k, k.Size()))
	return lines
}
