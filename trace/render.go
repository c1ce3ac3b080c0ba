package trace

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"tickos/kernel"
)

// RenderOptions controls the timeline image.
type RenderOptions struct {
	// Names labels task rows by table index.
	Names []string
	// Channels is the number of output rows drawn below the tasks.
	Channels int
	// Horizon is the last tick drawn. Zero ends at the last event.
	Horizon kernel.Ticks
	Width   int
	Row     int
}

const (
	labelWidth = 80
	margin     = 8
)

// segment is a half-open tick interval drawn in one row.
type segment struct {
	row        int
	start, end kernel.Ticks
	state      int
}

const (
	stateBlocked = iota
	stateReady
	stateRunning
	stateOn
)

var stateColors = [...]string{
	stateBlocked: "#3a3a3a",
	stateReady:   "#d9a400",
	stateRunning: "#4adf6a",
	stateOn:      "#4a8adf",
}

// RenderPNG draws one row per task (blocked, ready, running) and one row
// per output channel (on), and writes the image as PNG.
func RenderPNG(w io.Writer, events []Event, opts RenderOptions) error {
	tasks := len(opts.Names)
	if tasks == 0 {
		return fmt.Errorf("trace: no task rows to render")
	}
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Row <= 0 {
		opts.Row = 18
	}
	horizon := opts.Horizon
	if horizon == 0 && len(events) > 0 {
		horizon = events[len(events)-1].Tick
	}
	if horizon == 0 {
		horizon = 1
	}

	segs := segments(events, tasks, opts.Channels, horizon)

	rows := tasks + opts.Channels
	height := 2*margin + rows*opts.Row + opts.Row
	dc := gg.NewContext(opts.Width, height)
	dc.SetHexColor("#101010")
	dc.Clear()

	plot := float64(opts.Width - labelWidth - 2*margin)
	x := func(t kernel.Ticks) float64 {
		return labelWidth + margin + plot*float64(t)/float64(horizon)
	}
	y := func(row int) float64 { return float64(margin + row*opts.Row) }

	for _, s := range segs {
		x0, x1 := x(s.start), x(s.end)
		if x1-x0 < 1 {
			x1 = x0 + 1
		}
		dc.SetHexColor(stateColors[s.state])
		dc.DrawRectangle(x0, y(s.row)+2, x1-x0, float64(opts.Row-4))
		dc.Fill()
	}

	dc.SetHexColor("#eeeeee")
	for i := 0; i < rows; i++ {
		label := fmt.Sprintf("output %d", i-tasks)
		if i < tasks {
			label = opts.Names[i]
		}
		dc.DrawStringAnchored(label, margin, y(i)+float64(opts.Row)/2, 0, 0.5)
	}
	axis := y(rows) + float64(opts.Row)/2
	dc.DrawStringAnchored("0", x(0), axis, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", horizon), x(horizon), axis, 1, 0.5)

	return dc.EncodePNG(w)
}

func segments(events []Event, tasks, channels int, horizon kernel.Ticks) []segment {
	var segs []segment
	state := make([]int, tasks)
	since := make([]kernel.Ticks, tasks)
	for i := range state {
		state[i] = stateReady
	}
	for _, e := range events {
		if e.Kind == KindSwitch {
			if int(e.From) < tasks {
				state[e.From] = stateRunning
			}
			break
		}
	}
	move := func(id kernel.TaskID, st int, at kernel.Ticks) {
		if int(id) >= tasks || state[id] == st {
			return
		}
		if at > since[id] || state[id] == stateRunning {
			segs = append(segs, segment{row: int(id), start: since[id], end: at, state: state[id]})
		}
		state[id], since[id] = st, at
	}

	on := make([]bool, channels)
	onSince := make([]kernel.Ticks, channels)

	for _, e := range events {
		if e.Tick > horizon {
			break
		}
		switch e.Kind {
		case KindSwitch:
			if e.From != e.Task {
				if int(e.From) < tasks && state[e.From] == stateRunning {
					move(e.From, stateReady, e.Tick)
				}
				move(e.Task, stateRunning, e.Tick)
			}
		case KindBlock:
			move(e.Task, stateBlocked, e.Tick)
		case KindWake:
			move(e.Task, stateReady, e.Tick)
		case KindOutput:
			if e.Channel < 0 || e.Channel >= channels || on[e.Channel] == e.On {
				continue
			}
			if on[e.Channel] {
				segs = append(segs, segment{row: tasks + e.Channel, start: onSince[e.Channel], end: e.Tick, state: stateOn})
			}
			on[e.Channel], onSince[e.Channel] = e.On, e.Tick
		}
	}
	for id := range state {
		if horizon > since[id] {
			segs = append(segs, segment{row: id, start: since[id], end: horizon, state: state[id]})
		}
	}
	for ch := range on {
		if on[ch] && horizon > onSince[ch] {
			segs = append(segs, segment{row: tasks + ch, start: onSince[ch], end: horizon, state: stateOn})
		}
	}
	return segs
}
