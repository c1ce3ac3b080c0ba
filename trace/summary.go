package trace

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"tickos/kernel"
)

// TaskSummary describes one task over a recorded run.
type TaskSummary struct {
	ID kernel.TaskID
	// Runs counts switches into the task.
	Runs   int
	Blocks int
	Wakes  int
	// Share is the fraction of the horizon the task was current, measured
	// at tick resolution.
	Share float64
	// MeanPeriod and StdDevPeriod describe the ticks between runs.
	MeanPeriod   float64
	StdDevPeriod float64
	// MaxWakeLatency is the longest wait from a wake to the next switch in.
	MaxWakeLatency kernel.Ticks
}

// ChannelSummary describes one output channel.
type ChannelSummary struct {
	Channel     int
	Transitions int
	// MeanHold and StdDevHold describe the ticks between transitions.
	MeanHold   float64
	StdDevHold float64
}

// Summary aggregates a recorded run.
type Summary struct {
	Horizon  kernel.Ticks
	Switches int
	Tasks    []TaskSummary
	Channels []ChannelSummary
}

// Summarize computes per-task and per-channel statistics for tasks table
// entries over [0, horizon]. A zero horizon ends at the last event.
func Summarize(events []Event, tasks int, horizon kernel.Ticks) Summary {
	if horizon == 0 && len(events) > 0 {
		horizon = events[len(events)-1].Tick
	}
	sum := Summary{Horizon: horizon, Tasks: make([]TaskSummary, tasks)}
	for i := range sum.Tasks {
		sum.Tasks[i].ID = kernel.TaskID(i)
	}
	within := func(id kernel.TaskID) bool { return int(id) < tasks }

	occupied := make([]kernel.Ticks, tasks)
	lastRun := make([]kernel.Ticks, tasks)
	ran := make([]bool, tasks)
	periods := make([][]float64, tasks)
	wokeAt := make(map[kernel.TaskID]kernel.Ticks)

	current, since, known := kernel.TaskID(0), kernel.Ticks(0), false

	type chanState struct {
		last  kernel.Ticks
		seen  bool
		holds []float64
		n     int
	}
	chans := make(map[int]*chanState)

	for _, e := range events {
		switch e.Kind {
		case KindWake:
			if within(e.Task) {
				sum.Tasks[e.Task].Wakes++
				wokeAt[e.Task] = e.Tick
			}
		case KindBlock:
			if within(e.Task) {
				sum.Tasks[e.Task].Blocks++
			}
		case KindSwitch:
			sum.Switches++
			if !known {
				current, known = e.From, true
			}
			if within(current) {
				occupied[current] += e.Tick - since
			}
			current, since = e.Task, e.Tick
			if !within(e.Task) {
				continue
			}
			ts := &sum.Tasks[e.Task]
			ts.Runs++
			if ran[e.Task] {
				periods[e.Task] = append(periods[e.Task], float64(e.Tick-lastRun[e.Task]))
			}
			ran[e.Task], lastRun[e.Task] = true, e.Tick
			if at, ok := wokeAt[e.Task]; ok {
				if lat := e.Tick - at; lat > ts.MaxWakeLatency {
					ts.MaxWakeLatency = lat
				}
				delete(wokeAt, e.Task)
			}
		case KindOutput:
			cs, ok := chans[e.Channel]
			if !ok {
				cs = &chanState{}
				chans[e.Channel] = cs
			}
			cs.n++
			if cs.seen {
				cs.holds = append(cs.holds, float64(e.Tick-cs.last))
			}
			cs.last, cs.seen = e.Tick, true
		}
	}
	if known && within(current) && horizon > since {
		occupied[current] += horizon - since
	}

	for i := range sum.Tasks {
		ts := &sum.Tasks[i]
		if horizon > 0 {
			ts.Share = float64(occupied[i]) / float64(horizon)
		}
		ts.MeanPeriod, ts.StdDevPeriod = meanStdDev(periods[i])
	}

	ids := make([]int, 0, len(chans))
	for ch := range chans {
		ids = append(ids, ch)
	}
	sort.Ints(ids)
	for _, ch := range ids {
		cs := chans[ch]
		mean, sd := meanStdDev(cs.holds)
		sum.Channels = append(sum.Channels, ChannelSummary{
			Channel: ch, Transitions: cs.n, MeanHold: mean, StdDevHold: sd,
		})
	}
	return sum
}

func meanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// WriteTo prints the summary as aligned text lines.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var n int64
	p := func(format string, args ...any) error {
		k, err := fmt.Fprintf(w, format, args...)
		n += int64(k)
		return err
	}
	if err := p("horizon %d ticks, %d switches\n", s.Horizon, s.Switches); err != nil {
		return n, err
	}
	for _, t := range s.Tasks {
		if err := p("task %d: runs=%d blocks=%d wakes=%d share=%.4f period=%.1f±%.1f max-wake-latency=%d\n",
			t.ID, t.Runs, t.Blocks, t.Wakes, t.Share, t.MeanPeriod, t.StdDevPeriod, t.MaxWakeLatency); err != nil {
			return n, err
		}
	}
	for _, c := range s.Channels {
		if err := p("output %d: transitions=%d hold=%.1f±%.1f\n",
			c.Channel, c.Transitions, c.MeanHold, c.StdDevHold); err != nil {
			return n, err
		}
	}
	return n, nil
}
