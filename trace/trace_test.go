package trace

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"sync"
	"testing"

	"tickos/kernel"
)

func TestRingTryPopEmpty(t *testing.T) {
	var r Ring[int]
	if _, ok := r.TryPop(); ok {
		t.Fatalf("TryPop() ok = true, want false")
	}
}

func TestRingFullDrops(t *testing.T) {
	var r Ring[int]
	for i := 0; i < ringSlots; i++ {
		if !r.TryPush(i) {
			t.Fatalf("TryPush() = false at slot %d, want true", i)
		}
	}
	if r.TryPush(-1) {
		t.Fatalf("TryPush() = true when full, want false")
	}
	if got := r.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
	var got []int
	if n := r.Drain(func(v int) { got = append(got, v) }); n != ringSlots {
		t.Fatalf("Drain() = %d, want %d", n, ringSlots)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("value %d = %d, want FIFO order", i, v)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after drain", r.Len())
	}
}

func TestRingProducerConsumer(t *testing.T) {
	const total = 100_000
	var r Ring[int]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			for !r.TryPush(i) {
			}
		}
	}()

	next := 0
	for next < total {
		if v, ok := r.TryPop(); ok {
			if v != next {
				t.Fatalf("popped %d, want %d", v, next)
			}
			next++
		}
	}
	wg.Wait()
}

func TestRecorderOrderAndOutputTick(t *testing.T) {
	var live Ring[Event]
	r := NewRecorder(Options{Live: &live})
	r.Ticked(1)
	r.Woke(2, 1)
	r.Switched(0, 2, 1)
	r.Output(3, true)
	r.Blocked(2, 1, 5)

	ev := r.Events()
	kinds := []Kind{KindWake, KindSwitch, KindOutput, KindBlock}
	if len(ev) != len(kinds) {
		t.Fatalf("Events() = %v", ev)
	}
	for i, k := range kinds {
		if ev[i].Kind != k {
			t.Fatalf("event %d kind = %v, want %v", i, ev[i].Kind, k)
		}
	}
	if ev[2].Tick != 1 || ev[2].Channel != 3 || !ev[2].On {
		t.Fatalf("output event = %+v", ev[2])
	}
	if live.Len() != len(kinds) {
		t.Fatalf("live ring holds %d, want %d", live.Len(), len(kinds))
	}
}

func TestRecorderTicksAndLimit(t *testing.T) {
	r := NewRecorder(Options{Ticks: true, Limit: 3})
	for i := kernel.Ticks(1); i <= 5; i++ {
		r.Ticked(i)
	}
	if got := len(r.Events()); got != 3 {
		t.Fatalf("len(Events()) = %d, want 3", got)
	}
	if got := r.Dropped(); got != 2 {
		t.Fatalf("Dropped() = %d, want 2", got)
	}
	if got := r.Now(); got != 5 {
		t.Fatalf("Now() = %d, want 5", got)
	}
}

// blinkTrace builds the events of one task toggling an output every period
// ticks and idling in between.
func blinkTrace(period kernel.Ticks, cycles int) []Event {
	var ev []Event
	for i := 0; i < cycles; i++ {
		at := kernel.Ticks(i) * period
		if i > 0 {
			ev = append(ev,
				Event{Kind: KindWake, Tick: at, Task: 1},
				Event{Kind: KindSwitch, Tick: at, From: 0, Task: 1})
		}
		ev = append(ev,
			Event{Kind: KindOutput, Tick: at, Channel: 0, On: i%2 == 0},
			Event{Kind: KindBlock, Tick: at, Task: 1, Until: at + period},
			Event{Kind: KindSwitch, Tick: at, From: 1, Task: 0})
	}
	return ev
}

func TestSummarizeBlinker(t *testing.T) {
	const period = 4
	s := Summarize(blinkTrace(period, 5), 2, 20)

	task := s.Tasks[1]
	if task.Runs != 4 || task.Blocks != 5 || task.Wakes != 4 {
		t.Fatalf("task summary = %+v", task)
	}
	if task.MeanPeriod != period || task.StdDevPeriod != 0 {
		t.Fatalf("period = %v±%v, want %d±0", task.MeanPeriod, task.StdDevPeriod, period)
	}
	if task.MaxWakeLatency != 0 {
		t.Fatalf("MaxWakeLatency = %d, want 0", task.MaxWakeLatency)
	}
	if idle := s.Tasks[0].Share; math.Abs(idle-1) > 1e-9 {
		t.Fatalf("idle share = %v, want 1", idle)
	}
	if s.Switches != 9 {
		t.Fatalf("Switches = %d, want 9", s.Switches)
	}
	if len(s.Channels) != 1 || s.Channels[0].Transitions != 5 || s.Channels[0].MeanHold != period {
		t.Fatalf("channels = %+v", s.Channels)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !strings.Contains(buf.String(), "task 1: runs=4") {
		t.Fatalf("WriteTo output:\n%s", buf.String())
	}
}

func TestSummarizeLatency(t *testing.T) {
	ev := []Event{
		{Kind: KindSwitch, Tick: 0, From: 1, Task: 2},
		{Kind: KindWake, Tick: 3, Task: 1},
		{Kind: KindSwitch, Tick: 5, From: 2, Task: 1},
	}
	s := Summarize(ev, 3, 10)
	if got := s.Tasks[1].MaxWakeLatency; got != 2 {
		t.Fatalf("MaxWakeLatency = %d, want 2", got)
	}
	if got := s.Tasks[2].Share; got != 0.5 {
		t.Fatalf("task 2 share = %v, want 0.5", got)
	}
	if got := s.Tasks[1].Share; got != 0.5 {
		t.Fatalf("task 1 share = %v, want 0.5", got)
	}
}

func TestSegments(t *testing.T) {
	segs := segments(blinkTrace(4, 3), 2, 1, 12)
	var blocked, on kernel.Ticks
	for _, s := range segs {
		switch {
		case s.row == 1 && s.state == stateBlocked:
			blocked += s.end - s.start
		case s.row == 2 && s.state == stateOn:
			on += s.end - s.start
		}
	}
	if blocked != 12 {
		t.Fatalf("task 1 blocked for %d ticks, want 12", blocked)
	}
	if on != 4+4 {
		t.Fatalf("output on for %d ticks, want 8", on)
	}
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPNG(&buf, blinkTrace(4, 4), RenderOptions{
		Names:    []string{"idle", "blink"},
		Channels: 1,
		Width:    400,
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if got := img.Bounds().Dx(); got != 400 {
		t.Fatalf("width = %d, want 400", got)
	}
}

func TestRenderPNGNeedsRows(t *testing.T) {
	if err := RenderPNG(&bytes.Buffer{}, nil, RenderOptions{}); err == nil {
		t.Fatal("RenderPNG() err = nil, want error for no rows")
	}
}
