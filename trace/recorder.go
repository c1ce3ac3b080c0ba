package trace

import (
	"sync"

	"tickos/kernel"
)

var _ kernel.Observer = (*Recorder)(nil)

// Options configures a Recorder.
type Options struct {
	// Ticks records a KindTick event per tick. Off by default; the other
	// kinds carry their tick.
	Ticks bool
	// Limit caps the number of retained events. Zero keeps everything.
	Limit int
	// Live, if set, receives a copy of every retained event.
	Live *Ring[Event]
}

// Recorder is a kernel.Observer that keeps an ordered event log.
type Recorder struct {
	mu      sync.Mutex
	opts    Options
	events  []Event
	now     kernel.Ticks
	dropped int
}

// NewRecorder returns an empty recorder.
func NewRecorder(opts Options) *Recorder {
	return &Recorder{opts: opts}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.Limit > 0 && len(r.events) >= r.opts.Limit {
		r.dropped++
		return
	}
	r.events = append(r.events, e)
	if r.opts.Live != nil {
		r.opts.Live.TryPush(e)
	}
}

func (r *Recorder) Ticked(now kernel.Ticks) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	if r.opts.Ticks {
		r.add(Event{Kind: KindTick, Tick: now})
	}
}

func (r *Recorder) Woke(id kernel.TaskID, now kernel.Ticks) {
	r.add(Event{Kind: KindWake, Tick: now, Task: id})
}

func (r *Recorder) Blocked(id kernel.TaskID, now, until kernel.Ticks) {
	r.add(Event{Kind: KindBlock, Tick: now, Task: id, Until: until})
}

func (r *Recorder) Switched(from, to kernel.TaskID, now kernel.Ticks) {
	r.add(Event{Kind: KindSwitch, Tick: now, Task: to, From: from})
}

// Output records an output channel transition at the last seen tick.
func (r *Recorder) Output(ch int, on bool) {
	r.mu.Lock()
	now := r.now
	r.mu.Unlock()
	r.add(Event{Kind: KindOutput, Tick: now, Channel: ch, On: on})
}

// Events returns a copy of the log.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Now returns the last tick the recorder saw.
func (r *Recorder) Now() kernel.Ticks {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// Dropped returns the number of events discarded because of Limit.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
