// Package trace records scheduler and output events from a running kernel
// and turns them into summaries and timeline images.
package trace

import (
	"fmt"

	"tickos/kernel"
)

// Kind identifies an event.
type Kind uint8

const (
	KindTick Kind = iota + 1
	KindWake
	KindBlock
	KindSwitch
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindWake:
		return "wake"
	case KindBlock:
		return "block"
	case KindSwitch:
		return "switch"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is one recorded occurrence. Fields not used by a kind are zero.
type Event struct {
	Kind Kind
	Tick kernel.Ticks

	// Task is the task woken, blocked or switched in.
	Task kernel.TaskID
	// From is the task switched out.
	From kernel.TaskID
	// Until is the wake tick of a block.
	Until kernel.Ticks

	Channel int
	On      bool
}

func (e Event) String() string {
	switch e.Kind {
	case KindTick:
		return fmt.Sprintf("%8d tick", e.Tick)
	case KindWake:
		return fmt.Sprintf("%8d wake   task %d", e.Tick, e.Task)
	case KindBlock:
		return fmt.Sprintf("%8d block  task %d until %d", e.Tick, e.Task, e.Until)
	case KindSwitch:
		return fmt.Sprintf("%8d switch %d -> %d", e.Tick, e.From, e.Task)
	case KindOutput:
		level := "off"
		if e.On {
			level = "on"
		}
		return fmt.Sprintf("%8d output %d %s", e.Tick, e.Channel, level)
	default:
		return fmt.Sprintf("%8d %s", e.Tick, e.Kind)
	}
}
