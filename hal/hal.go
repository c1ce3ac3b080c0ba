package hal

import (
	"errors"

	"tickos/kernel"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

// Outputs is a bank of on/off output channels.
type Outputs interface {
	Count() int
	// SetOutput drives channel ch. Channels outside [0, Count()) are ignored.
	SetOutput(ch int, on bool)
}

// OutputEvent is one observed output transition.
type OutputEvent struct {
	Tick    uint64
	Channel int
	On      bool
}

var ErrNotImplemented = errors.New("not implemented")

// HAL provides the only contact point between the kernel and the board.
type HAL interface {
	Logger() Logger
	Outputs() Outputs
	// Port is the processor the scheduler runs on.
	Port() kernel.Port
	// Run boots the board and hands the processor to start. On hardware
	// it does not return.
	Run(start func()) error
}

// NewApp builds the scheduler for a board. It runs before the processor
// starts; the runner then boots the board and calls the scheduler's Start.
type NewApp func(h HAL) (*kernel.Scheduler, error)
