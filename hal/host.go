//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"tickos/hal/vcore"
	"tickos/kernel"
)

// HostConfig configures the host board.
type HostConfig struct {
	SRAMBase uint32
	SRAMSize uint32

	// MaxTicks stops the board cleanly after that many ticks; zero runs
	// until cancelled or halted.
	MaxTicks uint64
	// Pacer ties ticks to wall-clock time. Nil runs as fast as possible.
	Pacer vcore.Pacer

	// Log receives log lines. Defaults to stdout.
	Log io.Writer
	// OnOutput, if set, is called on the core for every LED transition.
	OnOutput func(OutputEvent)
}

// Host is the host board: a virtual Cortex-M core with the LED port mapped
// on its bus.
type Host struct {
	core   *vcore.Core
	logger *hostLogger
	rcc    *rccDevice
	gpio   *gpioDevice
	leds   *LEDBank
}

// NewHost returns a host board in its reset state.
func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.SRAMSize == 0 {
		cfg.SRAMBase, cfg.SRAMSize = kernel.DefaultSRAMBase, kernel.DefaultSRAMSize
	}
	if cfg.Log == nil {
		cfg.Log = os.Stdout
	}
	core, err := vcore.New(vcore.Config{
		SRAMBase: cfg.SRAMBase,
		SRAMSize: cfg.SRAMSize,
		MaxTicks: cfg.MaxTicks,
		Pacer:    cfg.Pacer,
	})
	if err != nil {
		return nil, err
	}

	h := &Host{
		core:   core,
		logger: &hostLogger{w: cfg.Log},
		rcc:    &rccDevice{},
	}
	h.gpio = newGPIODevice(h.rcc, LEDCount, core.Ticks, cfg.OnOutput)
	if err := core.Map(RCCBase, gpioPortSize, h.rcc); err != nil {
		return nil, fmt.Errorf("host: map rcc: %w", err)
	}
	if err := core.Map(GPIOEBase, gpioPortSize, h.gpio); err != nil {
		return nil, fmt.Errorf("host: map gpioe: %w", err)
	}
	h.leds = NewLEDBank(core, LEDCount)
	return h, nil
}

func (h *Host) Logger() Logger    { return h.logger }
func (h *Host) Outputs() Outputs  { return h.leds }
func (h *Host) Port() kernel.Port { return h.core }

// Core returns the virtual processor.
func (h *Host) Core() *vcore.Core { return h.core }

// Boot initialises the LED port from the reset context, then runs start.
// It blocks until the core stops; see vcore.Core.Boot for the result.
func (h *Host) Boot(ctx context.Context, start func()) error {
	return h.core.Boot(ctx, func() {
		h.leds.Init()
		start()
	})
}

// Run boots the board with no deadline.
func (h *Host) Run(start func()) error {
	return h.Boot(context.Background(), start)
}

// Transitions returns every LED change seen since boot.
func (h *Host) Transitions() []OutputEvent { return h.gpio.transitions() }

// Levels returns the current LED states.
func (h *Host) Levels() []bool { return h.gpio.levels() }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

// WindowConfig controls the window runner.
type WindowConfig struct {
	Host HostConfig
}
