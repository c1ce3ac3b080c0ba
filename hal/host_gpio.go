//go:build !tinygo

package hal

import "sync"

// rccDevice models the RCC block far enough to gate the GPIOE clock.
type rccDevice struct {
	mu      sync.Mutex
	ahb1enr uint32
}

func (r *rccDevice) Load(off uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if off == RCCAHB1ENR-RCCBase {
		return r.ahb1enr
	}
	return 0
}

func (r *rccDevice) Store(off uint32, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if off == RCCAHB1ENR-RCCBase {
		r.ahb1enr = v
	}
}

func (r *rccDevice) clocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ahb1enr&RCCGPIOEEn != 0
}

// gpioDevice models one GPIO port: MODER, ODR and BSRR. Writes are ignored
// while the port clock is off. Output-mode pins below watch report their
// level changes, active low.
type gpioDevice struct {
	mu    sync.Mutex
	rcc   *rccDevice
	moder uint32
	odr   uint32
	watch int

	now      func() uint64
	onChange func(OutputEvent)
	events   []OutputEvent
}

func newGPIODevice(rcc *rccDevice, watch int, now func() uint64, onChange func(OutputEvent)) *gpioDevice {
	return &gpioDevice{rcc: rcc, watch: watch, now: now, onChange: onChange}
}

func (g *gpioDevice) Load(off uint32) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch off {
	case GPIOMODER:
		return g.moder
	case GPIOODR:
		return g.odr
	default:
		return 0
	}
}

func (g *gpioDevice) Store(off uint32, v uint32) {
	if !g.rcc.clocked() {
		return
	}
	g.mu.Lock()
	prev := g.odr
	switch off {
	case GPIOMODER:
		g.moder = v
	case GPIOODR:
		g.odr = v & 0xFFFF
	case GPIOBSRR:
		g.odr = (g.odr &^ (v >> 16)) | (v & 0xFFFF)
	}
	changed := g.diff(prev)
	g.events = append(g.events, changed...)
	g.mu.Unlock()

	if g.onChange != nil {
		for _, e := range changed {
			g.onChange(e)
		}
	}
}

func (g *gpioDevice) diff(prev uint32) []OutputEvent {
	var out []OutputEvent
	for pin := 0; pin < g.watch; pin++ {
		bit := uint32(1) << pin
		if (prev^g.odr)&bit == 0 || (g.moder>>(2*pin))&0b11 != 0b01 {
			continue
		}
		out = append(out, OutputEvent{Tick: g.now(), Channel: pin, On: g.odr&bit == 0})
	}
	return out
}

// transitions returns the recorded output changes.
func (g *gpioDevice) transitions() []OutputEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]OutputEvent, len(g.events))
	copy(out, g.events)
	return out
}

// levels returns the current on state of the watched pins.
func (g *gpioDevice) levels() []bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]bool, g.watch)
	for pin := range out {
		out[pin] = (g.moder>>(2*pin))&0b11 == 0b01 && g.odr&(1<<pin) == 0
	}
	return out
}
