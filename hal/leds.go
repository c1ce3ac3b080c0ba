package hal

import "tickos/hal/cortexm"

// STM32F4 clock and GPIO registers used by the LED bank.
const (
	RCCBase      = 0x40023800
	RCCAHB1ENR   = RCCBase + 0x30
	RCCGPIOEEn   = 1 << 4
	GPIOEBase    = 0x40021000
	GPIOMODER    = 0x00
	GPIOODR      = 0x14
	GPIOBSRR     = 0x18
	gpioPortSize = 0x400
)

// LED channels on port E, PE0..PE3.
const (
	LEDGreen = iota
	LEDOrange
	LEDRed
	LEDBlue

	LEDCount
)

// LEDNames labels the LED channels.
var LEDNames = [LEDCount]string{"green", "orange", "red", "blue"}

// LEDBank drives active-low LEDs on the low pins of GPIO port E.
type LEDBank struct {
	bus cortexm.Bus
	n   int
}

// NewLEDBank returns a bank of n LEDs starting at PE0. Init must run
// before SetOutput.
func NewLEDBank(bus cortexm.Bus, n int) *LEDBank {
	if n > 16 {
		n = 16
	}
	return &LEDBank{bus: bus, n: n}
}

// Init enables the port clock, drives the pins high (LEDs off) and then
// switches them to push-pull outputs.
func (l *LEDBank) Init() {
	l.bus.Store(RCCAHB1ENR, l.bus.Load(RCCAHB1ENR)|RCCGPIOEEn)

	odr := uint32(GPIOEBase + GPIOODR)
	l.bus.Store(odr, l.bus.Load(odr)|(1<<l.n-1))

	var mask, mode uint32
	for pin := 0; pin < l.n; pin++ {
		mask |= 0b11 << (2 * pin)
		mode |= 0b01 << (2 * pin)
	}
	moder := uint32(GPIOEBase + GPIOMODER)
	l.bus.Store(moder, l.bus.Load(moder)&^mask|mode)
}

func (l *LEDBank) Count() int { return l.n }

// SetOutput writes BSRR, which sets or resets one pin in a single store.
// Output low lights the LED.
func (l *LEDBank) SetOutput(ch int, on bool) {
	if ch < 0 || ch >= l.n {
		return
	}
	bit := uint32(1) << ch
	if on {
		bit <<= 16
	}
	l.bus.Store(GPIOEBase+GPIOBSRR, bit)
}

// Lit reports whether channel ch is on according to ODR.
func (l *LEDBank) Lit(ch int) bool {
	if ch < 0 || ch >= l.n {
		return false
	}
	return l.bus.Load(GPIOEBase+GPIOODR)&(1<<ch) == 0
}
