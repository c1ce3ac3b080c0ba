//go:build tinygo && baremetal && cortexm

package hal

import (
	"machine"

	"tickos/kernel"
)

type boardHAL struct {
	logger *uartLogger
	leds   *LEDBank
	port   *armPort
}

// New returns the STM32F4 board HAL: active-low LEDs on PE0..PE3 and the
// log on the default UART at 115200 8N1.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	leds := NewLEDBank(mmio{}, LEDCount)
	leds.Init()
	return &boardHAL{
		logger: &uartLogger{uart: uart},
		leds:   leds,
		port:   &armPort{},
	}
}

func (h *boardHAL) Logger() Logger    { return h.logger }
func (h *boardHAL) Outputs() Outputs  { return h.leds }
func (h *boardHAL) Port() kernel.Port { return h.port }

// Run calls start on the reset thread. The scheduler's Start never returns.
func (h *boardHAL) Run(start func()) error {
	start()
	return nil
}
