//go:build tinygo && baremetal

package hal

import (
	"machine"
	"runtime/volatile"
	"unsafe"
)

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.newline()
}

func (l *uartLogger) newline() {
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// mmio is the processor's own address space.
type mmio struct{}

func (mmio) Load(addr uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

func (mmio) Store(addr uint32, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), v)
}
