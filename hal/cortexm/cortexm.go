// Package cortexm describes the ARMv7-M system control registers the
// scheduler programs: the System Control Block and the SysTick timer.
//
// Registers are reached through a Bus so the same helpers drive real
// memory-mapped hardware and the host virtual core.
package cortexm

// Bus is word access to the processor address space.
type Bus interface {
	Load(addr uint32) uint32
	Store(addr uint32, v uint32)
}

// Memory map of the private peripheral bus blocks.
const (
	SCBBase     = 0xE000ED00
	SysTickBase = 0xE000E010

	// PPBBase starts the private peripheral bus; addresses at or above it
	// are never executable.
	PPBBase = 0xE0000000
)

func setBits(b Bus, addr, mask uint32) {
	b.Store(addr, b.Load(addr)|mask)
}

func clearBits(b Bus, addr, mask uint32) {
	b.Store(addr, b.Load(addr)&^mask)
}
