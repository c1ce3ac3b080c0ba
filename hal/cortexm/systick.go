package cortexm

// SysTick registers.
const (
	SysTickCSR   = SysTickBase + 0x00
	SysTickRVR   = SysTickBase + 0x04
	SysTickCVR   = SysTickBase + 0x08
	SysTickCALIB = SysTickBase + 0x0C
)

// SysTick CSR bits.
const (
	CSREnable    uint32 = 1 << 0
	CSRTickInt   uint32 = 1 << 1
	CSRClkSource uint32 = 1 << 2
	CSRCountFlag uint32 = 1 << 16
)

// MaxReload is the widest value the 24-bit RELOAD field holds.
const MaxReload = 0x00FFFFFF

// ReloadFor returns the reload value that makes SysTick fire tickHz times a
// second from a cpuHz processor clock, and whether it fits in 24 bits.
func ReloadFor(cpuHz, tickHz uint32) (uint32, bool) {
	if tickHz == 0 || cpuHz < tickHz {
		return 0, false
	}
	reload := cpuHz/tickHz - 1
	return reload, reload >= 1 && reload <= MaxReload
}

// StartSysTick programs the reload value, clears the current count and
// enables the counter and its interrupt on the processor clock.
func StartSysTick(b Bus, reload uint32) {
	clearBits(b, SysTickCSR, CSREnable)
	b.Store(SysTickRVR, reload&MaxReload)
	b.Store(SysTickCVR, 0)
	setBits(b, SysTickCSR, CSRTickInt|CSRClkSource)
	setBits(b, SysTickCSR, CSREnable)
}

// StopSysTick disables the counter.
func StopSysTick(b Bus) {
	clearBits(b, SysTickCSR, CSREnable)
}
