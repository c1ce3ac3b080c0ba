package vcore

import (
	"tickos/hal/cortexm"
	"tickos/kernel"
)

// scsLow and scsHigh bound the System Control Space; unimplemented
// registers inside it read as zero and ignore writes.
const (
	scsLow  = 0xE000E000
	scsHigh = 0xE000F000
)

// Load implements kernel.Memory.
func (c *Core) Load(addr uint32) uint32 {
	c.step(stepCycles)
	return c.read(addr)
}

// Store implements kernel.Memory.
func (c *Core) Store(addr uint32, v uint32) {
	c.step(stepCycles)
	c.write(addr, v)
}

func (c *Core) sramIndex(addr uint32) (int, bool) {
	off := addr - c.cfg.SRAMBase
	if addr < c.cfg.SRAMBase || off >= c.cfg.SRAMSize {
		return 0, false
	}
	return int(off / 4), true
}

func (c *Core) device(addr uint32) (Device, uint32, bool) {
	for _, m := range c.devices {
		if off := addr - m.base; addr >= m.base && off < m.size {
			return m.dev, off, true
		}
	}
	return nil, 0, false
}

func (c *Core) read(addr uint32) uint32 {
	if addr%4 != 0 {
		c.raise(kernel.FaultUsage, cortexm.UFSRUnaligned, 0)
	}
	if i, ok := c.sramIndex(addr); ok {
		return c.sram[i]
	}
	if addr >= scsLow && addr < scsHigh {
		return c.readSystem(addr)
	}
	if d, off, ok := c.device(addr); ok {
		return d.Load(off)
	}
	c.raise(kernel.FaultBus, cortexm.BFSRPreciseErr|cortexm.BFSRBFARValid, addr)
	return 0
}

func (c *Core) write(addr uint32, v uint32) {
	if addr%4 != 0 {
		c.raise(kernel.FaultUsage, cortexm.UFSRUnaligned, 0)
	}
	if i, ok := c.sramIndex(addr); ok {
		c.sram[i] = v
		return
	}
	if addr >= scsLow && addr < scsHigh {
		c.writeSystem(addr, v)
		return
	}
	if d, off, ok := c.device(addr); ok {
		d.Store(off, v)
		return
	}
	c.raise(kernel.FaultBus, cortexm.BFSRPreciseErr|cortexm.BFSRBFARValid, addr)
}

func (c *Core) readSystem(addr uint32) uint32 {
	switch addr {
	case cortexm.ICSR:
		var v uint32
		if c.pending&excBit(excPendSV) != 0 {
			v |= cortexm.ICSRPendSVSet
		}
		if c.pending&excBit(excSysTick) != 0 {
			v |= cortexm.ICSRPendSTSet
		}
		if n := len(c.active); n > 0 {
			v |= uint32(c.active[n-1]) & cortexm.ICSRVectActive
		}
		return v
	case cortexm.CCR:
		return c.ccr
	case cortexm.SHCSR:
		return c.shcsr
	case cortexm.CFSR:
		return c.cfsr
	case cortexm.HFSR:
		return c.hfsr
	case cortexm.MMFAR:
		return c.mmfar
	case cortexm.BFAR:
		return c.bfar
	case cortexm.SysTickCSR:
		v := c.systCSR
		c.systCSR &^= cortexm.CSRCountFlag
		return v
	case cortexm.SysTickRVR:
		return c.systRVR
	case cortexm.SysTickCVR:
		if !c.timerOn() || c.nextTick <= c.cycles {
			return 0
		}
		return uint32(c.nextTick-c.cycles) - 1
	default:
		return 0
	}
}

func (c *Core) writeSystem(addr uint32, v uint32) {
	switch addr {
	case cortexm.ICSR:
		if v&cortexm.ICSRPendSVSet != 0 {
			c.pending |= excBit(excPendSV)
		} else if v&cortexm.ICSRPendSVClr != 0 {
			c.pending &^= excBit(excPendSV)
		}
		if v&cortexm.ICSRPendSTSet != 0 {
			c.pending |= excBit(excSysTick)
		} else if v&cortexm.ICSRPendSTClr != 0 {
			c.pending &^= excBit(excSysTick)
		}
	case cortexm.CCR:
		c.ccr = v
	case cortexm.SHCSR:
		c.shcsr = v & cortexm.SHCSRFaultEnables
	case cortexm.CFSR:
		c.cfsr &^= v
	case cortexm.HFSR:
		c.hfsr &^= v
	case cortexm.MMFAR:
		c.mmfar = v
	case cortexm.BFAR:
		c.bfar = v
	case cortexm.SysTickCSR:
		wasOn := c.timerOn()
		c.systCSR = c.systCSR&cortexm.CSRCountFlag | v&(cortexm.CSREnable|cortexm.CSRTickInt|cortexm.CSRClkSource)
		if !wasOn && c.timerOn() {
			c.nextTick = c.cycles + c.period()
		}
	case cortexm.SysTickRVR:
		c.systRVR = v & cortexm.MaxReload
	case cortexm.SysTickCVR:
		c.systCSR &^= cortexm.CSRCountFlag
		c.nextTick = c.cycles + c.period()
	}
}

func (c *Core) period() uint64 { return uint64(c.systRVR) + 1 }

func (c *Core) timerOn() bool {
	return c.systCSR&cortexm.CSREnable != 0 && c.systRVR != 0
}

// advanceTimer accounts every SysTick wrap up to the current cycle.
func (c *Core) advanceTimer() {
	for c.timerOn() && c.cycles >= c.nextTick {
		if c.cfg.MaxTicks > 0 && c.ticks.Load() >= c.cfg.MaxTicks {
			c.stop(nil)
		}
		c.nextTick += c.period()
		n := c.ticks.Add(1)
		c.systCSR |= cortexm.CSRCountFlag
		if c.systCSR&cortexm.CSRTickInt != 0 {
			c.pending |= excBit(excSysTick)
		}
		if c.cfg.Pacer != nil {
			if err := c.cfg.Pacer.Wait(c.ctx, n); err != nil {
				c.stop(err)
			}
		}
	}
}
