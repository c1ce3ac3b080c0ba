package vcore

import (
	"tickos/hal/cortexm"
	"tickos/kernel"
)

var _ kernel.Port = (*Core)(nil)

func (c *Core) PSP() uint32 {
	c.step(stepCycles)
	return c.psp
}

func (c *Core) SetPSP(sp uint32) {
	c.step(stepCycles)
	c.psp = sp
}

func (c *Core) MSP() uint32 {
	c.step(stepCycles)
	return c.msp
}

func (c *Core) SetMSP(sp uint32) {
	c.step(stepCycles)
	c.msp = sp
}

// UseProcessStack sets CONTROL.SPSEL. It has no effect in handler mode.
func (c *Core) UseProcessStack() {
	c.step(stepCycles)
	if len(c.active) == 0 {
		c.spsel = true
	}
}

func (c *Core) SaveRegisters() kernel.SavedRegs {
	c.step(stepCycles)
	var regs kernel.SavedRegs
	copy(regs[:], c.r[4:12])
	return regs
}

func (c *Core) RestoreRegisters(regs kernel.SavedRegs) {
	c.step(stepCycles)
	copy(c.r[4:12], regs[:])
}

// DisableInterrupts is CPSID i preceded by a read of PRIMASK.
func (c *Core) DisableInterrupts() uint32 {
	c.step(stepCycles)
	prev := c.primask
	c.primask = 1
	return prev
}

// RestoreInterrupts writes PRIMASK. Exceptions left pending by the masked
// region are taken before it returns.
func (c *Core) RestoreInterrupts(state uint32) {
	c.primask = state & 1
	c.step(stepCycles)
}

// WaitForInterrupt sleeps until an exception is taken or becomes pending.
// Sleep skips straight to the next SysTick wrap.
func (c *Core) WaitForInterrupt() {
	entries := c.entries
	c.step(stepCycles)
	for c.entries == entries && c.pending == 0 {
		if c.timerOn() {
			if c.nextTick > c.cycles {
				c.cycles = c.nextTick
			}
		} else {
			c.sleep()
		}
		c.step(0)
	}
}

// sleep blocks until an external request arrives.
func (c *Core) sleep() {
	select {
	case <-c.wake:
	case <-c.ctx.Done():
		c.stop(c.ctx.Err())
	}
}

func (c *Core) InstallVectors(v kernel.Vectors) {
	c.step(stepCycles)
	c.vectors = v
}

func (c *Core) EnableFaults() { cortexm.EnableFaults(c) }

func (c *Core) StartTimer(reload uint32) { cortexm.StartSysTick(c, reload) }

// PendSwitch sets PendSV pending; it is taken as soon as the execution
// priority allows.
func (c *Core) PendSwitch() {
	cortexm.PendSV(c)
	c.step(stepCycles)
}

func (c *Core) FaultStatus() kernel.FaultStatus {
	var st kernel.FaultStatus
	st.CFSR, st.HFSR, st.MMFAR, st.BFAR = cortexm.ReadFaults(c)
	return st
}

// CodeAddress places fn in the code region and returns its Thumb address.
func (c *Core) CodeAddress(fn func()) uint32 {
	addr := codeBase + uint32(len(c.code))*codeStride
	c.code = append(c.code, fn)
	return addr | 1
}

// Halt stops the core. Boot returns the fault being handled, if any.
func (c *Core) Halt() {
	c.stop(c.haltResult())
}
