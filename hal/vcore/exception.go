package vcore

import (
	"tickos/hal/cortexm"
	"tickos/kernel"
)

// Exception numbers.
const (
	excHardFault  = 3
	excMemManage  = 4
	excBusFault   = 5
	excUsageFault = 6
	excDebugMon   = 12
	excPendSV     = 14
	excSysTick    = 15
)

// threadPriority is the execution priority of thread mode with no
// exception active.
const threadPriority = 256

func excBit(exc int) uint32 { return 1 << uint(exc) }

// priority returns the fixed priority of an exception; lower preempts.
func priority(exc int) int {
	switch exc {
	case excHardFault:
		return -1
	case excMemManage, excBusFault, excUsageFault:
		return 0
	case excDebugMon:
		return 1
	case excSysTick:
		return 2
	case excPendSV:
		return 3
	default:
		return threadPriority
	}
}

func faultException(kind kernel.FaultKind) int {
	switch kind {
	case kernel.FaultMemManage:
		return excMemManage
	case kernel.FaultBus:
		return excBusFault
	case kernel.FaultUsage:
		return excUsageFault
	default:
		return excHardFault
	}
}

func faultKind(exc int) kernel.FaultKind {
	switch exc {
	case excMemManage:
		return kernel.FaultMemManage
	case excBusFault:
		return kernel.FaultBus
	case excUsageFault:
		return kernel.FaultUsage
	default:
		return kernel.FaultHard
	}
}

func faultEnable(kind kernel.FaultKind) uint32 {
	switch kind {
	case kernel.FaultMemManage:
		return cortexm.SHCSRMemFaultEna
	case kernel.FaultBus:
		return cortexm.SHCSRBusFaultEna
	case kernel.FaultUsage:
		return cortexm.SHCSRUsgFaultEna
	default:
		return 0
	}
}

func isFault(exc int) bool {
	return exc >= excHardFault && exc <= excUsageFault
}

// asyncOrder lists the asynchronous exceptions in priority order.
var asyncOrder = [...]int{excDebugMon, excSysTick, excPendSV}

// execPriority returns the priority the processor currently executes at.
func (c *Core) execPriority() int {
	p := threadPriority
	for _, exc := range c.active {
		if q := priority(exc); q < p {
			p = q
		}
	}
	if c.primask&1 != 0 && p > 0 {
		p = 0
	}
	return p
}

func (c *Core) nextPending(limit int) (int, bool) {
	for _, exc := range asyncOrder {
		if c.pending&excBit(exc) != 0 && priority(exc) < limit {
			return exc, true
		}
	}
	return 0, false
}

// step is one instruction boundary: time advances, external requests are
// polled and any pending exception that can preempt is taken.
func (c *Core) step(cycles uint64) {
	c.cycles += cycles
	c.advanceTimer()
	if c.extPending.Load() {
		c.pollExternal()
	}
	for {
		exc, ok := c.nextPending(c.execPriority())
		if !ok {
			return
		}
		c.take(exc)
	}
}

// take enters exc, runs its handler and any exception that tail-chains
// after it, then performs the exception return. When the return unstacks
// another thread context, take returns only once this context is resumed.
func (c *Core) take(exc int) {
	c.pending &^= excBit(exc)
	excReturn, stacked := c.enter(exc)
	for {
		c.active = append(c.active, exc)
		c.entries++
		if !stacked && !isFault(exc) {
			c.raise(kernel.FaultBus, cortexm.BFSRStkErr, 0)
		}
		c.runHandler(exc, excReturn)
		c.active = c.active[:len(c.active)-1]

		next, ok := c.nextPending(c.execPriority())
		if !ok {
			break
		}
		c.pending &^= excBit(next)
		exc = next
	}
	c.unstack(excReturn)
}

// framePC is the PC stacked for the context being interrupted.
func (c *Core) framePC() uint32 {
	switch {
	case c.branch != 0:
		return c.branch
	case len(c.active) > 0:
		return handlerToken
	default:
		return c.cur.token
	}
}

// enter stacks the hardware frame and returns the EXC_RETURN value and
// whether stacking succeeded.
func (c *Core) enter(exc int) (uint32, bool) {
	var excReturn uint32
	sp := &c.msp
	switch {
	case len(c.active) > 0:
		excReturn = kernel.ExcReturnHandlerMSP
	case c.spsel:
		excReturn = kernel.ExcReturnThreadPSP
		sp = &c.psp
	default:
		excReturn = kernel.ExcReturnThreadMSP
	}

	f := kernel.ExceptionFrame{
		R0: c.r[0], R1: c.r[1], R2: c.r[2], R3: c.r[3],
		R12: c.r[12],
		LR:  c.r[14],
		PC:  c.framePC(),
		PSR: c.xpsr,
	}
	c.branch = 0
	*sp -= kernel.ExceptionWords * 4
	ok := c.pushFrame(*sp, f)

	c.r[14] = excReturn
	c.xpsr = c.xpsr&^cortexm.ICSRVectActive | uint32(exc)
	return excReturn, ok
}

func (c *Core) pushFrame(sp uint32, f kernel.ExceptionFrame) bool {
	i, ok := c.frameIndex(sp)
	if !ok {
		return false
	}
	w := f.Words()
	copy(c.sram[i:i+kernel.ExceptionWords], w[:])
	return true
}

func (c *Core) popFrame(sp uint32) (kernel.ExceptionFrame, bool) {
	i, ok := c.frameIndex(sp)
	if !ok {
		return kernel.ExceptionFrame{}, false
	}
	var w [kernel.ExceptionWords]uint32
	copy(w[:], c.sram[i:i+kernel.ExceptionWords])
	return kernel.ExceptionFrameFromWords(w), true
}

func (c *Core) frameIndex(sp uint32) (int, bool) {
	if sp%4 != 0 {
		return 0, false
	}
	i, ok := c.sramIndex(sp)
	if !ok || i+kernel.ExceptionWords > len(c.sram) {
		return 0, false
	}
	return i, true
}

func (c *Core) runHandler(exc int, excReturn uint32) {
	var h func()
	switch exc {
	case excSysTick:
		h = c.vectors.SysTick
	case excPendSV:
		h = c.vectors.PendSV
	case excDebugMon:
		h = c.debugMon
	default:
		if c.vectors.Fault == nil {
			break
		}
		c.vectors.Fault(faultKind(exc), excReturn)
		c.stop(c.haltResult())
	}
	if h == nil {
		c.raise(kernel.FaultHard, cortexm.HFSRVectTbl, 0)
	}
	h()
}

// unstack performs the exception return described by excReturn.
func (c *Core) unstack(excReturn uint32) {
	sp := &c.msp
	toThread := true
	switch excReturn {
	case kernel.ExcReturnHandlerMSP:
		toThread = false
	case kernel.ExcReturnThreadMSP:
	case kernel.ExcReturnThreadPSP:
		sp = &c.psp
	default:
		c.raise(kernel.FaultUsage, cortexm.UFSRInvPC, 0)
	}
	if toThread == (len(c.active) > 0) {
		c.raise(kernel.FaultUsage, cortexm.UFSRInvPC, 0)
	}

	f, ok := c.popFrame(*sp)
	if !ok {
		c.raise(kernel.FaultBus, cortexm.BFSRUnstkErr, 0)
	}
	*sp += kernel.ExceptionWords * 4
	if toThread {
		c.spsel = excReturn == kernel.ExcReturnThreadPSP
	}

	c.r[0], c.r[1], c.r[2], c.r[3] = f.R0, f.R1, f.R2, f.R3
	c.r[12] = f.R12
	c.r[14] = f.LR
	c.xpsr = f.PSR
	if f.PSR&kernel.PSRThumb == 0 {
		c.branch = f.PC
		c.raise(kernel.FaultUsage, cortexm.UFSRInvState, 0)
	}

	if !toThread {
		if f.PC != handlerToken {
			c.fetchFault(f.PC)
		}
		return
	}
	c.resumeAt(f.PC)
}

// fetchFault raises the fault for executing from pc.
func (c *Core) fetchFault(pc uint32) {
	c.branch = pc
	if pc >= cortexm.PPBBase {
		c.raise(kernel.FaultMemManage, cortexm.MMFSRIAccViol, 0)
	}
	c.raise(kernel.FaultBus, cortexm.BFSRIBusErr, 0)
}

// raise takes a synchronous fault. A configurable fault that is disabled or
// cannot preempt escalates to HardFault; a fault while HardFault is active
// locks the core up. raise does not return.
func (c *Core) raise(kind kernel.FaultKind, bits, addr uint32) {
	if kind == kernel.FaultHard {
		c.hfsr |= bits
	} else {
		c.cfsr |= bits
	}
	if bits&cortexm.MMFSRMMARValid != 0 && kind == kernel.FaultMemManage {
		c.mmfar = addr
	}
	if bits&cortexm.BFSRBFARValid != 0 && kind == kernel.FaultBus {
		c.bfar = addr
	}

	exc := faultException(kind)
	if kind != kernel.FaultHard {
		if c.shcsr&faultEnable(kind) == 0 || priority(exc) >= c.execPriority() {
			exc = excHardFault
			c.hfsr |= cortexm.HFSRForced
		}
	}

	fe := &FaultError{
		Kind:   faultKind(exc),
		Status: c.faultStatus(),
		PC:     c.framePC(),
		Cause:  c.panicCause,
	}
	c.lastFault = fe
	if priority(excHardFault) >= c.execPriority() {
		fe.Lockup = true
		c.stop(fe)
	}
	c.take(exc)
	c.stop(fe)
}

func (c *Core) faultStatus() kernel.FaultStatus {
	return kernel.FaultStatus{CFSR: c.cfsr, HFSR: c.hfsr, MMFAR: c.mmfar, BFAR: c.bfar}
}

func (c *Core) haltResult() error {
	if c.lastFault != nil {
		return c.lastFault
	}
	return ErrHalted
}
