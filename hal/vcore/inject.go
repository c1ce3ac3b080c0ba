package vcore

import (
	"tickos/hal/cortexm"
	"tickos/kernel"
)

// drillBusAddr is the address reported for an injected bus fault.
const drillBusAddr = 0x60000000

type injectReq struct {
	fn   func()
	done chan struct{}
}

// Inject runs fn on the core in DebugMonitor context, above SysTick and
// PendSV, so it observes kernel state between handlers. It blocks until fn
// has run and returns ErrHalted if the core stops first.
func (c *Core) Inject(fn func()) error {
	req := injectReq{fn: fn, done: make(chan struct{})}
	c.extMu.Lock()
	c.injects = append(c.injects, req)
	c.extMu.Unlock()
	c.signal()

	select {
	case <-req.done:
		return nil
	case <-c.halted:
		return ErrHalted
	}
}

// InjectFault makes the next thread-mode instruction raise a fault of the
// given kind.
func (c *Core) InjectFault(kind kernel.FaultKind) {
	c.extMu.Lock()
	c.drill = kind
	c.extMu.Unlock()
	c.signal()
}

func (c *Core) pollExternal() {
	if !c.extPending.Swap(false) {
		return
	}
	c.extMu.Lock()
	stopErr := c.stopReq
	reqs := c.injects
	c.injects = nil
	drill := c.drill
	if drill != 0 && len(c.active) == 0 && c.primask == 0 {
		c.drill = 0
	} else if drill != 0 {
		drill = 0
		c.extPending.Store(true)
	}
	c.extMu.Unlock()

	if stopErr != nil {
		c.stop(stopErr)
	}
	if len(reqs) > 0 {
		c.debugQueue = append(c.debugQueue, reqs...)
		c.pending |= excBit(excDebugMon)
	}
	if drill != 0 {
		c.raiseDrill(drill)
	}
}

func (c *Core) debugMon() {
	q := c.debugQueue
	c.debugQueue = nil
	for _, req := range q {
		req.fn()
		close(req.done)
	}
}

func (c *Core) raiseDrill(kind kernel.FaultKind) {
	switch kind {
	case kernel.FaultMemManage:
		c.raise(kind, cortexm.MMFSRDAccViol|cortexm.MMFSRMMARValid, 0)
	case kernel.FaultBus:
		c.raise(kind, cortexm.BFSRPreciseErr|cortexm.BFSRBFARValid, drillBusAddr)
	case kernel.FaultUsage:
		c.raise(kind, cortexm.UFSRUndefInstr, 0)
	default:
		c.raise(kernel.FaultHard, cortexm.HFSRVectTbl, 0)
	}
}
