package vcore

import (
	"runtime"
	"strings"

	"tickos/hal/cortexm"
	"tickos/kernel"
)

// thread is a thread-mode execution context. While suspended it is
// represented on its stack by its resume token.
type thread struct {
	token  uint32
	resume chan struct{}
}

func (c *Core) newThread() *thread {
	t := &thread{
		token:  tokenBase + c.nextTID*tokenStride,
		resume: make(chan struct{}, 1),
	}
	c.nextTID++
	c.threads[t.token] = t
	return t
}

// runThread is the goroutine body of a thread context.
func (c *Core) runThread(t *thread, fn func()) {
	c.park(t)
	defer func() {
		if r := recover(); r != nil {
			c.panicked(r)
		}
	}()
	fn()
	c.returned()
}

// switchTo hands the baton to next and parks the current context until it
// is handed back.
func (c *Core) switchTo(next *thread) {
	prev := c.cur
	if next == prev {
		return
	}
	c.cur = next
	next.resume <- struct{}{}
	c.park(prev)
}

func (c *Core) park(t *thread) {
	select {
	case <-t.resume:
	case <-c.halted:
		exitThread()
	}
}

func exitThread() {
	runtime.Goexit()
}

// resumeAt continues thread mode at pc.
func (c *Core) resumeAt(pc uint32) {
	if t, ok := c.threads[pc]; ok {
		c.switchTo(t)
		return
	}
	if fn, ok := c.codeAt(pc); ok {
		t := c.newThread()
		go c.runThread(t, fn)
		c.switchTo(t)
		return
	}
	c.fetchFault(pc)
}

func (c *Core) codeAt(pc uint32) (func(), bool) {
	off := pc&^1 - codeBase
	if pc < codeBase || off%codeStride != 0 {
		return nil, false
	}
	i := int(off / codeStride)
	if i >= len(c.code) {
		return nil, false
	}
	return c.code[i], true
}

// returned handles a context whose Go body returned: execution branches to
// LR, which for a primed task is an EXC_RETURN pattern and not executable.
func (c *Core) returned() {
	target := c.r[14]
	if target&1 == 0 {
		c.branch = target
		c.raise(kernel.FaultUsage, cortexm.UFSRInvState, 0)
	}
	pc := target &^ 1
	if fn, ok := c.codeAt(pc); ok {
		fn()
		c.returned()
		return
	}
	c.fetchFault(pc)
}

// panicked turns a Go runtime panic in the running context into the fault
// the equivalent instruction would raise.
func (c *Core) panicked(r any) {
	c.panicCause = r
	kind, bits, addr := classify(r)
	c.raise(kind, bits, addr)
}

func classify(r any) (kernel.FaultKind, uint32, uint32) {
	err, ok := r.(runtime.Error)
	if !ok {
		return kernel.FaultUsage, cortexm.UFSRUndefInstr, 0
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "divide by zero"):
		return kernel.FaultUsage, cortexm.UFSRDivByZero, 0
	case strings.Contains(msg, "nil pointer"):
		return kernel.FaultMemManage, cortexm.MMFSRDAccViol | cortexm.MMFSRMMARValid, 0
	case strings.Contains(msg, "out of range"):
		return kernel.FaultBus, cortexm.BFSRPreciseErr, 0
	default:
		return kernel.FaultUsage, cortexm.UFSRUndefInstr, 0
	}
}
