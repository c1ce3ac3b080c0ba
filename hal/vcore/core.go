// Package vcore is a host model of the parts of an ARMv7-M core that a
// preemptive kernel touches: the two stack pointers, PRIMASK, the exception
// model with its hardware-stacked frame, SysTick, the SCB fault registers
// and a word-addressed bus.
//
// Go code stands in for instructions. Each bus access and each special
// register access is an instruction boundary where time advances and
// pending exceptions are taken. Thread contexts are goroutines and exactly
// one of them runs at a time; which one resumes after an exception return
// is decided by the PC the core unstacks.
package vcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tickos/hal/cortexm"
	"tickos/kernel"
)

var (
	ErrHalted     = errors.New("vcore: halted")
	ErrLockup     = errors.New("vcore: lockup")
	ErrBooted     = errors.New("vcore: already booted")
	ErrMapOverlap = errors.New("vcore: device overlaps mapped memory")
)

// Code and resume-token address ranges. Entry points live in flash; a
// suspended thread is represented on its stack by a resume token.
const (
	codeBase     = 0x08000100
	codeStride   = 0x20
	tokenBase    = 0x08100000
	tokenStride  = 0x10
	handlerToken = 0x080FFF00
)

// Cycle cost of one instruction boundary.
const stepCycles = 1

// resetLR is the link register value out of reset.
const resetLR = 0xFFFFFFFF

// FaultError is returned by Boot when the core stopped because of a fault.
type FaultError struct {
	Kind   kernel.FaultKind
	Status kernel.FaultStatus
	// PC is the address stacked for the faulting context.
	PC uint32
	// Lockup is set when a fault was raised while HardFault was active.
	Lockup bool
	// Cause is the Go runtime panic a fault was derived from, if any.
	Cause any
}

func (e *FaultError) Error() string {
	if e.Lockup {
		return fmt.Sprintf("vcore: lockup during %s (CFSR=%#08x HFSR=%#08x)", e.Kind, e.Status.CFSR, e.Status.HFSR)
	}
	return fmt.Sprintf("vcore: %s at pc %#08x (CFSR=%#08x HFSR=%#08x)", e.Kind, e.PC, e.Status.CFSR, e.Status.HFSR)
}

func (e *FaultError) Unwrap() error {
	if e.Lockup {
		return ErrLockup
	}
	return nil
}

// Pacer slows the core to wall-clock time. Wait is called each time SysTick
// wraps, with the number of wraps since boot.
type Pacer interface {
	Wait(ctx context.Context, tick uint64) error
}

// Config configures a Core.
type Config struct {
	SRAMBase uint32
	SRAMSize uint32

	// MaxTicks stops the core cleanly before SysTick wrap MaxTicks+1.
	// Zero runs until a fault, Halt or cancellation.
	MaxTicks uint64

	Pacer Pacer
}

// Device is a memory-mapped peripheral. Offsets are relative to its base.
type Device interface {
	Load(offset uint32) uint32
	Store(offset uint32, v uint32)
}

type mapping struct {
	base, size uint32
	dev        Device
}

// Core is one virtual processor.
type Core struct {
	cfg  Config
	sram []uint32

	devices []mapping

	// Register file. r[13..15] are not used; the banked SPs live in msp/psp.
	r       [16]uint32
	xpsr    uint32
	msp     uint32
	psp     uint32
	spsel   bool
	primask uint32

	// Exception state.
	vectors kernel.Vectors
	pending uint32
	active  []int
	entries uint64

	// System control registers.
	shcsr uint32
	ccr   uint32
	cfsr  uint32
	hfsr  uint32
	mmfar uint32
	bfar  uint32

	// SysTick.
	systCSR  uint32
	systRVR  uint32
	cycles   uint64
	nextTick uint64
	ticks    atomic.Uint64

	// Code and thread contexts.
	code    []func()
	threads map[uint32]*thread
	nextTID uint32
	cur     *thread
	branch  uint32

	lastFault  *FaultError
	panicCause any

	// External requests, guarded by extMu.
	extMu      sync.Mutex
	injects    []injectReq
	drill      kernel.FaultKind
	stopReq    error
	extPending atomic.Bool
	wake       chan struct{}
	debugQueue []injectReq

	ctx     context.Context
	booted  atomic.Bool
	halted  chan struct{}
	result  error
	stopped bool
}

// New returns a core in its reset state.
func New(cfg Config) (*Core, error) {
	if cfg.SRAMSize == 0 || cfg.SRAMSize%4 != 0 || cfg.SRAMBase%4 != 0 {
		return nil, fmt.Errorf("vcore: sram %#x+%#x not word aligned", cfg.SRAMBase, cfg.SRAMSize)
	}
	if uint64(cfg.SRAMBase)+uint64(cfg.SRAMSize) > cortexm.PPBBase {
		return nil, fmt.Errorf("vcore: sram %#x+%#x reaches the private peripheral bus", cfg.SRAMBase, cfg.SRAMSize)
	}
	c := &Core{
		cfg:     cfg,
		sram:    make([]uint32, cfg.SRAMSize/4),
		threads: make(map[uint32]*thread),
		wake:    make(chan struct{}, 1),
		halted:  make(chan struct{}),
		ctx:     context.Background(),
	}
	c.msp = cfg.SRAMBase + cfg.SRAMSize
	c.xpsr = kernel.PSRThumb
	c.r[14] = resetLR
	return c, nil
}

// Map attaches a device at [base, base+size).
func (c *Core) Map(base, size uint32, d Device) error {
	hi := uint64(base) + uint64(size)
	if size == 0 || hi > 1<<32 {
		return fmt.Errorf("vcore: bad device range %#x+%#x", base, size)
	}
	overlap := func(lo2, hi2 uint64) bool { return uint64(base) < hi2 && lo2 < hi }
	if overlap(uint64(c.cfg.SRAMBase), uint64(c.cfg.SRAMBase)+uint64(c.cfg.SRAMSize)) ||
		overlap(cortexm.PPBBase, 1<<32) {
		return fmt.Errorf("%w: %#x+%#x", ErrMapOverlap, base, size)
	}
	for _, m := range c.devices {
		if overlap(uint64(m.base), uint64(m.base)+uint64(m.size)) {
			return fmt.Errorf("%w: %#x+%#x", ErrMapOverlap, base, size)
		}
	}
	c.devices = append(c.devices, mapping{base: base, size: size, dev: d})
	return nil
}

// Boot runs reset as the first thread context, in privileged thread mode
// on the main stack, and blocks until the core stops. It returns nil when
// the tick budget is spent, ctx.Err() on cancellation and a *FaultError or
// ErrHalted when software halted the core.
func (c *Core) Boot(ctx context.Context, reset func()) error {
	if !c.booted.CompareAndSwap(false, true) {
		return ErrBooted
	}
	c.ctx = ctx

	t := c.newThread()
	c.cur = t
	go c.runThread(t, reset)
	t.resume <- struct{}{}

	select {
	case <-c.halted:
	case <-ctx.Done():
		c.requestStop(ctx.Err())
		<-c.halted
	}
	return c.result
}

// Done is closed once the core has stopped.
func (c *Core) Done() <-chan struct{} { return c.halted }

// Ticks returns the number of SysTick wraps since boot. It is safe to call
// from any goroutine.
func (c *Core) Ticks() uint64 { return c.ticks.Load() }

// Cycles returns the cycle counter. Like Reg and SetReg it may only be
// called from code running on the core.
func (c *Core) Cycles() uint64 { return c.cycles }

// Reg returns general register n (0-12 or 14).
func (c *Core) Reg(n int) uint32 { return c.r[n] }

// SetReg writes general register n (0-12 or 14).
func (c *Core) SetReg(n int, v uint32) { c.r[n] = v }

// stop ends the run. It must be called by the goroutine holding the baton
// and does not return.
func (c *Core) stop(err error) {
	if !c.stopped {
		c.stopped = true
		c.result = err
		close(c.halted)
	}
	exitThread()
}

func (c *Core) requestStop(err error) {
	c.extMu.Lock()
	if c.stopReq == nil {
		c.stopReq = err
	}
	c.extMu.Unlock()
	c.signal()
}

func (c *Core) signal() {
	c.extPending.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
