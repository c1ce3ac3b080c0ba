package kernel

import "testing"

const fakeCodeBase = 0x08000100

type errHalted struct{}

// fakePort is a register file and sparse memory with no execution model.
// Tests stand in for the core by calling trap and driving the handlers.
type fakePort struct {
	mem map[uint32]uint32

	psp, msp    uint32
	processSP   bool
	regs        SavedRegs
	primask     uint32
	maskDepth   int
	maxMaskDeep int
	pending     bool
	timer       uint32
	faultsOn    bool
	vectors     Vectors
	status      FaultStatus
	codeCalls   int
	waits       int
	halts       int
}

func newFakePort() *fakePort {
	return &fakePort{mem: make(map[uint32]uint32)}
}

func (p *fakePort) Load(addr uint32) uint32 { return p.mem[addr] }

func (p *fakePort) Store(addr uint32, v uint32) { p.mem[addr] = v }

func (p *fakePort) PSP() uint32                     { return p.psp }
func (p *fakePort) SetPSP(sp uint32)                { p.psp = sp }
func (p *fakePort) MSP() uint32                     { return p.msp }
func (p *fakePort) SetMSP(sp uint32)                { p.msp = sp }
func (p *fakePort) UseProcessStack()                { p.processSP = true }
func (p *fakePort) SaveRegisters() SavedRegs        { return p.regs }
func (p *fakePort) RestoreRegisters(regs SavedRegs) { p.regs = regs }
func (p *fakePort) WaitForInterrupt()               { p.waits++ }
func (p *fakePort) InstallVectors(v Vectors)        { p.vectors = v }
func (p *fakePort) EnableFaults()                   { p.faultsOn = true }
func (p *fakePort) StartTimer(reload uint32)        { p.timer = reload }
func (p *fakePort) PendSwitch()                     { p.pending = true }
func (p *fakePort) FaultStatus() FaultStatus        { return p.status }

func (p *fakePort) DisableInterrupts() uint32 {
	prev := p.primask
	p.primask = 1
	p.maskDepth++
	if p.maskDepth > p.maxMaskDeep {
		p.maxMaskDeep = p.maskDepth
	}
	return prev
}

func (p *fakePort) RestoreInterrupts(state uint32) {
	p.maskDepth--
	p.primask = state
}

// CodeAddress hands out Thumb addresses in call order.
func (p *fakePort) CodeAddress(func()) uint32 {
	addr := uint32(fakeCodeBase+p.codeCalls*0x10) | 1
	p.codeCalls++
	return addr
}

func (p *fakePort) Halt() {
	p.halts++
	panic(errHalted{})
}

// trap emulates a PendSV taken from thread mode: the core stacks a hardware
// frame on the PSP, runs the handler and unstacks the incoming frame. It
// returns the popped PC.
func (p *fakePort) trap(s *Scheduler, pc uint32) uint32 {
	p.pending = false
	sp := p.psp - ExceptionWords*4
	f := ExceptionFrame{LR: ExcReturnThreadPSP, PC: pc, PSR: PSRThumb}
	for i, w := range f.Words() {
		p.Store(sp+uint32(i)*4, w)
	}
	p.psp = sp

	s.Switch()

	in := readExceptionFrame(p, p.psp)
	p.psp += ExceptionWords * 4
	return in.PC
}

// expectHalt runs fn and reports whether it ended in Halt.
func expectHalt(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if _, ok := r.(errHalted); !ok {
			t.Fatalf("recover() = %v, want halt", r)
		}
	}()
	fn()
}

type recordingObserver struct {
	ticks    []Ticks
	woke     []TaskID
	blocked  []TaskID
	switches [][2]TaskID
}

func (o *recordingObserver) Ticked(now Ticks)              { o.ticks = append(o.ticks, now) }
func (o *recordingObserver) Woke(id TaskID, _ Ticks)       { o.woke = append(o.woke, id) }
func (o *recordingObserver) Blocked(id TaskID, _, _ Ticks) { o.blocked = append(o.blocked, id) }
func (o *recordingObserver) Switched(from, to TaskID, _ Ticks) {
	o.switches = append(o.switches, [2]TaskID{from, to})
}

type recordingReporter struct {
	reports []FaultReport
}

func (r *recordingReporter) ReportFault(fr FaultReport) { r.reports = append(r.reports, fr) }

func nop() {}

func newTestScheduler(t *testing.T, tasks int, obs Observer, rep FaultReporter) (*Scheduler, *fakePort) {
	t.Helper()
	p := newFakePort()
	cfg := Config{
		Layout:     DefaultLayout(0),
		TickReload: 15999,
		Observer:   obs,
		Reporter:   rep,
	}
	for i := 0; i < tasks; i++ {
		cfg.Tasks = append(cfg.Tasks, Task{Entry: nop})
	}
	s, err := New(p, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, p
}
