package kernel

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNilPort      = errors.New("kernel: nil port")
	ErrTooManyTasks = errors.New("kernel: too many tasks")
	ErrNilEntry     = errors.New("kernel: nil task entry")
	ErrTickReload   = errors.New("kernel: tick reload out of range")
)

// MaxTickReload is the widest SysTick reload value (24 bits).
const MaxTickReload = 0x00FFFFFF

// Config configures a Scheduler.
type Config struct {
	// Layout is the stack map. Its Tasks field is derived from Tasks.
	Layout Layout
	// TickReload is the SysTick reload value: cycles per tick minus one.
	TickReload uint32
	// Tasks are the non-idle tasks in table order starting at index 1.
	Tasks []Task

	Observer Observer
	Reporter FaultReporter
}

// Scheduler is the task table plus the scheduler-global state: the index of
// the task whose context is on the processor and the tick counter.
//
// All mutation happens in the SysTick and PendSV handlers or under an
// interrupt-masked critical section.
type Scheduler struct {
	port   Port
	layout Layout
	reload uint32
	obs    Observer
	rep    FaultReporter

	tasks   [MaxTasks]TCB
	n       int
	current TaskID
	ticks   Ticks

	reportOnce sync.Once
}

// New builds the task table. Index 0 is the idle task; cfg.Tasks follow.
func New(port Port, cfg Config) (*Scheduler, error) {
	if port == nil {
		return nil, ErrNilPort
	}
	if len(cfg.Tasks) > MaxTasks-1 {
		return nil, fmt.Errorf("%w: %d, max %d", ErrTooManyTasks, len(cfg.Tasks), MaxTasks-1)
	}
	if cfg.TickReload == 0 || cfg.TickReload > MaxTickReload {
		return nil, fmt.Errorf("%w: %d", ErrTickReload, cfg.TickReload)
	}

	layout := cfg.Layout
	layout.Tasks = len(cfg.Tasks) + 1
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		port:   port,
		layout: layout,
		reload: cfg.TickReload,
		obs:    cfg.Observer,
		rep:    cfg.Reporter,
		n:      layout.Tasks,
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}

	s.tasks[IdleTask] = TCB{Name: "idle", Entry: s.idle}
	for i, t := range cfg.Tasks {
		if t.Entry == nil {
			return nil, fmt.Errorf("%w: task %d %q", ErrNilEntry, i+1, t.Name)
		}
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("task%d", i+1)
		}
		s.tasks[i+1] = TCB{Name: name, Entry: t.Entry}
	}
	for id := 0; id < s.n; id++ {
		s.tasks[id].SP = layout.StackTop(TaskID(id))
		s.tasks[id].State = Ready
	}
	s.current = s.first()
	return s, nil
}

// first is the task Start transfers control to.
func (s *Scheduler) first() TaskID {
	if s.n > 1 {
		return 1
	}
	return IdleTask
}

// idle is the fallback task body.
func (s *Scheduler) idle() {
	for {
		s.port.WaitForInterrupt()
	}
}

// Start arms the exception handlers, primes the kernel stack and every task
// stack, starts the tick source, moves thread mode onto the first task's
// process stack and runs that task. It does not return.
func (s *Scheduler) Start() {
	s.boot()
	s.enter()
}

// enter runs the current task's body. A task that returns halts the system.
func (s *Scheduler) enter() {
	s.tasks[s.current].Entry()

	s.fail(FaultReport{Kind: FaultUsage, Reason: "task returned"})
}

// boot performs every Start step up to the jump into the first task.
func (s *Scheduler) boot() {
	mask := s.port.DisableInterrupts()
	defer s.port.RestoreInterrupts(mask)

	s.port.InstallVectors(Vectors{
		SysTick: s.Tick,
		PendSV:  s.Switch,
		Fault:   s.HandleFault,

		Reschedule: s.Reschedule,
		Enter:      s.enter,
	})
	s.port.EnableFaults()
	s.port.SetMSP(s.layout.KernelTop())

	for id := 0; id < s.n; id++ {
		s.initStack(TaskID(id))
	}

	s.port.StartTimer(s.reload)

	s.current = s.first()
	s.port.SetPSP(s.tasks[s.current].SP)
	s.port.UseProcessStack()
}

// initStack primes a task stack with its initial trap frame and points the
// TCB at the frame.
func (s *Scheduler) initStack(id TaskID) {
	t := &s.tasks[id]
	frame := InitialFrame(s.port.CodeAddress(t.Entry))

	sp := s.layout.StackTop(id) - FrameBytes
	for i, w := range frame.Words() {
		s.port.Store(sp+uint32(i)*4, w)
	}
	t.SP = sp
}

// Tick is the SysTick handler: advance time, wake the tasks whose wake tick
// is now, and request a context switch.
func (s *Scheduler) Tick() {
	cs := enterCritical(s.port)
	defer cs.exit()

	s.ticks++
	s.obs.Ticked(s.ticks)
	for id := 1; id < s.n; id++ {
		t := &s.tasks[id]
		if t.State == Blocked && t.WakeTick == s.ticks {
			t.State = Ready
			t.WakeTick = 0
			s.obs.Woke(TaskID(id), s.ticks)
		}
	}
	s.port.PendSwitch()
}

// selectNext makes the next READY non-idle task after current the current
// task, falling back to idle. The scan ends on current itself, so a lone
// READY task keeps the processor.
func (s *Scheduler) selectNext() {
	for i := 1; i <= s.n; i++ {
		id := TaskID((int(s.current) + i) % s.n)
		if id != IdleTask && s.tasks[id].State == Ready {
			s.current = id
			return
		}
	}
	s.current = IdleTask
}

// Switch is the PendSV handler. It pushes R4-R11 onto the outgoing task's
// process stack, reschedules, and pops the incoming task's R4-R11; the
// exception return then restores the hardware-saved half.
func (s *Scheduler) Switch() {
	cs := enterCritical(s.port)
	defer cs.exit()

	sp := pushSaved(s.port, s.port.PSP(), s.port.SaveRegisters())
	regs, sp := popSaved(s.port, s.reschedule(sp))
	s.port.RestoreRegisters(regs)
	s.port.SetPSP(sp)
}

// Reschedule records sp as the outgoing task's stack pointer, selects the
// next task and returns its stack pointer. Ports that save R4-R11 in
// assembly call it between the push and the pop.
func (s *Scheduler) Reschedule(sp uint32) uint32 {
	cs := enterCritical(s.port)
	defer cs.exit()
	return s.reschedule(sp)
}

func (s *Scheduler) reschedule(sp uint32) uint32 {
	prev := s.current
	s.tasks[prev].SP = sp
	s.selectNext()
	s.obs.Switched(prev, s.current, s.ticks)
	return s.tasks[s.current].SP
}

// Delay blocks the calling task for n ticks and returns once it has been
// scheduled again. Delay(0) yields: the caller stays READY and competes in
// the switch it requests. Calls from the idle task are ignored.
func (s *Scheduler) Delay(n Ticks) {
	cs := enterCritical(s.port)
	defer cs.exit()

	if s.current == IdleTask {
		return
	}
	if n > 0 {
		t := &s.tasks[s.current]
		t.WakeTick = s.ticks + n
		t.State = Blocked
		s.obs.Blocked(s.current, s.ticks, t.WakeTick)
	}
	s.port.PendSwitch()
}

// Now returns the tick counter.
func (s *Scheduler) Now() Ticks {
	cs := enterCritical(s.port)
	defer cs.exit()
	return s.ticks
}

// Current returns the index of the running task.
func (s *Scheduler) Current() TaskID {
	cs := enterCritical(s.port)
	defer cs.exit()
	return s.current
}

// State returns the run state and wake tick of a task.
func (s *Scheduler) State(id TaskID) (TaskState, Ticks) {
	cs := enterCritical(s.port)
	defer cs.exit()
	t := &s.tasks[id]
	return t.State, t.WakeTick
}

// Len returns the number of table entries, idle included.
func (s *Scheduler) Len() int { return s.n }

// Layout returns the stack map in use.
func (s *Scheduler) Layout() Layout { return s.layout }

// TaskInfo is a copy of one TCB for diagnostics.
type TaskInfo struct {
	ID       TaskID
	Name     string
	State    TaskState
	WakeTick Ticks
	SP       uint32
}

// Snapshot is a consistent copy of the scheduler state.
type Snapshot struct {
	Now     Ticks
	Current TaskID
	Tasks   []TaskInfo
}

// Snapshot copies the scheduler state under the critical section.
func (s *Scheduler) Snapshot() Snapshot {
	cs := enterCritical(s.port)
	defer cs.exit()

	snap := Snapshot{Now: s.ticks, Current: s.current, Tasks: make([]TaskInfo, s.n)}
	for id := 0; id < s.n; id++ {
		t := &s.tasks[id]
		snap.Tasks[id] = TaskInfo{ID: TaskID(id), Name: t.Name, State: t.State, WakeTick: t.WakeTick, SP: t.SP}
	}
	return snap
}
