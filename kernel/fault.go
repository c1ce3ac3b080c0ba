package kernel

// FaultReport describes a fatal exception or a detected contract violation.
type FaultReport struct {
	Kind      FaultKind
	Status    FaultStatus
	ExcReturn uint32

	Task     TaskID
	TaskName string
	Tick     Ticks

	// FrameSP is the stack pointer the hardware frame was read from.
	FrameSP    uint32
	Frame      ExceptionFrame
	FrameValid bool

	// Reason is set when the violation was detected in software.
	Reason string
}

// FaultReporter receives the fatal report. It must not block or panic.
type FaultReporter interface {
	ReportFault(r FaultReport)
}

// HandleFault is the handler for HardFault, MemManage, BusFault and
// UsageFault. It locates the faulting context's hardware frame through the
// stack selected by excReturn, reports once and halts.
func (s *Scheduler) HandleFault(kind FaultKind, excReturn uint32) {
	r := FaultReport{
		Kind:      kind,
		Status:    s.port.FaultStatus(),
		ExcReturn: excReturn,
	}

	sp := s.port.MSP()
	if excReturn&excReturnPSPBit != 0 {
		sp = s.port.PSP()
	}
	r.FrameSP = sp
	if s.frameReadable(sp) {
		r.Frame = readExceptionFrame(s.port, sp)
		r.FrameValid = true
	}
	s.fail(r)
}

// frameReadable reports whether an exception frame at sp lies in SRAM.
func (s *Scheduler) frameReadable(sp uint32) bool {
	sram := s.layout.SRAM()
	return sp%4 == 0 && sp >= sram.Low && uint64(sp)+ExceptionWords*4 <= uint64(sram.High)
}

func (s *Scheduler) fail(r FaultReport) {
	r.Task = s.current
	r.TaskName = s.tasks[s.current].Name
	r.Tick = s.ticks

	s.reportOnce.Do(func() {
		if s.rep != nil {
			s.rep.ReportFault(r)
		}
	})
	s.port.Halt()
}
