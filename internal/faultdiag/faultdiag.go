// Package faultdiag turns a kernel fault report into readable log lines.
package faultdiag

import (
	"fmt"
	"sync"

	"tickos/hal/cortexm"
	"tickos/kernel"
)

// Logger is the sink for diagnostic lines.
type Logger interface {
	WriteLineString(s string)
}

type cause struct {
	bit  uint32
	text string
}

var cfsrCauses = []cause{
	{cortexm.MMFSRIAccViol, "MemManage: instruction access violation"},
	{cortexm.MMFSRDAccViol, "MemManage: data access violation"},
	{cortexm.MMFSRMUnstkErr, "MemManage: fault on exception return unstacking"},
	{cortexm.MMFSRMStkErr, "MemManage: fault on exception entry stacking"},
	{cortexm.MMFSRMLSPErr, "MemManage: fault on lazy FP state preservation"},
	{cortexm.BFSRIBusErr, "BusFault: instruction bus error"},
	{cortexm.BFSRPreciseErr, "BusFault: precise data bus error"},
	{cortexm.BFSRImpreciseErr, "BusFault: imprecise data bus error"},
	{cortexm.BFSRUnstkErr, "BusFault: fault on exception return unstacking"},
	{cortexm.BFSRStkErr, "BusFault: fault on exception entry stacking"},
	{cortexm.BFSRLSPErr, "BusFault: fault on lazy FP state preservation"},
	{cortexm.UFSRUndefInstr, "UsageFault: undefined instruction"},
	{cortexm.UFSRInvState, "UsageFault: invalid processor state"},
	{cortexm.UFSRInvPC, "UsageFault: invalid PC load by EXC_RETURN"},
	{cortexm.UFSRNoCP, "UsageFault: no coprocessor"},
	{cortexm.UFSRUnaligned, "UsageFault: unaligned access"},
	{cortexm.UFSRDivByZero, "UsageFault: divide by zero"},
}

var hfsrCauses = []cause{
	{cortexm.HFSRVectTbl, "HardFault: vector table read"},
	{cortexm.HFSRForced, "HardFault: escalated from a configurable fault"},
	{cortexm.HFSRDebugEvt, "HardFault: debug event"},
}

// Causes decodes every set status bit into a description, MemManage first,
// then BusFault, UsageFault and HardFault.
func Causes(st kernel.FaultStatus) []string {
	var out []string
	for _, c := range cfsrCauses {
		if st.CFSR&c.bit != 0 {
			out = append(out, c.text)
		}
	}
	for _, c := range hfsrCauses {
		if st.HFSR&c.bit != 0 {
			out = append(out, c.text)
		}
	}
	return out
}

// Lines renders a report.
func Lines(r kernel.FaultReport) []string {
	lines := []string{
		fmt.Sprintf("fault: %s in task %d (%s) at tick %d", r.Kind, r.Task, r.TaskName, r.Tick),
	}
	if r.Reason != "" {
		lines = append(lines, "fault: "+r.Reason)
	}
	lines = append(lines, fmt.Sprintf("fault: CFSR=%#08x HFSR=%#08x EXC_RETURN=%#08x", r.Status.CFSR, r.Status.HFSR, r.ExcReturn))
	for _, c := range Causes(r.Status) {
		lines = append(lines, "fault: "+c)
	}
	if r.Status.CFSR&cortexm.MMFSRMMARValid != 0 {
		lines = append(lines, fmt.Sprintf("fault: MMFAR=%#08x", r.Status.MMFAR))
	}
	if r.Status.CFSR&cortexm.BFSRBFARValid != 0 {
		lines = append(lines, fmt.Sprintf("fault: BFAR=%#08x", r.Status.BFAR))
	}

	if !r.FrameValid {
		if r.Reason == "" {
			lines = append(lines, fmt.Sprintf("fault: frame at %#08x unreadable", r.FrameSP))
		}
		return lines
	}
	f := r.Frame
	lines = append(lines,
		fmt.Sprintf("fault: frame at %#08x", r.FrameSP),
		fmt.Sprintf("fault:   xpsr=%#08x pc=%#08x lr=%#08x r12=%#08x", f.PSR, f.PC, f.LR, f.R12),
		fmt.Sprintf("fault:   r3=%#08x r2=%#08x r1=%#08x r0=%#08x", f.R3, f.R2, f.R1, f.R0),
	)
	return lines
}

// Reporter logs the first fault it receives and keeps it for inspection.
type Reporter struct {
	log Logger

	mu   sync.Mutex
	last *kernel.FaultReport
}

// New returns a Reporter writing to log.
func New(log Logger) *Reporter {
	return &Reporter{log: log}
}

// ReportFault implements kernel.FaultReporter.
func (r *Reporter) ReportFault(fr kernel.FaultReport) {
	r.mu.Lock()
	if r.last == nil {
		r.last = &fr
	}
	r.mu.Unlock()

	if r.log == nil {
		return
	}
	for _, line := range Lines(fr) {
		r.log.WriteLineString(line)
	}
}

// Last returns the recorded report.
func (r *Reporter) Last() (kernel.FaultReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return kernel.FaultReport{}, false
	}
	return *r.last, true
}
