package faultdiag

import (
	"strings"
	"testing"

	"tickos/hal/cortexm"
	"tickos/kernel"
)

type lineLog struct {
	lines []string
}

func (l *lineLog) WriteLineString(s string) { l.lines = append(l.lines, s) }

func TestCausesDecodesEveryBit(t *testing.T) {
	st := kernel.FaultStatus{
		CFSR: cortexm.UFSRDivByZero | cortexm.BFSRPreciseErr | cortexm.MMFSRDAccViol,
		HFSR: cortexm.HFSRForced,
	}
	got := Causes(st)
	want := []string{
		"MemManage: data access violation",
		"BusFault: precise data bus error",
		"UsageFault: divide by zero",
		"HardFault: escalated from a configurable fault",
	}
	if len(got) != len(want) {
		t.Fatalf("Causes() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Causes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCausesEmpty(t *testing.T) {
	if got := Causes(kernel.FaultStatus{}); len(got) != 0 {
		t.Fatalf("Causes(zero) = %q, want none", got)
	}
}

func TestReporterLogsFrame(t *testing.T) {
	log := &lineLog{}
	r := New(log)
	r.ReportFault(kernel.FaultReport{
		Kind:       kernel.FaultBus,
		Status:     kernel.FaultStatus{CFSR: cortexm.BFSRPreciseErr | cortexm.BFSRBFARValid, BFAR: 0x60000000},
		Task:       2,
		TaskName:   "orange",
		Tick:       7,
		FrameSP:    0x2003FBC0,
		Frame:      kernel.ExceptionFrame{PC: 0x08000400, PSR: kernel.PSRThumb},
		FrameValid: true,
	})

	out := strings.Join(log.lines, "\n")
	for _, want := range []string{
		"BusFault in task 2 (orange) at tick 7",
		"BFAR=0x60000000",
		"pc=0x08000400",
		"xpsr=0x01000000",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	last, ok := r.Last()
	if !ok || last.Task != 2 {
		t.Fatalf("Last() = %+v, %v, want task 2", last, ok)
	}
}

func TestReporterKeepsFirst(t *testing.T) {
	r := New(nil)
	if _, ok := r.Last(); ok {
		t.Fatal("Last() ok before any report")
	}
	r.ReportFault(kernel.FaultReport{Kind: kernel.FaultUsage})
	r.ReportFault(kernel.FaultReport{Kind: kernel.FaultHard})
	last, _ := r.Last()
	if last.Kind != kernel.FaultUsage {
		t.Fatalf("Last().Kind = %v, want UsageFault", last.Kind)
	}
}

func TestLinesUnreadableFrame(t *testing.T) {
	lines := Lines(kernel.FaultReport{Kind: kernel.FaultHard, FrameSP: 0xDEADBEEF})
	if !strings.Contains(strings.Join(lines, "\n"), "unreadable") {
		t.Fatalf("Lines() = %q, want unreadable frame note", lines)
	}
}
