//go:build tinygo && baremetal && cortexm

package hal

// The exception entry points live in tinygo_handlers.S; cgo makes TinyGo
// assemble it with the package.
import "C"

import (
	"device/arm"
	"unsafe"

	"tickos/hal/cortexm"
	"tickos/kernel"
)

// Handler priorities in SHPR3. PendSV runs below SysTick so a switch never
// preempts the tick.
const (
	sysTickPriority = 0xE0
	pendSVPriority  = 0xF0
)

// vectors are read by the exception entry points.
var vectors kernel.Vectors

//go:extern tickos_task_shim
var taskShim [0]byte

// armPort is the processor the firmware runs on. Context switches use the
// PendSV_Handler shim, which saves R4-R11 itself and calls Reschedule, so
// the register save and restore methods are never reached.
type armPort struct {
	mmio
}

func (p *armPort) PSP() uint32 {
	return uint32(arm.AsmFull("mrs {}, psp", nil))
}

func (p *armPort) SetPSP(sp uint32) {
	arm.AsmFull("msr psp, {sp}", map[string]interface{}{"sp": sp})
}

func (p *armPort) MSP() uint32 {
	return uint32(arm.AsmFull("mrs {}, msp", nil))
}

// SetMSP takes effect at once, like the CMSIS __set_MSP intrinsic.
func (p *armPort) SetMSP(sp uint32) {
	arm.AsmFull("msr msp, {sp}", map[string]interface{}{"sp": sp})
}

func (p *armPort) UseProcessStack() {
	ctrl := uint32(arm.AsmFull("mrs {}, control", nil))
	arm.AsmFull("msr control, {c}\nisb", map[string]interface{}{"c": ctrl | 2})
}

func (p *armPort) SaveRegisters() kernel.SavedRegs { return kernel.SavedRegs{} }

func (p *armPort) RestoreRegisters(regs kernel.SavedRegs) {}

func (p *armPort) DisableInterrupts() uint32 {
	return uint32(arm.DisableInterrupts())
}

func (p *armPort) RestoreInterrupts(state uint32) {
	arm.EnableInterrupts(uintptr(state))
}

func (p *armPort) WaitForInterrupt() { arm.Asm("wfi") }

func (p *armPort) InstallVectors(v kernel.Vectors) {
	vectors = v
	cortexm.SetSystemPriorities(p.mmio, sysTickPriority, pendSVPriority)
}

func (p *armPort) EnableFaults() { cortexm.EnableFaults(p.mmio) }

func (p *armPort) StartTimer(reload uint32) { cortexm.StartSysTick(p.mmio, reload) }

func (p *armPort) PendSwitch() { cortexm.PendSV(p.mmio) }

func (p *armPort) FaultStatus() kernel.FaultStatus {
	var st kernel.FaultStatus
	st.CFSR, st.HFSR, st.MMFAR, st.BFAR = cortexm.ReadFaults(p.mmio)
	return st
}

// CodeAddress returns the task shim for every entry: a Go closure has no
// address the core can branch to, so the shim asks the scheduler which
// task it is starting.
func (p *armPort) CodeAddress(fn func()) uint32 {
	return uint32(uintptr(unsafe.Pointer(&taskShim))) | 1
}

func (p *armPort) Halt() {
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}

//export SysTick_Handler
func sysTickHandler() {
	vectors.SysTick()
}

//export tickos_reschedule
func rescheduleHandler(sp uint32) uint32 {
	return vectors.Reschedule(sp)
}

//export tickos_fault
func faultHandler(kind, excReturn uint32) {
	vectors.Fault(kernel.FaultKind(kind), excReturn)
}

//export tickos_enter_task
func enterTask() {
	vectors.Enter()
}
