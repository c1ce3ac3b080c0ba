package kernel

// Memory is word-addressed access to the target address space.
type Memory interface {
	Load(addr uint32) uint32
	Store(addr uint32, v uint32)
}

// FaultKind identifies a fatal exception.
type FaultKind uint8

const (
	FaultHard FaultKind = iota + 1
	FaultMemManage
	FaultBus
	FaultUsage
)

func (k FaultKind) String() string {
	switch k {
	case FaultHard:
		return "HardFault"
	case FaultMemManage:
		return "MemManage"
	case FaultBus:
		return "BusFault"
	case FaultUsage:
		return "UsageFault"
	default:
		return "unknown fault"
	}
}

// FaultStatus is a snapshot of the fault status and address registers.
type FaultStatus struct {
	CFSR  uint32
	HFSR  uint32
	MMFAR uint32
	BFAR  uint32
}

// Vectors are the exception handlers the scheduler installs.
type Vectors struct {
	SysTick func()
	PendSV  func()
	Fault   func(kind FaultKind, excReturn uint32)

	// Reschedule is PendSV for ports that save R4-R11 themselves.
	Reschedule func(sp uint32) uint32
	// Enter runs the current task. Ports that cannot put a closure's
	// address in a frame's PC point every initial frame at a shim that
	// calls it.
	Enter func()
}

// Port is the processor the scheduler runs on.
//
// Special-register methods mirror MRS/MSR and CPS; the system-control
// methods are register writes into the SCB and SysTick blocks.
type Port interface {
	Memory

	PSP() uint32
	SetPSP(sp uint32)
	MSP() uint32
	SetMSP(sp uint32)
	// UseProcessStack switches thread mode onto the PSP (CONTROL.SPSEL).
	UseProcessStack()

	// SaveRegisters captures the live R4-R11.
	SaveRegisters() SavedRegs
	// RestoreRegisters loads R4-R11.
	RestoreRegisters(regs SavedRegs)

	// DisableInterrupts masks interrupts and returns the previous mask.
	DisableInterrupts() uint32
	// RestoreInterrupts reinstates a mask returned by DisableInterrupts.
	RestoreInterrupts(state uint32)
	WaitForInterrupt()

	InstallVectors(v Vectors)
	EnableFaults()
	// StartTimer programs the SysTick reload value and enables its interrupt.
	StartTimer(reload uint32)
	// PendSwitch sets PendSV pending.
	PendSwitch()
	FaultStatus() FaultStatus

	// CodeAddress returns the address execution starts at for fn.
	CodeAddress(fn func()) uint32

	// Halt stops the processor. It does not return.
	Halt()
}
