package kernel

// Frame geometry. A switched-out task's stack holds, from low to high
// address, the software-saved block followed by the hardware-saved block.
const (
	SavedWords     = 8 // R4-R11, pushed by the trap
	ExceptionWords = 8 // R0-R3, R12, LR, PC, xPSR, pushed on exception entry
	FrameWords     = SavedWords + ExceptionWords
	FrameBytes     = FrameWords * 4
)

const (
	// ExcReturnThreadPSP returns to thread mode on the process stack.
	ExcReturnThreadPSP uint32 = 0xFFFFFFFD

	// ExcReturnThreadMSP returns to thread mode on the main stack.
	ExcReturnThreadMSP uint32 = 0xFFFFFFF9

	// ExcReturnHandlerMSP returns to handler mode on the main stack.
	ExcReturnHandlerMSP uint32 = 0xFFFFFFF1

	// excReturnPSPBit selects the process stack in an EXC_RETURN value.
	excReturnPSPBit uint32 = 1 << 2

	// PSRThumb is the execution state bit; it must be set on ARMv7-M.
	PSRThumb uint32 = 1 << 24
)

// SavedRegs holds R4-R11 in ascending register order.
type SavedRegs [SavedWords]uint32

// ExceptionFrame is the block stacked by the core on exception entry.
type ExceptionFrame struct {
	R0, R1, R2, R3 uint32
	R12            uint32
	LR             uint32
	PC             uint32
	PSR            uint32
}

// Words returns the frame in stack order (lowest address first).
func (f ExceptionFrame) Words() [ExceptionWords]uint32 {
	return [ExceptionWords]uint32{f.R0, f.R1, f.R2, f.R3, f.R12, f.LR, f.PC, f.PSR}
}

// ExceptionFrameFromWords is the inverse of ExceptionFrame.Words.
func ExceptionFrameFromWords(w [ExceptionWords]uint32) ExceptionFrame {
	return ExceptionFrame{R0: w[0], R1: w[1], R2: w[2], R3: w[3], R12: w[4], LR: w[5], PC: w[6], PSR: w[7]}
}

// TrapFrame is the full saved context of a switched-out task.
type TrapFrame struct {
	Saved     SavedRegs
	Exception ExceptionFrame
}

// Words returns the frame in stack order (lowest address first).
func (f TrapFrame) Words() [FrameWords]uint32 {
	var w [FrameWords]uint32
	copy(w[:SavedWords], f.Saved[:])
	ew := f.Exception.Words()
	copy(w[SavedWords:], ew[:])
	return w
}

// TrapFrameFromWords is the inverse of TrapFrame.Words.
func TrapFrameFromWords(w [FrameWords]uint32) TrapFrame {
	var f TrapFrame
	copy(f.Saved[:], w[:SavedWords])
	var ew [ExceptionWords]uint32
	copy(ew[:], w[SavedWords:])
	f.Exception = ExceptionFrameFromWords(ew)
	return f
}

// InitialFrame returns the context of a task that has never run, shaped as
// if it had been switched out once: general registers zero, LR holding the
// thread/PSP return sentinel, PC at the entry and the Thumb bit set.
func InitialFrame(entry uint32) TrapFrame {
	return TrapFrame{
		Exception: ExceptionFrame{
			LR:  ExcReturnThreadPSP,
			PC:  entry &^ 1,
			PSR: PSRThumb,
		},
	}
}

// pushSaved stores regs below sp with STMDB semantics and returns the new sp.
func pushSaved(m Memory, sp uint32, regs SavedRegs) uint32 {
	sp -= SavedWords * 4
	for i, v := range regs {
		m.Store(sp+uint32(i)*4, v)
	}
	return sp
}

// popSaved loads the block at sp with LDMIA semantics and returns the
// registers and the new sp.
func popSaved(m Memory, sp uint32) (SavedRegs, uint32) {
	var regs SavedRegs
	for i := range regs {
		regs[i] = m.Load(sp + uint32(i)*4)
	}
	return regs, sp + SavedWords*4
}

// readExceptionFrame loads a hardware-stacked frame at sp.
func readExceptionFrame(m Memory, sp uint32) ExceptionFrame {
	var w [ExceptionWords]uint32
	for i := range w {
		w[i] = m.Load(sp + uint32(i)*4)
	}
	return ExceptionFrameFromWords(w)
}
