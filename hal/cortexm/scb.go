package cortexm

// System Control Block registers.
const (
	ICSR  = SCBBase + 0x04
	VTOR  = SCBBase + 0x08
	AIRCR = SCBBase + 0x0C
	SCR   = SCBBase + 0x10
	CCR   = SCBBase + 0x14
	SHPR2 = SCBBase + 0x1C
	SHPR3 = SCBBase + 0x20
	SHCSR = SCBBase + 0x24
	CFSR  = SCBBase + 0x28
	HFSR  = SCBBase + 0x2C
	MMFAR = SCBBase + 0x34
	BFAR  = SCBBase + 0x38
)

// ICSR bits.
const (
	ICSRPendSVSet  uint32 = 1 << 28
	ICSRPendSVClr  uint32 = 1 << 27
	ICSRPendSTSet  uint32 = 1 << 26
	ICSRPendSTClr  uint32 = 1 << 25
	ICSRVectActive uint32 = 0x1FF
)

// CCR bits.
const (
	CCRUnalignTrp uint32 = 1 << 3
	CCRDiv0Trp    uint32 = 1 << 4
)

// SHCSR fault enable bits.
const (
	SHCSRMemFaultEna uint32 = 1 << 16
	SHCSRBusFaultEna uint32 = 1 << 17
	SHCSRUsgFaultEna uint32 = 1 << 18

	SHCSRFaultEnables = SHCSRMemFaultEna | SHCSRBusFaultEna | SHCSRUsgFaultEna
)

// CFSR: MemManage status, byte 0.
const (
	MMFSRIAccViol  uint32 = 1 << 0
	MMFSRDAccViol  uint32 = 1 << 1
	MMFSRMUnstkErr uint32 = 1 << 3
	MMFSRMStkErr   uint32 = 1 << 4
	MMFSRMLSPErr   uint32 = 1 << 5
	MMFSRMMARValid uint32 = 1 << 7
)

// CFSR: BusFault status, byte 1.
const (
	BFSRIBusErr      uint32 = 1 << 8
	BFSRPreciseErr   uint32 = 1 << 9
	BFSRImpreciseErr uint32 = 1 << 10
	BFSRUnstkErr     uint32 = 1 << 11
	BFSRStkErr       uint32 = 1 << 12
	BFSRLSPErr       uint32 = 1 << 13
	BFSRBFARValid    uint32 = 1 << 15
)

// CFSR: UsageFault status, upper half.
const (
	UFSRUndefInstr uint32 = 1 << 16
	UFSRInvState   uint32 = 1 << 17
	UFSRInvPC      uint32 = 1 << 18
	UFSRNoCP       uint32 = 1 << 19
	UFSRUnaligned  uint32 = 1 << 24
	UFSRDivByZero  uint32 = 1 << 25
)

// CFSR field masks.
const (
	MMFSRMask uint32 = 0x000000FF
	BFSRMask  uint32 = 0x0000FF00
	UFSRMask  uint32 = 0xFFFF0000
)

// HFSR bits.
const (
	HFSRVectTbl  uint32 = 1 << 1
	HFSRForced   uint32 = 1 << 30
	HFSRDebugEvt uint32 = 1 << 31
)

// PendSV sets the PendSV exception pending.
func PendSV(b Bus) {
	b.Store(ICSR, ICSRPendSVSet)
}

// PendSVPending reports whether PendSV is pending.
func PendSVPending(b Bus) bool {
	return b.Load(ICSR)&ICSRPendSVSet != 0
}

// EnableFaults routes MemManage, BusFault and UsageFault to their own
// handlers and makes integer divide by zero trap.
func EnableFaults(b Bus) {
	setBits(b, SHCSR, SHCSRFaultEnables)
	setBits(b, CCR, CCRDiv0Trp)
}

// ReadFaults returns CFSR, HFSR, MMFAR and BFAR.
func ReadFaults(b Bus) (cfsr, hfsr, mmfar, bfar uint32) {
	return b.Load(CFSR), b.Load(HFSR), b.Load(MMFAR), b.Load(BFAR)
}

// SetSystemPriorities writes the SysTick and PendSV priority bytes of SHPR3.
// Lower values are more urgent.
func SetSystemPriorities(b Bus, sysTick, pendSV uint8) {
	v := b.Load(SHPR3) &^ 0xFFFF0000
	b.Store(SHPR3, v|uint32(sysTick)<<24|uint32(pendSV)<<16)
}
