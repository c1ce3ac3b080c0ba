package cortexm

import "testing"

type mapBus map[uint32]uint32

func (m mapBus) Load(addr uint32) uint32    { return m[addr] }
func (m mapBus) Store(addr uint32, v uint32) { m[addr] = v }

func TestReloadFor(t *testing.T) {
	tests := []struct {
		cpuHz, tickHz uint32
		want          uint32
		ok            bool
	}{
		{cpuHz: 16_000_000, tickHz: 1000, want: 15999, ok: true},
		{cpuHz: 16_000_000, tickHz: 1, want: 15_999_999, ok: true},
		{cpuHz: 168_000_000, tickHz: 1, want: 167_999_999, ok: false},
		{cpuHz: 1000, tickHz: 1000, want: 0, ok: false},
		{cpuHz: 16_000_000, tickHz: 0, want: 0, ok: false},
	}
	for _, tt := range tests {
		got, ok := ReloadFor(tt.cpuHz, tt.tickHz)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ReloadFor(%d, %d) = %d, %v, want %d, %v", tt.cpuHz, tt.tickHz, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStartSysTick(t *testing.T) {
	b := mapBus{SysTickCVR: 1234}
	StartSysTick(b, 0x1FFFFFF)

	if got := b[SysTickRVR]; got != MaxReload {
		t.Fatalf("RVR = %#x, want %#x", got, MaxReload)
	}
	if got := b[SysTickCVR]; got != 0 {
		t.Fatalf("CVR = %d, want 0", got)
	}
	want := CSREnable | CSRTickInt | CSRClkSource
	if got := b[SysTickCSR]; got != want {
		t.Fatalf("CSR = %#x, want %#x", got, want)
	}

	StopSysTick(b)
	if b[SysTickCSR]&CSREnable != 0 {
		t.Fatal("StopSysTick left the counter enabled")
	}
}

func TestEnableFaultsAndPendSV(t *testing.T) {
	b := mapBus{}
	EnableFaults(b)
	if got := b[SHCSR]; got != SHCSRFaultEnables {
		t.Fatalf("SHCSR = %#x, want %#x", got, SHCSRFaultEnables)
	}
	if b[CCR]&CCRDiv0Trp == 0 {
		t.Fatal("CCR.DIV_0_TRP not set")
	}

	PendSV(b)
	if !PendSVPending(b) {
		t.Fatal("PendSV not pending after PendSV")
	}
}

func TestSetSystemPriorities(t *testing.T) {
	b := mapBus{SHPR3: 0xAAAA1234}
	SetSystemPriorities(b, 0xE0, 0xF0)
	if got := b[SHPR3]; got != 0xE0F01234 {
		t.Fatalf("SHPR3 = %#x, want 0xe0f01234", got)
	}
}
