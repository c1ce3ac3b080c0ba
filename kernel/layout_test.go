package kernel

import "testing"

func TestDefaultLayoutAddresses(t *testing.T) {
	l := DefaultLayout(MaxTasks)
	end := uint32(DefaultSRAMBase + DefaultSRAMSize)

	if got := l.StackTop(1); got != end {
		t.Fatalf("StackTop(1) = %#x, want %#x", got, end)
	}
	for id := TaskID(2); id < MaxTasks; id++ {
		want := end - uint32(id-1)*DefaultTaskStackBytes
		if got := l.StackTop(id); got != want {
			t.Fatalf("StackTop(%d) = %#x, want %#x", id, got, want)
		}
	}
	if got, want := l.StackTop(IdleTask), end-4*DefaultTaskStackBytes; got != want {
		t.Fatalf("StackTop(idle) = %#x, want %#x", got, want)
	}
	if got, want := l.KernelTop(), end-5*DefaultTaskStackBytes; got != want {
		t.Fatalf("KernelTop = %#x, want %#x", got, want)
	}
	if got := l.KernelRegion().Size(); got != DefaultKernelStackBytes {
		t.Fatalf("kernel stack size = %d, want %d", got, DefaultKernelStackBytes)
	}
}

func TestLayoutRegionsDisjoint(t *testing.T) {
	for n := 1; n <= MaxTasks; n++ {
		l := DefaultLayout(n)
		if err := l.Validate(); err != nil {
			t.Fatalf("Validate(%d tasks): %v", n, err)
		}
		regions := l.Regions()
		if len(regions) != n+1 {
			t.Fatalf("len(Regions) = %d, want %d", len(regions), n+1)
		}
		sram := l.SRAM()
		for i, r := range regions {
			if r.Low < sram.Low || r.High > sram.High {
				t.Fatalf("%d tasks: region %d %s outside %s", n, i, r, sram)
			}
			for j := i + 1; j < len(regions); j++ {
				if r.Overlaps(regions[j]) {
					t.Fatalf("%d tasks: %s overlaps %s", n, r, regions[j])
				}
			}
		}
	}
}

func TestLayoutValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Layout)
	}{
		{name: "no tasks", edit: func(l *Layout) { l.Tasks = 0 }},
		{name: "too many tasks", edit: func(l *Layout) { l.Tasks = MaxTasks + 1 }},
		{name: "misaligned base", edit: func(l *Layout) { l.SRAMBase += 4 }},
		{name: "misaligned stack", edit: func(l *Layout) { l.TaskStackBytes = 1020 }},
		{name: "frame does not fit", edit: func(l *Layout) { l.TaskStackBytes = FrameBytes - 8 }},
		{name: "kernel stack too small", edit: func(l *Layout) { l.KernelStackBytes = 8 }},
		{name: "sram too small", edit: func(l *Layout) { l.SRAMSize = 4096 }},
		{name: "past address space", edit: func(l *Layout) { l.SRAMBase = 0xFFFFF000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLayout(MaxTasks)
			tt.edit(&l)
			if err := l.Validate(); err == nil {
				t.Fatalf("Validate(%+v) = nil, want error", l)
			}
		})
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{Low: 0x100, High: 0x200}
	if !r.Contains(0x100) || !r.Contains(0x1FF) || r.Contains(0x200) || r.Contains(0xFF) {
		t.Fatalf("Contains boundaries wrong for %s", r)
	}
	if r.Overlaps(Region{Low: 0x200, High: 0x300}) {
		t.Fatal("adjacent regions overlap")
	}
	if !r.Overlaps(Region{Low: 0x1FC, High: 0x300}) {
		t.Fatal("intersecting regions do not overlap")
	}
}
