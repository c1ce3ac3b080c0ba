package kernel

import "fmt"

// Default board memory map (STM32F4, 256 KiB SRAM).
const (
	DefaultSRAMBase         = 0x20000000
	DefaultSRAMSize         = 256 * 1024
	DefaultTaskStackBytes   = 1024
	DefaultKernelStackBytes = 2048
)

// Region is a half-open address range [Low, High).
type Region struct {
	Low  uint32
	High uint32
}

// Size returns the region length in bytes.
func (r Region) Size() uint32 { return r.High - r.Low }

// Overlaps reports whether two regions share at least one byte.
func (r Region) Overlaps(o Region) bool {
	return r.Low < o.High && o.Low < r.High
}

// Contains reports whether addr lies inside the region.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Low && addr < r.High
}

func (r Region) String() string {
	return fmt.Sprintf("[%#08x, %#08x)", r.Low, r.High)
}

// Layout carves the task and kernel stacks out of SRAM.
//
// Stacks grow downward and are stacked from the end of SRAM: task 1 owns the
// highest region, then tasks 2..n-1, then the idle task, then the kernel
// (exception) stack.
type Layout struct {
	SRAMBase         uint32
	SRAMSize         uint32
	TaskStackBytes   uint32
	KernelStackBytes uint32

	// Tasks is the number of table entries, idle task included.
	Tasks int
}

// DefaultLayout returns the STM32F4 board layout for n table entries.
func DefaultLayout(n int) Layout {
	return Layout{
		SRAMBase:         DefaultSRAMBase,
		SRAMSize:         DefaultSRAMSize,
		TaskStackBytes:   DefaultTaskStackBytes,
		KernelStackBytes: DefaultKernelStackBytes,
		Tasks:            n,
	}
}

// SRAM returns the whole SRAM range.
func (l Layout) SRAM() Region {
	return Region{Low: l.SRAMBase, High: l.SRAMBase + l.SRAMSize}
}

// slot returns the position of a task stack counted downward from SRAM end.
func (l Layout) slot(id TaskID) uint32 {
	if id == IdleTask {
		return uint32(l.Tasks - 1)
	}
	return uint32(id - 1)
}

// StackTop returns the initial (highest) stack address of a task.
func (l Layout) StackTop(id TaskID) uint32 {
	return l.SRAM().High - l.slot(id)*l.TaskStackBytes
}

// Region returns the stack region owned by a task.
func (l Layout) Region(id TaskID) Region {
	top := l.StackTop(id)
	return Region{Low: top - l.TaskStackBytes, High: top}
}

// KernelTop returns the initial main (kernel) stack pointer.
func (l Layout) KernelTop() uint32 {
	return l.SRAM().High - uint32(l.Tasks)*l.TaskStackBytes
}

// KernelRegion returns the kernel stack region.
func (l Layout) KernelRegion() Region {
	top := l.KernelTop()
	return Region{Low: top - l.KernelStackBytes, High: top}
}

// Validate checks that every stack is aligned, holds a primed frame and
// fits inside SRAM without overlapping another stack.
func (l Layout) Validate() error {
	if l.Tasks < 1 || l.Tasks > MaxTasks {
		return fmt.Errorf("layout: %d tasks, want 1..%d", l.Tasks, MaxTasks)
	}
	if l.SRAMBase%8 != 0 || l.SRAMSize%8 != 0 {
		return fmt.Errorf("layout: sram %#x+%#x not 8-byte aligned", l.SRAMBase, l.SRAMSize)
	}
	if uint64(l.SRAMBase)+uint64(l.SRAMSize) > 1<<32 {
		return fmt.Errorf("layout: sram %#x+%#x exceeds the address space", l.SRAMBase, l.SRAMSize)
	}
	if l.TaskStackBytes%8 != 0 || l.KernelStackBytes%8 != 0 {
		return fmt.Errorf("layout: stack sizes %d/%d not multiples of 8", l.TaskStackBytes, l.KernelStackBytes)
	}
	if l.TaskStackBytes < FrameBytes {
		return fmt.Errorf("layout: task stack %d bytes cannot hold a %d byte frame", l.TaskStackBytes, FrameBytes)
	}
	if l.KernelStackBytes < FrameBytes {
		return fmt.Errorf("layout: kernel stack %d bytes cannot hold a %d byte frame", l.KernelStackBytes, FrameBytes)
	}
	need := uint64(l.Tasks)*uint64(l.TaskStackBytes) + uint64(l.KernelStackBytes)
	if need > uint64(l.SRAMSize) {
		return fmt.Errorf("layout: stacks need %d bytes, sram has %d", need, l.SRAMSize)
	}

	regions := l.Regions()
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Overlaps(regions[j]) {
				return fmt.Errorf("layout: stack %s overlaps %s", regions[i], regions[j])
			}
		}
	}
	return nil
}

// Regions returns the task stack regions in table order followed by the
// kernel stack region.
func (l Layout) Regions() []Region {
	out := make([]Region, 0, l.Tasks+1)
	for id := 0; id < l.Tasks; id++ {
		out = append(out, l.Region(TaskID(id)))
	}
	return append(out, l.KernelRegion())
}
