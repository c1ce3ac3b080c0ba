package kernel

// Observer receives scheduler events. Methods run in exception or
// critical-section context and must not block or call back into the
// scheduler.
type Observer interface {
	Ticked(now Ticks)
	Woke(id TaskID, now Ticks)
	Blocked(id TaskID, now, until Ticks)
	Switched(from, to TaskID, now Ticks)
}

type nopObserver struct{}

func (nopObserver) Ticked(Ticks)                   {}
func (nopObserver) Woke(TaskID, Ticks)             {}
func (nopObserver) Blocked(TaskID, Ticks, Ticks)   {}
func (nopObserver) Switched(TaskID, TaskID, Ticks) {}
