package kernel

const (
	// MaxTasks is the capacity of the task table, idle task included.
	MaxTasks = 5

	// IdleTask is the table index reserved for the idle task.
	IdleTask TaskID = 0
)

// TaskID is an index into the task table.
type TaskID uint8

// Ticks counts scheduler tick periods. It wraps at 2^32.
type Ticks uint32

// TaskState is the run state of a task.
type TaskState uint8

const (
	Ready TaskState = iota
	Blocked
)

func (s TaskState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Entry is a task body. It takes no arguments and must never return.
type Entry func()

// Task describes a non-idle task handed to New.
type Task struct {
	Name  string
	Entry Entry
}

// TCB is a task control block.
//
// SP is written only by the context-switch trap while the task is switched
// out; while the task runs the live PSP owns its stack.
type TCB struct {
	SP       uint32
	State    TaskState
	WakeTick Ticks
	Entry    Entry
	Name     string
}
