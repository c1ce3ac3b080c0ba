//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	tty "github.com/mattn/go-tty"

	"tickos/kernel"
)

var errQuit = errors.New("monitor: quit")

// monitor is the interactive debug console of a headless run.
type monitor struct {
	host  *Host
	sched *kernel.Scheduler
	out   io.Writer
}

const monitorHelp = `commands:
  status              task table snapshot
  leds                current LED states
  fault mem|bus|usage|hard
                      raise a fault in the running task
  quit                stop the core`

// exec runs one command line. It returns errQuit for quit.
func (m *monitor) exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "help", "?":
		fmt.Fprintln(m.out, monitorHelp)
	case "status":
		var snap kernel.Snapshot
		if err := m.host.Core().Inject(func() { snap = m.sched.Snapshot() }); err != nil {
			return fmt.Errorf("monitor: status: %w", err)
		}
		for _, l := range snapshotLines(snap) {
			fmt.Fprintln(m.out, l)
		}
	case "leds":
		var b strings.Builder
		for ch, on := range m.host.Levels() {
			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintf(&b, "%s=%s ", LEDNames[ch], state)
		}
		fmt.Fprintln(m.out, strings.TrimSpace(b.String()))
	case "fault":
		if len(args) != 2 {
			return fmt.Errorf("monitor: usage: fault mem|bus|usage|hard")
		}
		kind, ok := faultKinds[args[1]]
		if !ok {
			return fmt.Errorf("monitor: unknown fault kind %q", args[1])
		}
		m.host.Core().InjectFault(kind)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("monitor: unknown command %q (try help)", args[0])
	}
	return nil
}

var faultKinds = map[string]kernel.FaultKind{
	"mem":   kernel.FaultMemManage,
	"bus":   kernel.FaultBus,
	"usage": kernel.FaultUsage,
	"hard":  kernel.FaultHard,
}

func snapshotLines(s kernel.Snapshot) []string {
	lines := []string{fmt.Sprintf("tick %d, current task %d", s.Now, s.Current)}
	for _, t := range s.Tasks {
		mark := " "
		if t.ID == s.Current {
			mark = "*"
		}
		line := fmt.Sprintf("%s %d %-8s %-7s sp=%#08x", mark, t.ID, t.Name, t.State, t.SP)
		if t.State == kernel.Blocked {
			line += fmt.Sprintf(" wake=%d", t.WakeTick)
		}
		lines = append(lines, line)
	}
	return lines
}

// lineReader is the part of *tty.TTY the monitor reads with.
type lineReader interface {
	ReadString() (string, error)
}

// serve executes lines until quit, a read error or the core stopping.
// stop is called on quit.
func (m *monitor) serve(ctx context.Context, in lineReader, stop func()) error {
	for {
		fmt.Fprint(m.out, "> ")
		line, err := in.ReadString()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-m.host.Core().Done():
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				stop()
				return nil
			}
			return fmt.Errorf("monitor: read: %w", err)
		}
		switch err := m.exec(line); {
		case errors.Is(err, errQuit):
			stop()
			return nil
		case err != nil:
			fmt.Fprintln(m.out, err)
		}
	}
}

// serveTTY runs the monitor on the controlling terminal.
func (m *monitor) serveTTY(ctx context.Context, stop func()) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("monitor: open tty: %w", err)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-m.host.Core().Done():
		case <-done:
		}
		t.Close()
	}()
	m.out = t.Output()
	return m.serve(ctx, t, stop)
}
