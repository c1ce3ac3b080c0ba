//go:build !tinygo

package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tickos/hal"
	"tickos/hal/vcore"
	"tickos/kernel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.CPUHz != 16_000_000 || cfg.TickHz != 1000 {
		t.Fatalf("clock = %d/%d, want 16000000/1000", cfg.CPUHz, cfg.TickHz)
	}
	if cfg.SRAMBase != kernel.DefaultSRAMBase || cfg.SRAMSize != kernel.DefaultSRAMSize {
		t.Fatalf("sram = %#x+%#x", cfg.SRAMBase, cfg.SRAMSize)
	}
	want := []TaskConfig{
		{Name: "blink-green", Channel: hal.LEDGreen, Period: 1000},
		{Name: "blink-orange", Channel: hal.LEDOrange, Period: 2000},
		{Name: "blink-red", Channel: hal.LEDRed, Period: 4000},
		{Name: "blink-blue", Channel: hal.LEDBlue, Period: 8000},
	}
	if len(cfg.Tasks) != len(want) {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	for i := range want {
		if cfg.Tasks[i] != want[i] {
			t.Fatalf("task %d = %+v, want %+v", i, cfg.Tasks[i], want[i])
		}
	}
	if reload, err := cfg.TickReload(); err != nil || reload != 15999 {
		t.Fatalf("TickReload() = %d, %v, want 15999", reload, err)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := ParseConfig([]byte("tick_hz: 500\ntasks:\n  - name: a\n    channel: 2\n    period: 3\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.TickHz != 500 || cfg.CPUHz != 16_000_000 {
		t.Fatalf("clock = %d/%d", cfg.CPUHz, cfg.TickHz)
	}
	if len(cfg.Tasks) != 1 || cfg.Tasks[0] != (TaskConfig{Name: "a", Channel: 2, Period: 3}) {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	if got := cfg.Names(); len(got) != 2 || got[0] != "idle" || got[1] != "a" {
		t.Fatalf("Names() = %v", got)
	}

	if _, err := ParseConfig(nil); err != nil {
		t.Fatalf("ParseConfig(empty) = %v", err)
	}
	if _, err := ParseConfig([]byte("tick_rate: 5\n")); err == nil {
		t.Fatal("ParseConfig accepted an unknown field")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte("cpu_hz: 8000000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CPUHz != 8_000_000 {
		t.Fatalf("cpu_hz = %d", cfg.CPUHz)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig(missing) = %v, want ErrNotExist", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"slow clock", func(c *Config) { c.CPUHz = 500 }, "cannot tick"},
		{"reload too wide", func(c *Config) { c.CPUHz, c.TickHz = 168_000_000, 1 }, "cannot tick"},
		{"too many tasks", func(c *Config) {
			c.Tasks = append(c.Tasks, TaskConfig{Name: "extra", Period: 1})
		}, "max 4"},
		{"unnamed", func(c *Config) { c.Tasks[1].Name = "" }, "no name"},
		{"duplicate", func(c *Config) { c.Tasks[1].Name = c.Tasks[0].Name }, "duplicate"},
		{"idle name", func(c *Config) { c.Tasks[0].Name = "idle" }, "duplicate"},
		{"channel", func(c *Config) { c.Tasks[2].Channel = hal.LEDCount }, "channel"},
		{"period", func(c *Config) { c.Tasks[3].Period = 0 }, "period"},
		{"stacks", func(c *Config) { c.SRAMSize = 4096 }, "layout:"},
		{"frame", func(c *Config) { c.TaskStack = 32 }, "frame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLayoutLines(t *testing.T) {
	cfg := DefaultConfig()
	lines := LayoutLines(cfg.Names(), cfg.Layout())
	if len(lines) != 6 {
		t.Fatalf("LayoutLines = %q, want 6 lines", lines)
	}
	if !strings.Contains(lines[1], "blink-green") || !strings.Contains(lines[1], "[0x2003fc00, 0x20040000)") {
		t.Fatalf("task 1 line = %q", lines[1])
	}
	if !strings.Contains(lines[5], "kernel") || !strings.Contains(lines[5], " 2048 bytes") {
		t.Fatalf("kernel line = %q", lines[5])
	}
}

type countDelayer struct {
	calls []kernel.Ticks
	stop  int
}

func (d *countDelayer) Delay(n kernel.Ticks) {
	d.calls = append(d.calls, n)
	if len(d.calls) == d.stop {
		panic(errStop)
	}
}

var errStop = errors.New("stop")

type recordOutputs struct {
	sets []bool
}

func (o *recordOutputs) Count() int                { return 1 }
func (o *recordOutputs) SetOutput(ch int, on bool) { o.sets = append(o.sets, on) }

func TestBlinkAlternates(t *testing.T) {
	out := &recordOutputs{}
	d := &countDelayer{stop: 4}
	func() {
		defer func() {
			if r := recover(); r != errStop {
				t.Fatalf("recover() = %v", r)
			}
		}()
		Blink(d, out, 0, 7)
	}()
	want := []bool{true, false, true, false}
	if len(out.sets) != len(want) {
		t.Fatalf("SetOutput calls = %v, want %v", out.sets, want)
	}
	for i := range want {
		if out.sets[i] != want[i] {
			t.Fatalf("SetOutput calls = %v, want %v", out.sets, want)
		}
	}
	for _, n := range d.calls {
		if n != 7 {
			t.Fatalf("Delay calls = %v, want all 7", d.calls)
		}
	}
}

func TestNewOnHostBlinksAtPeriods(t *testing.T) {
	h, err := hal.NewHost(hal.HostConfig{MaxTicks: 12, Log: io.Discard})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Tasks = []TaskConfig{
		{Name: "a", Channel: hal.LEDGreen, Period: 1},
		{Name: "b", Channel: hal.LEDOrange, Period: 2},
		{Name: "c", Channel: hal.LEDRed, Period: 4},
	}
	s, err := New(h, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Boot(ctx, s.Start); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	const horizon = 10
	byChannel := map[int][]hal.OutputEvent{}
	for _, e := range h.Transitions() {
		if e.Tick < horizon {
			byChannel[e.Channel] = append(byChannel[e.Channel], e)
		}
	}
	for _, tc := range cfg.Tasks {
		got := byChannel[tc.Channel]
		want := (horizon + int(tc.Period) - 1) / int(tc.Period)
		if len(got) != want {
			t.Fatalf("%s: %d transitions before tick %d, want %d: %+v", tc.Name, len(got), horizon, want, got)
		}
		for i, e := range got {
			if e.Tick != uint64(i)*uint64(tc.Period) || e.On != (i%2 == 0) {
				t.Fatalf("%s: transition %d = %+v", tc.Name, i, e)
			}
		}
	}
	if n := len(byChannel[hal.LEDBlue]); n != 0 {
		t.Fatalf("blue changed %d times with no task on it", n)
	}
}

type lineLog struct{ lines []string }

func (l *lineLog) WriteLineString(s string) { l.lines = append(l.lines, s) }

type logHAL struct {
	*hal.Host
	log *lineLog
}

func (h logHAL) Logger() hal.Logger { return h.log }

func TestNewLogsBannerAndFaults(t *testing.T) {
	host, err := hal.NewHost(hal.HostConfig{Log: io.Discard})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	h := logHAL{Host: host, log: &lineLog{}}
	cfg := DefaultConfig()
	s, err := New(h, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(h.log.lines) != 7 || !strings.HasPrefix(h.log.lines[0], "tickos ") {
		t.Fatalf("banner = %q", h.log.lines)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- host.Boot(ctx, s.Start) }()
	for host.Core().Ticks() < 2 {
		time.Sleep(time.Millisecond)
	}
	host.Core().InjectFault(kernel.FaultBus)

	var fe *vcore.FaultError
	if err := <-errc; !errors.As(err, &fe) || fe.Kind != kernel.FaultBus {
		t.Fatalf("Boot = %v, want BusFault", err)
	}
	found := false
	for _, l := range h.log.lines[7:] {
		if strings.Contains(l, "BusFault") {
			found = true
		}
	}
	if !found {
		t.Fatalf("fault not logged: %q", h.log.lines[7:])
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	h, err := hal.NewHost(hal.HostConfig{Log: io.Discard})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	cfg := DefaultConfig()
	cfg.TickHz = 0
	if _, err := New(h, cfg, nil); err == nil {
		t.Fatal("New accepted a zero tick rate")
	}
}
