package app

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"tickos/hal"
	"tickos/hal/cortexm"
	"tickos/kernel"
)

//go:embed board.yaml
var boardYAML []byte

// TaskConfig is one blinker task.
type TaskConfig struct {
	Name    string `yaml:"name"`
	Channel int    `yaml:"channel"`
	// Period is the half-period in ticks: the LED stays on for Period
	// ticks, then off for Period ticks.
	Period uint32 `yaml:"period"`
}

// Config is the board and task table.
type Config struct {
	CPUHz       uint32       `yaml:"cpu_hz"`
	TickHz      uint32       `yaml:"tick_hz"`
	SRAMBase    uint32       `yaml:"sram_base"`
	SRAMSize    uint32       `yaml:"sram_size"`
	TaskStack   uint32       `yaml:"task_stack"`
	KernelStack uint32       `yaml:"kernel_stack"`
	Tasks       []TaskConfig `yaml:"tasks"`
}

// DefaultConfig returns the embedded board configuration.
func DefaultConfig() Config {
	cfg, err := decodeConfig(boardYAML, Config{})
	if err != nil {
		panic("app: embedded board.yaml: " + err.Error())
	}
	return cfg
}

// ParseConfig decodes a yaml document over the defaults. A tasks list, when
// present, replaces the default one.
func ParseConfig(data []byte) (Config, error) {
	return decodeConfig(data, DefaultConfig())
}

// LoadConfig reads and decodes a config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(data []byte, base Config) (Config, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// Layout returns the stack map for the configured tasks plus idle.
func (c Config) Layout() kernel.Layout {
	return kernel.Layout{
		SRAMBase:         c.SRAMBase,
		SRAMSize:         c.SRAMSize,
		TaskStackBytes:   c.TaskStack,
		KernelStackBytes: c.KernelStack,
		Tasks:            len(c.Tasks) + 1,
	}
}

// TickReload returns the SysTick reload value for the configured rates.
func (c Config) TickReload() (uint32, error) {
	reload, ok := cortexm.ReloadFor(c.CPUHz, c.TickHz)
	if !ok {
		return 0, fmt.Errorf("config: %d Hz clock cannot tick at %d Hz", c.CPUHz, c.TickHz)
	}
	return reload, nil
}

// Names returns the task table names, idle first.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Tasks)+1)
	names = append(names, "idle")
	for _, t := range c.Tasks {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks the clock rates, the task table and the stack map.
func (c Config) Validate() error {
	if _, err := c.TickReload(); err != nil {
		return err
	}
	if len(c.Tasks) > kernel.MaxTasks-1 {
		return fmt.Errorf("config: %d tasks, max %d", len(c.Tasks), kernel.MaxTasks-1)
	}
	names := []string{"idle"}
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("config: task %d has no name", i+1)
		}
		if slices.Contains(names, t.Name) {
			return fmt.Errorf("config: duplicate task name %q", t.Name)
		}
		names = append(names, t.Name)
		if t.Channel < 0 || t.Channel >= hal.LEDCount {
			return fmt.Errorf("config: task %q: channel %d, want 0..%d", t.Name, t.Channel, hal.LEDCount-1)
		}
		if t.Period == 0 {
			return fmt.Errorf("config: task %q: period must be at least one tick", t.Name)
		}
	}
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
