// Package config loads schrun settings from TOML files, environment
// variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kelrin/schrun/schbench"
)

// DefaultScenario names the implicit run built from the base parameters.
// The name is reserved; config files cannot define a scenario with it.
const DefaultScenario = "default"

// Config is the complete schrun configuration.
type Config struct {
	Schbench  schbench.Params     `toml:"schbench"`
	Exec      ExecConfig          `toml:"exec"`
	Output    OutputConfig        `toml:"output"`
	Scenarios map[string]Scenario `toml:"scenarios"`
}

// ExecConfig controls how the schbench process is invoked.
type ExecConfig struct {
	Binary      string `toml:"binary"`
	PerfStat    string `toml:"perf_stat"`
	Taskset     string `toml:"taskset"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// OutputConfig controls where results land.
type OutputConfig struct {
	Dir       string `toml:"dir"`
	HistoryDB string `toml:"history_db"`
	NoHistory bool   `toml:"no_history"`
}

// Scenario overrides a subset of the base parameters for one named run.
// Nil fields inherit the base value.
type Scenario struct {
	Threads        *int  `toml:"threads"`
	Workers        *int  `toml:"workers"`
	Bytes          *int  `toml:"bytes"`
	Runtime        *int  `toml:"runtime"`
	CacheFootprint *int  `toml:"cache_footprint"`
	Operations     *int  `toml:"operations"`
	RPS            *int  `toml:"rps"`
	Warmup         *int  `toml:"warmup"`
	Autobench      *bool `toml:"autobench"`
	Locking        *bool `toml:"locking"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Schbench: schbench.DefaultParams(),
		Exec: ExecConfig{
			Binary: "schbench",
		},
		Output: OutputConfig{
			Dir:       "results",
			HistoryDB: "~/.schrun/history.db",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return expandHome("~/.schrun/config.toml")
}

// Load reads the configuration at path, or the default location when
// path is empty. A missing file at the default location yields the
// built-in defaults; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from SCHRUN_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SCHRUN_BINARY"); v != "" {
		c.Exec.Binary = v
	}
	if v := os.Getenv("SCHRUN_PERF_STAT"); v != "" {
		c.Exec.PerfStat = v
	}
	if v := os.Getenv("SCHRUN_TASKSET"); v != "" {
		c.Exec.Taskset = v
	}
	if v := os.Getenv("SCHRUN_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("SCHRUN_HISTORY_DB"); v != "" {
		c.Output.HistoryDB = v
	}
	if v := os.Getenv("SCHRUN_NO_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.NoHistory = b
		}
	}
}

// Validate checks the configuration for values schbench would reject.
func (c *Config) Validate() error {
	if c.Exec.Binary == "" {
		return errors.New("exec.binary must not be empty")
	}
	if c.Exec.TimeoutSecs < 0 {
		return fmt.Errorf("exec.timeout_secs must be >= 0, got %d", c.Exec.TimeoutSecs)
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}

	if err := validateParams(c.Schbench); err != nil {
		return fmt.Errorf("schbench: %w", err)
	}

	for name, sc := range c.Scenarios {
		if name == "" {
			return errors.New("scenario name must not be empty")
		}
		if name == DefaultScenario {
			return fmt.Errorf("scenario name %q is reserved", DefaultScenario)
		}
		if err := validateParams(sc.overlay(c.Schbench)); err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
	}

	return nil
}

// Scenario resolves the run parameters for the named scenario: the base
// parameters with the scenario's set fields applied on top.
func (c *Config) Scenario(name string) (schbench.Params, error) {
	if name == "" || name == DefaultScenario {
		return c.Schbench, nil
	}

	sc, ok := c.Scenarios[name]
	if !ok {
		return schbench.Params{}, fmt.Errorf(
			"unknown scenario %q (known: %s)",
			name, strings.Join(c.ScenarioNames(), ", "),
		)
	}

	return sc.overlay(c.Schbench), nil
}

// ScenarioNames returns the configured scenario names, sorted.
func (c *Config) ScenarioNames() []string {
	names := make([]string, 0, len(c.Scenarios))
	for name := range c.Scenarios {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Timeout returns the per-run timeout, zero meaning none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Exec.TimeoutSecs) * time.Second
}

// HistoryPath returns the history database path with ~ expanded.
func (c *Config) HistoryPath() string {
	return expandHome(c.Output.HistoryDB)
}

// OutputDir returns the result directory with ~ expanded.
func (c *Config) OutputDir() string {
	return expandHome(c.Output.Dir)
}

func (s Scenario) overlay(base schbench.Params) schbench.Params {
	if s.Threads != nil {
		base.Threads = *s.Threads
	}
	if s.Workers != nil {
		base.Workers = *s.Workers
	}
	if s.Bytes != nil {
		base.Bytes = *s.Bytes
	}
	if s.Runtime != nil {
		base.Runtime = *s.Runtime
	}
	if s.CacheFootprint != nil {
		base.CacheFootprint = *s.CacheFootprint
	}
	if s.Operations != nil {
		base.Operations = *s.Operations
	}
	if s.RPS != nil {
		base.RPS = *s.RPS
	}
	if s.Warmup != nil {
		base.Warmup = *s.Warmup
	}
	if s.Autobench != nil {
		base.Autobench = *s.Autobench
	}
	if s.Locking != nil {
		base.Locking = *s.Locking
	}

	return base
}

func validateParams(p schbench.Params) error {
	switch {
	case p.Threads < 1:
		return fmt.Errorf("threads must be >= 1, got %d", p.Threads)
	case p.Workers < 1:
		return fmt.Errorf("workers must be >= 1, got %d", p.Workers)
	case p.Runtime < 1:
		return fmt.Errorf("runtime must be >= 1, got %d", p.Runtime)
	case p.Bytes < 0:
		return fmt.Errorf("bytes must be >= 0, got %d", p.Bytes)
	case p.CacheFootprint < 0:
		return fmt.Errorf("cache_footprint must be >= 0, got %d", p.CacheFootprint)
	case p.Operations < 0:
		return fmt.Errorf("operations must be >= 0, got %d", p.Operations)
	case p.RPS < 0:
		return fmt.Errorf("rps must be >= 0, got %d", p.RPS)
	case p.Warmup < 0:
		return fmt.Errorf("warmup must be >= 0, got %d", p.Warmup)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
