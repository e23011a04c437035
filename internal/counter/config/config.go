package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

type Config struct {
	Counter CounterBox `yaml:"counter"`
}

type CounterBox struct {
	Enabled bool   `yaml:"enabled"`
	Ring    Ring   `yaml:"ring"`
	Keyed   Keyed  `yaml:"keyed"`
	Clock   Clock  `yaml:"clock"`
	Api     Api    `yaml:"api"`
	Mock    Mock   `yaml:"mock"`
	Env     string `yaml:"env"` // prod|dev|test
}

// Ring configures the global sliding-window ring: 2^slot_count_exp slots of
// 2^slot_size_exp abstract time units each.
type Ring struct {
	SlotCountExp uint8 `yaml:"slot_count_exp"`
	SlotSizeExp  uint8 `yaml:"slot_size_exp"`
}

// Keyed configures the per-key registry; rings created by it share the global
// ring exponents.
type Keyed struct {
	ShardExp            uint8 `yaml:"shard_exp"`
	PreallocatePerShard int   `yaml:"preallocate_per_shard"`
}

// Clock maps wall time to abstract units for callers that omit timestamps.
type Clock struct {
	Unit       time.Duration `yaml:"unit"`       // e.g. "1s" - one abstract time unit
	Resolution time.Duration `yaml:"resolution"` // refresh interval of the cached value
}

type Api struct {
	Name      string    `yaml:"name"`
	Port      string    `yaml:"port"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	Rps     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type Mock struct {
	Enabled      bool `yaml:"enabled"`
	EventsPerSec int  `yaml:"events_per_sec"`
	Keys         int  `yaml:"keys"`
}

func (c *Config) IsProd() bool { return c.Counter.Env == Prod }

// ServerName and ServerPort satisfy the http server's Config.
func (c *Config) ServerName() string { return c.Counter.Api.Name }
func (c *Config) ServerPort() string { return c.Counter.Api.Port }

// LoadConfig reads and validates the yaml config at path. A .env file in the
// working directory is loaded first so APP_ENV and friends can come from it.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // optional, missing .env is fine

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve config filepath %s: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", abs, err)
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config yaml %s: %w", abs, err)
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Counter.Env = env
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	box := &c.Counter

	if int(box.Ring.SlotCountExp)+int(box.Ring.SlotSizeExp) > 63 {
		return fmt.Errorf(
			"config: ring slot_count_exp(%d)+slot_size_exp(%d) exceeds 63",
			box.Ring.SlotCountExp, box.Ring.SlotSizeExp,
		)
	}
	if box.Clock.Unit <= 0 {
		return fmt.Errorf("config: clock unit must be positive, got %v", box.Clock.Unit)
	}
	if box.Clock.Resolution <= 0 {
		box.Clock.Resolution = box.Clock.Unit / 10
		if box.Clock.Resolution <= 0 {
			box.Clock.Resolution = box.Clock.Unit
		}
	}
	if box.Api.Port == "" {
		return fmt.Errorf("config: api port is required")
	}
	if box.Mock.Enabled && box.Mock.EventsPerSec <= 0 {
		return fmt.Errorf("config: mock events_per_sec must be positive when mock is enabled")
	}
	if box.Mock.Enabled && box.Mock.Keys <= 0 {
		box.Mock.Keys = 16
	}
	return nil
}
