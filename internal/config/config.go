// Package config loads the gdbstub YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"gni.dev/gdbstub/internal/protocol"
)

const (
	DefaultListen = "localhost:1234"

	// a qSupported reply and a minimal register block must fit
	minPacketSize = 256
	maxThreads    = 64
)

type Config struct {
	// Network is "tcp" or "unix".
	Network string `yaml:"network"`
	Listen  string `yaml:"listen"`

	// PacketSize is the largest packet accepted from the client.
	PacketSize int    `yaml:"packet_size"`
	LogLevel   string `yaml:"log_level"`

	// MaxSessions ends the server after that many clients, 0 for no limit.
	MaxSessions int `yaml:"max_sessions"`

	Sim Sim `yaml:"sim"`
}

// Sim configures the simulated target.
type Sim struct {
	// Program is an ELF file to load. The built-in countdown program runs
	// when empty.
	Program   string        `yaml:"program"`
	Threads   int           `yaml:"threads"`
	RAMSize   uint64        `yaml:"ram_size"`
	HostRoot  string        `yaml:"host_root"`
	LoadBias  uint64        `yaml:"load_bias"`
	StepDelay time.Duration `yaml:"step_delay"`
}

func Default() *Config {
	return &Config{
		Network:    "tcp",
		Listen:     DefaultListen,
		PacketSize: protocol.DefaultPacketSize,
		LogLevel:   "info",
		Sim:        Sim{Threads: 1},
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", absPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Network {
	case "tcp", "unix":
	default:
		return fmt.Errorf("network must be tcp or unix, got %q", c.Network)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.PacketSize < minPacketSize {
		return fmt.Errorf("packet_size must be at least %d", minPacketSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	if c.Sim.Threads < 1 || c.Sim.Threads > maxThreads {
		return fmt.Errorf("sim.threads must be between 1 and %d", maxThreads)
	}
	if c.Sim.StepDelay < 0 {
		return fmt.Errorf("sim.step_delay must not be negative")
	}
	return nil
}
