package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gdbstub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: 0.0.0.0:2345
log_level: debug
sim:
  threads: 4
  host_root: /srv/sysroot
  step_delay: 5ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Network)
	assert.Equal(t, "0.0.0.0:2345", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4096, cfg.PacketSize)
	assert.Equal(t, Sim{Threads: 4, HostRoot: "/srv/sysroot", StepDelay: 5 * time.Millisecond}, cfg.Sim)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "listen: [\n"))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Load(writeConfig(t, "network: udp\n"))
	assert.ErrorContains(t, err, "network must be tcp or unix")
}

var validateTests = []struct {
	change  func(*Config)
	wantErr string
}{
	{change: func(c *Config) {}},
	{change: func(c *Config) { c.Network = "unix"; c.Listen = "/tmp/gdb.sock" }},
	{change: func(c *Config) { c.Listen = "" }, wantErr: "listen is required"},
	{change: func(c *Config) { c.PacketSize = 16 }, wantErr: "packet_size"},
	{change: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
	{change: func(c *Config) { c.MaxSessions = -1 }, wantErr: "max_sessions"},
	{change: func(c *Config) { c.Sim.Threads = 0 }, wantErr: "sim.threads"},
	{change: func(c *Config) { c.Sim.Threads = 65 }, wantErr: "sim.threads"},
	{change: func(c *Config) { c.Sim.StepDelay = -time.Second }, wantErr: "sim.step_delay"},
}

func TestValidate(t *testing.T) {
	for i, tt := range validateTests {
		cfg := Default()
		tt.change(cfg)
		err := cfg.Validate()
		if tt.wantErr == "" {
			assert.NoError(t, err, "test #%d", i)
		} else {
			assert.ErrorContains(t, err, tt.wantErr, "test #%d", i)
		}
	}
}
