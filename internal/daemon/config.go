// Package daemon wires together the catalog, router, storage, transport,
// and HTTP surfaces into one long-running strand process, and manages its
// on-disk configuration and lifecycle.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Network   NetworkConfig   `toml:"network"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// NodeConfig identifies this node, for diagnostics and as the default
// location specifier when a program doesn't supply its own addresses.
type NodeConfig struct {
	ID string `toml:"id"`
}

// APIConfig controls the HTTP embedding surface.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StorageConfig controls durable table placement — spec.md §6's base_dir
// option.
type StorageConfig struct {
	BaseDir string `toml:"base_dir"`
}

// NetworkConfig controls the TCP listener for network-dispatched rules —
// spec.md §6's port option, plus the daemon-level concerns the teacher
// always carries alongside a network toggle.
type NetworkConfig struct {
	Enabled           bool   `toml:"enabled"`
	ListenAddr        string `toml:"listen_addr"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
}

// TelemetryConfig controls observability.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	home := strandHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7732,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			BaseDir: filepath.Join(home, "tables"),
		},
		Network: NetworkConfig{
			Enabled:           false,
			ListenAddr:        ":7733",
			HeartbeatInterval: "10s",
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
	}
}

// LoadConfig reads config from $STRAND_HOME/config.toml, falling back to
// defaults when the file doesn't exist yet.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(strandHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("daemon: parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to $STRAND_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(strandHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func strandHome() string {
	if env := os.Getenv("STRAND_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".strand")
}

// StrandHome is exported for use by other packages (the CLI's default
// program/state paths).
func StrandHome() string { return strandHome() }
