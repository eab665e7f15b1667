package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all harness configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Storm         StormConfig         `toml:"storm"`
	Decoy         DecoyConfig         `toml:"decoy"`
	Autostart     AutostartConfig     `toml:"autostart"`
	ClockSkew     ClockSkewConfig     `toml:"clock_skew"`
	RemoteAccess  RemoteAccessConfig  `toml:"remote_access"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds run-wide settings
type GeneralConfig struct {
	OutputRoot      string `toml:"output_root"`
	DryRun          bool   `toml:"dry_run"`
	ContinueOnError bool   `toml:"continue_on_error"`
	WordlistPath    string `toml:"wordlist_path"`
}

// StormConfig bounds the probe-storm executor
type StormConfig struct {
	TotalProbes    int `toml:"total_probes"`
	MinJitterMs    int `toml:"min_jitter_ms"`
	MaxJitterMs    int `toml:"max_jitter_ms"`
	Workers        int `toml:"workers"` // 0 = available hardware concurrency
	ProbeTimeoutMs int `toml:"probe_timeout_ms"`
}

// DecoyConfig locates the decoy-note drop directory
type DecoyConfig struct {
	Dir string `toml:"dir"`
}

// AutostartConfig controls the autostart persistence module
type AutostartConfig struct {
	Dir     string `toml:"dir"`
	Cleanup bool   `toml:"cleanup"`
}

// ClockSkewConfig controls the clock-manipulation module
type ClockSkewConfig struct {
	// AllowSet permits the module to actually invoke the platform time-set
	// command. Off by default: attempts are then recorded as blocked.
	AllowSet bool `toml:"allow_set"`
}

// RemoteAccessConfig controls the remote-access enablement module
type RemoteAccessConfig struct {
	// AllowEnable permits the module to actually toggle the RDP/SSH
	// services. Off by default: attempts are then recorded as blocked.
	AllowEnable bool `toml:"allow_enable"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			OutputRoot: filepath.Join(home, "MagnetTelemetry"),
		},
		Storm: StormConfig{
			TotalProbes:    40,
			MinJitterMs:    10,
			MaxJitterMs:    80,
			ProbeTimeoutMs: 3000,
		},
		Autostart: AutostartConfig{Cleanup: true},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.OutputRoot = ExpandPath(cfg.General.OutputRoot)
	cfg.General.WordlistPath = ExpandPath(cfg.General.WordlistPath)
	cfg.Decoy.Dir = ExpandPath(cfg.Decoy.Dir)
	cfg.Autostart.Dir = ExpandPath(cfg.Autostart.Dir)

	return cfg, nil
}

// Validate checks the loaded configuration before any capability runs
func (c *Config) Validate() error {
	if c.General.OutputRoot == "" {
		return fmt.Errorf("general.output_root is required")
	}
	if c.Storm.TotalProbes <= 0 {
		return fmt.Errorf("storm.total_probes must be positive")
	}
	if c.Storm.MinJitterMs < 0 || c.Storm.MaxJitterMs < c.Storm.MinJitterMs {
		return fmt.Errorf("storm jitter window [%d,%d] is invalid", c.Storm.MinJitterMs, c.Storm.MaxJitterMs)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "magnet", "config.toml")
}
