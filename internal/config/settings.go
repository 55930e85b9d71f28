package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration loaded from YAML and CLI flags.
type Settings struct {
	Adapter   string          `yaml:"adapter"`
	Monitor   string          `yaml:"monitor"`
	Passive   bool            `yaml:"passive"`
	Discover  bool            `yaml:"discover"`
	Proximity ProximityConfig `yaml:"proximity"`
	Log       LogConfig       `yaml:"log"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ProximityConfig holds the thresholds and timer lengths of the proximity engine.
type ProximityConfig struct {
	LockRSSI                  int `yaml:"lock_rssi"`
	UnlockRSSI                int `yaml:"unlock_rssi"`
	ThresholdRSSI             int `yaml:"threshold_rssi"`
	ProximityTimeoutSeconds   int `yaml:"proximity_timeout_seconds"`
	SignalTimeoutSeconds      int `yaml:"signal_timeout_seconds"`
	ConnectionTimeoutSeconds  int `yaml:"connection_timeout_seconds"`
	ActivePollIntervalSeconds int `yaml:"active_poll_interval_seconds"`
	ActivePollStaleSeconds    int `yaml:"active_poll_stale_seconds"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Debug  bool   `yaml:"debug"`
	Output string `yaml:"output"`
}

// NATSConfig represents the optional NATS event publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name"`
}

// Default returns settings populated with the built-in defaults.
func Default() Settings {
	return Settings{
		Adapter:   "hci0",
		Discover:  true,
		Proximity: DefaultProximity(),
		Log: LogConfig{
			Level:  "info",
			Output: "stderr",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "proximity",
			Name:    "ble-proximity",
		},
	}
}

// DefaultProximity returns the default engine thresholds and timers.
func DefaultProximity() ProximityConfig {
	return ProximityConfig{
		LockRSSI:                  DefaultLockRSSI,
		UnlockRSSI:                DefaultUnlockRSSI,
		ThresholdRSSI:             DefaultThresholdRSSI,
		ProximityTimeoutSeconds:   int(DefaultProximityTimeout / time.Second),
		SignalTimeoutSeconds:      int(DefaultSignalTimeout / time.Second),
		ConnectionTimeoutSeconds:  int(DefaultConnectionTimeout / time.Second),
		ActivePollIntervalSeconds: int(DefaultActivePollInterval / time.Second),
		ActivePollStaleSeconds:    int(DefaultActivePollStale / time.Second),
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

// Validate checks that the settings can drive the engine.
func (s Settings) Validate() error {
	if err := s.Proximity.Validate(); err != nil {
		return err
	}
	if s.NATS.Enabled && s.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}

// Validate checks thresholds and timer lengths.
func (p ProximityConfig) Validate() error {
	if p.LockRSSI == LockDisabled && p.UnlockRSSI == UnlockDisabled {
		return errors.New("lock_rssi and unlock_rssi cannot both be disabled")
	}
	if p.ThresholdRSSI > 0 {
		return fmt.Errorf("threshold_rssi must be <= 0 dBm, got %d", p.ThresholdRSSI)
	}

	timers := []struct {
		name  string
		value int
	}{
		{"proximity_timeout_seconds", p.ProximityTimeoutSeconds},
		{"signal_timeout_seconds", p.SignalTimeoutSeconds},
		{"connection_timeout_seconds", p.ConnectionTimeoutSeconds},
		{"active_poll_interval_seconds", p.ActivePollIntervalSeconds},
		{"active_poll_stale_seconds", p.ActivePollStaleSeconds},
	}
	for _, t := range timers {
		if t.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", t.name, t.value)
		}
	}
	return nil
}

// EffectiveUnlock is the RSSI at or above which the monitored device counts as close.
// Falls back to the lock threshold when unlock is disabled.
func (p ProximityConfig) EffectiveUnlock() int {
	if p.UnlockRSSI == UnlockDisabled {
		return p.LockRSSI
	}
	return p.UnlockRSSI
}

// EffectiveLock is the estimated RSSI below which the away timer is armed.
// Falls back to the unlock threshold when lock is disabled.
func (p ProximityConfig) EffectiveLock() int {
	if p.LockRSSI == LockDisabled {
		return p.UnlockRSSI
	}
	return p.LockRSSI
}

func (p ProximityConfig) ProximityTimeout() time.Duration {
	return time.Duration(p.ProximityTimeoutSeconds) * time.Second
}

func (p ProximityConfig) SignalTimeout() time.Duration {
	return time.Duration(p.SignalTimeoutSeconds) * time.Second
}

func (p ProximityConfig) ConnectionTimeout() time.Duration {
	return time.Duration(p.ConnectionTimeoutSeconds) * time.Second
}

func (p ProximityConfig) ActivePollInterval() time.Duration {
	return time.Duration(p.ActivePollIntervalSeconds) * time.Second
}

func (p ProximityConfig) ActivePollStale() time.Duration {
	return time.Duration(p.ActivePollStaleSeconds) * time.Second
}
