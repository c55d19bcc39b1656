package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the yaml runtime configuration of an hvpsmon process.
type Config struct {
	Supply SupplyConfig `yaml:"supply"`
}

// SupplyConfig describes one supply endpoint and its driver settings.
type SupplyConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ReadTimeoutMs  int `yaml:"read_timeout_ms"`
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// Thyratron enables the extended thyratron telemetry fields.
	Thyratron bool `yaml:"thyratron"`

	// Site-specific message texts for main interlock slots 2 and 3.
	ExternalInterlock1 string `yaml:"external_interlock_1"`
	ExternalInterlock2 string `yaml:"external_interlock_2"`

	// DischargeSeconds is the HV bleed-down time; nil selects the driver
	// default.
	DischargeSeconds *int `yaml:"discharge_seconds"`
}

// Load reads, normalizes and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ReadTimeout returns the response read timeout as a duration.
func (s *SupplyConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// PollInterval returns the poll period as a duration.
func (s *SupplyConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// DischargeDuration returns the configured HV bleed-down time, or ok
// false when the driver default should be used.
func (s *SupplyConfig) DischargeDuration() (time.Duration, bool) {
	if s.DischargeSeconds == nil {
		return 0, false
	}

	return time.Duration(*s.DischargeSeconds) * time.Second, true
}
