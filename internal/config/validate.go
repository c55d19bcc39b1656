package config

import "fmt"

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate the
// configuration.
func Validate(cfg *Config) error {
	s := &cfg.Supply

	if s.Host == "" {
		return fmt.Errorf("config: supply host is required")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("config: port %d out of range [1, 65535]", s.Port)
	}
	if s.ReadTimeoutMs <= 0 {
		return fmt.Errorf("config: read_timeout_ms must be positive")
	}
	if s.PollIntervalMs <= 0 {
		return fmt.Errorf("config: poll_interval_ms must be positive")
	}

	// The read timeout bounds one blocking exchange; it has to finish
	// inside the poll period.
	if s.ReadTimeoutMs >= s.PollIntervalMs {
		return fmt.Errorf("config: read_timeout_ms (%d) must be below poll_interval_ms (%d)",
			s.ReadTimeoutMs, s.PollIntervalMs)
	}

	if s.DischargeSeconds != nil {
		if *s.DischargeSeconds < 0 || *s.DischargeSeconds > 600 {
			return fmt.Errorf("config: discharge_seconds %d out of range [0, 600]",
				*s.DischargeSeconds)
		}
	}

	return nil
}
