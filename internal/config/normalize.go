package config

// Normalization defaults.
const (
	defaultPort           = 8000
	defaultReadTimeoutMs  = 100
	defaultPollIntervalMs = 1000
)

// Normalize fills in defaults for omitted fields.
// It MUST run before Validate.
func Normalize(cfg *Config) {
	s := &cfg.Supply

	if s.Port == 0 {
		s.Port = defaultPort
	}
	if s.ReadTimeoutMs == 0 {
		s.ReadTimeoutMs = defaultReadTimeoutMs
	}
	if s.PollIntervalMs == 0 {
		s.PollIntervalMs = defaultPollIntervalMs
	}
}
