package modtcp

import (
	"errors"
	"strings"
	"time"

	"github.com/arloliu/go-hvps/logger"
)

// Configuration defaults.
const (
	// DefaultPort is the TCP port the supply listens on.
	DefaultPort = 8000

	// DefaultReadTimeout is the default response read timeout. It must
	// stay below the poll period of the external scheduler.
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultConnectTimeout is the default timeout for establishing the
	// TCP connection.
	DefaultConnectTimeout = 1 * time.Second
)

// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
var ErrConnConfigNil = errors.New("modtcp: connection config is nil")

// ConnectionConfig represents the configuration parameters for a
// connection to the supply.
type ConnectionConfig struct {
	// host specifies the network address of the supply.
	host string

	// port specifies the TCP port number. Defaults to DefaultPort.
	port int

	// readTimeout bounds the wait for one terminated response line.
	// Defaults to DefaultReadTimeout.
	readTimeout time.Duration

	// connectTimeout bounds establishing the TCP connection.
	// Defaults to DefaultConnectTimeout.
	connectTimeout time.Duration

	// logger provides a logger instance for transport events and errors.
	logger logger.Logger
}

// NewConnectionConfig creates a connection configuration with the given
// host and optional functional options.
//
// It initializes the configuration with default values and then applies
// the provided options. Returns the configuration and an error if any
// option fails validation.
func NewConnectionConfig(host string, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		port:           DefaultPort,
		readTimeout:    DefaultReadTimeout,
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// ReadTimeout returns the configured response read timeout.
func (cfg *ConnectionConfig) ReadTimeout() time.Duration {
	return cfg.readTimeout
}

// ConnOption represents a functional option for configuring a
// ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// withHost sets the network address of the supply. Hostname resolution
// happens at dial time, so only an empty host is rejected here.
func withHost(host string) ConnOption {
	return newConnOptFunc("withHost", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		host = strings.TrimSpace(host)
		if host == "" {
			return errors.New("modtcp: host must not be empty")
		}
		cfg.host = host

		return nil
	})
}

// WithPort sets the TCP port number.
// It returns a ConnOption that validates the port number and updates the
// configuration. An error is returned if the port number is out of the
// valid range (1-65535) or if the configuration is nil.
//
// The default value is DefaultPort.
func WithPort(port int) ConnOption {
	return newConnOptFunc("WithPort", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		if port < 1 || port > 65535 {
			return errors.New("modtcp: port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithReadTimeout sets the response read timeout. It must be positive and
// below the poll period of the external scheduler; values above 10
// seconds are rejected as misconfiguration.
//
// The default value is DefaultReadTimeout.
func WithReadTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithReadTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		if val <= 0 || val > 10*time.Second {
			return errors.New("modtcp: read timeout out of range (0, 10s]")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the TCP
// connection. It should be between 100 milliseconds and 30 seconds.
//
// The default value is DefaultConnectTimeout.
func WithConnectTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("modtcp: connect timeout out of range [0.1s, 30s]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithLogger sets the logger for the connection.
// The default is the package-level logger instance.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConnConfigNil
		}

		cfg.logger = l

		return nil
	})
}
