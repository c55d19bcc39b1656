package modtcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConnectionConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConnectionConfig("hvps.lab.example")
	require.NoError(err)
	require.Equal("hvps.lab.example", cfg.host)
	require.Equal(DefaultPort, cfg.port)
	require.Equal(DefaultReadTimeout, cfg.ReadTimeout())
	require.Equal(DefaultConnectTimeout, cfg.connectTimeout)
	require.NotNil(cfg.logger)

	cfg, err = NewConnectionConfig("10.1.2.3",
		WithPort(9000),
		WithReadTimeout(250*time.Millisecond),
		WithConnectTimeout(2*time.Second),
	)
	require.NoError(err)
	require.Equal(9000, cfg.port)
	require.Equal(250*time.Millisecond, cfg.ReadTimeout())
	require.Equal(2*time.Second, cfg.connectTimeout)
}

func TestConnectionConfigValidation(t *testing.T) {
	require := require.New(t)

	_, err := NewConnectionConfig("")
	require.Error(err)

	_, err = NewConnectionConfig("   ")
	require.Error(err)

	_, err = NewConnectionConfig("host", WithPort(0))
	require.Error(err)

	_, err = NewConnectionConfig("host", WithPort(65536))
	require.Error(err)

	_, err = NewConnectionConfig("host", WithReadTimeout(0))
	require.Error(err)

	_, err = NewConnectionConfig("host", WithReadTimeout(11*time.Second))
	require.Error(err)

	_, err = NewConnectionConfig("host", WithConnectTimeout(10*time.Millisecond))
	require.Error(err)

	_, err = NewConnectionConfig("host", WithConnectTimeout(31*time.Second))
	require.Error(err)
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	require.ErrorIs(t, err, ErrConnConfigNil)
}
