package hvps

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates that the TCP connection to the supply could not
	// be established, or that a socket-level failure occurred during an
	// exchange. The transport always disconnects before returning it.
	ErrConnection = errors.New("hvps: connection failure")

	// ErrNotConnected indicates that a command was attempted while the
	// transport is disconnected.
	ErrNotConnected = errors.New("hvps: not connected")

	// ErrTimeout indicates that no terminated response line arrived within
	// the configured read timeout. An empty read is treated the same way.
	ErrTimeout = errors.New("hvps: response timeout")
)

var (
	// ErrProtocol indicates that the supply answered with something the
	// protocol contract does not allow: a missing terminator, a bad echo on a
	// set command, a wrong code prefix on a query, or a malformed status
	// response.
	ErrProtocol = errors.New("hvps: protocol violation")

	// ErrCommandFailed indicates that the supply rejected a query with the
	// protocol error sentinel. It wraps ErrProtocol.
	ErrCommandFailed = fmt.Errorf("hvps: command failed: %w", ErrProtocol)
)

var (
	// ErrDurationOutOfRange indicates that a discharge duration outside the
	// supported range of 0 to 600 seconds was requested.
	ErrDurationOutOfRange = errors.New("hvps: discharge duration out of range [0, 600] seconds")

	// ErrInterlockSlotFixed indicates an attempt to override a main
	// interlock message slot that is not configurable.
	ErrInterlockSlotFixed = errors.New("hvps: interlock message slot is not configurable")
)
