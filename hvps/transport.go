package hvps

// Command codes of the line protocol. Codes up to SetCommandMax are
// set-style: the supply acknowledges them by echoing the exact frame.
// Higher codes are queries answered with the code prefix and a payload.
const (
	// CmdSetVoltage writes the high-voltage setpoint.
	CmdSetVoltage = 1
	// CmdSetMode writes the power-stage mode bits and the interlock reset
	// bit.
	CmdSetMode = 2
	// CmdStatus queries the full telemetry record.
	CmdStatus = 9

	// SetCommandMax is the highest set-style command code.
	SetCommandMax = 3
)

// Transport is the framed request/response exchange over one connection
// to the supply. The modtcp package provides the TCP implementation.
//
// Implementations own the connection exclusively and must disconnect on
// every socket-level failure so a failed exchange never leaves a
// half-open connection behind.
type Transport interface {
	// Connect establishes the connection. It is a no-op when already
	// connected. A failure wraps ErrConnection and leaves the transport
	// disconnected.
	Connect() error

	// Disconnect closes the connection, best effort. It never fails; a
	// "not connected" condition is logged, not raised.
	Disconnect()

	// Connected reports whether the transport currently holds an
	// established connection.
	Connected() bool

	// Execute sends one framed command and reads one terminated response
	// line. For set-style commands the result is empty and success means
	// the frame was echoed back verbatim. For queries the result is the
	// response payload with the code prefix and terminator stripped.
	Execute(code int, payload string) (string, error)

	// Target describes the remote endpoint for diagnostics.
	Target() string
}
