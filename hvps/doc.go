// Package hvps implements the driver core for a pulsed high-voltage
// power supply (modulator) operated over a textual request/response
// protocol.
//
// The package combines three pieces:
//   - decoding the fixed-layout status response into a typed
//     StatusSnapshot, including the bit-packed mode and interlock fields,
//   - a Controller that runs poll cycles and mode writes, mediating HV
//     power-down transitions through a timed discharge sequencer,
//   - a state derivation engine that combines live flags, interlock
//     conditions, and the discharge status into one authoritative
//     OperatingState with human-readable diagnostics.
//
// The wire transport is abstracted behind the Transport interface; the
// modtcp package provides the TCP implementation.
//
// Driving the supply:
//   - Create a transport with modtcp.NewClient and a Controller with
//     NewController.
//   - Invoke Controller.PollOnce periodically from an external scheduler.
//     Each cycle returns change notifications for the fields that changed.
//   - Issue setpoint and power-stage requests through SetVoltage,
//     PowerOn, PowerOff, Standby, ResetInterlocks, and the single-flag
//     writers.
//
// Poll cycles and write operations must not overlap; the external
// scheduler guarantees single-threaded cooperative execution. Read
// accessors are safe from any goroutine.
package hvps
