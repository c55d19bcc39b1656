package hvps

// StatusSnapshot is the immutable result of one successful status poll.
// It is superseded entirely by the next poll cycle.
type StatusSnapshot struct {
	// Voltage is the high-voltage setpoint read back from the supply.
	Voltage float64

	// Flags are the decoded power-stage bits.
	Flags ModeFlags

	// MainInterlocks holds the active main interlock bit positions in
	// report order.
	MainInterlocks []int

	// Thyratron holds the extended telemetry. It is nil unless the driver
	// was configured with thyratron telemetry enabled.
	Thyratron *ThyratronStatus

	// ErrorCode is the bitfield contribution of this snapshot: bits 0-7
	// carry the raw main interlock value, bits 8-15 the raw thyratron
	// interlock value, and bits 20 and up the raw mode bitstring value.
	ErrorCode uint64
}

// ThyratronStatus is the optional extension record carrying thyratron
// telemetry. Consumers branch on its presence on the snapshot.
type ThyratronStatus struct {
	// Interlocks holds the active thyratron interlock bit positions in
	// report order.
	Interlocks []int

	// HeaterVoltage is the thyratron heater voltage reading.
	HeaterVoltage float64

	// ReservoirVoltage is the thyratron reservoir voltage reading.
	ReservoirVoltage float64

	// SumCurrent is the supply sum current reading.
	SumCurrent float64

	// PreheatingTime is the remaining preheating time as displayed by the
	// supply. It is an opaque display string and may be the literal
	// "not configured" marker.
	PreheatingTime string
}
