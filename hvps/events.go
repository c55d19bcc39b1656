package hvps

import "time"

// Field names used in change events and the controller's value cache.
const (
	FieldVoltage          = "voltage"
	FieldPulserUnit       = "pulser_unit"
	FieldHVPS             = "hvps"
	FieldHVEnabled        = "hv_enabled"
	FieldReady            = "ready"
	FieldRemote           = "remote"
	FieldHeaterVoltage    = "heater_voltage"
	FieldReservoirVoltage = "reservoir_voltage"
	FieldSumCurrent       = "sum_current"
	FieldPreheatingTime   = "preheating_time"
	FieldState            = "state"
	FieldStatus           = "status"
	FieldErrorCode        = "error_code"
)

// Event is one change notification produced by a poll cycle. The core
// never calls into its collaborators; instead PollOnce returns the list
// of fields whose externally visible value changed, and the caller
// forwards them to whatever eventing mechanism it integrates with.
type Event struct {
	// Field is one of the Field* constants.
	Field string

	// Value is the new value. The concrete type per field is stable:
	// float64 for readings, bool for flags, string for texts,
	// OperatingState for the state, uint64 for the error code.
	Value any

	// At is the poll cycle timestamp.
	At time.Time
}
