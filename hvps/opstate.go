package hvps

// OperatingState is the authoritative operating state derived from the
// latest poll cycle.
type OperatingState uint32

// Operating states of the supply. Fault is sticky: once entered it is
// only left through ResetInterlocks.
const (
	// StateOff indicates that all power stages are off.
	StateOff OperatingState = iota
	// StateStandby indicates that the supply is powered but high voltage
	// is not enabled, including the hold period of a pending discharge.
	StateStandby
	// StateWarming indicates that preheating is in progress.
	StateWarming
	// StateOn indicates that high voltage is enabled and the supply is
	// ready to pulse.
	StateOn
	// StateAlarm indicates that at least one interlock is active.
	StateAlarm
	// StateFault indicates an unrecognized combination of live flags; the
	// supply requires an explicit interlock reset.
	StateFault
	// StateOffline indicates that the supply is unreachable.
	StateOffline
)

// String returns the string representation of the state.
func (s OperatingState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateStandby:
		return "standby"
	case StateWarming:
		return "warming"
	case StateOn:
		return "on"
	case StateAlarm:
		return "alarm"
	case StateFault:
		return "fault"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// IsFault returns true if the state is the sticky fault state.
func (s OperatingState) IsFault() bool { return s == StateFault }

// IsAlarm returns true if the state is the alarm state.
func (s OperatingState) IsAlarm() bool { return s == StateAlarm }

// IsOffline returns true if the supply is unreachable.
func (s OperatingState) IsOffline() bool { return s == StateOffline }
