package hvps

import (
	"fmt"
	"strings"
)

// PreheatNotConfigured is the display marker the supply reports in the
// preheating-time field when no preheating program is configured.
const PreheatNotConfigured = "not configured"

// deriveInput collects everything the state derivation consumes for one
// poll cycle.
type deriveInput struct {
	flags   ModeFlags
	preheat string

	// resolved interlock message texts, main table first
	interlocks []string

	stickyFault bool

	dischargePending   bool
	dischargeRemaining int // whole seconds
	dischargeResolved  bool
}

// deriveResult is the outcome of one state derivation.
type deriveResult struct {
	state    OperatingState
	status   string
	messages []string

	// unrecognized reports that no rule matched the live flags; the caller
	// latches the sticky fault.
	unrecognized bool
}

// deriveOperatingState evaluates the state rules in strict priority
// order; the first match wins.
func deriveOperatingState(in deriveInput) deriveResult {
	// 1. Sticky fault, cleared only by an interlock reset.
	if in.stickyFault {
		return deriveResult{state: StateFault, status: "awaiting interlock reset"}
	}

	// 2. Pending discharge holds the supply in standby.
	if in.dischargePending {
		return deriveResult{
			state:  StateStandby,
			status: fmt.Sprintf("discharging, %d seconds left", in.dischargeRemaining),
		}
	}
	if in.dischargeResolved {
		return deriveResult{state: StateStandby, status: "HV discharged"}
	}

	// 3. Preheating in progress.
	if in.flags.PulserUnit && preheatActive(in.preheat) && !in.flags.Ready {
		msgs := append([]string{"preheating time left: " + in.preheat}, in.interlocks...)

		return deriveResult{state: StateWarming, status: "warming up", messages: msgs}
	}

	// 4. Active interlocks.
	if len(in.interlocks) > 0 {
		return deriveResult{state: StateAlarm, status: "interlock active", messages: in.interlocks}
	}

	// 5. Fully powered.
	if in.flags.PulserUnit && in.flags.HVPS && in.flags.Ready {
		if in.flags.HVEnabled {
			return deriveResult{state: StateOn, status: "HV on"}
		}

		return deriveResult{state: StateStandby, status: "HVPS ready"}
	}

	// 6. Pulser unit on, preheating done.
	if in.flags.PulserUnit && !preheatActive(in.preheat) {
		return deriveResult{state: StateStandby, status: "pulser unit on"}
	}

	// 7. Everything off.
	if !in.flags.PulserUnit && !in.flags.HVPS && !in.flags.HVEnabled && !in.flags.Ready {
		return deriveResult{state: StateOff, status: "power stages off"}
	}

	// 8. No rule matched: latch the sticky fault with the offending flag
	// combination so the operator can diagnose it.
	return deriveResult{
		state: StateFault,
		status: fmt.Sprintf(
			"unrecognized state: pulserUnit=%t hvps=%t hvEnabled=%t ready=%t preheat=%q",
			in.flags.PulserUnit, in.flags.HVPS, in.flags.HVEnabled, in.flags.Ready, in.preheat,
		),
		unrecognized: true,
	}
}

// preheatActive reports whether the preheating-time display string
// indicates a preheating in progress: non-empty, not the "not configured"
// marker, and not a zero reading.
func preheatActive(display string) bool {
	display = strings.TrimSpace(display)
	if display == "" || strings.EqualFold(display, PreheatNotConfigured) {
		return false
	}

	for _, r := range display {
		if r >= '1' && r <= '9' {
			return true
		}
	}

	return false
}
