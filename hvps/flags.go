package hvps

// ModeFlags represents the power-stage bits of the supply.
//
// PulserUnit, HVPS and HVEnabled are written to the hardware as a 4-digit
// binary code together with the interlock reset bit, and read back packed
// in a bitstring within the status response. Ready and Remote are
// read-only; the hardware reports the ready bit inverted and the decoder
// normalizes it.
//
// The firmware enforces that HVEnabled can only be true while HVPS is
// true; the driver does not duplicate that check.
type ModeFlags struct {
	PulserUnit bool
	HVPS       bool
	HVEnabled  bool
	Ready      bool
	Remote     bool
}

// modePayloadWidth is the fixed width of the mode set-command payload:
// four mode digits followed by four zero padding digits.
const modePayloadWidth = 8

// modePayload encodes the writable mode bits and the interlock reset bit
// as the fixed-width payload of the mode set command.
func modePayload(pulserUnit, hvps, hvEnabled, reset bool) string {
	buf := make([]byte, modePayloadWidth)
	for i := range buf {
		buf[i] = '0'
	}
	if pulserUnit {
		buf[0] = '1'
	}
	if hvps {
		buf[1] = '1'
	}
	if hvEnabled {
		buf[2] = '1'
	}
	if reset {
		buf[3] = '1'
	}

	return string(buf)
}
