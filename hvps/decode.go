package hvps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-hvps/internal/util"
)

// Field layout of the status query response, ';'-separated.
const (
	fieldVoltage = iota
	fieldModeBits
	fieldMainInterlocks
	fieldThyratronInterlocks
	fieldHeaterVoltage
	fieldReservoirVoltage
	fieldSumCurrent
	fieldPreheatingTime

	statusFieldCount          = 3
	statusFieldCountThyratron = 8
)

// Bit layout of the derived error code.
const (
	thyratronErrorShift = 8
	modeErrorShift      = 20

	// ErrCodeCommFailure is set in the error code while the supply is
	// unreachable.
	ErrCodeCommFailure uint64 = 1 << 16
)

// setpointMarker is a non-ASCII plus/minus character some firmware
// revisions insert into the setpoint field before a trailing ".0"
// fragment. Everything from the marker onward is discarded before
// parsing.
const setpointMarker = '±'

// DecodeStatus parses the raw result of the status query into a
// StatusSnapshot. When thyratron is true, the extended telemetry fields
// are required and decoded into the snapshot's Thyratron record.
//
// A malformed response (missing fields, invalid bitstrings, unparsable
// numbers) wraps ErrProtocol; the response then violates the protocol
// contract and the snapshot is not usable.
func DecodeStatus(raw string, thyratron bool) (*StatusSnapshot, error) {
	fields := strings.Split(raw, ";")

	want := statusFieldCount
	if thyratron {
		want = statusFieldCountThyratron
	}
	if len(fields) < want {
		return nil, fmt.Errorf("status response has %d fields, want at least %d: %w",
			len(fields), want, ErrProtocol)
	}

	voltage, err := parseSetpoint(fields[fieldVoltage])
	if err != nil {
		return nil, err
	}

	flags, modeValue, err := decodeModeBits(fields[fieldModeBits])
	if err != nil {
		return nil, err
	}

	mainIdx, err := util.BitIndices(fields[fieldMainInterlocks])
	if err != nil {
		return nil, fmt.Errorf("main interlock field: %v: %w", err, ErrProtocol)
	}
	mainValue, err := util.BitValue(fields[fieldMainInterlocks])
	if err != nil {
		return nil, fmt.Errorf("main interlock field %q: %w", fields[fieldMainInterlocks], ErrProtocol)
	}

	snap := &StatusSnapshot{
		Voltage:        voltage,
		Flags:          flags,
		MainInterlocks: mainIdx,
		ErrorCode:      mainValue | modeValue<<modeErrorShift,
	}

	if !thyratron {
		return snap, nil
	}

	thyrIdx, err := util.BitIndices(fields[fieldThyratronInterlocks])
	if err != nil {
		return nil, fmt.Errorf("thyratron interlock field: %v: %w", err, ErrProtocol)
	}
	thyrValue, err := util.BitValue(fields[fieldThyratronInterlocks])
	if err != nil {
		return nil, fmt.Errorf("thyratron interlock field %q: %w", fields[fieldThyratronInterlocks], ErrProtocol)
	}
	snap.ErrorCode |= thyrValue << thyratronErrorShift

	heater, err := parseReading("heater voltage", fields[fieldHeaterVoltage])
	if err != nil {
		return nil, err
	}
	reservoir, err := parseReading("reservoir voltage", fields[fieldReservoirVoltage])
	if err != nil {
		return nil, err
	}
	sumCurrent, err := parseReading("sum current", fields[fieldSumCurrent])
	if err != nil {
		return nil, err
	}

	snap.Thyratron = &ThyratronStatus{
		Interlocks:       thyrIdx,
		HeaterVoltage:    heater,
		ReservoirVoltage: reservoir,
		SumCurrent:       sumCurrent,
		PreheatingTime:   strings.TrimSpace(fields[fieldPreheatingTime]),
	}

	return snap, nil
}

// decodeModeBits parses the mode bitstring of the status response.
//
// Bit order is pulserUnit, hvps, hvEnabled, readyRaw, remote. The hardware
// reports the ready bit inverted; the decoded Ready flag is its negation.
// The remote bit is optional; older firmware omits it.
func decodeModeBits(field string) (ModeFlags, uint64, error) {
	if len(field) < 4 {
		return ModeFlags{}, 0, fmt.Errorf("mode field %q too short: %w", field, ErrProtocol)
	}

	value, err := util.BitValue(field)
	if err != nil {
		return ModeFlags{}, 0, fmt.Errorf("mode field %q: %w", field, ErrProtocol)
	}

	flags := ModeFlags{
		PulserUnit: field[0] == '1',
		HVPS:       field[1] == '1',
		HVEnabled:  field[2] == '1',
		Ready:      field[3] == '0',
		Remote:     len(field) > 4 && field[4] == '1',
	}

	return flags, value, nil
}

// parseSetpoint parses the voltage setpoint field, discarding everything
// from the plus/minus marker onward when present.
func parseSetpoint(field string) (float64, error) {
	if idx := strings.IndexRune(field, setpointMarker); idx >= 0 {
		field = field[:idx]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("voltage setpoint field %q: %w", field, ErrProtocol)
	}

	return v, nil
}

// parseReading parses one of the numeric thyratron telemetry fields.
func parseReading(name, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("%s field %q: %w", name, field, ErrProtocol)
	}

	return v, nil
}
