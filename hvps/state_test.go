package hvps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveOperatingState(t *testing.T) {
	require := require.New(t)

	ready := ModeFlags{PulserUnit: true, HVPS: true, Ready: true}

	t.Run("sticky fault wins over everything", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{
			flags:            ready,
			stickyFault:      true,
			dischargePending: true,
			interlocks:       []string{"HVPS overcurrent"},
		})
		require.Equal(StateFault, res.state)
		require.Equal("awaiting interlock reset", res.status)
		require.False(res.unrecognized)
	})

	t.Run("discharge pending wins over alarm", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{
			flags:              ready,
			dischargePending:   true,
			dischargeRemaining: 2,
			interlocks:         []string{"HVPS overcurrent"},
		})
		require.Equal(StateStandby, res.state)
		require.Equal("discharging, 2 seconds left", res.status)
	})

	t.Run("discharge resolved reports standby once", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{flags: ready, dischargeResolved: true})
		require.Equal(StateStandby, res.state)
		require.Equal("HV discharged", res.status)
	})

	t.Run("warming while preheating", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{
			flags:      ModeFlags{PulserUnit: true},
			preheat:    "12:34",
			interlocks: []string{"trigger interlock"},
		})
		require.Equal(StateWarming, res.state)
		require.Equal("warming up", res.status)
		require.Equal([]string{"preheating time left: 12:34", "trigger interlock"}, res.messages)
	})

	t.Run("interlocks raise alarm", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{
			flags:      ready,
			interlocks: []string{"external interlock 1"},
		})
		require.Equal(StateAlarm, res.state)
		require.Equal([]string{"external interlock 1"}, res.messages)
	})

	t.Run("on and standby when fully powered", func(t *testing.T) {
		on := ready
		on.HVEnabled = true
		res := deriveOperatingState(deriveInput{flags: on})
		require.Equal(StateOn, res.state)

		res = deriveOperatingState(deriveInput{flags: ready})
		require.Equal(StateStandby, res.state)
		require.Equal("HVPS ready", res.status)
	})

	t.Run("pulser only is standby", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{flags: ModeFlags{PulserUnit: true}})
		require.Equal(StateStandby, res.state)
		require.Equal("pulser unit on", res.status)
	})

	t.Run("all stages off", func(t *testing.T) {
		res := deriveOperatingState(deriveInput{flags: ModeFlags{}})
		require.Equal(StateOff, res.state)
	})

	t.Run("unrecognized combination latches fault", func(t *testing.T) {
		// HVPS alone with pulser unit off matches no rule
		res := deriveOperatingState(deriveInput{flags: ModeFlags{HVPS: true, Ready: true}})
		require.Equal(StateFault, res.state)
		require.True(res.unrecognized)
		require.Contains(res.status, "unrecognized state")
	})
}

func TestPreheatActive(t *testing.T) {
	require := require.New(t)

	require.True(preheatActive("12:34"))
	require.True(preheatActive("0:05"))
	require.False(preheatActive(""))
	require.False(preheatActive("00:00"))
	require.False(preheatActive("0"))
	require.False(preheatActive("not configured"))
	require.False(preheatActive("Not Configured"))
}
