package hvps

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted Transport for controller tests.
type fakeTransport struct {
	connected  bool
	connectErr error

	status    string
	statusErr error

	modeWrites []string
	voltWrites []string
	writeErr   error
}

func (f *fakeTransport) Connect() error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true

	return nil
}

func (f *fakeTransport) Disconnect() { f.connected = false }

func (f *fakeTransport) Connected() bool { return f.connected }

func (f *fakeTransport) Target() string { return "192.0.2.1:8000" }

func (f *fakeTransport) Execute(code int, payload string) (string, error) {
	switch code {
	case CmdStatus:
		if f.statusErr != nil {
			return "", f.statusErr
		}

		return f.status, nil

	case CmdSetMode:
		if f.writeErr != nil {
			return "", f.writeErr
		}
		f.modeWrites = append(f.modeWrites, payload)

		return "", nil

	case CmdSetVoltage:
		if f.writeErr != nil {
			return "", f.writeErr
		}
		f.voltWrites = append(f.voltWrites, payload)

		return "", nil
	}

	return "", fmt.Errorf("unexpected command %02d: %w", code, ErrProtocol)
}

func newTestController(t *testing.T, ft *fakeTransport, now *time.Time, opts ...Option) *Controller {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time { return *now })}, opts...)
	ctrl, err := NewController(ft, opts...)
	require.NoError(t, err)

	return ctrl
}

func TestControllerPollCycle(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1100;00000000"}
	ctrl := newTestController(t, ft, &now)

	events, err := ctrl.PollOnce()
	require.NoError(err)
	require.NotEmpty(events)

	require.Equal(StateStandby, ctrl.State())
	require.Equal("HVPS ready", ctrl.Status())
	require.InDelta(220.0, ctrl.Voltage(), 1e-9)
	require.Equal(ModeFlags{PulserUnit: true, HVPS: true, Ready: true}, ctrl.Flags())
	require.Empty(ctrl.MainInterlocks())
	require.Equal(uint64(0b1100)<<modeErrorShift, ctrl.ErrorCode())

	// an unchanged poll produces no events
	events, err = ctrl.PollOnce()
	require.NoError(err)
	require.Empty(events)

	// a setpoint change produces exactly one event
	ft.status = "250.0;1100;00000000"
	events, err = ctrl.PollOnce()
	require.NoError(err)
	require.Len(events, 1)
	require.Equal(FieldVoltage, events[0].Field)
	require.InDelta(250.0, events[0].Value.(float64), 1e-9)

	// cached values are exposed per field
	v, ok := ctrl.Value(FieldState)
	require.True(ok)
	require.Equal(StateStandby, v)
}

func TestControllerPowerOffDischarge(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1110;00000000"}
	ctrl := newTestController(t, ft, &now)

	_, err := ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateOn, ctrl.State())

	// HV is enabled: power-off drops HV immediately and defers the rest
	require.NoError(ctrl.PowerOff())
	require.Equal([]string{"11000000"}, ft.modeWrites)
	require.Equal(3, ctrl.DischargeRemaining())

	// mode writes are ignored while the discharge is pending
	require.NoError(ctrl.SetHVPS(true))
	require.NoError(ctrl.PowerOn())
	require.Len(ft.modeWrites, 1)

	ft.status = "220.0;1100;00000000"
	now = now.Add(1 * time.Second)
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateStandby, ctrl.State())
	require.Equal("discharging, 2 seconds left", ctrl.Status())
	require.Equal(2, ctrl.DischargeRemaining())
	require.Len(ft.modeWrites, 1)

	// duration elapsed: the final all-off write completes the transition
	now = now.Add(3 * time.Second)
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal([]string{"11000000", "00000000"}, ft.modeWrites)
	require.Equal(StateStandby, ctrl.State())
	require.Equal("HV discharged", ctrl.Status())
	require.Equal(0, ctrl.DischargeRemaining())

	// the resolution happens exactly once
	ft.status = "220.0;0001;00000000"
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Len(ft.modeWrites, 2)
	require.Equal(StateOff, ctrl.State())
}

func TestControllerDischargeWinsOverAlarm(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1110;00000000"}
	ctrl := newTestController(t, ft, &now)

	_, err := ctrl.PollOnce()
	require.NoError(err)
	require.NoError(ctrl.PowerOff())

	// interlock active and discharge pending at the same time
	ft.status = "220.0;1100;10000000"
	now = now.Add(1 * time.Second)
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateStandby, ctrl.State())
	require.Contains(ctrl.Status(), "discharging")
}

func TestControllerStandby(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)

	t.Run("from HV on goes through discharge", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;1110;00000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)

		require.NoError(ctrl.Standby())
		require.Equal([]string{"11000000"}, ft.modeWrites)
		require.Equal(3, ctrl.DischargeRemaining())

		now = now.Add(4 * time.Second)
		ft.status = "220.0;1100;00000000"
		_, err = ctrl.PollOnce()
		require.NoError(err)
		// final write completes pulserUnit/hvps per the standby target
		require.Equal([]string{"11000000", "11000000"}, ft.modeWrites)
	})

	t.Run("from pulser only brings HVPS up", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;1001;00000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)

		require.NoError(ctrl.Standby())
		require.Equal([]string{"11000000"}, ft.modeWrites)
	})

	t.Run("from off starts the pulser unit alone", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;0001;00000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)

		require.NoError(ctrl.Standby())
		require.Equal([]string{"10000000"}, ft.modeWrites)
	})
}

func TestControllerStickyFault(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "0.0;0110;00000000"}
	ctrl := newTestController(t, ft, &now)

	_, err := ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateFault, ctrl.State())
	require.Contains(ctrl.Status(), "unrecognized state")

	// the fault is sticky even after the flags recover
	ft.status = "220.0;1100;00000000"
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateFault, ctrl.State())
	require.Equal("awaiting interlock reset", ctrl.Status())

	// reset pulses the reset bit and clears the fault
	require.NoError(ctrl.ResetInterlocks())
	require.Equal([]string{"11000000", "11010000"}, ft.modeWrites)

	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateStandby, ctrl.State())
}

func TestControllerOffline(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)

	t.Run("timeout reports offline", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;1100;00000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)

		ft.statusErr = ErrTimeout
		events, err := ctrl.PollOnce()
		require.NoError(err)
		require.NotEmpty(events)
		require.Equal(StateOffline, ctrl.State())
		require.Contains(ctrl.Status(), ft.Target())
		require.Equal(ErrCodeCommFailure, ctrl.ErrorCode())
	})

	t.Run("alarm survives a timeout", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;1100;10000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)
		require.Equal(StateAlarm, ctrl.State())

		ft.statusErr = ErrTimeout
		_, err = ctrl.PollOnce()
		require.NoError(err)
		require.Equal(StateAlarm, ctrl.State())
		require.NotZero(ctrl.ErrorCode() & ErrCodeCommFailure)
	})

	t.Run("connection refusal reports offline despite alarm", func(t *testing.T) {
		ft := &fakeTransport{status: "220.0;1100;10000000"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.NoError(err)
		require.Equal(StateAlarm, ctrl.State())

		ft.statusErr = fmt.Errorf("dial: %w", ErrConnection)
		_, err = ctrl.PollOnce()
		require.NoError(err)
		require.Equal(StateOffline, ctrl.State())
	})

	t.Run("decode failure propagates", func(t *testing.T) {
		ft := &fakeTransport{status: "garbage"}
		ctrl := newTestController(t, ft, &now)
		_, err := ctrl.PollOnce()
		require.ErrorIs(err, ErrProtocol)
	})
}

func TestControllerSetVoltage(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{}
	ctrl := newTestController(t, ft, &now)

	require.NoError(ctrl.SetVoltage(220))
	require.Equal([]string{"0000220.0"}, ft.voltWrites)

	require.NoError(ctrl.SetVoltage(13.25))
	require.Equal("0000013.2", ft.voltWrites[1])
}

func TestControllerInterlockMessages(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1100;00110000"}
	ctrl := newTestController(t, ft, &now,
		WithInterlockMessage(2, "cooling water flow"),
		WithInterlockMessage(3, "RF cavity vacuum"),
	)

	_, err := ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateAlarm, ctrl.State())
	require.Equal([]string{"cooling water flow", "RF cavity vacuum"}, ctrl.Messages())
}

func TestControllerThyratron(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1001;00000000;0000000;6.3;1.2;0.5;12:34"}
	ctrl := newTestController(t, ft, &now, WithThyratron())

	_, err := ctrl.PollOnce()
	require.NoError(err)

	// pulser on, preheating in progress, not ready
	require.Equal(StateWarming, ctrl.State())
	require.Contains(ctrl.Messages()[0], "12:34")

	thyr := ctrl.ThyratronStatus()
	require.NotNil(thyr)
	require.InDelta(6.3, thyr.HeaterVoltage, 1e-9)

	// preheating finished and supply ready
	ft.status = "220.0;1100;00000000;0000000;6.3;1.2;0.5;00:00"
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal(StateStandby, ctrl.State())
	require.Equal("HVPS ready", ctrl.Status())
}

func TestControllerOptionValidation(t *testing.T) {
	require := require.New(t)

	ft := &fakeTransport{}

	_, err := NewController(nil)
	require.Error(err)

	_, err = NewController(ft, WithInterlockMessage(0, "nope"))
	require.ErrorIs(err, ErrInterlockSlotFixed)

	_, err = NewController(ft, WithDischargeDuration(601*time.Second))
	require.ErrorIs(err, ErrDurationOutOfRange)

	ctrl, err := NewController(ft)
	require.NoError(err)
	require.ErrorIs(ctrl.SetDischargeDuration(-time.Second), ErrDurationOutOfRange)
	require.NoError(ctrl.SetDischargeDuration(10*time.Second))
	require.Equal(10*time.Second, ctrl.DischargeDuration())
}

func TestControllerZeroDurationDischarge(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1000, 0)
	ft := &fakeTransport{status: "220.0;1110;00000000"}
	ctrl := newTestController(t, ft, &now, WithDischargeDuration(0))

	_, err := ctrl.PollOnce()
	require.NoError(err)

	require.NoError(ctrl.PowerOff())
	require.Equal([]string{"11000000"}, ft.modeWrites)

	// a zero duration resolves on the next poll cycle
	ft.status = "220.0;1100;00000000"
	_, err = ctrl.PollOnce()
	require.NoError(err)
	require.Equal([]string{"11000000", "00000000"}, ft.modeWrites)
	require.Equal("HV discharged", ctrl.Status())
}
