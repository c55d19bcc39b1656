package hvps

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-hvps/logger"
)

// Option is a functional option for configuring a Controller.
type Option func(*Controller) error

// WithLogger sets the logger for the controller.
// The default is the package-level logger instance.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) error {
		c.logger = l

		return nil
	}
}

// WithThyratron enables the extended thyratron telemetry. The status
// response is then required to carry the thyratron interlock and reading
// fields, and snapshots carry the Thyratron extension record.
func WithThyratron() Option {
	return func(c *Controller) error {
		c.thyratron = true

		return nil
	}
}

// WithInterlockMessage overrides the message text of a configurable main
// interlock slot. Only slots 2 and 3 are configurable; they are wired to
// site-specific external interlock circuits.
func WithInterlockMessage(slot int, text string) Option {
	return func(c *Controller) error {
		if slot < minConfigurableInterlock || slot > maxConfigurableInterlock {
			return fmt.Errorf("slot %d: %w", slot, ErrInterlockSlotFixed)
		}
		c.mainMessages[slot] = text

		return nil
	}
}

// WithDischargeDuration sets the high-voltage bleed-down time. Valid
// range is 0 to 600 seconds; zero resolves a discharge on the next poll
// cycle. The default is 3 seconds.
func WithDischargeDuration(d time.Duration) Option {
	return func(c *Controller) error {
		if d < 0 || d > MaxDischargeDuration {
			return ErrDurationOutOfRange
		}
		c.dischargeDuration = d

		return nil
	}
}

// WithClock replaces the wall clock used by the discharge sequencer and
// event timestamps. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) error {
		c.now = now

		return nil
	}
}

// Controller drives one pulsed high-voltage power supply through a
// Transport. It runs the poll cycle, decodes telemetry into snapshots,
// mediates mode writes through the discharge sequencer, and derives the
// authoritative operating state.
//
// The external scheduler must not overlap poll cycles or run them
// concurrently with write operations; the controller serializes them with
// an internal lock but gives no fairness or ordering guarantees beyond
// that. Read accessors are safe to call from any goroutine at any time.
type Controller struct {
	transport Transport
	logger    logger.Logger
	now       func() time.Time

	thyratron    bool
	mainMessages [MainInterlockCount]string

	mu                sync.Mutex
	dischargeDuration time.Duration
	lastFlags         ModeFlags
	snap              *StatusSnapshot
	state             OperatingState
	status            string
	messages          []string
	errorCode         uint64
	stickyFault       bool

	discharge          *dischargeRequest
	dischargeRemaining int
	dischargeResolved  bool

	// values caches the last published value per event field. It backs
	// change detection and the Value accessor, which collaborators may
	// call from other goroutines while a poll cycle runs.
	values *xsync.MapOf[string, any]
}

// NewController creates a Controller on top of the given transport.
func NewController(transport Transport, opts ...Option) (*Controller, error) {
	if transport == nil {
		return nil, errors.New("hvps: transport is nil")
	}

	c := &Controller{
		transport:         transport,
		logger:            logger.GetLogger(),
		now:               time.Now,
		dischargeDuration: DefaultDischargeDuration,
		mainMessages:      defaultMainInterlockMessages,
		state:             StateOffline,
		status:            "no poll cycle completed yet",
		values:            xsync.NewMapOf[string, any](),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// PollOnce runs one poll cycle: it queries the status record, decodes it,
// advances a pending discharge, derives the operating state and returns
// change notifications for every externally visible field that changed.
//
// Transport failures (timeout, connection loss) are recovered locally:
// the cycle reports OFFLINE, or preserves an existing alarm or fault
// state, and returns nil error. A malformed status response is a protocol
// contract violation and is returned as an error wrapping ErrProtocol.
func (c *Controller) PollOnce() ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.exchangeStatus()
	if err != nil {
		if isTransportFailure(err) {
			return c.markOffline(err), nil
		}

		return nil, err
	}

	snap, err := DecodeStatus(raw, c.thyratron)
	if err != nil {
		return nil, err
	}

	c.snap = snap
	c.lastFlags = snap.Flags

	if err := c.tickDischarge(); err != nil {
		if isTransportFailure(err) {
			return c.markOffline(err), nil
		}

		return nil, err
	}

	return c.deriveAndPublish(snap), nil
}

func (c *Controller) exchangeStatus() (string, error) {
	if err := c.transport.Connect(); err != nil {
		return "", err
	}

	return c.transport.Execute(CmdStatus, "")
}

// markOffline records a transport failure. An existing alarm or fault
// state survives a timeout of an established connection; every other
// failure reports the supply as unreachable.
func (c *Controller) markOffline(cause error) []Event {
	c.logger.Warn("supply unreachable", "target", c.transport.Target(), "error", cause)

	preserve := (c.state == StateAlarm || c.state == StateFault) && errors.Is(cause, ErrTimeout)
	if preserve {
		c.errorCode |= ErrCodeCommFailure
	} else {
		c.state = StateOffline
		c.status = fmt.Sprintf("no response from %s: %v", c.transport.Target(), cause)
		c.messages = nil
		c.errorCode = ErrCodeCommFailure
	}

	now := c.now()
	var events []Event
	c.publish(&events, now, FieldState, c.state)
	c.publish(&events, now, FieldStatus, c.status)
	c.publish(&events, now, FieldErrorCode, c.errorCode)

	return events
}

// tickDischarge advances a pending discharge by one poll cycle.
func (c *Controller) tickDischarge() error {
	d := c.discharge
	if d == nil {
		return nil
	}

	now := c.now()
	if d.expired(now) {
		return c.resolveDischarge()
	}

	c.dischargeRemaining = d.remainingSeconds(now)

	return nil
}

// resolveDischarge completes a pending discharge: it issues the final
// mode write for the captured target and returns the sequencer to idle.
// On a write failure the request stays pending and is retried on the
// next cycle.
func (c *Controller) resolveDischarge() error {
	d := c.discharge
	if err := c.writeMode(d.target.PulserUnit, d.target.HVPS, false, false); err != nil {
		return err
	}

	c.discharge = nil
	c.dischargeRemaining = 0
	c.dischargeResolved = true
	c.logger.Info("discharge complete",
		"pulserUnit", d.target.PulserUnit, "hvps", d.target.HVPS)

	return nil
}

// deriveAndPublish runs the state derivation for the given snapshot and
// returns the change notifications of this cycle.
func (c *Controller) deriveAndPublish(snap *StatusSnapshot) []Event {
	in := deriveInput{
		flags:              snap.Flags,
		stickyFault:        c.stickyFault,
		dischargePending:   c.discharge != nil,
		dischargeRemaining: c.dischargeRemaining,
		dischargeResolved:  c.dischargeResolved,
	}

	in.interlocks = interlockMessages(c.mainMessages[:], snap.MainInterlocks)
	if snap.Thyratron != nil {
		in.preheat = snap.Thyratron.PreheatingTime
		in.interlocks = append(in.interlocks,
			interlockMessages(thyratronInterlockMessages[:], snap.Thyratron.Interlocks)...)
	}

	res := deriveOperatingState(in)
	if res.unrecognized {
		c.stickyFault = true
		c.logger.Error("unrecognized supply state, latching fault", "status", res.status)
	}

	c.dischargeResolved = false
	c.state = res.state
	c.status = res.status
	c.messages = res.messages
	c.errorCode = snap.ErrorCode

	now := c.now()
	var events []Event
	c.publish(&events, now, FieldVoltage, snap.Voltage)
	c.publish(&events, now, FieldPulserUnit, snap.Flags.PulserUnit)
	c.publish(&events, now, FieldHVPS, snap.Flags.HVPS)
	c.publish(&events, now, FieldHVEnabled, snap.Flags.HVEnabled)
	c.publish(&events, now, FieldReady, snap.Flags.Ready)
	c.publish(&events, now, FieldRemote, snap.Flags.Remote)
	if snap.Thyratron != nil {
		c.publish(&events, now, FieldHeaterVoltage, snap.Thyratron.HeaterVoltage)
		c.publish(&events, now, FieldReservoirVoltage, snap.Thyratron.ReservoirVoltage)
		c.publish(&events, now, FieldSumCurrent, snap.Thyratron.SumCurrent)
		c.publish(&events, now, FieldPreheatingTime, snap.Thyratron.PreheatingTime)
	}
	c.publish(&events, now, FieldState, c.state)
	c.publish(&events, now, FieldStatus, c.status)
	c.publish(&events, now, FieldErrorCode, c.errorCode)

	return events
}

// publish records a value in the cache and appends a change event when it
// differs from the previously published value.
func (c *Controller) publish(events *[]Event, at time.Time, field string, value any) {
	prev, ok := c.values.Load(field)
	if ok && prev == value {
		return
	}

	c.values.Store(field, value)
	*events = append(*events, Event{Field: field, Value: value, At: at})
}

// SetVoltage writes the high-voltage setpoint.
func (c *Controller) SetVoltage(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transport.Connect(); err != nil {
		return err
	}

	_, err := c.transport.Execute(CmdSetVoltage, fmt.Sprintf("%09.1f", v))

	return err
}

// SetMode writes the power-stage mode bits. Nil pulserUnit or hvpsOn
// retain the last known value of that stage; a nil hvOn writes HV off,
// since high voltage can never be enabled implicitly.
//
// A write that would drop HV while other stages remain active is handed
// to the discharge sequencer instead of being issued directly. While a
// discharge is pending all mode writes are ignored.
func (c *Controller) SetMode(pulserUnit, hvpsOn, hvOn *bool, reset bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setMode(pulserUnit, hvpsOn, hvOn, reset)
}

func (c *Controller) setMode(pulserUnit, hvpsOn, hvOn *bool, reset bool) error {
	if c.discharge != nil {
		c.logger.Warn("mode write ignored, discharge pending",
			"remaining_s", c.dischargeRemaining)

		return nil
	}

	cur := c.lastFlags
	target := ModeFlags{
		PulserUnit: resolveFlag(pulserUnit, cur.PulserUnit),
		HVPS:       resolveFlag(hvpsOn, cur.HVPS),
		HVEnabled:  hvOn != nil && *hvOn,
	}

	if cur.HVEnabled && !target.HVEnabled && (cur.PulserUnit || cur.HVPS) {
		return c.beginDischarge(target)
	}

	return c.writeMode(target.PulserUnit, target.HVPS, target.HVEnabled, reset)
}

// PowerOn requests all power stages on, including high voltage.
func (c *Controller) PowerOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := true

	return c.setMode(&on, &on, &on, false)
}

// PowerOff requests all power stages off. With HV currently enabled the
// transition goes through a discharge; the final all-off write is issued
// when the bleed-down time has elapsed.
func (c *Controller) PowerOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	off := false

	return c.setMode(&off, &off, &off, false)
}

// Standby requests the supply to hold with HV off. From HV on it goes
// through a discharge; from pulser-only it brings the HVPS up; from off
// it starts the pulser unit alone.
func (c *Controller) Standby() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.lastFlags
	on, off := true, false
	if cur.HVEnabled || (cur.PulserUnit && !cur.HVPS) {
		return c.setMode(&on, &on, &off, false)
	}

	return c.setMode(&on, &off, &off, false)
}

// SetPulserUnit writes the pulser unit stage.
func (c *Controller) SetPulserUnit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setMode(&on, nil, nil, false)
}

// SetHVPS writes the HVPS stage.
func (c *Controller) SetHVPS(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setMode(nil, &on, nil, false)
}

// SetHVEnabled writes the HV enable stage.
func (c *Controller) SetHVEnabled(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setMode(nil, nil, &on, false)
}

// ResetInterlocks pulses the interlock reset bit (a 0 write followed by a
// 1 write) and clears the sticky fault. It is the only recovery path out
// of the fault state.
func (c *Controller) ResetInterlocks() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discharge != nil {
		c.logger.Warn("interlock reset ignored, discharge pending",
			"remaining_s", c.dischargeRemaining)

		return nil
	}

	cur := c.lastFlags
	if err := c.writeMode(cur.PulserUnit, cur.HVPS, cur.HVEnabled, false); err != nil {
		return err
	}
	if err := c.writeMode(cur.PulserUnit, cur.HVPS, cur.HVEnabled, true); err != nil {
		return err
	}

	c.stickyFault = false
	c.logger.Info("interlock reset issued")

	return nil
}

// beginDischarge starts a high-voltage bleed-down towards the given
// target stages. The HV-off write is issued immediately so the supply
// starts discharging; the remaining stage changes are deferred until the
// configured duration has elapsed.
func (c *Controller) beginDischarge(target ModeFlags) error {
	cur := c.lastFlags
	if err := c.writeMode(cur.PulserUnit, cur.HVPS, false, false); err != nil {
		return err
	}

	c.discharge = &dischargeRequest{
		target:    target,
		startedAt: c.now(),
		duration:  c.dischargeDuration,
	}
	c.dischargeRemaining = int(math.Round(c.dischargeDuration.Seconds()))
	c.logger.Info("discharge started",
		"duration", c.dischargeDuration,
		"targetPulserUnit", target.PulserUnit, "targetHVPS", target.HVPS)

	return nil
}

// writeMode issues one mode set command and updates the local flag
// bookkeeping once the hardware has acknowledged it.
func (c *Controller) writeMode(pulserUnit, hvpsOn, hvOn, reset bool) error {
	if err := c.transport.Connect(); err != nil {
		return err
	}

	if _, err := c.transport.Execute(CmdSetMode, modePayload(pulserUnit, hvpsOn, hvOn, reset)); err != nil {
		return err
	}

	c.lastFlags.PulserUnit = pulserUnit
	c.lastFlags.HVPS = hvpsOn
	c.lastFlags.HVEnabled = hvOn

	return nil
}

// SetDischargeDuration changes the bleed-down time at runtime. A pending
// discharge adopts the new duration; configuring zero resolves it on the
// next poll cycle.
func (c *Controller) SetDischargeDuration(d time.Duration) error {
	if d < 0 || d > MaxDischargeDuration {
		return ErrDurationOutOfRange
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dischargeDuration = d
	if c.discharge != nil {
		c.discharge.duration = d
	}

	return nil
}

// DischargeDuration returns the configured bleed-down time.
func (c *Controller) DischargeDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dischargeDuration
}

// DischargeRemaining returns the remaining bleed-down time of a pending
// discharge in whole seconds, or 0 when no discharge is pending.
func (c *Controller) DischargeRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discharge == nil {
		return 0
	}

	return c.dischargeRemaining
}

// Snapshot returns the latest status snapshot, or nil before the first
// successful poll.
func (c *Controller) Snapshot() *StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snap
}

// Voltage returns the setpoint read back by the latest poll.
func (c *Controller) Voltage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return 0
	}

	return c.snap.Voltage
}

// Flags returns the power-stage flags of the latest poll, or the last
// acknowledged write when no poll succeeded yet.
func (c *Controller) Flags() ModeFlags {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastFlags
}

// MainInterlocks returns the active main interlock bit positions of the
// latest poll.
func (c *Controller) MainInterlocks() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return nil
	}

	return append([]int(nil), c.snap.MainInterlocks...)
}

// ThyratronStatus returns the thyratron extension record of the latest
// poll, or nil when thyratron telemetry is disabled or no poll succeeded.
func (c *Controller) ThyratronStatus() *ThyratronStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return nil
	}

	return c.snap.Thyratron
}

// State returns the operating state derived by the latest poll cycle.
func (c *Controller) State() OperatingState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Status returns the human-readable status text of the latest poll cycle.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// Messages returns the diagnostic message list of the latest poll cycle,
// resolved interlock texts included.
func (c *Controller) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.messages...)
}

// ErrorCode returns the bitfield-encoded error code of the latest poll
// outcome.
func (c *Controller) ErrorCode() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.errorCode
}

// Value returns the last published value of an event field. It reads the
// lock-free value cache and is safe to call from any goroutine, including
// while a poll cycle is running.
func (c *Controller) Value(field string) (any, bool) {
	return c.values.Load(field)
}

func resolveFlag(requested *bool, current bool) bool {
	if requested != nil {
		return *requested
	}

	return current
}

func isTransportFailure(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection) || errors.Is(err, ErrNotConnected)
}
