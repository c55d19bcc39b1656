package hvps

import (
	"math"
	"time"
)

// DefaultDischargeDuration is the default high-voltage bleed-down time
// before a pending power-down or standby transition completes.
const DefaultDischargeDuration = 3 * time.Second

// MaxDischargeDuration bounds the configurable bleed-down time.
const MaxDischargeDuration = 600 * time.Second

// dischargeRequest tracks one pending high-voltage bleed-down. The
// deferred HV-off write has already been issued when the request is
// created; target holds the pulser unit and HVPS bits of the final mode
// write issued on resolution.
type dischargeRequest struct {
	target    ModeFlags
	startedAt time.Time
	duration  time.Duration
}

// expired reports whether the bleed-down time has elapsed. A zero
// duration expires immediately.
func (d *dischargeRequest) expired(now time.Time) bool {
	if d.duration <= 0 {
		return true
	}

	return now.Sub(d.startedAt) >= d.duration
}

// remainingSeconds returns the remaining bleed-down time rounded to whole
// seconds, never negative.
func (d *dischargeRequest) remainingSeconds(now time.Time) int {
	remaining := d.duration - now.Sub(d.startedAt)
	if remaining <= 0 {
		return 0
	}

	return int(math.Round(remaining.Seconds()))
}
