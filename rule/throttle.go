package rule

import "time"

// Throttle is the mutable rate-limit state carried on a rule.
//
// Windows are rolling-reset, not fixed-calendar: a counter resets only once
// the full window length has elapsed since its reset timestamp, at which point
// the window restarts from that moment. A rule firing after a long idle period
// therefore gets a fresh window starting then, not at a calendar boundary.
type Throttle struct {
	HourCount      int        `json:"hour_count"`
	DayCount       int        `json:"day_count"`
	HourResetAt    time.Time  `json:"hour_reset_at"`
	DayResetAt     time.Time  `json:"day_reset_at"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
}

// ThrottleReason explains why a rule was throttled.
type ThrottleReason string

// Throttle reasons, surfaced in execution results for observability.
const (
	ThrottleNone     ThrottleReason = ""
	ThrottleHourly   ThrottleReason = "hourly limit reached"
	ThrottleDaily    ThrottleReason = "daily limit reached"
	ThrottleCooldown ThrottleReason = "cooldown active"
)

// IsThrottled reports whether the rule's limits currently suppress execution.
// Expired windows are rolled forward as a side effect so subsequent counter
// checks see fresh windows; callers persist the rule after execution anyway.
func (r *Rule) IsThrottled(now time.Time) (bool, ThrottleReason) {
	r.Throttle.roll(now)

	if r.Limits.CooldownMinutes > 0 && r.Throttle.LastExecutedAt != nil {
		cooldown := time.Duration(r.Limits.CooldownMinutes) * time.Minute
		if now.Sub(*r.Throttle.LastExecutedAt) < cooldown {
			return true, ThrottleCooldown
		}
	}

	if r.Limits.MaxPerHour > 0 && r.Throttle.HourCount >= r.Limits.MaxPerHour {
		return true, ThrottleHourly
	}

	if r.Limits.MaxPerDay > 0 && r.Throttle.DayCount >= r.Limits.MaxPerDay {
		return true, ThrottleDaily
	}

	return false, ThrottleNone
}

// RecordExecution increments both window counters and stamps the execution
// time. It must be called exactly once per actual rule execution — calling it
// on a throttled or non-matching evaluation corrupts the accounting.
func (r *Rule) RecordExecution(now time.Time) {
	r.Throttle.roll(now)
	r.Throttle.HourCount++
	r.Throttle.DayCount++
	at := now
	r.Throttle.LastExecutedAt = &at
}

// roll resets any window whose full length has elapsed.
func (t *Throttle) roll(now time.Time) {
	if now.Sub(t.HourResetAt) > time.Hour {
		t.HourCount = 0
		t.HourResetAt = now
	}
	if now.Sub(t.DayResetAt) > 24*time.Hour {
		t.DayCount = 0
		t.DayResetAt = now
	}
}
