package timeutil

import "time"

// Remaining returns the time left on a reservation window that started at
// start and was booked for hours:minutes, measured at now. Negative values
// mean the window has already elapsed.
func Remaining(start time.Time, hours, minutes int, now time.Time) time.Duration {
	end := start.
		Add(time.Duration(hours) * time.Hour).
		Add(time.Duration(minutes) * time.Minute)
	return end.Sub(now)
}

// ClockParts splits a duration into its hour-of-day and minute components.
//
// Only the hour-of-day is kept: a remaining time of 25h10m yields (1, 10),
// the day-scale overflow is discarded. This truncation matches the pause
// snapshot format persisted by the accounting handlers; callers that need
// the full duration must not round-trip it through ClockParts.
func ClockParts(d time.Duration) (hours, minutes int) {
	if d <= 0 {
		return 0, 0
	}
	totalMinutes := int(d.Minutes())
	return (totalMinutes / 60) % 24, totalMinutes % 60
}

// PartsDuration is the inverse of ClockParts for in-range values.
func PartsDuration(hours, minutes int) time.Duration {
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}

// Tier labels the urgency of a remaining duration.
type Tier string

const (
	TierNone     Tier = "none"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

// Classify maps a remaining duration onto exactly one alert tier. Boundaries
// are closed at the lower tier: exactly 0 is expired, exactly critical is
// critical, exactly warning is warning.
func Classify(remaining, critical, warning time.Duration) Tier {
	switch {
	case remaining <= 0:
		return TierExpired
	case remaining <= critical:
		return TierCritical
	case remaining <= warning:
		return TierWarning
	default:
		return TierNone
	}
}
