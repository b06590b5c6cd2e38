package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

var triggerParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseTrigger parses a 5-field cron expression (descriptors allowed) in
// the given timezone. An expression that fails to parse with the timezone
// prefix is retried bare, matching how registrations with descriptor
// expressions behave.
func ParseTrigger(expr, timezone string) (cron.Schedule, error) {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			if schedule, err := triggerParser.Parse("CRON_TZ=" + loc.String() + " " + expr); err == nil {
				return schedule, nil
			}
		}
	}
	return triggerParser.Parse(expr)
}

// TriggerDue reports whether the trigger fires within the window ending at
// now. The tick loop submits a rule only on the tick whose window covers a
// fire time; every other tick leaves the rule alone.
func TriggerDue(expr, timezone string, now time.Time, window time.Duration) (bool, error) {
	schedule, err := ParseTrigger(expr, timezone)
	if err != nil {
		return false, err
	}
	next := schedule.Next(now.Add(-window))
	return !next.After(now), nil
}

// MinimumPeriod returns the gap between two consecutive fire times of the
// trigger, measured from now. Used to bound dispatch lock TTLs so a crashed
// holder can never block a job past its next window.
func MinimumPeriod(expr, timezone string, now time.Time) (time.Duration, error) {
	schedule, err := ParseTrigger(expr, timezone)
	if err != nil {
		return 0, err
	}
	first := schedule.Next(now)
	second := schedule.Next(first)
	return second.Sub(first), nil
}
