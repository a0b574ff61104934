// Package schedule wraps cron expression handling for job scheduling.
// Job cadence is minute-granular: expressions use the standard 5-field
// grammar plus descriptors like @daily, never a seconds field.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports whether expr is a parseable cron expression.
func Validate(expr string) error {
	_, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextAfter returns the first fire time of expr strictly after now.
func NextAfter(expr string, now time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// FromShorthand translates the daily/weekly/monthly convenience schedule
// kinds into a cron expression anchored at now: weekly keeps the current
// weekday, monthly the current day of month.
func FromShorthand(kind, timeOfDay string, now time.Time) (string, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return "", err
	}

	switch kind {
	case "daily":
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case "weekly":
		return fmt.Sprintf("%d %d * * %d", minute, hour, int(now.Weekday())), nil
	case "monthly":
		return fmt.Sprintf("%d %d %d * *", minute, hour, now.Day()), nil
	}
	return "", fmt.Errorf("unknown schedule shorthand %q", kind)
}

// ParseTimeOfDay parses a "HH:MM" clock time.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
