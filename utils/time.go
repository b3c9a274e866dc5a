package utils

import (
	"fmt"
	"time"

	"github.com/meinhoongagan/carenest/models"
)

// ParseDate parses a "YYYY-MM-DD" calendar date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// ParseClock validates a 24h "HH:MM" time of day and returns it zero-padded.
func ParseClock(value string) (string, error) {
	t, err := time.Parse(models.ClockLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return t.Format(models.ClockLayout), nil
}

// CombineDateTime joins a date and an "HH:MM" clock into one instant in loc.
func CombineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse(models.ClockLayout, c)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// ParseTimestamp accepts RFC 3339 or "YYYY-MM-DD HH:MM" in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, expected RFC 3339", value)
	}
	return t, nil
}
