package utils

import (
	"fmt"
	"time"
)

// DateLayout is the provider-facing date format used for history windows.
const DateLayout = "2006-01-02"

// Clock supplies the current time. Anything computing "today" or a date
// window takes a Clock so the result is deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// DateWindow returns the [from, to] range used for history and company news.
// Empty start/end default to one month ago and today respectively.
func DateWindow(c Clock, start, end string) (from, to time.Time, err error) {
	now := c.Now()
	to = truncateDay(now)
	from = truncateDay(now.AddDate(0, -1, 0))

	if end != "" {
		if to, err = time.ParseInLocation(DateLayout, end, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid enddate %q: %w", end, err)
		}
	}
	if start != "" {
		if from, err = time.ParseInLocation(DateLayout, start, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startdate %q: %w", start, err)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("startdate %s is after enddate %s",
			from.Format(DateLayout), to.Format(DateLayout))
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
