package application

import (
	"fmt"
	"time"

	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// DefaultRange names the window used when no dates are given.
type DefaultRange string

const (
	RangeToday            DefaultRange = "today"
	RangeTomorrow         DefaultRange = "tomorrow"
	RangeTodayAndTomorrow DefaultRange = "today-and-tomorrow"
)

// ParseDateRange turns optional from/until dates into a window in loc. Only the
// calendar date of from and until is used, and until is inclusive. A missing from
// takes the start of the default range; a missing until takes its end, or the end of
// the from day when from is given.
func ParseDateRange(now time.Time, loc *time.Location, from, until *time.Time, defaultTo DefaultRange) (timeseries.Window, error) {
	if loc == nil {
		return timeseries.Window{}, fmt.Errorf("%w: nil location", timeseries.ErrInvalidWindow)
	}
	today := startOfDay(now, loc)
	var defaultFrom, defaultUntil time.Time
	switch defaultTo {
	case RangeToday:
		defaultFrom, defaultUntil = today, addDays(today, 1)
	case RangeTomorrow:
		defaultFrom, defaultUntil = addDays(today, 1), addDays(today, 2)
	case RangeTodayAndTomorrow:
		defaultFrom, defaultUntil = today, addDays(today, 2)
	default:
		return timeseries.Window{}, fmt.Errorf("%w: unknown default range %q", timeseries.ErrInvalidWindow, defaultTo)
	}

	window := timeseries.Window{From: defaultFrom, Until: defaultUntil}
	if from != nil {
		window.From = startOfDay(dateIn(*from, loc), loc)
		window.Until = addDays(window.From, 1)
	}
	if until != nil {
		window.Until = addDays(startOfDay(dateIn(*until, loc), loc), 1)
	}
	if err := window.Validate(); err != nil {
		return timeseries.Window{}, err
	}
	return window, nil
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", timeseries.ErrInvalidWindow, value)
	}
	return t, nil
}

// dateIn keeps the calendar date of t as written, whatever its location.
func dateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// addDays adds calendar days, so DST transition days keep their 23 or 25 hours.
func addDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, t.Location())
}
