package application

import (
	"errors"
	"testing"
	"time"

	timeseries "entsoe-bridge/internal/timeseries/domain"
)

func TestParseDateRangeDefaults(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Amsterdam")
	now := time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC)
	today := time.Date(2024, 6, 12, 0, 0, 0, 0, loc)

	tests := []struct {
		name      string
		defaultTo DefaultRange
		from      time.Time
		until     time.Time
	}{
		{"today", RangeToday, today, today.AddDate(0, 0, 1)},
		{"tomorrow", RangeTomorrow, today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)},
		{"today and tomorrow", RangeTodayAndTomorrow, today, today.AddDate(0, 0, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := ParseDateRange(now, loc, nil, nil, tt.defaultTo)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !window.From.Equal(tt.from) || !window.Until.Equal(tt.until) {
				t.Fatalf("unexpected window %s - %s", window.From, window.Until)
			}
		})
	}

	if _, err := ParseDateRange(now, loc, nil, nil, "yesterday"); !errors.Is(err, timeseries.ErrInvalidWindow) {
		t.Fatalf("expected invalid window for unknown default, got %v", err)
	}
}

func TestParseDateRangeExplicitDates(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Amsterdam")
	now := time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC)

	from, err := ParseDate("2024-03-30", loc)
	if err != nil {
		t.Fatalf("parse from: %v", err)
	}
	until, err := ParseDate("2024-03-31", loc)
	if err != nil {
		t.Fatalf("parse until: %v", err)
	}

	window, err := ParseDateRange(now, loc, &from, &until, RangeTomorrow)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	// until is inclusive and 2024-03-31 has 23 hours in Amsterdam.
	if window.Duration() != 47*time.Hour {
		t.Fatalf("expected 47h, got %s", window.Duration())
	}
	if want := time.Date(2024, 3, 29, 23, 0, 0, 0, time.UTC); !window.From.Equal(want) {
		t.Fatalf("expected from %s, got %s", want, window.From.UTC())
	}

	single, err := ParseDateRange(now, loc, &from, nil, RangeTomorrow)
	if err != nil {
		t.Fatalf("parse single: %v", err)
	}
	if single.Duration() != 24*time.Hour {
		t.Fatalf("expected one day, got %s", single.Duration())
	}

	onlyUntil, err := ParseDateRange(now, loc, nil, &until, RangeToday)
	if err == nil {
		t.Fatalf("expected error for until before default from, got %+v", onlyUntil)
	}

	if _, err := ParseDate("31-03-2024", loc); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}
