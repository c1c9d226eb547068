package timeseries

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseResolution accepts ISO 8601 durations as used by the transparency platform
// (PT15M, PT60M, PT1H, P1D) as well as Go duration strings (15m, 1h).
func ParseResolution(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidResolution)
	}
	if strings.HasPrefix(strings.ToUpper(value), "P") {
		d, err := parseISODuration(strings.ToUpper(value))
		if err != nil {
			return 0, err
		}
		return d, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
	}
	return d, nil
}

// FormatResolution renders a resolution as an ISO 8601 duration.
func FormatResolution(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	if d%(24*time.Hour) == 0 {
		return fmt.Sprintf("P%dD", d/(24*time.Hour))
	}
	var b strings.Builder
	b.WriteString("PT")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if d > 0 {
		fmt.Fprintf(&b, "%dS", d/time.Second)
	}
	return b.String()
}

func parseISODuration(value string) (time.Duration, error) {
	rest := strings.TrimPrefix(value, "P")
	var total time.Duration
	inTime := false
	num := ""
	for _, r := range rest {
		switch {
		case r == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
			}
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			if num == "" {
				return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
			}
			unit, err := isoUnit(r, inTime)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", err, value)
			}
			total += time.Duration(n) * unit
			num = ""
		}
	}
	if num != "" || total <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, value)
	}
	return total, nil
}

func isoUnit(r rune, inTime bool) (time.Duration, error) {
	if inTime {
		switch r {
		case 'H':
			return time.Hour, nil
		case 'M':
			return time.Minute, nil
		case 'S':
			return time.Second, nil
		}
		return 0, ErrInvalidResolution
	}
	switch r {
	case 'D':
		return 24 * time.Hour, nil
	case 'W':
		return 7 * 24 * time.Hour, nil
	}
	// Months and years have no fixed length.
	return 0, ErrInvalidResolution
}

// CheckCompatible reports whether data at source resolution can be converted to target
// resolution without splitting an interval unevenly.
func CheckCompatible(source, target time.Duration) error {
	if source <= 0 || target <= 0 {
		return ErrInvalidResolution
	}
	if source%target == 0 || target%source == 0 {
		return nil
	}
	return fmt.Errorf("%w: cannot convert %s to %s", ErrResolutionMismatch, FormatResolution(source), FormatResolution(target))
}
