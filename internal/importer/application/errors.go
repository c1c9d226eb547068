package application

import (
	"errors"
	"fmt"

	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// ErrNoData is returned when the upstream has nothing for the requested window.
var ErrNoData = errors.New("importer: no data")

// ImportError carries the context of a failed import.
type ImportError struct {
	Kind    Kind
	Country string
	Window  timeseries.Window
	Err     error
}

func (e *ImportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("importer: %s import for %s from %s until %s failed: %v",
		e.Kind, e.Country, e.Window.From.Format("2006-01-02T15:04Z07:00"),
		e.Window.Until.Format("2006-01-02T15:04Z07:00"), e.Err)
}

// Unwrap exposes the cause.
func (e *ImportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
