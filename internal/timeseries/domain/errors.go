package timeseries

import "errors"

var (
	// ErrInvalidResolution is returned when a resolution is zero, negative or unparsable.
	ErrInvalidResolution = errors.New("timeseries: invalid resolution")
	// ErrResolutionMismatch is returned when the target resolution is neither an integer
	// multiple nor an integer divisor of the source resolution.
	ErrResolutionMismatch = errors.New("timeseries: resolution mismatch")
	// ErrIncompleteData is returned when source data has gaps beyond the tolerance.
	ErrIncompleteData = errors.New("timeseries: incomplete data")
	// ErrUnevenSpacing is returned when observations do not sit on a regular grid.
	ErrUnevenSpacing = errors.New("timeseries: uneven spacing")
	// ErrInvalidWindow is returned when a window is empty or not aligned to a resolution.
	ErrInvalidWindow = errors.New("timeseries: invalid window")
	// ErrUnknownSeriesKind is returned for an unsupported series kind.
	ErrUnknownSeriesKind = errors.New("timeseries: unknown series kind")
	// ErrUnknownUnitConversion is returned when no conversion between two units is known.
	ErrUnknownUnitConversion = errors.New("timeseries: unknown unit conversion")
	// ErrMisaligned is returned when series that must share a grid do not.
	ErrMisaligned = errors.New("timeseries: misaligned series")
)
