package timeseries

import (
	"fmt"
	"time"
)

// SeriesKind tags a series with the physical meaning of its values. Resampling
// dispatches on the kind instead of guessing from the unit.
type SeriesKind string

const (
	KindPrice            SeriesKind = "PRICE"
	KindGenerationPower  SeriesKind = "GENERATION_POWER"
	KindGenerationEnergy SeriesKind = "GENERATION_ENERGY"
	KindIntensity        SeriesKind = "INTENSITY"
)

// Aggregation is the rule used when combining sub-intervals into a coarser interval.
type Aggregation string

const (
	AggregationMean Aggregation = "MEAN"
	AggregationSum  Aggregation = "SUM"
)

// Aggregation returns the aggregation rule for the kind. Prices, intensities and
// average power are intensive quantities and are averaged; energy volumes are summed.
func (k SeriesKind) Aggregation() (Aggregation, error) {
	switch k {
	case KindPrice, KindIntensity, KindGenerationPower:
		return AggregationMean, nil
	case KindGenerationEnergy:
		return AggregationSum, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeriesKind, string(k))
	}
}

// IsGeneration reports whether the kind describes generated power or energy.
func (k SeriesKind) IsGeneration() bool {
	return k == KindGenerationPower || k == KindGenerationEnergy
}

// Window is the half-open interval [From, Until).
type Window struct {
	From  time.Time
	Until time.Time
}

// Validate ensures the window is non-empty.
func (w Window) Validate() error {
	if w.From.IsZero() || w.Until.IsZero() {
		return fmt.Errorf("%w: zero bound", ErrInvalidWindow)
	}
	if !w.From.Before(w.Until) {
		return fmt.Errorf("%w: from %s not before until %s", ErrInvalidWindow, w.From.Format(time.RFC3339), w.Until.Format(time.RFC3339))
	}
	return nil
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.Until.Sub(w.From)
}

// Slots returns the number of intervals of the given resolution in the window.
func (w Window) Slots(resolution time.Duration) (int, error) {
	if resolution <= 0 {
		return 0, ErrInvalidResolution
	}
	d := w.Duration()
	if d%resolution != 0 {
		return 0, fmt.Errorf("%w: %s is not a multiple of %s", ErrInvalidWindow, d, FormatResolution(resolution))
	}
	return int(d / resolution), nil
}

// RawObservation is a single upstream value, possibly tagged with a fuel type.
type RawObservation struct {
	At       time.Time
	Value    float64
	FuelType string
}

// RawSeries is the upstream data before normalization. Resolution may be zero, in
// which case it is inferred from the observation spacing.
type RawSeries struct {
	Kind         SeriesKind
	Unit         string
	Resolution   time.Duration
	Observations []RawObservation
}

// Point is one interval of a TimeSeries. Valid is false where the value is undefined.
type Point struct {
	At    time.Time
	Value float64
	Valid bool
}

// TimeSeries is an evenly spaced series whose points each cover one resolution step.
type TimeSeries struct {
	Kind       SeriesKind
	Unit       string
	Resolution time.Duration
	Points     []Point
}

// Len returns the number of points.
func (s TimeSeries) Len() int {
	return len(s.Points)
}

// Start returns the timestamp of the first point.
func (s TimeSeries) Start() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].At
}

// End returns the exclusive end of the last interval.
func (s TimeSeries) End() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].At.Add(s.Resolution)
}

// ValidCount returns the number of points with a defined value.
func (s TimeSeries) ValidCount() int {
	count := 0
	for _, p := range s.Points {
		if p.Valid {
			count++
		}
	}
	return count
}

// Validate checks the series sits on a regular grid.
func (s TimeSeries) Validate() error {
	if s.Resolution <= 0 {
		return ErrInvalidResolution
	}
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].At.Sub(s.Points[i-1].At) != s.Resolution {
			return fmt.Errorf("%w: point %d at %s", ErrUnevenSpacing, i, s.Points[i].At.Format(time.RFC3339))
		}
	}
	return nil
}

// AlignedWith reports whether both series share start, resolution and length.
func (s TimeSeries) AlignedWith(other TimeSeries) bool {
	return s.Resolution == other.Resolution &&
		len(s.Points) == len(other.Points) &&
		s.Start().Equal(other.Start())
}
