package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// Target describes the grid and unit a series is normalized onto.
type Target struct {
	Resolution time.Duration
	Unit       string
}

// Normalizer converts raw upstream observations into a regular series at a target
// resolution. It never fills gaps: missing source intervals stay undefined.
type Normalizer struct {
	gapTolerance time.Duration
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithGapTolerance sets the longest run of missing source data accepted before the
// window is rejected as incomplete. Zero rejects any gap.
func WithGapTolerance(tolerance time.Duration) NormalizerOption {
	return func(n *Normalizer) {
		if tolerance >= 0 {
			n.gapTolerance = tolerance
		}
	}
}

// NewNormalizer constructs a normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// GapTolerance returns the configured tolerance.
func (n *Normalizer) GapTolerance() time.Duration {
	if n == nil {
		return 0
	}
	return n.gapTolerance
}

// Normalize places raw observations inside window on the source grid, checks the
// window is complete, converts units and resamples onto target.Resolution.
func (n *Normalizer) Normalize(raw RawSeries, window Window, target Target) (TimeSeries, error) {
	if err := window.Validate(); err != nil {
		return TimeSeries{}, err
	}
	if target.Resolution <= 0 {
		return TimeSeries{}, fmt.Errorf("%w: target %s", ErrInvalidResolution, target.Resolution)
	}
	agg, err := raw.Kind.Aggregation()
	if err != nil {
		return TimeSeries{}, err
	}
	unit := target.Unit
	if unit == "" {
		unit = CanonicalUnit(raw.Unit)
	}
	factor, err := UnitFactor(raw.Unit, unit)
	if err != nil {
		return TimeSeries{}, err
	}

	observations := inWindow(raw.Observations, window)
	if len(observations) == 0 {
		return TimeSeries{}, fmt.Errorf("%w: no observations between %s and %s",
			ErrIncompleteData, window.From.UTC().Format(time.RFC3339), window.Until.UTC().Format(time.RFC3339))
	}

	source := raw.Resolution
	if source <= 0 {
		source, err = InferResolution(observations)
		if err != nil {
			return TimeSeries{}, err
		}
	}
	if err := CheckCompatible(source, target.Resolution); err != nil {
		return TimeSeries{}, err
	}
	if _, err := window.Slots(target.Resolution); err != nil {
		return TimeSeries{}, err
	}

	grid, err := placeOnGrid(observations, window, source)
	if err != nil {
		return TimeSeries{}, err
	}
	if err := n.checkGaps(grid, source); err != nil {
		return TimeSeries{}, err
	}
	for i := range grid {
		if grid[i].Valid {
			grid[i].Value *= factor
		}
	}

	var points []Point
	switch {
	case source == target.Resolution:
		points = grid
	case source < target.Resolution:
		points = downsample(grid, int(target.Resolution/source), agg)
	default:
		points = upsample(grid, int(source/target.Resolution), target.Resolution)
	}

	return TimeSeries{
		Kind:       raw.Kind,
		Unit:       unit,
		Resolution: target.Resolution,
		Points:     points,
	}, nil
}

// InferResolution returns the smallest positive spacing between sorted observations.
func InferResolution(observations []RawObservation) (time.Duration, error) {
	if len(observations) < 2 {
		return 0, fmt.Errorf("%w: cannot infer from %d observation(s)", ErrInvalidResolution, len(observations))
	}
	var best time.Duration
	for i := 1; i < len(observations); i++ {
		d := observations[i].At.Sub(observations[i-1].At)
		if d <= 0 {
			continue
		}
		if best == 0 || d < best {
			best = d
		}
	}
	if best <= 0 {
		return 0, fmt.Errorf("%w: no discernible spacing", ErrInvalidResolution)
	}
	return best, nil
}

// inWindow returns a sorted copy of the observations inside the window. A later
// duplicate timestamp overrides an earlier one.
func inWindow(observations []RawObservation, window Window) []RawObservation {
	out := make([]RawObservation, 0, len(observations))
	for _, o := range observations {
		if o.At.Before(window.From) || !o.At.Before(window.Until) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	dedup := out[:0]
	for _, o := range out {
		if len(dedup) > 0 && dedup[len(dedup)-1].At.Equal(o.At) {
			dedup[len(dedup)-1] = o
			continue
		}
		dedup = append(dedup, o)
	}
	return dedup
}

func placeOnGrid(observations []RawObservation, window Window, source time.Duration) ([]Point, error) {
	slots, err := window.Slots(source)
	if err != nil {
		return nil, err
	}
	grid := make([]Point, slots)
	from := window.From.UTC()
	for i := range grid {
		grid[i].At = from.Add(time.Duration(i) * source)
	}
	for _, o := range observations {
		offset := o.At.Sub(window.From)
		if offset%source != 0 {
			return nil, fmt.Errorf("%w: observation at %s is off the %s grid",
				ErrUnevenSpacing, o.At.UTC().Format(time.RFC3339), FormatResolution(source))
		}
		idx := int(offset / source)
		grid[idx].Value = o.Value
		grid[idx].Valid = true
	}
	return grid, nil
}

func (n *Normalizer) checkGaps(grid []Point, source time.Duration) error {
	tolerance := n.GapTolerance()
	missing := 0
	run := 0
	runStart := -1
	worstStart, worst := -1, 0
	for i, p := range grid {
		if p.Valid {
			run = 0
			continue
		}
		missing++
		if run == 0 {
			runStart = i
		}
		run++
		if run > worst {
			worst = run
			worstStart = runStart
		}
	}
	if missing == 0 {
		return nil
	}
	if time.Duration(worst)*source > tolerance {
		return fmt.Errorf("%w: expected %d periods, got %d; gap of %s starting %s",
			ErrIncompleteData, len(grid), len(grid)-missing,
			time.Duration(worst)*source, grid[worstStart].At.Format(time.RFC3339))
	}
	return nil
}

func downsample(grid []Point, ratio int, agg Aggregation) []Point {
	out := make([]Point, 0, len(grid)/ratio)
	for start := 0; start+ratio <= len(grid); start += ratio {
		p := Point{At: grid[start].At, Valid: true}
		sum := 0.0
		for _, sub := range grid[start : start+ratio] {
			if !sub.Valid {
				p.Valid = false
				break
			}
			sum += sub.Value
		}
		if p.Valid {
			if agg == AggregationMean {
				p.Value = sum / float64(ratio)
			} else {
				p.Value = sum
			}
		}
		out = append(out, p)
	}
	return out
}

// upsample holds each coarse value across its finer intervals for every kind.
func upsample(grid []Point, ratio int, step time.Duration) []Point {
	out := make([]Point, 0, len(grid)*ratio)
	for _, p := range grid {
		for j := 0; j < ratio; j++ {
			sub := Point{At: p.At.Add(time.Duration(j) * step), Valid: p.Valid}
			if p.Valid {
				sub.Value = p.Value
			}
			out = append(out, sub)
		}
	}
	return out
}
