package emissions

import (
	"fmt"
	"log"
	"sort"

	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// DerivedSource is the default name of the data source credited with derived series.
const DerivedSource = "FlexMeasures ENTSO-E"

// DerivedSeries is an intensity series computed from generation data.
type DerivedSeries struct {
	timeseries.TimeSeries
	Source string
}

// Deriver computes the generation-weighted CO2 intensity of a generation mix.
type Deriver struct {
	factors FactorTable
	strict  bool
	source  string
	logger  *log.Logger
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithStrictFuelTypes makes unknown fuel types an error instead of a zero factor.
func WithStrictFuelTypes(strict bool) DeriverOption {
	return func(d *Deriver) {
		d.strict = strict
	}
}

// WithDerivedSource sets the data source name attached to derived series.
func WithDerivedSource(source string) DeriverOption {
	return func(d *Deriver) {
		if source != "" {
			d.source = source
		}
	}
}

// WithLogger sets the logger used for unknown fuel warnings.
func WithLogger(logger *log.Logger) DeriverOption {
	return func(d *Deriver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDeriver constructs a deriver over a validated factor table.
func NewDeriver(factors FactorTable, opts ...DeriverOption) (*Deriver, error) {
	if len(factors) == 0 {
		factors = DefaultFactors()
	}
	if err := factors.Validate(); err != nil {
		return nil, err
	}
	d := &Deriver{
		factors: factors,
		source:  DerivedSource,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Derive returns intensity(t) = sum(gen_f(t) * factor_f) / sum(gen_f(t)) over the fuel
// types with a defined value at t. Negative generation (storage consumption) counts as
// zero. Intervals with no defined value or zero total generation are left undefined.
func (d *Deriver) Derive(generation map[FuelType]timeseries.TimeSeries) (DerivedSeries, error) {
	if d == nil {
		return DerivedSeries{}, fmt.Errorf("emissions: nil deriver")
	}
	if len(generation) == 0 {
		return DerivedSeries{}, ErrNoGeneration
	}

	fuels := make([]FuelType, 0, len(generation))
	for fuel := range generation {
		fuels = append(fuels, fuel)
	}
	sort.Slice(fuels, func(i, j int) bool { return fuels[i] < fuels[j] })

	reference := generation[fuels[0]]
	factors := make(map[FuelType]float64, len(fuels))
	for _, fuel := range fuels {
		series := generation[fuel]
		if !series.Kind.IsGeneration() {
			return DerivedSeries{}, fmt.Errorf("%w: %s series for %s is not generation", timeseries.ErrUnknownSeriesKind, series.Kind, fuel)
		}
		if !series.AlignedWith(reference) {
			return DerivedSeries{}, fmt.Errorf("%w: %s does not align with %s", timeseries.ErrMisaligned, fuel, fuels[0])
		}
		if timeseries.CanonicalUnit(series.Unit) != timeseries.CanonicalUnit(reference.Unit) {
			return DerivedSeries{}, fmt.Errorf("%w: %s in %s, %s in %s", timeseries.ErrMisaligned, fuel, series.Unit, fuels[0], reference.Unit)
		}
		factor, ok := d.factors.Lookup(fuel)
		if !ok {
			if d.strict {
				return DerivedSeries{}, fmt.Errorf("%w: %s", ErrUnknownFuelType, fuel)
			}
			d.logger.Printf("emissions: unknown fuel type=%s, using factor 0", fuel)
		}
		factors[fuel] = factor
	}

	points := make([]timeseries.Point, reference.Len())
	for i := range points {
		points[i].At = reference.Points[i].At
		weighted, total := 0.0, 0.0
		defined := false
		for _, fuel := range fuels {
			p := generation[fuel].Points[i]
			if !p.Valid {
				continue
			}
			defined = true
			value := p.Value
			if value < 0 {
				value = 0
			}
			weighted += value * factors[fuel]
			total += value
		}
		if !defined || total <= 0 {
			continue
		}
		points[i].Value = weighted / total
		points[i].Valid = true
	}

	return DerivedSeries{
		TimeSeries: timeseries.TimeSeries{
			Kind:       timeseries.KindIntensity,
			Unit:       IntensityUnit,
			Resolution: reference.Resolution,
			Points:     points,
		},
		Source: d.source,
	}, nil
}
