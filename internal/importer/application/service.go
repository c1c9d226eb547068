package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	emissions "entsoe-bridge/internal/emissions/domain"
	"entsoe-bridge/internal/entsoe"
	"entsoe-bridge/internal/observability/metrics"
	platformapp "entsoe-bridge/internal/platform/application"
	platform "entsoe-bridge/internal/platform/domain"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// Kind names an import pipeline.
type Kind string

const (
	KindPrices     Kind = "prices"
	KindGeneration Kind = "generation"
)

// Fetcher retrieves day-ahead documents from the transparency platform.
type Fetcher interface {
	BaseURL() string
	DayAheadPrices(ctx context.Context, area entsoe.Area, window timeseries.Window) (timeseries.RawSeries, error)
	GenerationForecast(ctx context.Context, area entsoe.Area, window timeseries.Window) (timeseries.RawSeries, error)
	WindSolarForecast(ctx context.Context, area entsoe.Area, window timeseries.Window) (map[emissions.FuelType]timeseries.RawSeries, error)
}

// ImportCompleted is emitted after an import has been written.
type ImportCompleted struct {
	Kind       Kind
	Country    string
	From       time.Time
	Until      time.Time
	Status     platformapp.WriteStatus
	Inserted   int
	Skipped    int
	Sensors    []string
	OccurredAt time.Time
}

// ImportPublisher emits import completed events.
type ImportPublisher interface {
	PublishImportCompleted(ctx context.Context, event ImportCompleted) error
}

// Settings holds the per-deployment import settings.
type Settings struct {
	CountryCode string
	Area        entsoe.Area
	Timezone    string
	// Resolution overrides the sensor resolution for every import. Zero keeps existing
	// sensors at their resolution and creates new ones at DefaultResolution.
	Resolution time.Duration
}

// Request selects the window of one import. Nil dates take the pipeline default.
type Request struct {
	From       *time.Time
	Until      *time.Time
	Resolution time.Duration
}

// SensorReport describes what was written to one sensor.
type SensorReport struct {
	SensorID   int64
	Name       string
	Unit       string
	Resolution time.Duration
	Source     string
	State      platformapp.SensorState
	Resampled  bool
	Points     []timeseries.Point
	Inserted   int
	Skipped    int
}

// Result reports a completed import.
type Result struct {
	Kind     Kind
	Country  string
	Window   timeseries.Window
	Status   platformapp.WriteStatus
	Inserted int
	Skipped  int
	Sensors  []SensorReport
}

// Service runs the price and generation imports.
type Service struct {
	settings   Settings
	location   *time.Location
	fetcher    Fetcher
	resolver   *platformapp.SensorResolver
	writer     *platformapp.IngestionWriter
	normalizer *timeseries.Normalizer
	deriver    *emissions.Deriver
	publisher  ImportPublisher
	clock      platformapp.Clock
	logger     *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the import completed publisher.
func WithPublisher(publisher ImportPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock sets the clock used for default windows and timing.
func WithClock(clock platformapp.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs the import service.
func NewService(
	settings Settings,
	fetcher Fetcher,
	resolver *platformapp.SensorResolver,
	writer *platformapp.IngestionWriter,
	normalizer *timeseries.Normalizer,
	deriver *emissions.Deriver,
	opts ...Option,
) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("importer: nil fetcher")
	}
	if resolver == nil {
		return nil, errors.New("importer: nil sensor resolver")
	}
	if writer == nil {
		return nil, errors.New("importer: nil ingestion writer")
	}
	if normalizer == nil {
		return nil, errors.New("importer: nil normalizer")
	}
	if deriver == nil {
		return nil, errors.New("importer: nil deriver")
	}
	if settings.Area.EIC == "" {
		return nil, errors.New("importer: empty area")
	}
	if settings.CountryCode == "" {
		settings.CountryCode = settings.Area.Code
	}
	if settings.Resolution < 0 {
		return nil, timeseries.ErrInvalidResolution
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil || settings.Timezone == "" {
		return nil, fmt.Errorf("importer: invalid timezone %q", settings.Timezone)
	}
	s := &Service{
		settings:   settings,
		location:   loc,
		fetcher:    fetcher,
		resolver:   resolver,
		writer:     writer,
		normalizer: normalizer,
		deriver:    deriver,
		clock:      platformapp.SystemClock{},
		logger:     log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ImportPrices imports day-ahead prices. The window defaults to today and tomorrow.
func (s *Service) ImportPrices(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, KindPrices, req, RangeTodayAndTomorrow, s.importPrices)
}

// ImportGeneration imports the day-ahead generation forecast and derives CO2
// intensity from it. The window defaults to tomorrow.
func (s *Service) ImportGeneration(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, KindGeneration, req, RangeTomorrow, s.importGeneration)
}

type pipeline func(ctx context.Context, window timeseries.Window, requested time.Duration) ([]pendingWrite, error)

// pendingWrite is a normalized series waiting for the single batch write.
type pendingWrite struct {
	resolved platformapp.ResolvedSensor
	source   platform.DataSource
	series   timeseries.TimeSeries
}

func (s *Service) run(ctx context.Context, kind Kind, req Request, defaultTo DefaultRange, fn pipeline) (Result, error) {
	if s == nil {
		return Result{}, errors.New("importer: nil service")
	}
	started := s.clock.Now()
	window, err := ParseDateRange(started, s.location, req.From, req.Until, defaultTo)
	if err != nil {
		return Result{}, s.fail(kind, window, started, err)
	}
	requested := req.Resolution
	if requested == 0 {
		requested = s.settings.Resolution
	}
	if requested < 0 {
		return Result{}, s.fail(kind, window, started, timeseries.ErrInvalidResolution)
	}

	s.logger.Printf("importer: Importing %s data for %s (timezone %s), starting at %s, up until %s, from ENTSO-E at %s ...",
		kind, s.settings.CountryCode, s.settings.Timezone,
		window.From.Format(time.RFC3339), window.Until.Format(time.RFC3339), s.fetcher.BaseURL())

	pending, err := fn(ctx, window, requested)
	if err != nil {
		return Result{}, s.fail(kind, window, started, err)
	}
	result, err := s.write(ctx, kind, window, pending)
	if err != nil {
		return Result{}, s.fail(kind, window, started, err)
	}
	metrics.ObserveImport(string(kind), metrics.ResultSuccess, s.clock.Now().Sub(started))
	s.publish(ctx, result)
	return result, nil
}

func (s *Service) importPrices(ctx context.Context, window timeseries.Window, requested time.Duration) ([]pendingWrite, error) {
	raw, err := s.fetcher.DayAheadPrices(ctx, s.settings.Area, window)
	if err != nil {
		return nil, err
	}
	if len(raw.Observations) == 0 {
		return nil, fmt.Errorf("%w: no day-ahead prices, probably ENTSO-E does not provide these forecasts yet", ErrNoData)
	}

	asset, err := s.resolver.EnsureTransmissionZone(ctx, s.settings.CountryCode)
	if err != nil {
		return nil, err
	}
	source, err := s.resolver.EnsureSource(ctx, platformapp.UpstreamSourceName)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolver.Resolve(ctx, asset, PriceSensor(), requested)
	if err != nil {
		return nil, err
	}
	series, err := s.normalizeFor(raw, window, resolved.Sensor)
	if err != nil {
		return nil, err
	}
	return []pendingWrite{{resolved: resolved, source: *source, series: series}}, nil
}

func (s *Service) importGeneration(ctx context.Context, window timeseries.Window, requested time.Duration) ([]pendingWrite, error) {
	total, err := s.fetcher.GenerationForecast(ctx, s.settings.Area, window)
	if err != nil {
		return nil, err
	}
	if len(total.Observations) == 0 {
		return nil, fmt.Errorf("%w: no scheduled generation, probably ENTSO-E does not provide these forecasts yet", ErrNoData)
	}
	renewables, err := s.fetcher.WindSolarForecast(ctx, s.settings.Area, window)
	if err != nil {
		return nil, err
	}

	asset, err := s.resolver.EnsureTransmissionZone(ctx, s.settings.CountryCode)
	if err != nil {
		return nil, err
	}
	upstream, err := s.resolver.EnsureSource(ctx, platformapp.UpstreamSourceName)
	if err != nil {
		return nil, err
	}

	var pending []pendingWrite
	for _, gs := range generationSensors() {
		raw := total
		if gs.Fuel != "" {
			raw = renewables[gs.Fuel]
			if len(raw.Observations) == 0 {
				s.logger.Printf("importer: no %s forecast for %s, skipping sensor=%q", gs.Fuel, s.settings.CountryCode, gs.Spec.Name)
				continue
			}
		}
		resolved, err := s.resolver.Resolve(ctx, asset, gs.Spec, requested)
		if err != nil {
			return nil, err
		}
		series, err := s.normalizeFor(raw, window, resolved.Sensor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", gs.Spec.Name, err)
		}
		pending = append(pending, pendingWrite{resolved: resolved, source: *upstream, series: series})
	}

	intensity, err := s.resolver.Resolve(ctx, asset, IntensitySensor(), requested)
	if err != nil {
		return nil, err
	}
	mix, err := s.generationMix(total, renewables, window, intensity.Sensor.Resolution)
	if err != nil {
		return nil, err
	}
	derived, err := s.deriver.Derive(mix)
	if err != nil {
		return nil, err
	}
	derivedSource, err := s.resolver.EnsureSource(ctx, derived.Source)
	if err != nil {
		return nil, err
	}
	return append(pending, pendingWrite{resolved: intensity, source: *derivedSource, series: derived.TimeSeries}), nil
}

// generationMix normalizes the scheduled total and the wind and solar forecasts to
// MW at resolution and adds the residual: total minus wind and solar, never negative.
func (s *Service) generationMix(
	total timeseries.RawSeries,
	renewables map[emissions.FuelType]timeseries.RawSeries,
	window timeseries.Window,
	resolution time.Duration,
) (map[emissions.FuelType]timeseries.TimeSeries, error) {
	target := timeseries.Target{Resolution: resolution, Unit: unitPower}
	totalSeries, err := s.normalizer.Normalize(total, window, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SensorScheduledGeneration, err)
	}

	fuels := make([]emissions.FuelType, 0, len(renewables))
	for fuel, raw := range renewables {
		if len(raw.Observations) > 0 {
			fuels = append(fuels, fuel)
		}
	}
	sort.Slice(fuels, func(i, j int) bool { return fuels[i] < fuels[j] })

	mix := make(map[emissions.FuelType]timeseries.TimeSeries, len(fuels)+1)
	for _, fuel := range fuels {
		series, err := s.normalizer.Normalize(renewables[fuel], window, target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fuel, err)
		}
		mix[fuel] = series
	}

	residual := timeseries.TimeSeries{
		Kind:       timeseries.KindGenerationPower,
		Unit:       unitPower,
		Resolution: resolution,
		Points:     make([]timeseries.Point, totalSeries.Len()),
	}
	for i, p := range totalSeries.Points {
		residual.Points[i].At = p.At
		if !p.Valid {
			continue
		}
		value := p.Value
		valid := true
		for _, fuel := range fuels {
			q := mix[fuel].Points[i]
			if !q.Valid {
				valid = false
				break
			}
			value -= q.Value
		}
		if !valid {
			continue
		}
		if value < 0 {
			value = 0
		}
		residual.Points[i].Value = value
		residual.Points[i].Valid = true
	}
	mix[emissions.FuelResidual] = residual
	return mix, nil
}

func (s *Service) normalizeFor(raw timeseries.RawSeries, window timeseries.Window, sensor platform.Sensor) (timeseries.TimeSeries, error) {
	return s.normalizer.Normalize(raw, window, timeseries.Target{Resolution: sensor.Resolution, Unit: sensor.Unit})
}

func (s *Service) write(ctx context.Context, kind Kind, window timeseries.Window, pending []pendingWrite) (Result, error) {
	writes := make([]platformapp.SeriesWrite, 0, len(pending))
	for _, p := range pending {
		writes = append(writes, platformapp.SeriesWrite{Sensor: p.resolved.Sensor, Source: p.source, Series: p.series})
	}
	written, err := s.writer.Write(ctx, writes)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Kind:     kind,
		Country:  s.settings.CountryCode,
		Window:   window,
		Status:   written.Status,
		Inserted: written.Inserted,
		Skipped:  written.Skipped,
	}
	for _, p := range pending {
		count := written.BySensor[p.resolved.Sensor.ID]
		result.Sensors = append(result.Sensors, SensorReport{
			SensorID:   p.resolved.Sensor.ID,
			Name:       p.resolved.Sensor.Name,
			Unit:       p.resolved.Sensor.Unit,
			Resolution: p.resolved.Sensor.Resolution,
			Source:     p.source.Name,
			State:      p.resolved.State,
			Resampled:  p.resolved.Resampled,
			Points:     p.series.Points,
			Inserted:   count.Inserted,
			Skipped:    count.Skipped,
		})
	}
	return result, nil
}

func (s *Service) fail(kind Kind, window timeseries.Window, started time.Time, err error) error {
	result := metrics.ResultError
	if errors.Is(err, ErrNoData) {
		result = metrics.ResultEmpty
	}
	metrics.ObserveImport(string(kind), result, s.clock.Now().Sub(started))
	importErr := &ImportError{Kind: kind, Country: s.settings.CountryCode, Window: window, Err: err}
	s.logger.Printf("importer: %v", importErr)
	return importErr
}

// publish reports the import. Failures are logged only; the beliefs are already stored.
func (s *Service) publish(ctx context.Context, result Result) {
	if s.publisher == nil {
		return
	}
	event := ImportCompleted{
		Kind:       result.Kind,
		Country:    result.Country,
		From:       result.Window.From,
		Until:      result.Window.Until,
		Status:     result.Status,
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
		OccurredAt: s.clock.Now().UTC(),
	}
	for _, sensor := range result.Sensors {
		event.Sensors = append(event.Sensors, sensor.Name)
	}
	if err := s.publisher.PublishImportCompleted(ctx, event); err != nil {
		s.logger.Printf("importer: publish import completed failed: kind=%s country=%s err=%v", result.Kind, result.Country, err)
	}
}
