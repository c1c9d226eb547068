package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"entsoe-bridge/internal/observability/metrics"
	platform "entsoe-bridge/internal/platform/domain"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

const (
	// TransmissionZoneType is the asset type for national grids.
	TransmissionZoneType = "transmission zone"
	// TransmissionZoneDescription describes the asset type.
	TransmissionZoneDescription = "A grid regulated & balanced as a whole, usually a national grid."
	// SourceTypeForecast is the data source type of imported and derived forecasts.
	SourceTypeForecast = "forecasting script"
	// UpstreamSourceName is the data source credited with upstream data.
	UpstreamSourceName = "ENTSO-E"
)

// ResolutionPolicy decides what happens when a sensor exists at another resolution
// than requested.
type ResolutionPolicy string

const (
	// PolicyFail refuses to write.
	PolicyFail ResolutionPolicy = "fail"
	// PolicyResample keeps the existing sensor and normalizes data to its resolution.
	PolicyResample ResolutionPolicy = "resample"
	// PolicyNewSensor creates a sensor whose name carries the requested resolution.
	PolicyNewSensor ResolutionPolicy = "new_sensor"
)

// ParseResolutionPolicy parses a policy name. Empty selects PolicyFail.
func ParseResolutionPolicy(value string) (ResolutionPolicy, error) {
	switch ResolutionPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyResample:
		return PolicyResample, nil
	case PolicyNewSensor, "new-sensor":
		return PolicyNewSensor, nil
	default:
		return "", fmt.Errorf("sensor resolver: unknown resolution policy %q", value)
	}
}

// SensorSpec describes a sensor an import writes to.
type SensorSpec struct {
	Name       string
	Unit       string
	Resolution time.Duration
	// Derived marks series computed locally rather than sourced upstream.
	Derived bool
}

// SensorState reports how a sensor was resolved.
type SensorState string

const (
	StateCreated  SensorState = "created"
	StateExisting SensorState = "existing"
)

// ResolvedSensor is the outcome of Resolve.
type ResolvedSensor struct {
	Sensor platform.Sensor
	State  SensorState
	// Resampled is set when an existing sensor at another resolution than requested
	// was kept under PolicyResample.
	Resampled bool
}

// SensorResolver finds or creates the platform records an import writes to.
type SensorResolver struct {
	assets   platform.AssetRepository
	sources  platform.SourceRepository
	sensors  platform.SensorRepository
	policy   ResolutionPolicy
	timezone string
	logger   *log.Logger
}

// NewSensorResolver constructs a resolver.
func NewSensorResolver(
	assets platform.AssetRepository,
	sources platform.SourceRepository,
	sensors platform.SensorRepository,
	policy ResolutionPolicy,
	timezone string,
	logger *log.Logger,
) (*SensorResolver, error) {
	if assets == nil {
		return nil, errors.New("sensor resolver: nil asset repository")
	}
	if sources == nil {
		return nil, errors.New("sensor resolver: nil source repository")
	}
	if sensors == nil {
		return nil, errors.New("sensor resolver: nil sensor repository")
	}
	if policy == "" {
		policy = PolicyFail
	}
	if _, err := ParseResolutionPolicy(string(policy)); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return nil, fmt.Errorf("sensor resolver: invalid timezone %q", timezone)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SensorResolver{
		assets:   assets,
		sources:  sources,
		sensors:  sensors,
		policy:   policy,
		timezone: timezone,
		logger:   logger,
	}, nil
}

// EnsureTransmissionZone returns the "<CC> transmission zone" asset, creating it and
// its asset type when absent.
func (r *SensorResolver) EnsureTransmissionZone(ctx context.Context, countryCode string) (*platform.Asset, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		return nil, errors.New("sensor resolver: empty country code")
	}
	assetType, err := r.assets.FindAssetType(ctx, TransmissionZoneType)
	if err != nil {
		return nil, err
	}
	if assetType == nil {
		assetType = &platform.AssetType{Name: TransmissionZoneType, Description: TransmissionZoneDescription}
		if err := r.assets.CreateAssetType(ctx, assetType); err != nil {
			return nil, err
		}
		r.logger.Printf("sensor resolver: created asset type name=%q", assetType.Name)
	}

	name := countryCode + " transmission zone"
	asset, err := r.assets.FindAsset(ctx, name, assetType.ID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		asset = &platform.Asset{Name: name, AssetTypeID: assetType.ID}
		if err := r.assets.CreateAsset(ctx, asset); err != nil {
			return nil, err
		}
		r.logger.Printf("sensor resolver: created asset name=%q id=%d", asset.Name, asset.ID)
	}
	return asset, nil
}

// EnsureSource returns the forecasting data source with the given name.
func (r *SensorResolver) EnsureSource(ctx context.Context, name string) (*platform.DataSource, error) {
	if name == "" {
		return nil, errors.New("sensor resolver: empty source name")
	}
	source, err := r.sources.FindSource(ctx, name, SourceTypeForecast)
	if err != nil {
		return nil, err
	}
	if source != nil {
		return source, nil
	}
	source = &platform.DataSource{Name: name, Type: SourceTypeForecast}
	if err := r.sources.CreateSource(ctx, source); err != nil {
		return nil, err
	}
	r.logger.Printf("sensor resolver: created data source name=%q id=%d", source.Name, source.ID)
	return source, nil
}

// Resolve finds the sensor for spec on asset, creating it when absent. A requested
// resolution of zero takes the existing sensor's resolution, or the spec default for
// a new sensor. Existing sensors are never migrated to another resolution.
func (r *SensorResolver) Resolve(ctx context.Context, asset *platform.Asset, spec SensorSpec, requested time.Duration) (ResolvedSensor, error) {
	if r == nil {
		return ResolvedSensor{}, errors.New("sensor resolver: nil resolver")
	}
	if asset == nil || asset.ID <= 0 {
		return ResolvedSensor{}, errors.New("sensor resolver: nil asset")
	}
	if spec.Name == "" || spec.Unit == "" {
		return ResolvedSensor{}, errors.New("sensor resolver: incomplete sensor spec")
	}
	if requested < 0 {
		return ResolvedSensor{}, timeseries.ErrInvalidResolution
	}

	candidates, err := r.find(ctx, asset.ID, spec.Name, spec.Unit)
	if err != nil {
		return ResolvedSensor{}, err
	}
	if requested == 0 {
		if len(candidates) > 0 {
			return ResolvedSensor{Sensor: candidates[0], State: StateExisting}, nil
		}
		return r.create(ctx, asset.ID, spec.Name, spec.Unit, spec.Resolution)
	}
	if match, ok := withResolution(candidates, requested); ok {
		return ResolvedSensor{Sensor: match, State: StateExisting}, nil
	}
	if len(candidates) == 0 {
		return r.create(ctx, asset.ID, spec.Name, spec.Unit, requested)
	}

	existing := candidates[0]
	switch r.policy {
	case PolicyResample:
		r.logger.Printf("sensor resolver: sensor=%q id=%d has resolution %s, requested %s; resampling to the sensor resolution",
			existing.Name, existing.ID, timeseries.FormatResolution(existing.Resolution), timeseries.FormatResolution(requested))
		return ResolvedSensor{Sensor: existing, State: StateExisting, Resampled: true}, nil
	case PolicyNewSensor:
		name := QualifiedSensorName(spec.Name, requested)
		qualified, err := r.find(ctx, asset.ID, name, spec.Unit)
		if err != nil {
			return ResolvedSensor{}, err
		}
		if match, ok := withResolution(qualified, requested); ok {
			return ResolvedSensor{Sensor: match, State: StateExisting}, nil
		}
		return r.create(ctx, asset.ID, name, spec.Unit, requested)
	default:
		return ResolvedSensor{}, fmt.Errorf("%w: sensor %q (id %d) has resolution %s, requested %s",
			platform.ErrSensorResolutionConflict, existing.Name, existing.ID,
			timeseries.FormatResolution(existing.Resolution), timeseries.FormatResolution(requested))
	}
}

// QualifiedSensorName is the name of a sensor created under PolicyNewSensor.
func QualifiedSensorName(name string, resolution time.Duration) string {
	return fmt.Sprintf("%s (%s)", name, timeseries.FormatResolution(resolution))
}

func (r *SensorResolver) find(ctx context.Context, assetID int64, name, unit string) ([]platform.Sensor, error) {
	sensors, err := r.sensors.ListSensors(ctx, assetID, name)
	if err != nil {
		return nil, err
	}
	out := sensors[:0]
	for _, s := range sensors {
		if timeseries.CanonicalUnit(s.Unit) == timeseries.CanonicalUnit(unit) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SensorResolver) create(ctx context.Context, assetID int64, name, unit string, resolution time.Duration) (ResolvedSensor, error) {
	if resolution <= 0 {
		return ResolvedSensor{}, fmt.Errorf("%w: sensor %q", timeseries.ErrInvalidResolution, name)
	}
	sensor := &platform.Sensor{
		AssetID:    assetID,
		Name:       name,
		Unit:       unit,
		Resolution: resolution,
		Timezone:   r.timezone,
	}
	if err := r.sensors.CreateSensor(ctx, sensor); err != nil {
		return ResolvedSensor{}, err
	}
	metrics.IncSensorCreated(name)
	r.logger.Printf("sensor resolver: created sensor=%q id=%d unit=%s resolution=%s",
		sensor.Name, sensor.ID, sensor.Unit, timeseries.FormatResolution(sensor.Resolution))
	return ResolvedSensor{Sensor: *sensor, State: StateCreated}, nil
}

func withResolution(sensors []platform.Sensor, resolution time.Duration) (platform.Sensor, bool) {
	for _, s := range sensors {
		if s.Resolution == resolution {
			return s, true
		}
	}
	return platform.Sensor{}, false
}
