package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"entsoe-bridge/internal/observability/metrics"
	platform "entsoe-bridge/internal/platform/domain"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// publicationLead is how long before the start of the event day day-ahead values are
// published (D-1 18:00 local time).
const publicationLead = 6 * time.Hour

// WriteStatus summarizes a write.
type WriteStatus string

const (
	StatusSuccess        WriteStatus = "success"
	StatusNothingNew     WriteStatus = "success_but_nothing_new"
	StatusSomeSkipped    WriteStatus = "success_with_unchanged_beliefs_skipped"
	StatusNothingToWrite WriteStatus = "nothing_to_write"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SeriesWrite pairs a normalized series with the sensor and source it is written as.
type SeriesWrite struct {
	Sensor platform.Sensor
	Source platform.DataSource
	Series timeseries.TimeSeries
}

// WriteResult reports a completed write.
type WriteResult struct {
	Status   WriteStatus
	Inserted int
	Skipped  int
	BySensor map[int64]platform.SensorCount
}

// IngestionWriter turns series into beliefs and stores them in a single batch.
type IngestionWriter struct {
	beliefs  platform.BeliefRepository
	location *time.Location
	clock    Clock
	logger   *log.Logger
}

// NewIngestionWriter constructs a writer. Belief times are computed in timezone.
func NewIngestionWriter(beliefs platform.BeliefRepository, timezone string, clock Clock, logger *log.Logger) (*IngestionWriter, error) {
	if beliefs == nil {
		return nil, errors.New("ingestion writer: nil belief repository")
	}
	if timezone == "" {
		return nil, errors.New("ingestion writer: empty timezone")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("ingestion writer: %w", err)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestionWriter{beliefs: beliefs, location: loc, clock: clock, logger: logger}, nil
}

// BeliefTime returns when a value for the event at eventStart is considered known:
// local midnight of the event day minus six hours, never later than now.
func (w *IngestionWriter) BeliefTime(eventStart, now time.Time) time.Time {
	local := eventStart.In(w.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.location)
	belief := dayStart.Add(-publicationLead)
	if belief.After(now) {
		return now
	}
	return belief
}

// Write validates every series against its sensor and stores all defined points in
// one batch. Undefined points are skipped. Nothing is stored when any series fails.
func (w *IngestionWriter) Write(ctx context.Context, writes []SeriesWrite) (WriteResult, error) {
	if w == nil || w.beliefs == nil {
		return WriteResult{}, errors.New("ingestion writer: nil writer")
	}
	now := w.clock.Now()
	names := make(map[int64]string, len(writes))
	var beliefs []platform.Belief
	for _, write := range writes {
		if err := checkWrite(write); err != nil {
			return WriteResult{}, err
		}
		names[write.Sensor.ID] = write.Sensor.Name
		for _, p := range write.Series.Points {
			if !p.Valid {
				continue
			}
			beliefs = append(beliefs, platform.Belief{
				SensorID:   write.Sensor.ID,
				EventStart: p.At.UTC(),
				BeliefTime: w.BeliefTime(p.At, now).UTC(),
				SourceID:   write.Source.ID,
				Value:      p.Value,
			})
		}
	}
	if len(beliefs) == 0 {
		w.logger.Printf("ingestion writer: nothing to write")
		return WriteResult{Status: StatusNothingToWrite}, nil
	}

	saved, err := w.beliefs.SaveBeliefs(ctx, beliefs)
	if err != nil {
		return WriteResult{}, err
	}
	for id, count := range saved.BySensor {
		metrics.AddBeliefs(names[id], count.Inserted, count.Skipped)
	}

	result := WriteResult{Inserted: saved.Inserted, Skipped: saved.Skipped, BySensor: saved.BySensor}
	switch {
	case saved.Inserted == 0:
		result.Status = StatusNothingNew
		w.logger.Printf("ingestion writer: Done. These beliefs had already been saved before.")
	case saved.Skipped > 0:
		result.Status = StatusSomeSkipped
		w.logger.Printf("ingestion writer: Done. Some beliefs had already been saved before. inserted=%d skipped=%d", saved.Inserted, saved.Skipped)
	default:
		result.Status = StatusSuccess
		w.logger.Printf("ingestion writer: Done. inserted=%d", saved.Inserted)
	}
	return result, nil
}

func checkWrite(write SeriesWrite) error {
	if write.Sensor.ID <= 0 {
		return errors.New("ingestion writer: unresolved sensor")
	}
	if write.Source.ID <= 0 {
		return errors.New("ingestion writer: unresolved source")
	}
	if err := write.Series.Validate(); err != nil {
		return err
	}
	if write.Series.Resolution != write.Sensor.Resolution {
		return fmt.Errorf("%w: series at %s for sensor %q at %s", timeseries.ErrResolutionMismatch,
			timeseries.FormatResolution(write.Series.Resolution), write.Sensor.Name,
			timeseries.FormatResolution(write.Sensor.Resolution))
	}
	if timeseries.CanonicalUnit(write.Series.Unit) != timeseries.CanonicalUnit(write.Sensor.Unit) {
		return fmt.Errorf("%w: series in %s for sensor %q in %s", platform.ErrUnitMismatch,
			write.Series.Unit, write.Sensor.Name, write.Sensor.Unit)
	}
	return nil
}
