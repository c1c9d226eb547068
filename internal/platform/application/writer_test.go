package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
	"entsoe-bridge/internal/platform/infrastructure/memory"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

func quarterHours(start time.Time, values ...float64) timeseries.TimeSeries {
	points := make([]timeseries.Point, len(values))
	for i, v := range values {
		points[i] = timeseries.Point{At: start.Add(time.Duration(i) * 15 * time.Minute), Value: v, Valid: true}
	}
	return timeseries.TimeSeries{Kind: timeseries.KindPrice, Unit: "EUR/MWh", Resolution: 15 * time.Minute, Points: points}
}

type writerFixture struct {
	store  *memory.Store
	writer *IngestionWriter
	sensor platform.Sensor
	other  platform.Sensor
	source platform.DataSource
}

func newWriterFixture(t *testing.T, now time.Time) writerFixture {
	t.Helper()
	store := memory.NewStore()
	resolver := newResolver(t, store, PolicyFail)
	asset := zone(t, resolver)
	prices, err := resolver.Resolve(context.Background(), asset, pricesSpec, 0)
	if err != nil {
		t.Fatalf("resolve prices: %v", err)
	}
	other, err := resolver.Resolve(context.Background(), asset, SensorSpec{Name: "Other", Unit: "EUR/MWh", Resolution: 15 * time.Minute}, 0)
	if err != nil {
		t.Fatalf("resolve other: %v", err)
	}
	source, err := resolver.EnsureSource(context.Background(), UpstreamSourceName)
	if err != nil {
		t.Fatalf("ensure source: %v", err)
	}
	writer, err := NewIngestionWriter(store, "Europe/Amsterdam", fakeClock{now: now}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	return writerFixture{store: store, writer: writer, sensor: prices.Sensor, other: other.Sensor, source: *source}
}

func TestBeliefTimeIsDayAheadPublication(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, loc)
	f := newWriterFixture(t, now)

	event := time.Date(2024, 6, 11, 14, 0, 0, 0, loc)
	want := time.Date(2024, 6, 10, 18, 0, 0, 0, loc)
	if got := f.writer.BeliefTime(event, now); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	early := time.Date(2024, 6, 10, 16, 0, 0, 0, loc)
	if got := f.writer.BeliefTime(time.Date(2024, 6, 11, 0, 0, 0, 0, loc), early); !got.Equal(early) {
		t.Fatalf("expected belief time clipped to now %s, got %s", early, got)
	}
}

func TestWriteSkipsUndefinedAndReportsStatus(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := newWriterFixture(t, now)
	series := quarterHours(time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC), 10, 11, 12, 13)
	series.Points[2].Valid = false

	result, err := f.writer.Write(context.Background(), []SeriesWrite{{Sensor: f.sensor, Source: f.source, Series: series}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if result.Status != StatusSuccess || result.Inserted != 3 {
		t.Fatalf("expected 3 new beliefs, got %+v", result)
	}
	if got := len(f.store.Beliefs(f.sensor.ID)); got != 3 {
		t.Fatalf("expected 3 stored beliefs, got %d", got)
	}

	again, err := f.writer.Write(context.Background(), []SeriesWrite{{Sensor: f.sensor, Source: f.source, Series: series}})
	if err != nil {
		t.Fatalf("write again: %v", err)
	}
	if again.Status != StatusNothingNew || again.Skipped != 3 {
		t.Fatalf("expected nothing new, got %+v", again)
	}

	series.Points[2].Valid = true
	partial, err := f.writer.Write(context.Background(), []SeriesWrite{{Sensor: f.sensor, Source: f.source, Series: series}})
	if err != nil {
		t.Fatalf("write partial: %v", err)
	}
	if partial.Status != StatusSomeSkipped || partial.Inserted != 1 || partial.Skipped != 3 {
		t.Fatalf("expected one new belief, got %+v", partial)
	}
}

func TestWriteIsAllOrNothing(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := newWriterFixture(t, now)
	good := quarterHours(time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC), 1, 2)
	hourly := good
	hourly.Resolution = time.Hour
	hourly.Points = []timeseries.Point{{At: good.Points[0].At, Value: 1, Valid: true}}

	_, err := f.writer.Write(context.Background(), []SeriesWrite{
		{Sensor: f.sensor, Source: f.source, Series: good},
		{Sensor: f.other, Source: f.source, Series: hourly},
	})
	if !errors.Is(err, timeseries.ErrResolutionMismatch) {
		t.Fatalf("expected resolution mismatch, got %v", err)
	}
	if got := len(f.store.Beliefs(f.sensor.ID)); got != 0 {
		t.Fatalf("expected no beliefs after failed batch, got %d", got)
	}

	f.store.FailWrites(errors.New("disk full"))
	_, err = f.writer.Write(context.Background(), []SeriesWrite{
		{Sensor: f.sensor, Source: f.source, Series: good},
		{Sensor: f.other, Source: f.source, Series: good},
	})
	if err == nil {
		t.Fatalf("expected store failure")
	}
	if len(f.store.Beliefs(f.sensor.ID))+len(f.store.Beliefs(f.other.ID)) != 0 {
		t.Fatalf("expected no beliefs after store failure")
	}
}

func TestWriteRejectsUnitMismatch(t *testing.T) {
	f := newWriterFixture(t, time.Now())
	series := quarterHours(time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC), 1)
	series.Unit = "EUR/kWh"

	_, err := f.writer.Write(context.Background(), []SeriesWrite{{Sensor: f.sensor, Source: f.source, Series: series}})
	if !errors.Is(err, platform.ErrUnitMismatch) {
		t.Fatalf("expected unit mismatch, got %v", err)
	}
}
