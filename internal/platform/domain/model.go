package platform

import (
	"errors"
	"time"
)

// AssetType classifies assets on the host platform.
type AssetType struct {
	ID          int64
	Name        string
	Description string
}

// Validate checks asset type invariants.
func (t AssetType) Validate() error {
	if t.Name == "" {
		return errors.New("asset type: empty name")
	}
	return nil
}

// Asset groups sensors. Import assets are public, so no account is attached.
type Asset struct {
	ID          int64
	Name        string
	AssetTypeID int64
	CreatedAt   time.Time
}

// Validate checks asset invariants.
func (a Asset) Validate() error {
	if a.Name == "" {
		return errors.New("asset: empty name")
	}
	if a.AssetTypeID <= 0 {
		return errors.New("asset: empty asset type id")
	}
	return nil
}

// DataSource is credited with the beliefs it provides.
type DataSource struct {
	ID   int64
	Name string
	Type string
}

// Validate checks data source invariants.
func (s DataSource) Validate() error {
	if s.Name == "" {
		return errors.New("data source: empty name")
	}
	if s.Type == "" {
		return errors.New("data source: empty type")
	}
	return nil
}

// Sensor is a time series target on the host platform. Its resolution is fixed once
// created.
type Sensor struct {
	ID         int64
	AssetID    int64
	Name       string
	Unit       string
	Resolution time.Duration
	Timezone   string
	CreatedAt  time.Time
}

// Validate checks sensor invariants.
func (s Sensor) Validate() error {
	if s.AssetID <= 0 {
		return errors.New("sensor: empty asset id")
	}
	if s.Name == "" {
		return errors.New("sensor: empty name")
	}
	if s.Unit == "" {
		return errors.New("sensor: empty unit")
	}
	if s.Resolution <= 0 {
		return errors.New("sensor: invalid resolution")
	}
	if s.Timezone == "" {
		return errors.New("sensor: empty timezone")
	}
	return nil
}

// Belief is one value for an event interval as known at BeliefTime.
type Belief struct {
	SensorID   int64
	EventStart time.Time
	BeliefTime time.Time
	SourceID   int64
	Value      float64
}

// Validate checks belief invariants.
func (b Belief) Validate() error {
	if b.SensorID <= 0 {
		return ErrInvalidBelief
	}
	if b.SourceID <= 0 {
		return ErrInvalidBelief
	}
	if b.EventStart.IsZero() || b.BeliefTime.IsZero() {
		return ErrInvalidBelief
	}
	return nil
}

// SensorCount holds per-sensor write counts.
type SensorCount struct {
	Inserted int
	Skipped  int
}

// SaveResult reports how many beliefs were new and how many were already stored.
type SaveResult struct {
	Inserted int
	Skipped  int
	BySensor map[int64]SensorCount
}

// Add records the outcome of one belief.
func (r *SaveResult) Add(sensorID int64, inserted bool) {
	if r.BySensor == nil {
		r.BySensor = make(map[int64]SensorCount)
	}
	count := r.BySensor[sensorID]
	if inserted {
		r.Inserted++
		count.Inserted++
	} else {
		r.Skipped++
		count.Skipped++
	}
	r.BySensor[sensorID] = count
}
