package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
)

type beliefKey struct {
	sensorID   int64
	eventStart int64
	beliefTime int64
	sourceID   int64
}

// Store is an in-memory platform store for dry runs and tests.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	assetTypes map[int64]platform.AssetType
	assets     map[int64]platform.Asset
	sources    map[int64]platform.DataSource
	sensors    map[int64]platform.Sensor
	beliefs    map[beliefKey]platform.Belief
	failWrites error
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		assetTypes: make(map[int64]platform.AssetType),
		assets:     make(map[int64]platform.Asset),
		sources:    make(map[int64]platform.DataSource),
		sensors:    make(map[int64]platform.Sensor),
		beliefs:    make(map[beliefKey]platform.Belief),
	}
}

// FailWrites makes every following SaveBeliefs call fail with err. Pass nil to reset.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// FindAssetType returns the asset type with the given name.
func (s *Store) FindAssetType(ctx context.Context, name string) (*platform.AssetType, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedIDs(s.assetTypes) {
		if t := s.assetTypes[id]; t.Name == name {
			return &t, nil
		}
	}
	return nil, nil
}

// CreateAssetType stores a new asset type and assigns its id.
func (s *Store) CreateAssetType(ctx context.Context, assetType *platform.AssetType) error {
	_ = ctx
	if assetType == nil {
		return errors.New("memory store: nil asset type")
	}
	if err := assetType.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	assetType.ID = s.id()
	s.assetTypes[assetType.ID] = *assetType
	return nil
}

// FindAsset returns the asset with the given name and type.
func (s *Store) FindAsset(ctx context.Context, name string, assetTypeID int64) (*platform.Asset, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedIDs(s.assets) {
		if a := s.assets[id]; a.Name == name && a.AssetTypeID == assetTypeID {
			return &a, nil
		}
	}
	return nil, nil
}

// CreateAsset stores a new asset and assigns its id.
func (s *Store) CreateAsset(ctx context.Context, asset *platform.Asset) error {
	_ = ctx
	if asset == nil {
		return errors.New("memory store: nil asset")
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	asset.ID = s.id()
	asset.CreatedAt = time.Now().UTC()
	s.assets[asset.ID] = *asset
	return nil
}

// FindSource returns the data source with the given name and type.
func (s *Store) FindSource(ctx context.Context, name, sourceType string) (*platform.DataSource, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range sortedIDs(s.sources) {
		if src := s.sources[id]; src.Name == name && src.Type == sourceType {
			return &src, nil
		}
	}
	return nil, nil
}

// CreateSource stores a new data source and assigns its id.
func (s *Store) CreateSource(ctx context.Context, source *platform.DataSource) error {
	_ = ctx
	if source == nil {
		return errors.New("memory store: nil source")
	}
	if err := source.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	source.ID = s.id()
	s.sources[source.ID] = *source
	return nil
}

// ListSensors returns the sensors of an asset with the given name, oldest first.
func (s *Store) ListSensors(ctx context.Context, assetID int64, name string) ([]platform.Sensor, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []platform.Sensor
	for _, id := range sortedIDs(s.sensors) {
		if sensor := s.sensors[id]; sensor.AssetID == assetID && sensor.Name == name {
			result = append(result, sensor)
		}
	}
	return result, nil
}

// CreateSensor stores a new sensor and assigns its id.
func (s *Store) CreateSensor(ctx context.Context, sensor *platform.Sensor) error {
	_ = ctx
	if sensor == nil {
		return errors.New("memory store: nil sensor")
	}
	if err := sensor.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sensor.ID = s.id()
	sensor.CreatedAt = time.Now().UTC()
	s.sensors[sensor.ID] = *sensor
	return nil
}

// SaveBeliefs stores all beliefs or none.
func (s *Store) SaveBeliefs(ctx context.Context, beliefs []platform.Belief) (platform.SaveResult, error) {
	_ = ctx
	var result platform.SaveResult
	for _, b := range beliefs {
		if err := b.Validate(); err != nil {
			return platform.SaveResult{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return platform.SaveResult{}, s.failWrites
	}
	pending := make(map[beliefKey]platform.Belief, len(beliefs))
	for _, b := range beliefs {
		key := beliefKey{
			sensorID:   b.SensorID,
			eventStart: b.EventStart.UnixNano(),
			beliefTime: b.BeliefTime.UnixNano(),
			sourceID:   b.SourceID,
		}
		_, stored := s.beliefs[key]
		_, queued := pending[key]
		if stored || queued {
			result.Add(b.SensorID, false)
			continue
		}
		b.EventStart = b.EventStart.UTC()
		b.BeliefTime = b.BeliefTime.UTC()
		pending[key] = b
		result.Add(b.SensorID, true)
	}
	for key, b := range pending {
		s.beliefs[key] = b
	}
	return result, nil
}

// Beliefs returns the stored beliefs of a sensor ordered by event start.
func (s *Store) Beliefs(sensorID int64) []platform.Belief {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []platform.Belief
	for _, b := range s.beliefs {
		if b.SensorID == sensorID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EventStart.Equal(result[j].EventStart) {
			return result[i].BeliefTime.Before(result[j].BeliefTime)
		}
		return result[i].EventStart.Before(result[j].EventStart)
	})
	return result
}

// Sensors returns all sensors ordered by id.
func (s *Store) Sensors() []platform.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]platform.Sensor, 0, len(s.sensors))
	for _, id := range sortedIDs(s.sensors) {
		result = append(result, s.sensors[id])
	}
	return result
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
