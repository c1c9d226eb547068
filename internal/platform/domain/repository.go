package platform

import "context"

// AssetRepository manages asset types and assets. Finders return nil, nil when
// nothing matches.
type AssetRepository interface {
	FindAssetType(ctx context.Context, name string) (*AssetType, error)
	CreateAssetType(ctx context.Context, assetType *AssetType) error
	FindAsset(ctx context.Context, name string, assetTypeID int64) (*Asset, error)
	CreateAsset(ctx context.Context, asset *Asset) error
}

// SourceRepository manages data sources.
type SourceRepository interface {
	FindSource(ctx context.Context, name, sourceType string) (*DataSource, error)
	CreateSource(ctx context.Context, source *DataSource) error
}

// SensorRepository manages sensors.
type SensorRepository interface {
	// ListSensors returns the sensors of an asset with the given name, oldest first.
	ListSensors(ctx context.Context, assetID int64, name string) ([]Sensor, error)
	CreateSensor(ctx context.Context, sensor *Sensor) error
}

// BeliefRepository stores beliefs.
type BeliefRepository interface {
	// SaveBeliefs writes all beliefs in one transaction. Beliefs already stored for
	// the same sensor, event start, belief time and source are skipped.
	SaveBeliefs(ctx context.Context, beliefs []Belief) (SaveResult, error)
}

// Store bundles the repositories an import needs.
type Store interface {
	AssetRepository
	SourceRepository
	SensorRepository
	BeliefRepository
}
