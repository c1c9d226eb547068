package postgres

import "database/sql"

// Store combines the Postgres repositories into one platform store.
type Store struct {
	*AssetRepository
	*SourceRepository
	*SensorRepository
	*BeliefRepository
}

// NewStore constructs a store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		AssetRepository:  NewAssetRepository(db),
		SourceRepository: NewSourceRepository(db),
		SensorRepository: NewSensorRepository(db),
		BeliefRepository: NewBeliefRepository(db),
	}
}
