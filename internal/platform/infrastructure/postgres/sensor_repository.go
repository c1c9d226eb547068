package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	platform "entsoe-bridge/internal/platform/domain"
)

const defaultSensorsTable = "sensors"

// SensorRepository is a Postgres implementation for sensors.
type SensorRepository struct {
	db    DBTX
	table string
}

// NewSensorRepository constructs a repository.
func NewSensorRepository(db DBTX) *SensorRepository {
	return &SensorRepository{db: db, table: defaultSensorsTable}
}

// ListSensors loads the sensors of an asset with a given name, oldest first.
func (r *SensorRepository) ListSensors(ctx context.Context, assetID int64, name string) ([]platform.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if name == "" {
		return nil, errors.New("sensor repo: empty name")
	}

	query := fmt.Sprintf(`
SELECT id, asset_id, name, unit, resolution_seconds, timezone, created_at
FROM %s
WHERE asset_id = $1 AND name = $2
ORDER BY id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, assetID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []platform.Sensor
	for rows.Next() {
		var sensor platform.Sensor
		var seconds int64
		if err := rows.Scan(
			&sensor.ID,
			&sensor.AssetID,
			&sensor.Name,
			&sensor.Unit,
			&seconds,
			&sensor.Timezone,
			&sensor.CreatedAt,
		); err != nil {
			return nil, err
		}
		sensor.Resolution = time.Duration(seconds) * time.Second
		sensor.CreatedAt = sensor.CreatedAt.UTC()
		result = append(result, sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSensor inserts a sensor. An identical sensor created concurrently is reused.
func (r *SensorRepository) CreateSensor(ctx context.Context, sensor *platform.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if sensor == nil {
		return errors.New("sensor repo: nil sensor")
	}
	if err := sensor.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (asset_id, name, unit, resolution_seconds, timezone)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (asset_id, name, unit, resolution_seconds)
DO UPDATE SET timezone = %s.timezone
RETURNING id, created_at`, r.table, r.table)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		sensor.AssetID,
		sensor.Name,
		sensor.Unit,
		int64(sensor.Resolution/time.Second),
		sensor.Timezone,
	).Scan(&sensor.ID, &sensor.CreatedAt); err != nil {
		return err
	}
	sensor.CreatedAt = sensor.CreatedAt.UTC()
	return nil
}
