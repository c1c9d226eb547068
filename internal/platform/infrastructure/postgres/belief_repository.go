package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	platform "entsoe-bridge/internal/platform/domain"
)

const defaultBeliefsTable = "beliefs"

// BeliefRepository is a Postgres implementation for beliefs.
type BeliefRepository struct {
	db    *sql.DB
	table string
}

// NewBeliefRepository constructs a repository.
func NewBeliefRepository(db *sql.DB) *BeliefRepository {
	return &BeliefRepository{db: db, table: defaultBeliefsTable}
}

// SaveBeliefs inserts beliefs in one transaction. Rows already present are left
// untouched and counted as skipped.
func (r *BeliefRepository) SaveBeliefs(ctx context.Context, beliefs []platform.Belief) (platform.SaveResult, error) {
	if r == nil || r.db == nil {
		return platform.SaveResult{}, errors.New("belief repo: nil db")
	}
	var result platform.SaveResult
	if len(beliefs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	sensor_id,
	event_start,
	belief_time,
	source_id,
	value
) VALUES (
	$1, $2, $3, $4, $5
)
ON CONFLICT (sensor_id, event_start, belief_time, source_id)
DO NOTHING`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return platform.SaveResult{}, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return platform.SaveResult{}, err
	}
	defer stmt.Close()

	for _, b := range beliefs {
		if err := b.Validate(); err != nil {
			_ = tx.Rollback()
			return platform.SaveResult{}, err
		}
		res, err := stmt.ExecContext(ctx, b.SensorID, b.EventStart.UTC(), b.BeliefTime.UTC(), b.SourceID, b.Value)
		if err != nil {
			_ = tx.Rollback()
			return platform.SaveResult{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return platform.SaveResult{}, err
		}
		result.Add(b.SensorID, affected > 0)
	}

	if err := tx.Commit(); err != nil {
		return platform.SaveResult{}, err
	}
	return result, nil
}
