package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	platform "entsoe-bridge/internal/platform/domain"
)

const defaultSourcesTable = "data_sources"

// SourceRepository is a Postgres implementation for data sources.
type SourceRepository struct {
	db    DBTX
	table string
}

// NewSourceRepository constructs a repository.
func NewSourceRepository(db DBTX) *SourceRepository {
	return &SourceRepository{db: db, table: defaultSourcesTable}
}

// FindSource loads a data source by name and type.
func (r *SourceRepository) FindSource(ctx context.Context, name, sourceType string) (*platform.DataSource, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("source repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, type
FROM %s
WHERE name = $1 AND type = $2
LIMIT 1`, r.table)

	var source platform.DataSource
	if err := r.db.QueryRowContext(ctx, query, name, sourceType).Scan(&source.ID, &source.Name, &source.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &source, nil
}

// CreateSource inserts a data source, returning the existing row on a clash.
func (r *SourceRepository) CreateSource(ctx context.Context, source *platform.DataSource) error {
	if r == nil || r.db == nil {
		return errors.New("source repo: nil db")
	}
	if source == nil {
		return errors.New("source repo: nil source")
	}
	if err := source.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, type)
VALUES ($1, $2)
ON CONFLICT (name, type)
DO UPDATE SET name = EXCLUDED.name
RETURNING id`, r.table)

	return r.db.QueryRowContext(ctx, query, source.Name, source.Type).Scan(&source.ID)
}
