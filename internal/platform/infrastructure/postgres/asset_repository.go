package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	platform "entsoe-bridge/internal/platform/domain"
)

const (
	defaultAssetTypesTable = "asset_types"
	defaultAssetsTable     = "assets"
)

// AssetRepository is a Postgres implementation for asset types and assets.
type AssetRepository struct {
	db              DBTX
	assetTypesTable string
	assetsTable     string
}

// NewAssetRepository constructs a repository.
func NewAssetRepository(db DBTX, opts ...AssetOption) *AssetRepository {
	repo := &AssetRepository{db: db, assetTypesTable: defaultAssetTypesTable, assetsTable: defaultAssetsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// AssetOption configures the repository.
type AssetOption func(*AssetRepository)

// WithAssetTables overrides the default table names.
func WithAssetTables(assetTypes, assets string) AssetOption {
	return func(repo *AssetRepository) {
		if assetTypes != "" {
			repo.assetTypesTable = assetTypes
		}
		if assets != "" {
			repo.assetsTable = assets
		}
	}
}

// FindAssetType loads an asset type by name.
func (r *AssetRepository) FindAssetType(ctx context.Context, name string) (*platform.AssetType, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("asset repo: nil db")
	}
	if name == "" {
		return nil, errors.New("asset repo: empty asset type name")
	}

	query := fmt.Sprintf(`
SELECT id, name, description
FROM %s
WHERE name = $1
LIMIT 1`, r.assetTypesTable)

	var assetType platform.AssetType
	if err := r.db.QueryRowContext(ctx, query, name).Scan(
		&assetType.ID,
		&assetType.Name,
		&assetType.Description,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &assetType, nil
}

// CreateAssetType inserts an asset type, returning the existing row on a name clash.
func (r *AssetRepository) CreateAssetType(ctx context.Context, assetType *platform.AssetType) error {
	if r == nil || r.db == nil {
		return errors.New("asset repo: nil db")
	}
	if assetType == nil {
		return errors.New("asset repo: nil asset type")
	}
	if err := assetType.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, description)
VALUES ($1, $2)
ON CONFLICT (name)
DO UPDATE SET name = EXCLUDED.name
RETURNING id`, r.assetTypesTable)

	return r.db.QueryRowContext(ctx, query, assetType.Name, assetType.Description).Scan(&assetType.ID)
}

// FindAsset loads an asset by name and type.
func (r *AssetRepository) FindAsset(ctx context.Context, name string, assetTypeID int64) (*platform.Asset, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("asset repo: nil db")
	}
	if name == "" {
		return nil, errors.New("asset repo: empty asset name")
	}

	query := fmt.Sprintf(`
SELECT id, name, asset_type_id, created_at
FROM %s
WHERE name = $1 AND asset_type_id = $2
LIMIT 1`, r.assetsTable)

	var asset platform.Asset
	if err := r.db.QueryRowContext(ctx, query, name, assetTypeID).Scan(
		&asset.ID,
		&asset.Name,
		&asset.AssetTypeID,
		&asset.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	return &asset, nil
}

// CreateAsset inserts an asset, returning the existing row on a clash.
func (r *AssetRepository) CreateAsset(ctx context.Context, asset *platform.Asset) error {
	if r == nil || r.db == nil {
		return errors.New("asset repo: nil db")
	}
	if asset == nil {
		return errors.New("asset repo: nil asset")
	}
	if err := asset.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, asset_type_id)
VALUES ($1, $2)
ON CONFLICT (name, asset_type_id)
DO UPDATE SET name = EXCLUDED.name
RETURNING id, created_at`, r.assetsTable)

	if err := r.db.QueryRowContext(ctx, query, asset.Name, asset.AssetTypeID).Scan(&asset.ID, &asset.CreatedAt); err != nil {
		return err
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	return nil
}
