package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
)

// PgxAssetRepository implements repositories.AssetReader using pgxpool.
type PgxAssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository creates a new PgxAssetRepository.
func NewAssetRepository(pool *pgxpool.Pool) *PgxAssetRepository {
	return &PgxAssetRepository{pool: pool}
}

const assetColumns = `asset_id, name, currency_code, created_at, created_by, last_updated_at, last_updated_by`

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var asset domain.Asset
	err := row.Scan(
		&asset.AssetID, &asset.Name, &asset.CurrencyCode,
		&asset.CreatedAt, &asset.CreatedBy, &asset.LastUpdatedAt, &asset.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindAssetByID retrieves a single asset by id.
func (r *PgxAssetRepository) FindAssetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = $1;`
	asset, err := scanAsset(r.pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find asset %s: %w", assetID, err)
	}
	return asset, nil
}

// FindAssetsByIDs retrieves assets keyed by id; unknown ids are absent from
// the result.
func (r *PgxAssetRepository) FindAssetsByIDs(ctx context.Context, assetIDs []string) (map[string]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = ANY($1);`
	rows, err := r.pool.Query(ctx, query, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make(map[string]domain.Asset, len(assetIDs))
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets[asset.AssetID] = *asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}
