package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, name, symbol, price_lookup_key)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		asset.Symbol,
		asset.PriceLookupKey,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, name, symbol, price_lookup_key
		FROM assets
		WHERE id = $1
	`

	var asset domain.Asset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.Symbol,
		&asset.PriceLookupKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset by ID: %w", err)
	}

	return &asset, nil
}

// List retrieves all assets ordered by name
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT id, name, symbol, price_lookup_key
		FROM assets
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.Name, &asset.Symbol, &asset.PriceLookupKey); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	return assets, nil
}

// Update replaces the mutable fields of an existing asset
func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	query := `
		UPDATE assets
		SET name = $2, symbol = $3, price_lookup_key = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		asset.Symbol,
		asset.PriceLookupKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrAssetNotFound
	}

	return nil
}

// Delete removes an asset
func (r *assetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM assets WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrAssetNotFound
	}

	return nil
}
