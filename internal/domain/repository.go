package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// Create creates a new asset
	Create(ctx context.Context, asset *Asset) error

	// GetByID retrieves an asset by its ID
	// Returns ErrAssetNotFound if no asset matches
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// List retrieves all assets
	List(ctx context.Context) ([]*Asset, error)

	// Update replaces the mutable fields of an existing asset
	Update(ctx context.Context, asset *Asset) error

	// Delete removes an asset
	// Callers must check referential integrity first
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines the interface for ledger persistence operations
type TransactionRepository interface {
	// Create appends a new transaction to the ledger
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by its ID
	// Returns ErrTransactionNotFound if no transaction matches
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// List retrieves all transactions ordered by timestamp,
	// ties broken by insertion order
	List(ctx context.Context) ([]*Transaction, error)

	// ListByAsset retrieves the full ordered history of one asset
	// (timestamp order, insertion order tie-break)
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Transaction, error)

	// CountByAsset returns the number of transactions referencing an asset
	CountByAsset(ctx context.Context, assetID uuid.UUID) (int, error)

	// Delete removes a transaction from the ledger
	Delete(ctx context.Context, id uuid.UUID) error
}

// SnapshotRepository defines the interface for portfolio snapshot persistence
type SnapshotRepository interface {
	// Add appends a new snapshot
	Add(ctx context.Context, snapshot *PortfolioSnapshot) error

	// ListSince retrieves snapshots captured at or after the given time,
	// ordered by capture time ascending. A zero time returns the full series.
	ListSince(ctx context.Context, since time.Time) ([]*PortfolioSnapshot, error)
}

// SnapshotLogRepository defines the interface for scheduler run log persistence
type SnapshotLogRepository interface {
	// Add appends a new log entry
	Add(ctx context.Context, log *SnapshotLog) error

	// ListRecent retrieves the most recent entries, newest first
	ListRecent(ctx context.Context, limit int) ([]*SnapshotLog, error)
}

// SettingsRepository defines the interface for runtime-configurable settings
// that must survive a restart (e.g. the snapshot interval)
type SettingsRepository interface {
	// Get retrieves a setting value
	// Returns ErrSettingNotFound if the key has never been stored
	Get(ctx context.Context, key string) (string, error)

	// Set stores a setting value, replacing any previous one
	Set(ctx context.Context, key, value string) error
}
