package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new portfolio snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Add appends a new snapshot
func (r *snapshotRepository) Add(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (id, captured_at, total_value)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.CapturedAt,
		snapshot.TotalValue.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// ListSince retrieves snapshots captured at or after the given time, ordered
// by capture time ascending. A zero time returns the full series.
func (r *snapshotRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT id, captured_at, total_value
		FROM portfolio_snapshots
		WHERE captured_at >= $1
		ORDER BY captured_at
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.PortfolioSnapshot
	for rows.Next() {
		var snap domain.PortfolioSnapshot
		var totalValueStr string
		if err := rows.Scan(&snap.ID, &snap.CapturedAt, &totalValueStr); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		totalValue, err := decimal.NewFromString(totalValueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		snap.TotalValue = totalValue

		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}
