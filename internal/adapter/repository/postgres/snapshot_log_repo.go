package postgres

import (
	"context"
	"fmt"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// snapshotLogRepository implements domain.SnapshotLogRepository
type snapshotLogRepository struct {
	db *DB
}

// NewSnapshotLogRepository creates a new snapshot log repository
func NewSnapshotLogRepository(db *DB) domain.SnapshotLogRepository {
	return &snapshotLogRepository{db: db}
}

// Add appends a new log entry
func (r *snapshotLogRepository) Add(ctx context.Context, log *domain.SnapshotLog) error {
	query := `
		INSERT INTO snapshot_logs (id, logged_at, status, message)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Timestamp,
		string(log.Status),
		log.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot log: %w", err)
	}

	return nil
}

// ListRecent retrieves the most recent entries, newest first
func (r *snapshotLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.SnapshotLog, error) {
	query := `
		SELECT id, logged_at, status, message
		FROM snapshot_logs
		ORDER BY logged_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.SnapshotLog
	for rows.Next() {
		var entry domain.SnapshotLog
		var status string
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &status, &entry.Message); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot log: %w", err)
		}
		entry.Status = domain.SnapshotStatus(status)
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot logs: %w", err)
	}

	return logs, nil
}
