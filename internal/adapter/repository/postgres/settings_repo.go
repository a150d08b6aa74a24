package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// settingsRepository implements domain.SettingsRepository
type settingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) domain.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves a setting value
func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

// Set stores a setting value, replacing any previous one
func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}
