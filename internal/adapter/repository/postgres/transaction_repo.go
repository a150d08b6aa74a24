package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create appends a new transaction to the ledger. The seq column records
// insertion order and breaks timestamp ties when folding.
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, asset_id, kind, quantity, unit_price, fees, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.AssetID,
		string(tx.Kind),
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		tx.Fees.String(),
		tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT id, asset_id, kind, quantity, unit_price, fees, occurred_at
		FROM transactions
		WHERE id = $1
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	return tx, nil
}

// List retrieves the full ledger ordered by timestamp, insertion order
// breaking ties
func (r *transactionRepository) List(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT id, asset_id, kind, quantity, unit_price, fees, occurred_at
		FROM transactions
		ORDER BY occurred_at, seq
	`

	return r.queryTransactions(ctx, query)
}

// ListByAsset retrieves the full ordered history of one asset
func (r *transactionRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT id, asset_id, kind, quantity, unit_price, fees, occurred_at
		FROM transactions
		WHERE asset_id = $1
		ORDER BY occurred_at, seq
	`

	return r.queryTransactions(ctx, query, assetID)
}

// CountByAsset returns the number of transactions referencing an asset
func (r *transactionRepository) CountByAsset(ctx context.Context, assetID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE asset_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, assetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// Delete removes a transaction from the ledger
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM transactions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

func (r *transactionRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var kind string
	var quantityStr, unitPriceStr, feesStr string

	err := row.Scan(
		&tx.ID,
		&tx.AssetID,
		&kind,
		&quantityStr,
		&unitPriceStr,
		&feesStr,
		&tx.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = domain.TransactionKind(kind)

	// Parse NUMERIC columns (DECIMAL)
	if tx.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	if tx.UnitPrice, err = decimal.NewFromString(unitPriceStr); err != nil {
		return nil, fmt.Errorf("failed to parse unit_price: %w", err)
	}
	if tx.Fees, err = decimal.NewFromString(feesStr); err != nil {
		return nil, fmt.Errorf("failed to parse fees: %w", err)
	}

	return &tx, nil
}
