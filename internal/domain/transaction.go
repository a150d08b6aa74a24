package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the type of ledger transaction
type TransactionKind string

const (
	KindBuy          TransactionKind = "buy"
	KindSell         TransactionKind = "sell"
	KindClaimLending TransactionKind = "claim_lending"
	KindClaimStaking TransactionKind = "claim_staking"
)

// Valid reports whether the kind is one of the known transaction kinds
func (k TransactionKind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindClaimLending, KindClaimStaking:
		return true
	}
	return false
}

// IsClaim reports whether the kind is a yield claim (lending or staking).
// Claims increase quantity with zero cost contribution.
func (k TransactionKind) IsClaim() bool {
	return k == KindClaimLending || k == KindClaimStaking
}

// Transaction represents a single immutable entry in the asset ledger.
// Quantity and prices are decimals so that many small claim transactions do
// not accumulate binary rounding error in the cost-basis fold.
type Transaction struct {
	ID        uuid.UUID
	AssetID   uuid.UUID
	Kind      TransactionKind
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Fees      decimal.Decimal
	Timestamp time.Time
}

// Validate ensures the transaction adheres to domain rules.
// Returns a ValidationError naming the offending field.
// Claims conventionally carry a zero unit price (yield has no acquisition
// cost) but a non-zero value is accepted and used as given.
func (t *Transaction) Validate() error {
	if t.AssetID == uuid.Nil {
		return NewValidationError("asset_id", "must not be empty")
	}
	if !t.Kind.Valid() {
		return NewValidationError("kind", "must be buy, sell, claim_lending or claim_staking")
	}
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("quantity", "must be positive")
	}
	if t.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "must not be negative")
	}
	if t.Fees.IsNegative() {
		return NewValidationError("fees", "must not be negative")
	}
	if t.Timestamp.IsZero() {
		return NewValidationError("timestamp", "must not be empty")
	}
	return nil
}
