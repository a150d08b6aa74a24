package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is the derived state of one asset after folding its ordered
// transaction history. It is a view: never persisted, always recomputed
// from (or cached against) the transactions that produce it.
//
// Cost basis follows the weighted-average method: every buy blends into a
// single running average, sells remove cost proportionally and leave the
// average untouched, claims add quantity at zero cost and dilute the
// average downward.
type Position struct {
	AssetID     uuid.UUID
	Quantity    decimal.Decimal
	TotalCost   decimal.Decimal
	AverageCost decimal.Decimal

	// RealizedPL accumulates (sale price - average cost at sale time) * sold
	// quantity, minus sale fees, across all sells in the history.
	RealizedPL decimal.Decimal
}

// NewPosition returns the empty position for an asset.
// All amounts are defined as zero (never NaN) so downstream arithmetic is total.
func NewPosition(assetID uuid.UUID) Position {
	return Position{
		AssetID:     assetID,
		Quantity:    decimal.Zero,
		TotalCost:   decimal.Zero,
		AverageCost: decimal.Zero,
		RealizedPL:  decimal.Zero,
	}
}

// ComputePosition folds the ordered transaction sequence of one asset into
// the resulting position. Transactions must be ordered by timestamp with
// ties broken by insertion order; the repository guarantees that order.
// Returns ErrInsufficientQuantity if a sell exceeds the quantity held at
// that point in the history.
func ComputePosition(assetID uuid.UUID, txs []*Transaction) (Position, error) {
	pos := NewPosition(assetID)
	for _, tx := range txs {
		if err := pos.apply(tx); err != nil {
			return Position{}, err
		}
	}
	return pos, nil
}

// apply processes a single transaction against the running position
func (p *Position) apply(tx *Transaction) error {
	switch tx.Kind {
	case KindBuy:
		p.TotalCost = p.TotalCost.Add(tx.Quantity.Mul(tx.UnitPrice)).Add(tx.Fees)
		p.Quantity = p.Quantity.Add(tx.Quantity)
		p.AverageCost = averageCost(p.TotalCost, p.Quantity)

	case KindSell:
		if tx.Quantity.GreaterThan(p.Quantity) {
			return ErrInsufficientQuantity
		}
		// The removed units are priced at the average cost before the sale.
		// The average itself does not change on a sell.
		p.RealizedPL = p.RealizedPL.
			Add(tx.UnitPrice.Sub(p.AverageCost).Mul(tx.Quantity)).
			Sub(tx.Fees)
		p.TotalCost = p.TotalCost.Sub(p.AverageCost.Mul(tx.Quantity))
		p.Quantity = p.Quantity.Sub(tx.Quantity)
		if p.Quantity.IsZero() {
			// Full exit: clear the rounding residue the averaged
			// proportional reduction can leave behind.
			p.TotalCost = decimal.Zero
			p.AverageCost = decimal.Zero
		}

	case KindClaimLending, KindClaimStaking:
		// Yield has no acquisition cost: quantity grows, total cost does
		// not, so the average cost is diluted downward.
		p.Quantity = p.Quantity.Add(tx.Quantity)
		p.AverageCost = averageCost(p.TotalCost, p.Quantity)

	default:
		return NewValidationError("kind", "unknown transaction kind "+string(tx.Kind))
	}
	return nil
}

// averageCost is TotalCost / Quantity while quantity is positive, zero otherwise
func averageCost(totalCost, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(quantity)
}
