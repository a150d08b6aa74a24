package simulation

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// PositionReader serves derived positions from the ledger
type PositionReader interface {
	Position(ctx context.Context, assetID uuid.UUID) (domain.Position, error)
}

// TotalValuer exposes the current aggregate portfolio value
type TotalValuer interface {
	TotalValue(ctx context.Context) (decimal.Decimal, error)
}

// SimulationResult is the projected outcome of a hypothetical sale.
// It is purely informational and never stored.
type SimulationResult struct {
	RealizedPL        decimal.Decimal
	NewAverageCost    decimal.Decimal
	RemainingQuantity decimal.Decimal

	// PortfolioImpactPct is the realized P&L as a percentage of the current
	// total portfolio value; zero when no total value is available.
	PortfolioImpactPct decimal.Decimal
}

// Service answers "what if I sold X now" against the current position
// without touching the ledger.
type Service struct {
	Positions PositionReader
	Valuer    TotalValuer
}

// NewService creates a new simulation Service instance
func NewService(positions PositionReader, valuer TotalValuer) *Service {
	return &Service{Positions: positions, Valuer: valuer}
}

// Simulate projects selling the given quantity at the given price.
// Fails with domain.ErrInsufficientQuantity when the quantity exceeds the
// held amount, including for assets with nothing held at all.
func (s *Service) Simulate(ctx context.Context, assetID uuid.UUID, quantity, salePrice decimal.Decimal) (*SimulationResult, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewValidationError("quantity", "must be positive")
	}
	if salePrice.IsNegative() {
		return nil, domain.NewValidationError("sale_price", "must not be negative")
	}

	pos, err := s.Positions.Position(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(pos.Quantity) {
		return nil, domain.ErrInsufficientQuantity
	}

	realized := salePrice.Sub(pos.AverageCost).Mul(quantity)

	// Sells do not move the weighted average, so the projected average is
	// the current one.
	result := &SimulationResult{
		RealizedPL:         realized,
		NewAverageCost:     pos.AverageCost,
		RemainingQuantity:  pos.Quantity.Sub(quantity),
		PortfolioImpactPct: decimal.Zero,
	}

	totalValue, err := s.Valuer.TotalValue(ctx)
	if err == nil && totalValue.IsPositive() {
		result.PortfolioImpactPct = realized.Div(totalValue).Mul(decimal.NewFromInt(100))
	}

	return result, nil
}
