package valuation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// PositionReader serves derived positions from the ledger
type PositionReader interface {
	Position(ctx context.Context, assetID uuid.UUID) (domain.Position, error)
}

// AssetValuation is the per-asset slice of the portfolio view.
// Stale marks a price that did not come from the current refresh: either the
// last known price (provider failure) or zero when no price was ever fetched.
type AssetValuation struct {
	Asset           *domain.Asset
	Quantity        decimal.Decimal
	AverageCost     decimal.Decimal
	TotalCost       decimal.Decimal
	CurrentPrice    decimal.Decimal
	Value           decimal.Decimal
	UnrealizedPLPct decimal.Decimal
	Stale           bool
}

// Portfolio is the aggregate view over all assets with holdings
type Portfolio struct {
	Assets     []*AssetValuation
	TotalValue decimal.Decimal
	TotalPL    decimal.Decimal
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Service combines ledger positions with live prices into a portfolio view.
// It only reads positions; it never writes transactions.
type Service struct {
	AssetRepo domain.AssetRepository
	Positions PositionReader
	Provider  domain.PriceProvider

	logger       *zap.Logger
	priceTimeout time.Duration
	cacheTTL     time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

// NewService creates a new valuation Service instance. priceTimeout bounds
// every provider call; cacheTTL is how long a fetched price is served
// without hitting the provider again.
func NewService(assetRepo domain.AssetRepository, positions PositionReader, provider domain.PriceProvider,
	priceTimeout, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		AssetRepo:    assetRepo,
		Positions:    positions,
		Provider:     provider,
		logger:       logger,
		priceTimeout: priceTimeout,
		cacheTTL:     cacheTTL,
		cache:        make(map[string]cachedPrice),
	}
}

// Portfolio builds the per-asset and aggregate view. Prices are looked up in
// one bulk call per refresh; a failed lookup for one asset falls back to its
// last known price and is flagged stale instead of failing the whole view.
// Assets with zero held quantity are excluded from the result.
func (s *Service) Portfolio(ctx context.Context) (*Portfolio, error) {
	assets, err := s.AssetRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	type holding struct {
		asset *domain.Asset
		pos   domain.Position
	}
	holdings := make([]holding, 0, len(assets))
	for _, asset := range assets {
		pos, err := s.Positions.Position(ctx, asset.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute position for %s: %w", asset.Symbol, err)
		}
		if !pos.Quantity.IsPositive() {
			continue
		}
		holdings = append(holdings, holding{asset: asset, pos: pos})
	}

	keys := make([]string, 0, len(holdings))
	for _, h := range holdings {
		keys = append(keys, h.asset.PriceLookupKey)
	}
	prices := s.lookupPrices(ctx, keys)

	pf := &Portfolio{
		TotalValue: decimal.Zero,
		TotalPL:    decimal.Zero,
	}
	usable := 0
	for _, h := range holdings {
		quote := prices[h.asset.PriceLookupKey]
		if !quote.price.IsZero() {
			usable++
		}

		value := h.pos.Quantity.Mul(quote.price)
		plPct := decimal.Zero
		if h.pos.AverageCost.IsPositive() {
			plPct = quote.price.Div(h.pos.AverageCost).
				Sub(decimal.NewFromInt(1)).
				Mul(decimal.NewFromInt(100))
		}

		pf.Assets = append(pf.Assets, &AssetValuation{
			Asset:           h.asset,
			Quantity:        h.pos.Quantity,
			AverageCost:     h.pos.AverageCost,
			TotalCost:       h.pos.TotalCost,
			CurrentPrice:    quote.price,
			Value:           value,
			UnrealizedPLPct: plPct,
			Stale:           quote.stale,
		})
		pf.TotalValue = pf.TotalValue.Add(value)
		pf.TotalPL = pf.TotalPL.Add(value.Sub(h.pos.TotalCost))
	}

	// Degrading per-asset is fine, but a view priced entirely from nothing
	// is not usable data.
	if len(holdings) > 0 && usable == 0 {
		return nil, fmt.Errorf("no usable price for any held asset: %w", domain.ErrUpstreamUnavailable)
	}

	return pf, nil
}

// TotalValue returns the aggregate current value of the portfolio
func (s *Service) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	pf, err := s.Portfolio(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return pf.TotalValue, nil
}

// PriceSeries returns the historical price series of one asset over the
// trailing number of days, for charting.
func (s *Service) PriceSeries(ctx context.Context, assetID uuid.UUID, days int) ([]domain.PricePoint, error) {
	if days <= 0 {
		return nil, domain.NewValidationError("days", "must be positive")
	}
	asset, err := s.AssetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	defer cancel()

	series, err := s.Provider.PriceSeries(ctx, asset.PriceLookupKey, days)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price series for %s: %w", asset.Symbol, err)
	}
	return series, nil
}

type quote struct {
	price decimal.Decimal
	stale bool
}

// lookupPrices resolves current prices for the given lookup keys: fresh
// cache entries are served directly, the rest are fetched in one bulk call,
// and keys the provider could not price fall back to their last known value
// (flagged stale) or zero.
func (s *Service) lookupPrices(ctx context.Context, keys []string) map[string]quote {
	result := make(map[string]quote, len(keys))
	now := time.Now()

	var toFetch []string
	s.mu.RLock()
	for _, key := range keys {
		if c, ok := s.cache[key]; ok && now.Sub(c.fetchedAt) < s.cacheTTL {
			result[key] = quote{price: c.price}
			continue
		}
		toFetch = append(toFetch, key)
	}
	s.mu.RUnlock()

	if len(toFetch) > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, s.priceTimeout)
		defer cancel()

		fetched, err := s.Provider.Prices(fetchCtx, toFetch)
		if err != nil {
			s.logger.Warn("bulk price lookup failed, serving last known prices",
				zap.Int("keys", len(toFetch)), zap.Error(err))
		}

		s.mu.Lock()
		for _, key := range toFetch {
			if price, ok := fetched[key]; ok && price.IsPositive() {
				s.cache[key] = cachedPrice{price: price, fetchedAt: now}
				result[key] = quote{price: price}
				continue
			}
			// Expired cache entry is still the best available price.
			if c, ok := s.cache[key]; ok {
				result[key] = quote{price: c.price, stale: true}
				continue
			}
			result[key] = quote{price: decimal.Zero, stale: true}
		}
		s.mu.Unlock()
	}

	return result
}
