package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one entry of a historical price series
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// PriceProvider is the outbound port for market prices. Implementations may
// be slow or fail; callers bound every call with a context timeout and
// degrade per-asset instead of failing whole reads.
type PriceProvider interface {
	// Price returns the current price for a single lookup key
	Price(ctx context.Context, lookupKey string) (decimal.Decimal, error)

	// Prices returns current prices for many lookup keys in one upstream
	// call. Keys the upstream could not price are absent from the map;
	// an error is returned only when the whole request failed.
	Prices(ctx context.Context, lookupKeys []string) (map[string]decimal.Decimal, error)

	// PriceSeries returns the ordered historical price series for a lookup
	// key over the trailing number of days
	PriceSeries(ctx context.Context, lookupKey string, days int) ([]PricePoint, error)
}
