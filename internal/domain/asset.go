package domain

import (
	"github.com/google/uuid"
)

// Asset represents a tracked crypto asset in the domain layer.
// PriceLookupKey is the external identifier used to query the price provider
// (e.g. the CoinGecko coin id "bitcoin").
type Asset struct {
	ID             uuid.UUID
	Name           string
	Symbol         string
	PriceLookupKey string
}

// Validate ensures the asset adheres to domain rules.
// Returns a ValidationError naming the offending field.
func (a *Asset) Validate() error {
	if a.Name == "" {
		return NewValidationError("name", "must not be empty")
	}
	if a.Symbol == "" {
		return NewValidationError("symbol", "must not be empty")
	}
	if a.PriceLookupKey == "" {
		return NewValidationError("price_lookup_key", "must not be empty")
	}
	return nil
}
