package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/config"
	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// Client implements domain.PriceProvider against the CoinGecko API.
// Lookup keys are CoinGecko coin ids (e.g. "bitcoin").
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger
}

// New creates a new CoinGecko client
func New(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

var _ domain.PriceProvider = (*Client)(nil)

// Price returns the current USD price for a single coin id
func (c *Client) Price(ctx context.Context, lookupKey string) (decimal.Decimal, error) {
	prices, err := c.Prices(ctx, []string{lookupKey})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[lookupKey]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %q: %w", lookupKey, domain.ErrUpstreamUnavailable)
	}
	return price, nil
}

// Prices returns current USD prices for many coin ids in one call to the
// simple-price endpoint. Ids the upstream did not price are absent from the
// map; the error is non-nil only when the whole request failed.
func (c *Client) Prices(ctx context.Context, lookupKeys []string) (map[string]decimal.Decimal, error) {
	if len(lookupKeys) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	params := url.Values{
		"ids":           {strings.Join(lookupKeys, ",")},
		"vs_currencies": {"usd"},
	}
	reqURL := c.baseURL + "/simple/price?" + params.Encode()

	// Decoding into json.Number keeps quotes out of binary floating point.
	var data map[string]map[string]json.Number
	if err := c.getJSON(ctx, reqURL, &data); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(lookupKeys))
	for _, key := range lookupKeys {
		usd, ok := data[key]["usd"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(usd.String())
		if err != nil || !price.IsPositive() {
			continue
		}
		prices[key] = price
	}
	return prices, nil
}

// PriceSeries returns the USD price series for a coin id over the trailing
// number of days, from the market-chart endpoint, ordered as delivered
// (oldest first).
func (c *Client) PriceSeries(ctx context.Context, lookupKey string, days int) ([]domain.PricePoint, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"days":        {fmt.Sprintf("%d", days)},
	}
	reqURL := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(lookupKey), params.Encode())

	var data struct {
		Prices [][]json.Number `json:"prices"`
	}
	if err := c.getJSON(ctx, reqURL, &data); err != nil {
		return nil, err
	}

	series := make([]domain.PricePoint, 0, len(data.Prices))
	for _, pair := range data.Prices {
		if len(pair) != 2 {
			continue
		}
		ms, err := pair[0].Int64()
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			continue
		}
		series = append(series, domain.PricePoint{
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     price,
		})
	}
	return series, nil
}

// getJSON performs a GET with bounded retries. Rate-limit responses (429)
// back off exponentially with jitter before retrying, as the upstream asks.
func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1))*2*time.Second +
				time.Duration(rand.Int63n(int64(time.Second)))
			c.logger.Warn("rate limited by price API, backing off",
				zap.Duration("wait", wait), zap.Int("attempt", i+1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: rate limited (429)", domain.ErrUpstreamUnavailable)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("%w: unexpected status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
		}

		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		err = dec.Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: malformed response: %v", domain.ErrUpstreamUnavailable, err)
		}
		return nil
	}
	return lastErr
}
