package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oracle-relay-keeper/internal/version"
)

const (
	simplePricePath = "/simple/price"
	vsCurrency      = "usd"
)

// ErrQuoteNotFound is returned when the price response lacks the requested currency.
var ErrQuoteNotFound = errors.New("quote not found")

// PriceQuote is a USD quote for one market-data identifier.
type PriceQuote struct {
	CurrencyID string
	USD        decimal.Decimal
	// Price is USD floored to an integer, the value written to the oracle.
	Price *big.Int
}

// FloorPrice floors a USD amount to an integer.
func FloorPrice(usd decimal.Decimal) *big.Int {
	return usd.Floor().BigInt()
}

// CoinGeckoOptions parameterise the CoinGecko fetcher.
type CoinGeckoOptions struct {
	BaseURL   string
	APIKey    string
	Pro       bool
	Timeout   time.Duration
	UserAgent string
}

// CoinGecko fetches spot prices from the CoinGecko simple price endpoint.
// Requests are made once; there is no retry.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko fetcher.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchQuote retrieves the USD price for currency and floors it.
func (c *CoinGecko) FetchQuote(ctx context.Context, currency string) (PriceQuote, error) {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return PriceQuote{}, errors.New("currency id required")
	}

	query := url.Values{}
	query.Set("ids", currency)
	query.Set("vs_currencies", vsCurrency)
	endpoint := c.baseURL + simplePricePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PriceQuote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}
	if c.opts.APIKey != "" {
		if c.opts.Pro {
			req.Header.Set("x-cg-pro-api-key", c.opts.APIKey)
		} else {
			req.Header.Set("x-cg-demo-api-key", c.opts.APIKey)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return PriceQuote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceQuote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return PriceQuote{}, parseHTTPError(resp.StatusCode, payload)
	}

	var prices simplePriceResponse
	if err := json.Unmarshal(payload, &prices); err != nil {
		return PriceQuote{}, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := prices[currency]
	if !ok || entry.USD == nil {
		return PriceQuote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, currency)
	}
	if entry.USD.IsNegative() {
		return PriceQuote{}, fmt.Errorf("negative price for %s: %s", currency, entry.USD.String())
	}

	quote := PriceQuote{
		CurrencyID: currency,
		USD:        *entry.USD,
		Price:      FloorPrice(*entry.USD),
	}

	c.logger.Debug().
		Str("currency", currency).
		Str("usd", quote.USD.String()).
		Str("price", quote.Price.String()).
		Msg("quote fetched")
	return quote, nil
}

// simplePriceResponse maps currency id to its quotes, e.g. {"ethereum":{"usd":2500.7}}.
type simplePriceResponse map[string]struct {
	USD *decimal.Decimal `json:"usd"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Status.ErrorMessage != "" {
			return fmt.Errorf("coingecko api error (%d): %s", status, apiErr.Status.ErrorMessage)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("coingecko api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("coingecko api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("coingecko api error (%d)", status)
}

var _ QuoteFetcher = (*CoinGecko)(nil)
