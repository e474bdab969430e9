package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFloorPrice(t *testing.T) {
	cases := map[string]int64{
		"1234.99": 1234,
		"1234.01": 1234,
		"1234":    1234,
		"0.5":     0,
		"2500.7":  2500,
	}
	for in, want := range cases {
		got := FloorPrice(decimal.RequireFromString(in))
		if got.Int64() != want {
			t.Fatalf("floor(%s): expected %d, got %s", in, want, got)
		}
	}
}

func TestCoinGeckoFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "ethereum" || r.URL.Query().Get("vs_currencies") != "usd" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("x-cg-demo-api-key") != "demo" {
			t.Fatalf("demo api key header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2500.7}}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, APIKey: "demo", Timeout: time.Second}, noopLogger())

	quote, err := cg.FetchQuote(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if quote.Price.Int64() != 2500 {
		t.Fatalf("expected floored price 2500, got %s", quote.Price)
	}
	if !quote.USD.Equal(decimal.RequireFromString("2500.7")) {
		t.Fatalf("expected usd 2500.7, got %s", quote.USD)
	}
}

func TestCoinGeckoFetchMissingCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL}, noopLogger())

	_, err := cg.FetchQuote(context.Background(), "not-a-coin")
	if !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
	if err.Error() != "quote not found: not-a-coin" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCoinGeckoFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]any{"error_code": 429, "error_message": "rate limited"},
		})
	}))
	defer srv.Close()

	cg := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL}, noopLogger())

	_, err := cg.FetchQuote(context.Background(), "ethereum")
	if err == nil {
		t.Fatal("HTTP 429 should fail")
	}
	if err.Error() != "coingecko api error (429): rate limited" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCoinGeckoFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"ethereum":{"usd":1}}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, noopLogger())

	if _, err := cg.FetchQuote(context.Background(), "ethereum"); err == nil {
		t.Fatal("slow response should time out")
	}
}

func TestCoinGeckoRejectsNegativePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"usd":-1.5}}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL}, noopLogger())

	if _, err := cg.FetchQuote(context.Background(), "ethereum"); err == nil {
		t.Fatal("negative price should be rejected")
	}
}
