package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"quotefeed/internal/quote"
	"quotefeed/internal/resolver"
	"quotefeed/internal/source"
)

type fakeSource struct {
	name  string
	price string
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) FetchQuote(_ context.Context, symbol string) (quote.Quote, error) {
	return quote.Quote{
		Symbol:       symbol,
		CurrentPrice: decimal.RequireFromString(f.price),
		Source:       f.name,
	}, nil
}

func newTestResolver() *resolver.Resolver {
	return resolver.New(resolver.Options{
		Equity: []source.Source{fakeSource{name: "fake", price: "110.5"}},
	})
}

func TestQuoteHandler_OK(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quote?symbol=AAPL&class=equity", nil)
	handleQuote(newTestResolver())(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var q quote.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "AAPL" || !q.CurrentPrice.Equal(decimal.RequireFromString("110.5")) || q.AssetClass != quote.AssetEquity {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if q.Source != "fake" {
		t.Fatalf("source should name the adapter, got %q", q.Source)
	}
}

func TestQuoteHandler_MissingSymbol(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quote", nil)
	handleQuote(newTestResolver())(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
}

func TestHistoryHandler_OK(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history?symbol=AAPL&period=5d", nil)
	handleHistory(newTestResolver())(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var h quote.HistoricalSeries
	if err := json.Unmarshal(rr.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Symbol != "AAPL" || h.Period != quote.Period5D || len(h.Bars) != 5 {
		t.Fatalf("unexpected series: symbol=%s period=%s bars=%d", h.Symbol, h.Period, len(h.Bars))
	}
}

func TestHistoryHandler_MissingSymbol(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	handleHistory(newTestResolver())(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	handleSearch(newTestResolver())(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
}

func TestSearchHandler_CryptoTableWithoutUpstream(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=bitcoin", nil)
	handleSearch(newTestResolver())(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Symbol != "BTCUSD" || resp.Results[0].AssetClass != quote.AssetCrypto {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestMiddleware_JSONHeadersAndCORS(t *testing.T) {
	wrapped := withJSONHeaders(recoverPanic(limitBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote?symbol=AAPL", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("cors origin=%q", origin)
	}

	// Preflight short-circuits before the handler.
	rrOpt := httptest.NewRecorder()
	wrapped.ServeHTTP(rrOpt, httptest.NewRequest(http.MethodOptions, "/api/quote", nil))
	if rrOpt.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rrOpt.Code)
	}
}

func TestMiddleware_RecoverPanic(t *testing.T) {
	wrapped := recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quote", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rr.Code)
	}
}
