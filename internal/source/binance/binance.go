package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/httpx"
	"quotefeed/internal/quote"
	"quotefeed/internal/source"
)

// Config controls the Binance crypto source.
type Config struct {
	Name    string
	BaseURL string
	// SymbolSuffix replaces a trailing USD when mapping to Binance pairs,
	// e.g. BTCUSD -> BTCUSDT.
	SymbolSuffix string
}

// Source fetches crypto quotes from the Binance public 24hr ticker.
// No authentication is required for public market data.
type Source struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Source {
	if cfg.Name == "" {
		cfg.Name = "binance"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.binance.com"
	}
	if cfg.SymbolSuffix == "" {
		cfg.SymbolSuffix = "USDT"
	}
	return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

// mapSymbol converts an exchange-qualified pair to Binance's spelling.
func (s *Source) mapSymbol(symbol string) string {
	up := strings.ToUpper(symbol)
	if strings.HasSuffix(up, "USD") {
		return strings.TrimSuffix(up, "USD") + s.cfg.SymbolSuffix
	}
	return up
}

// tickerResponse is Binance's 24hr statistics payload. Prices arrive as
// strings, which suits decimal parsing directly.
type tickerResponse struct {
	LastPrice          string `json:"lastPrice"`
	OpenPrice          string `json:"openPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	PrevClosePrice     string `json:"prevClosePrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
}

func (s *Source) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	params := url.Values{"symbol": []string{s.mapSymbol(symbol)}}
	u := fmt.Sprintf("%s/api/v3/ticker/24hr?%s", s.cfg.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return quote.Quote{}, err
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return quote.Quote{}, &source.UpstreamError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	// Binance answers 400 with code -1121 for unknown pairs.
	if resp.StatusCode == http.StatusBadRequest {
		return quote.Quote{}, fmt.Errorf("binance: %s: %w", symbol, source.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return quote.Quote{}, &source.UpstreamError{
			Source:      s.Name(),
			Status:      resp.StatusCode,
			RateLimited: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418,
			Err:         fmt.Errorf("ticker %s", symbol),
		}
	}

	var body tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return quote.Quote{}, &source.UpstreamError{Source: s.Name(), Err: fmt.Errorf("decoding ticker: %w", err)}
	}

	current, err := decimal.NewFromString(body.LastPrice)
	if err != nil || !current.IsPositive() {
		return quote.Quote{}, fmt.Errorf("binance: %s: %w", symbol, source.ErrNotFound)
	}

	q := quote.Quote{
		Symbol:        symbol,
		AssetClass:    quote.AssetCrypto,
		CurrentPrice:  current,
		OpenPrice:     decFrom(body.OpenPrice),
		HighPrice:     decFrom(body.HighPrice),
		LowPrice:      decFrom(body.LowPrice),
		PreviousClose: decFrom(body.PrevClosePrice),
		ChangePercent: decFrom(body.PriceChangePercent),
		FetchedAt:     time.Now().UTC(),
		Source:        s.Name(),
	}
	if v, err := decimal.NewFromString(body.Volume); err == nil {
		q.Volume = v.IntPart()
	}
	return q, nil
}

func decFrom(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return nil
	}
	return &d
}
