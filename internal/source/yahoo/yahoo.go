package yahoo

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

// Config controls the Yahoo chart source.
type Config struct {
	Name    string
	BaseURL string
	// Range used when fetching a spot quote; 1d is enough for the meta block.
	QuoteRange string
}

// Source fetches quotes and daily history from the Yahoo v8 chart endpoint.
// It is the secondary equities source and the only real history source.
type Source struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Source {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.QuoteRange == "" {
		cfg.QuoteRange = "1d"
	}
	return &Source{cfg: cfg, client: hc}
}

func (s *Source) Name() string { return s.cfg.Name }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		RegularMarketPrice   json.Number `json:"regularMarketPrice"`
		ChartPreviousClose   json.Number `json:"chartPreviousClose"`
		RegularMarketDayHigh json.Number `json:"regularMarketDayHigh"`
		RegularMarketDayLow  json.Number `json:"regularMarketDayLow"`
		RegularMarketVolume  int64       `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*json.Number `json:"open"`
			High   []*json.Number `json:"high"`
			Low    []*json.Number `json:"low"`
			Close  []*json.Number `json:"close"`
			Volume []*int64       `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (s *Source) fetchChart(ctx context.Context, symbol, rng string) (*chartResult, error) {
	params := url.Values{"range": []string{rng}, "interval": []string{"1d"}}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.cfg.BaseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, &source.UpstreamError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, source.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &source.UpstreamError{
			Source:      s.Name(),
			Status:      resp.StatusCode,
			RateLimited: resp.StatusCode == http.StatusTooManyRequests,
			Err:         fmt.Errorf("chart %s", symbol),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body chartResponse
	if err := dec.Decode(&body); err != nil {
		return nil, &source.UpstreamError{Source: s.Name(), Err: fmt.Errorf("decoding chart: %w", err)}
	}
	if body.Chart.Error != nil {
		if strings.EqualFold(body.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo: %s: %w", symbol, source.ErrNotFound)
		}
		return nil, &source.UpstreamError{
			Source: s.Name(),
			Err:    fmt.Errorf("chart error: %s: %s", body.Chart.Error.Code, body.Chart.Error.Description),
		}
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, source.ErrNotFound)
	}
	return &body.Chart.Result[0], nil
}

func (s *Source) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	res, err := s.fetchChart(ctx, symbol, s.cfg.QuoteRange)
	if err != nil {
		return quote.Quote{}, err
	}

	current := decFrom(res.Meta.RegularMarketPrice)
	if current == nil || !current.IsPositive() {
		return quote.Quote{}, fmt.Errorf("yahoo: %s: %w", symbol, source.ErrNotFound)
	}

	q := quote.Quote{
		Symbol:        symbol,
		CurrentPrice:  *current,
		HighPrice:     decFrom(res.Meta.RegularMarketDayHigh),
		LowPrice:      decFrom(res.Meta.RegularMarketDayLow),
		PreviousClose: decFrom(res.Meta.ChartPreviousClose),
		Volume:        res.Meta.RegularMarketVolume,
		FetchedAt:     time.Now().UTC(),
		Source:        s.Name(),
	}
	// First open of the day when the indicator row carries one.
	if len(res.Indicators.Quote) > 0 && len(res.Indicators.Quote[0].Open) > 0 {
		if o := res.Indicators.Quote[0].Open[0]; o != nil {
			q.OpenPrice = decFrom(*o)
		}
	}
	return q, nil
}

// FetchHistory returns daily bars oldest first. Rows with null closes
// (market holidays in some feeds) are skipped.
func (s *Source) FetchHistory(ctx context.Context, symbol string, period quote.Period) (quote.HistoricalSeries, error) {
	res, err := s.fetchChart(ctx, symbol, string(period))
	if err != nil {
		return quote.HistoricalSeries{}, err
	}
	if len(res.Indicators.Quote) == 0 {
		return quote.HistoricalSeries{}, fmt.Errorf("yahoo: %s: no indicators: %w", symbol, source.ErrNotFound)
	}
	ind := res.Indicators.Quote[0]

	bars := make([]quote.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl := at(ind.Close, i)
		if cl == nil {
			continue
		}
		bar := quote.Bar{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *cl,
		}
		if o := at(ind.Open, i); o != nil {
			bar.Open = *o
		}
		if h := at(ind.High, i); h != nil {
			bar.High = *h
		}
		if l := at(ind.Low, i); l != nil {
			bar.Low = *l
		}
		if i < len(ind.Volume) && ind.Volume[i] != nil {
			bar.Volume = *ind.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return quote.HistoricalSeries{}, fmt.Errorf("yahoo: %s: empty history: %w", symbol, source.ErrNotFound)
	}
	return quote.HistoricalSeries{Symbol: symbol, Period: period, Bars: bars}, nil
}

func at(xs []*json.Number, i int) *decimal.Decimal {
	if i >= len(xs) || xs[i] == nil {
		return nil
	}
	return decFrom(*xs[i])
}

func decFrom(n json.Number) *decimal.Decimal {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return nil
	}
	return &d
}
