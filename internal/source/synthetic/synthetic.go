package synthetic

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/quote"
)

// Source generates deterministic pseudo prices so the resolver never has to
// answer "no data". Prices derive from a hash of the symbol plus the current
// UTC minute, so repeated calls inside one minute agree and distinct symbols
// (with distinct base entries) disagree.
type Source struct {
	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func New() *Source {
	return &Source{Now: time.Now}
}

func (s *Source) Name() string { return "synthetic" }

// basePrices anchors well-known demo symbols near realistic levels.
// Unknown symbols fall back to 100.
var basePrices = map[string]float64{
	"AAPL":   250.0,
	"MSFT":   425.0,
	"GOOGL":  175.0,
	"TSLA":   380.0,
	"AMZN":   215.0,
	"META":   575.0,
	"NVDA":   140.0,
	"SPY":    590.0,
	"QQQ":    515.0,
	"BTCUSD": 95000.0,
	"ETHUSD": 3600.0,
	"SOLUSD": 210.0,
}

const defaultBase = 100.0

func base(symbol string) float64 {
	if b, ok := basePrices[symbol]; ok {
		return b
	}
	return defaultBase
}

func seed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func (s *Source) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FetchQuote never fails. The price varies roughly +/-2% around the symbol's
// base, re-rolled once per UTC minute.
func (s *Source) FetchQuote(_ context.Context, symbol string) (quote.Quote, error) {
	now := s.now().UTC()
	bucket := now.Unix() / 60
	rng := rand.New(rand.NewSource(seed(symbol) + bucket))

	b := base(symbol)
	variation := rng.Float64()*0.04 - 0.02
	current := decimal.NewFromFloat(b * (1 + variation)).Round(2)
	prev := decimal.NewFromFloat(b).Round(2)
	high := current.Mul(decimal.NewFromFloat(1.01)).Round(2)
	low := current.Mul(decimal.NewFromFloat(0.99)).Round(2)

	return quote.Quote{
		Symbol:        symbol,
		CurrentPrice:  current,
		OpenPrice:     &prev,
		HighPrice:     &high,
		LowPrice:      &low,
		PreviousClose: &prev,
		FetchedAt:     now,
		Source:        s.Name(),
	}, nil
}

// FetchHistory never fails. The walk is seeded by the symbol alone, so the
// same symbol and period always produce the same series.
func (s *Source) FetchHistory(_ context.Context, symbol string, period quote.Period) (quote.HistoricalSeries, error) {
	rng := rand.New(rand.NewSource(seed(symbol)))
	days := period.Days()
	now := s.now().UTC()

	bars := make([]quote.Bar, 0, days)
	price := base(symbol)
	for i := days; i > 0; i-- {
		date := now.AddDate(0, 0, -i)

		// bounded random walk, +/-1.5% per day
		price *= 1 + (rng.Float64()*0.03 - 0.015)

		high := price * (1.001 + rng.Float64()*0.014)
		low := price * (0.985 + rng.Float64()*0.014)
		open := price * (0.995 + rng.Float64()*0.01)
		volume := 1_000_000 + rng.Int63n(99_000_000)

		bars = append(bars, quote.Bar{
			Date:   date.Format("2006-01-02"),
			Open:   decimal.NewFromFloat(open).Round(2),
			High:   decimal.NewFromFloat(high).Round(2),
			Low:    decimal.NewFromFloat(low).Round(2),
			Close:  decimal.NewFromFloat(price).Round(2),
			Volume: volume,
		})
	}

	return quote.HistoricalSeries{Symbol: symbol, Period: period, Bars: bars}, nil
}
