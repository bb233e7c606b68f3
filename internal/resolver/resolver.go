package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quotefeed/internal/cache"
	"quotefeed/internal/quote"
	"quotefeed/internal/source"
	"quotefeed/internal/source/synthetic"
)

// Options wires a Resolver. Cache, Fallback and Logger get working defaults;
// the source chains may be empty, in which case every resolve lands on the
// synthetic fallback.
type Options struct {
	Cache cache.Store
	// Crypto is the chain tried for crypto symbols; no equity fallback.
	Crypto []source.Source
	// Equity is the chain tried for equity and fund symbols, in priority order.
	Equity []source.Source
	// History serves real daily bars; nil means synthetic only.
	History source.HistorySource
	// Searcher serves text symbol search; nil means crypto table only.
	Searcher source.Searcher
	// Fallback is the deterministic generator of last resort.
	Fallback *synthetic.Source
	// QuoteTTL is how long resolved prices stay cached. Default 10s: fresh
	// enough for a live ticker, long enough to absorb request bursts.
	QuoteTTL time.Duration
	// AdapterTimeout bounds each upstream call. Default 10s.
	AdapterTimeout time.Duration
	Logger         *zap.Logger
}

// Resolver answers every quote, history and search request, falling across
// sources in a fixed order and never returning an error to callers.
type Resolver struct {
	opts Options
	sf   singleflight.Group
}

func New(opts Options) *Resolver {
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.Fallback == nil {
		opts.Fallback = synthetic.New()
	}
	if opts.QuoteTTL <= 0 {
		opts.QuoteTTL = 10 * time.Second
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{opts: opts}
}

// Resolve prices one symbol. It is total: when the cache misses and every
// source in the class chain fails, the synthetic fallback supplies the value.
func (r *Resolver) Resolve(ctx context.Context, symbol string, class quote.AssetClass) quote.Quote {
	if price, ok := r.opts.Cache.Get(ctx, symbol); ok {
		return quote.Quote{
			Symbol:       symbol,
			AssetClass:   class,
			CurrentPrice: price,
			FetchedAt:    time.Now().UTC(),
			Cached:       true,
		}
	}

	// Coalesce concurrent misses for the same symbol into one upstream pass.
	v, _, _ := r.sf.Do(string(class)+":"+symbol, func() (any, error) {
		return r.fetch(ctx, symbol, class), nil
	})
	return v.(quote.Quote)
}

func (r *Resolver) chain(class quote.AssetClass) []source.Source {
	if class == quote.AssetCrypto {
		return r.opts.Crypto
	}
	return r.opts.Equity
}

func (r *Resolver) fetch(ctx context.Context, symbol string, class quote.AssetClass) quote.Quote {
	for _, s := range r.chain(class) {
		cctx, cancel := context.WithTimeout(ctx, r.opts.AdapterTimeout)
		q, err := s.FetchQuote(cctx, symbol)
		cancel()
		if err != nil {
			r.opts.Logger.Warn("source failed",
				zap.String("symbol", symbol),
				zap.String("source", s.Name()),
				zap.String("failure", source.FailureClass(err)),
				zap.Error(err))
			continue
		}
		return r.finish(ctx, q, class)
	}

	// Every source exhausted (or none configured): deterministic fallback.
	// Cached too, so a perpetually unreachable symbol does not retry per call.
	q, _ := r.opts.Fallback.FetchQuote(ctx, symbol)
	return r.finish(ctx, q, class)
}

// finish applies the once-per-resolve derivations and populates the cache.
func (r *Resolver) finish(ctx context.Context, q quote.Quote, class quote.AssetClass) quote.Quote {
	q.AssetClass = class
	if q.Change == nil && q.PreviousClose != nil {
		change := q.CurrentPrice.Sub(*q.PreviousClose)
		q.Change = &change
	}
	if q.ChangePercent == nil && q.Change != nil && q.PreviousClose != nil && q.PreviousClose.IsPositive() {
		pct := q.Change.Div(*q.PreviousClose).Mul(decimal.NewFromInt(100))
		q.ChangePercent = &pct
	}
	r.opts.Cache.Put(ctx, q.Symbol, q.CurrentPrice, r.opts.QuoteTTL)
	return q
}

// ResolveHistory returns daily bars for a symbol, substituting the
// deterministic synthetic walk when the real source fails or comes back empty.
func (r *Resolver) ResolveHistory(ctx context.Context, symbol string, class quote.AssetClass, period quote.Period) quote.HistoricalSeries {
	if h := r.opts.History; h != nil {
		cctx, cancel := context.WithTimeout(ctx, r.opts.AdapterTimeout)
		series, err := h.FetchHistory(cctx, symbol, period)
		cancel()
		if err == nil && len(series.Bars) > 0 {
			return series
		}
		if err != nil {
			r.opts.Logger.Warn("history source failed",
				zap.String("symbol", symbol),
				zap.String("source", h.Name()),
				zap.String("failure", source.FailureClass(err)),
				zap.Error(err))
		}
	}
	series, _ := r.opts.Fallback.FetchHistory(ctx, symbol, period)
	return series
}

// cryptoSymbols is the static table merged into search results.
var cryptoSymbols = []struct{ Base, Name string }{
	{"BTC", "Bitcoin"},
	{"ETH", "Ethereum"},
	{"BNB", "Binance Coin"},
	{"SOL", "Solana"},
	{"ADA", "Cardano"},
	{"XRP", "Ripple"},
	{"DOT", "Polkadot"},
	{"DOGE", "Dogecoin"},
	{"AVAX", "Avalanche"},
	{"MATIC", "Polygon"},
}

const maxSearchResults = 20

// Search merges upstream text search with the static crypto table, matched by
// case-insensitive substring on symbol or name.
func (r *Resolver) Search(ctx context.Context, query string) []quote.SearchResult {
	results := make([]quote.SearchResult, 0, maxSearchResults)

	if s := r.opts.Searcher; s != nil {
		cctx, cancel := context.WithTimeout(ctx, r.opts.AdapterTimeout)
		found, err := s.Search(cctx, query)
		cancel()
		if err != nil {
			r.opts.Logger.Warn("search failed",
				zap.String("query", query),
				zap.String("failure", source.FailureClass(err)),
				zap.Error(err))
		} else {
			results = append(results, found...)
		}
	}

	up := strings.ToUpper(strings.TrimSpace(query))
	if up != "" {
		for _, c := range cryptoSymbols {
			if strings.Contains(c.Base, up) || strings.Contains(strings.ToUpper(c.Name), up) {
				results = append(results, quote.SearchResult{
					Symbol:     c.Base + "USD",
					Name:       c.Name,
					AssetClass: quote.AssetCrypto,
					Exchange:   "Binance",
				})
			}
		}
	}

	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results
}

// Request names one symbol to price in a batch.
type Request struct {
	Symbol string
	Class  quote.AssetClass
}

// ResolveMany prices a batch with bounded concurrency, one quote per request
// in input order. Resolve is total, so there is no per-item error; degraded
// values carry Source == "synthetic".
func (r *Resolver) ResolveMany(ctx context.Context, reqs []Request) []quote.Quote {
	const maxConc = 8
	out := make([]quote.Quote, len(reqs))
	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				q, _ := r.opts.Fallback.FetchQuote(ctx, req.Symbol)
				out[i] = r.finish(ctx, q, req.Class)
				return
			}
			out[i] = r.Resolve(ctx, req.Symbol, req.Class)
		}(i, req)
	}
	wg.Wait()
	return out
}
