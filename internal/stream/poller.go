package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quotefeed/internal/quote"
	"quotefeed/internal/resolver"
)

// Poller drives the hub: each tick it resolves every symbol with at least one
// subscriber and broadcasts the result. Asset class is inferred from the
// symbol because subscribe messages carry bare symbols.
type Poller struct {
	Resolver *resolver.Resolver
	Hub      *Hub
	Interval time.Duration
	// MaxConcurrency bounds in-flight resolves per tick. Default 8.
	MaxConcurrency int
	Logger         *zap.Logger
}

// Run blocks until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxConc := p.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 8
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, maxConc)
		}
	}
}

func (p *Poller) tick(ctx context.Context, maxConc int) {
	symbols := p.Hub.Symbols()
	if len(symbols) == 0 {
		return
	}

	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			q := p.Resolver.Resolve(ctx, sym, quote.InferAssetClass(sym))
			p.Hub.Broadcast(PriceUpdate{
				Type:          TypePriceUpdate,
				Symbol:        sym,
				Price:         q.CurrentPrice,
				ChangePercent: q.ChangePercent,
				Timestamp:     q.FetchedAt,
			})
		}(sym)
	}
	wg.Wait()
}
