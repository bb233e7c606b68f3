package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is a last-write-wins price cache keyed by symbol. Caching is an
// optimization, never a correctness dependency: Get answers absent and Put is
// a no-op when the backing store is unavailable or the entry has expired.
type Store interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool)
	Put(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration)
}

// Nop is a Store that caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (decimal.Decimal, bool) { return decimal.Decimal{}, false }

func (Nop) Put(context.Context, string, decimal.Decimal, time.Duration) {}
