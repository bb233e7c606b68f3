package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// entry stores one cached price with expiry.
type entry struct {
	price     decimal.Decimal
	expiresAt time.Time
}

// Memory caches prices per symbol in process memory. Expiry is evaluated at
// read time; there is no background sweep.
type Memory struct {
	// MaxItems caps the map size; 0 means unbounded.
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry // key: symbol
}

func NewMemory(maxItems int) *Memory {
	return &Memory{MaxItems: maxItems, items: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, symbol string) (decimal.Decimal, bool) {
	now := time.Now()
	m.mu.RLock()
	e, ok := m.items[symbol]
	m.mu.RUnlock()
	if !ok || !now.Before(e.expiresAt) {
		return decimal.Decimal{}, false
	}
	return e.price, true
}

func (m *Memory) Put(_ context.Context, symbol string, price decimal.Decimal, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := time.Now()
	m.mu.Lock()
	if m.items == nil {
		m.items = make(map[string]entry)
	}
	m.items[symbol] = entry{price: price, expiresAt: now.Add(ttl)}
	// best-effort cap: remove expired first, then arbitrary
	if m.MaxItems > 0 && len(m.items) > m.MaxItems {
		for k, v := range m.items {
			if now.After(v.expiresAt) {
				delete(m.items, k)
			}
			if len(m.items) <= m.MaxItems {
				break
			}
		}
		for k := range m.items {
			if len(m.items) <= m.MaxItems {
				break
			}
			delete(m.items, k)
		}
	}
	m.mu.Unlock()
}
