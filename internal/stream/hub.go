package stream

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is one live client connection as the hub sees it.
type Conn interface {
	ID() string
	Send(v any) error
}

// Hub owns the connection set and each connection's subscribed symbols.
// Subscription state is only mutated from that connection's own handler or
// its connect/disconnect events; the mutex exists because Broadcast iterates
// the set concurrently with connects and disconnects.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[Conn]map[string]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[Conn]map[string]struct{}),
	}
}

// Register adds a connection with an empty subscription set.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; !ok {
		h.subs[c] = make(map[string]struct{})
	}
}

// Unregister drops a connection and its subscriptions. Idempotent.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, c)
}

// Subscribe unions symbols into the connection's set. Unknown connections are
// ignored: registration happens before the read loop starts, so a missing
// entry means the connection already unregistered and re-inserting it would
// leak a dead subscription.
func (h *Hub) Subscribe(c Conn, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c]
	if !ok {
		return
	}
	for _, s := range symbols {
		set[s] = struct{}{}
	}
}

// Unsubscribe removes symbols from the connection's set. Symbols not present
// are ignored.
func (h *Hub) Unsubscribe(c Conn, symbols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[c]; ok {
		for _, s := range symbols {
			delete(set, s)
		}
	}
}

// Symbols returns the union of all subscribed symbols, for the poll driver.
func (h *Hub) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	uniq := make(map[string]struct{})
	for _, set := range h.subs {
		for s := range set {
			uniq[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(uniq))
	for s := range uniq {
		out = append(out, s)
	}
	return out
}

// Broadcast delivers an update to every connection subscribed to its symbol.
// A failed send is logged and skipped; the connection cleans itself up when
// its own read loop fails.
func (h *Hub) Broadcast(update PriceUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c, set := range h.subs {
		if _, ok := set[update.Symbol]; !ok {
			continue
		}
		if err := c.Send(update); err != nil {
			h.logger.Warn("broadcast delivery failed",
				zap.String("conn", c.ID()),
				zap.String("symbol", update.Symbol),
				zap.Error(err))
		}
	}
}
