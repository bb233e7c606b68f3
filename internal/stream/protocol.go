package stream

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message types on the /ws/prices connection.
const (
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePriceUpdate  = "price_update"
)

// Request is an inbound subscribe/unsubscribe message.
type Request struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// Ack confirms a subscribe/unsubscribe. Symbols echoes the just-requested
// list, not the connection's accumulated set; clients that need the full set
// must track it themselves.
type Ack struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// PriceUpdate is an asynchronous push for one subscribed symbol.
type PriceUpdate struct {
	Type          string           `json:"type"`
	Symbol        string           `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}
