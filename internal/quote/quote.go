package quote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass selects which source chain prices a symbol.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetFund   AssetClass = "fund"
	AssetCrypto AssetClass = "crypto"
)

// ParseAssetClass maps a request string to an AssetClass, defaulting to equity.
func ParseAssetClass(s string) AssetClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto":
		return AssetCrypto
	case "fund", "etf":
		return AssetFund
	default:
		return AssetEquity
	}
}

// Quote is the normalized shape returned by all sources.
// CurrentPrice is always present and positive; every other field is
// best-effort and may be absent.
type Quote struct {
	Symbol        string           `json:"symbol"`
	AssetClass    AssetClass       `json:"asset_class"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	OpenPrice     *decimal.Decimal `json:"open_price,omitempty"`
	HighPrice     *decimal.Decimal `json:"high_price,omitempty"`
	LowPrice      *decimal.Decimal `json:"low_price,omitempty"`
	PreviousClose *decimal.Decimal `json:"previous_close,omitempty"`
	Change        *decimal.Decimal `json:"change,omitempty"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
	Volume        int64            `json:"volume,omitempty"`
	FetchedAt     time.Time        `json:"timestamp"`
	Cached        bool             `json:"cached"`
	Source        string           `json:"source,omitempty"`
}

// Bar is one daily candle.
type Bar struct {
	Date   string          `json:"date"` // YYYY-MM-DD
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// HistoricalSeries is an oldest-first sequence of daily bars.
// A successfully produced series is never empty.
type HistoricalSeries struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
	Bars   []Bar  `json:"bars"`
}

// SearchResult is one symbol-search match.
type SearchResult struct {
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"asset_class"`
	Exchange   string     `json:"exchange"`
}

// Period is a history window token.
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
)

var periodDays = map[Period]int{
	Period1D:  1,
	Period5D:  5,
	Period1Mo: 30,
	Period3Mo: 90,
	Period6Mo: 180,
	Period1Y:  365,
}

// ParsePeriod validates a period token, defaulting to 1mo.
func ParsePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodDays[p]; ok {
		return p
	}
	return Period1Mo
}

// Days returns the number of daily bars the period spans.
func (p Period) Days() int {
	if d, ok := periodDays[p]; ok {
		return d
	}
	return 30
}

// knownCrypto are the demo crypto pairs the platform recognizes without a
// class hint. Used by InferAssetClass for stream subscriptions, which carry
// bare symbols.
var knownCrypto = map[string]struct{}{
	"BTCUSD": {}, "ETHUSD": {}, "BNBUSD": {}, "SOLUSD": {}, "ADAUSD": {},
	"XRPUSD": {}, "DOTUSD": {}, "DOGEUSD": {}, "AVAXUSD": {}, "MATICUSD": {},
}

// InferAssetClass guesses the class for a bare symbol.
func InferAssetClass(symbol string) AssetClass {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := knownCrypto[s]; ok {
		return AssetCrypto
	}
	if strings.HasSuffix(s, "USDT") {
		return AssetCrypto
	}
	return AssetEquity
}
