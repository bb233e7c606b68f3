package source

import (
	"context"
	"errors"
	"fmt"

	"quotefeed/internal/quote"
)

// Source is the uniform interface over one upstream quote provider.
// FetchQuote returns ErrNotFound when the upstream does not know the symbol
// and *UpstreamError for transport/application failures; callers treat both
// as fallback triggers.
type Source interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (quote.Quote, error)
}

// HistorySource is implemented by sources that can serve daily bars.
type HistorySource interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, period quote.Period) (quote.HistoricalSeries, error)
}

// Searcher is implemented by sources with a text symbol search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]quote.SearchResult, error)
}

// ErrNotFound means the upstream answered but does not know the symbol.
var ErrNotFound = errors.New("symbol not found")

// UpstreamError is a transport or application failure from one source.
type UpstreamError struct {
	Source      string
	Status      int // HTTP status when applicable, 0 otherwise
	RateLimited bool
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// FailureClass names the failure bucket for logging.
func FailureClass(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.RateLimited {
			return "rate_limited"
		}
		return "upstream"
	}
	return "transient"
}
