package synthetic

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/quote"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFetchQuote_DeterministicWithinMinuteBucket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 15, 0, time.UTC)
	s := New()
	s.Now = fixedClock(now)

	q1, err := s.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Different second, same minute bucket.
	s.Now = fixedClock(now.Add(40 * time.Second))
	q2, _ := s.FetchQuote(context.Background(), "AAPL")

	if !q1.CurrentPrice.Equal(q2.CurrentPrice) {
		t.Fatalf("same bucket, different prices: %s vs %s", q1.CurrentPrice, q2.CurrentPrice)
	}
}

func TestFetchQuote_ChangesAcrossBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	s := New()
	s.Now = fixedClock(now)
	q1, _ := s.FetchQuote(context.Background(), "AAPL")

	// A single pair of buckets could round to the same cent, so scan a few.
	var changed bool
	for i := 1; i <= 5; i++ {
		s.Now = fixedClock(now.Add(time.Duration(i) * time.Minute))
		q2, _ := s.FetchQuote(context.Background(), "AAPL")
		if !q1.CurrentPrice.Equal(q2.CurrentPrice) {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatalf("expected re-roll across minute buckets, all %s", q1.CurrentPrice)
	}
}

func TestFetchQuote_DistinctSymbolsDistinctBases(t *testing.T) {
	s := New()
	qa, _ := s.FetchQuote(context.Background(), "AAPL")
	qb, _ := s.FetchQuote(context.Background(), "BTCUSD")

	if qa.CurrentPrice.Equal(qb.CurrentPrice) {
		t.Fatalf("distinct table entries produced identical prices: %s", qa.CurrentPrice)
	}
	// Bounded variation: +/-2% around base.
	if qa.CurrentPrice.LessThan(dec(t, "245")) || qa.CurrentPrice.GreaterThan(dec(t, "255")) {
		t.Fatalf("AAPL price %s outside +/-2%% of base 250", qa.CurrentPrice)
	}
}

func TestFetchQuote_UnknownSymbolUsesDefaultBase(t *testing.T) {
	s := New()
	q, err := s.FetchQuote(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.CurrentPrice.IsPositive() {
		t.Fatalf("price must be positive, got %s", q.CurrentPrice)
	}
	if q.CurrentPrice.LessThan(dec(t, "98")) || q.CurrentPrice.GreaterThan(dec(t, "102")) {
		t.Fatalf("unknown symbol price %s outside +/-2%% of base 100", q.CurrentPrice)
	}
}

func TestFetchHistory_StableWalkPerSymbol(t *testing.T) {
	s := New()
	h1, err := s.FetchHistory(context.Background(), "TSLA", quote.Period1Mo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, _ := s.FetchHistory(context.Background(), "TSLA", quote.Period1Mo)

	if len(h1.Bars) != 30 {
		t.Fatalf("want 30 bars for 1mo, got %d", len(h1.Bars))
	}
	for i := range h1.Bars {
		if !h1.Bars[i].Close.Equal(h2.Bars[i].Close) {
			t.Fatalf("walk not stable at bar %d: %s vs %s", i, h1.Bars[i].Close, h2.Bars[i].Close)
		}
	}
}

func TestFetchHistory_NeverEmptyAndOrdered(t *testing.T) {
	s := New()
	for _, p := range []quote.Period{quote.Period1D, quote.Period5D, quote.Period1Mo, quote.Period3Mo, quote.Period6Mo, quote.Period1Y} {
		h, err := s.FetchHistory(context.Background(), "MSFT", p)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		if len(h.Bars) != p.Days() {
			t.Fatalf("%s: want %d bars, got %d", p, p.Days(), len(h.Bars))
		}
		for i := 1; i < len(h.Bars); i++ {
			if h.Bars[i].Date <= h.Bars[i-1].Date {
				t.Fatalf("%s: bars not oldest-first at %d: %s then %s", p, i, h.Bars[i-1].Date, h.Bars[i].Date)
			}
			if !h.Bars[i].Close.IsPositive() {
				t.Fatalf("%s: non-positive close at %d", p, i)
			}
		}
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}
