package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotefeed/internal/httpx"
	"quotefeed/internal/quote"
	"quotefeed/internal/source"
)

const chartOK = `{"chart":{"result":[{
	"meta":{
		"regularMarketPrice":192.53,
		"chartPreviousClose":190.1,
		"regularMarketDayHigh":193.0,
		"regularMarketDayLow":189.9,
		"regularMarketVolume":52000000
	},
	"timestamp":[1717200000,1717286400,1717372800],
	"indicators":{"quote":[{
		"open":[190.5,191.2,null],
		"high":[191.0,192.8,193.0],
		"low":[189.9,190.7,191.5],
		"close":[190.8,192.1,192.53],
		"volume":[48000000,51000000,52000000]
	}]}
}],"error":null}}`

const chartNotFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
}

func TestFetchQuote_ParsesMeta(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		require.Equal(t, "1d", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartOK))
	})

	q, err := s.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "192.53", q.CurrentPrice.String())
	require.NotNil(t, q.PreviousClose)
	require.Equal(t, "190.1", q.PreviousClose.String())
	require.NotNil(t, q.OpenPrice)
	require.Equal(t, "190.5", q.OpenPrice.String())
	require.Equal(t, int64(52000000), q.Volume)
	require.Equal(t, "yahoo", q.Source)
}

func TestFetchQuote_NotFound(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(chartNotFound))
	})

	_, err := s.FetchQuote(context.Background(), "NOSUCH")
	require.ErrorIs(t, err, source.ErrNotFound)
}

func TestFetchQuote_ChartErrorBody(t *testing.T) {
	// Some deployments answer 200 with an error block.
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartNotFound))
	})

	_, err := s.FetchQuote(context.Background(), "NOSUCH")
	require.ErrorIs(t, err, source.ErrNotFound)
}

func TestFetchQuote_RateLimited(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.FetchQuote(context.Background(), "AAPL")
	var ue *source.UpstreamError
	require.ErrorAs(t, err, &ue)
	require.True(t, ue.RateLimited)
}

func TestFetchHistory_SkipsNullRows(t *testing.T) {
	var gotRange string
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":10},
			"timestamp":[1717200000,1717286400,1717372800],
			"indicators":{"quote":[{
				"open":[9.5,null,9.9],
				"high":[10.1,null,10.2],
				"low":[9.4,null,9.8],
				"close":[10,null,10.1],
				"volume":[1000,null,1200]
			}]}
		}],"error":null}}`))
	})

	h, err := s.FetchHistory(context.Background(), "AAPL", quote.Period1Mo)
	require.NoError(t, err)
	require.Equal(t, "1mo", gotRange)
	require.Len(t, h.Bars, 2, "null close row must be skipped")
	require.Equal(t, "2024-06-01", h.Bars[0].Date)
	require.Equal(t, "10", h.Bars[0].Close.String())
	require.Equal(t, int64(1200), h.Bars[1].Volume)
}

func TestFetchHistory_EmptyIsFailure(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":10},
			"timestamp":[],
			"indicators":{"quote":[{"open":[],"high":[],"low":[],"close":[],"volume":[]}]}
		}],"error":null}}`))
	})

	_, err := s.FetchHistory(context.Background(), "AAPL", quote.Period1Mo)
	require.Error(t, err)
}
