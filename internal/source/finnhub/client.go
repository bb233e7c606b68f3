package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quotefeed/internal/quote"
	"quotefeed/internal/source"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=finnhub_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the primary equities source, backed by the Finnhub REST API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// token is appended to every request as the `token` query parameter.
	token string
}

// Option is a configuration option for the Finnhub client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates a new Finnhub client.
func New(token string, options ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		token:      token,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return "finnhub" }

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	params.Set("token", c.token)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.UpstreamError{Source: c.Name(), Err: err}
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, &source.UpstreamError{
			Source:      c.Name(),
			Status:      res.StatusCode,
			RateLimited: res.StatusCode == http.StatusTooManyRequests,
			Err:         fmt.Errorf("GET %s", path),
		}
	}
	return res, nil
}

// quoteResponse mirrors Finnhub's /quote payload. Numbers arrive as JSON
// floats; json.Number keeps them out of float64 until decimal conversion.
type quoteResponse struct {
	Current       json.Number `json:"c"`
	Open          json.Number `json:"o"`
	High          json.Number `json:"h"`
	Low           json.Number `json:"l"`
	PreviousClose json.Number `json:"pc"`
	Change        json.Number `json:"d"`
	ChangePct     json.Number `json:"dp"`
}

// FetchQuote returns a real-time quote. Finnhub answers 200 with c=0 for
// unknown symbols, which maps to source.ErrNotFound.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	res, err := c.get(ctx, "/quote", url.Values{"symbol": []string{symbol}})
	if err != nil {
		return quote.Quote{}, err
	}
	defer res.Body.Close()

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var body quoteResponse
	if err := dec.Decode(&body); err != nil {
		return quote.Quote{}, &source.UpstreamError{Source: c.Name(), Err: fmt.Errorf("decoding quote: %w", err)}
	}

	current := decFrom(body.Current)
	if current == nil || !current.IsPositive() {
		return quote.Quote{}, fmt.Errorf("finnhub: %s: %w", symbol, source.ErrNotFound)
	}

	return quote.Quote{
		Symbol:        symbol,
		CurrentPrice:  *current,
		OpenPrice:     decFrom(body.Open),
		HighPrice:     decFrom(body.High),
		LowPrice:      decFrom(body.Low),
		PreviousClose: decFrom(body.PreviousClose),
		Change:        decFrom(body.Change),
		ChangePercent: decFrom(body.ChangePct),
		FetchedAt:     time.Now().UTC(),
		Source:        c.Name(),
	}, nil
}

type searchResponse struct {
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Exchange    string `json:"exchange"`
	} `json:"result"`
}

// Search returns up to 10 symbol matches for a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]quote.SearchResult, error) {
	res, err := c.get(ctx, "/search", url.Values{"q": []string{query}})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &source.UpstreamError{Source: c.Name(), Err: fmt.Errorf("decoding search: %w", err)}
	}

	out := make([]quote.SearchResult, 0, 10)
	for _, item := range body.Result {
		if len(out) == 10 {
			break
		}
		class := quote.AssetEquity
		if strings.Contains(strings.ToUpper(item.Type), "ETF") {
			class = quote.AssetFund
		}
		out = append(out, quote.SearchResult{
			Symbol:     item.Symbol,
			Name:       item.Description,
			AssetClass: class,
			Exchange:   item.Exchange,
		})
	}
	return out, nil
}

// decFrom converts a json.Number to a decimal, treating empty and zero as
// absent.
func decFrom(n json.Number) *decimal.Decimal {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return nil
	}
	return &d
}
