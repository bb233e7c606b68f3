package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"quotefeed/internal/config"
	"quotefeed/internal/httpx"
	"quotefeed/internal/quote"
	"quotefeed/internal/resolver"
	"quotefeed/internal/source"
	"quotefeed/internal/source/binance"
	"quotefeed/internal/source/finnhub"
	"quotefeed/internal/source/synthetic"
	"quotefeed/internal/source/yahoo"
)

// fetch resolves a handful of symbols from the command line and prints the
// quotes as JSON; handy for poking the source chains without the server.
func main() {
	var symbolsCSV string
	var class string
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated symbols")
	flag.StringVar(&class, "class", getenv("ASSET_CLASS", ""), "asset class: equity, fund or crypto (inferred per symbol when empty)")
	flag.IntVar(&timeout, "timeout", 15, "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var equity []source.Source
	if cfg.Finnhub.Enabled && cfg.Finnhub.APIKey != "" {
		equity = append(equity, finnhub.New(cfg.Finnhub.APIKey,
			finnhub.WithBaseURL(cfg.Finnhub.Endpoint),
			finnhub.WithHTTPClient(httpClient.HTTP)))
	}
	var crypto []source.Source
	if cfg.Binance.Enabled {
		crypto = append(crypto, binance.New(binance.Config{BaseURL: cfg.Binance.Endpoint}, httpClient))
	}
	var history source.HistorySource
	if cfg.Yahoo.Enabled {
		yh := yahoo.New(yahoo.Config{BaseURL: cfg.Yahoo.Endpoint}, httpClient)
		history = yh
		equity = append(equity, yh)
	}

	rs := resolver.New(resolver.Options{
		Crypto:         crypto,
		Equity:         equity,
		History:        history,
		Fallback:       synthetic.New(),
		AdapterTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		Logger:         zap.NewNop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reqs := make([]resolver.Request, 0, 4)
	for _, sym := range strings.Split(symbolsCSV, ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		c := quote.InferAssetClass(sym)
		if class != "" {
			c = quote.ParseAssetClass(class)
		}
		reqs = append(reqs, resolver.Request{Symbol: sym, Class: c})
	}

	quotes := rs.ResolveMany(ctx, reqs)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(quotes)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
