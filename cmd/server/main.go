package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"quotefeed/internal/cache"
	"quotefeed/internal/config"
	"quotefeed/internal/httpx"
	"quotefeed/internal/resolver"
	"quotefeed/internal/source"
	"quotefeed/internal/source/binance"
	"quotefeed/internal/source/finnhub"
	"quotefeed/internal/source/ratelimit"
	"quotefeed/internal/source/synthetic"
	"quotefeed/internal/source/yahoo"
	"quotefeed/internal/stream"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Finnhub.Enabled && cfg.Finnhub.APIKey == "" {
		logger.Warn("finnhub.enabled=true but FINNHUB_API_KEY not set; skipping source")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var equity []source.Source
	var searcher source.Searcher
	if cfg.Finnhub.Enabled && cfg.Finnhub.APIKey != "" {
		fh := finnhub.New(cfg.Finnhub.APIKey,
			finnhub.WithBaseURL(cfg.Finnhub.Endpoint),
			finnhub.WithHTTPClient(httpClient.HTTP),
		)
		searcher = fh
		var s source.Source = fh
		if cfg.Finnhub.MaxRequestsPerMinute > 0 {
			rate := float64(cfg.Finnhub.MaxRequestsPerMinute) / 60.0
			burst := cfg.Finnhub.Burst
			if burst <= 0 {
				burst = 1
			}
			s = &ratelimit.TokenBucketSource{S: s, TB: ratelimit.NewTokenBucket(rate, burst)}
		}
		equity = append(equity, s)
	}

	var history source.HistorySource
	if cfg.Yahoo.Enabled {
		yh := yahoo.New(yahoo.Config{BaseURL: cfg.Yahoo.Endpoint}, httpClient)
		history = yh
		var s source.Source = yh
		if cfg.Yahoo.MinRequestIntervalSec > 0 {
			interval := time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second
			s = &ratelimit.MinInterval{S: s, Interval: interval}
		}
		equity = append(equity, s)
	}

	var crypto []source.Source
	if cfg.Binance.Enabled {
		crypto = append(crypto, binance.New(binance.Config{BaseURL: cfg.Binance.Endpoint}, httpClient))
	}

	var store cache.Store
	if cfg.Cache.RedisURL != "" {
		rs, err := cache.NewRedis(cfg.Cache.RedisURL, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
			store = cache.NewMemory(cfg.Cache.MaxItems)
		} else {
			defer rs.Close()
			store = rs
		}
	} else {
		store = cache.NewMemory(cfg.Cache.MaxItems)
	}

	rs := resolver.New(resolver.Options{
		Cache:          store,
		Crypto:         crypto,
		Equity:         equity,
		History:        history,
		Searcher:       searcher,
		Fallback:       synthetic.New(),
		QuoteTTL:       time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		AdapterTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		Logger:         logger,
	})

	hub := stream.NewHub(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := &stream.Poller{
		Resolver: rs,
		Hub:      hub,
		Interval: time.Duration(cfg.Stream.PollIntervalSec) * time.Second,
		Logger:   logger,
	}
	go poller.Run(ctx)

	api := http.NewServeMux()
	api.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	api.HandleFunc("/api/quote", handleQuote(rs))
	api.HandleFunc("/api/history", handleHistory(rs))
	api.HandleFunc("/api/search", handleSearch(rs))

	mux := http.NewServeMux()
	mux.Handle("/", withJSONHeaders(recoverPanic(limitBody(api))))
	// The ws endpoint stays outside the JSON middleware; upgrades must not
	// inherit response headers.
	mux.Handle("/ws/prices", &stream.Handler{Hub: hub, Logger: logger})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
