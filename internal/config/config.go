package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Cache struct {
	RedisURL   string `json:"redis_url"`
	TTLSeconds int    `json:"ttl_sec"`
	MaxItems   int    `json:"max_items"`
}

type Finnhub struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Yahoo struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
}

type Binance struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

type Stream struct {
	PollIntervalSec int `json:"poll_interval_sec"`
}

type Config struct {
	Server  Server  `json:"server"`
	Cache   Cache   `json:"cache"`
	Finnhub Finnhub `json:"finnhub"`
	Yahoo   Yahoo   `json:"yahoo"`
	Binance Binance `json:"binance"`
	Stream  Stream  `json:"stream"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Cache:  Cache{TTLSeconds: 10, MaxItems: 10000},
		Finnhub: Finnhub{
			Enabled:              true,
			Endpoint:             "https://finnhub.io/api/v1",
			MaxRequestsPerMinute: 60,
			Burst:                10,
		},
		Yahoo: Yahoo{
			Enabled:  true,
			Endpoint: "https://query1.finance.yahoo.com",
		},
		Binance: Binance{
			Enabled:  true,
			Endpoint: "https://api.binance.com",
		},
		Stream: Stream{PollIntervalSec: 3},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// envInt overrides *dst from an integer env var. Unparseable or out-of-range
// values are logged and ignored so a typo cannot zero a timeout.
func envInt(key string, min int, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(v)
	if err != nil || x < min {
		log.Printf("config: ignoring %s=%q: want integer >= %d", key, v, min)
		return
	}
	*dst = x
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", 1, &cfg.Server.RequestTimeoutSec)
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	envInt("CACHE_TTL_SEC", 0, &cfg.Cache.TTLSeconds)
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINNHUB_ENDPOINT"); v != "" {
		cfg.Finnhub.Endpoint = v
	}
	envInt("FINNHUB_MAX_RPM", 0, &cfg.Finnhub.MaxRequestsPerMinute)
	envInt("FINNHUB_BURST", 1, &cfg.Finnhub.Burst)
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	envInt("YAHOO_MIN_INTERVAL_SEC", 0, &cfg.Yahoo.MinRequestIntervalSec)
	if v := os.Getenv("BINANCE_ENDPOINT"); v != "" {
		cfg.Binance.Endpoint = v
	}
	envInt("POLL_INTERVAL_SEC", 1, &cfg.Stream.PollIntervalSec)
	// ENABLE_STOCKS / ENABLE_CRYPTO gate whole source families, matching the
	// platform's historical env contract.
	if v := os.Getenv("ENABLE_STOCKS"); v != "" {
		b := parseBool(v, true)
		cfg.Finnhub.Enabled = b
		cfg.Yahoo.Enabled = b
	}
	if v := os.Getenv("ENABLE_CRYPTO"); v != "" {
		cfg.Binance.Enabled = parseBool(v, true)
	}
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
