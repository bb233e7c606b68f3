package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const keyPrefix = "price:"

// Redis backs the price cache with a Redis instance. Backend errors degrade
// to absent/no-op; the resolver must keep working with the cache gone.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis dials the instance behind url (redis://...) and verifies it with a
// short ping. A dead instance is an error here, at construction time, so the
// caller can fall back to an in-memory store.
func NewRedis(url string, log *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client, log: log}, nil
}

func (r *Redis) Get(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	val, err := r.client.Get(ctx, keyPrefix+symbol).Result()
	if err != nil {
		if err != redis.Nil {
			r.log.Debug("cache get failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}

func (r *Redis) Put(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, keyPrefix+symbol, price.String(), ttl).Err(); err != nil {
		r.log.Debug("cache put failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

func (r *Redis) Close() error { return r.client.Close() }
