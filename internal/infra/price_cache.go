package infra

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PriceCache memoizes public price-check answers in Redis. A nil cache
// misses on every Get and ignores writes.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPriceCache(rdb *redis.Client, ttl time.Duration) *PriceCache {
	if rdb == nil {
		return nil
	}
	return &PriceCache{rdb: rdb, ttl: ttl}
}

func priceKey(sku string) string { return "price:" + strings.ToUpper(sku) }

// Get decodes the cached entry for sku into dst and reports whether it hit.
func (c *PriceCache) Get(ctx context.Context, sku string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, priceKey(sku)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *PriceCache) Set(ctx context.Context, sku string, v interface{}) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, priceKey(sku), b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("sku", sku).Msg("price cache: set failed")
	}
}

func (c *PriceCache) Invalidate(ctx context.Context, skus ...string) {
	if c == nil || len(skus) == 0 {
		return
	}
	keys := make([]string, len(skus))
	for i, s := range skus {
		keys[i] = priceKey(s)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("skus", skus).Msg("price cache: invalidate failed")
	}
}
