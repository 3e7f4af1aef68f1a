package infra

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisClientName shows up in CLIENT LIST so the POS connections can be told
// apart from other tenants of a shared Redis.
const RedisClientName = "kasir-utc"

const redisPingTimeout = 3 * time.Second

// NewRedis connects the client shared by the catalogue price cache and the
// receipt, low-stock and email job queues.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	if opts.ClientName == "" {
		opts.ClientName = RedisClientName
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s db %d", opts.Addr, opts.DB)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("redis connected")
	return rdb, nil
}
