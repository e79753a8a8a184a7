package redis

import (
	"context"
	"time"

	"contest-review/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

const pingAttempts = 5

// New returns the shared redis client. The connection is checked on start,
// retrying while the server comes up.
func New(lc fx.Lifecycle, c *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	})

	log := zap.L().With(zap.String("addr", c.Redis.Addr), zap.Int("db", c.Redis.DB))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ping(ctx, rdb, log)
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb
}

func ping(ctx context.Context, rdb *redis.Client, log *zap.Logger) error {
	var err error
	for i := 1; i <= pingAttempts; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			log.Info("[Redis] connected")
			return nil
		}
		log.Warn("[Redis] not ready, retrying", zap.Int("attempt", i), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return err
}
