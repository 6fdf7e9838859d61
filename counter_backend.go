package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/maxverstappen583/Tribute/config"
	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/db"
)

// openCounter builds the store selected by COUNTER_BACKEND. The returned
// close func releases its connections and is safe to call more than once.
// A nil store means counting is disabled.
func openCounter(ctx context.Context, cfg *config.Config) (counter.Store, func(), error) {
	noop := func() {}
	switch cfg.CounterBackend {
	case config.CounterNone:
		slog.Info("visit counter disabled")
		return nil, noop, nil

	case config.CounterPostgres:
		pool, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Setup(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return counter.NewPostgres(pool, cfg.CounterKey), pool.Close, nil

	case config.CounterRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		closed := false
		closeFn := func() {
			if closed {
				return
			}
			closed = true
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", slog.Any("err", err))
			}
		}
		return counter.NewRedis(rdb, counter.WithRedisKey(cfg.CounterKey)), closeFn, nil

	default:
		slog.Info("visit counter file", slog.String("path", cfg.CounterFile))
		return counter.NewFile(cfg.CounterFile), noop, nil
	}
}
