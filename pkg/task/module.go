package task

import (
	"context"
	"os"

	"contest-review/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Client provides the asynq client and the Enqueuer used by services that
// schedule background work.
var Client = fx.Module("asynq:client",
	fx.Provide(newClient, NewEnqueuer),
)

// Server runs the asynq worker. Handlers register on the provided mux.
var Server = fx.Module("asynq:server",
	fx.Provide(asynq.NewServeMux),
	fx.Invoke(startServer),
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
}

func newClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	client := asynq.NewClient(redisOpt(cfg))
	if err := client.Ping(); err != nil {
		zap.L().Error("[Asynq] redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		os.Exit(1)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

// Queues returns the configured queue priorities, falling back to a single
// default queue.
func Queues(cfg *config.Config) map[string]int {
	if len(cfg.Worker.Queues) == 0 {
		return map[string]int{"default": 1}
	}
	return cfg.Worker.Queues
}

func startServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, mux *asynq.ServeMux) {
	queues := Queues(cfg)
	if _, ok := queues[cfg.Ledger.VerifyQueue]; cfg.Ledger.VerifyQueue != "" && !ok {
		zap.L().Warn("[Asynq] ledger verify queue is not served by this worker", zap.String("queue", cfg.Ledger.VerifyQueue))
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency:    cfg.Worker.Concurrency,
		Queues:         queues,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			zap.L().Error("task failed",
				zap.String("task_type", t.Type()),
				zap.String("task_id", id),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
		Logger: log.Named("asynq").Sugar(),
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				return err
			}
			zap.L().Info("[Asynq] worker started", zap.Any("queues", queues), zap.Int("concurrency", cfg.Worker.Concurrency))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}
