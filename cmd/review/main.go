package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"contest-review/pkg/config"
	"contest-review/pkg/db"
	"contest-review/pkg/gen"
	"contest-review/pkg/health"
	"contest-review/pkg/httpapi"
	"contest-review/pkg/logger"
	"contest-review/pkg/otelcol"
	"contest-review/pkg/profiling"
	"contest-review/pkg/redis"
	"contest-review/pkg/secretmanager"
	"contest-review/pkg/sequence"
	"contest-review/pkg/server"
	"contest-review/pkg/task"
	"contest-review/services/ledger"
	"contest-review/services/participant"
	"contest-review/services/ranking"
	"contest-review/services/review"
)

func main() {
	opts := []fx.Option{
		secretmanager.FromEnvironment(),
		config.FromEnvironment(),
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		health.Module,
		httpapi.Module,
		participant.Module,
		ledger.Module,
		ledger.Routes,
		review.Module,
		review.Routes,
		ranking.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})
