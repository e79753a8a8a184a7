package main

import (
	"log"

	"go.uber.org/fx"

	"contest-review/pkg/config"
	"contest-review/pkg/db"
	"contest-review/pkg/gen"
	"contest-review/pkg/logger"
	"contest-review/pkg/otelcol"
	"contest-review/pkg/secretmanager"
	"contest-review/pkg/task"
	"contest-review/services/ledger"
)

func main() {
	opts := []fx.Option{
		secretmanager.FromEnvironment(),
		config.FromEnvironment(),
		logger.Module,
		otelcol.Module,
		db.Module,
		gen.Module,
		task.Client,
		task.Server,
		ledger.Module,
		ledger.Worker,
		fx.NopLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}
