package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contest-review/pkg/config"
	"contest-review/pkg/db"
	"contest-review/pkg/logger"
	"contest-review/pkg/secretmanager"
	"contest-review/services/ledger"
	"contest-review/services/participant"
	"contest-review/services/review"
)

func main() {
	opts := []fx.Option{
		secretmanager.FromEnvironment(),
		config.FromEnvironment(),
		logger.Module,
		db.Module,
		fx.Invoke(migrate),
		fx.NopLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	_ = app.Stop(context.Background())
}

func migrate(db *gorm.DB) error {
	models := append([]any{&review.TaskRecord{}, &participant.Participant{}}, ledger.Models()...)

	if err := db.AutoMigrate(models...); err != nil {
		zap.L().Error("failed to migrate schema", zap.Error(err))
		return err
	}

	zap.L().Info("schema migrated", zap.Int("models", len(models)))
	return nil
}
