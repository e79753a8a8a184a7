package ledger

import (
	"context"
	"time"

	"contest-review/pkg/config"
	"contest-review/pkg/task"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues the nightly chain audit.
type Scheduler struct {
	cron     *cron.Cron
	enqueuer task.Enqueuer
	schedule string
	queue    string
}

func NewScheduler(cfg *config.Config, enqueuer task.Enqueuer) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		enqueuer: enqueuer,
		schedule: cfg.Ledger.VerifySchedule,
		queue:    cfg.Ledger.VerifyQueue,
	}
}

// StartScheduler is invoked by fx when the worker starts.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-s.cron.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func (s *Scheduler) Start() error {
	if s.schedule == "" {
		zap.L().Warn("[Scheduler] ledger verify schedule disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runDaily(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()

	zap.L().Info("[Scheduler] started ledger verify scheduler", zap.String("schedule", s.schedule))
	return nil
}

func (s *Scheduler) runDaily(ctx context.Context) {
	start := time.Now()

	var opts []asynq.Option
	if s.queue != "" {
		opts = append(opts, asynq.Queue(s.queue))
	}

	if _, err := s.enqueuer.Enqueue(ctx, NewVerifyAllChainsTask(), opts...); err != nil {
		zap.L().Error("[Scheduler] failed enqueue ledger verification", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] enqueued ledger verification", zap.Duration("duration", time.Since(start)))
}
