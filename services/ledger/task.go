package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"contest-review/pkg/config"
	"contest-review/pkg/task"
	"contest-review/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type VerifyChainPayload struct {
	UserID string `json:"user_id"`
}

func NewVerifyChainTask(userID string) (*asynq.Task, error) {
	if userID == "" {
		return nil, fmt.Errorf("verify chain task needs a user id")
	}
	payload, err := json.Marshal(VerifyChainPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.LedgerVerifyChain, payload), nil
}

func NewVerifyAllChainsTask() *asynq.Task {
	return asynq.NewTask(taskname.LedgerVerifyAllChain, nil)
}

// TaskHandler runs the chain audit jobs on the worker.
type TaskHandler struct {
	service  *Service
	enqueuer task.Enqueuer
	queue    string
}

type TaskHandlerParams struct {
	fx.In
	Service  *Service
	Enqueuer task.Enqueuer
	Config   *config.Config
}

func NewTaskHandler(p TaskHandlerParams) *TaskHandler {
	return &TaskHandler{
		service:  p.Service,
		enqueuer: p.Enqueuer,
		queue:    p.Config.Ledger.VerifyQueue,
	}
}

func registerTaskHandlers(mux *asynq.ServeMux, h *TaskHandler) {
	mux.HandleFunc(taskname.LedgerVerifyChain, h.HandleVerifyChain)
	mux.HandleFunc(taskname.LedgerVerifyAllChain, h.HandleVerifyAllChains)
}

func (h *TaskHandler) HandleVerifyChain(ctx context.Context, t *asynq.Task) error {
	var p VerifyChainPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.UserID == "" {
		return fmt.Errorf("invalid verify chain payload: %w", asynq.SkipRetry)
	}

	valid, err := h.service.VerifyChain(ctx, p.UserID)
	if err != nil {
		return err
	}

	chainVerifications.WithLabelValues(result(valid)).Inc()
	if !valid {
		zap.L().Error("[Ledger] hash chain verification failed", zap.String("user_id", p.UserID))
		return nil
	}

	zap.L().Debug("[Ledger] hash chain verified", zap.String("user_id", p.UserID))
	return nil
}

// HandleVerifyAllChains fans out one verify task per ledger owner.
func (h *TaskHandler) HandleVerifyAllChains(ctx context.Context, _ *asynq.Task) error {
	users, err := h.service.Users(ctx)
	if err != nil {
		return err
	}

	for _, userID := range users {
		t, err := NewVerifyChainTask(userID)
		if err != nil {
			return err
		}
		if _, err := h.enqueuer.Enqueue(ctx, t, h.options()...); err != nil {
			zap.L().Error("[Ledger] failed to enqueue verify chain", zap.String("user_id", userID), zap.Error(err))
			return err
		}
	}

	zap.L().Info("[Ledger] enqueued chain verification", zap.Int("users", len(users)))
	return nil
}

func (h *TaskHandler) options() []asynq.Option {
	if h.queue == "" {
		return nil
	}
	return []asynq.Option{asynq.Queue(h.queue)}
}

func result(valid bool) string {
	if valid {
		return "valid"
	}
	return "broken"
}
