package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer records enqueued tasks instead of sending them to redis.
type Enqueuer struct {
	Err error

	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *Enqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.Err != nil {
		return nil, e.Err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: task.Type(), Type: task.Type(), Payload: task.Payload()}, nil
}

func (e *Enqueuer) Tasks() []*asynq.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*asynq.Task(nil), e.tasks...)
}

// StepClock returns a clock that advances by step on every call, starting
// one step after start.
func StepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}
