package dashboard

import (
	"context"
	"slices"
	"sync"

	"contest-review/pkg/client"
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/logger"
	"contest-review/services/ledger"
	"contest-review/services/ranking"
	"contest-review/services/review"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=controller.go -destination=mock/backend.go -package=mock

// Backend is the remote review API the dashboard drives.
type Backend interface {
	ListTasks(ctx context.Context, f client.TaskFilter) (*pagination.Result[review.TaskRecord], error)
	GetTaskDetail(ctx context.Context, id string) (*review.TaskRecord, error)
	ReviewTask(ctx context.Context, req client.ReviewTaskRequest) (bool, error)
	ListPointsLog(ctx context.Context, f client.PointsLogFilter) (*pagination.Result[ledger.Entry], error)
	GetRanking(ctx context.Context, week *int) (*ranking.Board, error)
}

var Module = fx.Module("dashboard",
	fx.Provide(
		func(c *client.ReviewClient) Backend { return c },
		NewController,
	),
)

type Mode int

const (
	ModePending Mode = iota
	ModeReviewed
)

// Page is what the dashboard renders for one list view. A failed load has
// no records and a Banner instead.
type Page struct {
	Mode    Mode
	Query   ListQuery
	Records []*review.TaskRecord
	Total   int64
	Err     error
	Banner  string
}

// Controller holds the state of one admin dashboard.
type Controller struct {
	backend Backend

	mu       sync.Mutex
	current  *Page
	inflight map[string]struct{}
}

func NewController(backend Backend) *Controller {
	return &Controller{
		backend:  backend,
		inflight: make(map[string]struct{}),
	}
}

// ListPending loads the pending view for q. The status filter of q is
// ignored.
func (c *Controller) ListPending(ctx context.Context, q ListQuery) Page {
	return c.show(c.load(ctx, ModePending, q))
}

// ListReviewed loads reviewed records, narrowed to q's status when it is
// approved or rejected.
func (c *Controller) ListReviewed(ctx context.Context, q ListQuery) Page {
	return c.show(c.load(ctx, ModeReviewed, q))
}

// Current returns the view last shown.
func (c *Controller) Current() (Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Page{}, false
	}
	return clonePage(*c.current), true
}

// Submitting reports whether a review of taskID is in flight.
func (c *Controller) Submitting(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[taskID]
	return ok
}

// SubmitReview validates d locally, sends it and reloads the current view
// on success. The shown records are never changed before the backend
// confirms. Once sent the request is not cancelled with ctx.
func (c *Controller) SubmitReview(ctx context.Context, taskID string, d review.Decision, intent review.Intent) error {
	if _, err := review.ValidateDecision(d); err != nil {
		return err
	}

	if !c.acquire(taskID) {
		return errutil.Conflict("a review of this task is already being submitted", nil)
	}
	defer c.release(taskID)

	sendCtx := context.WithoutCancel(ctx)
	log := logger.FromContext(ctx).With(zap.String("task_id", taskID))

	ok, err := c.backend.ReviewTask(sendCtx, client.ReviewTaskRequest{
		TaskID:        taskID,
		ReviewStatus:  d.Status,
		ReviewMessage: d.Message,
		Points:        d.Points,
		Modify:        intent == review.IntentModify,
	})
	if err == nil && !ok {
		err = errutil.New(errutil.StatusUnknown, "review was not accepted")
	}
	if err != nil {
		log.Warn("review submission failed", zap.Error(err))
		if errutil.Is(err, errutil.StatusNotFound) {
			c.reload(sendCtx)
		}
		c.setBanner(errutil.Message(err))
		return err
	}

	c.reload(sendCtx)
	return nil
}

// Refresh reloads the pending and reviewed views for q concurrently and
// shows the view that was current before.
func (c *Controller) Refresh(ctx context.Context, q ListQuery) (pending, reviewed Page) {
	var g errgroup.Group
	g.Go(func() error {
		pending = c.load(ctx, ModePending, q)
		return pending.Err
	})
	g.Go(func() error {
		reviewed = c.load(ctx, ModeReviewed, q)
		return reviewed.Err
	})
	_ = g.Wait()

	mode := ModePending
	if cur, ok := c.Current(); ok {
		mode = cur.Mode
	}
	if mode == ModeReviewed {
		c.show(reviewed)
	} else {
		c.show(pending)
	}
	return pending, reviewed
}

// SuggestPoints previews the award for task without any remote call.
func (c *Controller) SuggestPoints(task *review.TaskRecord) int64 {
	return review.ComputeSuggestedPoints(task)
}

// PreviewRanking ranks a local snapshot of ledger entries.
func (c *Controller) PreviewRanking(entries []*ledger.Entry, week *int) []ranking.Entry {
	return slices.Collect(ranking.Rank(entries, week))
}

func (c *Controller) load(ctx context.Context, mode Mode, q ListQuery) Page {
	f := client.TaskFilter{WeekCount: q.weekPtr(), Pagination: q.Pagination()}
	switch mode {
	case ModePending:
		st := review.StatusPending
		f.ReviewStatus = &st
	case ModeReviewed:
		if st, ok := q.Status(); ok && st.Terminal() {
			f.ReviewStatus = &st
		} else {
			f.Reviewed = true
		}
	}

	page := Page{Mode: mode, Query: q}
	res, err := c.backend.ListTasks(ctx, f)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to load task list", zap.Error(err))
		page.Err = err
		page.Banner = errutil.Message(err)
		return page
	}

	page.Records = res.Records
	page.Total = res.Total
	return page
}

func (c *Controller) reload(ctx context.Context) {
	cur, ok := c.Current()
	if !ok {
		return
	}
	c.show(c.load(ctx, cur.Mode, cur.Query))
}

func (c *Controller) show(p Page) Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := clonePage(p)
	c.current = &cp
	return p
}

func (c *Controller) setBanner(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Banner = msg
	}
}

func (c *Controller) acquire(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[taskID]; busy {
		return false
	}
	c.inflight[taskID] = struct{}{}
	return true
}

func (c *Controller) release(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, taskID)
}

func clonePage(p Page) Page {
	p.Records = slices.Clone(p.Records)
	return p
}
