package review

import (
	"context"
	"strings"
	"time"

	"contest-review/pkg/config"
	"contest-review/pkg/db/option"
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/logger"
	"contest-review/pkg/repository"
	"contest-review/pkg/task"
	"contest-review/services/ledger"
	"contest-review/services/participant"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time

	tasks        repository.Repository[TaskRecord]
	ledger       *ledger.Service
	participants *participant.Service
	policy       *PointsPolicy

	enqueuer    task.Enqueuer
	verifyQueue string
}

type ServiceParams struct {
	fx.In
	DB           *gorm.DB
	Node         *snowflake.Node
	Ledger       *ledger.Service
	Participants *participant.Service
	Policy       *PointsPolicy
	Enqueuer     task.Enqueuer  `optional:"true"`
	Config       *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	policy := p.Policy
	if policy == nil {
		policy = DefaultPointsPolicy()
	}

	s := &Service{
		db:   p.DB,
		node: p.Node,
		now:  time.Now,

		tasks:        repository.ProvideStore[TaskRecord](p.DB),
		ledger:       p.Ledger,
		participants: p.Participants,
		policy:       policy,
		enqueuer:     p.Enqueuer,
	}
	if p.Config != nil {
		s.verifyQueue = p.Config.Ledger.VerifyQueue
	}
	return s
}

// SubmitTaskRequest is the submission flow's input. Evidence upload happens
// elsewhere; only the URLs arrive here.
type SubmitTaskRequest struct {
	UserID        string   `json:"userId"`
	UserName      string   `json:"userName"`
	UserEmail     string   `json:"userEmail"`
	TwitterHandle string   `json:"twitterHandle"`
	DiscordHandle string   `json:"discordHandle"`
	WalletAddress string   `json:"walletAddress"`
	TaskType      TaskType `json:"taskType"`
	WeekCount     int      `json:"weekCount"`
	DateRange     string   `json:"dateRange"`
	ContentLink   *string  `json:"contentLink"`
	Screenshot    []string `json:"screenshot"`
	BrowseNum     *int64   `json:"browseNum"`
}

func (r SubmitTaskRequest) validate() error {
	var details []errutil.Detail
	if strings.TrimSpace(r.UserID) == "" {
		details = append(details, errutil.Detail{Field: "userId", Message: "required"})
	}
	if !r.TaskType.Valid() {
		details = append(details, errutil.Detail{Field: "taskType", Message: "unknown task type"})
	}
	if r.WeekCount < 1 {
		details = append(details, errutil.Detail{Field: "weekCount", Message: "must be >= 1"})
	}
	if len(r.Screenshot) == 0 {
		details = append(details, errutil.Detail{Field: "screenshot", Message: "at least one screenshot is required"})
	}
	if r.BrowseNum != nil && *r.BrowseNum < 0 {
		details = append(details, errutil.Detail{Field: "browseNum", Message: "must be >= 0"})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid task submission", nil, errutil.WithDetails(details...))
	}
	return nil
}

// SubmitTask stores a new Pending record and refreshes the submitter's
// display fields.
func (s *Service) SubmitTask(ctx context.Context, req SubmitTaskRequest) (*TaskRecord, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &TaskRecord{
		ID:           s.node.Generate().String(),
		UserID:       req.UserID,
		UserName:     req.UserName,
		UserEmail:    req.UserEmail,
		TaskType:     req.TaskType,
		WeekCount:    req.WeekCount,
		DateRange:    req.DateRange,
		ContentLink:  req.ContentLink,
		Screenshot:   strings.Join(req.Screenshot, ","),
		ReviewStatus: StatusPending,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if req.TaskType == TaskTypeOriginal {
		record.BrowseNum = req.BrowseNum
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tasks.WithTrx(tx).Create(ctx, record); err != nil {
			return err
		}
		return s.participants.Upsert(ctx, tx, &participant.Participant{
			ID:            req.UserID,
			Name:          req.UserName,
			Email:         req.UserEmail,
			TwitterHandle: req.TwitterHandle,
			DiscordHandle: req.DiscordHandle,
			WalletAddress: req.WalletAddress,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to submit task", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, errutil.Internal("failed to submit task", err)
	}

	tasksSubmitted.WithLabelValues(string(req.TaskType)).Inc()
	return record, nil
}

// byID keys a lookup on the primary key. A struct condition would drop an
// empty id and match any row.
func byID(id string) option.QueryOption {
	return option.ApplyOperator(option.Condition{Field: "id", Operator: option.EQ, Value: id})
}

func (s *Service) GetTask(ctx context.Context, id string) (*TaskRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errutil.NotFound("task not found", nil)
	}

	record, err := s.tasks.FindOne(ctx, &TaskRecord{}, byID(id))
	if err != nil {
		logger.FromContext(ctx).Error("failed to query task", zap.String("task_id", id), zap.Error(err))
		return nil, errutil.Internal("failed to query task", err)
	}
	if record == nil {
		return nil, errutil.NotFound("task not found", nil)
	}
	return record, nil
}

// ListFilter selects tasks for the dashboard lists. Reviewed selects every
// non-pending record when ReviewStatus is nil.
type ListFilter struct {
	WeekCount    *int
	ReviewStatus *ReviewStatus
	TaskType     TaskType
	UserID       string
	Reviewed     bool
	pagination.Pagination
}

func (s *Service) ListTasks(ctx context.Context, f ListFilter) (*pagination.Result[TaskRecord], error) {
	query := &TaskRecord{TaskType: f.TaskType, UserID: f.UserID}

	var filters []option.QueryOption
	if f.WeekCount != nil {
		filters = append(filters, option.Where("week_count = ?", *f.WeekCount))
	}
	switch {
	case f.ReviewStatus != nil:
		filters = append(filters, option.Where("review_status = ?", *f.ReviewStatus))
	case f.Reviewed:
		filters = append(filters, option.ApplyOperator(option.Condition{
			Field:    "review_status",
			Operator: option.NEQ,
			Value:    StatusPending,
		}))
	}

	total, err := s.tasks.Count(ctx, query, filters...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to count tasks", zap.Error(err))
		return nil, errutil.Internal("failed to list tasks", err)
	}

	records, err := s.tasks.Find(ctx, query, append(filters,
		func(db *gorm.DB) *gorm.DB { return db.Order("create_time DESC").Order("id DESC") },
		option.ApplyPagination(f.Pagination),
	)...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query tasks", zap.Error(err))
		return nil, errutil.Internal("failed to list tasks", err)
	}

	return &pagination.Result[TaskRecord]{Records: records, Total: total}, nil
}

// SuggestPoints previews the award for a stored task.
func (s *Service) SuggestPoints(ctx context.Context, id string) (int64, error) {
	record, err := s.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.policy.Suggest(record), nil
}

// ReviewRequest is one review or modify action by an admin.
type ReviewRequest struct {
	TaskID       string
	Decision     Decision
	VerifierID   string
	VerifierName string
	Intent       Intent
}

// Review commits a decision. The task update, the ledger entry and the
// weekly total move in one transaction with the task row locked.
func (s *Service) Review(ctx context.Context, req ReviewRequest) (*TaskRecord, error) {
	points, err := ValidateDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.VerifierID) == "" {
		return nil, errutil.ValidationFailed("verifier is required", nil,
			errutil.WithDetails(errutil.Detail{Field: "verifierId", Message: "required"}))
	}
	if strings.TrimSpace(req.TaskID) == "" {
		return nil, errutil.NotFound("task not found", nil)
	}

	log := logger.FromContext(ctx).With(
		zap.String("task_id", req.TaskID),
		zap.String("verifier_id", req.VerifierID),
		zap.String("intent", req.Intent.String()),
	)

	var (
		record *TaskRecord
		entry  *ledger.Entry
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.tasks.WithTrx(tx).FindOne(ctx, &TaskRecord{}, byID(req.TaskID), option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if current == nil {
			return errutil.NotFound("task not found", nil)
		}

		if err := CheckTransition(current.ReviewStatus, req.Intent); err != nil {
			return err
		}

		now := s.now().UTC()
		message := current.ReviewMessage
		if req.Decision.Message != nil {
			message = req.Decision.Message
		}
		verifierID := req.VerifierID
		verifierName := req.VerifierName

		entry, err = s.ledger.Record(ctx, tx, ledger.RecordParams{
			TaskID:        current.ID,
			UserID:        current.UserID,
			WeekCount:     current.WeekCount,
			TaskType:      string(current.TaskType),
			ReviewStatus:  int(req.Decision.Status),
			ReviewMessage: message,
			Points:        points,
			VerifierID:    &verifierID,
			Metadata: map[string]any{
				"intent":          req.Intent.String(),
				"previous_status": current.ReviewStatus.String(),
				"verifier_name":   verifierName,
			},
			Now: now,
		})
		if err != nil {
			return err
		}

		// map updates so zero points are written
		if err := s.tasks.WithTrx(tx).Update(ctx, current.ID, map[string]any{
			"review_status":  req.Decision.Status,
			"points":         points,
			"review_message": message,
			"verifier_id":    verifierID,
			"verifier_name":  verifierName,
			"update_time":    now,
		}); err != nil {
			return err
		}

		current.ReviewStatus = req.Decision.Status
		current.Points = points
		current.ReviewMessage = message
		current.VerifierID = &verifierID
		current.VerifierName = &verifierName
		current.UpdateTime = now
		record = current
		return nil
	})
	if err != nil {
		if errutil.StatusOf(err) != errutil.StatusUnknown {
			log.Warn("review rejected", zap.Error(err))
			return nil, err
		}
		log.Error("failed to commit review", zap.Error(err))
		return nil, errutil.Internal("failed to commit review", err)
	}

	reviewsCommitted.WithLabelValues(record.ReviewStatus.String(), req.Intent.String()).Inc()
	log.Info("review committed",
		zap.String("status", record.ReviewStatus.String()),
		zap.Int64("points", record.Points),
		zap.String("ledger_entry_id", entry.ID),
	)

	s.enqueueVerify(ctx, record.UserID)
	return record, nil
}

func (s *Service) enqueueVerify(ctx context.Context, userID string) {
	if s.enqueuer == nil {
		return
	}

	t, err := ledger.NewVerifyChainTask(userID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to build chain verification", zap.String("user_id", userID), zap.Error(err))
		return
	}

	var opts []asynq.Option
	if s.verifyQueue != "" {
		opts = append(opts, asynq.Queue(s.verifyQueue))
	}
	if _, err := s.enqueuer.Enqueue(context.WithoutCancel(ctx), t, opts...); err != nil {
		logger.FromContext(ctx).Warn("failed to enqueue chain verification", zap.String("user_id", userID), zap.Error(err))
	}
}
