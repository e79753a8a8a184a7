package ledger

import (
	"context"
	"encoding/json"
	"time"

	"contest-review/pkg/db/option"
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/logger"
	"contest-review/pkg/repository"
	"contest-review/pkg/sequence"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator
	now  func() time.Time

	ledger repository.Repository[Entry]
	totals repository.Repository[WeeklyTotal]
	heads  repository.Repository[ChainHead]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Seq  sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		seq:  p.Seq,
		now:  time.Now,

		ledger: repository.ProvideStore[Entry](p.DB),
		totals: repository.ProvideStore[WeeklyTotal](p.DB),
		heads:  repository.ProvideStore[ChainHead](p.DB),
	}
}

// RecordParams describes one committed review transition.
type RecordParams struct {
	TaskID        string
	UserID        string
	WeekCount     int
	TaskType      string
	ReviewStatus  int
	ReviewMessage *string
	Points        int64
	VerifierID    *string
	Metadata      map[string]any
	Now           time.Time
}

// LogFilter selects ledger entries for the points log. SortBy must be one
// of LogSortFields; it defaults to create_time.
type LogFilter struct {
	UserID    string
	TaskID    string
	WeekCount *int
	SortBy    string
	Ascending bool
	pagination.Pagination
}

// LogSortFields are the columns the points log can be ordered by.
var LogSortFields = map[string]bool{
	"create_time": true,
	"points":      true,
	"delta":       true,
	"week_count":  true,
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("create_time DESC").Order("id DESC")
}

func oldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("create_time ASC").Order("id ASC")
}

func weekIs(week int) option.QueryOption {
	return option.Where("week_count = ?", week)
}

func userIs(userID string) option.QueryOption {
	return option.Where("user_id = ?", userID)
}

func logOrder(f LogFilter) []option.QueryOption {
	dir := "desc"
	if f.Ascending {
		dir = "asc"
	}
	field := f.SortBy
	if !LogSortFields[field] {
		field = "create_time"
	}
	return []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: field, OrderBy: dir, Allow: LogSortFields}),
		option.WithSortBy(option.QuerySortBy{OrderBy: dir}),
	}
}

// Record appends the entry for a committed transition and moves the weekly
// running total by its delta. It must run inside the caller's transaction so
// the task update, the entry and the total commit together. Appends for one
// user wait on that user's ChainHead row.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, p RecordParams) (*Entry, error) {
	if tx == nil {
		return nil, errutil.Internal("ledger record requires a transaction", nil)
	}

	log := logger.FromContext(ctx).With(zap.String("task_id", p.TaskID), zap.String("user_id", p.UserID))

	ledgerTx := s.ledger.WithTrx(tx)

	now := p.Now
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC().Truncate(time.Microsecond)

	head, err := s.lockChainHead(ctx, tx, p.UserID, now)
	if err != nil {
		log.Error("failed to lock chain head", zap.Error(err))
		return nil, err
	}

	prior, err := ledgerTx.FindOne(ctx, &Entry{}, option.Where("task_id = ?", p.TaskID), newestFirst)
	if err != nil {
		log.Error("failed to query superseded entry", zap.Error(err))
		return nil, err
	}

	delta := p.Points
	if prior != nil {
		delta -= prior.Points
	}

	total, err := s.lockWeeklyTotal(ctx, tx, p.UserID, p.WeekCount, now)
	if err != nil {
		log.Error("failed to lock weekly total", zap.Error(err))
		return nil, err
	}
	before := total.Total
	after := before + delta

	previousHash := head.Hash
	if head.EntryID == "" {
		// chains written before the head row existed
		lastEntry, err := ledgerTx.FindOne(ctx, &Entry{}, userIs(p.UserID), newestFirst)
		if err != nil {
			log.Error("failed to query last chain entry", zap.Error(err))
			return nil, err
		}
		if lastEntry != nil {
			previousHash = lastEntry.Hash
		}
	}

	transactionID, err := s.transactionID(ctx)
	if err != nil {
		log.Error("failed to generate transactionId", zap.Error(err))
		return nil, err
	}

	meta := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	if prior != nil {
		meta["supersedes"] = prior.ID
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                s.node.Generate().String(),
		TaskID:            p.TaskID,
		UserID:            p.UserID,
		WeekCount:         p.WeekCount,
		TaskType:          p.TaskType,
		ReviewStatus:      p.ReviewStatus,
		ReviewMessage:     p.ReviewMessage,
		Points:            p.Points,
		Delta:             delta,
		TotalPointsBefore: &before,
		TotalPointsAfter:  &after,
		VerifierID:        p.VerifierID,
		TransactionID:     transactionID,
		PreviousHash:      previousHash,
		Metadata:          datatypes.JSON(metaBytes),
		CreateTime:        now,
	}
	entry.Hash = entry.GenerateHash()

	if err := ledgerTx.Create(ctx, entry); err != nil {
		log.Error("failed to append ledger entry", zap.Error(err))
		return nil, err
	}

	if err := s.totals.WithTrx(tx).Update(ctx, total.ID, map[string]any{
		"total":      after,
		"updated_at": now,
	}); err != nil {
		log.Error("failed to update weekly total", zap.Error(err))
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&ChainHead{}).Where("user_id = ?", p.UserID).Updates(map[string]any{
		"entry_id":     entry.ID,
		"hash":         entry.Hash,
		"chain_length": gorm.Expr("chain_length + 1"),
		"updated_at":   now,
	}).Error; err != nil {
		log.Error("failed to advance chain head", zap.Error(err))
		return nil, err
	}

	log.Info("ledger entry recorded",
		zap.String("entry_id", entry.ID),
		zap.Int64("points", entry.Points),
		zap.Int64("delta", entry.Delta),
		zap.Int64("total_after", after),
	)

	return entry, nil
}

// lockChainHead makes sure the head row of userID exists and locks it. The
// insert is a no-op when another transaction created the row first.
func (s *Service) lockChainHead(ctx context.Context, tx *gorm.DB, userID string, now time.Time) (*ChainHead, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ChainHead{
		UserID:    userID,
		Hash:      GenesisHash,
		UpdatedAt: now,
	}).Error
	if err != nil {
		return nil, err
	}

	head, err := s.heads.WithTrx(tx).FindOne(ctx, &ChainHead{}, userIs(userID), option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, errutil.Internal("chain head missing after upsert", nil)
	}
	return head, nil
}

// lockWeeklyTotal creates the (user, week) total at zero if it is missing
// and returns it locked.
func (s *Service) lockWeeklyTotal(ctx context.Context, tx *gorm.DB, userID string, week int, now time.Time) (*WeeklyTotal, error) {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&WeeklyTotal{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		WeekCount: week,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
	if err != nil {
		return nil, err
	}

	total, err := s.totals.WithTrx(tx).FindOne(ctx, &WeeklyTotal{}, userIs(userID), weekIs(week), option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if total == nil {
		return nil, errutil.Internal("weekly total missing after upsert", nil)
	}
	return total, nil
}

func (s *Service) transactionID(ctx context.Context) (string, error) {
	if s.seq == nil {
		return GenerateTransactionID()
	}
	return s.seq.NextLedgerCode(ctx)
}

// List returns one page of entries, newest first unless f.Ascending. Ties on
// the sort column are broken by id.
func (s *Service) List(ctx context.Context, f LogFilter) (*pagination.Result[Entry], error) {
	query := &Entry{UserID: f.UserID, TaskID: f.TaskID}

	var filters []option.QueryOption
	if f.WeekCount != nil {
		filters = append(filters, weekIs(*f.WeekCount))
	}

	total, err := s.ledger.Count(ctx, query, filters...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to count ledger entries", zap.Error(err))
		return nil, err
	}

	opts := append(filters, logOrder(f)...)
	records, err := s.ledger.Find(ctx, query, append(opts, option.ApplyPagination(f.Pagination))...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query ledger entries", zap.Error(err))
		return nil, err
	}

	return &pagination.Result[Entry]{Records: records, Total: total}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, week *int, page pagination.Pagination) (*pagination.Result[Entry], error) {
	return s.List(ctx, LogFilter{UserID: userID, WeekCount: week, Pagination: page})
}

func (s *Service) ListForWeek(ctx context.Context, week int, page pagination.Pagination) (*pagination.Result[Entry], error) {
	return s.List(ctx, LogFilter{WeekCount: &week, Pagination: page})
}

// Entries returns every entry, oldest first, optionally limited to one week.
func (s *Service) Entries(ctx context.Context, week *int) ([]*Entry, error) {
	var filters []option.QueryOption
	if week != nil {
		filters = append(filters, weekIs(*week))
	}
	return s.ledger.Find(ctx, &Entry{}, append(filters, oldestFirst)...)
}

// Total returns the running total of userID for week.
func (s *Service) Total(ctx context.Context, userID string, week int) (int64, error) {
	total, err := s.totals.FindOne(ctx, &WeeklyTotal{}, userIs(userID), weekIs(week))
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return total.Total, nil
}

// Users returns every user that owns at least one entry.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&Entry{}).Distinct("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// VerifyChain recomputes the hash chain of userID.
func (s *Service) VerifyChain(ctx context.Context, userID string) (bool, error) {
	entries, err := s.ledger.Find(ctx, &Entry{}, userIs(userID), oldestFirst)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query Find entries", zap.Error(err))
		return false, err
	}

	lastHash := GenesisHash
	for _, entry := range entries {
		if entry.PreviousHash != lastHash || entry.Hash != entry.GenerateHash() {
			logger.FromContext(ctx).Warn("ledger chain broken",
				zap.String("user_id", userID),
				zap.String("entry_id", entry.ID),
			)
			return false, nil
		}
		lastHash = entry.Hash
	}

	return true, nil
}
