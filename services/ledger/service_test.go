package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"contest-review/pkg/db/option"
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/repository"
	"contest-review/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn func(tx *gorm.DB) repository.Repository[T]
	findFn    func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	createFn  func(ctx context.Context, resource *T) error
	updateFn  func(ctx context.Context, resourceID string, resource any) error
	countFn   func(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query, opts...)
	}
	return 0, nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, Models()...)
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t, 1)}), db
}

func record(t *testing.T, svc *Service, db *gorm.DB, p RecordParams) *Entry {
	t.Helper()

	var entry *Entry
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = svc.Record(context.Background(), tx, p)
		return err
	})
	require.NoError(t, err)
	return entry
}

func TestNewService(t *testing.T) {
	svc, _ := newTestService(t)

	require.NotNil(t, svc.ledger)
	require.NotNil(t, svc.totals)
	require.NotNil(t, svc.heads)
}

func TestRecordFirstReview(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	entry := record(t, svc, db, RecordParams{
		TaskID: "t1", UserID: "u1", WeekCount: 3, TaskType: "original",
		ReviewStatus: 1, Points: 10, Now: base,
	})

	require.Equal(t, int64(10), entry.Points)
	require.Equal(t, int64(10), entry.Delta)
	require.Equal(t, int64(0), *entry.TotalPointsBefore)
	require.Equal(t, int64(10), *entry.TotalPointsAfter)
	require.Equal(t, GenesisHash, entry.PreviousHash)
	require.NotEmpty(t, entry.TransactionID)

	total, err := svc.Total(context.Background(), "u1", 3)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
}

func TestRecordSupersedesPriorEntry(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := record(t, svc, db, RecordParams{
		TaskID: "t1", UserID: "u1", WeekCount: 3, ReviewStatus: 1, Points: 10, Now: base,
	})
	second := record(t, svc, db, RecordParams{
		TaskID: "t1", UserID: "u1", WeekCount: 3, ReviewStatus: 2, Points: 0, Now: base.Add(time.Minute),
	})

	require.Equal(t, int64(0), second.Points)
	require.Equal(t, int64(-10), second.Delta)
	require.Equal(t, int64(10), *second.TotalPointsBefore)
	require.Equal(t, int64(0), *second.TotalPointsAfter)
	require.Equal(t, first.Hash, second.PreviousHash)
	require.True(t, second.Supersedes(first))

	total, err := svc.Total(context.Background(), "u1", 3)
	require.NoError(t, err)
	require.Equal(t, int64(0), total)

	// entries are never rewritten
	all, err := svc.Entries(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(10), all[0].Points)
}

func TestRecordRequiresTransaction(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Record(context.Background(), nil, RecordParams{TaskID: "t1", UserID: "u1"})
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusInternal))
}

func TestRecordKeepsTotalsPerWeek(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 7, Now: base})
	e := record(t, svc, db, RecordParams{TaskID: "t2", UserID: "u1", WeekCount: 2, ReviewStatus: 1, Points: 5, Now: base.Add(time.Second)})

	require.Equal(t, int64(0), *e.TotalPointsBefore)
	require.Equal(t, int64(5), *e.TotalPointsAfter)

	w1, err := svc.Total(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Equal(t, int64(7), w1)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		record(t, svc, db, RecordParams{
			TaskID: id, UserID: "u1", WeekCount: 4, ReviewStatus: 1, Points: int64(i + 1),
			Now: base.Add(time.Duration(i) * time.Minute),
		})
	}
	record(t, svc, db, RecordParams{TaskID: "t9", UserID: "u2", WeekCount: 5, ReviewStatus: 1, Points: 1, Now: base})

	week := 4
	res, err := svc.List(context.Background(), LogFilter{
		WeekCount:  &week,
		Pagination: pagination.Pagination{Page: 1, PageSize: 2},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)
	require.Len(t, res.Records, 2)
	require.Equal(t, "t3", res.Records[0].TaskID)
	require.Equal(t, "t2", res.Records[1].TaskID)

	res, err = svc.ListForUser(context.Background(), "u2", nil, pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "t9", res.Records[0].TaskID)

	res, err = svc.ListForWeek(context.Background(), 4, pagination.Pagination{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)
	require.Len(t, res.Records, 1)
	require.Equal(t, "t1", res.Records[0].TaskID)
}

func TestListSortsByAllowedField(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, p := range []int64{4, 9, 1} {
		record(t, svc, db, RecordParams{
			TaskID: fmt.Sprintf("t%d", i+1), UserID: "u1", WeekCount: 4, ReviewStatus: 1, Points: p,
			Now: base.Add(time.Duration(i) * time.Minute),
		})
	}
	page := pagination.Pagination{Page: 1, PageSize: 10}

	res, err := svc.List(context.Background(), LogFilter{SortBy: "points", Pagination: page})
	require.NoError(t, err)
	require.Equal(t, []int64{9, 4, 1}, pointsOf(res.Records))

	res, err = svc.List(context.Background(), LogFilter{SortBy: "points", Ascending: true, Pagination: page})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 4, 9}, pointsOf(res.Records))

	// unknown columns fall back to create_time
	res, err = svc.List(context.Background(), LogFilter{SortBy: "hash", Pagination: page})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 9, 4}, pointsOf(res.Records))
}

func pointsOf(entries []*Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Points)
	}
	return out
}

func TestRecordConcurrentWeeksShareOneChain(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			return db.Transaction(func(tx *gorm.DB) error {
				_, err := svc.Record(context.Background(), tx, RecordParams{
					TaskID: fmt.Sprintf("t%d", i), UserID: "u1", WeekCount: i%2 + 1,
					ReviewStatus: 1, Points: 2, Now: base.Add(time.Duration(i) * time.Second),
				})
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	ok, err := svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)

	var head ChainHead
	require.NoError(t, db.Where("user_id = ?", "u1").First(&head).Error)
	require.Equal(t, int64(6), head.Length)

	for _, week := range []int{1, 2} {
		total, err := svc.Total(context.Background(), "u1", week)
		require.NoError(t, err)
		require.Equal(t, int64(6), total)
	}
}

func TestRecordReusesExistingWeeklyTotal(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// a concurrent first review already inserted the row
	require.NoError(t, db.Create(&WeeklyTotal{ID: "w1", UserID: "u1", WeekCount: 3, Total: 4}).Error)

	e := record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 3, ReviewStatus: 1, Points: 6, Now: base})
	require.Equal(t, int64(4), *e.TotalPointsBefore)
	require.Equal(t, int64(10), *e.TotalPointsAfter)

	var rows int64
	require.NoError(t, db.Model(&WeeklyTotal{}).Where("user_id = ?", "u1").Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestRecordContinuesChainWithoutHeadRow(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 5, Now: base})
	require.NoError(t, db.Where("user_id = ?", "u1").Delete(&ChainHead{}).Error)

	second := record(t, svc, db, RecordParams{TaskID: "t2", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 5, Now: base.Add(time.Second)})
	require.Equal(t, first.Hash, second.PreviousHash)

	ok, err := svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRecordKeysPriorEntryOnTask(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 8, Now: base})

	// a blank task id must not pick up t1 as the superseded entry
	e := record(t, svc, db, RecordParams{TaskID: "", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 3, Now: base.Add(time.Second)})
	require.Equal(t, int64(3), e.Delta)
	require.NotContains(t, string(e.Metadata), "supersedes")
}

func TestVerifyChainAfterRecord(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 5, Now: base})
	second := record(t, svc, db, RecordParams{TaskID: "t2", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 6, Now: base.Add(time.Second)})

	ok, err := svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Model(&Entry{}).Where("id = ?", second.ID).Update("points", 60).Error)

	ok, err = svc.VerifyChain(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyChainValid(t *testing.T) {
	first := &Entry{
		ID:           "entry-1",
		TaskID:       "t1",
		UserID:       "member",
		Points:       100,
		PreviousHash: GenesisHash,
		CreateTime:   time.Now(),
	}
	first.Hash = first.GenerateHash()

	second := &Entry{
		ID:           "entry-2",
		TaskID:       "t1",
		UserID:       "member",
		Points:       50,
		Delta:        -50,
		PreviousHash: first.Hash,
		CreateTime:   time.Now().Add(time.Minute),
	}
	second.Hash = second.GenerateHash()

	svc := &Service{
		ledger: &repoMock[Entry]{
			findFn: func(ctx context.Context, _ *Entry, opts ...option.QueryOption) ([]*Entry, error) {
				return []*Entry{first, second}, nil
			},
		},
	}

	ok, err := svc.VerifyChain(context.Background(), "member")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyChainInvalid(t *testing.T) {
	first := &Entry{
		ID:           "entry-1",
		UserID:       "member",
		Points:       100,
		PreviousHash: GenesisHash,
		CreateTime:   time.Now(),
	}
	first.Hash = first.GenerateHash()

	second := &Entry{
		ID:           "entry-2",
		UserID:       "member",
		Points:       50,
		PreviousHash: first.Hash,
		Hash:         "invalid",
		CreateTime:   time.Now().Add(time.Minute),
	}

	svc := &Service{
		ledger: &repoMock[Entry]{
			findFn: func(ctx context.Context, _ *Entry, opts ...option.QueryOption) ([]*Entry, error) {
				return []*Entry{first, second}, nil
			},
		},
	}

	ok, err := svc.VerifyChain(context.Background(), "member")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyChainQueryError(t *testing.T) {
	svc := &Service{
		ledger: &repoMock[Entry]{
			findFn: func(ctx context.Context, _ *Entry, opts ...option.QueryOption) ([]*Entry, error) {
				return nil, errors.New("db down")
			},
		},
	}

	_, err := svc.VerifyChain(context.Background(), "member")
	require.Error(t, err)
}

func TestNewVerifyChainTaskRequiresUser(t *testing.T) {
	_, err := NewVerifyChainTask("")
	require.Error(t, err)

	task, err := NewVerifyChainTask("u1")
	require.NoError(t, err)
	require.JSONEq(t, `{"user_id":"u1"}`, string(task.Payload()))
}

func TestHandleVerifyChainRejectsBadPayload(t *testing.T) {
	h := &TaskHandler{}

	err := h.HandleVerifyChain(context.Background(), asynq.NewTask("ledger:verify_chain", []byte("{")))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleVerifyAllChainsFansOut(t *testing.T) {
	svc, db := newTestService(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	record(t, svc, db, RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, ReviewStatus: 1, Points: 5, Now: base})
	record(t, svc, db, RecordParams{TaskID: "t2", UserID: "u2", WeekCount: 1, ReviewStatus: 1, Points: 6, Now: base})

	enq := &testutil.Enqueuer{}
	h := &TaskHandler{service: svc, enqueuer: enq, queue: "low"}

	require.NoError(t, h.HandleVerifyAllChains(context.Background(), NewVerifyAllChainsTask()))
	require.Len(t, enq.Tasks(), 2)

	for _, task := range enq.Tasks() {
		require.NoError(t, h.HandleVerifyChain(context.Background(), task))
	}
}

func TestSchedulerEnqueuesAudit(t *testing.T) {
	enq := &testutil.Enqueuer{}
	s := &Scheduler{enqueuer: enq, queue: "low"}

	s.runDaily(context.Background())

	require.Len(t, enq.Tasks(), 1)
	require.Equal(t, "ledger:verify_all_chains", enq.Tasks()[0].Type())
}
