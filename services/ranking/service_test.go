package ranking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contest-review/services/ledger"
	"contest-review/services/participant"
	"contest-review/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestGetRanking(t *testing.T) {
	db := testutil.NewTestDB(t, append(ledger.Models(), &participant.Participant{})...)
	node := testutil.NewNode(t, 2)

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	people := participant.NewService(participant.ServiceParams{DB: db})
	svc := NewService(ServiceParams{Ledger: ledgerSvc, Participants: people})
	ctx := context.Background()

	require.NoError(t, people.Upsert(ctx, nil, &participant.Participant{
		ID: "u1", Name: "Alice", WalletAddress: "0xabc", UpdatedAt: epoch,
	}))

	for i, p := range []ledger.RecordParams{
		{TaskID: "t1", UserID: "u1", WeekCount: 3, ReviewStatus: 1, Points: 10},
		{TaskID: "t2", UserID: "u2", WeekCount: 3, ReviewStatus: 1, Points: 15},
		{TaskID: "t1", UserID: "u1", WeekCount: 3, ReviewStatus: 1, Points: 20},
		{TaskID: "t3", UserID: "u3", WeekCount: 4, ReviewStatus: 1, Points: 50},
	} {
		p.Now = epoch.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			_, err := ledgerSvc.Record(ctx, tx, p)
			return err
		}))
	}

	week := 3
	board, err := svc.GetRanking(ctx, &week)
	require.NoError(t, err)
	require.Equal(t, 2, board.Total)
	require.Equal(t, 3, *board.WeekCount)

	require.Equal(t, "u1", board.Records[0].UserID)
	require.Equal(t, int64(20), board.Records[0].TotalPoints)
	require.Equal(t, "Alice", board.Records[0].UserName)
	require.Equal(t, "0xabc", board.Records[0].WalletAddress)
	require.Equal(t, 1, board.Records[0].Rank)
	require.Equal(t, "u2", board.Records[1].UserID)
	require.Empty(t, board.Records[1].UserName)

	total, err := ledgerSvc.Total(ctx, "u1", 3)
	require.NoError(t, err)
	require.Equal(t, board.Records[0].TotalPoints, total)

	all, err := svc.GetRanking(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	require.Equal(t, "u3", all.Records[0].UserID)
}

func TestGetRankingConcurrent(t *testing.T) {
	db := testutil.NewTestDB(t, append(ledger.Models(), &participant.Participant{})...)
	node := testutil.NewNode(t, 3)

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{Ledger: ledgerSvc, Participants: participant.NewService(participant.ServiceParams{DB: db})})
	ctx := context.Background()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledgerSvc.Record(ctx, tx, ledger.RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, Points: 3, Now: epoch})
		return err
	}))

	var wg sync.WaitGroup
	boards := make([]*Board, 8)
	for i := range boards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			week := 1
			b, err := svc.GetRanking(ctx, &week)
			if err == nil {
				boards[i] = b
			}
		}(i)
	}
	wg.Wait()

	for _, b := range boards {
		require.NotNil(t, b)
		require.Equal(t, 1, b.Total)
		require.Equal(t, int64(3), b.Records[0].TotalPoints)
	}

	boards[0].Records[0].TotalPoints = 99
	require.Equal(t, int64(3), boards[1].Records[0].TotalPoints)
}

func TestGetRankingSurvivesCancelledCaller(t *testing.T) {
	db := testutil.NewTestDB(t, append(ledger.Models(), &participant.Participant{})...)
	node := testutil.NewNode(t, 4)

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{Ledger: ledgerSvc, Participants: participant.NewService(participant.ServiceParams{DB: db})})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledgerSvc.Record(context.Background(), tx, ledger.RecordParams{TaskID: "t1", UserID: "u1", WeekCount: 1, Points: 4, Now: epoch})
		return err
	}))

	// hold the only connection so the shared computation waits
	hold := db.Begin()
	require.NoError(t, hold.Error)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		week := 1
		_, err := svc.GetRanking(ctx, &week)
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan *Board, 1)
	go func() {
		week := 1
		b, err := svc.GetRanking(context.Background(), &week)
		if err != nil {
			b = nil
		}
		second <- b
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	require.NoError(t, hold.Rollback().Error)
	select {
	case b := <-second:
		require.NotNil(t, b)
		require.Equal(t, int64(4), b.Records[0].TotalPoints)
	case <-time.After(time.Second):
		t.Fatal("shared computation did not finish")
	}
}
