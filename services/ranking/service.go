package ranking

import (
	"context"
	"slices"
	"strconv"

	"contest-review/pkg/errutil"
	"contest-review/pkg/logger"
	"contest-review/services/ledger"
	"contest-review/services/participant"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Board is the getRanking payload.
type Board struct {
	Records   []Entry `json:"records"`
	WeekCount *int    `json:"weekCount"`
	Total     int     `json:"total"`
}

type Service struct {
	ledger       *ledger.Service
	participants *participant.Service
	group        singleflight.Group
}

type ServiceParams struct {
	fx.In
	Ledger       *ledger.Service
	Participants *participant.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		ledger:       p.Ledger,
		participants: p.Participants,
	}
}

// GetRanking computes the board from the ledger. Concurrent calls for the
// same week share one computation, which outlives a caller that gives up.
func (s *Service) GetRanking(ctx context.Context, week *int) (*Board, error) {
	key := "all"
	if week != nil {
		key = "week:" + strconv.Itoa(*week)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), week)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, errutil.Timeout("ranking request cancelled", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	board := res.Val.(*Board)
	return &Board{
		Records:   slices.Clone(board.Records),
		WeekCount: board.WeekCount,
		Total:     board.Total,
	}, nil
}

func (s *Service) compute(ctx context.Context, week *int) (*Board, error) {
	entries, err := s.ledger.Entries(ctx, week)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load ledger entries", zap.Error(err))
		return nil, errutil.Internal("failed to compute ranking", err)
	}

	rows := slices.Collect(Rank(entries, week))

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}

	people, err := s.participants.Lookup(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load participants", zap.Error(err))
		return nil, errutil.Internal("failed to compute ranking", err)
	}

	for i := range rows {
		p, ok := people[rows[i].UserID]
		if !ok {
			continue
		}
		rows[i].UserName = p.Name
		rows[i].UserEmail = p.Email
		rows[i].TwitterHandle = p.TwitterHandle
		rows[i].DiscordHandle = p.DiscordHandle
		rows[i].WalletAddress = p.WalletAddress
	}

	return &Board{Records: rows, WeekCount: week, Total: len(rows)}, nil
}
