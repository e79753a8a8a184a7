package participant

import (
	"context"

	"contest-review/pkg/db/option"
	"contest-review/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Module = fx.Module("participant.service",
	fx.Provide(NewService),
)

type Service struct {
	db   *gorm.DB
	repo repository.Repository[Participant]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		repo: repository.ProvideStore[Participant](p.DB),
	}
}

// Upsert stores p, keeping non-empty handles from earlier submissions when
// the new one leaves them blank.
func (s *Service) Upsert(ctx context.Context, tx *gorm.DB, p *Participant) error {
	if tx == nil {
		tx = s.db
	}

	columns := []string{"name", "email", "updated_at"}
	if p.TwitterHandle != "" {
		columns = append(columns, "twitter_handle")
	}
	if p.DiscordHandle != "" {
		columns = append(columns, "discord_handle")
	}
	if p.WalletAddress != "" {
		columns = append(columns, "wallet_address")
	}

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(p).Error
}

// Lookup returns the participants for ids keyed by id. Unknown ids are absent.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]*Participant, error) {
	out := make(map[string]*Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.repo.Find(ctx, &Participant{}, option.ApplyOperator(option.Condition{
		Field:    "id",
		Operator: option.IN,
		Value:    ids,
	}))
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}
