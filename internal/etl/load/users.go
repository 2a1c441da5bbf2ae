package load

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// UserProgressLoader upserts progress summaries by user id; the latest run wins.
type UserProgressLoader struct {
	*etl.Conn
	BatchSize int
}

func NewUserProgressLoader(open etl.Opener) *UserProgressLoader {
	return &UserProgressLoader{Conn: etl.NewConn(open)}
}

func (l *UserProgressLoader) Load(ctx context.Context, records []etl.TransformedUserRecord) error {
	rows := make([]models.User, 0, len(records))
	for _, r := range records {
		rows = append(rows, models.User{
			ID:           r.ID,
			Nickname:     r.Nickname,
			CurrentPoint: decimal.NewNullDecimal(r.CurrentPoint),
			TargetPoint:  decimal.NewNullDecimal(r.TargetPoint),
			LostWeight:   decimal.NewNullDecimal(r.LostWeight),
		})
	}
	return upsert(ctx, l.Conn, "users", rows, clause.OnConflict{
		Columns:   columns("id"),
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "current_point", "target_point", "lost_weight"}),
	}, l.BatchSize)
}

var _ etl.Loader[etl.TransformedUserRecord] = (*UserProgressLoader)(nil)
