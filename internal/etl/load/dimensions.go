package load

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"gorm.io/gorm/clause"
)

// UserDimensionLoader maintains user rows for the facts view. Only the nickname
// is refreshed so progress columns written by the users view survive.
type UserDimensionLoader struct {
	*etl.Conn
	BatchSize int
}

func NewUserDimensionLoader(open etl.Opener) *UserDimensionLoader {
	return &UserDimensionLoader{Conn: etl.NewConn(open)}
}

func (l *UserDimensionLoader) Load(ctx context.Context, records []etl.UserDimension) error {
	rows := make([]models.User, 0, len(records))
	for _, r := range records {
		rows = append(rows, models.User{ID: r.ID, Nickname: r.Nickname})
	}
	return upsert(ctx, l.Conn, "users", rows, clause.OnConflict{
		Columns:   columns("id"),
		DoUpdates: clause.AssignmentColumns([]string{"nickname"}),
	}, l.BatchSize)
}

// ActivityDimensionLoader mirrors the activity catalog.
type ActivityDimensionLoader struct {
	*etl.Conn
	BatchSize int
}

func NewActivityDimensionLoader(open etl.Opener) *ActivityDimensionLoader {
	return &ActivityDimensionLoader{Conn: etl.NewConn(open)}
}

func (l *ActivityDimensionLoader) Load(ctx context.Context, records []etl.ActivityDimension) error {
	rows := make([]models.Activity, 0, len(records))
	for _, r := range records {
		rows = append(rows, models.Activity{
			ID:              r.ID,
			Name:            r.Name,
			Unit:            r.Unit,
			CaloriesPerUnit: r.CaloriesPerUnit,
		})
	}
	return upsert(ctx, l.Conn, "activities", rows, clause.OnConflict{
		Columns:   columns("id"),
		DoUpdates: clause.AssignmentColumns([]string{"name", "unit", "calories_per_unit"}),
	}, l.BatchSize)
}

var (
	_ etl.Loader[etl.UserDimension]     = (*UserDimensionLoader)(nil)
	_ etl.Loader[etl.ActivityDimension] = (*ActivityDimensionLoader)(nil)
)
