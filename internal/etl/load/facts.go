package load

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// WeightFactLoader inserts new (user, day) weights and ignores keys already present.
type WeightFactLoader struct {
	*etl.Conn
	BatchSize int
}

func NewWeightFactLoader(open etl.Opener) *WeightFactLoader {
	return &WeightFactLoader{Conn: etl.NewConn(open)}
}

func (l *WeightFactLoader) Load(ctx context.Context, facts []etl.WeightFact) error {
	rows := make([]models.WeightData, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, models.WeightData{
			UserID: f.UserID,
			Date:   datatypes.Date(f.Date),
			Weight: f.Weight,
		})
	}
	return upsert(ctx, l.Conn, "weight_data", rows, clause.OnConflict{
		Columns:   columns("user_id", "date"),
		DoNothing: true,
	}, l.BatchSize)
}

// ExistingKeys returns every (user, day) already loaded.
func (l *WeightFactLoader) ExistingKeys(ctx context.Context) (etl.KeySet[etl.WeightKey], error) {
	db, err := l.DB(ctx)
	if err != nil {
		return nil, &etl.LoadError{Target: "weight_data", Err: err}
	}
	rows, err := db.Model(&models.WeightData{}).Select("user_id", "date").Rows()
	if err != nil {
		return nil, &etl.LoadError{Target: "weight_data", Err: err}
	}
	defer rows.Close()

	keys := etl.KeySet[etl.WeightKey]{}
	for rows.Next() {
		var userID int64
		var day etl.Day
		if err := rows.Scan(&userID, &day); err != nil {
			return nil, &etl.LoadError{Target: "weight_data", Err: err}
		}
		keys.Add(etl.WeightKey{UserID: userID, Date: etl.DayKey(day.Time)})
	}
	if err := rows.Err(); err != nil {
		return nil, &etl.LoadError{Target: "weight_data", Err: err}
	}
	return keys, nil
}

// ActivityFactLoader inserts new (user, activity, day) values and ignores keys
// already present.
type ActivityFactLoader struct {
	*etl.Conn
	BatchSize int
}

func NewActivityFactLoader(open etl.Opener) *ActivityFactLoader {
	return &ActivityFactLoader{Conn: etl.NewConn(open)}
}

func (l *ActivityFactLoader) Load(ctx context.Context, facts []etl.ActivityFact) error {
	rows := make([]models.ActivityData, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, models.ActivityData{
			UserID:     f.UserID,
			ActivityID: f.ActivityID,
			Date:       datatypes.Date(f.Date),
			Value:      f.Value,
			Calories:   f.Calories,
		})
	}
	return upsert(ctx, l.Conn, "activity_data", rows, clause.OnConflict{
		Columns:   columns("user_id", "activity_id", "date"),
		DoNothing: true,
	}, l.BatchSize)
}

// ExistingKeys returns every (user, activity, day) already loaded.
func (l *ActivityFactLoader) ExistingKeys(ctx context.Context) (etl.KeySet[etl.ActivityKey], error) {
	db, err := l.DB(ctx)
	if err != nil {
		return nil, &etl.LoadError{Target: "activity_data", Err: err}
	}
	rows, err := db.Model(&models.ActivityData{}).Select("user_id", "activity_id", "date").Rows()
	if err != nil {
		return nil, &etl.LoadError{Target: "activity_data", Err: err}
	}
	defer rows.Close()

	keys := etl.KeySet[etl.ActivityKey]{}
	for rows.Next() {
		var userID, activityID int64
		var day etl.Day
		if err := rows.Scan(&userID, &activityID, &day); err != nil {
			return nil, &etl.LoadError{Target: "activity_data", Err: err}
		}
		keys.Add(etl.ActivityKey{UserID: userID, ActivityID: activityID, Date: etl.DayKey(day.Time)})
	}
	if err := rows.Err(); err != nil {
		return nil, &etl.LoadError{Target: "activity_data", Err: err}
	}
	return keys, nil
}

var (
	_ etl.Loader[etl.WeightFact]   = (*WeightFactLoader)(nil)
	_ etl.Loader[etl.ActivityFact] = (*ActivityFactLoader)(nil)
)
