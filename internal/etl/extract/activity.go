package extract

import (
	"context"
	"database/sql"

	"github.com/AlexPunches/1x-fit/internal/etl"
)

const (
	activityTypesQuery = `SELECT id, name, unit, calories_per_unit FROM activity_types ORDER BY id`

	activityQuery = `SELECT r.user_id, r.activity_type_id, r.value, r.calories, t.calories_per_unit, r.record_date
FROM activity_records r
LEFT JOIN activity_types t ON t.id = r.activity_type_id
ORDER BY r.user_id, r.record_date, r.activity_type_id, r.id`
	activityBatchQuery = activityQuery + ` LIMIT ? OFFSET ?`
)

// ActivityTypeExtractor reads the activity catalog.
type ActivityTypeExtractor struct {
	*etl.Conn
}

func NewActivityTypeExtractor(open etl.Opener) *ActivityTypeExtractor {
	return &ActivityTypeExtractor{Conn: etl.NewConn(open)}
}

func (e *ActivityTypeExtractor) Extract(ctx context.Context) ([]etl.SourceActivityType, error) {
	return query(ctx, e.Conn, "activity_types", scanActivityType, activityTypesQuery)
}

func scanActivityType(rows *sql.Rows) (etl.SourceActivityType, error) {
	var t etl.SourceActivityType
	if err := rows.Scan(&t.ID, &t.Name, &t.Unit, &t.CaloriesPerUnit); err != nil {
		return t, err
	}
	return t, nil
}

// ActivityExtractor reads logged activities joined with their conversion factor.
type ActivityExtractor struct {
	*etl.Conn
}

func NewActivityExtractor(open etl.Opener) *ActivityExtractor {
	return &ActivityExtractor{Conn: etl.NewConn(open)}
}

func (e *ActivityExtractor) Extract(ctx context.Context) ([]etl.SourceActivityRecord, error) {
	return query(ctx, e.Conn, "activity_records", scanActivity, activityQuery)
}

func (e *ActivityExtractor) ExtractBatch(ctx context.Context, offset, limit int) ([]etl.SourceActivityRecord, error) {
	return query(ctx, e.Conn, "activity_records", scanActivity, activityBatchQuery, limit, offset)
}

func scanActivity(rows *sql.Rows) (etl.SourceActivityRecord, error) {
	var r etl.SourceActivityRecord
	var day etl.NullDay
	if err := rows.Scan(&r.UserID, &r.ActivityTypeID, &r.Value, &r.Calories, &r.CaloriesPerUnit, &day); err != nil {
		return r, err
	}
	r.RecordDate, r.Undated = day.Time, !day.Valid
	return r, nil
}

var (
	_ etl.Extractor[etl.SourceActivityType]        = (*ActivityTypeExtractor)(nil)
	_ etl.BatchExtractor[etl.SourceActivityRecord] = (*ActivityExtractor)(nil)
)
