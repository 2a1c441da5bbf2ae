package extract

import (
	"context"
	"database/sql"

	"github.com/AlexPunches/1x-fit/internal/etl"
)

const (
	weightQuery      = `SELECT user_id, weight, record_date FROM weight_records ORDER BY user_id, record_date, id`
	weightBatchQuery = weightQuery + ` LIMIT ? OFFSET ?`
)

// WeightExtractor reads weigh-ins, with the time of day dropped.
type WeightExtractor struct {
	*etl.Conn
}

func NewWeightExtractor(open etl.Opener) *WeightExtractor {
	return &WeightExtractor{Conn: etl.NewConn(open)}
}

func (e *WeightExtractor) Extract(ctx context.Context) ([]etl.SourceWeightRecord, error) {
	return query(ctx, e.Conn, "weight_records", scanWeight, weightQuery)
}

func (e *WeightExtractor) ExtractBatch(ctx context.Context, offset, limit int) ([]etl.SourceWeightRecord, error) {
	return query(ctx, e.Conn, "weight_records", scanWeight, weightBatchQuery, limit, offset)
}

func scanWeight(rows *sql.Rows) (etl.SourceWeightRecord, error) {
	var r etl.SourceWeightRecord
	var day etl.NullDay
	if err := rows.Scan(&r.UserID, &r.Weight, &day); err != nil {
		return r, err
	}
	r.RecordDate, r.Undated = day.Time, !day.Valid
	return r, nil
}

var _ etl.BatchExtractor[etl.SourceWeightRecord] = (*WeightExtractor)(nil)
