// Package load writes analytics rows. The progress summary is overwritten on
// every run; facts are append-only and never rewritten.
package load

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize bounds the rows of a single INSERT statement.
const DefaultBatchSize = 500

func upsert[T any](ctx context.Context, conn *etl.Conn, target string, rows []T, conflict clause.OnConflict, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	db, err := conn.DB(ctx)
	if err != nil {
		return &etl.LoadError{Target: target, Err: err}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Clauses(conflict).CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return &etl.LoadError{Target: target, Err: err}
	}
	return nil
}

func columns(names ...string) []clause.Column {
	cols := make([]clause.Column, 0, len(names))
	for _, n := range names {
		cols = append(cols, clause.Column{Name: n})
	}
	return cols
}
