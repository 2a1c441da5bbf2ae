// Package extract reads the chat bot's operational store. Every query is
// read-only and ordered so that repeated or paged reads are deterministic.
package extract

import (
	"context"
	"database/sql"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/logging"
	"github.com/shopspring/decimal"
)

type scanFunc[T any] func(rows *sql.Rows) (T, error)

func query[T any](ctx context.Context, conn *etl.Conn, source string, scan scanFunc[T], stmt string, args ...any) ([]T, error) {
	db, err := conn.DB(ctx)
	if err != nil {
		return nil, &etl.ExtractionError{Source: source, Err: err}
	}

	rows, err := db.Raw(stmt, args...).Rows()
	if err != nil {
		return nil, &etl.ExtractionError{Source: source, Err: err}
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, &etl.ExtractionError{Source: source, Err: err}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &etl.ExtractionError{Source: source, Err: err}
	}

	logging.FromContext(ctx).Debug("extracted rows", "source", source, "count", len(out))
	return out, nil
}

// present treats NULL and zero as "not provided", as the bot stores 0 for
// skipped registration questions.
func present(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid || d.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return d
}
