package extract

import (
	"context"
	"database/sql"

	"github.com/AlexPunches/1x-fit/internal/etl"
)

const usersQuery = `SELECT id, username, start_weight, target_weight, height FROM users ORDER BY id`

// UserExtractor reads participant profiles.
type UserExtractor struct {
	*etl.Conn
}

func NewUserExtractor(open etl.Opener) *UserExtractor {
	return &UserExtractor{Conn: etl.NewConn(open)}
}

func (e *UserExtractor) Extract(ctx context.Context) ([]etl.SourceUser, error) {
	return query(ctx, e.Conn, "users", scanUser, usersQuery)
}

func scanUser(rows *sql.Rows) (etl.SourceUser, error) {
	var u etl.SourceUser
	var username sql.NullString
	if err := rows.Scan(&u.ID, &username, &u.StartWeight, &u.TargetWeight, &u.Height); err != nil {
		return u, err
	}
	u.Username = username.String
	u.StartWeight = present(u.StartWeight)
	u.TargetWeight = present(u.TargetWeight)
	u.Height = present(u.Height)
	return u, nil
}

var _ etl.Extractor[etl.SourceUser] = (*UserExtractor)(nil)
