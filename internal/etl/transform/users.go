// Package transform turns operational records into analytics rows. Transformers
// never fail a batch: records that cannot be processed are logged and dropped.
package transform

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/logging"
	"github.com/AlexPunches/1x-fit/internal/scoring"
)

// UserWeights pairs a participant with all of their weigh-ins.
type UserWeights struct {
	User    etl.SourceUser
	Records []etl.SourceWeightRecord
}

// Merge groups weight records by user. Every user appears exactly once, in input
// order, with an empty slice when no records exist.
func Merge(users []etl.SourceUser, records []etl.SourceWeightRecord) []UserWeights {
	byUser := make(map[int64][]etl.SourceWeightRecord, len(users))
	for _, r := range records {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	out := make([]UserWeights, 0, len(users))
	for _, u := range users {
		recs := byUser[u.ID]
		if recs == nil {
			recs = []etl.SourceWeightRecord{}
		}
		out = append(out, UserWeights{User: u, Records: recs})
	}
	return out
}

// UserTransformer computes the progress summary of each participant.
type UserTransformer struct {
	skipped int
}

func NewUserTransformer() *UserTransformer {
	return &UserTransformer{}
}

// Skipped reports how many users and undated weigh-ins the last Transform call
// dropped.
func (t *UserTransformer) Skipped() int {
	return t.skipped
}

func (t *UserTransformer) Transform(ctx context.Context, in []UserWeights) []etl.TransformedUserRecord {
	log := logging.FromContext(ctx)
	t.skipped = 0

	out := make([]etl.TransformedUserRecord, 0, len(in))
	for _, uw := range in {
		u := uw.User
		if !u.StartWeight.Valid || !u.Height.Valid {
			log.Warn("user skipped: incomplete profile", "user_id", u.ID,
				"has_start_weight", u.StartWeight.Valid, "has_height", u.Height.Valid)
			t.skipped++
			continue
		}
		records := t.dated(ctx, uw.Records)
		if len(records) == 0 {
			log.Debug("user skipped: no weight records", "user_id", u.ID)
			t.skipped++
			continue
		}

		latest := records[0]
		for _, r := range records[1:] {
			if !r.RecordDate.Before(latest.RecordDate) {
				latest = r
			}
		}

		start := u.StartWeight.Decimal
		target := start
		if u.TargetWeight.Valid {
			target = u.TargetWeight.Decimal
		} else {
			log.Info("target weight missing, using start weight", "user_id", u.ID)
		}

		current, err := scoring.CurrentPoint(start, latest.Weight, u.Height.Decimal)
		if err != nil {
			log.Warn("user skipped: current point", "user_id", u.ID, "error", err)
			t.skipped++
			continue
		}
		targetPoint, err := scoring.TargetPoint(start, target, u.Height.Decimal)
		if err != nil {
			log.Warn("user skipped: target point", "user_id", u.ID, "error", err)
			t.skipped++
			continue
		}

		out = append(out, etl.TransformedUserRecord{
			ID:           u.ID,
			Nickname:     u.Username,
			CurrentPoint: current,
			TargetPoint:  targetPoint,
			LostWeight:   start.Sub(latest.Weight).RoundBank(scoring.Places),
		})
	}
	return out
}

func (t *UserTransformer) dated(ctx context.Context, records []etl.SourceWeightRecord) []etl.SourceWeightRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.Undated {
			logging.FromContext(ctx).Warn("weight record skipped: no record date", "user_id", r.UserID)
			t.skipped++
			continue
		}
		out = append(out, r)
	}
	return out
}

var _ etl.Transformer[UserWeights, etl.TransformedUserRecord] = (*UserTransformer)(nil)
