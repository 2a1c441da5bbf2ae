package transform

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/logging"
	"github.com/shopspring/decimal"
)

const caloriePlaces = 2

// UserDimensions maps participants to analytics user rows.
func UserDimensions(users []etl.SourceUser) []etl.UserDimension {
	out := make([]etl.UserDimension, 0, len(users))
	for _, u := range users {
		out = append(out, etl.UserDimension{ID: u.ID, Nickname: u.Username})
	}
	return out
}

// ActivityDimensions maps the activity catalog to analytics rows.
func ActivityDimensions(types []etl.SourceActivityType) []etl.ActivityDimension {
	out := make([]etl.ActivityDimension, 0, len(types))
	for _, t := range types {
		out = append(out, etl.ActivityDimension{
			ID:              t.ID,
			Name:            t.Name,
			Unit:            t.Unit,
			CaloriesPerUnit: t.CaloriesPerUnit,
		})
	}
	return out
}

// WeightFacts keeps the first weigh-in of each (user, day) that is not yet in the
// analytics store. Keys it emits are added to the existing set, so later batches
// of the same run do not emit them again.
type WeightFacts struct {
	users    map[int64]struct{}
	existing etl.KeySet[etl.WeightKey]
	skipped  int
}

func NewWeightFacts(knownUsers []int64, existing etl.KeySet[etl.WeightKey]) *WeightFacts {
	if existing == nil {
		existing = etl.KeySet[etl.WeightKey]{}
	}
	return &WeightFacts{users: idSet(knownUsers), existing: existing}
}

// Skipped counts records dropped because their user is unknown or they carry no date.
func (t *WeightFacts) Skipped() int { return t.skipped }

func (t *WeightFacts) Transform(ctx context.Context, in []etl.SourceWeightRecord) []etl.WeightFact {
	log := logging.FromContext(ctx)

	var out []etl.WeightFact
	for _, r := range in {
		if _, ok := t.users[r.UserID]; !ok {
			log.Warn("weight record skipped: unknown user", "user_id", r.UserID)
			t.skipped++
			continue
		}
		if r.Undated {
			log.Warn("weight record skipped: no record date", "user_id", r.UserID)
			t.skipped++
			continue
		}
		fact := etl.WeightFact{UserID: r.UserID, Date: r.RecordDate, Weight: r.Weight}
		key := fact.Key()
		if t.existing.Has(key) {
			continue
		}
		t.existing.Add(key)
		out = append(out, fact)
	}
	return out
}

// ActivityFacts derives calories and keeps the first value of each
// (user, activity, day) not yet in the analytics store.
type ActivityFacts struct {
	users      map[int64]struct{}
	activities map[int64]struct{}
	existing   etl.KeySet[etl.ActivityKey]
	skipped    int
}

func NewActivityFacts(knownUsers, knownActivities []int64, existing etl.KeySet[etl.ActivityKey]) *ActivityFacts {
	if existing == nil {
		existing = etl.KeySet[etl.ActivityKey]{}
	}
	return &ActivityFacts{
		users:      idSet(knownUsers),
		activities: idSet(knownActivities),
		existing:   existing,
	}
}

// Skipped counts records dropped because their user or activity is unknown or
// they carry no date.
func (t *ActivityFacts) Skipped() int { return t.skipped }

func (t *ActivityFacts) Transform(ctx context.Context, in []etl.SourceActivityRecord) []etl.ActivityFact {
	log := logging.FromContext(ctx)

	var out []etl.ActivityFact
	for _, r := range in {
		if _, ok := t.users[r.UserID]; !ok {
			log.Warn("activity record skipped: unknown user", "user_id", r.UserID)
			t.skipped++
			continue
		}
		if _, ok := t.activities[r.ActivityTypeID]; !ok {
			log.Warn("activity record skipped: unknown activity type", "user_id", r.UserID, "activity_id", r.ActivityTypeID)
			t.skipped++
			continue
		}
		if r.Undated {
			log.Warn("activity record skipped: no record date", "user_id", r.UserID, "activity_id", r.ActivityTypeID)
			t.skipped++
			continue
		}

		fact := etl.ActivityFact{
			UserID:     r.UserID,
			ActivityID: r.ActivityTypeID,
			Date:       r.RecordDate,
			Value:      r.Value,
			Calories:   Calories(r),
		}
		key := fact.Key()
		if t.existing.Has(key) {
			continue
		}
		t.existing.Add(key)
		out = append(out, fact)
	}
	return out
}

// Calories returns the logged calories, or value × calories per unit of the
// activity type. Without either the result is NULL, never zero.
func Calories(r etl.SourceActivityRecord) decimal.NullDecimal {
	if r.Calories.Valid {
		return decimal.NewNullDecimal(r.Calories.Decimal.RoundBank(caloriePlaces))
	}
	if r.CaloriesPerUnit.Valid {
		return decimal.NewNullDecimal(r.Value.Mul(r.CaloriesPerUnit.Decimal).RoundBank(caloriePlaces))
	}
	return decimal.NullDecimal{}
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var (
	_ etl.Transformer[etl.SourceWeightRecord, etl.WeightFact]     = (*WeightFacts)(nil)
	_ etl.Transformer[etl.SourceActivityRecord, etl.ActivityFact] = (*ActivityFacts)(nil)
)
