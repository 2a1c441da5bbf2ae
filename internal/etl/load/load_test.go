package load

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlexPunches/1x-fit/internal/database"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func analyticsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.MigrateAnalytics(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func connect(t *testing.T, c etl.Connector) {
	t.Helper()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Disconnect(context.Background()) })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func TestUserProgressLoaderUpserts(t *testing.T) {
	db := analyticsDB(t)
	l := NewUserProgressLoader(database.SharedOpener(db))
	connect(t, l)
	ctx := context.Background()

	first := []etl.TransformedUserRecord{
		{ID: 1, Nickname: "alice", CurrentPoint: dec("2.1234"), TargetPoint: dec("9.5"), LostWeight: dec("5")},
		{ID: 2, Nickname: "bob", CurrentPoint: dec("0"), TargetPoint: dec("1"), LostWeight: dec("-0.4")},
	}
	if err := l.Load(ctx, first); err != nil {
		t.Fatalf("load: %v", err)
	}

	second := []etl.TransformedUserRecord{
		{ID: 1, Nickname: "alice_new", CurrentPoint: dec("3.5"), TargetPoint: dec("9.5"), LostWeight: dec("6.2")},
	}
	if err := l.Load(ctx, second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var users []models.User
	if err := db.Order("id").Find(&users).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	alice := users[0]
	if alice.Nickname != "alice_new" || !alice.CurrentPoint.Decimal.Equal(dec("3.5")) || !alice.LostWeight.Decimal.Equal(dec("6.2")) {
		t.Fatalf("last write did not win: %+v", alice)
	}
	if !users[1].LostWeight.Decimal.Equal(dec("-0.4")) {
		t.Fatalf("negative lost weight not kept: %+v", users[1])
	}
}

func TestLoadEmptyIsNoop(t *testing.T) {
	// Not connected: any store access would fail with ErrNotConnected.
	l := NewUserProgressLoader(nil)
	if err := l.Load(context.Background(), nil); err != nil {
		t.Fatalf("empty load must not touch the store: %v", err)
	}
	if err := NewWeightFactLoader(nil).Load(context.Background(), []etl.WeightFact{}); err != nil {
		t.Fatalf("empty fact load must not touch the store: %v", err)
	}
}

func TestLoadWithoutConnectIsLoadError(t *testing.T) {
	l := NewUserProgressLoader(nil)
	err := l.Load(context.Background(), []etl.TransformedUserRecord{{ID: 1}})

	var loadErr *etl.LoadError
	if !errors.As(err, &loadErr) || loadErr.Target != "users" || !errors.Is(err, etl.ErrNotConnected) {
		t.Fatalf("expected LoadError wrapping ErrNotConnected, got %v", err)
	}
}

func TestDimensionLoaderKeepsProgress(t *testing.T) {
	db := analyticsDB(t)
	open := database.SharedOpener(db)
	ctx := context.Background()

	progress := NewUserProgressLoader(open)
	connect(t, progress)
	if err := progress.Load(ctx, []etl.TransformedUserRecord{{ID: 1, Nickname: "a", CurrentPoint: dec("4"), TargetPoint: dec("8"), LostWeight: dec("3")}}); err != nil {
		t.Fatalf("progress load: %v", err)
	}

	dims := NewUserDimensionLoader(open)
	connect(t, dims)
	if err := dims.Load(ctx, []etl.UserDimension{{ID: 1, Nickname: "renamed"}, {ID: 2, Nickname: "new"}}); err != nil {
		t.Fatalf("dimension load: %v", err)
	}

	var u models.User
	if err := db.First(&u, 1).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.Nickname != "renamed" || !u.CurrentPoint.Valid || !u.CurrentPoint.Decimal.Equal(dec("4")) {
		t.Fatalf("dimension upsert must only refresh nickname: %+v", u)
	}

	acts := NewActivityDimensionLoader(open)
	connect(t, acts)
	catalog := []etl.ActivityDimension{{ID: 1, Name: "steps", Unit: "step", CaloriesPerUnit: decimal.NewNullDecimal(dec("0.04"))}}
	if err := acts.Load(ctx, catalog); err != nil {
		t.Fatalf("activity load: %v", err)
	}
	catalog[0].Name = "walking"
	if err := acts.Load(ctx, catalog); err != nil {
		t.Fatalf("activity reload: %v", err)
	}
	var a models.Activity
	if err := db.First(&a, 1).Error; err != nil {
		t.Fatalf("find activity: %v", err)
	}
	if a.Name != "walking" {
		t.Fatalf("activity not updated: %+v", a)
	}
}

func TestActivityFactLoaderIsAdditive(t *testing.T) {
	db := analyticsDB(t)
	open := database.SharedOpener(db)
	ctx := context.Background()

	dims := NewUserDimensionLoader(open)
	connect(t, dims)
	if err := dims.Load(ctx, []etl.UserDimension{{ID: 1, Nickname: "a"}}); err != nil {
		t.Fatalf("users: %v", err)
	}
	acts := NewActivityDimensionLoader(open)
	connect(t, acts)
	if err := acts.Load(ctx, []etl.ActivityDimension{{ID: 2, Name: "run", Unit: "km"}}); err != nil {
		t.Fatalf("activities: %v", err)
	}

	l := NewActivityFactLoader(open)
	connect(t, l)
	fact := etl.ActivityFact{UserID: 1, ActivityID: 2, Date: day("2024-01-01"), Value: dec("5")}
	if err := l.Load(ctx, []etl.ActivityFact{fact}); err != nil {
		t.Fatalf("first load: %v", err)
	}
	fact.Value = dec("7")
	if err := l.Load(ctx, []etl.ActivityFact{fact}); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var count int64
	db.Model(&models.ActivityData{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
	var row models.ActivityData
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if !row.Value.Equal(dec("5")) || row.Calories.Valid {
		t.Fatalf("existing fact was rewritten: %+v", row)
	}

	keys, err := l.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("existing keys: %v", err)
	}
	if len(keys) != 1 || !keys.Has(etl.ActivityKey{UserID: 1, ActivityID: 2, Date: "2024-01-01"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestWeightFactLoaderExistingKeys(t *testing.T) {
	db := analyticsDB(t)
	open := database.SharedOpener(db)
	ctx := context.Background()

	dims := NewUserDimensionLoader(open)
	connect(t, dims)
	if err := dims.Load(ctx, []etl.UserDimension{{ID: 1, Nickname: "a"}, {ID: 2, Nickname: "b"}}); err != nil {
		t.Fatalf("users: %v", err)
	}

	l := NewWeightFactLoader(open)
	l.BatchSize = 2
	connect(t, l)
	facts := []etl.WeightFact{
		{UserID: 1, Date: day("2024-01-01"), Weight: dec("80")},
		{UserID: 1, Date: day("2024-01-02"), Weight: dec("79.6")},
		{UserID: 2, Date: day("2024-01-01"), Weight: dec("60")},
	}
	if err := l.Load(ctx, facts); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := l.Load(ctx, facts); err != nil {
		t.Fatalf("reload: %v", err)
	}

	keys, err := l.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("existing keys: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
	for _, f := range facts {
		if !keys.Has(f.Key()) {
			t.Errorf("missing key %+v", f.Key())
		}
	}
}
