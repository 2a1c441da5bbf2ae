package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlexPunches/1x-fit/internal/database"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/google/uuid"
)

func newRunService(t *testing.T) *RunService {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.MigrateAnalytics(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRunService(db)
}

func TestRunServiceLifecycle(t *testing.T) {
	s := newRunService(t)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	id, err := s.Start(ctx, "users", models.TriggerSchedule)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	clock = clock.Add(1500 * time.Millisecond)
	stats := etl.NewRunStats()
	stats.Loaded["users"] = 3
	if err := s.Finish(ctx, id, stats, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := s.Recent(ctx, "users", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != models.RunStatusSucceeded || run.DurationMs != 1500 || run.FinishedAt == nil {
		t.Fatalf("unexpected run %+v", run)
	}
	var stored etl.RunStats
	if err := json.Unmarshal(run.Stats, &stored); err != nil || stored.Loaded["users"] != 3 {
		t.Fatalf("unexpected stats %s (%v)", run.Stats, err)
	}

	last, err := s.LastSuccess(ctx, "users")
	if err != nil || last.ID != id {
		t.Fatalf("last success = %v, %v", last, err)
	}
}

func TestRunServiceRecordsFailure(t *testing.T) {
	s := newRunService(t)
	ctx := context.Background()

	id, err := s.Start(ctx, "facts", models.TriggerManual)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	runErr := &etl.LoadError{Target: "weight_data", Err: errors.New("connection reset")}
	if err := s.Finish(ctx, id, etl.NewRunStats(), runErr); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := s.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != models.RunStatusFailed || runs[0].Error != runErr.Error() {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if _, err := s.LastSuccess(ctx, "facts"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunServiceFinishUnknown(t *testing.T) {
	s := newRunService(t)
	if err := s.Finish(context.Background(), uuid.New(), etl.NewRunStats(), nil); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunServiceRecentOrderAndFilter(t *testing.T) {
	s := newRunService(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"users", "facts", "users"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		if _, err := s.Start(ctx, p, models.TriggerSchedule); err != nil {
			t.Fatalf("start: %v", err)
		}
	}

	runs, err := s.Recent(ctx, "users", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 || !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("expected 2 users runs newest first, got %+v", runs)
	}
}
