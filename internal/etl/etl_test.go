package etl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubPipeline struct{ name string }

func (p stubPipeline) Name() string                          { return p.name }
func (p stubPipeline) Run(context.Context) (RunStats, error) { return NewRunStats(), nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"users", "facts"} {
		n := name
		if err := r.Register(n, func() Pipeline { return stubPipeline{name: n} }); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}

	if err := r.Register("users", func() Pipeline { return stubPipeline{} }); !errors.Is(err, ErrDuplicatePipeline) {
		t.Fatalf("expected ErrDuplicatePipeline, got %v", err)
	}

	if got := r.Names(); !reflect.DeepEqual(got, []string{"facts", "users"}) {
		t.Fatalf("unexpected names %v", got)
	}

	p, err := r.Build("users")
	if err != nil {
		t.Fatalf("build users: %v", err)
	}
	if p.Name() != "users" {
		t.Fatalf("expected users pipeline, got %s", p.Name())
	}

	if _, err := r.Build("unknown"); !errors.Is(err, ErrUnknownPipeline) {
		t.Fatalf("expected ErrUnknownPipeline, got %v", err)
	}
	if r.Exists("unknown") {
		t.Fatal("unknown pipeline reported as existing")
	}
}

func memoryOpener(opens, closes *int) Opener {
	return func(ctx context.Context) (*gorm.DB, func() error, error) {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, nil, err
		}
		*opens++
		return db, func() error {
			*closes++
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}, nil
	}
}

func TestConnLifecycle(t *testing.T) {
	var opens, closes int
	c := NewConn(memoryOpener(&opens, &closes))
	ctx := context.Background()

	if _, err := c.DB(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before Connect, got %v", err)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect without connect: %v", err)
	}

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if opens != 1 {
		t.Fatalf("expected one open, got %d", opens)
	}

	db, err := c.DB(ctx)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("query: %v", err)
	}

	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if closes != 1 {
		t.Fatalf("expected one close, got %d", closes)
	}
	if _, err := c.DB(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after Disconnect, got %v", err)
	}
}

type recordingConnector struct {
	name       string
	connectErr error
	log        *[]string
}

func (r *recordingConnector) Connect(context.Context) error {
	*r.log = append(*r.log, "connect "+r.name)
	return r.connectErr
}

func (r *recordingConnector) Disconnect(ctx context.Context) error {
	if ctx.Err() != nil {
		*r.log = append(*r.log, "disconnect "+r.name+" with cancelled ctx")
		return nil
	}
	*r.log = append(*r.log, "disconnect "+r.name)
	return errors.New("disconnect noise")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithConnectionsReleasesOnFailure(t *testing.T) {
	var log []string
	src := &recordingConnector{name: "source", log: &log}
	dst := &recordingConnector{name: "analytics", log: &log}
	runErr := errors.New("load failed")

	err := WithConnections(context.Background(), quietLogger(), []Connector{src, dst}, func(context.Context) error {
		log = append(log, "run")
		return runErr
	})
	if !errors.Is(err, runErr) {
		t.Fatalf("expected run error to surface, got %v", err)
	}

	want := []string{"connect source", "connect analytics", "run", "disconnect analytics", "disconnect source"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("unexpected lifecycle %v", log)
	}
}

func TestWithConnectionsConnectFailure(t *testing.T) {
	var log []string
	src := &recordingConnector{name: "source", log: &log}
	dst := &recordingConnector{name: "analytics", log: &log, connectErr: errors.New("refused")}

	called := false
	err := WithConnections(context.Background(), quietLogger(), []Connector{src, dst}, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("expected connect failure without running, err=%v called=%v", err, called)
	}

	want := []string{"connect source", "connect analytics", "disconnect analytics", "disconnect source"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("unexpected lifecycle %v", log)
	}
}

func TestWithConnectionsDisconnectsAfterCancel(t *testing.T) {
	var log []string
	src := &recordingConnector{name: "source", log: &log}

	ctx, cancel := context.WithCancel(context.Background())
	err := WithConnections(ctx, quietLogger(), []Connector{src}, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	want := []string{"connect source", "disconnect source"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("disconnect must not observe the cancelled context: %v", log)
	}
}

func TestDayScan(t *testing.T) {
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	inputs := []any{
		"2024-03-09",
		"2024-03-09 18:45:10",
		"2024-03-09T07:00:00Z",
		[]byte("2024-03-09"),
		time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC),
	}
	for _, in := range inputs {
		var d Day
		if err := d.Scan(in); err != nil {
			t.Fatalf("scan %v: %v", in, err)
		}
		if !d.Time.Equal(want) {
			t.Errorf("scan %v = %s, want %s", in, d.Time, want)
		}
		if DayKey(d.Time) != "2024-03-09" {
			t.Errorf("key for %v = %s", in, DayKey(d.Time))
		}
	}

	var d Day
	if err := d.Scan(nil); err == nil {
		t.Fatal("expected error scanning NULL")
	}
	if err := d.Scan("yesterday"); err == nil {
		t.Fatal("expected error scanning free text")
	}
}

func TestNullDayScan(t *testing.T) {
	var n NullDay
	if err := n.Scan("2024-03-09 08:00:00"); err != nil || !n.Valid || DayKey(n.Time) != "2024-03-09" {
		t.Fatalf("valid date: %+v err=%v", n, err)
	}
	for _, in := range []any{nil, "yesterday", 42} {
		if err := n.Scan(in); err != nil {
			t.Fatalf("scan %v must not fail the read: %v", in, err)
		}
		if n.Valid || !n.Time.IsZero() {
			t.Errorf("scan %v = %+v, want invalid", in, n)
		}
	}
}

func TestKeySet(t *testing.T) {
	set := KeySet[WeightKey]{}
	k := WeightKey{UserID: 7, Date: "2024-01-02"}
	if set.Has(k) {
		t.Fatal("empty set reports key")
	}
	set.Add(k)
	if !set.Has(k) || set.Has(WeightKey{UserID: 7, Date: "2024-01-03"}) {
		t.Fatal("unexpected membership")
	}
}

func TestRunStatsTotalLoaded(t *testing.T) {
	s := NewRunStats()
	s.Loaded["users"] = 3
	s.Loaded["weight_data"] = 10
	if s.TotalLoaded() != 13 {
		t.Fatalf("expected 13, got %d", s.TotalLoaded())
	}
}
