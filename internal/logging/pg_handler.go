package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const pgBatchSize = 50

type pgSink struct {
	db      *gorm.DB
	mu      sync.Mutex
	buffer  []models.SystemLog
	stopped bool
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	// fallback receives flush failures and records handled after Stop.
	fallback io.Writer
}

// PGHandler is an slog.Handler that batches ERROR+ logs into system_logs.
// Attributes bound with WithAttrs (pipeline, run_id) are kept on every entry.
type PGHandler struct {
	sink  *pgSink
	attrs []slog.Attr
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	return newPGHandler(db, 5*time.Second)
}

func newPGHandler(db *gorm.DB, interval time.Duration) *PGHandler {
	s := &pgSink{
		db:       db,
		buffer:   make([]models.SystemLog, 0, pgBatchSize),
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		fallback: os.Stderr,
	}
	s.wg.Add(1)
	go s.flushLoop()
	return &PGHandler{sink: s}
}

func (s *pgSink) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *pgSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, pgBatchSize)
	s.mu.Unlock()

	if err := s.db.CreateInBatches(batch, pgBatchSize).Error; err != nil {
		// The default logger may route back into this sink.
		fmt.Fprintf(s.fallback, "failed to flush %d system logs: %v\n", len(batch), err)
	}
}

// Stop flushes buffered entries and waits for the flush loop to exit. Records
// handled afterwards go to stderr.
func (h *PGHandler) Stop() {
	h.sink.once.Do(func() {
		h.sink.mu.Lock()
		h.sink.stopped = true
		h.sink.mu.Unlock()
		h.sink.ticker.Stop()
		close(h.sink.done)
	})
	h.sink.wg.Wait()
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "pipeline":
			entry.Pipeline = a.Value.String()
		case "run_id":
			entry.RunID = a.Value.String()
		case "user_id":
			if id, err := strconv.ParseInt(a.Value.String(), 10, 64); err == nil {
				entry.UserID = &id
			}
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Resolve().Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	s := h.sink
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		b, _ := json.Marshal(entry)
		_, err := fmt.Fprintf(s.fallback, "system log after shutdown: %s\n", b)
		return err
	}
	s.buffer = append(s.buffer, entry)
	needFlush := len(s.buffer) >= pgBatchSize
	s.mu.Unlock()

	if needFlush {
		go s.flush()
	}
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PGHandler{sink: h.sink, attrs: merged}
}

func (h *PGHandler) WithGroup(_ string) slog.Handler {
	return h
}
