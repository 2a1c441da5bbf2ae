package etl

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gorm.io/gorm"
)

// Opener acquires a gorm handle. The returned release func gives the handle back:
// it closes a dedicated pool, or is a no-op for a shared one.
type Opener func(ctx context.Context) (*gorm.DB, func() error, error)

// Conn is the connection state embedded by extractors and loaders.
type Conn struct {
	open    Opener
	mu      sync.Mutex
	db      *gorm.DB
	release func() error
}

func NewConn(open Opener) *Conn {
	return &Conn{open: open}
}

// Connect opens the handle once; repeated calls are no-ops.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	if c.open == nil {
		return errors.New("connection has no opener")
	}
	db, release, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.db = db
	c.release = release
	return nil
}

// Disconnect releases the handle. Calling it without a successful Connect is a no-op.
func (c *Conn) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	release := c.release
	c.db = nil
	c.release = nil
	if release == nil {
		return nil
	}
	return release()
}

// DB returns the live handle bound to ctx.
func (c *Conn) DB(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.WithContext(ctx), nil
}

// WithConnections connects every resource, runs fn and disconnects all of them,
// whether fn succeeded, failed or ctx was cancelled. Disconnect failures are
// logged and never replace the run's own error.
func WithConnections(ctx context.Context, logger *slog.Logger, resources []Connector, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	connected := make([]Connector, 0, len(resources))
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		for i := len(connected) - 1; i >= 0; i-- {
			if err := connected[i].Disconnect(cleanupCtx); err != nil {
				logger.Warn("disconnect failed", "error", err)
			}
		}
	}()

	for _, r := range resources {
		// Register before connecting so a half-open resource is still released.
		connected = append(connected, r)
		if err := r.Connect(ctx); err != nil {
			return err
		}
	}

	return fn(ctx)
}
