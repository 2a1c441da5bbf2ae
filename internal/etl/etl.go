// Package etl defines the roles of the extract-transform-load pipeline and the
// plumbing shared by every analytics view: connection lifecycle, typed errors,
// and the registry that maps view names to pipelines.
package etl

import "context"

// Connector is a resource that holds a store handle for the duration of a run.
// Connect must be idempotent; Disconnect must be safe when Connect never completed.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Extractor reads one entity from the operational store.
type Extractor[T any] interface {
	Connector
	Extract(ctx context.Context) ([]T, error)
}

// BatchExtractor pages through a large source table in a stable order.
type BatchExtractor[T any] interface {
	Extractor[T]
	ExtractBatch(ctx context.Context, offset, limit int) ([]T, error)
}

// Transformer turns extracted records into analytics rows. Records that cannot be
// transformed are dropped (and logged) rather than failing the batch.
type Transformer[In, Out any] interface {
	Transform(ctx context.Context, in []In) []Out
}

// Loader writes analytics rows. Loading an empty slice must not touch the store.
type Loader[T any] interface {
	Connector
	Load(ctx context.Context, records []T) error
}

// Pipeline is one named analytics view.
type Pipeline interface {
	Name() string
	Run(ctx context.Context) (RunStats, error)
}

// RunStats summarises one pipeline run. It is persisted as JSON with the run record.
type RunStats struct {
	Extracted map[string]int `json:"extracted"`
	Loaded    map[string]int `json:"loaded"`
	Skipped   int            `json:"skipped"`
}

func NewRunStats() RunStats {
	return RunStats{
		Extracted: make(map[string]int),
		Loaded:    make(map[string]int),
	}
}

// TotalLoaded sums rows written across all tables.
func (s RunStats) TotalLoaded() int {
	total := 0
	for _, n := range s.Loaded {
		total += n
	}
	return total
}
