// Package pipelines wires extractors, transformers and loaders into the named
// analytics views run by the scheduler.
package pipelines

import "github.com/AlexPunches/1x-fit/internal/etl"

const (
	UsersPipeline = "users"
	FactsPipeline = "facts"

	defaultBatchSize = 1000
)

// Deps are the store handles and settings shared by every view.
type Deps struct {
	Source    etl.Opener
	Analytics etl.Opener
	BatchSize int
}

func (d Deps) batchSize() int {
	if d.BatchSize <= 0 {
		return defaultBatchSize
	}
	return d.BatchSize
}

// Register adds every analytics view to the registry.
func Register(r *etl.Registry, deps Deps) error {
	if err := r.Register(UsersPipeline, func() etl.Pipeline { return NewUserProgress(deps) }); err != nil {
		return err
	}
	return r.Register(FactsPipeline, func() etl.Pipeline { return NewFacts(deps) })
}
