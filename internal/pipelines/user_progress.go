package pipelines

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/etl/extract"
	"github.com/AlexPunches/1x-fit/internal/etl/load"
	"github.com/AlexPunches/1x-fit/internal/etl/transform"
	"github.com/AlexPunches/1x-fit/internal/logging"
)

// UserProgress recomputes every participant's progress summary.
type UserProgress struct {
	deps    Deps
	users   *extract.UserExtractor
	weights *extract.WeightExtractor
	loader  *load.UserProgressLoader
}

func NewUserProgress(deps Deps) *UserProgress {
	loader := load.NewUserProgressLoader(deps.Analytics)
	loader.BatchSize = deps.batchSize()
	return &UserProgress{
		deps:    deps,
		users:   extract.NewUserExtractor(deps.Source),
		weights: extract.NewWeightExtractor(deps.Source),
		loader:  loader,
	}
}

func (p *UserProgress) Name() string { return UsersPipeline }

func (p *UserProgress) Run(ctx context.Context) (etl.RunStats, error) {
	stats := etl.NewRunStats()
	log := logging.FromContext(ctx)
	resources := []etl.Connector{p.users, p.weights, p.loader}

	err := etl.WithConnections(ctx, log, resources, func(ctx context.Context) error {
		users, err := p.users.Extract(ctx)
		if err != nil {
			return err
		}
		stats.Extracted["users"] = len(users)

		records, err := p.weights.Extract(ctx)
		if err != nil {
			return err
		}
		stats.Extracted["weight_records"] = len(records)

		tr := transform.NewUserTransformer()
		out := tr.Transform(ctx, transform.Merge(users, records))
		stats.Skipped = tr.Skipped()

		if err := p.loader.Load(ctx, out); err != nil {
			return err
		}
		stats.Loaded["users"] = len(out)

		log.Info("user progress loaded", "users", len(out), "skipped", stats.Skipped)
		return nil
	})
	return stats, err
}
