package pipelines

import (
	"context"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/etl/extract"
	"github.com/AlexPunches/1x-fit/internal/etl/load"
	"github.com/AlexPunches/1x-fit/internal/etl/transform"
	"github.com/AlexPunches/1x-fit/internal/logging"
)

// Facts refreshes the dimension tables and appends new weight and activity facts.
// The existing key sets are read once per run and source tables are paged, so
// memory holds one batch plus the key sets.
type Facts struct {
	deps Deps

	users         *extract.UserExtractor
	activityTypes *extract.ActivityTypeExtractor
	weights       *extract.WeightExtractor
	activities    *extract.ActivityExtractor

	userDims     *load.UserDimensionLoader
	activityDims *load.ActivityDimensionLoader
	weightFacts  *load.WeightFactLoader
	activityData *load.ActivityFactLoader
}

func NewFacts(deps Deps) *Facts {
	size := deps.batchSize()
	f := &Facts{
		deps:          deps,
		users:         extract.NewUserExtractor(deps.Source),
		activityTypes: extract.NewActivityTypeExtractor(deps.Source),
		weights:       extract.NewWeightExtractor(deps.Source),
		activities:    extract.NewActivityExtractor(deps.Source),
		userDims:      load.NewUserDimensionLoader(deps.Analytics),
		activityDims:  load.NewActivityDimensionLoader(deps.Analytics),
		weightFacts:   load.NewWeightFactLoader(deps.Analytics),
		activityData:  load.NewActivityFactLoader(deps.Analytics),
	}
	f.userDims.BatchSize = size
	f.activityDims.BatchSize = size
	f.weightFacts.BatchSize = size
	f.activityData.BatchSize = size
	return f
}

func (p *Facts) Name() string { return FactsPipeline }

func (p *Facts) Run(ctx context.Context) (etl.RunStats, error) {
	stats := etl.NewRunStats()
	log := logging.FromContext(ctx)
	resources := []etl.Connector{
		p.users, p.activityTypes, p.weights, p.activities,
		p.userDims, p.activityDims, p.weightFacts, p.activityData,
	}

	err := etl.WithConnections(ctx, log, resources, func(ctx context.Context) error {
		userIDs, activityIDs, err := p.loadDimensions(ctx, &stats)
		if err != nil {
			return err
		}

		weightKeys, err := p.weightFacts.ExistingKeys(ctx)
		if err != nil {
			return err
		}
		activityKeys, err := p.activityData.ExistingKeys(ctx)
		if err != nil {
			return err
		}

		weights := transform.NewWeightFacts(userIDs, weightKeys)
		extracted, loaded, err := pageThrough(ctx, p.deps.batchSize(), p.weights, weights, p.weightFacts)
		if err != nil {
			return err
		}
		stats.Extracted["weight_records"] = extracted
		stats.Loaded["weight_data"] = loaded

		activities := transform.NewActivityFacts(userIDs, activityIDs, activityKeys)
		extracted, loaded, err = pageThrough(ctx, p.deps.batchSize(), p.activities, activities, p.activityData)
		if err != nil {
			return err
		}
		stats.Extracted["activity_records"] = extracted
		stats.Loaded["activity_data"] = loaded

		stats.Skipped = weights.Skipped() + activities.Skipped()
		log.Info("facts loaded",
			"weight_data", stats.Loaded["weight_data"],
			"activity_data", stats.Loaded["activity_data"],
			"skipped", stats.Skipped)
		return nil
	})
	return stats, err
}

func (p *Facts) loadDimensions(ctx context.Context, stats *etl.RunStats) ([]int64, []int64, error) {
	users, err := p.users.Extract(ctx)
	if err != nil {
		return nil, nil, err
	}
	stats.Extracted["users"] = len(users)
	if err := p.userDims.Load(ctx, transform.UserDimensions(users)); err != nil {
		return nil, nil, err
	}
	stats.Loaded["users"] = len(users)

	types, err := p.activityTypes.Extract(ctx)
	if err != nil {
		return nil, nil, err
	}
	stats.Extracted["activity_types"] = len(types)
	if err := p.activityDims.Load(ctx, transform.ActivityDimensions(types)); err != nil {
		return nil, nil, err
	}
	stats.Loaded["activities"] = len(types)

	userIDs := make([]int64, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	activityIDs := make([]int64, 0, len(types))
	for _, t := range types {
		activityIDs = append(activityIDs, t.ID)
	}
	return userIDs, activityIDs, nil
}

// pageThrough reads the source in offset order until a short batch, loading
// only the facts the transformer has not seen before.
func pageThrough[In, Out any](
	ctx context.Context,
	size int,
	src etl.BatchExtractor[In],
	tr etl.Transformer[In, Out],
	dst etl.Loader[Out],
) (extracted, loaded int, err error) {
	for offset := 0; ; offset += size {
		if err := ctx.Err(); err != nil {
			return extracted, loaded, err
		}

		batch, err := src.ExtractBatch(ctx, offset, size)
		if err != nil {
			return extracted, loaded, err
		}
		extracted += len(batch)

		out := tr.Transform(ctx, batch)
		if err := dst.Load(ctx, out); err != nil {
			return extracted, loaded, err
		}
		loaded += len(out)

		if len(batch) < size {
			return extracted, loaded, nil
		}
	}
}
