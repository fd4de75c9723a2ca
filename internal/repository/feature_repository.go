package repository

import (
	"context"
	"errors"
	"time"

	"github.com/homekey/stage-tracker/internal/cache"
	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/store"
	"github.com/homekey/stage-tracker/pkg/observability"
)

const featureCacheName = "features"

// FeatureRepository reads the display-only feature list
type FeatureRepository interface {
	// List returns the features for role, or all features when role is empty
	List(ctx context.Context, role models.StageType) ([]models.Feature, error)
}

type featureRepository struct {
	records[models.Feature]
	cache   cache.Cache
	ttl     time.Duration
	logger  observability.Logger
	metrics *observability.Metrics
}

// NewFeatureRepository creates a FeatureRepository reading through c.
// A nil cache disables caching.
func NewFeatureRepository(s RecordStore, c cache.Cache, ttl time.Duration, logger observability.Logger, metrics *observability.Metrics) FeatureRepository {
	if c == nil {
		c = cache.NoopCache{}
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &featureRepository{
		records: records[models.Feature]{store: s, collection: models.FeatureCollection},
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (r *featureRepository) List(ctx context.Context, role models.StageType) ([]models.Feature, error) {
	key := "features:" + role.String()

	var cached []models.Feature
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		r.metrics.RecordCacheLookup(featureCacheName, true)
		return cached, nil
	}
	r.metrics.RecordCacheLookup(featureCacheName, false)
	if !errors.Is(err, cache.ErrNotFound) {
		r.logger.Warn("Feature cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	opts := store.ListOptions{Sort: "created"}
	if role != "" {
		opts.Filter = store.Filter("type = {:role}", map[string]interface{}{"role": role})
	}
	features, err := r.list(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, features, r.ttl); err != nil {
		r.logger.Warn("Feature cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return features, nil
}
