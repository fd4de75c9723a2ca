package repository

import (
	"context"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/store"
)

// StageRepository reads and writes stages
type StageRepository interface {
	// List returns the stages of stageType in creation order, or all stages
	// when stageType is empty.
	List(ctx context.Context, stageType models.StageType) ([]models.Stage, error)
	Get(ctx context.Context, id string) (*models.Stage, error)
	Create(ctx context.Context, payload Payload) (*models.Stage, error)
	Update(ctx context.Context, id string, payload Payload) (*models.Stage, error)
	Delete(ctx context.Context, id string) error
}

type stageRepository struct {
	records[models.Stage]
}

// NewStageRepository creates a StageRepository on top of s
func NewStageRepository(s RecordStore) StageRepository {
	return &stageRepository{records[models.Stage]{store: s, collection: models.StageCollection}}
}

func (r *stageRepository) List(ctx context.Context, stageType models.StageType) ([]models.Stage, error) {
	opts := store.ListOptions{Sort: "created"}
	if stageType != "" {
		opts.Filter = store.Filter("type = {:type}", map[string]interface{}{"type": stageType})
	}
	return r.list(ctx, opts)
}

func (r *stageRepository) Get(ctx context.Context, id string) (*models.Stage, error) {
	return r.get(ctx, id)
}

func (r *stageRepository) Create(ctx context.Context, payload Payload) (*models.Stage, error) {
	return r.create(ctx, payload)
}

func (r *stageRepository) Update(ctx context.Context, id string, payload Payload) (*models.Stage, error) {
	return r.update(ctx, id, payload)
}

func (r *stageRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
