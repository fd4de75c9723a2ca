package repository

import (
	"context"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/store"
)

// TaskRepository reads and writes tasks
type TaskRepository interface {
	// List returns the tasks referencing stageID, or all tasks when stageID is empty
	List(ctx context.Context, stageID string) ([]models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, payload Payload) (*models.Task, error)
	Update(ctx context.Context, id string, payload Payload) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

type taskRepository struct {
	records[models.Task]
}

// NewTaskRepository creates a TaskRepository on top of s
func NewTaskRepository(s RecordStore) TaskRepository {
	return &taskRepository{records[models.Task]{store: s, collection: models.TaskCollection}}
}

func (r *taskRepository) List(ctx context.Context, stageID string) ([]models.Task, error) {
	opts := store.ListOptions{Sort: "created"}
	if stageID != "" {
		opts.Filter = store.Filter(models.RelationField+" ?= {:stageId}", map[string]interface{}{"stageId": stageID})
	}
	return r.list(ctx, opts)
}

func (r *taskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	return r.get(ctx, id)
}

func (r *taskRepository) Create(ctx context.Context, payload Payload) (*models.Task, error) {
	return r.create(ctx, payload)
}

func (r *taskRepository) Update(ctx context.Context, id string, payload Payload) (*models.Task, error) {
	return r.update(ctx, id, payload)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
