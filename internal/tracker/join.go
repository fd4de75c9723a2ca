package tracker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/homekey/stage-tracker/internal/models"
)

// StageView is a stage together with the tasks that reference it
type StageView struct {
	models.Stage
	Tasks []models.Task `json:"tasks"`
}

// Join attaches to each stage the tasks whose relation field
// (models.RelationField) contains the stage id. Stage order and task order
// are preserved; a task naming several stages appears under each. The cost is
// O(len(stages) × len(tasks)).
func Join(stages []models.Stage, tasks []models.Task) []StageView {
	views := make([]StageView, 0, len(stages))
	for _, s := range stages {
		view := StageView{Stage: s, Tasks: []models.Task{}}
		for _, t := range tasks {
			if t.BelongsTo(s.ID) {
				view.Tasks = append(view.Tasks, t)
			}
		}
		views = append(views, view)
	}
	return views
}

// Fetcher is the read side of the API the loader needs
type Fetcher interface {
	ListStages(ctx context.Context, stageType models.StageType) ([]models.Stage, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// Load fetches the stages of stageType and all tasks concurrently and joins
// them once both have arrived. Either failure fails the whole load.
func Load(ctx context.Context, api Fetcher, stageType models.StageType) ([]StageView, error) {
	var (
		stages []models.Stage
		tasks  []models.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = api.ListStages(gctx, stageType)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = api.ListTasks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Join(stages, tasks), nil
}
