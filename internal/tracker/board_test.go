package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekey/stage-tracker/internal/models"
)

// fakeAPI serves stages per type from memory. ListStages for a type blocks
// while a gate for that type is installed.
type fakeAPI struct {
	mu       sync.Mutex
	stages   map[models.StageType][]models.Stage
	tasks    []models.Task
	stageErr error
	patchErr error
	gates    map[models.StageType]chan struct{}
	entered  chan models.StageType
	patches  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		stages: map[models.StageType][]models.Stage{
			models.StageTypeBuyer:  {{ID: "b1", Type: models.StageTypeBuyer, Title: "Define Goals"}},
			models.StageTypeSeller: {{ID: "s1", Type: models.StageTypeSeller, Title: "Prep & Repairs"}},
		},
		tasks: []models.Task{
			{ID: "t1", Title: "Set budget", StageIDs: []string{"b1"}},
			{ID: "t2", Title: "Fix roof", StageIDs: []string{"s1"}},
		},
		gates:   map[models.StageType]chan struct{}{},
		entered: make(chan models.StageType, 4),
	}
}

func (f *fakeAPI) ListStages(ctx context.Context, stageType models.StageType) ([]models.Stage, error) {
	f.mu.Lock()
	gate := f.gates[stageType]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- stageType
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	out := make([]models.Stage, len(f.stages[stageType]))
	copy(out, f.stages[stageType])
	return out, nil
}

func (f *fakeAPI) ListTasks(ctx context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeAPI) SetStageCompleted(ctx context.Context, id string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches = append(f.patches, "stage:"+id)
	for st, stages := range f.stages {
		for i := range stages {
			if stages[i].ID == id {
				f.stages[st][i].IsCompleted = completed
			}
		}
	}
	return nil
}

func (f *fakeAPI) SetTaskCompleted(ctx context.Context, id string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches = append(f.patches, "task:"+id)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].IsCompleted = completed
		}
	}
	return nil
}

func TestBoard_Refresh(t *testing.T) {
	board := NewBoard(newFakeAPI(), models.StageTypeBuyer, nil)
	assert.Equal(t, StateLoading, board.Snapshot().State)

	require.NoError(t, board.Refresh(context.Background()))

	snap := board.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, "b1", snap.Stages[0].ID)
	require.Len(t, snap.Stages[0].Tasks, 1)
	assert.Equal(t, "t1", snap.Stages[0].Tasks[0].ID)
}

func TestBoard_FailureKeepsPreviousStages(t *testing.T) {
	api := newFakeAPI()
	board := NewBoard(api, models.StageTypeBuyer, nil)
	require.NoError(t, board.Refresh(context.Background()))

	api.mu.Lock()
	api.stageErr = errors.New("connection refused")
	api.mu.Unlock()

	assert.Error(t, board.Refresh(context.Background()))
	snap := board.Snapshot()
	assert.Equal(t, StateLoaded, snap.State, "loading cleared on failure")
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, "b1", snap.Stages[0].ID)
}

func TestBoard_SetType(t *testing.T) {
	board := NewBoard(newFakeAPI(), models.StageTypeBuyer, nil)
	require.NoError(t, board.SetType(context.Background(), models.StageTypeSeller))

	snap := board.Snapshot()
	assert.Equal(t, models.StageTypeSeller, snap.Type)
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, "s1", snap.Stages[0].ID)
	assert.Equal(t, "t2", snap.Stages[0].Tasks[0].ID)
}

func TestBoard_StaleRefreshDiscarded(t *testing.T) {
	api := newFakeAPI()
	gate := make(chan struct{})
	api.gates[models.StageTypeBuyer] = gate

	board := NewBoard(api, models.StageTypeBuyer, nil)

	done := make(chan error, 1)
	go func() { done <- board.Refresh(context.Background()) }()
	require.Equal(t, models.StageTypeBuyer, <-api.entered)

	require.NoError(t, board.SetType(context.Background(), models.StageTypeSeller))
	close(gate)
	require.NoError(t, <-done)

	snap := board.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, "s1", snap.Stages[0].ID, "older buyer refresh must not overwrite seller stages")
}

func TestBoard_ToggleStageRoundTrip(t *testing.T) {
	api := newFakeAPI()
	board := NewBoard(api, models.StageTypeBuyer, nil)
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	require.NoError(t, board.ToggleStage(ctx, "b1"))
	assert.True(t, board.Snapshot().Stages[0].IsCompleted)
	assert.Equal(t, 100, OverallPercent(board.Snapshot().StageRecords()))

	require.NoError(t, board.ToggleStage(ctx, "b1"))
	assert.False(t, board.Snapshot().Stages[0].IsCompleted)
	assert.Equal(t, []string{"stage:b1", "stage:b1"}, api.patches)
}

func TestBoard_ToggleTask(t *testing.T) {
	api := newFakeAPI()
	board := NewBoard(api, models.StageTypeBuyer, nil)
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	require.NoError(t, board.ToggleTask(ctx, "t1"))
	assert.True(t, board.Snapshot().Stages[0].Tasks[0].IsCompleted)
}

func TestBoard_ToggleErrors(t *testing.T) {
	api := newFakeAPI()
	board := NewBoard(api, models.StageTypeBuyer, nil)
	ctx := context.Background()
	require.NoError(t, board.Refresh(ctx))

	assert.ErrorIs(t, board.ToggleStage(ctx, "missing"), ErrUnknownRecord)
	assert.ErrorIs(t, board.ToggleTask(ctx, "t2"), ErrUnknownRecord, "task of another type is not on the board")

	api.patchErr = errors.New("500")
	assert.Error(t, board.ToggleStage(ctx, "b1"))
	assert.False(t, board.Snapshot().Stages[0].IsCompleted)
}
