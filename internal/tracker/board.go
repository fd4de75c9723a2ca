package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/pkg/observability"
)

// ErrUnknownRecord is returned when toggling an id the board does not hold
var ErrUnknownRecord = errors.New("record not on board")

// API is the part of the stage tracker API the board drives
type API interface {
	Fetcher
	SetStageCompleted(ctx context.Context, id string, completed bool) error
	SetTaskCompleted(ctx context.Context, id string, completed bool) error
}

// State is the load state of a board
type State int

// Board states
const (
	StateLoading State = iota
	StateLoaded
)

// String implements fmt.Stringer
func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "loaded"
}

// Snapshot is a consistent copy of the board's state
type Snapshot struct {
	Type   models.StageType
	State  State
	Stages []StageView
}

// StageRecords returns the stages without their tasks
func (s Snapshot) StageRecords() []models.Stage {
	out := make([]models.Stage, 0, len(s.Stages))
	for _, v := range s.Stages {
		out = append(out, v.Stage)
	}
	return out
}

// Board holds the stages of the selected type with their tasks. It only
// ever reflects server state: toggles are written through and followed by a
// full reload.
type Board struct {
	api    API
	logger observability.Logger

	mu        sync.Mutex
	stageType models.StageType
	state     State
	stages    []StageView
	// generation counts started refreshes; only the latest may publish
	generation uint64
}

// NewBoard creates a board for stageType. It starts in the loading state
// until the first Refresh completes.
func NewBoard(api API, stageType models.StageType, logger observability.Logger) *Board {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Board{
		api:       api,
		logger:    logger,
		stageType: stageType,
		state:     StateLoading,
		stages:    []StageView{},
	}
}

// Snapshot returns the current state
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	stages := make([]StageView, len(b.stages))
	copy(stages, b.stages)
	return Snapshot{Type: b.stageType, State: b.state, Stages: stages}
}

// SetType selects another stage type and reloads
func (b *Board) SetType(ctx context.Context, stageType models.StageType) error {
	b.mu.Lock()
	b.stageType = stageType
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Refresh reloads the board. On failure the error is logged and returned and
// the previous stages are kept. A refresh overtaken by a later one discards
// its result.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	stageType := b.stageType
	b.state = StateLoading
	b.mu.Unlock()

	views, err := Load(ctx, b.api, stageType)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		b.logger.Debug("Discarding stale refresh", map[string]interface{}{
			"type":       stageType.String(),
			"generation": gen,
		})
		return nil
	}
	b.state = StateLoaded
	if err != nil {
		b.logger.Error("Refresh failed", map[string]interface{}{
			"type":  stageType.String(),
			"error": err,
		})
		return err
	}
	b.stages = views
	return nil
}

// ToggleStage flips the completion flag of a stage on the server and reloads
func (b *Board) ToggleStage(ctx context.Context, id string) error {
	current, ok := b.stageCompleted(id)
	if !ok {
		return fmt.Errorf("stage %s: %w", id, ErrUnknownRecord)
	}
	if err := b.api.SetStageCompleted(ctx, id, !current); err != nil {
		b.logger.Error("Stage toggle failed", map[string]interface{}{"stage_id": id, "error": err})
		return err
	}
	return b.Refresh(ctx)
}

// ToggleTask flips the completion flag of a task on the server and reloads
func (b *Board) ToggleTask(ctx context.Context, id string) error {
	current, ok := b.taskCompleted(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrUnknownRecord)
	}
	if err := b.api.SetTaskCompleted(ctx, id, !current); err != nil {
		b.logger.Error("Task toggle failed", map[string]interface{}{"task_id": id, "error": err})
		return err
	}
	return b.Refresh(ctx)
}

func (b *Board) stageCompleted(id string) (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.stages {
		if s.ID == id {
			return s.IsCompleted, true
		}
	}
	return false, false
}

func (b *Board) taskCompleted(id string) (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.stages {
		for _, t := range s.Tasks {
			if t.ID == id {
				return t.IsCompleted, true
			}
		}
	}
	return false, false
}
