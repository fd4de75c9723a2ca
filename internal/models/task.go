package models

// RelationField is the task field referencing the owning stage ids.
// It is the join key between tasks and stages.
const RelationField = "field"

// TaskCollection is the store collection holding tasks
const TaskCollection = "tasks"

// Task is a checklist item belonging to a stage
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	// StageIDs is multi-valued in the store although seeded tasks always
	// reference exactly one stage.
	StageIDs []string `json:"field"`
	Created  string   `json:"created,omitempty"`
	Updated  string   `json:"updated,omitempty"`
}

// BelongsTo reports whether the task's relation field contains stageID
func (t Task) BelongsTo(stageID string) bool {
	for _, id := range t.StageIDs {
		if id == stageID {
			return true
		}
	}
	return false
}
