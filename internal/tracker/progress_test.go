package tracker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/homekey/stage-tracker/internal/models"
)

func TestOverallPercent(t *testing.T) {
	assert.Equal(t, 0, OverallPercent(nil), "no stages is 0, not NaN")
	assert.Equal(t, 0, OverallPercent([]models.Stage{}))

	stages := []models.Stage{{IsCompleted: true}, {}, {}}
	assert.Equal(t, 33, OverallPercent(stages))

	stages = []models.Stage{{IsCompleted: true}, {IsCompleted: true}, {}}
	assert.Equal(t, 67, OverallPercent(stages))

	stages = []models.Stage{{IsCompleted: true}, {}}
	assert.Equal(t, 50, OverallPercent(stages))
}

func TestTaskPercent(t *testing.T) {
	assert.Equal(t, 0, TaskPercent(nil))
	assert.Equal(t, 25, TaskPercent([]models.Task{{IsCompleted: true}, {}, {}, {}}))
}

func TestPercentFaster(t *testing.T) {
	tests := []struct {
		duration, traditional float64
		want                  int
	}{
		{7, 14, 50},
		{5, 10, 50},
		{3, 7, 57},
		{10, 21, 52},
		{2, 5, 60},
		{14, 14, 0},
		{20, 10, -100},
		{3, 0, 0},
		{3.5, 7, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentFaster(tt.duration, tt.traditional), "%g vs %g", tt.duration, tt.traditional)
	}
}

func TestDurationBar(t *testing.T) {
	assert.Equal(t, 50, DurationBar(7, 14))
	assert.Equal(t, 43, DurationBar(3, 7))
	assert.Equal(t, 100, DurationBar(30, 14), "capped")
	assert.Equal(t, 0, DurationBar(3, 0))
	assert.Equal(t, 0, DurationBar(-3, 10), "negative duration floors at 0")
	assert.Equal(t, 25, DurationBar(2.5, 10))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 1, roundHalfUp(0.5))
	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, 0, roundHalfUp(-0.5))
	assert.Equal(t, 2, roundHalfUp(2.49))
}

func TestTotalDurationAndGantt(t *testing.T) {
	stages := []models.Stage{
		{ID: "a", Title: "Define Goals", Duration: 7, TraditionalDuration: 14},
		{ID: "b", Title: "Mortgage Shopping", Duration: 3, TraditionalDuration: 6},
	}
	assert.Equal(t, 10.0, TotalDuration(stages, true))
	assert.Equal(t, 20.0, TotalDuration(stages, false))

	want := []GanttBar{
		{StageID: "a", Title: "Define Goals", AssistedOffset: 0, AssistedWidth: 35, TraditionalOffset: 0, TraditionalWidth: 70},
		{StageID: "b", Title: "Mortgage Shopping", AssistedOffset: 35, AssistedWidth: 15, TraditionalOffset: 70, TraditionalWidth: 30},
	}
	if diff := cmp.Diff(want, Gantt(stages), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Gantt() mismatch (-want +got):\n%s", diff)
	}
}

func TestGantt_ZeroTotal(t *testing.T) {
	bars := Gantt([]models.Stage{{ID: "a"}})
	assert.Equal(t, []GanttBar{{StageID: "a"}}, bars)
	assert.Empty(t, Gantt(nil))
}
