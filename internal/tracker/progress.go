package tracker

import (
	"math"

	"github.com/homekey/stage-tracker/internal/models"
)

// roundHalfUp rounds halves towards positive infinity
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// OverallPercent is the share of completed stages, 0 when there are none
func OverallPercent(stages []models.Stage) int {
	if len(stages) == 0 {
		return 0
	}
	completed := 0
	for _, s := range stages {
		if s.IsCompleted {
			completed++
		}
	}
	return roundHalfUp(float64(completed) / float64(len(stages)) * 100)
}

// TaskPercent is the share of completed tasks, 0 when there are none
func TaskPercent(tasks []models.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.IsCompleted {
			completed++
		}
	}
	return roundHalfUp(float64(completed) / float64(len(tasks)) * 100)
}

// PercentFaster is how much shorter duration is than traditional, in percent
func PercentFaster(duration, traditional float64) int {
	if traditional <= 0 {
		return 0
	}
	return roundHalfUp((1 - duration/traditional) * 100)
}

// DurationBar is the width of the assisted-duration bar relative to the
// traditional duration, clamped to [0, 100].
func DurationBar(duration, traditional float64) int {
	if traditional <= 0 {
		return 0
	}
	bar := roundHalfUp(duration / traditional * 100)
	return min(max(bar, 0), 100)
}

// TotalDuration sums the assisted or traditional durations in days
func TotalDuration(stages []models.Stage, withAssist bool) float64 {
	var total float64
	for _, s := range stages {
		if withAssist {
			total += s.Duration
		} else {
			total += s.TraditionalDuration
		}
	}
	return total
}

// GanttBar positions one stage on the comparison chart. All values are
// percentages of the total traditional duration.
type GanttBar struct {
	StageID           string
	Title             string
	AssistedOffset    float64
	AssistedWidth     float64
	TraditionalOffset float64
	TraditionalWidth  float64
}

// Gantt lays the stages out end to end on a shared axis spanning the total
// traditional duration, once with assisted and once with traditional
// durations. With a zero total every bar is empty.
func Gantt(stages []models.Stage) []GanttBar {
	total := TotalDuration(stages, false)
	bars := make([]GanttBar, 0, len(stages))

	var assistedSoFar, traditionalSoFar float64
	for _, s := range stages {
		bar := GanttBar{StageID: s.ID, Title: s.Title}
		if total > 0 {
			bar.AssistedOffset = assistedSoFar / total * 100
			bar.AssistedWidth = s.Duration / total * 100
			bar.TraditionalOffset = traditionalSoFar / total * 100
			bar.TraditionalWidth = s.TraditionalDuration / total * 100
		}
		bars = append(bars, bar)
		assistedSoFar += s.Duration
		traditionalSoFar += s.TraditionalDuration
	}
	return bars
}
