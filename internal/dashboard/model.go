// Package dashboard renders the stage tracker in the terminal. It owns no
// business logic: state lives in tracker.Board and every change is a round
// trip to the API followed by a reload.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/tracker"
)

const requestTimeout = 15 * time.Second

// refreshedMsg reports that a board operation finished
type refreshedMsg struct {
	err error
}

// row is one selectable line: a stage, or a task when task >= 0
type row struct {
	stage int
	task  int
}

// Model is the bubbletea model of the dashboard
type Model struct {
	ctx   context.Context
	board *tracker.Board

	stageType models.StageType
	snapshot  tracker.Snapshot
	rows      []row
	cursor    int
	loading   bool

	spinner  spinner.Model
	progress progress.Model
	width    int
	quitting bool
}

// New creates a dashboard model driving board. ctx bounds every request.
func New(ctx context.Context, board *tracker.Board) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	snap := board.Snapshot()
	return Model{
		ctx:       ctx,
		board:     board,
		stageType: snap.Type,
		snapshot:  snap,
		loading:   true,
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(m.board.Refresh))
}

// run wraps a board operation into a command reporting refreshedMsg
func (m Model) run(op func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return refreshedMsg{err: op(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshedMsg:
		// A superseded refresh completes while the board is still loading.
		m.snapshot = m.board.Snapshot()
		m.loading = m.snapshot.State == tracker.StateLoading
		m.stageType = m.snapshot.Type
		m.rows = buildRows(m.snapshot.Stages)
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		next := models.StageTypeSeller
		if m.stageType == models.StageTypeSeller {
			next = models.StageTypeBuyer
		}
		m.stageType = next
		m.cursor = 0
		m.loading = true
		return m, m.run(func(ctx context.Context) error { return m.board.SetType(ctx, next) })

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "r":
		m.loading = true
		return m, m.run(m.board.Refresh)

	case " ", "enter":
		if m.loading || len(m.rows) == 0 {
			return m, nil
		}
		r := m.rows[m.cursor]
		stage := m.snapshot.Stages[r.stage]
		m.loading = true
		if r.task < 0 {
			return m, m.run(func(ctx context.Context) error { return m.board.ToggleStage(ctx, stage.ID) })
		}
		taskID := stage.Tasks[r.task].ID
		return m, m.run(func(ctx context.Context) error { return m.board.ToggleTask(ctx, taskID) })
	}
	return m, nil
}

func buildRows(stages []tracker.StageView) []row {
	var rows []row
	for i, s := range stages {
		rows = append(rows, row{stage: i, task: -1})
		for j := range s.Tasks {
			rows = append(rows, row{stage: i, task: j})
		}
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Homekey stage tracker"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.loading && len(m.snapshot.Stages) == 0 {
		b.WriteString(m.spinner.View() + " Loading…\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	percent := tracker.OverallPercent(m.snapshot.StageRecords())
	fmt.Fprintf(&b, "Overall progress %s %d%%", m.progress.ViewAs(float64(percent)/100), percent)
	if m.loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if len(m.snapshot.Stages) == 0 {
		b.WriteString(mutedStyle.Render("No stages."))
		b.WriteString("\n")
	}

	for i, r := range m.rows {
		stage := m.snapshot.Stages[r.stage]
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		if r.task < 0 {
			b.WriteString(pointer + renderStage(stage))
			continue
		}
		task := stage.Tasks[r.task]
		b.WriteString(pointer + "    " + checkbox(task.IsCompleted) + " " + task.Title + "\n")
	}

	b.WriteString(helpStyle.Render("tab switch • ↑/↓ move • space toggle • r refresh • q quit"))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(models.StageTypes))
	for _, t := range models.StageTypes {
		label := strings.ToUpper(t.String()[:1]) + t.String()[1:] + "s"
		if t == m.stageType {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func renderStage(s tracker.StageView) string {
	var b strings.Builder
	title := s.Title
	if s.IsCompleted {
		title = completedStyle.Render(title)
	}
	fmt.Fprintf(&b, "%s %s", checkbox(s.IsCompleted), title)
	if len(s.Tasks) > 0 {
		fmt.Fprintf(&b, " %s", mutedStyle.Render(fmt.Sprintf("(%d%% of tasks)", tracker.TaskPercent(s.Tasks))))
	}
	b.WriteString("\n")
	if s.AIBenefit != "" {
		b.WriteString("      " + benefitStyle.Render(s.AIBenefit) + "\n")
	}
	if s.TraditionalDuration > 0 {
		bar := tracker.DurationBar(s.Duration, s.TraditionalDuration)
		filled := bar / 5
		fmt.Fprintf(&b, "      %s%s With AI %gd vs. Traditional %gd (%d%% faster)\n",
			strings.Repeat("█", filled), strings.Repeat("░", 20-filled),
			s.Duration, s.TraditionalDuration,
			tracker.PercentFaster(s.Duration, s.TraditionalDuration))
	}
	return b.String()
}

func checkbox(done bool) string {
	if done {
		return completedStyle.Render("[x]")
	}
	return "[ ]"
}

// Run starts the dashboard and blocks until the user quits
func Run(ctx context.Context, board *tracker.Board) error {
	_, err := tea.NewProgram(New(ctx, board), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
