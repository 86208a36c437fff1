package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/distillkb/distill/internal/service"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// batchProgressMsg carries a progress update from the drain goroutine.
type batchProgressMsg struct {
	done  int
	total int
}

// batchDoneMsg carries the final outcome of the drain.
type batchDoneMsg struct {
	stats *service.WorkerStats
	err   error
}

// batchModel is the bubbletea model for an inbox drain.
type batchModel struct {
	progress progress.Model
	theme    Theme
	done     int
	total    int
	stats    *service.WorkerStats
	finished bool
	quitting bool
	cancel   context.CancelFunc
	err      error
}

func newBatchModel(cancel context.CancelFunc) batchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return batchModel{
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
	}
}

// Init returns the initial command.
func (m batchModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case batchProgressMsg:
		m.done = msg.done
		m.total = msg.total
		return m, nil

	case batchDoneMsg:
		m.finished = true
		m.stats = msg.stats
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m batchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m batchModel) renderContent() string {
	if m.finished || m.quitting {
		return m.finalView()
	}

	if m.total == 0 {
		return "Scanning inbox...\n"
	}

	pct := float64(m.done) / float64(m.total)
	status := m.theme.statusStyle().Render("[processing]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d items", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

func (m batchModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nStopped. Remaining items stay PENDING; run the worker again to finish.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Worker failed: %s\n", m.err))
	}

	if m.stats != nil {
		var output string
		output += m.theme.completedStyle().Render("✓ Inbox drained") + "\n\n"
		output += fmt.Sprintf("  Processed: %d\n", m.stats.Processed)
		output += fmt.Sprintf("  Skipped:   %d\n", m.stats.Skipped)
		if m.stats.Failed > 0 {
			output += m.theme.errorStyle().Render(fmt.Sprintf("  Failed:    %d\n", m.stats.Failed))
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Inbox drained\n")
}

// RunBatchProgress drains the pending inbox while rendering an interactive
// progress bar. Ctrl+C cancels the drain; already-claimed items finish.
func RunBatchProgress(ctx context.Context, svc *service.Service, concurrency int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newBatchModel(cancel)
	p := tea.NewProgram(model)

	go func() {
		stats, err := svc.ProcessPending(ctx, concurrency, func(done, total int) {
			p.Send(batchProgressMsg{done: done, total: total})
		})
		p.Send(batchDoneMsg{stats: stats, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(batchModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
