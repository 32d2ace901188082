package progress

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/helpdesk-sync/internal/model"
	syncpkg "github.com/nhle/helpdesk-sync/internal/sync"
	"github.com/nhle/helpdesk-sync/internal/theme"
)

// eventMsg wraps a runner event for the Bubble Tea runtime.
type eventMsg struct {
	event syncpkg.Event
	ok    bool
}

// Model is the live sync progress view. It subscribes to a runner's
// event channel and renders a spinner with batch/document counters
// until the run finishes.
type Model struct {
	events <-chan syncpkg.Event

	source    model.SourceType
	mode      model.SyncMode
	batches   int
	documents int
	done      bool
	err       error

	spinner spinner.Model
	width   int
}

// New creates a progress view subscribed to the given event channel.
func New(events <-chan syncpkg.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		events:  events,
		spinner: sp,
		width:   60,
	}
}

// Init starts the spinner and subscribes to runner events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// Update handles spinner ticks, runner events, and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}

		ev := msg.event
		m.source = ev.Source
		m.mode = ev.Mode
		m.batches = ev.Batches
		m.documents = ev.Documents

		if ev.Type == syncpkg.EventFinished {
			m.done = true
			m.err = ev.Err
			return m, tea.Quit
		}
		return m, m.waitForEvent()
	}

	return m, nil
}

// View renders the progress panel.
func (m Model) View() string {
	title := theme.TitleStyle.Render(
		fmt.Sprintf("helpdesk-sync · %s", m.source),
	)

	var status string
	switch {
	case m.done && m.err != nil:
		status = theme.ErrorStyle.Render("✗ sync failed: " + m.err.Error())
	case m.done:
		status = theme.SuccessStyle.Render("✓ sync complete")
	default:
		status = m.spinner.View() + " syncing (" + string(m.mode) + ")"
	}

	counters := fmt.Sprintf(
		"%s batches   %s documents",
		theme.CounterStyle.Render(fmt.Sprintf("%d", m.batches)),
		theme.CounterStyle.Render(fmt.Sprintf("%d", m.documents)),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		status,
		"",
		counters,
	)

	panel := theme.PanelStyle.Width(min(m.width-2, 58)).Render(content)
	help := theme.HelpStyle.Render("q to quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, panel, help)
}

// waitForEvent returns a command that blocks on the next runner event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		return eventMsg{event: ev, ok: ok}
	}
}
