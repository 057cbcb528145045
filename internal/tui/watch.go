package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/farhanmir/Chronos/internal/session"
)

const watchRefreshInterval = 2 * time.Second

type refreshMsg struct {
	session *session.Session
	err     error
}

// WatchModel is the bubbletea model behind `chronos status --watch`. It
// re-reads the session record on a fixed tick so a run in another
// terminal can be observed live.
type WatchModel struct {
	sessions *session.Manager
	spinner  spinner.Model
	current  *session.Session
	err      error
}

// NewWatchModel creates a watch view over the given session store.
func NewWatchModel(sessions *session.Manager) WatchModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = titleStyle
	return WatchModel{sessions: sessions, spinner: sp}
}

// Init starts the spinner and the first refresh.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh())
}

func (m WatchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		s, err := m.sessions.Load()
		return refreshMsg{session: s, err: err}
	}
}

func (m WatchModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(watchRefreshInterval, func(time.Time) tea.Msg {
		s, err := m.sessions.Load()
		return refreshMsg{session: s, err: err}
	})
}

// Update handles refresh results, spinner frames, and quit keys.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case refreshMsg:
		m.current = msg.session
		m.err = msg.err
		if m.current != nil && m.current.Status.Terminal() {
			return m, tea.Quit
		}
		return m, m.scheduleRefresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current session snapshot.
func (m WatchModel) View() string {
	header := m.spinner.View() + " watching session (q to quit)\n\n"
	if m.err != nil {
		if errors.Is(m.err, session.ErrNoSession) {
			return header + dimStyle.Render("No active session in this directory.") + "\n"
		}
		return header + statusStyles[session.StatusFailed].Render(m.err.Error()) + "\n"
	}
	if m.current == nil {
		return header
	}
	return header + RenderStatus(m.current)
}
