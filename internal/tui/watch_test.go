package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/farhanmir/Chronos/internal/session"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestWatchQuitKeys(t *testing.T) {
	m := NewWatchModel(session.NewManager(t.TempDir()))
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		var msg tea.KeyMsg
		switch key {
		case "q":
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}
		_, cmd := m.Update(msg)
		if !isQuit(cmd) {
			t.Fatalf("expected %s to quit the watch view", key)
		}
	}
}

func TestWatchRefreshSchedulesNextTick(t *testing.T) {
	m := NewWatchModel(session.NewManager(t.TempDir()))
	s := &session.Session{ID: "sess-1", Status: session.StatusRunning}

	updated, cmd := m.Update(refreshMsg{session: s})
	if cmd == nil {
		t.Fatal("an active session should schedule another refresh")
	}
	view := updated.(WatchModel).View()
	if !strings.Contains(view, "sess-1") {
		t.Fatalf("view missing session snapshot:\n%s", view)
	}
}

func TestWatchQuitsOnTerminalSession(t *testing.T) {
	m := NewWatchModel(session.NewManager(t.TempDir()))
	s := &session.Session{ID: "sess-1", Status: session.StatusCompleted}

	_, cmd := m.Update(refreshMsg{session: s})
	if !isQuit(cmd) {
		t.Fatal("a terminal session should end the watch")
	}
}

func TestWatchViewWithoutSession(t *testing.T) {
	m := NewWatchModel(session.NewManager(t.TempDir()))
	updated, _ := m.Update(refreshMsg{err: session.ErrNoSession})
	view := updated.(WatchModel).View()
	if !strings.Contains(view, "No active session") {
		t.Fatalf("view missing no-session message:\n%s", view)
	}
}
