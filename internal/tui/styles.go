package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/farhanmir/Chronos/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	ruleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 2)

	successPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("10")).
				Padding(0, 2)

	warnPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("11")).
			Padding(0, 2)

	statusStyles = map[session.Status]lipgloss.Style{
		session.StatusPending:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		session.StatusRunning:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		session.StatusRateLimited: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		session.StatusCompleted:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		session.StatusFailed:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		session.StatusUncertain:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
)

// renderStatusValue colors a status the way the watch view and the
// one-shot status command both expect.
func renderStatusValue(status session.Status) string {
	style, ok := statusStyles[status]
	if !ok {
		style = lipgloss.NewStyle()
	}
	return style.Render(string(status))
}
