package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/farhanmir/Chronos/internal/session"
)

// RenderStatus formats a session record for the status command. The
// same string is embedded by the watch view, so it carries no cursor or
// screen control of its own.
func RenderStatus(s *session.Session) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session Status"))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Session ID", s.ID},
		{"Status", renderStatusValue(s.Status)},
		{"Project", s.ProjectDir},
		{"Created", formatTime(s.CreatedAt)},
		{"Updated", formatTime(s.UpdatedAt)},
		{"Cycles", fmt.Sprintf("%d", s.CycleCount)},
	}
	if s.SequenceMode() {
		rows = append(rows, [2]string{
			"Prompts",
			fmt.Sprintf("%d/%d complete", s.CompletedCount(), len(s.Items)),
		})
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-11s", row[0])), row[1]))
	}

	if s.SequenceMode() {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Prompt Sequence"))
		b.WriteString("\n")
		for i, item := range s.Items {
			icon, style := "○", dimStyle
			switch {
			case item.Completed:
				icon, style = "✓", statusStyles[session.StatusCompleted]
			case i == s.CurrentIndex:
				icon, style = "→", statusStyles[session.StatusRateLimited]
			}
			b.WriteString(fmt.Sprintf("  %s\n", style.Render(fmt.Sprintf("%s %s", icon, item.Name))))
		}
	}

	if s.LastOutputChunk != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Last Output"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(tailLines(s.LastOutputChunk, 8)))
		b.WriteString("\n")
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// tailLines keeps the last n lines of text for compact display.
func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
