package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/farhanmir/Chronos/internal/session"
)

const outputRuleWidth = 60

// ConsolePresenter prints run progress to a terminal with lipgloss
// styling. It satisfies the runner's Presenter interface; substituting
// a capturing stub keeps the loop testable without a terminal.
type ConsolePresenter struct {
	out     io.Writer
	verbose bool
}

// NewConsolePresenter creates a presenter writing to out.
func NewConsolePresenter(out io.Writer, verbose bool) *ConsolePresenter {
	return &ConsolePresenter{out: out, verbose: verbose}
}

// SessionStarted prints the run banner.
func (p *ConsolePresenter) SessionStarted(s *session.Session, resumed bool) {
	verb := "Created"
	if resumed {
		verb = "Resuming"
	}
	body := fmt.Sprintf("%s\n\nSession: %s\nProject: %s",
		titleStyle.Render("Chronos — Autonomous Agent Runner"),
		s.ID, s.ProjectDir)
	if s.SequenceMode() {
		body += fmt.Sprintf("\nSequence: %d prompts", len(s.Items))
	}
	fmt.Fprintln(p.out, panelStyle.Render(body))
	fmt.Fprintln(p.out, dimStyle.Render(fmt.Sprintf("%s session %s", verb, s.ID)))
}

// CycleStarted announces the prompt going out this cycle.
func (p *ConsolePresenter) CycleStarted(stepName string, continuing bool) {
	verb := "Sending"
	if continuing {
		verb = "Continuing"
	}
	fmt.Fprintf(p.out, "\n%s\n", titleStyle.Render(fmt.Sprintf("%s prompt · %s", verb, stepName)))
	fmt.Fprintln(p.out, ruleStyle.Render(strings.Repeat("─", outputRuleWidth)))
}

// AgentOutput relays one live output line from the agent.
func (p *ConsolePresenter) AgentOutput(line string) {
	fmt.Fprintln(p.out, line)
}

// StepCompleted reports a confirmed completion of one step.
func (p *ConsolePresenter) StepCompleted(stepName string, hasMore bool) {
	fmt.Fprintln(p.out, ruleStyle.Render(strings.Repeat("─", outputRuleWidth)))
	if hasMore {
		fmt.Fprintln(p.out, statusStyles[session.StatusCompleted].Render(
			fmt.Sprintf("✓ %s complete. Moving to next prompt...", stepName)))
	}
}

// SessionCompleted prints the final success panel.
func (p *ConsolePresenter) SessionCompleted(s *session.Session, transcriptPath string) {
	body := fmt.Sprintf("%s\n\nSession: %s\nCycles: %d",
		statusStyles[session.StatusCompleted].Render("All tasks completed!"),
		s.ID, s.CycleCount)
	if transcriptPath != "" {
		body += fmt.Sprintf("\nTranscript: %s", transcriptPath)
	}
	fmt.Fprintln(p.out, successPanelStyle.Render(body))
}

// SessionUncertain reports an agent exit without the completion marker.
func (p *ConsolePresenter) SessionUncertain(s *session.Session) {
	body := fmt.Sprintf("%s\n\nSession: %s\nUse 'chronos resume' to continue.",
		statusStyles[session.StatusUncertain].Render("Agent exited without completion marker."),
		s.ID)
	fmt.Fprintln(p.out, warnPanelStyle.Render(body))
}

// ShutdownRequested reports a cooperative stop after a signal.
func (p *ConsolePresenter) ShutdownRequested() {
	fmt.Fprintln(p.out, statusStyles[session.StatusUncertain].Render(
		"\nShutdown requested, session saved."))
}
