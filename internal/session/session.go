package session

import (
	"fmt"
	"time"
)

// Status enumerates the lifecycle states of a session.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusRateLimited Status = "rate_limited"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusUncertain   Status = "uncertain"
)

// ParseStatus validates a persisted status value. Unknown values map to
// uncertain rather than being trusted, so a hand-edited or corrupted
// record degrades to the resumable-but-unconfirmed state.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusPending, StatusRunning, StatusRateLimited,
		StatusCompleted, StatusFailed, StatusUncertain:
		return Status(raw)
	}
	return StatusUncertain
}

// Terminal reports whether the status ends a session for good.
// Uncertain is terminal for the run that produced it but the record
// stays resumable, so it is not terminal here.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PromptItem is one unit of work in a sequence.
type PromptItem struct {
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	Completed bool   `json:"completed"`
}

// lastOutputLimit bounds the diagnostic output tail kept on the record.
const lastOutputLimit = 2000

// Session is the persisted record of task progress for one project
// directory. Exactly one of Prompt (single-prompt mode) or Items
// (sequence mode) carries the work.
type Session struct {
	ID              string       `json:"session_id"`
	ProjectDir      string       `json:"project_dir"`
	Status          Status       `json:"status"`
	Prompt          string       `json:"prompt,omitempty"`
	Items           []PromptItem `json:"prompts,omitempty"`
	CurrentIndex    int          `json:"current_index"`
	CycleCount      int          `json:"cycle_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	LastOutputChunk string       `json:"last_output_chunk,omitempty"`
}

// SequenceMode reports whether the session runs an ordered prompt list.
func (s *Session) SequenceMode() bool {
	return len(s.Items) > 0
}

// CurrentPrompt returns the instruction text for the active step.
func (s *Session) CurrentPrompt() string {
	if !s.SequenceMode() {
		return s.Prompt
	}
	return s.Items[s.CurrentIndex].Prompt
}

// CurrentPromptName returns the display label for the active step.
func (s *Session) CurrentPromptName() string {
	if !s.SequenceMode() {
		return "Task"
	}
	item := s.Items[s.CurrentIndex]
	if item.Name != "" {
		return item.Name
	}
	return fmt.Sprintf("Step %d", s.CurrentIndex+1)
}

// MarkRunning transitions the session into the running state ahead of
// an invocation.
func (s *Session) MarkRunning() {
	s.Status = StatusRunning
}

// RecordInvocation counts one agent invocation attempt. Called exactly
// once per cycle regardless of outcome.
func (s *Session) RecordInvocation() {
	s.CycleCount++
}

// MarkCurrentComplete records a confirmed completion of the active step.
// It returns true when unfinished steps remain (the caller should loop
// again) and false when the whole session is complete, in which case the
// status becomes completed. An item once completed is never unmarked and
// the index never moves backwards.
func (s *Session) MarkCurrentComplete() bool {
	if !s.SequenceMode() {
		s.Status = StatusCompleted
		return false
	}
	s.Items[s.CurrentIndex].Completed = true
	for i := s.CurrentIndex + 1; i < len(s.Items); i++ {
		if !s.Items[i].Completed {
			s.CurrentIndex = i
			return true
		}
	}
	s.Status = StatusCompleted
	return false
}

// MarkUncertain records an invocation that ended without the completion
// marker. The run stops but the record stays resumable.
func (s *Session) MarkUncertain() {
	s.Status = StatusUncertain
}

// Resumable reports whether a future resume may reopen this session.
func (s *Session) Resumable() bool {
	return !s.Status.Terminal()
}

// SetLastOutput keeps a bounded tail of the most recent invocation's
// output for diagnostic resume context.
func (s *Session) SetLastOutput(output string) {
	if len(output) <= lastOutputLimit {
		s.LastOutputChunk = output
		return
	}
	tail := output[len(output)-lastOutputLimit:]
	// Do not cut a multi-byte rune in half at the boundary.
	for i := 0; i < len(tail); i++ {
		if tail[i]&0xC0 != 0x80 {
			tail = tail[i:]
			break
		}
	}
	s.LastOutputChunk = tail
}

// CompletedCount returns how many sequence items are marked complete.
func (s *Session) CompletedCount() int {
	count := 0
	for _, item := range s.Items {
		if item.Completed {
			count++
		}
	}
	return count
}

// normalize repairs a freshly loaded record so downstream code can rely
// on the documented invariants.
func (s *Session) normalize() {
	s.Status = ParseStatus(string(s.Status))
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	if s.SequenceMode() && s.CurrentIndex >= len(s.Items) {
		s.CurrentIndex = len(s.Items) - 1
	}
	if !s.SequenceMode() {
		s.CurrentIndex = 0
	}
	if s.CycleCount < 0 {
		s.CycleCount = 0
	}
	for i := range s.Items {
		if s.Items[i].Name == "" {
			s.Items[i].Name = fmt.Sprintf("Step %d", i+1)
		}
	}
}
