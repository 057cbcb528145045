// Package transcript persists a readable record of each session: every
// prompt sent, every chunk of agent output, and how the run ended.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Writer appends transcript entries for one session to a single file
// under .chronos/transcripts/. All writes are best effort; a transcript
// I/O failure never interrupts the run.
type Writer struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New creates a transcript writer for the given session.
func New(transcriptsDir, sessionID string, clock func() time.Time) (*Writer, error) {
	if err := os.MkdirAll(transcriptsDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: ensure %s: %w", transcriptsDir, err)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Writer{
		path:  filepath.Join(transcriptsDir, sessionID+".md"),
		clock: clock,
	}, nil
}

// Path returns the file backing this transcript.
func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// LogPrompt records an outgoing prompt under its step name.
func (w *Writer) LogPrompt(text, stepName string) {
	w.section(fmt.Sprintf("Prompt · %s", stepName), text)
}

// LogOutput records the captured agent output for the last invocation.
func (w *Writer) LogOutput(text string) {
	w.section("Output", text)
}

// LogComplete records a confirmed step completion.
func (w *Writer) LogComplete(stepName string) {
	w.section("Complete", stepName)
}

// LogError records a non-fatal error surfaced during the run.
func (w *Writer) LogError(text string) {
	w.section("Error", text)
}

// LogSessionEnd records the final status when the run stops.
func (w *Writer) LogSessionEnd(finalStatus string) {
	w.section("Session End", finalStatus)
}

func (w *Writer) section(heading, body string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	timestamp := w.clock().UTC().Format(time.RFC3339)
	fmt.Fprintf(file, "## %s — %s\n\n%s\n\n", heading, timestamp, strings.TrimRight(body, "\n"))
}
