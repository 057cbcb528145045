package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/farhanmir/Chronos/internal/config"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	ids := 0
	m := NewManager(dir,
		WithClock(clock),
		WithIDGenerator(func() string {
			ids++
			return "session-" + string(rune('0'+ids))
		}),
	)
	return m, dir
}

func TestLoadMissingReturnsErrNoSession(t *testing.T) {
	m, _ := newTestManager(t)
	if m.Exists() {
		t.Fatal("Exists reported a session in an empty directory")
	}
	if _, err := m.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.CreateNew("write a parser")
	s.MarkRunning()
	s.RecordInvocation()
	s.SetLastOutput("partial output")
	if err := m.Save(s); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !m.Exists() {
		t.Fatal("Exists is false after Save")
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.ID != s.ID {
		t.Fatalf("expected ID %q, got %q", s.ID, loaded.ID)
	}
	if loaded.Status != StatusRunning {
		t.Fatalf("expected running, got %s", loaded.Status)
	}
	if loaded.Prompt != "write a parser" {
		t.Fatalf("unexpected prompt: %q", loaded.Prompt)
	}
	if loaded.CycleCount != 1 {
		t.Fatalf("expected cycle count 1, got %d", loaded.CycleCount)
	}
	if loaded.LastOutputChunk != "partial output" {
		t.Fatalf("unexpected output tail: %q", loaded.LastOutputChunk)
	}
}

func TestSaveWritesReadableJSON(t *testing.T) {
	m, dir := newTestManager(t)
	if err := m.Save(m.CreateNew("task")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.ChronosDir, config.SessionFile))
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\"session_id\"") || !strings.Contains(text, "\"status\"") {
		t.Fatalf("session file missing expected fields:\n%s", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Fatal("session file should end with a newline")
	}
}

func TestLoadNormalizesCorruptedStatus(t *testing.T) {
	m, dir := newTestManager(t)
	path := filepath.Join(dir, config.ChronosDir, config.SessionFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	record := `{"session_id": "abc", "project_dir": "` + dir + `", "status": "what-even", "prompt": "task", "current_index": -3}`
	if err := os.WriteFile(path, []byte(record), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := m.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Status != StatusUncertain {
		t.Fatalf("expected unknown status to load as uncertain, got %s", loaded.Status)
	}
	if loaded.CurrentIndex != 0 {
		t.Fatalf("expected negative index clamped to 0, got %d", loaded.CurrentIndex)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	m, dir := newTestManager(t)
	path := filepath.Join(dir, config.ChronosDir, config.SessionFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(); err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Delete(); err != nil {
		t.Fatalf("deleting a missing session should not error: %v", err)
	}
	if err := m.Save(m.CreateNew("task")); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if m.Exists() {
		t.Fatal("session still exists after Delete")
	}
}

func TestCreateNewSequenceDefaultsNames(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.CreateNewSequence([]PromptItem{
		{Name: "Scaffold", Prompt: "lay out the project"},
		{Prompt: "wire the routes"},
	})
	if s.Status != StatusPending {
		t.Fatalf("expected pending, got %s", s.Status)
	}
	if !s.SequenceMode() {
		t.Fatal("sequence session should report sequence mode")
	}
	if s.Items[0].Name != "Scaffold" {
		t.Fatalf("explicit name was replaced: %q", s.Items[0].Name)
	}
	if s.Items[1].Name != "Step 2" {
		t.Fatalf("expected positional default name, got %q", s.Items[1].Name)
	}
}

func TestSequenceResumeRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.CreateNewSequence([]PromptItem{{Prompt: "one"}, {Prompt: "two"}})
	s.MarkRunning()
	s.RecordInvocation()
	s.MarkCurrentComplete()
	if err := m.Save(s); err != nil {
		t.Fatal(err)
	}

	loaded, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.CurrentIndex != 1 {
		t.Fatalf("expected resume at index 1, got %d", loaded.CurrentIndex)
	}
	if !loaded.Items[0].Completed {
		t.Fatal("first item lost its completed flag across the round trip")
	}
	if loaded.CurrentPrompt() != "two" {
		t.Fatalf("expected resume to resubmit the second prompt, got %q", loaded.CurrentPrompt())
	}
}
