package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/farhanmir/Chronos/internal/config"
)

// ErrNoSession is returned when no persisted session record exists.
var ErrNoSession = errors.New("session: no session found")

// Manager persists the session record for one project directory.
// Concurrent runs against the same directory are not coordinated; the
// record is always rewritten whole so a save from the signal path and a
// save from the loop cannot interleave partial contents.
type Manager struct {
	projectDir string
	path       string
	clock      func() time.Time
	newID      func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewManager creates a session manager rooted at the project directory.
func NewManager(projectDir string, opts ...Option) *Manager {
	m := &Manager{
		projectDir: projectDir,
		path:       filepath.Join(projectDir, config.ChronosDir, config.SessionFile),
		clock:      time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Exists reports whether a session record is present on disk.
func (m *Manager) Exists() bool {
	info, err := os.Stat(m.path)
	return err == nil && !info.IsDir()
}

// Load reads and validates the persisted session.
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session: read %s: %w", m.path, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", m.path, err)
	}
	s.normalize()
	return &s, nil
}

// Save writes the session record to disk, refreshing UpdatedAt. The
// whole file is rewritten on every call so the operation is safe from
// both the main loop and the signal handler.
func (m *Manager) Save(s *Session) error {
	if s == nil {
		return fmt.Errorf("session: nothing to save")
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("session: ensure %s: %w", filepath.Dir(m.path), err)
	}
	s.UpdatedAt = m.clock()
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.WriteFile(m.path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("session: write %s: %w", m.path, err)
	}
	return nil
}

// Delete removes the session record. Missing records are not an error.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: delete %s: %w", m.path, err)
	}
	return nil
}

// CreateNew builds a single-prompt session in the pending state.
func (m *Manager) CreateNew(prompt string) *Session {
	now := m.clock()
	return &Session{
		ID:         m.newID(),
		ProjectDir: m.projectDir,
		Status:     StatusPending,
		Prompt:     prompt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CreateNewSequence builds a sequence session in the pending state.
// Items without names get the positional "Step N" default.
func (m *Manager) CreateNewSequence(items []PromptItem) *Session {
	now := m.clock()
	cloned := make([]PromptItem, len(items))
	copy(cloned, items)
	for i := range cloned {
		if cloned[i].Name == "" {
			cloned[i].Name = fmt.Sprintf("Step %d", i+1)
		}
	}
	return &Session{
		ID:         m.newID(),
		ProjectDir: m.projectDir,
		Status:     StatusPending,
		Items:      cloned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Path returns the file backing this manager.
func (m *Manager) Path() string {
	return m.path
}
