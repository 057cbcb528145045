// Package runner drives the automation loop: acquire a rate-limit
// token, invoke the agent, apply the outcome to the session record,
// persist, and decide whether to continue, advance, or stop.
package runner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/farhanmir/Chronos/internal/agent"
	"github.com/farhanmir/Chronos/internal/config"
	"github.com/farhanmir/Chronos/internal/logging"
	"github.com/farhanmir/Chronos/internal/ratelimit"
	"github.com/farhanmir/Chronos/internal/session"
	"github.com/farhanmir/Chronos/internal/shutdown"
	"github.com/farhanmir/Chronos/internal/transcript"
)

// ErrSessionExists is returned when a fresh run finds a resumable
// session already recorded for the project directory.
var ErrSessionExists = errors.New("runner: resumable session already exists")

// ErrUncertain is returned when the agent exits without the completion
// marker. The session stays resumable; the run stops.
var ErrUncertain = errors.New("runner: agent exited without completion marker")

// Driver runs one agent invocation.
type Driver interface {
	Invoke(prompt string) (output string, completed bool, err error)
}

// Limiter admits one invocation at a time, blocking as needed.
type Limiter interface {
	Acquire()
}

// Transcript receives one entry per loop phase. Implementations must
// tolerate being called with partial output and must never fail the run.
type Transcript interface {
	LogPrompt(text, stepName string)
	LogOutput(text string)
	LogComplete(stepName string)
	LogError(text string)
	LogSessionEnd(finalStatus string)
}

// Presenter receives user-facing progress notifications. The loop never
// consults its return values, so a capturing stub swaps in cleanly for
// tests.
type Presenter interface {
	SessionStarted(s *session.Session, resumed bool)
	CycleStarted(stepName string, continuing bool)
	AgentOutput(line string)
	StepCompleted(stepName string, hasMore bool)
	SessionCompleted(s *session.Session, transcriptPath string)
	SessionUncertain(s *session.Session)
	ShutdownRequested()
}

// Options select run behavior from the CLI layer.
type Options struct {
	// Force discards any existing session before starting fresh.
	Force bool
	// Yolo marks unattended mode. The existing-session guard is still
	// enforced in this mode; only interactive confirmations elsewhere
	// are skipped.
	Yolo bool
}

// Runner owns one automation run against a project directory.
type Runner struct {
	cfg       *config.Config
	sessions  *session.Manager
	limiter   Limiter
	driver    Driver
	presenter Presenter
	shutdown  *shutdown.Controller
	log       *logging.Logger

	transcriptFor func(sessionID string) Transcript

	mu      sync.Mutex
	current *session.Session
}

// Option customizes a Runner, mainly to substitute collaborators in
// tests.
type Option func(*Runner)

// WithDriver replaces the agent process driver.
func WithDriver(d Driver) Option {
	return func(r *Runner) {
		if d != nil {
			r.driver = d
		}
	}
}

// WithLimiter replaces the rate limiter.
func WithLimiter(l Limiter) Option {
	return func(r *Runner) {
		if l != nil {
			r.limiter = l
		}
	}
}

// WithPresenter replaces the progress presenter.
func WithPresenter(p Presenter) Option {
	return func(r *Runner) {
		if p != nil {
			r.presenter = p
		}
	}
}

// WithSessionManager replaces the session store.
func WithSessionManager(m *session.Manager) Option {
	return func(r *Runner) {
		if m != nil {
			r.sessions = m
		}
	}
}

// WithTranscriptFactory replaces transcript creation.
func WithTranscriptFactory(f func(sessionID string) Transcript) Option {
	return func(r *Runner) {
		if f != nil {
			r.transcriptFor = f
		}
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// New wires a runner for the given configuration. Collaborators not
// overridden by options get their production defaults.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("runner: config is required")
	}
	r := &Runner{
		cfg:       cfg,
		sessions:  session.NewManager(cfg.ProjectDir),
		limiter:   ratelimit.NewTokenBucket(cfg.Project.RateLimit.Capacity, cfg.Project.RateLimit.RefillRate),
		presenter: nopPresenter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.shutdown = shutdown.New(r.persistCurrent)
	if r.driver == nil {
		r.driver = agent.New(cfg.Project.Agent, cfg.ProjectDir,
			agent.WithMarker(cfg.Project.CompletionMarker),
			agent.WithSink(agent.SinkFunc(func(line string) { r.presenter.AgentOutput(line) })),
			agent.WithCancelProbe(func() bool { return r.shutdown.Requested() }),
		)
	}
	if r.transcriptFor == nil {
		r.transcriptFor = func(sessionID string) Transcript {
			w, err := transcript.New(cfg.TranscriptsDir(), sessionID, nil)
			if err != nil {
				r.log.Printf("transcript unavailable: %v", err)
				return nopTranscript{}
			}
			return w
		}
	}
	return r, nil
}

// Run starts a fresh single-prompt session and drives it to a stop.
func (r *Runner) Run(prompt string, opts Options) error {
	if prompt == "" {
		return fmt.Errorf("runner: no prompt provided")
	}
	if err := r.prepareFresh(opts); err != nil {
		return err
	}
	s := r.sessions.CreateNew(prompt)
	return r.drive(s, false)
}

// RunSequence starts a fresh sequence session and drives it to a stop.
func (r *Runner) RunSequence(items []session.PromptItem, opts Options) error {
	if len(items) == 0 {
		return fmt.Errorf("runner: sequence has no prompts")
	}
	if err := r.prepareFresh(opts); err != nil {
		return err
	}
	s := r.sessions.CreateNewSequence(items)
	return r.drive(s, false)
}

// Resume reloads the persisted session and continues from the step at
// current_index, resubmitting its prompt unchanged.
func (r *Runner) Resume(opts Options) error {
	s, err := r.sessions.Load()
	if err != nil {
		return err
	}
	if !s.Resumable() {
		return fmt.Errorf("runner: session %s already ended as %s", s.ID, s.Status)
	}
	return r.drive(s, true)
}

// prepareFresh enforces the existing-session guard. The guard holds in
// unattended mode too; only an explicit Force discards prior work.
func (r *Runner) prepareFresh(opts Options) error {
	if opts.Force {
		return r.sessions.Delete()
	}
	if !r.sessions.Exists() {
		return nil
	}
	existing, err := r.sessions.Load()
	if err != nil {
		return err
	}
	if existing.Resumable() {
		return fmt.Errorf("%w (session %s, status %s)", ErrSessionExists, existing.ID, existing.Status)
	}
	return nil
}

// drive runs cycles until a terminal state or cancellation.
func (r *Runner) drive(s *session.Session, resumed bool) error {
	r.setCurrent(s)
	defer r.setCurrent(nil)

	r.shutdown.Start()
	defer r.shutdown.Stop()

	tw := r.transcriptFor(s.ID)
	r.presenter.SessionStarted(s, resumed)
	r.log.Printf("session %s: run started (resumed=%v, cycles so far=%d)", s.ID, resumed, s.CycleCount)

	continuing := resumed || s.CycleCount > 0
	for {
		if r.shutdown.Requested() {
			return r.stopForShutdown(s, tw)
		}

		s.MarkRunning()
		if err := r.persist(s); err != nil {
			return err
		}

		prompt := s.CurrentPrompt()
		stepName := s.CurrentPromptName()
		tw.LogPrompt(prompt, stepName)
		r.presenter.CycleStarted(stepName, continuing)
		continuing = false

		r.limiter.Acquire()
		if r.shutdown.Requested() {
			return r.stopForShutdown(s, tw)
		}

		s.RecordInvocation()
		output, completed, err := r.driver.Invoke(prompt)
		s.SetLastOutput(output)
		tw.LogOutput(output)
		if err != nil {
			// Spawn and stream failures are recovered locally: logged,
			// then treated as an invocation without the marker.
			r.log.Printf("session %s: invocation error: %v", s.ID, err)
			tw.LogError(err.Error())
			completed = false
		}

		if r.shutdown.Requested() {
			return r.stopForShutdown(s, tw)
		}

		if !completed {
			s.MarkUncertain()
			if err := r.persist(s); err != nil {
				return err
			}
			tw.LogError("agent exited without completion marker")
			tw.LogSessionEnd(string(session.StatusUncertain))
			r.presenter.SessionUncertain(s)
			r.log.Printf("session %s: uncertain after cycle %d", s.ID, s.CycleCount)
			return ErrUncertain
		}

		hasMore := s.MarkCurrentComplete()
		if err := r.persist(s); err != nil {
			return err
		}
		tw.LogComplete(stepName)
		r.presenter.StepCompleted(stepName, hasMore)
		if hasMore {
			continue
		}

		tw.LogSessionEnd(string(session.StatusCompleted))
		var path string
		if w, ok := tw.(*transcript.Writer); ok {
			path = w.Path()
		}
		r.presenter.SessionCompleted(s, path)
		r.log.Printf("session %s: completed after %d cycles", s.ID, s.CycleCount)
		return nil
	}
}

// stopForShutdown persists the last-known-good state and reports a
// neutral outcome. The status on disk stays whatever was last persisted
// before the signal arrived.
func (r *Runner) stopForShutdown(s *session.Session, tw Transcript) error {
	if err := r.persist(s); err != nil {
		r.log.Printf("session %s: persist on shutdown: %v", s.ID, err)
	}
	r.presenter.ShutdownRequested()
	tw.LogSessionEnd("interrupted")
	r.log.Printf("session %s: shutdown requested, state saved", s.ID)
	return nil
}

func (r *Runner) persist(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Save(s)
}

func (r *Runner) setCurrent(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = s
}

// persistCurrent is the shutdown hook: a best-effort save of the active
// session, callable from the signal path at any loop state.
func (r *Runner) persistCurrent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	if err := r.sessions.Save(r.current); err != nil {
		r.log.Printf("session %s: signal persist: %v", r.current.ID, err)
	}
}

// Sessions exposes the session store for the CLI layer (status, clear,
// force handling).
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// Shutdown exposes the cancellation controller so hosts (and tests) can
// request a cooperative stop without delivering a real signal.
func (r *Runner) Shutdown() *shutdown.Controller {
	return r.shutdown
}

type nopPresenter struct{}

func (nopPresenter) SessionStarted(*session.Session, bool)     {}
func (nopPresenter) CycleStarted(string, bool)                 {}
func (nopPresenter) AgentOutput(string)                        {}
func (nopPresenter) StepCompleted(string, bool)                {}
func (nopPresenter) SessionCompleted(*session.Session, string) {}
func (nopPresenter) SessionUncertain(*session.Session)         {}
func (nopPresenter) ShutdownRequested()                        {}

type nopTranscript struct{}

func (nopTranscript) LogPrompt(string, string) {}
func (nopTranscript) LogOutput(string)         {}
func (nopTranscript) LogComplete(string)       {}
func (nopTranscript) LogError(string)          {}
func (nopTranscript) LogSessionEnd(string)     {}
