// Package agent runs one invocation of the external coding agent per
// call, streaming its merged output live and watching for the
// completion marker.
package agent

import (
	"bufio"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/farhanmir/Chronos/internal/config"
)

// markerDirective is appended to every prompt so the agent knows how to
// signal that it is fully done. Completion is detected lexically because
// the agent has no dedicated "done" exit status; the marker is the only
// signal that survives agent version changes.
const markerDirective = `

CRITICAL INSTRUCTION: When you have fully completed ALL tasks and there is absolutely nothing left to do, you MUST output this exact completion marker on its own line:

%s

Output this marker ONLY when you are 100%% finished with everything requested.`

// Sink receives agent output lines as they arrive.
type Sink interface {
	OutputLine(line string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(line string)

// OutputLine implements Sink.
func (f SinkFunc) OutputLine(line string) { f(line) }

// Driver invokes the external agent process for a single prompt.
type Driver struct {
	command    string
	args       []string
	workDir    string
	marker     string
	sink       Sink
	cancelling func() bool
}

// Option customizes a Driver.
type Option func(*Driver)

// WithSink sets the observer that receives output lines in real time.
func WithSink(sink Sink) Option {
	return func(d *Driver) {
		if sink != nil {
			d.sink = sink
		}
	}
}

// WithCancelProbe sets the cooperative-cancellation check consulted
// between output lines. When it returns true the agent process is
// terminated and streaming stops.
func WithCancelProbe(probe func() bool) Option {
	return func(d *Driver) {
		if probe != nil {
			d.cancelling = probe
		}
	}
}

// WithMarker overrides the completion marker (primarily for tests).
func WithMarker(marker string) Option {
	return func(d *Driver) {
		if marker != "" {
			d.marker = marker
		}
	}
}

// New creates a driver for the configured agent command, run inside
// workDir.
func New(cfg config.AgentConfig, workDir string, opts ...Option) *Driver {
	d := &Driver{
		command:    cfg.Command,
		args:       cfg.Args,
		workDir:    workDir,
		marker:     config.CompletionMarker,
		sink:       SinkFunc(func(string) {}),
		cancelling: func() bool { return false },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ComposePrompt returns the full text sent to the agent: the original
// instruction plus the completion-marker directive.
func (d *Driver) ComposePrompt(prompt string) string {
	return prompt + fmt.Sprintf(markerDirective, d.marker)
}

// Invoke runs the agent once with the given prompt. It returns the
// accumulated output and whether the completion marker was observed.
// Spawn or stream failures come back as a non-nil error alongside
// whatever partial output was captured; callers treat those the same as
// an invocation that ended without the marker. The process exit status
// deliberately plays no part in the completion contract.
func (d *Driver) Invoke(prompt string) (string, bool, error) {
	args := append(append([]string{}, d.args...), d.ComposePrompt(prompt))
	cmd := exec.Command(d.command, args...)
	cmd.Dir = d.workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", false, fmt.Errorf("agent: open output pipe: %w", err)
	}
	// Merge stderr into the same pipe so the stream carries everything
	// the agent prints, interleaved the way a terminal would see it.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return "", false, fmt.Errorf("agent: start %s: %w", d.command, err)
	}

	var output strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	cancelled := false
	for scanner.Scan() {
		if d.cancelling() {
			cancelled = true
			_ = cmd.Process.Kill()
			break
		}
		line := scanner.Text()
		d.sink.OutputLine(line)
		output.WriteString(line)
		output.WriteByte('\n')
	}
	scanErr := scanner.Err()

	// Reap the process regardless of how streaming ended.
	waitErr := cmd.Wait()

	captured := output.String()
	completed := strings.Contains(captured, d.marker)

	if cancelled {
		return captured, completed, nil
	}
	if scanErr != nil {
		return captured, completed, fmt.Errorf("agent: stream output: %w", scanErr)
	}
	if completed {
		// Marker presence wins over exit status.
		return captured, true, nil
	}
	if waitErr != nil {
		// A non-zero exit without the marker is the ordinary uncertain
		// outcome, not a stream failure.
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return captured, false, fmt.Errorf("agent: wait: %w", waitErr)
		}
	}
	return captured, false, nil
}
