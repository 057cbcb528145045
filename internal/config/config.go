// internal/config/config.go
//
// This package handles configuration and the .chronos directory structure.
// Every project that Chronos runs in gets a .chronos/ folder created in
// its root, holding the session record, transcripts, and logs.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ChronosDir is the name of the directory we create in each project.
	ChronosDir = ".chronos"

	// SessionFile is the session record filename inside ChronosDir.
	SessionFile = "session.json"

	// CompletionMarker is the sentinel the agent must print on its own
	// line to signal it has finished all requested work. It has to be
	// odd enough that it never shows up in ordinary agent output.
	CompletionMarker = "<<<CHRONOS_TASK_COMPLETE>>>"

	defaultAgentCommand = "gemini"
	defaultCapacity     = 60
	defaultRefillRate   = 1.0
)

const defaultConfigYAML = `# chronos project configuration
version: 1

# Command used to invoke the coding agent. The composed prompt is passed
# as the final argument. Extra args go before the prompt.
agent:
  command: gemini
  args: []

# Token bucket rate limit. capacity is the burst ceiling, refill_rate is
# tokens per second (60 capacity at 1.0/s = 60 requests per minute).
rate_limit:
  capacity: 60
  refill_rate: 1.0

# Uncomment to override the completion marker the agent must print.
# completion_marker: "<<<CHRONOS_TASK_COMPLETE>>>"
`

// AgentConfig describes how the external agent process is invoked.
type AgentConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// RateLimitConfig holds the token bucket parameters.
type RateLimitConfig struct {
	Capacity   int     `yaml:"capacity"`
	RefillRate float64 `yaml:"refill_rate"`
}

// ProjectConfig models .chronos/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Agent     AgentConfig     `yaml:"agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// CompletionMarker overrides the default marker, for agents that
	// mangle the standard one.
	CompletionMarker string `yaml:"completion_marker,omitempty"`
}

// Config holds the runtime configuration for a Chronos run.
type Config struct {
	// ProjectDir is the directory the agent works in.
	ProjectDir string

	// ChronosProjectDir is ProjectDir/.chronos.
	ChronosProjectDir string

	Project ProjectConfig
}

// InitChronosDir creates the .chronos directory structure in the given
// project directory and seeds a default config.yaml if none exists.
//
// Structure created:
// .chronos/
// ├── logs/         <- runner diagnostics
// └── transcripts/  <- one transcript per session
func InitChronosDir(projectDir string) error {
	chronosDir := filepath.Join(projectDir, ChronosDir)
	dirs := []string{
		filepath.Join(chronosDir, "logs"),
		filepath.Join(chronosDir, "transcripts"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(chronosDir, "config.yaml"))
}

// New creates a Config for projectDir, loading .chronos/config.yaml when
// present and filling defaults otherwise.
func New(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir:        abs,
		ChronosProjectDir: filepath.Join(abs, ChronosDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Agent:   AgentConfig{Command: defaultAgentCommand},
		RateLimit: RateLimitConfig{
			Capacity:   defaultCapacity,
			RefillRate: defaultRefillRate,
		},
		CompletionMarker: CompletionMarker,
	}
}

func (c *Config) loadProjectConfig() error {
	path := filepath.Join(c.ChronosProjectDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Project = normalizeProjectConfig(parsed)
	return nil
}

func normalizeProjectConfig(parsed ProjectConfig) ProjectConfig {
	cfg := defaultProjectConfig()
	if parsed.Version > 0 {
		cfg.Version = parsed.Version
	}
	if cmd := strings.TrimSpace(parsed.Agent.Command); cmd != "" {
		cfg.Agent.Command = cmd
	}
	if len(parsed.Agent.Args) > 0 {
		cfg.Agent.Args = parsed.Agent.Args
	}
	if parsed.RateLimit.Capacity > 0 {
		cfg.RateLimit.Capacity = parsed.RateLimit.Capacity
	}
	if parsed.RateLimit.RefillRate > 0 {
		cfg.RateLimit.RefillRate = parsed.RateLimit.RefillRate
	}
	if marker := strings.TrimSpace(parsed.CompletionMarker); marker != "" {
		cfg.CompletionMarker = marker
	}
	return cfg
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

// SessionPath returns the path to the persisted session record.
func (c *Config) SessionPath() string {
	return filepath.Join(c.ChronosProjectDir, SessionFile)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ChronosProjectDir, "logs")
}

// TranscriptsDir returns the path to the transcripts directory.
func (c *Config) TranscriptsDir() string {
	return filepath.Join(c.ChronosProjectDir, "transcripts")
}
