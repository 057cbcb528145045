package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultsWhenConfigMissing(t *testing.T) {
	projectDir := t.TempDir()
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.Project.Agent.Command != defaultAgentCommand {
		t.Fatalf("expected default agent command %q, got %q", defaultAgentCommand, c.Project.Agent.Command)
	}
	if c.Project.RateLimit.Capacity != defaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", defaultCapacity, c.Project.RateLimit.Capacity)
	}
	if c.Project.RateLimit.RefillRate != defaultRefillRate {
		t.Fatalf("expected default refill rate %v, got %v", defaultRefillRate, c.Project.RateLimit.RefillRate)
	}
	if c.Project.CompletionMarker != CompletionMarker {
		t.Fatalf("expected default completion marker, got %q", c.Project.CompletionMarker)
	}
}

func TestNewAppliesMarkerOverride(t *testing.T) {
	projectDir := t.TempDir()
	chronosDir := filepath.Join(projectDir, ChronosDir)
	if err := os.MkdirAll(chronosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chronosDir, "config.yaml"), []byte("completion_marker: DONE_TOKEN\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Project.CompletionMarker != "DONE_TOKEN" {
		t.Fatalf("expected marker override, got %q", c.Project.CompletionMarker)
	}
}

func TestNewParsesProjectYaml(t *testing.T) {
	projectDir := t.TempDir()
	chronosDir := filepath.Join(projectDir, ChronosDir)
	if err := os.MkdirAll(chronosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 2
agent:
  command: claude
  args: ["--print"]
rate_limit:
  capacity: 10
  refill_rate: 0.5
`)
	if err := os.WriteFile(filepath.Join(chronosDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Project.Version != 2 {
		t.Fatalf("expected version 2, got %d", c.Project.Version)
	}
	if c.Project.Agent.Command != "claude" {
		t.Fatalf("expected agent command claude, got %q", c.Project.Agent.Command)
	}
	if len(c.Project.Agent.Args) != 1 || c.Project.Agent.Args[0] != "--print" {
		t.Fatalf("unexpected agent args: %v", c.Project.Agent.Args)
	}
	if c.Project.RateLimit.Capacity != 10 {
		t.Fatalf("expected capacity 10, got %d", c.Project.RateLimit.Capacity)
	}
	if c.Project.RateLimit.RefillRate != 0.5 {
		t.Fatalf("expected refill rate 0.5, got %v", c.Project.RateLimit.RefillRate)
	}
}

func TestNewFillsPartialConfigWithDefaults(t *testing.T) {
	projectDir := t.TempDir()
	chronosDir := filepath.Join(projectDir, ChronosDir)
	if err := os.MkdirAll(chronosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chronosDir, "config.yaml"), []byte("agent:\n  command: aider\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Project.Agent.Command != "aider" {
		t.Fatalf("expected agent command aider, got %q", c.Project.Agent.Command)
	}
	if c.Project.RateLimit.Capacity != defaultCapacity {
		t.Fatalf("expected default capacity for partial config, got %d", c.Project.RateLimit.Capacity)
	}
}

func TestNewRejectsMalformedYaml(t *testing.T) {
	projectDir := t.TempDir()
	chronosDir := filepath.Join(projectDir, ChronosDir)
	if err := os.MkdirAll(chronosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(chronosDir, "config.yaml"), []byte("agent: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(projectDir); err == nil {
		t.Fatal("expected error for malformed config.yaml")
	}
}

func TestInitChronosDirCreatesStructure(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitChronosDir(projectDir); err != nil {
		t.Fatalf("InitChronosDir returned error: %v", err)
	}
	for _, dir := range []string{"logs", "transcripts"} {
		path := filepath.Join(projectDir, ChronosDir, dir)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", path)
		}
	}
	data, err := os.ReadFile(filepath.Join(projectDir, ChronosDir, "config.yaml"))
	if err != nil {
		t.Fatalf("expected seeded config.yaml: %v", err)
	}
	if !strings.Contains(string(data), "rate_limit:") {
		t.Fatal("seeded config.yaml is missing the rate_limit section")
	}
}

func TestInitChronosDirKeepsExistingConfig(t *testing.T) {
	projectDir := t.TempDir()
	chronosDir := filepath.Join(projectDir, ChronosDir)
	if err := os.MkdirAll(chronosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	custom := "agent:\n  command: claude\n"
	if err := os.WriteFile(filepath.Join(chronosDir, "config.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitChronosDir(projectDir); err != nil {
		t.Fatalf("InitChronosDir returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(chronosDir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Fatal("InitChronosDir overwrote an existing config.yaml")
	}
}
