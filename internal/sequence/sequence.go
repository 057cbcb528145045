// Package sequence loads ordered prompt lists from YAML files for
// sequence-mode sessions.
package sequence

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/farhanmir/Chronos/internal/session"
)

// File models a sequence definition:
//
//	prompts:
//	  - name: Scaffold
//	    prompt: Create the project layout
//	  - prompt: Wire the API routes
//
// name is optional and defaults to the positional "Step N" label.
type File struct {
	Prompts []Entry `yaml:"prompts"`
}

// Entry is one prompt in a sequence file.
type Entry struct {
	Name   string `yaml:"name,omitempty"`
	Prompt string `yaml:"prompt"`
}

// Parse decodes a sequence definition from YAML bytes.
func Parse(data []byte) ([]session.PromptItem, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("sequence: definition is empty")
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("sequence: decode definition: %w", err)
	}
	if len(file.Prompts) == 0 {
		return nil, fmt.Errorf("sequence: no prompts defined")
	}
	items := make([]session.PromptItem, 0, len(file.Prompts))
	for i, entry := range file.Prompts {
		prompt := strings.TrimSpace(entry.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("sequence: prompt %d is empty", i+1)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = fmt.Sprintf("Step %d", i+1)
		}
		items = append(items, session.PromptItem{Name: name, Prompt: prompt})
	}
	return items, nil
}

// LoadReader reads a sequence definition from an io.Reader.
func LoadReader(r io.Reader) ([]session.PromptItem, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sequence: read definition: %w", err)
	}
	return Parse(content)
}

// LoadFile loads a sequence definition from a file path.
func LoadFile(path string) ([]session.PromptItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sequence: read %s: %w", path, err)
	}
	items, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("sequence: %s: %w", path, err)
	}
	return items, nil
}
