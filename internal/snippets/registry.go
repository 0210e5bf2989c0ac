// Package snippets holds the built-in example programs shown in the editor,
// including the default sample the reset operation restores.
package snippets

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed snippets.yaml
var builtinYAML []byte

// Snippet is one runnable example program.
type Snippet struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Source      string `json:"source" yaml:"source"`
}

// Registry indexes the built-in snippets.
type Registry struct {
	list []Snippet
	byID map[string]Snippet
}

type manifest struct {
	Snippets []Snippet `yaml:"snippets"`
}

// Load parses the embedded snippet manifest. Names and descriptions are
// rendered in UI chrome, so markup is stripped from them on the way in;
// sources pass through untouched.
func Load() (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(builtinYAML, &m); err != nil {
		return nil, fmt.Errorf("failed to parse snippet manifest: %w", err)
	}
	if len(m.Snippets) == 0 {
		return nil, fmt.Errorf("snippet manifest is empty")
	}

	policy := bluemonday.StrictPolicy()
	r := &Registry{byID: make(map[string]Snippet, len(m.Snippets))}
	for _, s := range m.Snippets {
		if s.ID == "" || s.Source == "" {
			return nil, fmt.Errorf("snippet %q missing id or source", s.Name)
		}
		s.Name = policy.Sanitize(s.Name)
		s.Description = policy.Sanitize(s.Description)
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate snippet id %q", s.ID)
		}
		r.list = append(r.list, s)
		r.byID[s.ID] = s
	}
	return r, nil
}

// List returns all snippets in manifest order.
func (r *Registry) List() []Snippet {
	out := make([]Snippet, len(r.list))
	copy(out, r.list)
	return out
}

// Get retrieves a snippet by ID.
func (r *Registry) Get(id string) (Snippet, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Default returns the starter snippet.
func (r *Registry) Default() Snippet {
	return r.list[0]
}

var (
	defaultOnce sync.Once
	defaultSrc  string
)

// DefaultSource returns the built-in default sample source. It is the text
// the reset operation restores, byte for byte.
func DefaultSource() string {
	defaultOnce.Do(func() {
		r, err := Load()
		if err != nil {
			// The manifest is embedded; a parse failure is a build defect.
			panic(err)
		}
		defaultSrc = r.Default().Source
	})
	return defaultSrc
}
