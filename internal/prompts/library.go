// Package prompts holds the topic contexts added to per-chunk instructions.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var builtinTopics []byte

// Topic is one named analysis context.
type Topic struct {
	Key     string `yaml:"-" json:"key"`
	Title   string `yaml:"title" json:"title"`
	Context string `yaml:"context" json:"context"`
}

type topicFile struct {
	Topics map[string]Topic `yaml:"topics"`
}

// Library maps topic keys to their context text.
type Library struct {
	topics map[string]Topic
}

// NewLibrary returns the built-in topic library.
func NewLibrary() *Library {
	lib := &Library{topics: make(map[string]Topic)}
	if err := lib.merge(builtinTopics); err != nil {
		panic(fmt.Sprintf("prompts: invalid built-in topics: %v", err))
	}
	return lib
}

// LoadFile returns the built-in library overlaid with the topics in path.
// An empty path returns the built-ins.
func LoadFile(path string) (*Library, error) {
	lib := NewLibrary()
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := lib.merge(data); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	return lib, nil
}

func (l *Library) merge(data []byte) error {
	var f topicFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for key, t := range f.Topics {
		key = normalizeKey(key)
		if key == "" {
			continue
		}
		t.Key = key
		t.Context = strings.TrimSpace(t.Context)
		if t.Title == "" {
			t.Title = key
		}
		l.topics[key] = t
	}
	return nil
}

// Context returns the context text for key, or "" when the key is unknown.
func (l *Library) Context(key string) string {
	if l == nil {
		return ""
	}
	return l.topics[normalizeKey(key)].Context
}

// Has reports whether key names a known topic.
func (l *Library) Has(key string) bool {
	if l == nil {
		return false
	}
	_, ok := l.topics[normalizeKey(key)]
	return ok
}

// Topics lists every topic sorted by key.
func (l *Library) Topics() []Topic {
	out := make([]Topic, 0, len(l.topics))
	for _, t := range l.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
