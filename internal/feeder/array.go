package feeder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/torosent/harraw/internal/variables"
)

// LoadArray reads path as a YAML document whose top level is a sequence. Each
// element is returned verbatim, with nested maps normalized to string keys.
func LoadArray(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open YAML file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode YAML %s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, fmt.Errorf("read YAML %s: %w", path, ErrEmpty)
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("read YAML %s: expected a top-level array", path)
	}

	var items []any
	if err := root.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode YAML %s: %w", path, err)
	}
	for i, item := range items {
		items[i] = variables.Normalize(item)
	}
	return items, nil
}
