package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/harraw/internal/tags"
)

// ErrNoItems is returned by the listing helpers when nothing matches.
var ErrNoItems = errors.New("No items")

// ListTags returns the sorted, de-duplicated tags of the top-level items of path.
// A plan without items is ErrNoItems; items without tags yield an empty list.
func ListTags(path, accessor string) ([]string, error) {
	nodes, err := loadItems(path, accessor)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoItems
	}

	seen := map[string]struct{}{}
	for _, node := range nodes {
		def, err := decodeItem(node)
		if err != nil || def == nil {
			continue
		}
		itemTags, err := tags.ItemTags(def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, t := range itemTags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// ListTasks returns the YAML of each top-level item of path kept by filter.
// Includes are listed as items and not followed. A nil filter behaves like an
// empty one.
func ListTasks(path, accessor string, filter *tags.Filter) ([]string, error) {
	nodes, err := loadItems(path, accessor)
	if err != nil {
		return nil, err
	}

	if filter == nil {
		filter = &tags.Filter{}
	}

	var out []string
	for _, node := range nodes {
		def, err := decodeItem(node)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if def != nil {
			skip, err := filter.ShouldSkipItem(def)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if skip {
				continue
			}
		}
		text, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("%s: encode item: %w", path, err)
		}
		out = append(out, strings.TrimRight(string(text), "\n"))
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	return out, nil
}
