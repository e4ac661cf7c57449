// Package tags decides which plan items are kept based on include and exclude
// tag sets.
package tags

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reserved tags.
const (
	Always = "always"
	Never  = "never"
)

// ErrOverlap is returned when the include and exclude sets share a tag.
var ErrOverlap = errors.New("`tags` and `skip-tags` must not contain the same values")

type set map[string]struct{}

func newSet(values []string) set {
	if values == nil {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) intersects(other set) bool {
	for v := range other {
		if s.has(v) {
			return true
		}
	}
	return false
}

// Filter holds the include (tags) and exclude (skip_tags) sets of a run.
// A nil include set means no include filtering.
type Filter struct {
	tags     set
	skipTags set
}

// ParseList splits a comma-separated flag value into trimmed tags.
// An empty string yields nil.
func ParseList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// NewFilter validates that include and exclude are disjoint.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{tags: newSet(include), skipTags: newSet(exclude)}
	if f.tags != nil && f.skipTags != nil && f.tags.intersects(f.skipTags) {
		return nil, ErrOverlap
	}
	return f, nil
}

// Tags returns the sorted include set, or nil.
func (f *Filter) Tags() []string { return sorted(f.tags) }

// SkipTags returns the sorted exclude set, or nil.
func (f *Filter) SkipTags() []string { return sorted(f.skipTags) }

// ShouldSkip reports whether an item carrying itemTags must be dropped.
//
// An item tagged "always" is kept unless "always" itself is excluded. Other
// items are dropped when they share a tag with the exclude set, or when tagged
// "never" without "never" being included. The rest are kept when no include set
// is configured or when they share a tag with it.
func (f *Filter) ShouldSkip(itemTags []string) bool {
	item := newSet(itemTags)

	if item.has(Always) {
		return f.skipTags.has(Always)
	}
	if f.skipTags != nil && f.skipTags.intersects(item) {
		return true
	}
	if item.has(Never) && !f.tags.has(Never) {
		return true
	}
	if f.tags == nil {
		return false
	}
	return !f.tags.intersects(item)
}

// ShouldSkipItem applies ShouldSkip to the `tags` list of a plan item.
func (f *Filter) ShouldSkipItem(item map[string]any) (bool, error) {
	itemTags, err := ItemTags(item)
	if err != nil {
		return false, err
	}
	return f.ShouldSkip(itemTags), nil
}

// ItemTags extracts the `tags` list of a plan item. A missing list yields nil.
func ItemTags(item map[string]any) ([]string, error) {
	raw, ok := item["tags"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("`tags` must be a list, got %T", raw)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("tag %v must be a string", v)
		}
		out = append(out, s)
	}
	return out, nil
}

func sorted(s set) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
