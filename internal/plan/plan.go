// Package plan compiles a benchmark document into the flat, ordered list of
// steps every iteration executes.
//
// Expansion resolves includes, drops items rejected by the tag filter, and
// multiplies generator items (with_items, with_items_range, with_items_from_csv,
// with_items_from_file) into one request step per generated item. It completes
// before any step runs; the resulting Plan is immutable.
package plan

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/torosent/harraw/internal/interpolator"
	"github.com/torosent/harraw/internal/step"
	"github.com/torosent/harraw/internal/tags"
	"github.com/torosent/harraw/internal/variables"
)

// DefaultAccessor is the top-level key holding the steps of a benchmark file.
const DefaultAccessor = "plan"

var (
	// ErrEmptyPlan is returned when expansion yields no step at all.
	ErrEmptyPlan = errors.New("Empty benchmark")
	// ErrUnknownNode is returned for an item that matches no known shape.
	ErrUnknownNode = errors.New("Unknown node")
	// ErrIncludeCycle is returned when an include chain revisits a file.
	ErrIncludeCycle = errors.New("include cycle")
)

// Plan is the expanded, ordered step list shared read-only by all iterations.
type Plan []step.Step

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Option configures an Expander.
type Option func(*Expander)

// WithShuffle replaces the random source used by `shuffle: true`.
func WithShuffle(fn ShuffleFunc) Option {
	return func(e *Expander) {
		if fn != nil {
			e.shuffle = fn
		}
	}
}

// Expander turns plan documents into Plans. It is stateless between calls.
type Expander struct {
	filter  *tags.Filter
	matcher *interpolator.Matcher
	shuffle ShuffleFunc
}

// NewExpander creates an Expander. A nil filter configures no tag sets, which
// still drops items tagged "never".
func NewExpander(filter *tags.Filter, matcher *interpolator.Matcher, opts ...Option) *Expander {
	if filter == nil {
		filter = &tags.Filter{}
	}
	if matcher == nil {
		matcher = interpolator.NewMatcher()
	}
	e := &Expander{filter: filter, matcher: matcher, shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand loads path, scoped to accessor when it is not empty, and returns the
// expanded plan. An empty result is ErrEmptyPlan.
func (e *Expander) Expand(path, accessor string) (Plan, error) {
	var out Plan
	if err := e.expandFile(path, accessor, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptyPlan
	}
	return out, nil
}

func (e *Expander) expandFile(path, accessor string, chain []string, out *Plan) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	for _, visited := range chain {
		if visited == abs {
			return fmt.Errorf("%w: %s", ErrIncludeCycle, path)
		}
	}
	chain = append(chain, abs)

	nodes, err := loadItems(path, accessor)
	if err != nil {
		return err
	}

	for _, node := range nodes {
		def, err := decodeItem(node)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if def == nil {
			return unknownNode(node)
		}

		if include, ok := def["include"].(string); ok {
			if err := e.matcher.Forbid("include", include); err != nil {
				return err
			}
			if err := e.expandFile(resolvePath(path, include), "", chain, out); err != nil {
				return fmt.Errorf("include %q: %w", include, err)
			}
			continue
		}

		skip, err := e.filter.ShouldSkipItem(def)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if skip {
			continue
		}

		if err := e.expandItem(path, node, def, out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Expander) expandItem(path string, node *yaml.Node, def step.Definition, out *Plan) error {
	var (
		steps []step.Step
		err   error
	)

	switch Classify(def) {
	case KindWithItems:
		steps, err = e.expandWithItems(def)
	case KindWithItemsRange:
		steps, err = e.expandRange(def)
	case KindWithItemsFromCSV:
		steps, err = e.expandCSV(path, def)
	case KindWithItemsFromFile:
		steps, err = e.expandArrayFile(path, def)
	case KindDelay:
		steps, err = single(step.NewDelay(def))
	case KindExec:
		steps, err = single(step.NewExec(def))
	case KindAssign:
		steps, err = single(step.NewAssign(def))
	case KindAssert:
		steps, err = single(step.NewAssert(def))
	case KindRequest:
		steps, err = single(step.NewRequest(def, nil))
	default:
		return unknownNode(node)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*out = append(*out, steps...)
	return nil
}

func single(s step.Step, err error) ([]step.Step, error) {
	if err != nil {
		return nil, err
	}
	return []step.Step{s}, nil
}

// loadItems reads the sequence of plan items from path.
func loadItems(path, accessor string) ([]*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s: document is empty", path)
	}

	root := doc.Content[0]
	if accessor != "" {
		root = mappingValue(root, accessor)
		if root == nil {
			return nil, fmt.Errorf("%s: node missing on config file: %s", path, accessor)
		}
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected a list of items", path)
	}
	return root.Content, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// decodeItem converts an item node into a Definition. Non-mapping items yield
// nil so the caller can report them as unknown.
func decodeItem(node *yaml.Node) (step.Definition, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	def, _ := variables.Normalize(raw).(map[string]any)
	return def, nil
}

func unknownNode(node *yaml.Node) error {
	fragment, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("%w: line %d", ErrUnknownNode, node.Line)
	}
	return fmt.Errorf("%w:\n\n%s", ErrUnknownNode, fragment)
}

// resolvePath resolves p against the directory of the file that references it.
func resolvePath(parent, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(parent), p)
}
