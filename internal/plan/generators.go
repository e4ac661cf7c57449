package plan

import (
	"fmt"
	"strings"

	"github.com/torosent/harraw/internal/feeder"
	"github.com/torosent/harraw/internal/interpolator"
	"github.com/torosent/harraw/internal/step"
)

// expandWithItems multiplies def over its literal with_items list. Literal items
// may not carry interpolation tokens.
func (e *Expander) expandWithItems(def step.Definition) ([]step.Step, error) {
	list := def["with_items"].([]any)
	for _, item := range list {
		if s, ok := item.(string); ok && e.matcher.Match(s) {
			return nil, fmt.Errorf("%w in 'with_items' children", interpolator.ErrInterpolationNotAllowed)
		}
	}
	items := append([]any(nil), list...)
	return e.emit(def, items)
}

// expandRange multiplies def over the inclusive integer range
// {start, step, stop}. Nothing is generated unless stop >= start and start > 0.
func (e *Expander) expandRange(def step.Definition) ([]step.Step, error) {
	block, _ := step.Block(def, "with_items_range")

	start, err := e.rangeBound(block, "start", true)
	if err != nil {
		return nil, err
	}
	stride, err := e.rangeBound(block, "step", false)
	if err != nil {
		return nil, err
	}
	stop, err := e.rangeBound(block, "stop", true)
	if err != nil {
		return nil, err
	}
	if stride <= 0 {
		return nil, fmt.Errorf("Step needs to be a positive number, but was %d", stride)
	}

	var items []any
	if stop >= start && start > 0 {
		for v := start; v <= stop; v += stride {
			items = append(items, v)
		}
	}
	return e.emit(def, items)
}

// rangeBound reads one range property. step defaults to 1 when absent.
func (e *Expander) rangeBound(block step.Definition, key string, required bool) (int, error) {
	raw, ok := block[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("%s property is mandatory", capitalize(key))
		}
		return 1, nil
	}
	if s, isString := raw.(string); isString {
		if err := e.matcher.Forbid(key, s); err != nil {
			return 0, err
		}
	}
	v, ok := toInt(raw)
	if !ok {
		return 0, fmt.Errorf("%s needs to be a number", capitalize(key))
	}
	return v, nil
}

// expandCSV multiplies def over the rows of a CSV file given either as a path or
// as {file_name, quote_char}.
func (e *Expander) expandCSV(parent string, def step.Definition) ([]step.Step, error) {
	var (
		name  string
		quote byte = feeder.DefaultQuote
	)
	switch v := def["with_items_from_csv"].(type) {
	case string:
		name = v
	case map[string]any:
		fileName, ok := v["file_name"].(string)
		if !ok {
			return nil, fmt.Errorf("Expected a file_name in 'with_items_from_csv'")
		}
		name = fileName
		if q, ok := v["quote_char"].(string); ok {
			quote = feeder.ParseQuote(q)
		}
	}

	if err := e.matcher.Forbid("with_items_from_csv", name); err != nil {
		return nil, err
	}
	items, err := feeder.LoadCSV(resolvePath(parent, name), quote)
	if err != nil {
		return nil, err
	}
	return e.emit(def, items)
}

// expandArrayFile multiplies def over the elements of a YAML array file.
func (e *Expander) expandArrayFile(parent string, def step.Definition) ([]step.Step, error) {
	name, ok := def["with_items_from_file"].(string)
	if !ok {
		return nil, fmt.Errorf("'with_items_from_file' needs to be a file path")
	}
	if err := e.matcher.Forbid("with_items_from_file", name); err != nil {
		return nil, err
	}
	items, err := feeder.LoadArray(resolvePath(parent, name))
	if err != nil {
		return nil, err
	}
	return e.emit(def, items)
}

// emit applies shuffle then pick to items and builds one request step per
// surviving item, carrying its emission index.
func (e *Expander) emit(def step.Definition, items []any) ([]step.Step, error) {
	if shuffle, _ := def["shuffle"].(bool); shuffle {
		e.shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}

	n, err := pick(def, len(items))
	if err != nil {
		return nil, err
	}

	steps := make([]step.Step, 0, n)
	for index, item := range items[:n] {
		s, err := step.NewRequest(def, &step.Item{Value: item, Index: index})
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// pick returns how many generated items survive: the `pick` value, or count when
// absent.
func pick(def step.Definition, count int) (int, error) {
	raw, ok := def["pick"]
	if !ok || raw == nil {
		return count, nil
	}
	value, ok := toInt(raw)
	if !ok {
		return 0, fmt.Errorf("pick option should be an integer, but was %v", raw)
	}
	if value < 0 {
		return 0, fmt.Errorf("pick option should not be negative, but was %d", value)
	}
	if value > count {
		return 0, fmt.Errorf("pick option should not be greater than the provided items, but was %d", value)
	}
	return value, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
