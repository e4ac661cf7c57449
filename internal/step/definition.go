package step

import (
	"fmt"
	"strconv"
)

// Definition is a decoded YAML mapping describing one plan item.
type Definition = map[string]any

// Block returns the nested mapping stored under key, if any.
func Block(def Definition, key string) (Definition, bool) {
	v, ok := def[key].(map[string]any)
	return v, ok
}

// Extract returns a required scalar attribute as a string. Integers are
// rendered in decimal.
func Extract(def Definition, attr string) (string, error) {
	switch v := def[attr].(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case map[string]any:
		return "", fmt.Errorf("`%s` is required needs to be a string. Try adding quotes", attr)
	default:
		return "", fmt.Errorf("Unknown node `%s` => %v", attr, v)
	}
}

// ExtractOptional returns an optional string attribute. Mappings are rejected;
// other non-string values count as absent.
func ExtractOptional(def Definition, attr string) (string, bool, error) {
	switch v := def[attr].(type) {
	case string:
		return v, true, nil
	case map[string]any:
		return "", false, fmt.Errorf("`%s` needs to be a string. Try adding quotes", attr)
	default:
		return "", false, nil
	}
}

// extractBlock returns the required nested block named kind.
func extractBlock(def Definition, kind string) (Definition, error) {
	block, ok := Block(def, kind)
	if !ok {
		return nil, fmt.Errorf("`%s` needs to be a mapping", kind)
	}
	return block, nil
}
