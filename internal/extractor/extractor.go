// Package extractor pulls values out of response bodies into context variables.
//
// A request item may carry an `extract` mapping from variable name to rule:
//
//	extract:
//	  token: $.auth.token          # JSON path
//	  csrf:
//	    regex: 'name="csrf" value="([^"]+)"'
//	  error_code:
//	    jsonpath: error.code
//	    on_error: true             # also extract from 4xx/5xx responses
package extractor

import (
	"fmt"
	"regexp"
	"sort"
)

// Warner receives extraction misses.
type Warner interface {
	Warn(format string, args ...any)
}

// Rule extracts one value from a response body.
type Rule struct {
	// Variable is the context name the value is stored under.
	Variable string
	// JSONPath is a gjson path, optionally prefixed with "$.".
	JSONPath string
	// Regex yields its first capture group, or the full match without groups.
	Regex string
	// OnError also applies the rule to responses with status >= 400.
	OnError bool

	re *regexp.Regexp
}

// ParseRules reads an `extract` mapping. Rules are returned sorted by variable
// name.
func ParseRules(raw any) ([]Rule, error) {
	if raw == nil {
		return nil, nil
	}
	block, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("`extract` needs to be a mapping, but was %v", raw)
	}

	rules := make([]Rule, 0, len(block))
	for variable, value := range block {
		rule, err := parseRule(variable, value)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Variable < rules[j].Variable })
	return rules, nil
}

func parseRule(variable string, raw any) (Rule, error) {
	rule := Rule{Variable: variable}
	switch v := raw.(type) {
	case string:
		rule.JSONPath = v
	case map[string]any:
		for key, value := range v {
			switch key {
			case "jsonpath":
				s, ok := value.(string)
				if !ok {
					return rule, fmt.Errorf("extract %q: jsonpath needs to be a string", variable)
				}
				rule.JSONPath = s
			case "regex":
				s, ok := value.(string)
				if !ok {
					return rule, fmt.Errorf("extract %q: regex needs to be a string", variable)
				}
				rule.Regex = s
			case "on_error":
				b, ok := value.(bool)
				if !ok {
					return rule, fmt.Errorf("extract %q: on_error needs to be a boolean", variable)
				}
				rule.OnError = b
			default:
				return rule, fmt.Errorf("extract %q: unknown key %q", variable, key)
			}
		}
	default:
		return rule, fmt.Errorf("extract %q: rule needs to be a path or a mapping", variable)
	}

	if (rule.JSONPath == "") == (rule.Regex == "") {
		return rule, fmt.Errorf("extract %q: exactly one of jsonpath or regex is required", variable)
	}
	if rule.Regex != "" {
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return rule, fmt.Errorf("extract %q: invalid regex: %w", variable, err)
		}
		rule.re = re
	}
	return rule, nil
}

// Apply runs every rule against body and returns the extracted values. Rules
// that miss yield an empty string and a warning. Responses with status >= 400
// are only considered by rules with OnError set.
func Apply(body []byte, status int, rules []Rule, warn Warner) map[string]string {
	result := make(map[string]string, len(rules))
	for _, rule := range rules {
		if status >= 400 && !rule.OnError {
			continue
		}
		if rule.Regex != "" {
			result[rule.Variable] = findRegex(body, rule, warn)
		} else {
			result[rule.Variable] = findJSONPath(body, rule.JSONPath, warn)
		}
	}
	return result
}
