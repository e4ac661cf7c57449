package extractor

import "regexp"

func findRegex(body []byte, rule Rule, warn Warner) string {
	re := rule.re
	if re == nil {
		var err error
		if re, err = regexp.Compile(rule.Regex); err != nil {
			if warn != nil {
				warn.Warn("Invalid regex pattern: %s (error: %v)", rule.Regex, err)
			}
			return ""
		}
	}

	match := re.FindSubmatch(body)
	if match == nil {
		if warn != nil {
			warn.Warn("Regex pattern not found: %s", rule.Regex)
		}
		return ""
	}
	if len(match) > 1 {
		return string(match[1])
	}
	return string(match[0])
}
