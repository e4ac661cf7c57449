package extractor

import (
	"github.com/tidwall/gjson"
)

// findJSONPath supports both "$.field" and "field" syntax. A bare "$" selects
// the whole document.
func findJSONPath(body []byte, path string, warn Warner) string {
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			path = path[2:]
		} else if len(path) == 1 {
			path = "@this"
		}
	}

	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		if warn != nil {
			warn.Warn("JSON path not found: %s", path)
		}
		return ""
	}
	return result.String()
}
