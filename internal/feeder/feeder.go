// Package feeder loads the datasets behind file-backed generators: CSV rows and
// YAML arrays. Each loaded element becomes the item of one generated step.
package feeder

import "fmt"

// Record is one CSV row keyed by the header row's field names.
type Record map[string]any

// DefaultQuote is the CSV quote character used when none is configured.
const DefaultQuote = '"'

// ErrEmpty is returned for a dataset file without any content.
var ErrEmpty = fmt.Errorf("dataset file is empty")
