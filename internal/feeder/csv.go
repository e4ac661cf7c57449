package feeder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadCSV reads path as comma-separated rows. The first row names the fields;
// every following row becomes one Record. quote replaces '"' as the quoting
// character.
func LoadCSV(path string, quote byte) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("read CSV %s: %w", path, ErrEmpty)
	}
	if quote == 0 {
		quote = DefaultQuote
	}

	swap := quote != DefaultQuote
	if swap {
		data = swapQuote(data, quote)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("read CSV %s: line %d: %w", path, perr.Line, perr.Err)
		}
		return nil, fmt.Errorf("read CSV %s: %w", path, err)
	}

	header := rows[0]
	records := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(Record, len(header))
		for j, field := range header {
			value := row[j]
			if swap {
				field = string(swapQuote([]byte(field), quote))
				value = string(swapQuote([]byte(value), quote))
			}
			record[field] = value
		}
		records = append(records, map[string]any(record))
	}
	return records, nil
}

// ParseQuote returns the first byte of value, or the default quote when value is
// empty.
func ParseQuote(value string) byte {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultQuote
	}
	return value[0]
}

// swapQuote exchanges quote and '"' so encoding/csv can parse files that use a
// different quoting character. The swap is its own inverse.
func swapQuote(data []byte, quote byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		switch b {
		case quote:
			out[i] = DefaultQuote
		case DefaultQuote:
			out[i] = quote
		default:
			out[i] = b
		}
	}
	return out
}
