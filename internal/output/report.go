// Package output prints run statistics for operators and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/harraw/internal/metrics"
)

const labelWidth = 25

// PrintReport outputs a human-readable statistics report: one block per step
// name followed by the run totals.
func PrintReport(w io.Writer, summary metrics.Summary) {
	for _, st := range summary.Steps {
		fmt.Fprintln(w)
		writeStats(w, st.Name, st)
	}

	fmt.Fprintln(w)
	writeRow(w, "Time taken for tests", fmt.Sprintf("%.1f seconds", summary.DurationMs/1000))
	writeRow(w, "Total requests", fmt.Sprint(summary.Overall.Total))
	writeRow(w, "Successful requests", fmt.Sprint(summary.Overall.Successes))
	writeRow(w, "Failed requests", fmt.Sprint(summary.Overall.Failures))
	writeRow(w, "Requests per second", fmt.Sprintf("%.2f [#/sec]", summary.RequestsPerSec))
	writeRow(w, "Median time per request", ms(summary.Overall.MedianMs))
	writeRow(w, "Average time per request", ms(summary.Overall.AverageMs))
	writeRow(w, "Sample standard deviation", ms(summary.Overall.StdDevMs))
	writeRow(w, "99.0'th percentile", ms(summary.Overall.P99Ms))
	if len(summary.Overall.Statuses) > 0 {
		fmt.Fprintln(w, "\nStatus codes:")
		writeStatusBuckets(w, summary.Overall.Statuses, "  ")
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, summary metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func writeStats(w io.Writer, name string, st metrics.Stats) {
	rows := [][2]string{
		{"Total requests", fmt.Sprint(st.Total)},
		{"Successful requests", fmt.Sprint(st.Successes)},
		{"Failed requests", fmt.Sprint(st.Failures)},
		{"Median time per request", ms(st.MedianMs)},
		{"Average time per request", ms(st.AverageMs)},
		{"Sample standard deviation", ms(st.StdDevMs)},
		{"99.0'th percentile", ms(st.P99Ms)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-*s %-*s %s\n", labelWidth, name, labelWidth, row[0], row[1])
	}
}

func writeRow(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-*s %s\n", labelWidth, label, value)
}

func writeStatusBuckets(w io.Writer, rows []metrics.StatusBucket, indent string) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s%d: %d\n", indent, row.Code, row.Count)
	}
}

func ms(v float64) string {
	return fmt.Sprintf("%.0fms", v)
}
