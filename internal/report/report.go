// Package report defines the per-step timing record produced while a plan runs
// and the YAML file format used to persist and reload it.
package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Report is the outcome of one executed step. Duration is expressed in
// milliseconds, or nanoseconds when the run is configured with nanosec timing.
type Report struct {
	Name     string  `yaml:"name" json:"name"`
	Duration float64 `yaml:"duration" json:"duration"`
	Status   int     `yaml:"status" json:"status"`
}

// Success reports whether the status is a 2xx or 3xx code.
func (r Report) Success() bool {
	return r.Status >= 200 && r.Status < 400
}

// Sink collects the reports of a single iteration in execution order.
// It is owned by one iteration and is not safe for concurrent use.
type Sink struct {
	reports []Report
}

// Append records a report.
func (s *Sink) Append(r Report) {
	s.reports = append(s.reports, r)
}

// Reports returns the collected reports.
func (s *Sink) Reports() []Report {
	return s.reports
}

// Len returns the number of collected reports.
func (s *Sink) Len() int {
	return len(s.reports)
}

// WriteFile stores reports as a YAML sequence at path.
func WriteFile(path string, reports []Report) error {
	if reports == nil {
		reports = []Report{}
	}
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a report file previously written by WriteFile.
func ReadFile(path string) ([]Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report file %s: %w", path, err)
	}
	var reports []Report
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode report file %s: %w", path, err)
	}
	return reports, nil
}
