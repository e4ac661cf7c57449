// Package threshold checks a live run against a previously recorded report
// file and flags steps that got slower than an allowed delta.
package threshold

import (
	"errors"
	"fmt"
	"math"

	"github.com/torosent/harraw/internal/console"
	"github.com/torosent/harraw/internal/report"
)

// ErrSlowSteps is returned when at least one step exceeded the threshold.
var ErrSlowSteps = errors.New("slow steps detected")

// Result is the comparison of one live report with its recorded counterpart.
type Result struct {
	Iteration int
	Index     int
	Name      string
	Recorded  float64
	Live      float64
	Delta     float64
	Slow      bool
	Message   string
}

// Checker compares live reports with a recorded single-iteration report list.
// Reports are matched positionally inside each iteration.
type Checker struct {
	recorded  []report.Report
	threshold float64
}

// NewChecker creates a Checker. threshold is the largest allowed slowdown,
// expressed in the same unit as the report durations.
func NewChecker(recorded []report.Report, threshold float64) *Checker {
	return &Checker{recorded: recorded, threshold: threshold}
}

// Evaluate compares every live report. A live report whose position has no
// recorded counterpart is an error.
func (c *Checker) Evaluate(live [][]report.Report) ([]Result, error) {
	var results []Result
	for iteration, list := range live {
		for i, r := range list {
			if i >= len(c.recorded) {
				return nil, fmt.Errorf("report %d (%s) of iteration %d has no recorded counterpart", i, r.Name, iteration)
			}
			recorded := c.recorded[i].Duration
			delta := r.Duration - recorded
			result := Result{
				Iteration: iteration,
				Index:     i,
				Name:      r.Name,
				Recorded:  recorded,
				Live:      r.Duration,
				Delta:     delta,
				Slow:      delta > c.threshold,
			}
			if result.Slow {
				result.Message = fmt.Sprintf("is %sms slower than before", fmt.Sprint(math.Round(delta)))
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// Compare evaluates live against recorded, prints one line per slow step and
// returns the number of slow steps. The error wraps ErrSlowSteps when that
// number is not zero.
func Compare(recorded []report.Report, live [][]report.Report, threshold float64, printer *console.Printer) (int, error) {
	results, err := NewChecker(recorded, threshold).Evaluate(live)
	if err != nil {
		return 0, err
	}

	slow := 0
	for _, r := range results {
		if !r.Slow {
			continue
		}
		slow++
		if printer != nil {
			printer.Step(r.Name, console.Failure.Render(r.Message))
		}
	}
	if slow > 0 {
		return slow, fmt.Errorf("%w: %d", ErrSlowSteps, slow)
	}
	return 0, nil
}

// CompareFile loads the recorded report file at path and runs Compare.
func CompareFile(path string, live [][]report.Report, threshold float64, printer *console.Printer) (int, error) {
	recorded, err := report.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return Compare(recorded, live, threshold, printer)
}
