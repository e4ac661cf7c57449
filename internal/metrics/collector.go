package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/harraw/internal/report"
)

// Collector records report durations in a thread-safe manner, grouped by step
// name in first-seen order.
type Collector struct {
	mu      sync.Mutex
	nanosec bool
	order   []string
	steps   map[string]*series
	overall *series
}

// Stats are the statistics of one step name, or of all steps. Latency fields
// are in milliseconds.
type Stats struct {
	Name      string         `json:"name"`
	Total     int64          `json:"total"`
	Successes int64          `json:"successes"`
	Failures  int64          `json:"failures"`
	MinMs     float64        `json:"min_ms"`
	MaxMs     float64        `json:"max_ms"`
	MedianMs  float64        `json:"median_ms"`
	AverageMs float64        `json:"average_ms"`
	StdDevMs  float64        `json:"stddev_ms"`
	P99Ms     float64        `json:"p99_ms"`
	Statuses  []StatusBucket `json:"statuses,omitempty"`
}

// Summary is the full statistics of a run.
type Summary struct {
	Steps          []Stats `json:"steps"`
	Overall        Stats   `json:"overall"`
	DurationMs     float64 `json:"duration_ms"`
	RequestsPerSec float64 `json:"requests_per_sec"`
}

type series struct {
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	min, max  float64
	sum       float64
	sumSq     float64
	statuses  map[int]int
}

func newSeries() *series {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &series{
		hist:     hdrhistogram.New(1, 60_000_000, 3),
		statuses: make(map[int]int),
	}
}

// NewCollector creates a Collector. nanosec tells it report durations are in
// nanoseconds rather than milliseconds.
func NewCollector(nanosec bool) *Collector {
	return &Collector{
		nanosec: nanosec,
		steps:   make(map[string]*series),
		overall: newSeries(),
	}
}

// Record adds one report.
func (c *Collector) Record(r report.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := r.Duration
	if c.nanosec {
		ms = r.Duration / float64(time.Millisecond)
	}

	s, ok := c.steps[r.Name]
	if !ok {
		s = newSeries()
		c.steps[r.Name] = s
		c.order = append(c.order, r.Name)
	}
	s.add(ms, r.Status, r.Success())
	c.overall.add(ms, r.Status, r.Success())
}

// RecordIterations adds the reports of every iteration.
func (c *Collector) RecordIterations(iterations [][]report.Report) {
	for _, list := range iterations {
		for _, r := range list {
			c.Record(r)
		}
	}
}

// Summary computes the statistics for a run that took elapsed.
func (c *Collector) Summary(elapsed time.Duration) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Summary{
		Steps:      make([]Stats, 0, len(c.order)),
		Overall:    c.overall.stats("All"),
		DurationMs: float64(elapsed) / float64(time.Millisecond),
	}
	for _, name := range c.order {
		out.Steps = append(out.Steps, c.steps[name].stats(name))
	}
	if elapsed > 0 && out.Overall.Total > 0 {
		out.RequestsPerSec = float64(out.Overall.Total) / elapsed.Seconds()
	}
	return out
}

func (s *series) add(ms float64, status int, success bool) {
	us := int64(ms * 1000)
	if us < s.hist.LowestTrackableValue() {
		us = s.hist.LowestTrackableValue()
	}
	if us > s.hist.HighestTrackableValue() {
		us = s.hist.HighestTrackableValue()
	}
	_ = s.hist.RecordValue(us)

	total := s.successes + s.failures
	if total == 0 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
	s.sum += ms
	s.sumSq += ms * ms

	if success {
		s.successes++
	} else {
		s.failures++
	}
	s.statuses[status]++
}

func (s *series) stats(name string) Stats {
	total := s.successes + s.failures
	st := Stats{
		Name:      name,
		Total:     total,
		Successes: s.successes,
		Failures:  s.failures,
		MinMs:     s.min,
		MaxMs:     s.max,
		Statuses:  FlattenStatusBuckets(s.statuses),
	}
	if total == 0 {
		return st
	}

	n := float64(total)
	st.AverageMs = s.sum / n
	if total > 1 {
		variance := (s.sumSq - s.sum*s.sum/n) / (n - 1)
		if variance > 0 {
			st.StdDevMs = math.Sqrt(variance)
		}
	}
	st.MedianMs = float64(s.hist.ValueAtQuantile(50)) / 1000
	st.P99Ms = float64(s.hist.ValueAtQuantile(99)) / 1000
	return st
}
