// Package metrics aggregates the reports of a run into per-step and overall
// statistics.
//
//	collector := metrics.NewCollector(cfg.Nanosec)
//	collector.RecordIterations(result.Reports)
//	summary := collector.Summary(result.Duration)
//
// Latencies are tracked in an HDR histogram with microsecond resolution, from
// 1µs up to 60s with 3 significant figures. Medians and percentiles come from
// the histogram; averages and standard deviations are exact.
package metrics
