package report

import (
	"sort"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/bench"
	"gonum.org/v1/gonum/stat"
)

// AggregateReport summarizes one benchmark run. Latency statistics only cover operations that
// acquired the lock.
type AggregateReport struct {
	Backend   string
	Fairness  string
	Reentrant bool
	Workers   int

	Operations int
	Succeeded  int
	Failed     int
	Contended  int
	// fraction of operations that had to wait for the lock
	ContentionRate float64

	Elapsed time.Duration
	// successful operations per second
	Throughput float64

	LatencyMin  time.Duration
	LatencyMax  time.Duration
	LatencyMean time.Duration
	LatencyP50  time.Duration
	LatencyP90  time.Duration
	LatencyP99  time.Duration
	HoldMean    time.Duration

	Partial  bool
	Failures []string
}

func Aggregate(res *bench.Results) AggregateReport {
	total, completed, failed, contended := res.Operations()
	report := AggregateReport{
		Backend:    res.Backend,
		Fairness:   string(res.Fairness),
		Reentrant:  res.Reentrant,
		Workers:    len(res.Workers),
		Operations: total,
		Succeeded:  completed,
		Failed:     failed,
		Contended:  contended,
		Elapsed:    res.Elapsed,
		Partial:    res.Partial,
		Failures:   make([]string, 0, len(res.Failures)),
	}
	if total > 0 {
		report.ContentionRate = float64(contended) / float64(total)
	}
	if res.Elapsed > 0 {
		report.Throughput = float64(completed) / res.Elapsed.Seconds()
	}

	latencies := make([]float64, 0, completed)
	holds := make([]float64, 0, completed)
	for _, w := range res.Workers {
		for _, op := range w.Records {
			if op.Failed() {
				continue
			}
			latencies = append(latencies, float64(op.Latency))
			holds = append(holds, float64(op.Hold))
		}
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		report.LatencyMin = time.Duration(latencies[0])
		report.LatencyMax = time.Duration(latencies[len(latencies)-1])
		report.LatencyMean = time.Duration(stat.Mean(latencies, nil))
		report.LatencyP50 = time.Duration(stat.Quantile(0.50, stat.Empirical, latencies, nil))
		report.LatencyP90 = time.Duration(stat.Quantile(0.90, stat.Empirical, latencies, nil))
		report.LatencyP99 = time.Duration(stat.Quantile(0.99, stat.Empirical, latencies, nil))
		report.HoldMean = time.Duration(stat.Mean(holds, nil))
	}
	for _, f := range res.Failures {
		report.Failures = append(report.Failures, f.String())
	}
	return report
}
