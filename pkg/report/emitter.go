package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/config/v1alpha1"
	"github.com/alexandreLamarre/padlock/pkg/constants"
	"github.com/olekukonko/tablewriter"
)

type field struct {
	key   string
	value string
}

func formatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// fields lists the metrics of a report in their output order.
func fields(r AggregateReport) []field {
	return []field{
		{"backend", r.Backend},
		{"fairness", r.Fairness},
		{"reentrant", strconv.FormatBool(r.Reentrant)},
		{"workers", strconv.Itoa(r.Workers)},
		{"operations", strconv.Itoa(r.Operations)},
		{"succeeded", strconv.Itoa(r.Succeeded)},
		{"failed", strconv.Itoa(r.Failed)},
		{"contended", strconv.Itoa(r.Contended)},
		{"contention_rate", formatFloat(r.ContentionRate, 4)},
		{"elapsed", r.Elapsed.String()},
		{"throughput_ops_per_sec", formatFloat(r.Throughput, 2)},
		{"latency_min", r.LatencyMin.String()},
		{"latency_mean", r.LatencyMean.String()},
		{"latency_p50", r.LatencyP50.String()},
		{"latency_p90", r.LatencyP90.String()},
		{"latency_p99", r.LatencyP99.String()},
		{"latency_max", r.LatencyMax.String()},
		{"hold_mean", r.HoldMean.String()},
		{"partial", strconv.FormatBool(r.Partial)},
	}
}

// summary mirrors the totals and averages printed after a multi-run analysis.
func summary(reports []AggregateReport) []field {
	var ops, succeeded, failed, partial int
	var elapsed, latencyMean time.Duration
	var throughput, contention float64
	for _, r := range reports {
		ops += r.Operations
		succeeded += r.Succeeded
		failed += r.Failed
		if r.Partial {
			partial++
		}
		elapsed += r.Elapsed
		latencyMean += r.LatencyMean
		throughput += r.Throughput
		contention += r.ContentionRate
	}
	n := len(reports)
	return []field{
		{"runs", strconv.Itoa(n)},
		{"operations_sum", strconv.Itoa(ops)},
		{"succeeded_sum", strconv.Itoa(succeeded)},
		{"failed_sum", strconv.Itoa(failed)},
		{"partial_runs", strconv.Itoa(partial)},
		{"elapsed_sum", elapsed.String()},
		{"elapsed_avg", (elapsed / time.Duration(n)).String()},
		{"throughput_ops_per_sec_avg", formatFloat(throughput/float64(n), 2)},
		{"latency_mean_avg", (latencyMean / time.Duration(n)).String()},
		{"contention_rate_avg", formatFloat(contention/float64(n), 4)},
	}
}

// Emitter renders aggregate reports. Rendering is deterministic: the same reports always
// produce the same bytes.
type Emitter struct {
	Format string
}

func NewEmitter(format string) *Emitter {
	if format == "" {
		format = v1alpha1.FormatText
	}
	return &Emitter{Format: format}
}

func (e *Emitter) Render(reports ...AggregateReport) ([]byte, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports to render")
	}
	var buf bytes.Buffer
	switch e.Format {
	case v1alpha1.FormatText:
		e.renderText(&buf, reports)
	case v1alpha1.FormatTable:
		e.renderTable(&buf, reports)
	default:
		return nil, fmt.Errorf("unknown report format '%s'", e.Format)
	}
	return buf.Bytes(), nil
}

// Emit renders reports and writes them to w in a single write.
func (e *Emitter) Emit(w io.Writer, reports ...AggregateReport) error {
	data, err := e.Render(reports...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile emits reports to path, or to standard output when path is "-".
func (e *Emitter) WriteFile(path string, reports ...AggregateReport) error {
	if path == "" || path == constants.StdoutReportPath {
		return e.Emit(os.Stdout, reports...)
	}
	data, err := e.Render(reports...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeFields(w io.Writer, fs []field) {
	for _, f := range fs {
		fmt.Fprintf(w, "%s: %s\n", f.key, f.value)
	}
}

func writeFailures(w io.Writer, failures []string) {
	for _, f := range failures {
		fmt.Fprintf(w, "failure: %s\n", f)
	}
}

func (e *Emitter) renderText(w io.Writer, reports []AggregateReport) {
	if len(reports) == 1 {
		writeFields(w, fields(reports[0]))
		writeFailures(w, reports[0].Failures)
		return
	}
	for i, r := range reports {
		fmt.Fprintf(w, "run: %d/%d\n", i+1, len(reports))
		writeFields(w, fields(r))
		writeFailures(w, r.Failures)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "summary:")
	writeFields(w, summary(reports))
}

func (e *Emitter) renderTable(w io.Writer, reports []AggregateReport) {
	header := []string{"metric"}
	columns := make([][]field, 0, len(reports))
	for i, r := range reports {
		header = append(header, fmt.Sprintf("run %d", i+1))
		columns = append(columns, fields(r))
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for row := range columns[0] {
		line := []string{columns[0][row].key}
		for _, col := range columns {
			line = append(line, col[row].value)
		}
		table.Append(line)
	}
	table.Render()
	for _, r := range reports {
		writeFailures(w, r.Failures)
	}
	if len(reports) > 1 {
		fmt.Fprintln(w, "summary:")
		writeFields(w, summary(reports))
	}
}
