package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/surgefire/internal/metrics"
	"github.com/torosent/surgefire/internal/runner"
)

// PrintReport outputs a human-readable summary of a run and its verdict.
func PrintReport(w io.Writer, report *runner.Report) {
	sum := report.Summary
	g := sum.Global

	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Run ID:            %s\n", report.RunID)
	fmt.Fprintf(w, "Started:           %s\n", report.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:          %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Users:             %d\n", sum.UsersStarted)
	fmt.Fprintf(w, "Total Requests:    %d\n", g.Count)
	fmt.Fprintf(w, "Successful:        %d (%.1f%%)\n", g.Successes, g.SuccessPercent)
	fmt.Fprintf(w, "Failed:            %d (%.1f%%)\n", g.Failures, g.FailurePercent)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", g.RequestsPerSec)
	fmt.Fprintln(w, "\nResponse Time (ms):")
	writeLatency(w, g, "  ")

	if len(sum.Steps) > 0 {
		fmt.Fprintln(w, "\nRequest Breakdown:")
		for _, name := range stepNames(sum) {
			st := sum.Steps[name]
			share := 0.0
			if g.Count > 0 {
				share = float64(st.Count) / float64(g.Count) * 100
			}
			fmt.Fprintf(w,
				"  - %s: total=%d (%.1f%%), ok=%d, ko=%d, mean=%.0fms, p95=%dms, p99=%dms, max=%dms\n",
				name, st.Count, share, st.Successes, st.Failures, st.MeanMs, st.P95Ms, st.P99Ms, st.MaxMs)
		}
	}

	if rows := metrics.FlattenStatusBuckets(sum.StatusBuckets); len(rows) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Step, row.Code, row.Count)
		}
	}

	if len(sum.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range sortedErrors(sum.Errors) {
			fmt.Fprintf(w, "  %6d  %s\n", e.count, e.label)
		}
	}

	if len(report.Injections) > 0 {
		fmt.Fprintln(w, "\nInjection:")
		for _, inj := range report.Injections {
			fmt.Fprintf(w, "  - %s: %d/%d users started", inj.Scenario, inj.Users, inj.Scheduled)
			if inj.Overruns > 0 {
				fmt.Fprintf(w, ", %d late (max lag %.0fms)", inj.Overruns, inj.MaxLagMs)
			}
			fmt.Fprintln(w)
		}
	}

	writeVerdict(w, report)
}

func writeLatency(w io.Writer, st metrics.Stats, indent string) {
	fmt.Fprintf(w, "%sMin:             %d\n", indent, st.MinMs)
	fmt.Fprintf(w, "%sMean:            %.1f\n", indent, st.MeanMs)
	fmt.Fprintf(w, "%sStd Dev:         %.1f\n", indent, st.StdDevMs)
	fmt.Fprintf(w, "%sP50:             %d\n", indent, st.P50Ms)
	fmt.Fprintf(w, "%sP75:             %d\n", indent, st.P75Ms)
	fmt.Fprintf(w, "%sP95:             %d\n", indent, st.P95Ms)
	fmt.Fprintf(w, "%sP99:             %d\n", indent, st.P99Ms)
	fmt.Fprintf(w, "%sMax:             %d\n", indent, st.MaxMs)
}

func writeVerdict(w io.Writer, report *runner.Report) {
	res := report.Result
	if len(res.Results) > 0 {
		fmt.Fprintln(w, "\nAssertions:")
		for _, r := range res.Results {
			mark := "PASS"
			if !r.Pass {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "  [%s] %s (observed %s)\n", mark, r.Name, formatValue(r.Observed))
		}
	}
	if len(res.Violations) > 0 {
		fmt.Fprintln(w, "\nViolations:")
		for _, v := range res.Violations {
			fmt.Fprintf(w, "  - %s: expected %s %s, observed %s\n",
				v.Assertion, v.Operator, formatValue(v.Expected), formatValue(v.Observed))
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	verdict := "PASSED"
	if !res.Pass {
		verdict = "FAILED"
	}
	fmt.Fprintf(w, "\nResult: %s\n", verdict)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report *runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, report *runner.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders report in format. An empty format means text.
func Write(w io.Writer, format string, report *runner.Report) error {
	switch strings.ToLower(format) {
	case "", "text":
		PrintReport(w, report)
		return nil
	case "json":
		return PrintJSONReport(w, report)
	case "yaml":
		return PrintYAMLReport(w, report)
	case "html":
		return GenerateHTMLReport(w, report)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func stepNames(sum metrics.Summary) []string {
	names := make([]string, 0, len(sum.Steps))
	for name := range sum.Steps {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := sum.Steps[names[i]].Count, sum.Steps[names[j]].Count
		if ci == cj {
			return names[i] < names[j]
		}
		return ci > cj
	})
	return names
}

type errorCount struct {
	label string
	count int
}

func sortedErrors(errs map[string]int) []errorCount {
	out := make([]errorCount, 0, len(errs))
	for label, count := range errs {
		out = append(out, errorCount{label: label, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count == out[j].count {
			return out[i].label < out[j].label
		}
		return out[i].count > out[j].count
	})
	return out
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
