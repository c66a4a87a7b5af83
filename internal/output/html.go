package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/surgefire/internal/metrics"
	"github.com/torosent/surgefire/internal/runner"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt string
	Report      *runner.Report
	Steps       []HTMLStep
	Statuses    []metrics.StatusBucket
	Errors      []HTMLError
}

// HTMLStep is one row of the request breakdown table.
type HTMLStep struct {
	Name  string
	Stats metrics.Stats
}

// HTMLError is one row of the error table.
type HTMLError struct {
	Label string
	Count int
}

// GenerateHTMLReport generates a standalone HTML report.
func GenerateHTMLReport(w io.Writer, report *runner.Report) error {
	data := HTMLReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Report:      report,
		Statuses:    metrics.FlattenStatusBuckets(report.Summary.StatusBuckets),
	}
	for _, name := range stepNames(report.Summary) {
		data.Steps = append(data.Steps, HTMLStep{Name: name, Stats: report.Summary.Steps[name]})
	}
	for _, e := range sortedErrors(report.Summary.Errors) {
		data.Errors = append(data.Errors, HTMLError{Label: e.label, Count: e.count})
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatValue": formatValue,
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Surgefire Report {{.Report.RunID}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2933; }
h1 { margin-bottom: 0.2rem; }
.meta { color: #52606d; margin-bottom: 1.5rem; }
.verdict { display: inline-block; padding: 0.3rem 0.9rem; border-radius: 4px; font-weight: 600; }
.pass { background: #d1fae5; color: #065f46; }
.fail { background: #fee2e2; color: #991b1b; }
table { border-collapse: collapse; margin: 1rem 0 2rem; }
th, td { padding: 0.4rem 0.8rem; border-bottom: 1px solid #e4e7eb; text-align: right; }
th:first-child, td:first-child { text-align: left; }
th { background: #f5f7fa; }
</style>
</head>
<body>
<h1>Load Test Report</h1>
<div class="meta">Run {{.Report.RunID}} started {{.Report.Started.Format "2006-01-02 15:04:05 MST"}}, lasted {{formatDuration .Report.Duration}}. Generated {{.GeneratedAt}}.</div>
{{if .Report.Result.Pass}}<span class="verdict pass">PASSED</span>{{else}}<span class="verdict fail">FAILED</span>{{end}}

<h2>Global</h2>
{{with .Report.Summary.Global}}
<table>
<tr><th>Requests</th><th>OK</th><th>KO</th><th>OK %</th><th>RPS</th><th>Min</th><th>Mean</th><th>P50</th><th>P75</th><th>P95</th><th>P99</th><th>Max</th></tr>
<tr><td>{{.Count}}</td><td>{{.Successes}}</td><td>{{.Failures}}</td><td>{{formatFloat .SuccessPercent}}</td><td>{{formatFloat .RequestsPerSec}}</td><td>{{.MinMs}}</td><td>{{formatFloat .MeanMs}}</td><td>{{.P50Ms}}</td><td>{{.P75Ms}}</td><td>{{.P95Ms}}</td><td>{{.P99Ms}}</td><td>{{.MaxMs}}</td></tr>
</table>
{{end}}

{{if .Steps}}
<h2>Requests</h2>
<table>
<tr><th>Name</th><th>Requests</th><th>OK</th><th>KO</th><th>Mean</th><th>P95</th><th>P99</th><th>Max</th></tr>
{{range .Steps}}<tr><td>{{.Name}}</td><td>{{.Stats.Count}}</td><td>{{.Stats.Successes}}</td><td>{{.Stats.Failures}}</td><td>{{formatFloat .Stats.MeanMs}}</td><td>{{.Stats.P95Ms}}</td><td>{{.Stats.P99Ms}}</td><td>{{.Stats.MaxMs}}</td></tr>
{{end}}</table>
{{end}}

{{if .Report.Result.Results}}
<h2>Assertions</h2>
<table>
<tr><th>Assertion</th><th>Observed</th><th>Result</th></tr>
{{range .Report.Result.Results}}<tr><td>{{.Name}}</td><td>{{formatValue .Observed}}</td><td>{{if .Pass}}PASS{{else}}FAIL{{end}}</td></tr>
{{end}}</table>
{{end}}

{{if .Report.Result.Warnings}}
<h2>Warnings</h2>
<ul>{{range .Report.Result.Warnings}}<li>{{.}}</li>{{end}}</ul>
{{end}}

{{if .Statuses}}
<h2>Status Codes</h2>
<table>
<tr><th>Request</th><th>Status</th><th>Count</th></tr>
{{range .Statuses}}<tr><td>{{.Step}}</td><td>{{.Code}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
{{end}}

{{if .Errors}}
<h2>Errors</h2>
<table>
<tr><th>Error</th><th>Count</th></tr>
{{range .Errors}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`
