package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exposes live collector figures as Prometheus metrics. Values are
// read from the collector at scrape time.
type Exporter struct {
	collector *Collector

	requests     *prometheus.Desc
	latency      *prometheus.Desc
	usersStarted *prometheus.Desc
	usersActive  *prometheus.Desc
}

// NewExporter returns an exporter reading from c.
func NewExporter(c *Collector) *Exporter {
	return &Exporter{
		collector: c,
		requests: prometheus.NewDesc("surgefire_requests_total",
			"Requests executed by virtual users.", []string{"outcome"}, nil),
		latency: prometheus.NewDesc("surgefire_response_time_seconds",
			"Approximate response time quantiles.", []string{"quantile"}, nil),
		usersStarted: prometheus.NewDesc("surgefire_users_started_total",
			"Virtual users started.", nil, nil),
		usersActive: prometheus.NewDesc("surgefire_users_active",
			"Virtual users currently running a scenario.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.requests
	ch <- e.latency
	ch <- e.usersStarted
	ch <- e.usersActive
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	live := e.collector.Live()
	ch <- prometheus.MustNewConstMetric(e.requests, prometheus.CounterValue, float64(live.Successes), "ok")
	ch <- prometheus.MustNewConstMetric(e.requests, prometheus.CounterValue, float64(live.Failures), "ko")
	ch <- prometheus.MustNewConstMetric(e.latency, prometheus.GaugeValue, live.P50.Seconds(), "0.5")
	ch <- prometheus.MustNewConstMetric(e.latency, prometheus.GaugeValue, live.P95.Seconds(), "0.95")
	ch <- prometheus.MustNewConstMetric(e.latency, prometheus.GaugeValue, live.P99.Seconds(), "0.99")
	ch <- prometheus.MustNewConstMetric(e.usersStarted, prometheus.CounterValue, float64(live.UsersStarted))
	ch <- prometheus.MustNewConstMetric(e.usersActive, prometheus.GaugeValue, float64(live.UsersActive))
}

// Handler returns an HTTP handler serving the collector's metrics on a
// dedicated registry.
func Handler(c *Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewExporter(c))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
