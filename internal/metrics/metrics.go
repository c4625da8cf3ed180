// Package metrics exposes Prometheus collectors for link check runs and the
// HTTP API.
package metrics

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// Recorder owns every linkcheck collector. It implements linkcheck.Recorder.
type Recorder struct {
	linksChecked   *prometheus.CounterVec
	linkDuration   *prometheus.HistogramVec
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	rateLimitDelay *prometheus.HistogramVec
	inFlight       prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ linkcheck.Recorder = (*Recorder)(nil)

// NewRecorder registers the collectors against reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		linksChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_links_checked_total",
			Help: "Distinct links checked, labeled by category and verdict.",
		}, []string{"category", "verdict"}),
		linkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkcheck_link_check_duration_seconds",
			Help:    "Time spent validating a single link.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"category"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkcheck_runs_total",
			Help: "Completed runs partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkcheck_run_duration_seconds",
			Help:    "Wall time per run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		rateLimitDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkcheck_rate_limit_delay_seconds",
			Help:    "Histogram of per-host rate limit waits.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"host"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linkcheck_validations_in_flight",
			Help: "Link validations currently running.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
		}, []string{"method", "route"}),
	}
	for _, collector := range []prometheus.Collector{
		r.linksChecked,
		r.linkDuration,
		r.runs,
		r.runDuration,
		r.rateLimitDelay,
		r.inFlight,
		r.httpRequests,
		r.httpRequestDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register linkcheck collector: %w", err)
		}
	}
	return r, nil
}

// ObserveLink records one validated link.
func (r *Recorder) ObserveLink(category linkcheck.Category, verdict linkcheck.Verdict, duration time.Duration) {
	r.linksChecked.WithLabelValues(string(category), string(verdict)).Inc()
	r.linkDuration.WithLabelValues(string(category)).Observe(duration.Seconds())
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(result string, duration time.Duration) {
	r.runs.WithLabelValues(result).Inc()
	r.runDuration.Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func (r *Recorder) ObserveRateLimitDelay(host string, waited time.Duration) {
	r.rateLimitDelay.WithLabelValues(SanitizeSite(host)).Observe(waited.Seconds())
}

// AddInFlight moves the in-flight validations gauge.
func (r *Recorder) AddInFlight(delta int) {
	r.inFlight.Add(float64(delta))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func (r *Recorder) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, replacing the file atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
