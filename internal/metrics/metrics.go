// Package metrics exposes Prometheus collectors for archive runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	archiverRunsTotal             *prometheus.CounterVec
	archiverImagesTotal           *prometheus.CounterVec
	archiverFetchesTotal          *prometheus.CounterVec
	archiverStageDurationSeconds  *prometheus.HistogramVec
	archiverRateLimitDelaySeconds *prometheus.HistogramVec
	archiverEntries               prometheus.Gauge
	archiverLastRunTimestamp      prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		archiverRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_runs_total",
				Help: "Archive attempts, labeled by outcome (archived, skipped, failed, none).",
			},
			[]string{"outcome"},
		)

		archiverImagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_images_total",
				Help: "Images processed by the localizer, labeled by status.",
			},
			[]string{"status"},
		)

		archiverFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_fetches_total",
				Help: "HTTP fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		archiverStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"stage"},
		)

		archiverRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_rate_limit_delay_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		archiverEntries = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "archiver_entries",
				Help: "Entries listed in the most recently rendered index.",
			},
		)

		archiverLastRunTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "archiver_last_run_timestamp_seconds",
				Help: "Unix time the last run finished.",
			},
		)
	})
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

// ObserveRun counts one archive attempt.
func ObserveRun(outcome string) {
	Init()
	archiverRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveImage counts one processed image.
func ObserveImage(status string) {
	Init()
	archiverImagesTotal.WithLabelValues(status).Inc()
}

// ObserveFetch counts one HTTP fetch.
func ObserveFetch(rawURL, status string) {
	Init()
	archiverFetchesTotal.WithLabelValues(SanitizeSite(rawURL), status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	archiverStageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	archiverRateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// SetEntries records the size of the rendered index.
func SetEntries(n int) {
	Init()
	archiverEntries.Set(float64(n))
}

// WriteTextfile stamps the run completion time and writes every registered metric to
// path in the text exposition format, replacing the file atomically.
func WriteTextfile(path string, finishedAt time.Time) error {
	Init()
	archiverLastRunTimestamp.Set(float64(finishedAt.Unix()))
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
