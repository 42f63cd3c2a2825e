package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Render formats.
const (
	FormatTerminal = "terminal"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

var (
	// fetchTotal counts API requests by dataset and outcome
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikedash_fetch_total",
		Help: "Total API fetches by dataset and outcome",
	}, []string{"dataset", "outcome"})

	// fetchDuration tracks API request latency
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bikedash_fetch_duration_seconds",
		Help:    "API fetch duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"dataset"})

	// renderTotal counts dashboard renders by format
	renderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikedash_render_total",
		Help: "Total dashboard renders by format",
	}, []string{"format"})

	// chartRows tracks how many slices the last rendered pie had
	chartRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bikedash_chart_rows",
		Help: "Number of rows in the most recently rendered risk chart",
	})
)

// ObserveFetch records one API request.
func ObserveFetch(dataset string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}

	fetchTotal.WithLabelValues(dataset, outcome).Inc()
	fetchDuration.WithLabelValues(dataset).Observe(time.Since(started).Seconds())
}

// ObserveRender records one dashboard render.
func ObserveRender(format string, rows int) {
	renderTotal.WithLabelValues(format).Inc()
	chartRows.Set(float64(rows))
}

// MetricsHandler returns the HTTP handler for the /metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
