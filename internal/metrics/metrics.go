package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fit_etl"

var (
	// RunsTotal counts finished pipeline runs by outcome
	RunsTotal = Counter(
		"runs_total",
		"Total number of pipeline runs",
		"pipeline", "status",
	)

	// RunDuration tracks how long pipeline runs take
	RunDuration = Histogram(
		"run_duration_seconds",
		"Duration of pipeline runs in seconds",
		[]float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		"pipeline",
	)

	// RowsLoaded counts rows written to analytics tables
	RowsLoaded = Counter(
		"rows_loaded_total",
		"Total number of rows written to the analytics store",
		"pipeline", "table",
	)

	// RowsSkipped counts source records dropped by transformers
	RowsSkipped = Counter(
		"rows_skipped_total",
		"Total number of source records skipped during transform",
		"pipeline",
	)

	// LastSuccess is the unix time of the last successful run
	LastSuccess = Gauge(
		"last_success_timestamp_seconds",
		"Unix time of the last successful run",
		"pipeline",
	)

	// OverlapSkips counts ticks dropped because the previous run was still going
	OverlapSkips = Counter(
		"overlap_skips_total",
		"Total number of runs skipped because one was already in progress",
		"pipeline",
	)
)

func Counter(name, help string, labelKeys ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labelKeys,
	)
}

func Inc(c *prometheus.CounterVec, labels prometheus.Labels, v float64) {
	c.With(labels).Add(v)
}

func Gauge(name, help string, labelKeys ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labelKeys,
	)
}

func Set(g *prometheus.GaugeVec, labels prometheus.Labels, v float64) {
	g.With(labels).Set(v)
}

func Histogram(name, help string, buckets []float64, labelKeys ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labelKeys,
	)
}

func Observe(h *prometheus.HistogramVec, labels prometheus.Labels, v float64) {
	h.With(labels).Observe(v)
}

// RecordRun updates every run metric for one finished pipeline run.
func RecordRun(pipeline, status string, took time.Duration, loaded map[string]int, skipped int) {
	Inc(RunsTotal, prometheus.Labels{"pipeline": pipeline, "status": status}, 1)
	Observe(RunDuration, prometheus.Labels{"pipeline": pipeline}, took.Seconds())
	for table, n := range loaded {
		Inc(RowsLoaded, prometheus.Labels{"pipeline": pipeline, "table": table}, float64(n))
	}
	if skipped > 0 {
		Inc(RowsSkipped, prometheus.Labels{"pipeline": pipeline}, float64(skipped))
	}
	if status == "succeeded" {
		Set(LastSuccess, prometheus.Labels{"pipeline": pipeline}, float64(time.Now().Unix()))
	}
}

// Handler serves the default registry on the ops API.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
