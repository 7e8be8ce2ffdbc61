// Package metrics exposes Prometheus instruments for ingestion runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobmarket/internal/model"
)

// Metrics holds the run instruments registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	OffersFetched    prometheus.Counter
	RowsInserted     prometheus.Counter
	RowsDuplicate    prometheus.Counter
	RowsDropped      prometheus.Counter
	PagesSkipped     prometheus.Counter
	LastSuccessEpoch prometheus.Gauge
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobmarket_runs_total",
				Help: "Ingestion runs by final status",
			},
			[]string{"status"},
		),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobmarket_run_duration_seconds",
			Help:    "Wall time of an ingestion run",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		OffersFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmarket_offers_fetched_total",
			Help: "Offers returned by the search API",
		}),
		RowsInserted: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmarket_rows_inserted_total",
			Help: "Rows appended to the job table",
		}),
		RowsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmarket_rows_duplicate_total",
			Help: "Rows skipped because their id was already stored",
		}),
		RowsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmarket_rows_dropped_total",
			Help: "Rows rejected by the category filter",
		}),
		PagesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmarket_pages_skipped_total",
			Help: "Result pages abandoned after retries",
		}),
		LastSuccessEpoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobmarket_last_success_timestamp_seconds",
			Help: "Unix time of the last run that finished without failure",
		}),
	}
}

// Observe records a finished run.
func (m *Metrics) Observe(r model.RunReport) {
	m.RunsTotal.WithLabelValues(r.Status).Inc()
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		m.RunDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	}
	m.OffersFetched.Add(float64(r.Fetched))
	m.RowsInserted.Add(float64(r.Inserted))
	m.RowsDuplicate.Add(float64(r.Duplicates))
	m.RowsDropped.Add(float64(r.Dropped))
	m.PagesSkipped.Add(float64(r.PagesSkipped))
	if r.Status != model.RunFailed {
		m.LastSuccessEpoch.Set(float64(r.FinishedAt.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
