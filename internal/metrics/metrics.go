// Package metrics registers the Prometheus instrumentation for the
// forecasting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	ForecastRequests prometheus.Counter
	ForecastErrors   *prometheus.CounterVec
	FitCacheHits     prometheus.Counter
	FitCacheMisses   prometheus.Counter
	ForecastDuration prometheus.Histogram
	UploadsAccepted  prometheus.Counter
	UploadsRejected  prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ForecastRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_forecast_requests_total",
			Help: "Total forecast requests received",
		}),
		ForecastErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_forecast_errors_total",
				Help: "Forecast requests that failed, by error kind",
			},
			[]string{"kind"},
		),
		FitCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_fit_cache_hits_total",
			Help: "Forecast requests served by a cached model fit",
		}),
		FitCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_fit_cache_misses_total",
			Help: "Forecast requests that paid a fresh model fit",
		}),
		ForecastDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "demandcast_forecast_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: prometheus.DefBuckets,
		}),
		UploadsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_uploads_accepted_total",
			Help: "Uploads merged into the booking store",
		}),
		UploadsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demandcast_uploads_rejected_total",
			Help: "Uploads rejected for schema mismatch",
		}),
	}
}
