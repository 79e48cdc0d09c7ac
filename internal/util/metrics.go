package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Import rows processed, by outcome",
	}, []string{"outcome"})

	ItemsEnrichedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_enriched_total",
		Help: "Total number of items successfully enriched",
	})

	ItemsEnrichmentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "items_enrichment_failed_total",
		Help: "Total number of items whose enrichment failed",
	}, []string{"reason"})

	EnrichmentBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrichment_batch_duration_seconds",
		Help:    "Wall time of a full enrichment batch",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	ProviderCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_latency_seconds",
		Help:    "Latency of external provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	ProviderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_errors_total",
		Help: "External provider failures by provider and kind",
	}, []string{"provider", "kind"})

	PricingCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_cache_total",
		Help: "Pricing cache lookups by result",
	}, []string{"result"})

	AlertChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_alert_checks_total",
		Help: "Price alert checks by outcome",
	}, []string{"outcome"})

	AlertsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_alerts_triggered_total",
		Help: "Price alerts fired, by direction",
	}, []string{"direction"})

	MonitoringTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_monitoring_tick_duration_seconds",
		Help:    "Duration of one monitoring pass over armed alerts",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
