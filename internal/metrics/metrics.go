// Package metrics exposes service counters on a dedicated registry so the
// default global registry stays untouched.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	OptimizeTotal     *prometheus.CounterVec
	OptimizeDuration  prometheus.Histogram
	ProviderFailures  prometheus.Counter
	EnrichLegs        *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OptimizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetroute_optimize_total",
			Help: "Optimization runs by resolution mode.",
		}, []string{"mode"}),
		OptimizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetroute_optimize_duration_seconds",
			Help:    "End-to-end optimization latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ProviderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetroute_provider_failures_total",
			Help: "Optimization provider calls that fell back to the heuristic.",
		}),
		EnrichLegs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetroute_enrich_legs_total",
			Help: "Enriched legs by geometry source.",
		}, []string{"source"}),
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetroute_webhook_deliveries_total",
			Help: "Webhook delivery outcomes.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.OptimizeTotal, m.OptimizeDuration, m.ProviderFailures, m.EnrichLegs, m.WebhookDeliveries)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
