// Package api implements the HTTP surface of the fleetroute service.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"fleetroute/internal/auth"
	"fleetroute/internal/config"
	"fleetroute/internal/engine"
	"fleetroute/internal/enrich"
	"fleetroute/internal/metrics"
	"fleetroute/internal/model"
	"fleetroute/internal/provider"
	"fleetroute/internal/store"
	"fleetroute/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Broker  Broker
	Auth    auth.Verifier
	Metrics *metrics.Metrics
	Hooks   *webhooks.Publisher
	Cfg     config.Config

	wsUpgrader websocket.Upgrader
}

func New(st store.Store, broker Broker, verifier auth.Verifier, m *metrics.Metrics, cfg config.Config) *Server {
	return &Server{
		Store:   st,
		Broker:  broker,
		Auth:    verifier,
		Metrics: m,
		Hooks:   &webhooks.Publisher{Store: st},
		Cfg:     cfg,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	mux.HandleFunc("POST /v1/optimize", s.handleOptimize)
	mux.HandleFunc("POST /v1/optimize/csv", s.handleOptimizeCSV)
	mux.HandleFunc("GET /v1/plans", s.handleListPlans)
	mux.HandleFunc("GET /v1/plans/ws", s.handlePlanWS)
	mux.HandleFunc("GET /v1/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("GET /v1/plans/{id}/events/stream", s.handlePlanEvents)
	mux.HandleFunc("POST /v1/geocode", s.handleGeocode)

	mux.HandleFunc("POST /v1/zones", s.handleCreateZone)
	mux.HandleFunc("GET /v1/zones", s.handleListZones)
	mux.HandleFunc("GET /v1/zones/{id}", s.handleGetZone)
	mux.HandleFunc("PUT /v1/zones/{id}", s.handleUpdateZone)
	mux.HandleFunc("DELETE /v1/zones/{id}", s.handleDeleteZone)

	mux.HandleFunc("POST /v1/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("GET /v1/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("DELETE /v1/subscriptions/{id}", s.handleDeleteSubscription)
	return mux
}

// engineFor builds a per-request engine. Request-level keys override the
// configured ones; a missing provider key leaves Provider nil so the run
// falls back to the heuristic, and a missing routing key disables
// enrichment.
func (s *Server) engineFor(opts model.Options) *engine.Engine {
	nbKey := strings.TrimSpace(opts.NextBillionAPIKey)
	if nbKey == "" {
		nbKey = s.Cfg.NextBillionAPIKey
	}
	ttKey := strings.TrimSpace(opts.TomTomAPIKey)
	if ttKey == "" {
		ttKey = s.Cfg.TomTomAPIKey
	}
	eng := &engine.Engine{}
	if nbKey != "" {
		eng.Provider = provider.NewNextBillion(nbKey)
	}
	if ttKey != "" {
		eng.Enricher = &enrich.Enricher{
			Router:  provider.NewTomTom(ttKey),
			Limiter: rate.NewLimiter(rate.Limit(s.Cfg.EnrichRatePerSec), 1),
			MaxLegs: s.Cfg.MaxEnrichLegs,
		}
	}
	return eng
}
