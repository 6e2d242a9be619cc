package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetroute/internal/buildinfo"
	"fleetroute/internal/engine"
	"fleetroute/internal/ingest"
	"fleetroute/internal/model"
	"fleetroute/internal/provider"
	"fleetroute/internal/store"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "store unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type optimizeResponse struct {
	PlanID string `json:"plan_id"`
	model.PlanResult
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "optimize requires dispatcher or admin role")
		return
	}
	var req model.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid request", err.Error())
		return
	}
	s.runOptimize(w, r, pr, req)
}

func (s *Server) handleOptimizeCSV(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "optimize requires dispatcher or admin role")
		return
	}
	var body struct {
		VehiclesCSV  string        `json:"vehicles_csv"`
		ShipmentsCSV string        `json:"shipments_csv"`
		Zones        []model.Zone  `json:"zones,omitempty"`
		Options      model.Options `json:"options,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	vehicles, err := ingest.ParseTable(strings.NewReader(body.VehiclesCSV))
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid vehicles csv", err.Error())
		return
	}
	shipments, err := ingest.ParseTable(strings.NewReader(body.ShipmentsCSV))
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid shipments csv", err.Error())
		return
	}
	req := model.OptimizeRequest{Vehicles: vehicles, Shipments: shipments, Zones: body.Zones, Options: body.Options}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid request", err.Error())
		return
	}
	s.runOptimize(w, r, pr, req)
}

func (s *Server) runOptimize(w http.ResponseWriter, r *http.Request, pr Principal, req model.OptimizeRequest) {
	ctx := r.Context()

	// Stored tenant zones participate alongside the request's.
	zones, err := s.Store.ListZones(ctx, pr.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	req.Zones = append(req.Zones, zones...)

	eng := s.engineFor(req.Options)
	start := time.Now()
	res, info := eng.Run(ctx, req)
	if s.Metrics != nil {
		s.Metrics.OptimizeTotal.WithLabelValues(info.Mode).Inc()
		s.Metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
		if res.ProviderError != "" {
			s.Metrics.ProviderFailures.Inc()
		}
		s.Metrics.EnrichLegs.WithLabelValues("provider").Add(float64(info.Enrich.ProviderLegs))
		s.Metrics.EnrichLegs.WithLabelValues("fallback").Add(float64(info.Enrich.FallbackLegs))
	}

	plan := model.Plan{
		ID:        uuid.New().String(),
		Tenant:    pr.Tenant,
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
		Result:    res,
	}
	if err := s.Store.SavePlan(ctx, plan); err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	s.publishPlanEvent(ctx, plan, info)
	writeJSON(w, http.StatusOK, optimizeResponse{PlanID: plan.ID, PlanResult: res})
}

func (s *Server) publishPlanEvent(ctx context.Context, plan model.Plan, info engine.Info) {
	data, err := json.Marshal(map[string]any{"mode": info.Mode, "summary": plan.Result.Summary})
	if err != nil {
		return
	}
	ev := Event{Type: "plan.completed", Tenant: plan.Tenant, PlanID: plan.ID, At: time.Now().UTC(), Data: data}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if s.Broker != nil {
		if err := s.Broker.Publish(ctx, planTopic(plan.ID), payload); err != nil {
			log.Printf("broker publish: %v", err)
		}
		if err := s.Broker.Publish(ctx, tenantTopic(plan.Tenant), payload); err != nil {
			log.Printf("broker publish: %v", err)
		}
	}
	if s.Hooks != nil {
		if err := s.Hooks.Publish(ctx, plan.Tenant, ev.Type, ev); err != nil {
			log.Printf("webhook publish: %v", err)
		}
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	plans, next, err := s.Store.ListPlans(r.Context(), pr.Tenant, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": plans, "next_cursor": next})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	plan, err := s.Store.GetPlan(r.Context(), pr.Tenant, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "plan not found", "")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handlePlanEvents streams plan events over SSE with periodic heartbeats.
func (s *Server) handlePlanEvents(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	id := r.PathValue("id")
	if _, err := s.Store.GetPlan(r.Context(), pr.Tenant, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "plan not found", "")
		} else {
			writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		}
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Broker.Subscribe(planTopic(id))
	defer cancel()

	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	fl.Flush()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: plan\ndata: %s\n\n", msg)
			fl.Flush()
		}
	}
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Queries []struct {
			Address string `json:"address"`
			Country string `json:"country,omitempty"`
		} `json:"queries"`
		TomTomAPIKey string `json:"tomtom_api_key,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	key := strings.TrimSpace(body.TomTomAPIKey)
	if key == "" {
		key = s.Cfg.TomTomAPIKey
	}
	if key == "" {
		writeProblem(w, http.StatusUnprocessableEntity, "no geocoding key", "supply tomtom_api_key or configure one")
		return
	}
	tt := provider.NewTomTom(key)

	type geocodeResult struct {
		Address string   `json:"address"`
		Lat     *float64 `json:"lat,omitempty"`
		Lng     *float64 `json:"lng,omitempty"`
		Error   string   `json:"error,omitempty"`
	}
	results := make([]geocodeResult, 0, len(body.Queries))
	for _, q := range body.Queries {
		item := geocodeResult{Address: q.Address}
		// One bad address never fails the batch.
		if pt, err := tt.Geocode(r.Context(), q.Address, q.Country); err != nil {
			item.Error = err.Error()
		} else {
			item.Lat, item.Lng = &pt.Lat, &pt.Lng
		}
		results = append(results, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "zone writes require dispatcher or admin role")
		return
	}
	var z model.Zone
	if err := decodeJSON(r, &z); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validateZone(z); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid zone", err.Error())
		return
	}
	z.ID = uuid.New().String()
	z.Tenant = pr.Tenant
	if err := s.Store.CreateZone(r.Context(), z); err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	zones, err := s.Store.ListZones(r.Context(), pr.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": zones})
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	z, err := s.Store.GetZone(r.Context(), pr.Tenant, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "zone not found", "")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "zone writes require dispatcher or admin role")
		return
	}
	var z model.Zone
	if err := decodeJSON(r, &z); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validateZone(z); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid zone", err.Error())
		return
	}
	z.ID = r.PathValue("id")
	z.Tenant = pr.Tenant
	err := s.Store.UpdateZone(r.Context(), z)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "zone not found", "")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "zone writes require dispatcher or admin role")
		return
	}
	err := s.Store.DeleteZone(r.Context(), pr.Tenant, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "zone not found", "")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "subscription writes require dispatcher or admin role")
		return
	}
	var body struct {
		URL    string   `json:"url"`
		Secret string   `json:"secret,omitempty"`
		Events []string `json:"events,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validateWebhookURL(body.URL); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid subscription", err.Error())
		return
	}
	sub := model.Subscription{
		ID:        uuid.New().String(),
		Tenant:    pr.Tenant,
		URL:       body.URL,
		Secret:    body.Secret,
		Events:    body.Events,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.CreateSubscription(r.Context(), sub); err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	subs, err := s.Store.ListSubscriptions(r.Context(), pr.Tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": subs})
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "forbidden", "subscription writes require dispatcher or admin role")
		return
	}
	err := s.Store.DeleteSubscription(r.Context(), pr.Tenant, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "subscription not found", "")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
