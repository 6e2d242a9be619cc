// Package engine implements the optimization pipeline: entity mapping,
// nearest-vehicle assignment, greedy route construction with precedence and
// capacity constraints, road enrichment and ETA propagation. The external
// provider is the primary solver; the local heuristic runs when no provider
// is configured or the provider call fails.
package engine

import (
	"context"
	"time"

	"fleetroute/internal/enrich"
	"fleetroute/internal/mapper"
	"fleetroute/internal/model"
)

const fallbackNotice = "Heuristic fallback used (optimization provider key missing or provider returned error)."

// Optimizer produces a plan from mapped entities. The provider client
// implements this; Heuristic is the local fallback.
type Optimizer interface {
	Optimize(ctx context.Context, vehicles []model.Vehicle, shipments []model.Shipment, zones []model.Zone, opts model.Options) (model.PlanResult, error)
}

// Heuristic assigns each shipment to its nearest vehicle and sequences
// stops greedily. It never fails; the worst case is an itinerary of only
// start/end stops with every shipment reported unassigned.
type Heuristic struct{}

func (Heuristic) Optimize(_ context.Context, vehicles []model.Vehicle, shipments []model.Shipment, _ []model.Zone, _ model.Options) (model.PlanResult, error) {
	res := model.PlanResult{Assignments: []model.Assignment{}}
	if len(vehicles) == 0 {
		return res, nil
	}
	buckets := assignNearest(vehicles, shipments)
	for vi, v := range vehicles {
		a, unassigned := buildRoute(v, vi, shipments, buckets[vi])
		res.Assignments = append(res.Assignments, a)
		res.Unassigned = append(res.Unassigned, unassigned...)
	}
	km := 0.0
	min := 0
	res.Summary = model.Summary{TotalDistanceKm: &km, TotalTimeMin: &min}
	return res, nil
}

// Engine runs one optimization request end to end. Provider is nil when no
// provider key was resolved; Enricher is nil when road enrichment is
// unavailable. All credentials arrive through construction, never from the
// process environment.
type Engine struct {
	Provider Optimizer
	Enricher *enrich.Enricher
}

// Info describes how a run was satisfied, for logging and metrics.
type Info struct {
	Mode   string // "provider" or "heuristic"
	Enrich enrich.Report
}

// Run never returns an error: provider failures degrade to the heuristic
// with Notice and ProviderError populated, and enrichment degrades per leg.
func (e *Engine) Run(ctx context.Context, req model.OptimizeRequest) (model.PlanResult, Info) {
	vehicles := mapper.Vehicles(req.Vehicles)
	shipments := mapper.Shipments(req.Shipments)

	var res model.PlanResult
	info := Info{Mode: "provider"}
	if e.Provider == nil {
		res = fallback(ctx, vehicles, shipments, req.Zones, req.Options)
		info.Mode = "heuristic"
	} else if r, err := e.Provider.Optimize(ctx, vehicles, shipments, req.Zones, req.Options); err != nil {
		res = fallback(ctx, vehicles, shipments, req.Zones, req.Options)
		res.ProviderError = err.Error()
		info.Mode = "heuristic"
	} else {
		res = r
	}

	if e.Enricher != nil && req.Options.RoadRoutes() {
		info.Enrich = e.Enricher.Enrich(ctx, &res, req.Zones, req.Options.VehicleRestrictions)
	}
	propagateETAs(&res, time.Now())
	return res, info
}

func fallback(ctx context.Context, vehicles []model.Vehicle, shipments []model.Shipment, zones []model.Zone, opts model.Options) model.PlanResult {
	res, _ := Heuristic{}.Optimize(ctx, vehicles, shipments, zones, opts)
	res.Notice = fallbackNotice
	return res
}
