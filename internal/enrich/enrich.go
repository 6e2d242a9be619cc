// Package enrich replaces straight-line itinerary geometry with routed
// geometry and timing from a routing provider, degrading per leg to a
// straight segment when a call fails.
package enrich

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"fleetroute/internal/geo"
	"fleetroute/internal/model"
)

const fallbackSpeedMS = 40000.0 / 3600.0 // 40 km/h

// Router resolves one routed segment between two points.
type Router interface {
	Segment(ctx context.Context, from, to model.GeoPoint, avoidAreas string, vehicleParams url.Values) (model.RouteSegment, error)
}

// Report makes per-leg degradation observable to the caller instead of
// being inferred from absent fields.
type Report struct {
	Legs         int `json:"legs"`
	ProviderLegs int `json:"provider_legs"`
	FallbackLegs int `json:"fallback_legs"`
}

// Enricher walks every assignment and rebuilds geometry, legs and metrics
// from routed segments. MaxLegs bounds provider calls per run; legs past
// the cap use fallback geometry without a call. Limiter, when set, paces
// outbound calls.
type Enricher struct {
	Router  Router
	Limiter *rate.Limiter
	MaxLegs int
}

// Enrich mutates res in place and returns the per-leg outcome report.
func (e *Enricher) Enrich(ctx context.Context, res *model.PlanResult, zones []model.Zone, vr model.VehicleRestrictions) Report {
	if e == nil || e.Router == nil {
		return Report{}
	}
	avoid := AvoidAreas(zones)
	params := VehicleParams(vr)

	var rep Report
	calls := 0
	totalDistM := 0.0
	totalTimeS := 0.0
	for ai := range res.Assignments {
		a := &res.Assignments[ai]
		coords := [][]float64{}
		legs := []model.Leg{}
		var prev *model.GeoPoint
		distM := 0.0
		timeS := 0.0
		for _, st := range a.Stops {
			if !st.HasCoords() {
				// A coordinate gap resets the chain so no leg spans it.
				prev = nil
				continue
			}
			cur := st.Point()
			if prev != nil {
				seg, fromProvider := e.segment(ctx, *prev, cur, avoid, params, &calls)
				if fromProvider {
					rep.ProviderLegs++
				} else {
					rep.FallbackLegs++
				}
				if len(seg.Coordinates) > 0 {
					pts := seg.Coordinates
					if len(coords) > 0 {
						pts = pts[1:] // shared vertex with the previous leg
					}
					coords = append(coords, pts...)
				}
				legs = append(legs, model.Leg{
					Index:     len(legs),
					From:      *prev,
					To:        cur,
					DistanceM: seg.DistanceM,
					TimeS:     seg.TimeS,
				})
				rep.Legs++
				distM += seg.DistanceM
				timeS += seg.TimeS
			} else {
				coords = append(coords, []float64{cur.Lng, cur.Lat})
			}
			prev = &cur
		}
		if len(coords) > 0 {
			a.Route = &model.LineString{Type: "LineString", Coordinates: coords}
		}
		a.Legs = legs
		a.Metrics = &model.Metrics{DistanceM: math.Round(distM*10) / 10, TimeS: int(timeS)}
		totalDistM += distM
		totalTimeS += timeS
	}

	km := math.Round(totalDistM/1000.0*1000) / 1000
	min := int(totalTimeS / 60)
	res.Summary.TotalDistanceKm = &km
	res.Summary.TotalTimeMin = &min
	return rep
}

// segment asks the router for one leg, falling back to a straight segment
// on any error. Legs past the call budget skip the router entirely.
func (e *Enricher) segment(ctx context.Context, from, to model.GeoPoint, avoid string, params url.Values, calls *int) (model.RouteSegment, bool) {
	if e.MaxLegs > 0 && *calls >= e.MaxLegs {
		return fallbackSegment(from, to), false
	}
	*calls++
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return fallbackSegment(from, to), false
		}
	}
	seg, err := e.Router.Segment(ctx, from, to, avoid, params)
	if err != nil {
		return fallbackSegment(from, to), false
	}
	return seg, true
}

// fallbackSegment mirrors the provider's output shape: a straight two-point
// polyline with haversine distance and time at 40 km/h.
func fallbackSegment(from, to model.GeoPoint) model.RouteSegment {
	d := geo.HaversineMeters(from.Lat, from.Lng, to.Lat, to.Lng)
	return model.RouteSegment{
		Coordinates: [][]float64{{from.Lng, from.Lat}, {to.Lng, to.Lat}},
		DistanceM:   d,
		TimeS:       d / fallbackSpeedMS,
	}
}

// AvoidAreas renders nogo zones in the routing provider's avoidAreas
// syntax: pipe-separated "poly:" prefixed rings of colon-joined lat,lng
// pairs. Rings are closed if needed; polygons with fewer than three points
// and malformed points are skipped.
func AvoidAreas(zones []model.Zone) string {
	out := ""
	for _, z := range zones {
		if z.Type != model.ZoneNoGo || len(z.Polygon) < 3 {
			continue
		}
		parts := []string{}
		for _, pt := range z.Polygon {
			if len(pt) < 2 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%g,%g", pt[0], pt[1]))
		}
		if len(parts) == 0 {
			continue
		}
		if parts[0] != parts[len(parts)-1] {
			parts = append(parts, parts[0])
		}
		poly := "poly:" + parts[0]
		for _, p := range parts[1:] {
			poly += ":" + p
		}
		if out != "" {
			out += "|"
		}
		out += poly
	}
	return out
}

// VehicleParams maps vehicle restrictions onto routing query parameters.
// A long vehicle is routed as commercial traffic.
func VehicleParams(vr model.VehicleRestrictions) url.Values {
	params := url.Values{}
	if vr.LongVehicle {
		params.Set("vehicleCommercial", "true")
	}
	if vr.MaxLengthM != nil {
		params.Set("vehicleLength", strconv.FormatFloat(*vr.MaxLengthM, 'f', -1, 64))
	}
	return params
}
