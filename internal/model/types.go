// Package model defines the wire and domain types shared across the service.
package model

import "time"

// Table is header-indexed tabular input. JSON table payloads and parsed CSV
// uploads both arrive in this shape and are mapped identically.
type Table struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// GeoPoint is a resolved WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLng is a possibly-incomplete coordinate pair as mapped from raw input.
type LatLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Valid reports whether both coordinates are present.
func (p LatLng) Valid() bool { return p.Lat != nil && p.Lng != nil }

// Point converts to a GeoPoint. Callers must check Valid first.
func (p LatLng) Point() GeoPoint { return GeoPoint{Lat: *p.Lat, Lng: *p.Lng} }

// TimeWindow carries opaque start/end markers as supplied by the caller.
type TimeWindow struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Vehicle is immutable once mapped.
type Vehicle struct {
	ID          *string    `json:"id"`
	Start       LatLng     `json:"start"`
	End         LatLng     `json:"end"`
	Capacity    *int       `json:"capacity"`
	MaxTasks    *int       `json:"max_tasks"`
	Shift       TimeWindow `json:"shift"`
	Description *string    `json:"description"`
}

// Waypoint is one endpoint of a shipment.
type Waypoint struct {
	ID *string `json:"id"`
	LatLng
	Window TimeWindow `json:"time_window"`
}

type Shipment struct {
	Pickup      Waypoint `json:"pickup"`
	Delivery    Waypoint `json:"delivery"`
	Quantity    *int     `json:"quantity"`
	Priority    *int     `json:"priority"`
	Description *string  `json:"description"`
}

// Stop types. The builder emits exactly these four and switches exhaustively.
const (
	StopStart    = "start"
	StopPickup   = "pickup"
	StopDelivery = "delivery"
	StopEnd      = "end"
)

// Stop is one visit in a vehicle itinerary. Lat/Lng are pointers because
// provider-produced itineraries may include stops without coordinates; the
// local builder only emits coordinate-bearing stops.
type Stop struct {
	Type    string   `json:"type"`
	ID      *string  `json:"id,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Eta     string   `json:"eta,omitempty"`
	EtaCalc string   `json:"eta_calc,omitempty"`
}

// HasCoords reports whether the stop carries a full coordinate pair.
func (s Stop) HasCoords() bool { return s.Lat != nil && s.Lng != nil }

// Point converts to a GeoPoint. Callers must check HasCoords first.
func (s Stop) Point() GeoPoint { return GeoPoint{Lat: *s.Lat, Lng: *s.Lng} }

// Zone polygon types.
const (
	ZoneNoGo  = "nogo"
	ZoneFence = "fence"
)

// Zone is an avoidance or geofence polygon. Rings need not be pre-closed;
// points are [lat,lng] pairs and malformed points are skipped downstream.
type Zone struct {
	ID      string      `json:"id,omitempty"`
	Tenant  string      `json:"-"`
	Name    string      `json:"name,omitempty"`
	Type    string      `json:"type"`
	Polygon [][]float64 `json:"polygon"`
}

// VehicleRestrictions translate into routing-provider query parameters.
type VehicleRestrictions struct {
	LongVehicle bool     `json:"long_vehicle,omitempty"`
	MaxLengthM  *float64 `json:"max_length_m,omitempty"`
}

// Options are per-request controls. Keys supplied here take precedence over
// the service configuration; there is no other fallback.
type Options struct {
	UseRoadRoutes       *bool               `json:"use_road_routes,omitempty"`
	NextBillionAPIKey   string              `json:"nextbillion_api_key,omitempty"`
	TomTomAPIKey        string              `json:"tomtom_api_key,omitempty"`
	VehicleRestrictions VehicleRestrictions `json:"vehicle_restrictions,omitempty"`
}

// RoadRoutes reports whether route enrichment is requested (default on).
func (o Options) RoadRoutes() bool { return o.UseRoadRoutes == nil || *o.UseRoadRoutes }

// LineString is GeoJSON-shaped route geometry, coordinates as [lng,lat].
type LineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// Leg is one routed hop between consecutive coordinate-bearing stops.
type Leg struct {
	Index     int      `json:"index"`
	From      GeoPoint `json:"from"`
	To        GeoPoint `json:"to"`
	DistanceM float64  `json:"distance_m"`
	TimeS     float64  `json:"time_s"`
}

// Metrics are per-assignment totals. DistanceM is rounded to 0.1 m and
// TimeS is floored to whole seconds.
type Metrics struct {
	DistanceM float64 `json:"distance_m"`
	TimeS     int     `json:"time_s"`
}

type Assignment struct {
	VehicleID string      `json:"vehicle_id"`
	Stops     []Stop      `json:"stops"`
	Route     *LineString `json:"route,omitempty"`
	Legs      []Leg       `json:"legs,omitempty"`
	Metrics   *Metrics    `json:"metrics,omitempty"`
}

// Summary aggregates across assignments. Pointers so the zero-vehicle
// short-circuit marshals as an empty object.
type Summary struct {
	TotalDistanceKm *float64 `json:"total_distance_km,omitempty"`
	TotalTimeMin    *int     `json:"total_time_min,omitempty"`
}

// UnassignedShipment records a shipment the route builder could not place.
type UnassignedShipment struct {
	ShipmentID string `json:"shipment_id"`
	Reason     string `json:"reason"`
}

// PlanResult is the engine output schema.
// Notice and ProviderError are populated only on the heuristic fallback path.
type PlanResult struct {
	Summary       Summary              `json:"summary"`
	Assignments   []Assignment         `json:"assignments"`
	Unassigned    []UnassignedShipment `json:"unassigned,omitempty"`
	Notice        string               `json:"notice,omitempty"`
	ProviderError string               `json:"provider_error,omitempty"`
}

// RouteSegment is one routed leg as returned by a routing provider, with
// Coordinates ordered as [lng,lat].
type RouteSegment struct {
	Coordinates [][]float64
	DistanceM   float64
	TimeS       float64
}

// OptimizeRequest is the body of POST /v1/optimize.
type OptimizeRequest struct {
	Vehicles  Table   `json:"vehicles"`
	Shipments Table   `json:"shipments"`
	Zones     []Zone  `json:"zones,omitempty"`
	Options   Options `json:"options,omitempty"`
}

// Plan is a persisted optimization run.
type Plan struct {
	ID        string     `json:"id"`
	Tenant    string     `json:"tenant"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Result    PlanResult `json:"result"`
}

// Subscription registers a webhook endpoint for plan events.
type Subscription struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"-"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}
