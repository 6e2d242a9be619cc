package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetroute/internal/model"
)

func fp(f float64) *float64 { return &f }
func sp(s string) *string   { return &s }
func ip(n int) *int         { return &n }

func nbClient(url string) *NextBillion {
	c := NewNextBillion("secret")
	c.BaseURL = url
	return c
}

func TestOptimizeRetriesOnceOn401(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		if attempts == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"summary":{"total_distance_km":1.5},"assignments":[{"vehicle_id":"v1","stops":[]}]}`))
	}))
	defer srv.Close()

	res, err := nbClient(srv.URL).Optimize(context.Background(), nil, nil, nil, model.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts %d, want exactly one retry", attempts)
	}
	if len(res.Assignments) != 1 || res.Assignments[0].VehicleID != "v1" {
		t.Fatalf("result %+v", res)
	}
}

func TestOptimizeNoRetryOnOtherStatuses(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := nbClient(srv.URL).Optimize(context.Background(), nil, nil, nil, model.Options{})
	if attempts != 1 {
		t.Fatalf("attempts %d, want 1", attempts)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("want *Error, got %T", err)
	}
	if perr.Status != 500 || !strings.Contains(err.Error(), "NextBillion HTTP 500: upstream exploded") {
		t.Fatalf("error %v", err)
	}
}

func TestOptimizeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	_, err := nbClient(srv.URL).Optimize(context.Background(), nil, nil, nil, model.Options{})
	var perr *Error
	if !errors.As(err, &perr) || perr.Err == nil {
		t.Fatalf("want transport *Error, got %v", err)
	}
	if !strings.Contains(err.Error(), "transport error") {
		t.Fatalf("error %v", err)
	}
}

func TestBuildPayloadShapes(t *testing.T) {
	vehicles := []model.Vehicle{{
		ID:       sp("v1"),
		Start:    model.LatLng{Lat: fp(1), Lng: fp(2)},
		Capacity: ip(10),
		Shift:    model.TimeWindow{Start: sp("08:00"), End: sp("17:00")},
		MaxTasks: ip(3),
	}}
	shipments := []model.Shipment{
		{
			Pickup:   model.Waypoint{ID: sp("p1"), LatLng: model.LatLng{Lat: fp(1), Lng: fp(1)}},
			Delivery: model.Waypoint{ID: sp("d1")},
			Quantity: ip(5),
		},
		{Delivery: model.Waypoint{ID: sp("d2")}},
	}
	zones := []model.Zone{
		{Type: model.ZoneNoGo, Polygon: [][]float64{{0, 0}, {0, 1}, {1, 1}}},
		{Type: model.ZoneFence, Polygon: [][]float64{{2, 2}, {2, 3}, {3, 3}}},
	}
	p := buildPayload(vehicles, shipments, zones, model.Options{})
	if !p.Options.ReturnGeometry {
		t.Fatalf("return_geometry must always be requested")
	}
	if *p.Vehicles[0].TimeWindow[0] != "08:00" || *p.Vehicles[0].TimeWindow[1] != "17:00" {
		t.Fatalf("vehicle time window %+v", p.Vehicles[0].TimeWindow)
	}
	if *p.Shipments[0].ID != "p1" {
		t.Fatalf("shipment id should prefer pickup id")
	}
	if *p.Shipments[1].ID != "d2" {
		t.Fatalf("shipment id should fall back to delivery id")
	}
	if len(p.Constraints.NoGoZones) != 1 || len(p.Constraints.Geofences) != 1 {
		t.Fatalf("zones mispartitioned: %+v", p.Constraints)
	}
}
