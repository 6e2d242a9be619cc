package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fleetroute/internal/model"
)

func ttClient(u string) *TomTom {
	c := NewTomTom("ttkey")
	c.BaseURL = u
	return c
}

func TestSegmentRequestAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/routing/1/calculateRoute/") || !strings.HasSuffix(r.URL.Path, "/json") {
			t.Errorf("path %q", r.URL.Path)
		}
		if !strings.Contains(r.URL.Path, "40.7,-74:40.8,-73.9") {
			t.Errorf("segment path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "ttkey" || q.Get("traffic") != "true" {
			t.Errorf("query %v", q)
		}
		if q.Get("avoidAreas") != "poly:1,1:2,2:3,3:1,1" {
			t.Errorf("avoidAreas %q", q.Get("avoidAreas"))
		}
		if q.Get("vehicleCommercial") != "true" {
			t.Errorf("vehicle params missing: %v", q)
		}
		w.Write([]byte(`{"routes":[{"summary":{"lengthInMeters":1234.5,"travelTimeInSeconds":321},
			"legs":[{"points":[{"latitude":40.7,"longitude":-74},{"latitude":40.8,"longitude":-73.9}]}]}]}`))
	}))
	defer srv.Close()

	params := url.Values{}
	params.Set("vehicleCommercial", "true")
	seg, err := ttClient(srv.URL).Segment(context.Background(),
		model.GeoPoint{Lat: 40.7, Lng: -74}, model.GeoPoint{Lat: 40.8, Lng: -73.9},
		"poly:1,1:2,2:3,3:1,1", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.DistanceM != 1234.5 || seg.TimeS != 321 {
		t.Fatalf("segment %+v", seg)
	}
	if len(seg.Coordinates) != 2 || seg.Coordinates[0][0] != -74 || seg.Coordinates[0][1] != 40.7 {
		t.Fatalf("coordinates must be lng,lat ordered: %v", seg.Coordinates)
	}
}

func TestSegmentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	_, err := ttClient(srv.URL).Segment(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1, Lng: 1}, "", nil)
	if err == nil || !strings.Contains(err.Error(), "TomTom routing HTTP 403") {
		t.Fatalf("error %v", err)
	}
}

func TestSegmentEmptyRoutesKeptAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()

	seg, err := ttClient(srv.URL).Segment(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1, Lng: 1}, "", nil)
	if err != nil {
		t.Fatalf("empty routes are a success, got %v", err)
	}
	if seg.DistanceM != 0 || len(seg.Coordinates) != 0 {
		t.Fatalf("segment %+v", seg)
	}
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/2/geocode/1 Main St, Springfield.json" {
			t.Errorf("path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "1" || q.Get("countrySet") != "US" {
			t.Errorf("query %v", q)
		}
		w.Write([]byte(`{"results":[{"position":{"lat":39.8,"lon":-89.6}}]}`))
	}))
	defer srv.Close()

	pt, err := ttClient(srv.URL).Geocode(context.Background(), "1 Main St, Springfield", "US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt.Lat != 39.8 || pt.Lng != -89.6 {
		t.Fatalf("point %+v", pt)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	if _, err := ttClient(srv.URL).Geocode(context.Background(), "nowhere", ""); err == nil {
		t.Fatalf("expected an error for zero results")
	}
}
