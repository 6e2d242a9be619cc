package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroForSamePoint(t *testing.T) {
	if d := HaversineMeters(37.7749, -122.4194, 37.7749, -122.4194); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := HaversineMeters(40.7128, -74.0060, 34.0522, -118.2437)
	b := HaversineMeters(34.0522, -118.2437, 40.7128, -74.0060)
	if a != b {
		t.Fatalf("not symmetric: %f vs %f", a, b)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of longitude along the equator is ~111.19 km on a
	// 6,371 km sphere.
	d := HaversineMeters(0, 0, 0, 1)
	want := 2 * math.Pi * 6371000.0 / 360
	if math.Abs(d-want) > 1 {
		t.Fatalf("got %f, want %f +/- 1m", d, want)
	}
}
