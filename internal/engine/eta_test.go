package engine

import (
	"testing"
	"time"

	"fleetroute/internal/model"
)

func legStops(etas ...string) []model.Stop {
	out := make([]model.Stop, len(etas))
	for i, e := range etas {
		out[i] = model.Stop{Type: model.StopPickup, Lat: fp(0), Lng: fp(float64(i)), Eta: e}
	}
	return out
}

func TestPropagateStampsAccumulatedLegTimes(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := model.Assignment{
		Stops: legStops("", "", ""),
		Legs: []model.Leg{
			{Index: 0, TimeS: 60},
			{Index: 1, TimeS: 120},
		},
	}
	propagateAssignment(&a, now)
	if a.Stops[0].EtaCalc != "2024-05-01T12:00:00Z" {
		t.Fatalf("first stop eta_calc %q", a.Stops[0].EtaCalc)
	}
	if a.Stops[1].EtaCalc != "2024-05-01T12:01:00Z" {
		t.Fatalf("second stop eta_calc %q", a.Stops[1].EtaCalc)
	}
	if a.Stops[2].EtaCalc != "2024-05-01T12:03:00Z" {
		t.Fatalf("third stop eta_calc %q", a.Stops[2].EtaCalc)
	}
}

func TestPropagateUsesSuppliedBaseAndNeverOverwrites(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := model.Assignment{
		Stops: legStops("2024-05-01T08:00:00Z", "2024-05-01T08:30:00Z", ""),
		Legs: []model.Leg{
			{Index: 0, TimeS: 60},
			{Index: 1, TimeS: 60},
		},
	}
	propagateAssignment(&a, now)
	if a.Stops[0].EtaCalc != "" {
		t.Fatalf("supplied eta must not gain eta_calc, got %q", a.Stops[0].EtaCalc)
	}
	if a.Stops[1].Eta != "2024-05-01T08:30:00Z" || a.Stops[1].EtaCalc != "" {
		t.Fatalf("supplied eta overwritten: %+v", a.Stops[1])
	}
	if a.Stops[2].EtaCalc != "2024-05-01T08:02:00Z" {
		t.Fatalf("accumulation should run from the supplied base, got %q", a.Stops[2].EtaCalc)
	}
}

func TestPropagateBareTimestampTreatedAsUTC(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := model.Assignment{
		Stops: legStops("2024-05-01T09:00:00", ""),
		Legs:  []model.Leg{{Index: 0, TimeS: 3600}},
	}
	propagateAssignment(&a, now)
	if a.Stops[1].EtaCalc != "2024-05-01T10:00:00Z" {
		t.Fatalf("got %q", a.Stops[1].EtaCalc)
	}
}

func TestPropagateSkipsWithoutLegs(t *testing.T) {
	a := model.Assignment{Stops: legStops("", "")}
	propagateAssignment(&a, time.Now())
	if a.Stops[0].EtaCalc != "" {
		t.Fatalf("no legs means no stamping")
	}
}
