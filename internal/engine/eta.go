package engine

import (
	"time"

	"fleetroute/internal/model"
)

// propagateETAs stamps computed arrival times on every assignment that has
// at least one stop and one leg. Supplied etas are never overwritten.
func propagateETAs(res *model.PlanResult, now time.Time) {
	for i := range res.Assignments {
		propagateAssignment(&res.Assignments[i], now)
	}
}

func propagateAssignment(a *model.Assignment, now time.Time) {
	if len(a.Stops) == 0 || len(a.Legs) == 0 {
		return
	}
	t := now.UTC()
	if parsed, ok := parseETA(a.Stops[0].Eta); ok {
		t = parsed
	}
	if a.Stops[0].Eta == "" {
		a.Stops[0].EtaCalc = formatETA(t)
	}
	for i, leg := range a.Legs {
		t = t.Add(time.Duration(leg.TimeS * float64(time.Second)))
		if i+1 < len(a.Stops) && a.Stops[i+1].Eta == "" {
			a.Stops[i+1].EtaCalc = formatETA(t)
		}
	}
}

func parseETA(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	// Bare local timestamps without an offset are treated as UTC.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func formatETA(t time.Time) string { return t.UTC().Format(time.RFC3339) }
