package engine

import (
	"fmt"
	"math"

	"fleetroute/internal/geo"
	"fleetroute/internal/model"
)

// shipmentKey derives the identity used by the picked/delivered sets.
// Shipments lacking both ids get a per-index synthetic key so distinct
// id-less shipments never alias each other.
func shipmentKey(s model.Shipment, idx int) string {
	if s.Pickup.ID != nil {
		return *s.Pickup.ID
	}
	if s.Delivery.ID != nil {
		return *s.Delivery.ID
	}
	return fmt.Sprintf("s%d", idx)
}

func quantity(s model.Shipment) int {
	if s.Quantity == nil {
		return 0
	}
	return *s.Quantity
}

type action struct {
	key    string
	idx    int
	pickup bool
	at     model.GeoPoint
}

// buildRoute sequences one vehicle's shipments greedily: on each pass every
// undelivered shipment contributes at most one candidate, a pickup if not yet
// picked (requires coordinates and capacity headroom) or a delivery once
// picked (requires coordinates). The nearest candidate to the current
// position wins; an exact tie keeps the first candidate seen in shipment
// order. The loop ends when no candidate is eligible, which can strand
// shipments; those are reported, not dropped.
func buildRoute(v model.Vehicle, vi int, shipments []model.Shipment, bucket []int) (model.Assignment, []model.UnassignedShipment) {
	stops := []model.Stop{}
	if v.Start.Valid() {
		stops = append(stops, model.Stop{Type: model.StopStart, Lat: v.Start.Lat, Lng: v.Start.Lng, Eta: deref(v.Shift.Start)})
	}

	var cur *model.GeoPoint
	if v.Start.Valid() {
		p := v.Start.Point()
		cur = &p
	} else if v.End.Valid() {
		p := v.End.Point()
		cur = &p
	}

	picked := map[string]bool{}
	delivered := map[string]bool{}
	load := 0

	canPick := func(s model.Shipment) bool {
		if v.Capacity == nil {
			return true
		}
		return load+quantity(s) <= *v.Capacity
	}

	for {
		var best *action
		bestDist := math.Inf(1)
		for _, idx := range bucket {
			s := shipments[idx]
			key := shipmentKey(s, idx)
			if delivered[key] {
				continue
			}
			var cand *action
			if !picked[key] {
				if !s.Pickup.Valid() || !canPick(s) {
					continue
				}
				cand = &action{key: key, idx: idx, pickup: true, at: s.Pickup.Point()}
			} else {
				if !s.Delivery.Valid() {
					continue
				}
				cand = &action{key: key, idx: idx, pickup: false, at: s.Delivery.Point()}
			}
			d := 0.0
			if cur != nil {
				d = geo.HaversineMeters(cur.Lat, cur.Lng, cand.at.Lat, cand.at.Lng)
			}
			if d < bestDist {
				bestDist = d
				best = cand
			}
		}
		if best == nil {
			break
		}

		s := shipments[best.idx]
		if best.pickup {
			stops = append(stops, model.Stop{
				Type: model.StopPickup,
				ID:   s.Pickup.ID,
				Lat:  s.Pickup.Lat,
				Lng:  s.Pickup.Lng,
				Eta:  deref(s.Pickup.Window.Start),
			})
			picked[best.key] = true
			load += quantity(s)
		} else {
			stops = append(stops, model.Stop{
				Type: model.StopDelivery,
				ID:   s.Delivery.ID,
				Lat:  s.Delivery.Lat,
				Lng:  s.Delivery.Lng,
				Eta:  deref(s.Delivery.Window.Start),
			})
			delivered[best.key] = true
			load -= quantity(s)
		}
		at := best.at
		cur = &at
	}

	if v.End.Valid() {
		stops = append(stops, model.Stop{Type: model.StopEnd, Lat: v.End.Lat, Lng: v.End.Lng, Eta: deref(v.Shift.End)})
	}

	var unassigned []model.UnassignedShipment
	for _, idx := range bucket {
		s := shipments[idx]
		key := shipmentKey(s, idx)
		if delivered[key] {
			continue
		}
		reason := "not routed"
		switch {
		case !picked[key] && !s.Pickup.Valid():
			reason = "pickup has no usable coordinates"
		case picked[key] && !s.Delivery.Valid():
			reason = "delivery has no usable coordinates"
		case !picked[key]:
			reason = "quantity exceeds remaining vehicle capacity"
		}
		unassigned = append(unassigned, model.UnassignedShipment{ShipmentID: key, Reason: reason})
	}

	coords := [][]float64{}
	for _, st := range stops {
		if st.HasCoords() {
			coords = append(coords, []float64{*st.Lng, *st.Lat})
		}
	}

	vehicleID := fmt.Sprintf("veh-%d", vi+1)
	if v.ID != nil {
		vehicleID = *v.ID
	}
	return model.Assignment{
		VehicleID: vehicleID,
		Stops:     stops,
		Route:     &model.LineString{Type: "LineString", Coordinates: coords},
	}, unassigned
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
