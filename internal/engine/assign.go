package engine

import (
	"math"

	"fleetroute/internal/geo"
	"fleetroute/internal/model"
)

// vehicleAnchor picks the coordinate that stands in for a vehicle in
// nearest-distance comparisons: the start when complete, else the end.
func vehicleAnchor(v model.Vehicle) *model.GeoPoint {
	if v.Start.Valid() {
		p := v.Start.Point()
		return &p
	}
	if v.End.Valid() {
		p := v.End.Point()
		return &p
	}
	return nil
}

// shipmentAnchor prefers the pickup, falling back to the delivery.
func shipmentAnchor(s model.Shipment) *model.GeoPoint {
	if s.Pickup.Valid() {
		p := s.Pickup.Point()
		return &p
	}
	if s.Delivery.Valid() {
		p := s.Delivery.Point()
		return &p
	}
	return nil
}

// assignNearest partitions shipment indices across vehicles by nearest
// anchor distance. Buckets preserve the original shipment order. Vehicles
// without a usable anchor never win; a shipment with no usable anchor, or
// no vehicle to compare against, lands in bucket 0. The strict less-than
// comparison keeps the first minimum, so ties break on vehicle input order.
func assignNearest(vehicles []model.Vehicle, shipments []model.Shipment) [][]int {
	buckets := make([][]int, len(vehicles))
	for i := range buckets {
		buckets[i] = []int{}
	}
	for si, s := range shipments {
		sa := shipmentAnchor(s)
		best := 0
		if sa != nil {
			bestDist := math.Inf(1)
			for vi, v := range vehicles {
				va := vehicleAnchor(v)
				if va == nil {
					continue
				}
				d := geo.HaversineMeters(va.Lat, va.Lng, sa.Lat, sa.Lng)
				if d < bestDist {
					bestDist = d
					best = vi
				}
			}
		}
		buckets[best] = append(buckets[best], si)
	}
	return buckets
}
